package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment represents a payment for a single order
type Payment struct {
	ID                    int64           `db:"id" json:"id"`
	OrderID               string          `db:"order_id" json:"order_id"`
	Amount                decimal.Decimal `db:"amount" json:"amount"`
	Status                string          `db:"status" json:"status"`
	Method                string          `db:"method" json:"method"`
	StripePaymentIntentID *string         `db:"stripe_payment_intent_id" json:"stripe_payment_intent_id,omitempty"`
	ErrorMessage          *string         `db:"error_message" json:"error_message,omitempty"`
	CreatedAt             time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time       `db:"updated_at" json:"updated_at"`
}

// Payment statuses
const (
	PaymentStatusPending    = "PENDING"
	PaymentStatusProcessing = "PROCESSING"
	PaymentStatusCompleted  = "COMPLETED"
	PaymentStatusFailed     = "FAILED"
	// Declared for future refund support; no transition produces it yet.
	PaymentStatusRefunded = "REFUNDED"
)

// Payment methods
const (
	PaymentMethodStripe = "STRIPE"
)

// MaxErrorMessageLength bounds the persisted error_message column.
const MaxErrorMessageLength = 1000

// IsTerminalStatus reports whether a payment in this status can no longer change.
func IsTerminalStatus(status string) bool {
	switch status {
	case PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}
