package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Event names used as routing keys on the wire
const (
	EventOrderCreated     = "order.created"
	EventPaymentCompleted = "payment.completed"
)

// OrderCreatedEvent is consumed from the order service
type OrderCreatedEvent struct {
	Event     string           `json:"event"`
	Data      OrderCreatedData `json:"data"`
	Timestamp string           `json:"timestamp"`
}

// OrderCreatedData carries the order fields of an order.created event.
// Only the order id and total amount drive payment creation; the rest
// is order metadata kept for logging.
type OrderCreatedData struct {
	ID          string          `json:"id"`
	OrderNumber string          `json:"order_number"`
	UserID      int64           `json:"user_id"`
	Status      string          `json:"status"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// PaymentCompletedEvent announces a payment's terminal outcome. The same
// event name is used for COMPLETED and FAILED payments; consumers branch
// on data.status.
type PaymentCompletedEvent struct {
	Event     string               `json:"event"`
	Data      PaymentCompletedData `json:"data"`
	Timestamp string               `json:"timestamp"`
}

// PaymentCompletedData carries the resolved payment fields. Amount goes
// on the wire as an unquoted number with two decimal places (49.50, not
// "49.5"); decimal.Decimal's own JSON encoding would quote it and strip
// trailing zeros.
type PaymentCompletedData struct {
	PaymentID             int64       `json:"paymentId"`
	OrderID               string      `json:"orderId"`
	Amount                json.Number `json:"amount"`
	Status                string      `json:"status"`
	StripePaymentIntentID *string     `json:"stripePaymentIntentId"`
}

// NewPaymentCompletedEvent builds the outbound event for a resolved payment.
func NewPaymentCompletedEvent(payment *Payment) *PaymentCompletedEvent {
	return &PaymentCompletedEvent{
		Event: EventPaymentCompleted,
		Data: PaymentCompletedData{
			PaymentID:             payment.ID,
			OrderID:               payment.OrderID,
			Amount:                json.Number(payment.Amount.StringFixed(2)),
			Status:                payment.Status,
			StripePaymentIntentID: payment.StripePaymentIntentID,
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}
}
