package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"payment-service/internal/models"

	"github.com/lib/pq"
)

const pqUniqueViolation = "23505"

// CreatePayment inserts a new payment. The UNIQUE constraint on order_id
// guarantees at most one payment per order: under concurrent creation for
// the same order exactly one insert succeeds and the rest get
// ErrDuplicatePayment.
func (s *Store) CreatePayment(ctx context.Context, payment *models.Payment) error {
	query := `
		INSERT INTO payments (order_id, amount, status, method)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	err := s.db.GetContext(ctx, payment, query,
		payment.OrderID, payment.Amount, payment.Status, payment.Method)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
		return models.ErrDuplicatePayment
	}
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

// GetPaymentByID retrieves a payment by its id
func (s *Store) GetPaymentByID(ctx context.Context, id int64) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.GetContext(ctx, &payment, "SELECT * FROM payments WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// GetPaymentByOrderID retrieves the payment for an order
func (s *Store) GetPaymentByOrderID(ctx context.Context, orderID string) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.GetContext(ctx, &payment, "SELECT * FROM payments WHERE order_id = $1", orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// TransitionPaymentStatus moves a payment from one status to another with a
// conditional update. When the payment is not in the expected status the
// update matches no row and ErrInvalidPaymentState is returned, so with
// concurrent callers at most one wins the transition.
func (s *Store) TransitionPaymentStatus(ctx context.Context, id int64, from, to string) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.GetContext(ctx, &payment, `
		UPDATE payments SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
		RETURNING *`,
		to, id, from)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, s.transitionConflict(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to transition payment %d: %w", id, err)
	}
	return &payment, nil
}

// CompletePayment resolves a PROCESSING payment to COMPLETED with the
// processor reference.
func (s *Store) CompletePayment(ctx context.Context, id int64, paymentIntentID string) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.GetContext(ctx, &payment, `
		UPDATE payments SET status = $1, stripe_payment_intent_id = $2, updated_at = NOW()
		WHERE id = $3 AND status = $4
		RETURNING *`,
		models.PaymentStatusCompleted, paymentIntentID, id, models.PaymentStatusProcessing)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, s.transitionConflict(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to complete payment %d: %w", id, err)
	}
	return &payment, nil
}

// FailPayment resolves a PROCESSING payment to FAILED with the failure cause.
func (s *Store) FailPayment(ctx context.Context, id int64, errorMessage string) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.GetContext(ctx, &payment, `
		UPDATE payments SET status = $1, error_message = $2, updated_at = NOW()
		WHERE id = $3 AND status = $4
		RETURNING *`,
		models.PaymentStatusFailed, errorMessage, id, models.PaymentStatusProcessing)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, s.transitionConflict(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fail payment %d: %w", id, err)
	}
	return &payment, nil
}

// transitionConflict distinguishes a missing payment from one that lost a
// conditional update. Lookup failures propagate as-is rather than
// masquerading as state conflicts.
func (s *Store) transitionConflict(ctx context.Context, id int64) error {
	_, err := s.GetPaymentByID(ctx, id)
	if errors.Is(err, models.ErrPaymentNotFound) {
		return models.ErrPaymentNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to resolve transition conflict for payment %d: %w", id, err)
	}
	return models.ErrInvalidPaymentState
}
