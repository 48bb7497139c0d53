package models

import "errors"

// Domain errors surfaced by the store and the payment service.
var (
	// ErrDuplicatePayment means a payment already exists for the order.
	ErrDuplicatePayment = errors.New("payment already exists for this order")

	// ErrPaymentNotFound means no payment matches the given id or order id.
	ErrPaymentNotFound = errors.New("payment not found")

	// ErrInvalidPaymentState means the requested transition is not allowed
	// from the payment's current status.
	ErrInvalidPaymentState = errors.New("payment is not in a valid state for this operation")
)
