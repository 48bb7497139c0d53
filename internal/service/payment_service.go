package service

import (
	"context"
	"errors"
	"time"

	"payment-service/internal/models"
	"payment-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaymentStore is the persistence contract for payments. The conditional
// transition methods are the concurrency boundary: they must guarantee
// that for a given payment at most one caller wins each status change.
type PaymentStore interface {
	CreatePayment(ctx context.Context, payment *models.Payment) error
	GetPaymentByID(ctx context.Context, id int64) (*models.Payment, error)
	GetPaymentByOrderID(ctx context.Context, orderID string) (*models.Payment, error)
	TransitionPaymentStatus(ctx context.Context, id int64, from, to string) (*models.Payment, error)
	CompletePayment(ctx context.Context, id int64, paymentIntentID string) (*models.Payment, error)
	FailPayment(ctx context.Context, id int64, errorMessage string) (*models.Payment, error)
}

// Gateway charges the customer through the external payment processor.
type Gateway interface {
	Charge(ctx context.Context, amount decimal.Decimal, orderID string) (string, error)
}

// PaymentCache is an optional read cache for resolved payments.
type PaymentCache interface {
	SetPayment(ctx context.Context, payment *models.Payment) error
	GetPayment(ctx context.Context, orderID string) (*models.Payment, error)
}

// PaymentService owns the payment lifecycle. It is the only mutator of a
// payment's status: PENDING -> PROCESSING -> COMPLETED | FAILED.
type PaymentService struct {
	store   PaymentStore
	gateway Gateway
	cache   PaymentCache
	logger  *zap.Logger
}

// NewPaymentService creates a new payment service. cache may be nil.
func NewPaymentService(store PaymentStore, gateway Gateway, cache PaymentCache) *PaymentService {
	return &PaymentService{
		store:   store,
		gateway: gateway,
		cache:   cache,
		logger:  util.GetLogger(),
	}
}

// CreatePayment persists a new PENDING payment for an order. The amount is
// trusted as received from the order service and deliberately not
// validated here. Returns models.ErrDuplicatePayment when a payment for
// the order already exists.
func (ps *PaymentService) CreatePayment(ctx context.Context, orderID string, amount decimal.Decimal) (*models.Payment, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.CreatePayment")
	defer span.End()

	ps.logger.Info("Creating payment",
		zap.String("order_id", orderID),
		zap.String("amount", amount.String()))

	payment := &models.Payment{
		OrderID: orderID,
		Amount:  amount,
		Status:  models.PaymentStatusPending,
		Method:  models.PaymentMethodStripe,
	}

	if err := ps.store.CreatePayment(ctx, payment); err != nil {
		if errors.Is(err, models.ErrDuplicatePayment) {
			util.PaymentsDuplicateTotal.Inc()
			ps.logger.Warn("Payment already exists for order", zap.String("order_id", orderID))
		}
		return nil, err
	}

	util.PaymentsCreatedTotal.Inc()
	ps.logger.Info("Payment created",
		zap.Int64("payment_id", payment.ID),
		zap.String("order_id", orderID))

	return payment, nil
}

// ProcessPayment charges a PENDING payment and resolves it to COMPLETED or
// FAILED. The PENDING -> PROCESSING checkpoint is persisted before the
// charge so an in-flight payment is durably visible if the process dies
// mid-call, and the conditional transition ensures a payment is charged at
// most once: any concurrent or repeated invocation gets
// models.ErrInvalidPaymentState. A processor failure is a business
// outcome, captured as FAILED state rather than returned as an error.
func (ps *PaymentService) ProcessPayment(ctx context.Context, paymentID int64) (*models.Payment, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.ProcessPayment")
	defer span.End()

	util.PaymentAttemptsTotal.Inc()
	start := time.Now()
	defer func() {
		util.PaymentProcessingLatency.Observe(time.Since(start).Seconds())
	}()

	payment, err := ps.store.TransitionPaymentStatus(ctx, paymentID,
		models.PaymentStatusPending, models.PaymentStatusProcessing)
	if err != nil {
		if errors.Is(err, models.ErrInvalidPaymentState) {
			ps.logger.Warn("Payment is not in PENDING status", zap.Int64("payment_id", paymentID))
		}
		return nil, err
	}

	ps.logger.Info("Processing payment",
		zap.Int64("payment_id", payment.ID),
		zap.String("order_id", payment.OrderID),
		zap.String("amount", payment.Amount.String()))

	paymentIntentID, chargeErr := ps.gateway.Charge(ctx, payment.Amount, payment.OrderID)
	if chargeErr != nil {
		util.PaymentsFailedTotal.Inc()
		ps.logger.Warn("Payment failed",
			zap.Int64("payment_id", payment.ID),
			zap.String("order_id", payment.OrderID),
			zap.Error(chargeErr))

		payment, err = ps.store.FailPayment(ctx, payment.ID, truncateErrorMessage(chargeErr.Error()))
		if err != nil {
			return nil, err
		}
	} else {
		util.PaymentsCompletedTotal.Inc()
		ps.logger.Info("Payment completed",
			zap.Int64("payment_id", payment.ID),
			zap.String("order_id", payment.OrderID),
			zap.String("payment_intent_id", paymentIntentID))

		payment, err = ps.store.CompletePayment(ctx, payment.ID, paymentIntentID)
		if err != nil {
			return nil, err
		}
	}

	ps.cacheResolved(ctx, payment)
	return payment, nil
}

// GetPaymentByOrderID retrieves the payment for an order, serving resolved
// payments from the cache when possible.
func (ps *PaymentService) GetPaymentByOrderID(ctx context.Context, orderID string) (*models.Payment, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.GetPaymentByOrderID")
	defer span.End()

	if ps.cache != nil {
		if cached, err := ps.cache.GetPayment(ctx, orderID); err != nil {
			ps.logger.Warn("Payment cache lookup failed", zap.String("order_id", orderID), zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	payment, err := ps.store.GetPaymentByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	ps.cacheResolved(ctx, payment)
	return payment, nil
}

// cacheResolved caches terminal payments only; they are immutable, so
// staleness is not a concern. Best effort.
func (ps *PaymentService) cacheResolved(ctx context.Context, payment *models.Payment) {
	if ps.cache == nil || payment == nil || !models.IsTerminalStatus(payment.Status) {
		return
	}
	if err := ps.cache.SetPayment(ctx, payment); err != nil {
		ps.logger.Warn("Failed to cache payment",
			zap.String("order_id", payment.OrderID),
			zap.Error(err))
	}
}

func truncateErrorMessage(msg string) string {
	if len(msg) > models.MaxErrorMessageLength {
		return msg[:models.MaxErrorMessageLength]
	}
	return msg
}
