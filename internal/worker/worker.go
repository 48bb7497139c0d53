package worker

import (
	"context"
	"errors"
	"time"

	"payment-service/internal/broker"
	"payment-service/internal/models"
	"payment-service/internal/service"
	"payment-service/internal/util"

	"go.uber.org/zap"
)

// CompletedEventPublisher publishes a payment's terminal outcome.
type CompletedEventPublisher interface {
	PublishPaymentCompleted(ctx context.Context, event *models.PaymentCompletedEvent) error
}

// PaymentWorker consumes order.created events and drives the payment
// lifecycle for each one.
type PaymentWorker struct {
	consumer       *broker.Consumer
	dispatcher     *broker.EventDispatcher
	paymentService *service.PaymentService
	publisher      CompletedEventPublisher
	chargeTimeout  time.Duration
	logger         *zap.Logger
}

// NewPaymentWorker creates a new payment worker. chargeTimeout bounds the
// handling of a single delivery, including the external charge; zero means
// no bound.
func NewPaymentWorker(
	consumer *broker.Consumer,
	paymentService *service.PaymentService,
	publisher CompletedEventPublisher,
	chargeTimeout time.Duration,
) *PaymentWorker {
	w := &PaymentWorker{
		consumer:       consumer,
		dispatcher:     broker.NewEventDispatcher(),
		paymentService: paymentService,
		publisher:      publisher,
		chargeTimeout:  chargeTimeout,
		logger:         util.GetLogger(),
	}

	w.dispatcher.OnOrderCreated(w.handleOrderCreated)
	return w
}

// Start starts the worker
func (w *PaymentWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting payment worker")
	return w.consumer.StartConsuming(ctx, w.dispatcher.HandleMessage)
}

// Stop stops the worker
func (w *PaymentWorker) Stop() error {
	w.logger.Info("Stopping payment worker")
	return w.consumer.Close()
}

// handleOrderCreated creates and processes a payment for the order, then
// publishes the outcome whether the charge completed or failed. It never
// returns an error: every failure in the sequence is logged and swallowed,
// so the broker sees the delivery as handled and does not redeliver. A
// redelivered order.created event trips the one-payment-per-order
// constraint and ends here as a logged duplicate, never a second charge.
func (w *PaymentWorker) handleOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error {
	orderID := event.Data.ID

	w.logger.Info("Received order.created event",
		zap.String("order_id", orderID),
		zap.String("order_number", event.Data.OrderNumber),
		zap.String("total_amount", event.Data.TotalAmount.String()))

	if w.chargeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.chargeTimeout)
		defer cancel()
	}

	payment, err := w.paymentService.CreatePayment(ctx, orderID, event.Data.TotalAmount)
	if err != nil {
		if errors.Is(err, models.ErrDuplicatePayment) {
			util.ConsumerErrorsTotal.WithLabelValues("duplicate_payment").Inc()
			w.logger.Warn("Skipping redelivered order.created event",
				zap.String("order_id", orderID))
			return nil
		}
		util.ConsumerErrorsTotal.WithLabelValues("create_failed").Inc()
		w.logger.Error("Failed to create payment",
			zap.String("order_id", orderID),
			zap.Error(err))
		return nil
	}

	payment, err = w.paymentService.ProcessPayment(ctx, payment.ID)
	if err != nil {
		util.ConsumerErrorsTotal.WithLabelValues("process_failed").Inc()
		w.logger.Error("Failed to process payment",
			zap.String("order_id", orderID),
			zap.Error(err))
		return nil
	}

	w.logger.Info("Payment processed",
		zap.Int64("payment_id", payment.ID),
		zap.String("order_id", orderID),
		zap.String("status", payment.Status))

	outcome := models.NewPaymentCompletedEvent(payment)
	if err := w.publisher.PublishPaymentCompleted(ctx, outcome); err != nil {
		util.ConsumerErrorsTotal.WithLabelValues("publish_failed").Inc()
		w.logger.Error("Failed to publish payment.completed event",
			zap.String("order_id", orderID),
			zap.Error(err))
	}

	return nil
}
