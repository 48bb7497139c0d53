package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"payment-service/internal/models"
	"payment-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher publishes payment domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishPaymentCompleted publishes the terminal outcome of a payment.
// Fire-and-forget: the broker's delivery guarantees are all there is.
func (ep *EventPublisher) PublishPaymentCompleted(ctx context.Context, event *models.PaymentCompletedEvent) error {
	util.PaymentEventsPublishedTotal.WithLabelValues(event.Data.Status).Inc()
	return ep.producer.PublishEvent(ctx, event.Data.OrderID, event)
}

// envelope sniffs the routing key of an inbound message
type envelope struct {
	Event string `json:"event"`
}

// EventDispatcher routes inbound messages by their envelope event name
type EventDispatcher struct {
	onOrderCreated func(context.Context, *models.OrderCreatedEvent) error
	logger         *zap.Logger
}

// NewEventDispatcher creates a new event dispatcher
func NewEventDispatcher() *EventDispatcher {
	return &EventDispatcher{logger: util.GetLogger()}
}

// OnOrderCreated registers a handler for order.created events
func (ed *EventDispatcher) OnOrderCreated(handler func(context.Context, *models.OrderCreatedEvent) error) {
	ed.onOrderCreated = handler
}

// HandleMessage decodes a message envelope and routes it. Unknown event
// names are logged and dropped so the consumer keeps its offset moving.
func (ed *EventDispatcher) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var env envelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		return fmt.Errorf("failed to unmarshal event envelope: %w", err)
	}

	util.OrderEventsConsumedTotal.WithLabelValues(env.Event).Inc()

	switch env.Event {
	case models.EventOrderCreated:
		if ed.onOrderCreated != nil {
			var event models.OrderCreatedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal order.created event: %w", err)
			}
			return ed.onOrderCreated(ctx, &event)
		}

	default:
		ed.logger.Debug("Ignoring event", zap.String("event", env.Event))
	}

	return nil
}
