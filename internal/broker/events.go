package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"ecommerce-service/internal/models"
	"ecommerce-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

func orderKey(orderID int64) string {
	return fmt.Sprintf("order-%d", orderID)
}

// PublishOrderCreated publishes OrderCreated event
func (ep *EventPublisher) PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error {
	return ep.producer.PublishEvent(ctx, orderKey(event.OrderID), event)
}

// PublishOrderStatusChanged publishes an event for a committed status transition
func (ep *EventPublisher) PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error {
	return ep.producer.PublishEvent(ctx, orderKey(event.OrderID), event)
}

// PublishReviewCreated publishes ReviewCreated event. Reviews share the key of
// their order so they land after the order's own events.
func (ep *EventPublisher) PublishReviewCreated(ctx context.Context, event *models.ReviewCreatedEvent) error {
	return ep.producer.PublishEvent(ctx, orderKey(event.OrderID), event)
}

// NopPublisher drops every event; used when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) PublishOrderCreated(context.Context, *models.OrderCreatedEvent) error {
	return nil
}

func (NopPublisher) PublishOrderStatusChanged(context.Context, *models.OrderStatusChangedEvent) error {
	return nil
}

func (NopPublisher) PublishReviewCreated(context.Context, *models.ReviewCreatedEvent) error {
	return nil
}

// EventHandler handles incoming events
type EventHandler struct {
	onOrderCreated       func(context.Context, *models.OrderCreatedEvent) error
	onOrderStatusChanged func(context.Context, *models.OrderStatusChangedEvent) error
	onReviewCreated      func(context.Context, *models.ReviewCreatedEvent) error
	logger               *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnOrderCreated registers a handler for OrderCreated events
func (eh *EventHandler) OnOrderCreated(handler func(context.Context, *models.OrderCreatedEvent) error) {
	eh.onOrderCreated = handler
}

// OnOrderStatusChanged registers a handler for every status transition event
func (eh *EventHandler) OnOrderStatusChanged(handler func(context.Context, *models.OrderStatusChangedEvent) error) {
	eh.onOrderStatusChanged = handler
}

// OnReviewCreated registers a handler for ReviewCreated events
func (eh *EventHandler) OnReviewCreated(handler func(context.Context, *models.ReviewCreatedEvent) error) {
	eh.onReviewCreated = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	eh.logger.Debug("Handling event",
		zap.String("event_type", baseEvent.EventType),
		zap.String("event_id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeOrderCreated:
		if eh.onOrderCreated != nil {
			var event models.OrderCreatedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal OrderCreated event: %w", err)
			}
			return eh.onOrderCreated(ctx, &event)
		}

	case models.EventTypeOrderPaid, models.EventTypeOrderCancelled,
		models.EventTypeOrderShipped, models.EventTypeOrderCompleted:
		if eh.onOrderStatusChanged != nil {
			var event models.OrderStatusChangedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal %s event: %w", baseEvent.EventType, err)
			}
			return eh.onOrderStatusChanged(ctx, &event)
		}

	case models.EventTypeReviewCreated:
		if eh.onReviewCreated != nil {
			var event models.ReviewCreatedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal ReviewCreated event: %w", err)
			}
			return eh.onReviewCreated(ctx, &event)
		}

	default:
		eh.logger.Warn("Unhandled event type", zap.String("event_type", baseEvent.EventType))
	}

	return nil
}
