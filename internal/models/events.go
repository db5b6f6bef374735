package models

import (
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	EventTypeOrderCreated   = "ORDER_CREATED"
	EventTypeOrderPaid      = "ORDER_PAID"
	EventTypeOrderCancelled = "ORDER_CANCELLED"
	EventTypeOrderShipped   = "ORDER_SHIPPED"
	EventTypeOrderCompleted = "ORDER_COMPLETED"
	EventTypeReviewCreated  = "REVIEW_CREATED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// NewBaseEvent stamps a fresh event id and the current time.
func NewBaseEvent(eventType string) BaseEvent {
	return BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
	}
}

// OrderCreatedEvent published when an order has been committed
type OrderCreatedEvent struct {
	BaseEvent
	OrderID       int64           `json:"order_id"`
	OrderNumber   string          `json:"order_number"`
	UserID        int64           `json:"user_id"`
	TotalAmount   int64           `json:"total_amount"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Items         []OrderItemData `json:"items"`
}

// OrderStatusChangedEvent published for every committed status transition
type OrderStatusChangedEvent struct {
	BaseEvent
	OrderID          int64         `json:"order_id"`
	OrderNumber      string        `json:"order_number"`
	UserID           int64         `json:"user_id"`
	FromStatus       OrderStatus   `json:"from_status"`
	ToStatus         OrderStatus   `json:"to_status"`
	PaymentStatus    PaymentStatus `json:"payment_status"`
	ShippingProvider string        `json:"shipping_provider,omitempty"`
	TrackingNumber   string        `json:"tracking_number,omitempty"`
	Actor            string        `json:"actor"`
}

// ReviewCreatedEvent published when a review passes the gate
type ReviewCreatedEvent struct {
	BaseEvent
	ReviewID  int64 `json:"review_id"`
	UserID    int64 `json:"user_id"`
	ProductID int64 `json:"product_id"`
	OrderID   int64 `json:"order_id"`
	Rating    int   `json:"rating"`
}

// OrderItemData represents item data in events
type OrderItemData struct {
	ProductID    int64 `json:"product_id"`
	Quantity     int   `json:"quantity"`
	PriceAtOrder int64 `json:"price_at_order"`
}

// StatusEventType maps a target status to the event type announcing it.
func StatusEventType(to OrderStatus) string {
	switch to {
	case OrderStatusConfirmed:
		return EventTypeOrderPaid
	case OrderStatusCancelled:
		return EventTypeOrderCancelled
	case OrderStatusShipped:
		return EventTypeOrderShipped
	case OrderStatusCompleted:
		return EventTypeOrderCompleted
	default:
		return "ORDER_" + string(to)
	}
}
