package service

import (
	"context"
	"errors"
	"fmt"

	"ecommerce-service/internal/apperr"
	"ecommerce-service/internal/models"
	"ecommerce-service/internal/store"
	"ecommerce-service/internal/util"

	"go.uber.org/zap"
)

// Actors recorded on status change events
const (
	ActorCustomer = "customer"
	ActorAdmin    = "admin"
)

// applyTransition writes order's next status after checking the transition
// table. The write is compare-and-set against the status order was read with,
// so a concurrent writer makes it fail as an invalid transition.
func applyTransition(ctx context.Context, orders OrderRepository, order *models.Order, to models.OrderStatus) error {
	if !models.CanTransition(order.Status, to) {
		return apperr.InvalidTransition(order.Status.String(), to.String())
	}

	err := orders.UpdateOrderStatus(ctx, order.ID, order.Status, to)
	if errors.Is(err, store.ErrStaleState) {
		return apperr.InvalidTransition(order.Status.String(), to.String())
	}
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	order.Status = to
	return nil
}

// publishStatusChange announces a committed transition. Failures are logged only.
func publishStatusChange(ctx context.Context, events EventPublisher, logger *zap.Logger, order *models.Order, from models.OrderStatus, actor string) {
	util.OrderStatusTransitionsTotal.WithLabelValues(from.String(), order.Status.String()).Inc()

	event := &models.OrderStatusChangedEvent{
		BaseEvent:        models.NewBaseEvent(models.StatusEventType(order.Status)),
		OrderID:          order.ID,
		OrderNumber:      order.OrderNumber,
		UserID:           order.UserID,
		FromStatus:       from,
		ToStatus:         order.Status,
		ShippingProvider: order.ShippingProvider,
		TrackingNumber:   order.TrackingNumber,
		Actor:            actor,
	}
	if order.Payment != nil {
		event.PaymentStatus = order.Payment.Status
	}

	if err := events.PublishOrderStatusChanged(ctx, event); err != nil {
		util.EventsPublishFailedTotal.WithLabelValues(event.EventType).Inc()
		logger.Error("Failed to publish order status event",
			zap.Int64("order_id", order.ID),
			zap.String("event_type", event.EventType),
			zap.Error(err))
	}
}

// restoreStock returns every item's quantity to stock.
func restoreStock(ctx context.Context, ledger *StockLedger, order *models.Order) error {
	for _, item := range order.Items {
		if err := ledger.Release(ctx, item.ProductID, item.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// statusMismatch reports an operation that requires the order to be in status want.
func statusMismatch(order *models.Order, want, to models.OrderStatus) error {
	if order.Status != want {
		return apperr.InvalidTransition(order.Status.String(), to.String())
	}
	return nil
}

// notFoundOr translates store.ErrNotFound into a domain NotFound and wraps anything else.
func notFoundOr(err error, notFound, wrap string) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound(notFound)
	}
	return fmt.Errorf("%s: %w", wrap, err)
}
