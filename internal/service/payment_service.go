package service

import (
	"context"
	"strings"
	"time"

	"ecommerce-service/internal/apperr"
	"ecommerce-service/internal/models"
	"ecommerce-service/internal/util"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// PaymentService simulates a payment processor: paying always succeeds for a
// PENDING order and never calls out to a gateway.
type PaymentService struct {
	tx     UnitOfWork
	orders OrderRepository
	events EventPublisher
	logger *zap.Logger
}

// NewPaymentService creates a new payment service
func NewPaymentService(tx UnitOfWork, orders OrderRepository, events EventPublisher) *PaymentService {
	return &PaymentService{
		tx:     tx,
		orders: orders,
		events: events,
		logger: util.GetLogger(),
	}
}

// PayOrder marks the payment of a PENDING order PAID and confirms the order.
func (ps *PaymentService) PayOrder(ctx context.Context, userID, orderID int64) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.PayOrder", attribute.Int64("order.id", orderID))
	defer span.End()

	util.PaymentAttemptsTotal.Inc()
	start := time.Now()
	defer func() {
		util.PaymentProcessingLatency.Observe(time.Since(start).Seconds())
	}()

	var (
		order *models.Order
		from  models.OrderStatus
	)
	err := ps.tx.RunInTx(ctx, func(ctx context.Context) error {
		o, err := ps.orders.GetOrderForUser(ctx, orderID, userID)
		if err != nil {
			return notFoundOr(err, "order not found", "failed to get order")
		}
		if err := statusMismatch(o, models.OrderStatusPending, models.OrderStatusConfirmed); err != nil {
			return err
		}

		from = o.Status
		if err := applyTransition(ctx, ps.orders, o, models.OrderStatusConfirmed); err != nil {
			return err
		}

		reference := paymentReference()
		if err := ps.orders.UpdatePaymentStatus(ctx, o.ID, models.PaymentStatusPaid, reference); err != nil {
			return notFoundOr(err, "payment not found", "failed to update payment")
		}
		if o.Payment != nil {
			o.Payment.Status = models.PaymentStatusPaid
			o.Payment.Reference = reference
		}

		order = o
		return nil
	})
	if err != nil {
		util.RecordError(span, err)
		reason := "error"
		if apperr.KindOf(err) == apperr.KindConflict {
			reason = "not_pending"
		} else if apperr.KindOf(err) == apperr.KindNotFound {
			reason = "not_found"
		}
		util.PaymentFailedTotal.WithLabelValues(reason).Inc()
		ps.logger.Warn("Payment rejected",
			zap.Int64("user_id", userID),
			zap.Int64("order_id", orderID),
			zap.Error(err))
		return nil, err
	}

	util.OrdersPaidTotal.Inc()
	ps.logger.Info("Payment processed successfully",
		zap.Int64("order_id", order.ID),
		zap.Int64("amount", order.TotalPrice()))

	publishStatusChange(ctx, ps.events, ps.logger, order, from, ActorCustomer)
	return order, nil
}

// paymentReference is a dummy processor reference such as PAY-1A2B3C4D.
func paymentReference() string {
	return "PAY-" + strings.ToUpper(uuid.New().String()[:8])
}
