package worker

import (
	"context"
	"sync"

	"ecommerce-service/internal/broker"
	"ecommerce-service/internal/models"
	"ecommerce-service/internal/util"

	"go.uber.org/zap"
)

// Anomaly kinds reported by the auditor
const (
	AnomalyIllegalTransition = "illegal_transition"
	AnomalyUnknownOrder      = "unknown_order"
	AnomalyStatusGap         = "status_gap"
	AnomalyUnknownProduct    = "unknown_product"
	AnomalyReviewNotComplete = "review_not_completed"
)

// MessageSource delivers broker messages to a handler until ctx is done
type MessageSource interface {
	StartConsuming(ctx context.Context, handler broker.MessageHandler) error
	Close() error
}

// Auditor replays the domain event stream and checks that every order walks
// the lifecycle graph one committed transition at a time.
//
// State lives in memory only. Cancelled orders are forgotten once their last
// transition is checked, while completed orders stay so later reviews can be
// matched, so the maps grow with the number of completed orders. After a
// restart the consumer group resumes from its committed offsets, and events
// for orders created before the restart are reported as unknown_order.
type Auditor struct {
	mu     sync.Mutex
	orders map[int64]models.OrderStatus
	items  map[int64]map[int64]bool
	logger *zap.Logger
}

// NewAuditor creates an empty auditor
func NewAuditor() *Auditor {
	return &Auditor{
		orders: make(map[int64]models.OrderStatus),
		items:  make(map[int64]map[int64]bool),
		logger: util.GetLogger(),
	}
}

// Status returns the last status the auditor saw for an order.
func (a *Auditor) Status(orderID int64) (models.OrderStatus, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.orders[orderID]
	return s, ok
}

// HandleOrderCreated records a new PENDING order
func (a *Auditor) HandleOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error {
	util.EventsConsumedTotal.WithLabelValues(event.EventType).Inc()

	a.mu.Lock()
	a.orders[event.OrderID] = models.OrderStatusPending
	products := make(map[int64]bool, len(event.Items))
	for _, item := range event.Items {
		products[item.ProductID] = true
	}
	a.items[event.OrderID] = products
	a.mu.Unlock()

	a.logger.Info("Order created",
		zap.Int64("order_id", event.OrderID),
		zap.String("order_number", event.OrderNumber),
		zap.Int64("user_id", event.UserID),
		zap.Int64("total_amount", event.TotalAmount),
		zap.Int("items", len(event.Items)))
	return nil
}

// HandleStatusChanged checks a transition against the last status seen and the
// lifecycle graph. Anomalies are logged and counted, never retried.
func (a *Auditor) HandleStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error {
	util.EventsConsumedTotal.WithLabelValues(event.EventType).Inc()

	fields := []zap.Field{
		zap.Int64("order_id", event.OrderID),
		zap.String("from", event.FromStatus.String()),
		zap.String("to", event.ToStatus.String()),
		zap.String("actor", event.Actor),
	}

	a.mu.Lock()
	last, known := a.orders[event.OrderID]
	if event.ToStatus == models.OrderStatusCancelled {
		delete(a.orders, event.OrderID)
		delete(a.items, event.OrderID)
	} else {
		a.orders[event.OrderID] = event.ToStatus
	}
	a.mu.Unlock()

	switch {
	case !models.CanTransition(event.FromStatus, event.ToStatus):
		a.anomaly(AnomalyIllegalTransition, fields)
	case !known:
		a.anomaly(AnomalyUnknownOrder, fields)
	case last != event.FromStatus:
		a.anomaly(AnomalyStatusGap, append(fields, zap.String("last_seen", last.String())))
	default:
		a.logger.Info("Order status changed", fields...)
	}
	return nil
}

// HandleReviewCreated checks the reviewed product was part of a known order
func (a *Auditor) HandleReviewCreated(ctx context.Context, event *models.ReviewCreatedEvent) error {
	util.EventsConsumedTotal.WithLabelValues(event.EventType).Inc()

	fields := []zap.Field{
		zap.Int64("review_id", event.ReviewID),
		zap.Int64("order_id", event.OrderID),
		zap.Int64("product_id", event.ProductID),
		zap.Int("rating", event.Rating),
	}

	a.mu.Lock()
	status, known := a.orders[event.OrderID]
	purchased := a.items[event.OrderID][event.ProductID]
	a.mu.Unlock()

	switch {
	case !known:
		a.anomaly(AnomalyUnknownOrder, fields)
	case status != models.OrderStatusCompleted:
		a.anomaly(AnomalyReviewNotComplete, append(fields, zap.String("order_status", status.String())))
	case !purchased:
		a.anomaly(AnomalyUnknownProduct, fields)
	default:
		a.logger.Info("Review created", fields...)
	}
	return nil
}

func (a *Auditor) anomaly(kind string, fields []zap.Field) {
	util.EventAnomaliesTotal.WithLabelValues(kind).Inc()
	a.logger.Warn("Event stream anomaly", append(fields, zap.String("kind", kind))...)
}

// AuditWorker consumes domain events and feeds them to an Auditor
type AuditWorker struct {
	source       MessageSource
	eventHandler *broker.EventHandler
	auditor      *Auditor
	logger       *zap.Logger
}

// NewAuditWorker creates a new audit worker
func NewAuditWorker(source MessageSource, auditor *Auditor) *AuditWorker {
	eventHandler := broker.NewEventHandler()

	eventHandler.OnOrderCreated(auditor.HandleOrderCreated)
	eventHandler.OnOrderStatusChanged(auditor.HandleStatusChanged)
	eventHandler.OnReviewCreated(auditor.HandleReviewCreated)

	return &AuditWorker{
		source:       source,
		eventHandler: eventHandler,
		auditor:      auditor,
		logger:       util.GetLogger(),
	}
}

// Start starts the worker
func (w *AuditWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting audit worker...")
	return w.source.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *AuditWorker) Stop() error {
	w.logger.Info("Stopping audit worker...")
	return w.source.Close()
}
