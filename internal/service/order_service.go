package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"ecommerce-service/internal/apperr"
	"ecommerce-service/internal/models"
	"ecommerce-service/internal/store"
	"ecommerce-service/internal/util"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// OrderServiceDeps lists the collaborators of an OrderService. Idempotency may be nil.
type OrderServiceDeps struct {
	Tx              UnitOfWork
	Carts           CartRepository
	Addresses       AddressRepository
	Orders          OrderRepository
	Ledger          *StockLedger
	Events          EventPublisher
	Idempotency     IdempotencyStore
	IdempotencyTTL  time.Duration
	DefaultPageSize int
	MaxPageSize     int
	Clock           func() time.Time
}

// OrderService handles order business logic
type OrderService struct {
	tx             UnitOfWork
	carts          CartRepository
	addresses      AddressRepository
	orders         OrderRepository
	ledger         *StockLedger
	events         EventPublisher
	idempotency    IdempotencyStore
	idempotencyTTL time.Duration
	defaultSize    int
	maxSize        int
	numbers        *orderNumberClock
	logger         *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(deps OrderServiceDeps) *OrderService {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.IdempotencyTTL <= 0 {
		deps.IdempotencyTTL = 24 * time.Hour
	}
	if deps.DefaultPageSize <= 0 {
		deps.DefaultPageSize = 10
	}
	if deps.MaxPageSize < deps.DefaultPageSize {
		deps.MaxPageSize = deps.DefaultPageSize
	}
	return &OrderService{
		tx:             deps.Tx,
		carts:          deps.Carts,
		addresses:      deps.Addresses,
		orders:         deps.Orders,
		ledger:         deps.Ledger,
		events:         deps.Events,
		idempotency:    deps.Idempotency,
		idempotencyTTL: deps.IdempotencyTTL,
		defaultSize:    deps.DefaultPageSize,
		maxSize:        deps.MaxPageSize,
		numbers:        &orderNumberClock{now: deps.Clock},
		logger:         util.GetLogger(),
	}
}

// CreateOrderRequest represents a request to create an order from cart items
type CreateOrderRequest struct {
	UserID         int64   `json:"-"`
	AddressID      int64   `json:"address_id" binding:"required"`
	CartItemIDs    []int64 `json:"cart_item_ids"`
	PaymentMethod  string  `json:"payment_method"`
	IdempotencyKey string  `json:"-"`
}

// ShipOrderRequest carries the carrier metadata attached on shipping
type ShipOrderRequest struct {
	ShippingProvider string `json:"shipping_provider" binding:"required"`
	TrackingNumber   string `json:"tracking_number" binding:"required"`
}

// OrderQuery is the raw listing filter as received from a client
type OrderQuery struct {
	UserID   int64  `form:"userId"`
	Status   string `form:"status"`
	FromDate string `form:"fromDate"`
	ToDate   string `form:"toDate"`
	Page     int    `form:"page"`
	Size     int    `form:"size"`
	Sort     string `form:"sort"`
}

// orderNumberClock hands out strictly increasing millisecond stamps, so two
// orders numbered by this process never share a number.
type orderNumberClock struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func (c *orderNumberClock) next(userID int64) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	ms := c.now().UnixMilli()
	if ms <= c.last {
		ms = c.last + 1
	}
	c.last = ms
	return fmt.Sprintf("ORD-%d-%d", ms, userID)
}

// CreateOrder turns selected cart items into a PENDING order with a PENDING
// payment, deducting stock for every item. Either everything commits or nothing does.
func (s *OrderService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateOrder", attribute.Int64("user.id", req.UserID))
	defer span.End()

	if len(req.CartItemIDs) == 0 {
		util.OrdersFailedTotal.WithLabelValues("empty_selection").Inc()
		return nil, apperr.BadRequest("cart_item_ids must not be empty")
	}
	seen := make(map[int64]struct{}, len(req.CartItemIDs))
	for _, id := range req.CartItemIDs {
		if _, dup := seen[id]; dup {
			util.OrdersFailedTotal.WithLabelValues("duplicate_selection").Inc()
			return nil, apperr.BadRequest(fmt.Sprintf("cart item %d selected more than once", id))
		}
		seen[id] = struct{}{}
	}

	scope, replay, err := s.claimIdempotency(ctx, req)
	if err != nil || replay != nil {
		return replay, err
	}

	order, err := s.createOrderTx(ctx, req)
	if err != nil {
		util.RecordError(span, err)
		s.releaseIdempotency(ctx, scope)
		util.OrdersFailedTotal.WithLabelValues(failureReason(err)).Inc()
		s.logger.Warn("Order creation rejected",
			zap.Int64("user_id", req.UserID),
			zap.Error(err))
		return nil, err
	}

	s.completeIdempotency(ctx, scope, order.ID)

	util.OrdersCreatedTotal.Inc()
	s.logger.Info("Order created",
		zap.Int64("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.Int64("user_id", order.UserID),
		zap.Int64("total", order.TotalPrice()))

	s.publishCreated(ctx, order)
	return order, nil
}

func (s *OrderService) createOrderTx(ctx context.Context, req *CreateOrderRequest) (*models.Order, error) {
	var order *models.Order
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		cart, err := s.carts.GetCartByUserID(ctx, req.UserID)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("cart not found")
		}
		if err != nil {
			return fmt.Errorf("failed to get cart: %w", err)
		}
		if len(cart.Items) == 0 {
			return apperr.Conflict(apperr.CodeCartEmpty, "cart is empty")
		}

		address, err := s.addresses.GetAddressForUser(ctx, req.AddressID, req.UserID)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("address not found")
		}
		if err != nil {
			return fmt.Errorf("failed to get address: %w", err)
		}

		selected := make([]models.CartItem, 0, len(req.CartItemIDs))
		for _, id := range req.CartItemIDs {
			item, ok := cart.FindItem(id)
			if !ok {
				return apperr.NotFound(fmt.Sprintf("cart item %d not found", id))
			}
			selected = append(selected, *item)
		}

		// Rows are locked in product id order so concurrent checkouts cannot deadlock.
		byProduct := append([]models.CartItem(nil), selected...)
		sort.Slice(byProduct, func(i, j int) bool { return byProduct[i].ProductID < byProduct[j].ProductID })
		reserved := make(map[int64]*models.Product, len(byProduct))
		for _, item := range byProduct {
			product, err := s.ledger.Reserve(ctx, item.ProductID, item.Quantity)
			if err != nil {
				return err
			}
			reserved[item.ProductID] = product
		}

		method, err := models.ParsePaymentMethod(req.PaymentMethod)
		if err != nil {
			return apperr.BadRequest(err.Error())
		}

		o := &models.Order{
			UserID:      req.UserID,
			OrderNumber: s.numbers.next(req.UserID),
			Status:      models.OrderStatusPending,
			AddressID:   address.ID,
			Items:       make([]models.OrderItem, 0, len(selected)),
		}
		for _, item := range selected {
			product := reserved[item.ProductID]
			o.Items = append(o.Items, models.OrderItem{
				ProductID:    product.ID,
				ProductName:  product.Name,
				Quantity:     item.Quantity,
				PriceAtOrder: product.PriceInRupiah,
			})
		}
		o.Payment = &models.Payment{
			Amount: o.TotalPrice(),
			Status: models.PaymentStatusPending,
			Method: method,
		}

		err = s.orders.CreateOrder(ctx, o)
		if errors.Is(err, store.ErrDuplicate) {
			return apperr.Conflict(apperr.CodeOrderNumberTaken, fmt.Sprintf("order number %s already exists", o.OrderNumber))
		}
		if err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// claimIdempotency returns the original order when req replays a completed key.
func (s *OrderService) claimIdempotency(ctx context.Context, req *CreateOrderRequest) (string, *models.Order, error) {
	if s.idempotency == nil || req.IdempotencyKey == "" {
		return "", nil, nil
	}
	scope := fmt.Sprintf("order:%d:%s", req.UserID, req.IdempotencyKey)

	orderID, found, err := s.idempotency.Lookup(ctx, scope)
	if err != nil {
		s.logger.Warn("Idempotency lookup failed, continuing without it",
			zap.String("idempotency_key", req.IdempotencyKey),
			zap.Error(err))
		return "", nil, nil
	}
	if found {
		s.logger.Info("Duplicate order request detected",
			zap.String("idempotency_key", req.IdempotencyKey),
			zap.Int64("order_id", orderID))
		order, err := s.GetOrder(ctx, req.UserID, orderID)
		return "", order, err
	}

	claimed, err := s.idempotency.Claim(ctx, scope, s.idempotencyTTL)
	if err != nil {
		s.logger.Warn("Idempotency claim failed, continuing without it",
			zap.String("idempotency_key", req.IdempotencyKey),
			zap.Error(err))
		return "", nil, nil
	}
	if !claimed {
		return "", nil, apperr.Conflict(apperr.CodeRequestInFlight, "a request with this idempotency key is already in progress")
	}
	return scope, nil, nil
}

func (s *OrderService) completeIdempotency(ctx context.Context, scope string, orderID int64) {
	if scope == "" {
		return
	}
	if err := s.idempotency.Complete(ctx, scope, orderID, s.idempotencyTTL); err != nil {
		s.logger.Error("Failed to record idempotency key", zap.String("scope", scope), zap.Error(err))
	}
}

func (s *OrderService) releaseIdempotency(ctx context.Context, scope string) {
	if scope == "" {
		return
	}
	if err := s.idempotency.Release(ctx, scope); err != nil {
		s.logger.Error("Failed to release idempotency key", zap.String("scope", scope), zap.Error(err))
	}
}

func (s *OrderService) publishCreated(ctx context.Context, order *models.Order) {
	items := make([]models.OrderItemData, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, models.OrderItemData{
			ProductID:    item.ProductID,
			Quantity:     item.Quantity,
			PriceAtOrder: item.PriceAtOrder,
		})
	}

	event := &models.OrderCreatedEvent{
		BaseEvent:     models.NewBaseEvent(models.EventTypeOrderCreated),
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		UserID:        order.UserID,
		TotalAmount:   order.TotalPrice(),
		PaymentMethod: order.Payment.Method,
		Items:         items,
	}

	if err := s.events.PublishOrderCreated(ctx, event); err != nil {
		util.EventsPublishFailedTotal.WithLabelValues(event.EventType).Inc()
		s.logger.Error("Failed to publish OrderCreated event", zap.Int64("order_id", order.ID), zap.Error(err))
	}
}

// CancelOrder cancels a PENDING order owned by userID, restoring its stock and
// failing its payment.
func (s *OrderService) CancelOrder(ctx context.Context, userID, orderID int64) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CancelOrder")
	defer span.End()

	var (
		order *models.Order
		from  models.OrderStatus
	)
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		o, err := s.loadOwned(ctx, userID, orderID)
		if err != nil {
			return err
		}
		if err := statusMismatch(o, models.OrderStatusPending, models.OrderStatusCancelled); err != nil {
			return err
		}

		from = o.Status
		if err := applyTransition(ctx, s.orders, o, models.OrderStatusCancelled); err != nil {
			return err
		}
		if err := restoreStock(ctx, s.ledger, o); err != nil {
			return err
		}
		if err := s.failPayment(ctx, o); err != nil {
			return err
		}

		order = o
		return nil
	})
	if err != nil {
		s.logger.Warn("Order cancellation rejected",
			zap.Int64("user_id", userID),
			zap.Int64("order_id", orderID),
			zap.Error(err))
		return nil, err
	}

	util.OrdersCancelledTotal.WithLabelValues(ActorCustomer).Inc()
	s.logger.Info("Order cancelled", zap.Int64("order_id", order.ID), zap.Int64("user_id", userID))
	publishStatusChange(ctx, s.events, s.logger, order, from, ActorCustomer)
	return order, nil
}

// failPayment marks a still-PENDING payment FAILED. Paid payments are left alone.
func (s *OrderService) failPayment(ctx context.Context, order *models.Order) error {
	if order.Payment == nil || order.Payment.Status != models.PaymentStatusPending {
		return nil
	}
	if err := s.orders.UpdatePaymentStatus(ctx, order.ID, models.PaymentStatusFailed, ""); err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}
	order.Payment.Status = models.PaymentStatusFailed
	return nil
}

// ShipOrder moves an order to SHIPPED and attaches carrier metadata.
func (s *OrderService) ShipOrder(ctx context.Context, orderID int64, req *ShipOrderRequest) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.ShipOrder")
	defer span.End()

	if req.ShippingProvider == "" || req.TrackingNumber == "" {
		return nil, apperr.BadRequest("shipping_provider and tracking_number are required")
	}

	return s.adminTransition(ctx, orderID, models.OrderStatusShipped, func(ctx context.Context, order *models.Order) error {
		if err := s.orders.UpdateShipping(ctx, order.ID, req.ShippingProvider, req.TrackingNumber); err != nil {
			return fmt.Errorf("failed to update shipping: %w", err)
		}
		order.ShippingProvider = req.ShippingProvider
		order.TrackingNumber = req.TrackingNumber
		return nil
	})
}

// CompleteOrder moves a shipped order to COMPLETED.
func (s *OrderService) CompleteOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CompleteOrder")
	defer span.End()

	return s.adminTransition(ctx, orderID, models.OrderStatusCompleted, nil)
}

// AdminCancelOrder cancels any non-terminal order, restoring its stock.
func (s *OrderService) AdminCancelOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.AdminCancelOrder")
	defer span.End()

	order, err := s.adminTransition(ctx, orderID, models.OrderStatusCancelled, func(ctx context.Context, order *models.Order) error {
		if err := restoreStock(ctx, s.ledger, order); err != nil {
			return err
		}
		return s.failPayment(ctx, order)
	})
	if err != nil {
		return nil, err
	}
	util.OrdersCancelledTotal.WithLabelValues(ActorAdmin).Inc()
	return order, nil
}

// adminTransition loads an order without an ownership check, applies the
// transition to next and runs extra in the same transaction.
func (s *OrderService) adminTransition(
	ctx context.Context,
	orderID int64,
	next models.OrderStatus,
	extra func(ctx context.Context, order *models.Order) error,
) (*models.Order, error) {
	var (
		order *models.Order
		from  models.OrderStatus
	)
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetOrder(ctx, orderID)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("order not found")
		}
		if err != nil {
			return fmt.Errorf("failed to get order: %w", err)
		}

		from = o.Status
		if err := applyTransition(ctx, s.orders, o, next); err != nil {
			return err
		}
		if extra != nil {
			if err := extra(ctx, o); err != nil {
				return err
			}
		}

		order = o
		return nil
	})
	if err != nil {
		s.logger.Warn("Order transition rejected",
			zap.Int64("order_id", orderID),
			zap.String("to", next.String()),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Order status changed",
		zap.Int64("order_id", order.ID),
		zap.String("from", from.String()),
		zap.String("to", order.Status.String()))
	publishStatusChange(ctx, s.events, s.logger, order, from, ActorAdmin)
	return order, nil
}

// GetOrder retrieves an order owned by userID
func (s *OrderService) GetOrder(ctx context.Context, userID, orderID int64) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.GetOrder")
	defer span.End()

	return s.loadOwned(ctx, userID, orderID)
}

// AdminGetOrder retrieves any order by ID
func (s *OrderService) AdminGetOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.AdminGetOrder")
	defer span.End()

	order, err := s.orders.GetOrder(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("order not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return order, nil
}

func (s *OrderService) loadOwned(ctx context.Context, userID, orderID int64) (*models.Order, error) {
	order, err := s.orders.GetOrderForUser(ctx, orderID, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("order not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return order, nil
}

// ListUserOrders lists the orders of one user.
func (s *OrderService) ListUserOrders(ctx context.Context, userID int64, query OrderQuery) (models.Page[models.Order], error) {
	query.UserID = userID
	return s.SearchOrders(ctx, query)
}

// SearchOrders lists orders across users; query.UserID narrows to one user.
func (s *OrderService) SearchOrders(ctx context.Context, query OrderQuery) (models.Page[models.Order], error) {
	ctx, span := util.StartSpan(ctx, "OrderService.SearchOrders")
	defer span.End()

	filter, err := s.buildFilter(query)
	if err != nil {
		return models.Page[models.Order]{}, err
	}

	orders, total, err := s.orders.ListOrders(ctx, filter)
	if err != nil {
		return models.Page[models.Order]{}, fmt.Errorf("failed to list orders: %w", err)
	}
	return models.NewPage(orders, filter.Page, filter.Size, total), nil
}

func (s *OrderService) buildFilter(query OrderQuery) (models.OrderFilter, error) {
	filter := models.OrderFilter{
		UserID:      query.UserID,
		Page:        query.Page,
		Size:        query.Size,
		OldestFirst: strings.EqualFold(query.Sort, models.SortOldest),
	}

	if filter.Page < 0 {
		return filter, apperr.BadRequest("page must not be negative")
	}
	if filter.Size < 0 {
		return filter, apperr.BadRequest("size must be positive")
	}
	if filter.Size == 0 {
		filter.Size = s.defaultSize
	}
	if filter.Size > s.maxSize {
		filter.Size = s.maxSize
	}
	if _, ok := models.PageOffset(filter.Page, filter.Size); !ok {
		return filter, apperr.BadRequest("page is out of range")
	}

	if query.Status != "" {
		status, err := models.ParseOrderStatus(query.Status)
		if err != nil {
			return filter, apperr.BadRequest(err.Error())
		}
		filter.Status = status
	}

	if query.FromDate != "" {
		from, err := time.Parse(dateLayout, query.FromDate)
		if err != nil {
			return filter, apperr.BadRequest("fromDate must be formatted as YYYY-MM-DD")
		}
		filter.From = from
	}
	if query.ToDate != "" {
		to, err := time.Parse(dateLayout, query.ToDate)
		if err != nil {
			return filter, apperr.BadRequest("toDate must be formatted as YYYY-MM-DD")
		}
		// Inclusive of the whole day.
		filter.To = to.Add(24*time.Hour - time.Nanosecond)
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.From.After(filter.To) {
		return filter, apperr.BadRequest("fromDate must not be after toDate")
	}

	return filter, nil
}

func failureReason(err error) string {
	switch apperr.CodeOf(err) {
	case apperr.CodeInsufficientStock:
		return "insufficient_stock"
	case apperr.CodeCartEmpty:
		return "cart_empty"
	case apperr.CodeNotFound:
		return "not_found"
	case apperr.CodeInvalidInput:
		return "invalid_input"
	case apperr.CodeOrderNumberTaken:
		return "order_number_taken"
	default:
		return "db_error"
	}
}
