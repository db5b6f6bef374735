package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"ecommerce-service/internal/models"

	"github.com/jmoiron/sqlx"
)

const orderColumns = `id, user_id, order_number, status, address_id, shipping_provider, tracking_number, created_at, updated_at`

const orderItemSelect = `
	SELECT oi.id, oi.order_id, oi.product_id, oi.quantity, oi.price_at_order, p.name AS product_name
	FROM order_items oi
	JOIN products p ON p.id = oi.product_id`

const paymentColumns = `id, order_id, amount, status, method, reference, created_at, updated_at`

// CreateOrder inserts the order, each of its items and its payment. Callers
// run it inside RunInTx so the aggregate commits as one unit.
func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (user_id, order_number, status, address_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	err := s.q(ctx).GetContext(ctx, order, query,
		order.UserID, order.OrderNumber, order.Status, order.AddressID)
	if isPQCode(err, pqUniqueViolation) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID
		if err := s.q(ctx).GetContext(ctx, &item.ID,
			`INSERT INTO order_items (order_id, product_id, quantity, price_at_order)
			 VALUES ($1, $2, $3, $4)
			 RETURNING id`,
			item.OrderID, item.ProductID, item.Quantity, item.PriceAtOrder); err != nil {
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	if order.Payment != nil {
		payment := order.Payment
		payment.OrderID = order.ID
		if err := s.q(ctx).GetContext(ctx, payment,
			`INSERT INTO payments (order_id, amount, status, method, reference)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING id, created_at, updated_at`,
			payment.OrderID, payment.Amount, payment.Status, payment.Method, payment.Reference); err != nil {
			return fmt.Errorf("failed to create payment: %w", err)
		}
	}

	return nil
}

// GetOrderForUser retrieves an order with items and payment, only if owned by userID
func (s *Store) GetOrderForUser(ctx context.Context, orderID, userID int64) (*models.Order, error) {
	return s.getOrder(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = $1 AND user_id = $2", orderID, userID)
}

// GetOrder retrieves an order with items and payment
func (s *Store) GetOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	return s.getOrder(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = $1", orderID)
}

func (s *Store) getOrder(ctx context.Context, query string, args ...interface{}) (*models.Order, error) {
	var order models.Order
	err := s.q(ctx).GetContext(ctx, &order, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	orders := []models.Order{order}
	if err := s.loadOrderChildren(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// loadOrderChildren fills Items and Payment for every order in one query each.
func (s *Store) loadOrderChildren(ctx context.Context, orders []models.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]int64, len(orders))
	index := make(map[int64]int, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		index[orders[i].ID] = i
		orders[i].Items = []models.OrderItem{}
	}

	query, args, err := sqlx.In(orderItemSelect+" WHERE oi.order_id IN (?) ORDER BY oi.id", ids)
	if err != nil {
		return err
	}
	var items []models.OrderItem
	if err := s.q(ctx).SelectContext(ctx, &items, s.q(ctx).Rebind(query), args...); err != nil {
		return fmt.Errorf("failed to get order items: %w", err)
	}
	for _, item := range items {
		i := index[item.OrderID]
		orders[i].Items = append(orders[i].Items, item)
	}

	query, args, err = sqlx.In("SELECT "+paymentColumns+" FROM payments WHERE order_id IN (?)", ids)
	if err != nil {
		return err
	}
	var payments []models.Payment
	if err := s.q(ctx).SelectContext(ctx, &payments, s.q(ctx).Rebind(query), args...); err != nil {
		return fmt.Errorf("failed to get payments: %w", err)
	}
	for i := range payments {
		p := payments[i]
		orders[index[p.OrderID]].Payment = &p
	}

	return nil
}

// UpdateOrderStatus moves an order from one status to another. It matches no
// row, and returns ErrStaleState, if another writer changed the status first.
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID int64, from, to models.OrderStatus) error {
	err := rowsAffected(s.q(ctx).ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3",
		to, orderID, from))
	if errors.Is(err, ErrNotFound) {
		return ErrStaleState
	}
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	return nil
}

// UpdateShipping stores carrier and tracking metadata
func (s *Store) UpdateShipping(ctx context.Context, orderID int64, provider, trackingNumber string) error {
	err := rowsAffected(s.q(ctx).ExecContext(ctx,
		"UPDATE orders SET shipping_provider = $1, tracking_number = $2, updated_at = NOW() WHERE id = $3",
		provider, trackingNumber, orderID))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("failed to update shipping: %w", err)
	}
	return err
}

// UpdatePaymentStatus updates the payment of an order
func (s *Store) UpdatePaymentStatus(ctx context.Context, orderID int64, status models.PaymentStatus, reference string) error {
	err := rowsAffected(s.q(ctx).ExecContext(ctx,
		"UPDATE payments SET status = $1, reference = COALESCE(NULLIF($2, ''), reference), updated_at = NOW() WHERE order_id = $3",
		status, reference, orderID))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("failed to update payment status: %w", err)
	}
	return err
}

// ListOrders retrieves one page of orders matching filter, newest first unless
// filter.OldestFirst, together with the total match count.
func (s *Store) ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, int64, error) {
	var (
		conds []string
		args  []interface{}
	)
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.UserID != 0 {
		add("user_id = $%d", filter.UserID)
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if !filter.From.IsZero() {
		add("created_at >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		add("created_at <= $%d", filter.To)
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	if err := s.q(ctx).GetContext(ctx, &total, "SELECT COUNT(*) FROM orders"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	direction := "DESC"
	if filter.OldestFirst {
		direction = "ASC"
	}
	offset, ok := models.PageOffset(filter.Page, filter.Size)
	if !ok || int64(offset) >= total {
		return []models.Order{}, total, nil
	}
	pageArgs := append(append([]interface{}{}, args...), filter.Size, offset)
	query := fmt.Sprintf("SELECT %s FROM orders%s ORDER BY created_at %s, id %s LIMIT $%d OFFSET $%d",
		orderColumns, where, direction, direction, len(args)+1, len(args)+2)

	orders := []models.Order{}
	if err := s.q(ctx).SelectContext(ctx, &orders, query, pageArgs...); err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	if err := s.loadOrderChildren(ctx, orders); err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}
