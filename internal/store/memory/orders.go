package memory

import (
	"context"
	"sort"

	"ecommerce-service/internal/models"
	"ecommerce-service/internal/store"
)

// CreateOrder inserts the order, each of its items and its payment.
func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	defer s.lock(ctx)()
	for _, existing := range s.st.orders {
		if existing.OrderNumber == order.OrderNumber {
			return store.ErrDuplicate
		}
	}

	now := s.now()
	order.ID = s.st.nextID()
	order.CreatedAt, order.UpdatedAt = now, now

	stored := *order
	stored.Items, stored.Payment = nil, nil
	s.st.orders[order.ID] = stored

	for i := range order.Items {
		item := &order.Items[i]
		if _, ok := s.st.products[item.ProductID]; !ok {
			return store.ErrNotFound
		}
		item.ID = s.st.nextID()
		item.OrderID = order.ID
		row := *item
		row.ProductName = ""
		s.st.orderItems[item.ID] = row
	}

	if order.Payment != nil {
		p := order.Payment
		p.ID = s.st.nextID()
		p.OrderID = order.ID
		p.CreatedAt, p.UpdatedAt = now, now
		s.st.payments[p.ID] = *p
	}
	return nil
}

// hydrate attaches items and payment the way the SQL store's child loading does.
func (st *state) hydrate(o models.Order) models.Order {
	o.Items = []models.OrderItem{}
	for _, id := range sortedKeys(st.orderItems) {
		if item := st.orderItems[id]; item.OrderID == o.ID {
			if p, ok := st.products[item.ProductID]; ok {
				item.ProductName = p.Name
			}
			o.Items = append(o.Items, item)
		}
	}
	for _, p := range st.payments {
		if p.OrderID == o.ID {
			p := p
			o.Payment = &p
			break
		}
	}
	return o
}

// GetOrderForUser retrieves an order only if owned by userID.
func (s *Store) GetOrderForUser(ctx context.Context, orderID, userID int64) (*models.Order, error) {
	defer s.lock(ctx)()
	o, ok := s.st.orders[orderID]
	if !ok || o.UserID != userID {
		return nil, store.ErrNotFound
	}
	o = s.st.hydrate(o)
	return &o, nil
}

// GetOrder retrieves an order by ID.
func (s *Store) GetOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	defer s.lock(ctx)()
	o, ok := s.st.orders[orderID]
	if !ok {
		return nil, store.ErrNotFound
	}
	o = s.st.hydrate(o)
	return &o, nil
}

// UpdateOrderStatus moves an order from one status to another, or returns
// store.ErrStaleState if the stored status is no longer from.
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID int64, from, to models.OrderStatus) error {
	defer s.lock(ctx)()
	o, ok := s.st.orders[orderID]
	if !ok || o.Status != from {
		return store.ErrStaleState
	}
	o.Status = to
	o.UpdatedAt = s.now()
	s.st.orders[orderID] = o
	return nil
}

// UpdateShipping stores carrier and tracking metadata.
func (s *Store) UpdateShipping(ctx context.Context, orderID int64, provider, trackingNumber string) error {
	defer s.lock(ctx)()
	o, ok := s.st.orders[orderID]
	if !ok {
		return store.ErrNotFound
	}
	o.ShippingProvider = provider
	o.TrackingNumber = trackingNumber
	o.UpdatedAt = s.now()
	s.st.orders[orderID] = o
	return nil
}

// UpdatePaymentStatus updates the payment of an order. An empty reference keeps the stored one.
func (s *Store) UpdatePaymentStatus(ctx context.Context, orderID int64, status models.PaymentStatus, reference string) error {
	defer s.lock(ctx)()
	for id, p := range s.st.payments {
		if p.OrderID != orderID {
			continue
		}
		p.Status = status
		if reference != "" {
			p.Reference = reference
		}
		p.UpdatedAt = s.now()
		s.st.payments[id] = p
		return nil
	}
	return store.ErrNotFound
}

// ListOrders retrieves one page of orders matching filter and the total match count.
func (s *Store) ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, int64, error) {
	defer s.lock(ctx)()

	matched := make([]models.Order, 0)
	for _, o := range s.st.orders {
		if filter.UserID != 0 && o.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		if !filter.From.IsZero() && o.CreatedAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && o.CreatedAt.After(filter.To) {
			continue
		}
		matched = append(matched, o)
	}

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if filter.OldestFirst {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.CreatedAt.After(b.CreatedAt)
		}
		if filter.OldestFirst {
			return a.ID < b.ID
		}
		return a.ID > b.ID
	})

	total := int64(len(matched))
	start, end := pageBounds(len(matched), filter.Page, filter.Size)

	page := make([]models.Order, 0, end-start)
	for _, o := range matched[start:end] {
		page = append(page, s.st.hydrate(o))
	}
	return page, total, nil
}
