package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ecommerce-service/internal/apperr"
	"ecommerce-service/internal/models"
	"ecommerce-service/internal/store/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu      sync.Mutex
	created []*models.OrderCreatedEvent
	changed []*models.OrderStatusChangedEvent
	reviews []*models.ReviewCreatedEvent
	err     error
}

func (p *recordingPublisher) PublishOrderCreated(_ context.Context, e *models.OrderCreatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, e)
	return p.err
}

func (p *recordingPublisher) PublishOrderStatusChanged(_ context.Context, e *models.OrderStatusChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changed = append(p.changed, e)
	return p.err
}

func (p *recordingPublisher) PublishReviewCreated(_ context.Context, e *models.ReviewCreatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reviews = append(p.reviews, e)
	return p.err
}

type fakeIdempotency struct {
	mu      sync.Mutex
	claimed map[string]bool
	done    map[string]int64
}

func newFakeIdempotency() *fakeIdempotency {
	return &fakeIdempotency{claimed: map[string]bool{}, done: map[string]int64{}}
}

func (f *fakeIdempotency) Claim(_ context.Context, scope string, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.claimed[scope] {
		return false, nil
	}
	f.claimed[scope] = true
	return true, nil
}

func (f *fakeIdempotency) Lookup(_ context.Context, scope string) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.done[scope]
	return id, ok, nil
}

func (f *fakeIdempotency) Complete(_ context.Context, scope string, orderID int64, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.done[scope] = orderID
	return nil
}

func (f *fakeIdempotency) Release(_ context.Context, scope string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.claimed, scope)
	return nil
}

type fixture struct {
	ctx         context.Context
	store       *memory.Store
	events      *recordingPublisher
	idempotency *fakeIdempotency
	ledger      *StockLedger
	carts       *CartService
	orders      *OrderService
	payments    *PaymentService
	reviews     *ReviewService
	userID      int64
	addressID   int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := memory.New()
	events := &recordingPublisher{}
	idem := newFakeIdempotency()
	ledger := NewStockLedger(s, s)

	f := &fixture{
		ctx:         context.Background(),
		store:       s,
		events:      events,
		idempotency: idem,
		ledger:      ledger,
		carts:       NewCartService(s, s, s),
		orders: NewOrderService(OrderServiceDeps{
			Tx:              s,
			Carts:           s,
			Addresses:       s,
			Orders:          s,
			Ledger:          ledger,
			Events:          events,
			Idempotency:     idem,
			DefaultPageSize: 10,
			MaxPageSize:     50,
		}),
		payments: NewPaymentService(s, s, events),
		reviews:  NewReviewService(s, s, s, events, 10, 50),
		userID:   42,
	}
	f.addressID = f.address(t, f.userID)
	return f
}

func (f *fixture) address(t *testing.T, userID int64) int64 {
	t.Helper()
	a := &models.Address{UserID: userID, RecipientName: "Budi", Street: "Jl. Sudirman 1", City: "Jakarta"}
	require.NoError(t, f.store.CreateAddress(f.ctx, a))
	return a.ID
}

func (f *fixture) product(t *testing.T, stock int, price int64) *models.Product {
	t.Helper()
	p := &models.Product{Name: "Mechanical Keyboard", PriceInRupiah: price, StockQuantity: stock}
	require.NoError(t, f.store.CreateProduct(f.ctx, p))
	return p
}

func (f *fixture) stock(t *testing.T, productID int64) int {
	t.Helper()
	p, err := f.store.GetProduct(f.ctx, productID)
	require.NoError(t, err)
	return p.StockQuantity
}

// addToCart adds quantity of productID and returns the resulting cart line id.
func (f *fixture) addToCart(t *testing.T, productID int64, quantity int) int64 {
	t.Helper()
	cart, err := f.carts.AddItem(f.ctx, f.userID, productID, quantity)
	require.NoError(t, err)
	for _, item := range cart.Items {
		if item.ProductID == productID {
			return item.ID
		}
	}
	t.Fatalf("product %d missing from cart", productID)
	return 0
}

func (f *fixture) checkout(t *testing.T, cartItemIDs ...int64) *models.Order {
	t.Helper()
	order, err := f.orders.CreateOrder(f.ctx, &CreateOrderRequest{
		UserID:        f.userID,
		AddressID:     f.addressID,
		CartItemIDs:   cartItemIDs,
		PaymentMethod: "BANK_TRANSFER",
	})
	require.NoError(t, err)
	return order
}

func assertKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	require.Error(t, err)
	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr), "expected *apperr.Error, got %T: %v", err, err)
	assert.Equal(t, kind, appErr.Kind, appErr.Error())
}
