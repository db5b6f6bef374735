package store_test

import (
	"context"
	"errors"
	"math"
	"os"
	"testing"

	"ecommerce-service/internal/models"
	"ecommerce-service/internal/service"
	"ecommerce-service/internal/store"
	"ecommerce-service/internal/store/memory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Both drivers must satisfy every repository contract the services use.
var (
	_ service.UnitOfWork        = (*store.Store)(nil)
	_ service.ProductRepository = (*store.Store)(nil)
	_ service.AddressRepository = (*store.Store)(nil)
	_ service.CartRepository    = (*store.Store)(nil)
	_ service.OrderRepository   = (*store.Store)(nil)
	_ service.ReviewRepository  = (*store.Store)(nil)

	_ service.UnitOfWork        = (*memory.Store)(nil)
	_ service.ProductRepository = (*memory.Store)(nil)
	_ service.AddressRepository = (*memory.Store)(nil)
	_ service.CartRepository    = (*memory.Store)(nil)
	_ service.OrderRepository   = (*memory.Store)(nil)
	_ service.ReviewRepository  = (*memory.Store)(nil)
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	s, err := store.NewStore(url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func seed(t *testing.T, s *store.Store, stock int) (*models.Product, *models.Address) {
	t.Helper()
	ctx := context.Background()
	p := &models.Product{Name: "Teh Poci " + uuid.NewString()[:6], PriceInRupiah: 12000, StockQuantity: stock}
	require.NoError(t, s.CreateProduct(ctx, p))
	a := &models.Address{UserID: int64(uuid.New().ID()), RecipientName: "Tester", City: "Surabaya"}
	require.NoError(t, s.CreateAddress(ctx, a))
	return p, a
}

func TestPostgresRunInTxRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p, _ := seed(t, s, 10)

	boom := errors.New("boom")
	err := s.RunInTx(ctx, func(ctx context.Context) error {
		locked, err := s.GetProductForUpdate(ctx, p.ID)
		require.NoError(t, err)
		require.NoError(t, s.AdjustStock(ctx, locked.ID, -4))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.StockQuantity)
}

func TestPostgresAdjustStockRefusesNegative(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p, _ := seed(t, s, 2)

	assert.ErrorIs(t, s.AdjustStock(ctx, p.ID, -3), store.ErrNegativeStock)
	assert.ErrorIs(t, s.AdjustStock(ctx, -1, 1), store.ErrNotFound)
	require.NoError(t, s.AdjustStock(ctx, p.ID, -2))

	got, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.StockQuantity)
}

func TestPostgresOrderAggregate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p, a := seed(t, s, 5)

	order := &models.Order{
		UserID:      a.UserID,
		OrderNumber: "ORD-TEST-" + uuid.NewString(),
		Status:      models.OrderStatusPending,
		AddressID:   a.ID,
		Items:       []models.OrderItem{{ProductID: p.ID, Quantity: 2, PriceAtOrder: p.PriceInRupiah}},
		Payment:     &models.Payment{Amount: 24000, Status: models.PaymentStatusPending, Method: models.PaymentMethodEWallet},
	}
	require.NoError(t, s.RunInTx(ctx, func(ctx context.Context) error {
		return s.CreateOrder(ctx, order)
	}))

	got, err := s.GetOrderForUser(ctx, order.ID, a.UserID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, p.Name, got.Items[0].ProductName)
	require.NotNil(t, got.Payment)
	assert.Equal(t, models.PaymentMethodEWallet, got.Payment.Method)

	_, err = s.GetOrderForUser(ctx, order.ID, a.UserID+1)
	assert.ErrorIs(t, err, store.ErrNotFound)

	dup := &models.Order{UserID: a.UserID, OrderNumber: order.OrderNumber, Status: models.OrderStatusPending, AddressID: a.ID}
	assert.ErrorIs(t, s.CreateOrder(ctx, dup), store.ErrDuplicate)

	require.NoError(t, s.UpdateOrderStatus(ctx, order.ID, models.OrderStatusPending, models.OrderStatusConfirmed))
	assert.ErrorIs(t, s.UpdateOrderStatus(ctx, order.ID, models.OrderStatusPending, models.OrderStatusCancelled), store.ErrStaleState)

	require.NoError(t, s.UpdatePaymentStatus(ctx, order.ID, models.PaymentStatusPaid, "PAY-TEST"))
	got, err = s.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, got.Status)
	assert.Equal(t, "PAY-TEST", got.Payment.Reference)

	orders, total, err := s.ListOrders(ctx, models.OrderFilter{UserID: a.UserID, Status: models.OrderStatusConfirmed, Size: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, orders, 1)
	assert.Len(t, orders[0].Items, 1)

	orders, total, err = s.ListOrders(ctx, models.OrderFilter{UserID: a.UserID, Page: math.MaxInt / 5, Size: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Empty(t, orders)
}

func TestPostgresReviewUniquePerUserProduct(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p, a := seed(t, s, 5)

	order := &models.Order{UserID: a.UserID, OrderNumber: "ORD-TEST-" + uuid.NewString(), Status: models.OrderStatusCompleted, AddressID: a.ID}
	require.NoError(t, s.CreateOrder(ctx, order))

	review := &models.ProductReview{UserID: a.UserID, ProductID: p.ID, OrderID: order.ID, Rating: 4, Comment: "Enak"}
	require.NoError(t, s.CreateReview(ctx, review))

	exists, err := s.ReviewExists(ctx, a.UserID, p.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	again := &models.ProductReview{UserID: a.UserID, ProductID: p.ID, OrderID: order.ID, Rating: 1, Comment: "Again"}
	assert.ErrorIs(t, s.CreateReview(ctx, again), store.ErrDuplicate)

	reviews, total, err := s.ListProductReviews(ctx, p.ID, models.ReviewPageRequest{Size: 10, SortBy: models.ReviewSortRating})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, reviews, 1)

	reviews, _, err = s.ListProductReviews(ctx, p.ID, models.ReviewPageRequest{Size: 10, Page: math.MaxInt / 5})
	require.NoError(t, err)
	assert.Empty(t, reviews)
}
