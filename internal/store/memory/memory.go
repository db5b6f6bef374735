// Package memory is an in-process implementation of the repositories with the
// same contracts as the Postgres store. Transactions serialize on one mutex and
// roll back by restoring a snapshot.
package memory

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"ecommerce-service/internal/models"
	"ecommerce-service/internal/store"
)

type state struct {
	seq        int64
	products   map[int64]models.Product
	addresses  map[int64]models.Address
	carts      map[int64]models.Cart
	cartItems  map[int64]models.CartItem
	orders     map[int64]models.Order
	orderItems map[int64]models.OrderItem
	payments   map[int64]models.Payment
	reviews    map[int64]models.ProductReview
}

func newState() *state {
	return &state{
		products:   map[int64]models.Product{},
		addresses:  map[int64]models.Address{},
		carts:      map[int64]models.Cart{},
		cartItems:  map[int64]models.CartItem{},
		orders:     map[int64]models.Order{},
		orderItems: map[int64]models.OrderItem{},
		payments:   map[int64]models.Payment{},
		reviews:    map[int64]models.ProductReview{},
	}
}

// clone copies every table. Stored values never hold slices or pointers, so
// copying the maps is enough.
func (st *state) clone() *state {
	return &state{
		seq:        st.seq,
		products:   maps.Clone(st.products),
		addresses:  maps.Clone(st.addresses),
		carts:      maps.Clone(st.carts),
		cartItems:  maps.Clone(st.cartItems),
		orders:     maps.Clone(st.orders),
		orderItems: maps.Clone(st.orderItems),
		payments:   maps.Clone(st.payments),
		reviews:    maps.Clone(st.reviews),
	}
}

func (st *state) nextID() int64 {
	st.seq++
	return st.seq
}

// Store keeps all rows in memory.
type Store struct {
	mu  sync.Mutex
	st  *state
	now func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{st: newState(), now: func() time.Time { return time.Now().UTC() }}
}

// WithClock replaces the timestamp source; used by tests that filter by date.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

type txKey struct{}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// RunInTx runs fn with exclusive access to the store. Any error, or a
// cancelled ctx, restores the state from before fn started.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.st = snapshot
		return err
	}
	if err := ctx.Err(); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

// lock takes the store mutex unless ctx already runs inside this store's transaction.
func (s *Store) lock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// CreateProduct inserts a product.
func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	defer s.lock(ctx)()
	now := s.now()
	product.ID = s.st.nextID()
	product.CreatedAt, product.UpdatedAt = now, now
	s.st.products[product.ID] = *product
	return nil
}

// GetProduct retrieves a product by ID.
func (s *Store) GetProduct(ctx context.Context, productID int64) (*models.Product, error) {
	defer s.lock(ctx)()
	p, ok := s.st.products[productID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

// GetProductForUpdate is GetProduct: transactions already hold the store exclusively.
func (s *Store) GetProductForUpdate(ctx context.Context, productID int64) (*models.Product, error) {
	return s.GetProduct(ctx, productID)
}

// AdjustStock adds delta to a product's quantity, refusing a negative result.
func (s *Store) AdjustStock(ctx context.Context, productID int64, delta int) error {
	defer s.lock(ctx)()
	p, ok := s.st.products[productID]
	if !ok {
		return store.ErrNotFound
	}
	if p.StockQuantity+delta < 0 {
		return store.ErrNegativeStock
	}
	p.StockQuantity += delta
	p.UpdatedAt = s.now()
	s.st.products[productID] = p
	return nil
}

// CreateAddress inserts an address.
func (s *Store) CreateAddress(ctx context.Context, address *models.Address) error {
	defer s.lock(ctx)()
	now := s.now()
	address.ID = s.st.nextID()
	address.CreatedAt, address.UpdatedAt = now, now
	s.st.addresses[address.ID] = *address
	return nil
}

// GetAddressForUser retrieves an address only if it belongs to userID.
func (s *Store) GetAddressForUser(ctx context.Context, addressID, userID int64) (*models.Address, error) {
	defer s.lock(ctx)()
	a, ok := s.st.addresses[addressID]
	if !ok || a.UserID != userID {
		return nil, store.ErrNotFound
	}
	return &a, nil
}

func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// pageBounds returns the slice bounds of one page over n rows. Pages past the
// end are empty.
func pageBounds(n, page, size int) (int, int) {
	start, ok := models.PageOffset(page, size)
	if !ok || start > n {
		start = n
	}
	end := n
	if size < end-start {
		end = start + size
	}
	return start, end
}
