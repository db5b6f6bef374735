package memory

import (
	"context"

	"ecommerce-service/internal/models"
	"ecommerce-service/internal/store"
)

// joinProduct fills the display fields a SQL join would add.
func (st *state) joinProduct(item models.CartItem) models.CartItem {
	if p, ok := st.products[item.ProductID]; ok {
		item.ProductName = p.Name
		item.PriceInRupiah = p.PriceInRupiah
	}
	return item
}

func (st *state) cartByUser(userID int64) (models.Cart, bool) {
	for _, id := range sortedKeys(st.carts) {
		if c := st.carts[id]; c.UserID == userID {
			items := []models.CartItem{}
			for _, itemID := range sortedKeys(st.cartItems) {
				if item := st.cartItems[itemID]; item.CartID == c.ID {
					items = append(items, st.joinProduct(item))
				}
			}
			c.Items = items
			return c, true
		}
	}
	return models.Cart{}, false
}

// GetCartByUserID retrieves a user's cart with its items.
func (s *Store) GetCartByUserID(ctx context.Context, userID int64) (*models.Cart, error) {
	defer s.lock(ctx)()
	c, ok := s.st.cartByUser(userID)
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

// CreateCart creates an empty cart for a user, or returns the existing one.
func (s *Store) CreateCart(ctx context.Context, userID int64) (*models.Cart, error) {
	defer s.lock(ctx)()
	if c, ok := s.st.cartByUser(userID); ok {
		return &c, nil
	}
	now := s.now()
	c := models.Cart{ID: s.st.nextID(), UserID: userID}
	c.CreatedAt, c.UpdatedAt = now, now
	s.st.carts[c.ID] = c
	c.Items = []models.CartItem{}
	return &c, nil
}

// GetCartItemByProduct retrieves the cart line for a product, if any.
func (s *Store) GetCartItemByProduct(ctx context.Context, cartID, productID int64) (*models.CartItem, error) {
	defer s.lock(ctx)()
	for _, id := range sortedKeys(s.st.cartItems) {
		if item := s.st.cartItems[id]; item.CartID == cartID && item.ProductID == productID {
			item = s.st.joinProduct(item)
			return &item, nil
		}
	}
	return nil, store.ErrNotFound
}

// GetCartItemForUser retrieves a cart line only if it sits in userID's cart.
func (s *Store) GetCartItemForUser(ctx context.Context, cartItemID, userID int64) (*models.CartItem, error) {
	defer s.lock(ctx)()
	item, ok := s.st.cartItems[cartItemID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if c, ok := s.st.carts[item.CartID]; !ok || c.UserID != userID {
		return nil, store.ErrNotFound
	}
	item = s.st.joinProduct(item)
	return &item, nil
}

// CreateCartItem inserts a new cart line; (cart, product) is unique.
func (s *Store) CreateCartItem(ctx context.Context, item *models.CartItem) error {
	defer s.lock(ctx)()
	if _, ok := s.st.carts[item.CartID]; !ok {
		return store.ErrNotFound
	}
	if _, ok := s.st.products[item.ProductID]; !ok {
		return store.ErrNotFound
	}
	for _, existing := range s.st.cartItems {
		if existing.CartID == item.CartID && existing.ProductID == item.ProductID {
			return store.ErrDuplicate
		}
	}
	now := s.now()
	item.ID = s.st.nextID()
	item.CreatedAt, item.UpdatedAt = now, now
	stored := *item
	stored.ProductName, stored.PriceInRupiah = "", 0
	s.st.cartItems[item.ID] = stored
	*item = s.st.joinProduct(stored)
	return nil
}

// UpdateCartItemQuantity sets a cart line's quantity.
func (s *Store) UpdateCartItemQuantity(ctx context.Context, cartItemID int64, quantity int) error {
	defer s.lock(ctx)()
	item, ok := s.st.cartItems[cartItemID]
	if !ok {
		return store.ErrNotFound
	}
	item.Quantity = quantity
	item.UpdatedAt = s.now()
	s.st.cartItems[cartItemID] = item
	return nil
}

// DeleteCartItem removes a cart line.
func (s *Store) DeleteCartItem(ctx context.Context, cartItemID int64) error {
	defer s.lock(ctx)()
	if _, ok := s.st.cartItems[cartItemID]; !ok {
		return store.ErrNotFound
	}
	delete(s.st.cartItems, cartItemID)
	return nil
}

// ClearCart removes every line of a cart.
func (s *Store) ClearCart(ctx context.Context, cartID int64) error {
	defer s.lock(ctx)()
	for id, item := range s.st.cartItems {
		if item.CartID == cartID {
			delete(s.st.cartItems, id)
		}
	}
	return nil
}
