package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ecommerce-service/internal/models"
)

const cartItemSelect = `
	SELECT ci.id, ci.cart_id, ci.product_id, ci.quantity, ci.created_at, ci.updated_at,
	       p.name AS product_name, p.price_in_rupiah
	FROM cart_items ci
	JOIN products p ON p.id = ci.product_id`

// GetCartByUserID retrieves a user's cart with its items
func (s *Store) GetCartByUserID(ctx context.Context, userID int64) (*models.Cart, error) {
	var cart models.Cart
	err := s.q(ctx).GetContext(ctx, &cart,
		"SELECT id, user_id, created_at, updated_at FROM carts WHERE user_id = $1", userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cart for user %d: %w", userID, err)
	}

	items := []models.CartItem{}
	if err := s.q(ctx).SelectContext(ctx, &items,
		cartItemSelect+" WHERE ci.cart_id = $1 ORDER BY ci.id", cart.ID); err != nil {
		return nil, fmt.Errorf("failed to get cart items for cart %d: %w", cart.ID, err)
	}
	cart.Items = items

	return &cart, nil
}

// CreateCart creates an empty cart for a user, or returns the existing one
func (s *Store) CreateCart(ctx context.Context, userID int64) (*models.Cart, error) {
	if _, err := s.q(ctx).ExecContext(ctx,
		"INSERT INTO carts (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING", userID); err != nil {
		return nil, fmt.Errorf("failed to create cart for user %d: %w", userID, err)
	}
	return s.GetCartByUserID(ctx, userID)
}

// GetCartItemByProduct retrieves the cart line for a product, if any
func (s *Store) GetCartItemByProduct(ctx context.Context, cartID, productID int64) (*models.CartItem, error) {
	var item models.CartItem
	err := s.q(ctx).GetContext(ctx, &item,
		cartItemSelect+" WHERE ci.cart_id = $1 AND ci.product_id = $2", cartID, productID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cart item: %w", err)
	}
	return &item, nil
}

// GetCartItemForUser retrieves a cart line only if it sits in userID's cart
func (s *Store) GetCartItemForUser(ctx context.Context, cartItemID, userID int64) (*models.CartItem, error) {
	var item models.CartItem
	err := s.q(ctx).GetContext(ctx, &item,
		cartItemSelect+" JOIN carts c ON c.id = ci.cart_id WHERE ci.id = $1 AND c.user_id = $2",
		cartItemID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cart item %d: %w", cartItemID, err)
	}
	return &item, nil
}

// CreateCartItem inserts a new cart line
func (s *Store) CreateCartItem(ctx context.Context, item *models.CartItem) error {
	query := `
		INSERT INTO cart_items (cart_id, product_id, quantity)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`

	err := s.q(ctx).GetContext(ctx, item, query, item.CartID, item.ProductID, item.Quantity)
	if isPQCode(err, pqUniqueViolation) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to create cart item: %w", err)
	}
	return nil
}

// UpdateCartItemQuantity sets a cart line's quantity
func (s *Store) UpdateCartItemQuantity(ctx context.Context, cartItemID int64, quantity int) error {
	err := rowsAffected(s.q(ctx).ExecContext(ctx,
		"UPDATE cart_items SET quantity = $1, updated_at = NOW() WHERE id = $2",
		quantity, cartItemID))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("failed to update cart item %d: %w", cartItemID, err)
	}
	return err
}

// DeleteCartItem removes a cart line
func (s *Store) DeleteCartItem(ctx context.Context, cartItemID int64) error {
	err := rowsAffected(s.q(ctx).ExecContext(ctx, "DELETE FROM cart_items WHERE id = $1", cartItemID))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("failed to delete cart item %d: %w", cartItemID, err)
	}
	return err
}

// ClearCart removes every line of a cart
func (s *Store) ClearCart(ctx context.Context, cartID int64) error {
	if _, err := s.q(ctx).ExecContext(ctx, "DELETE FROM cart_items WHERE cart_id = $1", cartID); err != nil {
		return fmt.Errorf("failed to clear cart %d: %w", cartID, err)
	}
	return nil
}
