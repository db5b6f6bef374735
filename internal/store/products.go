package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ecommerce-service/internal/models"
)

const productColumns = `id, name, price_in_rupiah, stock_quantity, created_at, updated_at`

// GetProduct retrieves a product by ID
func (s *Store) GetProduct(ctx context.Context, productID int64) (*models.Product, error) {
	var product models.Product
	err := s.q(ctx).GetContext(ctx, &product,
		"SELECT "+productColumns+" FROM products WHERE id = $1", productID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product %d: %w", productID, err)
	}
	return &product, nil
}

// GetProductForUpdate retrieves a product and holds a row lock (FOR UPDATE)
// until the surrounding transaction ends.
func (s *Store) GetProductForUpdate(ctx context.Context, productID int64) (*models.Product, error) {
	var product models.Product
	err := s.q(ctx).GetContext(ctx, &product,
		"SELECT "+productColumns+" FROM products WHERE id = $1 FOR UPDATE", productID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock product %d: %w", productID, err)
	}
	return &product, nil
}

// AdjustStock adds delta (negative to take stock) to a product's quantity.
// The WHERE clause and the table CHECK both refuse a negative result.
func (s *Store) AdjustStock(ctx context.Context, productID int64, delta int) error {
	res, err := s.q(ctx).ExecContext(ctx,
		`UPDATE products
		 SET stock_quantity = stock_quantity + $1, updated_at = NOW()
		 WHERE id = $2 AND stock_quantity + $1 >= 0`,
		delta, productID)
	if isPQCode(err, pqCheckViolation) {
		return ErrNegativeStock
	}
	if err := rowsAffected(res, err); err != nil {
		if errors.Is(err, ErrNotFound) {
			if _, getErr := s.GetProduct(ctx, productID); getErr == nil {
				return ErrNegativeStock
			}
			return ErrNotFound
		}
		return fmt.Errorf("failed to adjust stock for product %d: %w", productID, err)
	}
	return nil
}

// CreateProduct inserts a product; used for seeding and tests
func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	query := `
		INSERT INTO products (name, price_in_rupiah, stock_quantity)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`

	return s.q(ctx).GetContext(ctx, product, query,
		product.Name, product.PriceInRupiah, product.StockQuantity)
}

const addressColumns = `id, user_id, recipient_name, phone_number, street, city, province, postal_code, notes, created_at, updated_at`

// GetAddressForUser retrieves an address only if it belongs to userID
func (s *Store) GetAddressForUser(ctx context.Context, addressID, userID int64) (*models.Address, error) {
	var address models.Address
	err := s.q(ctx).GetContext(ctx, &address,
		"SELECT "+addressColumns+" FROM addresses WHERE id = $1 AND user_id = $2", addressID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get address %d: %w", addressID, err)
	}
	return &address, nil
}

// CreateAddress inserts an address; used for seeding and tests
func (s *Store) CreateAddress(ctx context.Context, address *models.Address) error {
	query := `
		INSERT INTO addresses (user_id, recipient_name, phone_number, street, city, province, postal_code, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`

	return s.q(ctx).GetContext(ctx, address, query,
		address.UserID, address.RecipientName, address.PhoneNumber, address.Street,
		address.City, address.Province, address.PostalCode, address.Notes)
}
