package service

import (
	"context"
	"errors"
	"fmt"

	"ecommerce-service/internal/apperr"
	"ecommerce-service/internal/models"
	"ecommerce-service/internal/store"
	"ecommerce-service/internal/util"

	"go.uber.org/zap"
)

// CartService manages the single cart each user owns
type CartService struct {
	tx       UnitOfWork
	carts    CartRepository
	products ProductRepository
	logger   *zap.Logger
}

// NewCartService creates a new cart service
func NewCartService(tx UnitOfWork, carts CartRepository, products ProductRepository) *CartService {
	return &CartService{
		tx:       tx,
		carts:    carts,
		products: products,
		logger:   util.GetLogger(),
	}
}

// AddCartItemRequest represents a request to add a product to the cart
type AddCartItemRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required,min=1"`
}

// UpdateCartItemRequest represents a request to change a cart line's quantity
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1"`
}

// GetCart returns the user's cart, creating an empty one on first access.
func (s *CartService) GetCart(ctx context.Context, userID int64) (*models.Cart, error) {
	ctx, span := util.StartSpan(ctx, "CartService.GetCart")
	defer span.End()

	var cart *models.Cart
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		cart, err = s.getOrCreate(ctx, userID)
		return err
	})
	return cart, err
}

func (s *CartService) getOrCreate(ctx context.Context, userID int64) (*models.Cart, error) {
	cart, err := s.carts.GetCartByUserID(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	cart, err = s.carts.CreateCart(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}
	s.logger.Info("Cart created", zap.Int64("user_id", userID), zap.Int64("cart_id", cart.ID))
	return cart, nil
}

// AddItem adds quantity of a product to the cart. An existing line for the
// product is merged without a stock check; a new line must fit current stock.
func (s *CartService) AddItem(ctx context.Context, userID, productID int64, quantity int) (*models.Cart, error) {
	ctx, span := util.StartSpan(ctx, "CartService.AddItem")
	defer span.End()

	if quantity < 1 {
		return nil, apperr.BadRequest("quantity must be at least 1")
	}

	var cart *models.Cart
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		c, err := s.getOrCreate(ctx, userID)
		if err != nil {
			return err
		}

		product, err := s.lockProduct(ctx, productID)
		if err != nil {
			return err
		}

		merged, err := s.mergeExisting(ctx, c.ID, productID, quantity)
		if err != nil {
			return err
		}

		if !merged {
			if !product.IsQuantitySufficient(quantity) {
				return apperr.InsufficientStock(productID, quantity, product.StockQuantity)
			}

			item := &models.CartItem{CartID: c.ID, ProductID: productID, Quantity: quantity}
			if err := s.carts.CreateCartItem(ctx, item); err != nil {
				return fmt.Errorf("failed to add cart item: %w", err)
			}
		}

		cart, err = s.reload(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	util.CartItemsAddedTotal.Inc()
	s.logger.Info("Cart item added",
		zap.Int64("user_id", userID),
		zap.Int64("product_id", productID),
		zap.Int("quantity", quantity))
	return cart, nil
}

// mergeExisting increases the quantity of the line already holding productID.
func (s *CartService) mergeExisting(ctx context.Context, cartID, productID int64, quantity int) (bool, error) {
	existing, err := s.carts.GetCartItemByProduct(ctx, cartID, productID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get cart item: %w", err)
	}
	if err := s.carts.UpdateCartItemQuantity(ctx, existing.ID, existing.Quantity+quantity); err != nil {
		return false, fmt.Errorf("failed to merge cart item: %w", err)
	}
	return true, nil
}

// UpdateItemQuantity sets a line's quantity, which must fit current stock.
func (s *CartService) UpdateItemQuantity(ctx context.Context, userID, cartItemID int64, quantity int) (*models.Cart, error) {
	ctx, span := util.StartSpan(ctx, "CartService.UpdateItemQuantity")
	defer span.End()

	if quantity < 1 {
		return nil, apperr.BadRequest("quantity must be at least 1")
	}

	var cart *models.Cart
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		item, err := s.ownedItem(ctx, userID, cartItemID)
		if err != nil {
			return err
		}

		product, err := s.lockProduct(ctx, item.ProductID)
		if err != nil {
			return err
		}
		if !product.IsQuantitySufficient(quantity) {
			return apperr.InsufficientStock(product.ID, quantity, product.StockQuantity)
		}

		if err := s.carts.UpdateCartItemQuantity(ctx, item.ID, quantity); err != nil {
			return fmt.Errorf("failed to update cart item: %w", err)
		}

		cart, err = s.reload(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Cart item updated",
		zap.Int64("user_id", userID),
		zap.Int64("cart_item_id", cartItemID),
		zap.Int("quantity", quantity))
	return cart, nil
}

// RemoveItem deletes one line from the user's cart.
func (s *CartService) RemoveItem(ctx context.Context, userID, cartItemID int64) (*models.Cart, error) {
	ctx, span := util.StartSpan(ctx, "CartService.RemoveItem")
	defer span.End()

	var cart *models.Cart
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		item, err := s.ownedItem(ctx, userID, cartItemID)
		if err != nil {
			return err
		}
		if err := s.carts.DeleteCartItem(ctx, item.ID); err != nil {
			return fmt.Errorf("failed to remove cart item: %w", err)
		}
		cart, err = s.reload(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Cart item removed", zap.Int64("user_id", userID), zap.Int64("cart_item_id", cartItemID))
	return cart, nil
}

// ClearCart removes every line from the user's cart.
func (s *CartService) ClearCart(ctx context.Context, userID int64) (*models.Cart, error) {
	ctx, span := util.StartSpan(ctx, "CartService.ClearCart")
	defer span.End()

	var cart *models.Cart
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		c, err := s.getOrCreate(ctx, userID)
		if err != nil {
			return err
		}
		if err := s.carts.ClearCart(ctx, c.ID); err != nil {
			return fmt.Errorf("failed to clear cart: %w", err)
		}
		cart, err = s.reload(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Cart cleared", zap.Int64("user_id", userID))
	return cart, nil
}

// CountItems returns the sum of all line quantities in the user's cart.
func (s *CartService) CountItems(ctx context.Context, userID int64) (int, error) {
	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return 0, err
	}
	return cart.TotalItems(), nil
}

func (s *CartService) ownedItem(ctx context.Context, userID, cartItemID int64) (*models.CartItem, error) {
	item, err := s.carts.GetCartItemForUser(ctx, cartItemID, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound(fmt.Sprintf("cart item %d not found", cartItemID))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cart item: %w", err)
	}
	return item, nil
}

func (s *CartService) lockProduct(ctx context.Context, productID int64) (*models.Product, error) {
	product, err := s.products.GetProductForUpdate(ctx, productID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound(fmt.Sprintf("product %d not found", productID))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return product, nil
}

func (s *CartService) reload(ctx context.Context, userID int64) (*models.Cart, error) {
	cart, err := s.carts.GetCartByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload cart: %w", err)
	}
	return cart, nil
}
