package service

import (
	"context"
	"time"

	"ecommerce-service/internal/models"
)

// UnitOfWork runs fn inside one database transaction. Repositories called with
// the ctx handed to fn join that transaction; a non-nil return rolls it back.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ProductRepository is the slice of the catalog this engine reads and the
// only path through which stock changes.
type ProductRepository interface {
	GetProduct(ctx context.Context, productID int64) (*models.Product, error)
	// GetProductForUpdate locks the product row until the transaction ends.
	GetProductForUpdate(ctx context.Context, productID int64) (*models.Product, error)
	AdjustStock(ctx context.Context, productID int64, delta int) error
}

// AddressRepository resolves shipping addresses from the profile data.
type AddressRepository interface {
	GetAddressForUser(ctx context.Context, addressID, userID int64) (*models.Address, error)
}

// CartRepository persists carts and their lines.
type CartRepository interface {
	// GetCartByUserID returns the cart with its items joined to current product data.
	GetCartByUserID(ctx context.Context, userID int64) (*models.Cart, error)
	// CreateCart inserts an empty cart for userID, or returns the existing one.
	CreateCart(ctx context.Context, userID int64) (*models.Cart, error)
	GetCartItemByProduct(ctx context.Context, cartID, productID int64) (*models.CartItem, error)
	GetCartItemForUser(ctx context.Context, cartItemID, userID int64) (*models.CartItem, error)
	CreateCartItem(ctx context.Context, item *models.CartItem) error
	UpdateCartItemQuantity(ctx context.Context, cartItemID int64, quantity int) error
	DeleteCartItem(ctx context.Context, cartItemID int64) error
	ClearCart(ctx context.Context, cartID int64) error
}

// OrderRepository persists the order aggregate: order, items and payment.
type OrderRepository interface {
	// CreateOrder inserts the order row, every item and the payment, filling ids.
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrderForUser(ctx context.Context, orderID, userID int64) (*models.Order, error)
	GetOrder(ctx context.Context, orderID int64) (*models.Order, error)
	// UpdateOrderStatus writes to only if the stored status is still from.
	UpdateOrderStatus(ctx context.Context, orderID int64, from, to models.OrderStatus) error
	UpdateShipping(ctx context.Context, orderID int64, provider, trackingNumber string) error
	UpdatePaymentStatus(ctx context.Context, orderID int64, status models.PaymentStatus, reference string) error
	ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, int64, error)
}

// ReviewRepository persists product reviews.
type ReviewRepository interface {
	ReviewExists(ctx context.Context, userID, productID int64) (bool, error)
	CreateReview(ctx context.Context, review *models.ProductReview) error
	ListProductReviews(ctx context.Context, productID int64, req models.ReviewPageRequest) ([]models.ProductReview, int64, error)
}

// EventPublisher announces committed changes to other services.
type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error
	PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error
	PublishReviewCreated(ctx context.Context, event *models.ReviewCreatedEvent) error
}

// IdempotencyStore remembers which order a client-supplied key produced.
type IdempotencyStore interface {
	// Claim marks scope as in flight. It returns false if scope is already claimed.
	Claim(ctx context.Context, scope string, ttl time.Duration) (bool, error)
	// Lookup returns the order recorded for scope; found is false while in flight.
	Lookup(ctx context.Context, scope string) (orderID int64, found bool, err error)
	Complete(ctx context.Context, scope string, orderID int64, ttl time.Duration) error
	Release(ctx context.Context, scope string) error
}
