package models

import "time"

// Audit holds the row timestamps maintained by the persistence layer.
type Audit struct {
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Product is the catalog view this service needs: price and available stock.
type Product struct {
	ID            int64  `db:"id" json:"id"`
	Name          string `db:"name" json:"name"`
	PriceInRupiah int64  `db:"price_in_rupiah" json:"price_in_rupiah"`
	StockQuantity int    `db:"stock_quantity" json:"stock_quantity"`
	Audit
}

// IsQuantitySufficient reports whether quantity can be taken from current stock.
func (p *Product) IsQuantitySufficient(quantity int) bool {
	return quantity <= p.StockQuantity
}

// Address is a shipping address owned by a user.
type Address struct {
	ID            int64  `db:"id" json:"id"`
	UserID        int64  `db:"user_id" json:"user_id"`
	RecipientName string `db:"recipient_name" json:"recipient_name"`
	PhoneNumber   string `db:"phone_number" json:"phone_number"`
	Street        string `db:"street" json:"street"`
	City          string `db:"city" json:"city"`
	Province      string `db:"province" json:"province"`
	PostalCode    string `db:"postal_code" json:"postal_code"`
	Notes         string `db:"notes" json:"notes"`
	Audit
}

// Cart is owned 1:1 by a user.
type Cart struct {
	ID     int64      `db:"id" json:"id"`
	UserID int64      `db:"user_id" json:"user_id"`
	Items  []CartItem `db:"-" json:"items"`
	Audit
}

// TotalItems is the sum of all line quantities.
func (c *Cart) TotalItems() int {
	total := 0
	for _, item := range c.Items {
		total += item.Quantity
	}
	return total
}

// TotalPrice is the sum of line subtotals at current product prices.
func (c *Cart) TotalPrice() int64 {
	var total int64
	for _, item := range c.Items {
		total += item.Subtotal()
	}
	return total
}

// FindItem returns the line with the given id.
func (c *Cart) FindItem(cartItemID int64) (*CartItem, bool) {
	for i := range c.Items {
		if c.Items[i].ID == cartItemID {
			return &c.Items[i], true
		}
	}
	return nil, false
}

// CartItem is one product line in a cart. Product fields are joined for display
// and reflect the product at read time.
type CartItem struct {
	ID            int64  `db:"id" json:"id"`
	CartID        int64  `db:"cart_id" json:"cart_id"`
	ProductID     int64  `db:"product_id" json:"product_id"`
	Quantity      int    `db:"quantity" json:"quantity"`
	ProductName   string `db:"product_name" json:"product_name"`
	PriceInRupiah int64  `db:"price_in_rupiah" json:"price_in_rupiah"`
	Audit
}

// Subtotal is price × quantity.
func (ci *CartItem) Subtotal() int64 {
	return ci.PriceInRupiah * int64(ci.Quantity)
}

// Order is a committed purchase. Items and Payment are loaded by the repository.
type Order struct {
	ID               int64       `db:"id" json:"id"`
	UserID           int64       `db:"user_id" json:"user_id"`
	OrderNumber      string      `db:"order_number" json:"order_number"`
	Status           OrderStatus `db:"status" json:"status"`
	AddressID        int64       `db:"address_id" json:"shipping_address_id"`
	ShippingProvider string      `db:"shipping_provider" json:"shipping_provider,omitempty"`
	TrackingNumber   string      `db:"tracking_number" json:"tracking_number,omitempty"`
	Items            []OrderItem `db:"-" json:"items"`
	Payment          *Payment    `db:"-" json:"payment,omitempty"`
	Audit
}

// TotalPrice is the sum of item subtotals; it is never stored.
func (o *Order) TotalPrice() int64 {
	var total int64
	for _, item := range o.Items {
		total += item.Subtotal()
	}
	return total
}

// TotalItems is the number of order lines.
func (o *Order) TotalItems() int {
	return len(o.Items)
}

// ContainsProduct reports whether any line references productID.
func (o *Order) ContainsProduct(productID int64) bool {
	for _, item := range o.Items {
		if item.ProductID == productID {
			return true
		}
	}
	return false
}

// OrderItem carries the price snapshot taken when the order was created.
type OrderItem struct {
	ID           int64  `db:"id" json:"id"`
	OrderID      int64  `db:"order_id" json:"order_id"`
	ProductID    int64  `db:"product_id" json:"product_id"`
	ProductName  string `db:"product_name" json:"product_name"`
	Quantity     int    `db:"quantity" json:"quantity"`
	PriceAtOrder int64  `db:"price_at_order" json:"price_at_order"`
}

// Subtotal is priceAtOrder × quantity.
func (oi *OrderItem) Subtotal() int64 {
	return oi.PriceAtOrder * int64(oi.Quantity)
}

// Payment is 1:1 with an order.
type Payment struct {
	ID        int64         `db:"id" json:"id"`
	OrderID   int64         `db:"order_id" json:"order_id"`
	Amount    int64         `db:"amount" json:"amount"`
	Status    PaymentStatus `db:"status" json:"status"`
	Method    PaymentMethod `db:"method" json:"method"`
	Reference string        `db:"reference" json:"reference,omitempty"`
	Audit
}

// ProductReview is unique per (user, product).
type ProductReview struct {
	ID        int64  `db:"id" json:"id"`
	UserID    int64  `db:"user_id" json:"user_id"`
	ProductID int64  `db:"product_id" json:"product_id"`
	OrderID   int64  `db:"order_id" json:"order_id"`
	Rating    int    `db:"rating" json:"rating"`
	Comment   string `db:"comment" json:"comment"`
	Audit
}
