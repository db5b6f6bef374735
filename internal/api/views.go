package api

import (
	"time"

	"ecommerce-service/internal/models"
)

// OrderView is the client representation of an order
type OrderView struct {
	ID                int64              `json:"id"`
	OrderNumber       string             `json:"order_number"`
	OrderStatus       models.OrderStatus `json:"order_status"`
	PaymentStatus     string             `json:"payment_status"`
	PaymentMethod     string             `json:"payment_method"`
	PaymentReference  string             `json:"payment_reference,omitempty"`
	TotalPrice        int64              `json:"total_price"`
	TotalItems        int                `json:"total_items"`
	ShippingAddressID int64              `json:"shipping_address_id"`
	ShippingProvider  string             `json:"shipping_provider,omitempty"`
	TrackingNumber    string             `json:"tracking_number,omitempty"`
	Items             []OrderItemView    `json:"items"`
	CreatedAt         time.Time          `json:"created_at"`
}

// OrderItemView is one line of an OrderView
type OrderItemView struct {
	ID           int64  `json:"id"`
	ProductID    int64  `json:"product_id"`
	ProductName  string `json:"product_name"`
	Quantity     int    `json:"quantity"`
	PriceAtOrder int64  `json:"price_at_order"`
	Subtotal     int64  `json:"subtotal"`
}

func newOrderView(o models.Order) OrderView {
	v := OrderView{
		ID:                o.ID,
		OrderNumber:       o.OrderNumber,
		OrderStatus:       o.Status,
		TotalPrice:        o.TotalPrice(),
		TotalItems:        o.TotalItems(),
		ShippingAddressID: o.AddressID,
		ShippingProvider:  o.ShippingProvider,
		TrackingNumber:    o.TrackingNumber,
		Items:             make([]OrderItemView, 0, len(o.Items)),
		CreatedAt:         o.CreatedAt,
	}
	if o.Payment != nil {
		v.PaymentStatus = string(o.Payment.Status)
		v.PaymentMethod = string(o.Payment.Method)
		v.PaymentReference = o.Payment.Reference
	}
	for _, item := range o.Items {
		v.Items = append(v.Items, OrderItemView{
			ID:           item.ID,
			ProductID:    item.ProductID,
			ProductName:  item.ProductName,
			Quantity:     item.Quantity,
			PriceAtOrder: item.PriceAtOrder,
			Subtotal:     item.Subtotal(),
		})
	}
	return v
}

// CartView is the client representation of a cart
type CartView struct {
	ID         int64          `json:"id"`
	Items      []CartItemView `json:"items"`
	TotalPrice int64          `json:"total_price"`
	TotalItems int            `json:"total_items"`
}

// CartItemView is one line of a CartView
type CartItemView struct {
	ID            int64  `json:"id"`
	ProductID     int64  `json:"product_id"`
	ProductName   string `json:"product_name"`
	PriceInRupiah int64  `json:"price_in_rupiah"`
	Quantity      int    `json:"quantity"`
	Subtotal      int64  `json:"subtotal"`
}

func newCartView(c *models.Cart) CartView {
	v := CartView{
		ID:         c.ID,
		Items:      make([]CartItemView, 0, len(c.Items)),
		TotalPrice: c.TotalPrice(),
		TotalItems: c.TotalItems(),
	}
	for _, item := range c.Items {
		v.Items = append(v.Items, CartItemView{
			ID:            item.ID,
			ProductID:     item.ProductID,
			ProductName:   item.ProductName,
			PriceInRupiah: item.PriceInRupiah,
			Quantity:      item.Quantity,
			Subtotal:      item.Subtotal(),
		})
	}
	return v
}
