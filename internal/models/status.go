package models

import (
	"fmt"
	"strings"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

// Order statuses
const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusCompleted OrderStatus = "COMPLETED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
	OrderStatusFailed    OrderStatus = "FAILED"
)

// orderTransitions lists the only legal edges. Terminal states have no entry.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:   {OrderStatusCompleted, OrderStatusCancelled},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s OrderStatus) IsTerminal() bool {
	return len(orderTransitions[s]) == 0
}

func (s OrderStatus) String() string { return string(s) }

// IsValid reports whether s is a known status.
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusShipped,
		OrderStatusCompleted, OrderStatusCancelled, OrderStatusFailed:
		return true
	default:
		return false
	}
}

// ParseOrderStatus parses a status name case-insensitively.
func ParseOrderStatus(raw string) (OrderStatus, error) {
	s := OrderStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.IsValid() {
		return "", fmt.Errorf("unknown order status %q", raw)
	}
	return s, nil
}

// PaymentStatus is the state of an order's payment.
type PaymentStatus string

// Payment statuses
const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusPaid    PaymentStatus = "PAID"
	PaymentStatusFailed  PaymentStatus = "FAILED"
)

// PaymentMethod is how the customer intends to pay.
type PaymentMethod string

// Payment methods
const (
	PaymentMethodBankTransfer   PaymentMethod = "BANK_TRANSFER"
	PaymentMethodCreditCard     PaymentMethod = "CREDIT_CARD"
	PaymentMethodEWallet        PaymentMethod = "E_WALLET"
	PaymentMethodCashOnDelivery PaymentMethod = "COD"
)

// ParsePaymentMethod parses a payment method name case-insensitively.
func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	m := PaymentMethod(strings.ToUpper(strings.TrimSpace(raw)))
	switch m {
	case PaymentMethodBankTransfer, PaymentMethodCreditCard, PaymentMethodEWallet, PaymentMethodCashOnDelivery:
		return m, nil
	default:
		return "", fmt.Errorf("unknown payment method %q", raw)
	}
}
