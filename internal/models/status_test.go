package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusShipped,
	OrderStatusCompleted,
	OrderStatusCancelled,
	OrderStatusFailed,
}

func TestCanTransition(t *testing.T) {
	allowed := map[[2]OrderStatus]bool{
		{OrderStatusPending, OrderStatusConfirmed}:   true,
		{OrderStatusPending, OrderStatusCancelled}:   true,
		{OrderStatusConfirmed, OrderStatusShipped}:   true,
		{OrderStatusConfirmed, OrderStatusCancelled}: true,
		{OrderStatusShipped, OrderStatusCompleted}:   true,
		{OrderStatusShipped, OrderStatusCancelled}:   true,
	}

	for _, from := range allStatuses {
		for _, to := range allStatuses {
			want := allowed[[2]OrderStatus{from, to}]
			assert.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestCanTransition_NoSelfTransitions(t *testing.T) {
	for _, s := range allStatuses {
		assert.False(t, CanTransition(s, s), "self transition allowed for %s", s)
	}
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, OrderStatusCompleted.IsTerminal())
	assert.True(t, OrderStatusCancelled.IsTerminal())
	assert.True(t, OrderStatusFailed.IsTerminal())
	assert.False(t, OrderStatusPending.IsTerminal())
	assert.False(t, OrderStatusConfirmed.IsTerminal())
	assert.False(t, OrderStatusShipped.IsTerminal())
}

func TestCanTransition_UnknownStatus(t *testing.T) {
	assert.False(t, CanTransition("DELIVERED", OrderStatusCompleted))
	assert.False(t, CanTransition(OrderStatusShipped, "DELIVERED"))
}

func TestParseOrderStatus(t *testing.T) {
	s, err := ParseOrderStatus(" shipped ")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusShipped, s)

	_, err = ParseOrderStatus("delivered")
	assert.Error(t, err)
}

func TestParsePaymentMethod(t *testing.T) {
	m, err := ParsePaymentMethod("e_wallet")
	require.NoError(t, err)
	assert.Equal(t, PaymentMethodEWallet, m)

	_, err = ParsePaymentMethod("barter")
	assert.Error(t, err)
}

func TestOrderTotals(t *testing.T) {
	order := &Order{Items: []OrderItem{
		{ProductID: 1, Quantity: 3, PriceAtOrder: 15000},
		{ProductID: 2, Quantity: 1, PriceAtOrder: 2500},
	}}

	assert.Equal(t, int64(3*15000+2500), order.TotalPrice())
	assert.Equal(t, 2, order.TotalItems())
	assert.True(t, order.ContainsProduct(2))
	assert.False(t, order.ContainsProduct(3))
}

func TestCartTotals(t *testing.T) {
	cart := &Cart{Items: []CartItem{
		{ID: 10, ProductID: 1, Quantity: 2, PriceInRupiah: 1000},
		{ID: 11, ProductID: 2, Quantity: 5, PriceInRupiah: 100},
	}}

	assert.Equal(t, 7, cart.TotalItems())
	assert.Equal(t, int64(2500), cart.TotalPrice())

	item, ok := cart.FindItem(11)
	require.True(t, ok)
	assert.Equal(t, int64(2), item.ProductID)

	_, ok = cart.FindItem(99)
	assert.False(t, ok)
}
