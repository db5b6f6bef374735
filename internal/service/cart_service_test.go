package service

import (
	"testing"

	"ecommerce-service/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetCartCreatesOnce(t *testing.T) {
	f := newFixture(t)

	first, err := f.carts.GetCart(f.ctx, f.userID)
	require.NoError(t, err)
	assert.Empty(t, first.Items)

	second, err := f.carts.GetCart(f.ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestAddItemMergesDuplicateProduct(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, 10, 150000)

	f.addToCart(t, p.ID, 2)
	cart, err := f.carts.AddItem(f.ctx, f.userID, p.ID, 3)
	require.NoError(t, err)

	require.Len(t, cart.Items, 1)
	assert.Equal(t, 5, cart.Items[0].Quantity)
	assert.Equal(t, 5, cart.TotalItems())
	assert.Equal(t, int64(750000), cart.TotalPrice())
}

func TestAddItemMergeSkipsStockCheck(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, 4, 1000)

	f.addToCart(t, p.ID, 3)
	cart, err := f.carts.AddItem(f.ctx, f.userID, p.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 6, cart.Items[0].Quantity)
	assert.Equal(t, 4, f.stock(t, p.ID))
}

func TestAddItemNewLineChecksStock(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, 2, 1000)

	_, err := f.carts.AddItem(f.ctx, f.userID, p.ID, 3)
	assertKind(t, err, apperr.KindConflict)
	assert.Equal(t, apperr.CodeInsufficientStock, apperr.CodeOf(err))

	cart, err := f.carts.GetCart(f.ctx, f.userID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestAddItemRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, 2, 1000)

	_, err := f.carts.AddItem(f.ctx, f.userID, p.ID, 0)
	assertKind(t, err, apperr.KindBadRequest)

	_, err = f.carts.AddItem(f.ctx, f.userID, 9999, 1)
	assertKind(t, err, apperr.KindNotFound)
}

func TestUpdateItemQuantity(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, 5, 1000)
	itemID := f.addToCart(t, p.ID, 1)

	cart, err := f.carts.UpdateItemQuantity(f.ctx, f.userID, itemID, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, cart.Items[0].Quantity)

	_, err = f.carts.UpdateItemQuantity(f.ctx, f.userID, itemID, 6)
	assertKind(t, err, apperr.KindConflict)

	_, err = f.carts.UpdateItemQuantity(f.ctx, f.userID+1, itemID, 2)
	assertKind(t, err, apperr.KindNotFound)

	_, err = f.carts.UpdateItemQuantity(f.ctx, f.userID, itemID, 0)
	assertKind(t, err, apperr.KindBadRequest)
}

func TestRemoveAndClear(t *testing.T) {
	f := newFixture(t)
	a := f.product(t, 5, 1000)
	b := f.product(t, 5, 2000)
	itemA := f.addToCart(t, a.ID, 1)
	f.addToCart(t, b.ID, 2)

	_, err := f.carts.RemoveItem(f.ctx, f.userID+1, itemA)
	assertKind(t, err, apperr.KindNotFound)

	cart, err := f.carts.RemoveItem(f.ctx, f.userID, itemA)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, b.ID, cart.Items[0].ProductID)

	_, err = f.carts.RemoveItem(f.ctx, f.userID, itemA)
	assertKind(t, err, apperr.KindNotFound)

	count, err := f.carts.CountItems(f.ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	cart, err = f.carts.ClearCart(f.ctx, f.userID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	count, err = f.carts.CountItems(f.ctx, f.userID)
	require.NoError(t, err)
	assert.Zero(t, count)
}
