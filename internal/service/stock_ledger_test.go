package service

import (
	"context"
	"errors"
	"testing"

	"ecommerce-service/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReserveAndRelease(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, 5, 1000)

	before, err := f.ledger.Reserve(f.ctx, p.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, before.StockQuantity)
	assert.Equal(t, 0, f.stock(t, p.ID))

	_, err = f.ledger.Reserve(f.ctx, p.ID, 1)
	assertKind(t, err, apperr.KindConflict)
	assert.Equal(t, apperr.CodeInsufficientStock, apperr.CodeOf(err))
	assert.Equal(t, 0, f.stock(t, p.ID))

	require.NoError(t, f.ledger.Release(f.ctx, p.ID, 7))
	assert.Equal(t, 7, f.stock(t, p.ID))
}

func TestReserveRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, 5, 1000)

	_, err := f.ledger.Reserve(f.ctx, p.ID, 0)
	assertKind(t, err, apperr.KindBadRequest)

	_, err = f.ledger.Reserve(f.ctx, 12345, 1)
	assertKind(t, err, apperr.KindNotFound)

	assertKind(t, f.ledger.Release(f.ctx, 12345, 1), apperr.KindNotFound)
}

func TestReserveInsideFailedTransactionIsUndone(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, 5, 1000)

	boom := errors.New("later step failed")
	err := f.store.RunInTx(f.ctx, func(ctx context.Context) error {
		if _, err := f.ledger.Reserve(ctx, p.ID, 3); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 5, f.stock(t, p.ID))
}
