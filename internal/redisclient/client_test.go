package redisclient

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	c, err := NewClient(addr, "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestIdempotencyLifecycle(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	scope := "test:" + uuid.New().String()
	t.Cleanup(func() { _ = c.Release(ctx, scope) })

	claimed, err := c.Claim(ctx, scope, time.Minute)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = c.Claim(ctx, scope, time.Minute)
	require.NoError(t, err)
	assert.False(t, claimed)

	_, found, err := c.Lookup(ctx, scope)
	require.NoError(t, err)
	assert.False(t, found, "in-flight claim is not a result")

	require.NoError(t, c.Complete(ctx, scope, 99, time.Minute))
	orderID, found, err := c.Lookup(ctx, scope)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(99), orderID)

	require.NoError(t, c.Release(ctx, scope))
	_, found, err = c.Lookup(ctx, scope)
	require.NoError(t, err)
	assert.False(t, found)
}
