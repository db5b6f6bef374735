package redisclient

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// pendingMarker is stored while the request that claimed a key is still running.
const pendingMarker = "pending"

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client and checks the connection
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Ping checks the connection
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func idempotencyKey(scope string) string {
	return fmt.Sprintf("idempotency:%s", scope)
}

// Claim marks scope as in flight. It returns false when another request holds
// or already completed the key.
func (c *Client) Claim(ctx context.Context, scope string, ttl time.Duration) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, idempotencyKey(scope), pendingMarker, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("idempotency claim failed: %w", err)
	}
	return ok, nil
}

// Lookup returns the order recorded for scope. found is false for a missing
// key and for a key that is still in flight.
func (c *Client) Lookup(ctx context.Context, scope string) (int64, bool, error) {
	value, err := c.rdb.Get(ctx, idempotencyKey(scope)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("idempotency lookup failed: %w", err)
	}
	if value == pendingMarker {
		return 0, false, nil
	}

	orderID, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt idempotency value %q: %w", value, err)
	}
	return orderID, true, nil
}

// Complete records the order created for scope
func (c *Client) Complete(ctx context.Context, scope string, orderID int64, ttl time.Duration) error {
	return c.rdb.Set(ctx, idempotencyKey(scope), orderID, ttl).Err()
}

// Release drops a claim so the client may retry
func (c *Client) Release(ctx context.Context, scope string) error {
	return c.rdb.Del(ctx, idempotencyKey(scope)).Err()
}
