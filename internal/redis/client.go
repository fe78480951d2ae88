package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrCacheMiss is returned when a key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

type Client struct {
	rdb *redis.Client
	ttl time.Duration
}

func Initialize(redisURL string, ttl time.Duration) (*Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := NewClient(redis.NewClient(opt), ttl)

	// Test connection
	if err := client.Ping(context.Background()); err != nil {
		return nil, err
	}

	return client, nil
}

// NewClient wraps an existing go-redis client.
func NewClient(rdb *redis.Client, ttl time.Duration) *Client {
	return &Client{rdb: rdb, ttl: ttl}
}

func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return nil
}

func breakdownKey(orderID uint) string {
	return fmt.Sprintf("breakdown:%d", orderID)
}

// storeBreakdown writes the entry only when it is newer than the cached one. A deleted
// entry keeps refusing writes until it expires.
var storeBreakdown = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'version')
if redis.call('HEXISTS', KEYS[1], 'deleted') == 1 then
	return 0
end
if cur and tonumber(cur) >= tonumber(ARGV[1]) then
	return 0
end
redis.call('HSET', KEYS[1], 'version', ARGV[1], 'data', ARGV[2])
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return 1
`)

// Order breakdown caching

// StoreBreakdown caches value for the given order version. Older or equal versions than
// the cached one are ignored, so a slow reader cannot overwrite a committed write.
func (c *Client) StoreBreakdown(ctx context.Context, orderID uint, version int, value interface{}) error {
	jsonData, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal breakdown: %w", err)
	}

	err = storeBreakdown.Run(ctx, c.rdb, []string{breakdownKey(orderID)},
		version, string(jsonData), c.ttl.Milliseconds()).Err()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("failed to store breakdown: %w", err)
	}
	return nil
}

func (c *Client) GetBreakdown(ctx context.Context, orderID uint, dest interface{}) error {
	val, err := c.rdb.HGet(ctx, breakdownKey(orderID), "data").Bytes()
	if err != nil {
		if err == redis.Nil {
			return ErrCacheMiss
		}
		return fmt.Errorf("failed to get breakdown: %w", err)
	}

	if err := json.Unmarshal(val, dest); err != nil {
		return fmt.Errorf("failed to unmarshal breakdown: %w", err)
	}
	return nil
}

// InvalidateBreakdown drops the cached entry of a deleted order and blocks late writes
// for the cache TTL.
func (c *Client) InvalidateBreakdown(ctx context.Context, orderID uint) error {
	key := breakdownKey(orderID)
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, "deleted", 1)
		pipe.Expire(ctx, key, c.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to invalidate breakdown: %w", err)
	}
	return nil
}

// Close Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}
