package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache stores entries in Redis so several SDK instances can share
// cached reads. Expiry is delegated to Redis.
type RedisCache struct {
	client redis.UniversalClient
	policy Policy
}

// NewRedisCache creates a cache over client. A nil client returns ErrNilCache.
func NewRedisCache(client redis.UniversalClient, policy Policy) (*RedisCache, error) {
	if client == nil {
		return nil, ErrNilCache
	}
	return &RedisCache{client: client, policy: policy}, nil
}

// Get retrieves a value. Redis errors are reported as a miss.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return val, true
}

// Set stores value with ttl clamped to the policy's MaxTTL. TTL=0 means no
// caching.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if c.policy.MaxTTL > 0 && ttl > c.policy.MaxTTL {
		ttl = c.policy.MaxTTL
	}
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("cache: redis set %s: %w", key, err)
	}
	return nil
}

// Delete removes a value. Idempotent - no error on miss.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("cache: redis delete %s: %w", key, err)
	}
	return nil
}

var _ Cache = (*RedisCache)(nil)
