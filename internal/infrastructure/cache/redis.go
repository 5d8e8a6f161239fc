package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hszk-dev/mediavault/internal/domain/repository"
)

const (
	// signedURLKeyPrefix is the prefix for signed-URL cache keys in Redis.
	signedURLKeyPrefix = "surl:"
)

// grantJSON is the JSON representation of a grant for caching.
// Using an explicit struct avoids coupling to the domain type's field names.
type grantJSON struct {
	URL       string `json:"url"`
	ExpiresAt int64  `json:"expires_at"`
}

// RedisSignedURLCache implements SignedURLCache using Redis as the backing store.
type RedisSignedURLCache struct {
	client *redis.Client
}

// Compile-time verification that RedisSignedURLCache implements SignedURLCache.
var _ SignedURLCache = (*RedisSignedURLCache)(nil)

// NewRedisSignedURLCache creates a new Redis-backed signed-URL cache.
func NewRedisSignedURLCache(client *redis.Client) *RedisSignedURLCache {
	return &RedisSignedURLCache{
		client: client,
	}
}

// Get retrieves a cached grant.
// Returns nil, nil on cache miss.
func (c *RedisSignedURLCache) Get(ctx context.Context, key string) (*repository.SignedURLGrant, error) {
	data, err := c.client.Get(ctx, c.buildKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Cache miss
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var g grantJSON
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("deserialize grant: %w", err)
	}

	return &repository.SignedURLGrant{URL: g.URL, ExpiresAt: g.ExpiresAt}, nil
}

// Set stores a grant with the specified TTL.
func (c *RedisSignedURLCache) Set(ctx context.Context, key string, grant repository.SignedURLGrant, ttl time.Duration) error {
	data, err := json.Marshal(grantJSON{URL: grant.URL, ExpiresAt: grant.ExpiresAt})
	if err != nil {
		return fmt.Errorf("serialize grant: %w", err)
	}

	if err := c.client.Set(ctx, c.buildKey(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

// Delete drops the cached grant for a key.
func (c *RedisSignedURLCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.buildKey(key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}

	return nil
}

// buildKey constructs the Redis key for an object key.
func (c *RedisSignedURLCache) buildKey(key string) string {
	return signedURLKeyPrefix + key
}
