package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/schoolms/backend/internal/domain/identity"
)

// RedisTenantCache implements the durable tenant cache on Redis. It survives
// process restarts and is the "durable cache" step of tenant resolution.
type RedisTenantCache struct {
	client *redis.Client
	key    string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisTenantCache creates a Redis-backed tenant cache
func NewRedisTenantCache(cfg RedisConfig, key string) (*RedisTenantCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisTenantCacheWithClient(client, key), nil
}

// NewRedisTenantCacheWithClient creates a cache with an existing Redis client.
// This is useful for testing or when sharing a client across components.
func NewRedisTenantCacheWithClient(client *redis.Client, key string) *RedisTenantCache {
	if key == "" {
		key = "currentTenantId"
	}
	return &RedisTenantCache{
		client: client,
		key:    key,
	}
}

// Get returns the cached tenant id, or "" when absent
func (c *RedisTenantCache) Get(ctx context.Context) (string, error) {
	val, err := c.client.Get(ctx, c.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", identity.NewTransientError("tenant cache read", err)
	}
	return val, nil
}

// Set stores the tenant id without expiry. Writes are idempotent
// last-writer-wins, so a late write after a caller timed out is harmless.
func (c *RedisTenantCache) Set(ctx context.Context, tenantID string) error {
	if err := c.client.Set(ctx, c.key, tenantID, 0).Err(); err != nil {
		return identity.NewTransientError("tenant cache write", err)
	}
	return nil
}

// Remove deletes the cached tenant id
func (c *RedisTenantCache) Remove(ctx context.Context) error {
	if err := c.client.Del(ctx, c.key).Err(); err != nil {
		return identity.NewTransientError("tenant cache remove", err)
	}
	return nil
}

// Close closes the underlying Redis client
func (c *RedisTenantCache) Close() error {
	return c.client.Close()
}

// Ensure RedisTenantCache implements identity.TenantCache
var _ identity.TenantCache = (*RedisTenantCache)(nil)
