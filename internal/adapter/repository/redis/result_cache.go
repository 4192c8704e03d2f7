package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ResultCache implements usecase.ResultCache using Redis. Keys are
// document checksums, values serialized pipeline results, so
// re-submitting an identical document is idempotent.
type ResultCache struct {
	client *redis.Client
	prefix string
}

// NewResultCache creates a new ResultCache.
func NewResultCache(client *redis.Client) *ResultCache {
	return &ResultCache{
		client: client,
		prefix: "result:",
	}
}

// Get retrieves a cached result. A miss returns (nil, nil).
func (c *ResultCache) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return value, nil
}

// Set stores a result with TTL.
func (c *ResultCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, c.prefix+key, value, ttl).Err()
}
