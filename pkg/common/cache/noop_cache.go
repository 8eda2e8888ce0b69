package cache

import (
	"context"
	"time"
)

// NoOpCache is a cache that stores nothing. Used for graceful
// degradation when the cache backend is unavailable.
type NoOpCache struct{}

// NewNoOpCache creates a new NoOpCache
func NewNoOpCache() Cache { return &NoOpCache{} }

// Get always reports a miss
func (c *NoOpCache) Get(ctx context.Context, key string, value any) error {
	return ErrNotFound
}

// Set discards the value
func (c *NoOpCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	return nil
}

// Delete is a no-op
func (c *NoOpCache) Delete(ctx context.Context, key string) error { return nil }

// Exists always reports absence
func (c *NoOpCache) Exists(ctx context.Context, key string) (bool, error) { return false, nil }

// Flush is a no-op
func (c *NoOpCache) Flush(ctx context.Context) error { return nil }

// Close is a no-op
func (c *NoOpCache) Close() error { return nil }
