package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// MemoryCache implements an in-memory cache. Values are stored as JSON
// so Get/Set behave the same as the Redis implementation.
type MemoryCache struct {
	mu         sync.RWMutex
	items      map[string]memoryItem
	maxItems   int
	defaultTTL time.Duration
}

type memoryItem struct {
	data       []byte
	expiration time.Time
}

// NewMemoryCache creates a new in-memory cache
func NewMemoryCache(maxItems int, defaultTTL time.Duration) Cache {
	return &MemoryCache{
		items:      make(map[string]memoryItem),
		maxItems:   maxItems,
		defaultTTL: defaultTTL,
	}
}

// Get retrieves a value from the cache
func (c *MemoryCache) Get(ctx context.Context, key string, value any) error {
	c.mu.RLock()
	item, exists := c.items[key]
	c.mu.RUnlock()

	if !exists || time.Now().After(item.expiration) {
		return ErrNotFound
	}
	return json.Unmarshal(item.data, value)
}

// Set stores a value in the cache
func (c *MemoryCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if ttl == 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Evict expired entries when at capacity; if still full, drop the
	// soonest-to-expire entry.
	if len(c.items) >= c.maxItems {
		now := time.Now()
		var oldestKey string
		var oldestExp time.Time
		for k, it := range c.items {
			if now.After(it.expiration) {
				delete(c.items, k)
				continue
			}
			if oldestKey == "" || it.expiration.Before(oldestExp) {
				oldestKey = k
				oldestExp = it.expiration
			}
		}
		if len(c.items) >= c.maxItems && oldestKey != "" {
			delete(c.items, oldestKey)
		}
	}

	c.items[key] = memoryItem{
		data:       data,
		expiration: time.Now().Add(ttl),
	}
	return nil
}

// Delete removes a value from the cache
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	return nil
}

// Exists checks if a key exists and has not expired
func (c *MemoryCache) Exists(ctx context.Context, key string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, exists := c.items[key]
	if !exists || time.Now().After(item.expiration) {
		return false, nil
	}
	return true, nil
}

// Flush clears all values
func (c *MemoryCache) Flush(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]memoryItem)
	return nil
}

// Close is a no-op for the memory cache
func (c *MemoryCache) Close() error { return nil }
