package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name    string `json:"name"`
	Version int    `json:"version"`
}

func newRedisCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	c, err := NewRedisCache(RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestRedisCacheRoundTrip(t *testing.T) {
	c, _ := newRedisCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "tool:tenant-1:tool-1", payload{Name: "jira", Version: 3}, time.Minute))

	var got payload
	require.NoError(t, c.Get(ctx, "tool:tenant-1:tool-1", &got))
	assert.Equal(t, "jira", got.Name)
	assert.Equal(t, 3, got.Version)
}

func TestRedisCacheMissReturnsNotFound(t *testing.T) {
	c, _ := newRedisCache(t)

	var got payload
	err := c.Get(context.Background(), "missing", &got)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisCacheDelete(t *testing.T) {
	c, _ := newRedisCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key", payload{Name: "x"}, time.Minute))
	require.NoError(t, c.Delete(ctx, "key"))

	exists, err := c.Exists(ctx, "key")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRedisCacheExpiry(t *testing.T) {
	c, mr := newRedisCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key", payload{Name: "x"}, time.Second))
	mr.FastForward(2 * time.Second)

	var got payload
	err := c.Get(ctx, "key", &got)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisCacheConnectFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisCache(RedisConfig{Address: addr, DialTimeout: 1})
	assert.Error(t, err)
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	c := NewMemoryCache(10, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key", payload{Name: "jira", Version: 2}, 0))

	var got payload
	require.NoError(t, c.Get(ctx, "key", &got))
	assert.Equal(t, 2, got.Version)
}

func TestMemoryCacheExpiredEntryIsAMiss(t *testing.T) {
	c := NewMemoryCache(10, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key", payload{Name: "x"}, time.Nanosecond))
	time.Sleep(time.Millisecond)

	var got payload
	assert.ErrorIs(t, c.Get(ctx, "key", &got), ErrNotFound)
}

func TestMemoryCacheEvictsWhenFull(t *testing.T) {
	c := NewMemoryCache(2, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", payload{Name: "a"}, time.Minute))
	require.NoError(t, c.Set(ctx, "b", payload{Name: "b"}, time.Hour))
	require.NoError(t, c.Set(ctx, "c", payload{Name: "c"}, time.Hour))

	// "a" expires soonest, so it is the one dropped
	var got payload
	assert.ErrorIs(t, c.Get(ctx, "a", &got), ErrNotFound)
	assert.NoError(t, c.Get(ctx, "b", &got))
	assert.NoError(t, c.Get(ctx, "c", &got))
}

func TestMemoryCacheFlush(t *testing.T) {
	c := NewMemoryCache(10, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key", payload{Name: "x"}, time.Minute))
	require.NoError(t, c.Flush(ctx))

	exists, err := c.Exists(ctx, "key")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestNoOpCacheAlwaysMisses(t *testing.T) {
	c := NewNoOpCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key", payload{Name: "x"}, time.Minute))

	var got payload
	assert.ErrorIs(t, c.Get(ctx, "key", &got), ErrNotFound)

	exists, err := c.Exists(ctx, "key")
	require.NoError(t, err)
	assert.False(t, exists)
}
