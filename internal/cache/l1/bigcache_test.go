package l1

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"go-offline-cache/internal/config"
)

func newTestBigCache(t *testing.T) *BigCache {
	t.Helper()

	cfg := &config.BigCacheConfig{
		Enabled:      true,
		Size:         8,
		Shards:       16,
		LifeWindow:   time.Hour,
		MaxEntrySize: 4096,
	}

	cache, err := NewBigCache(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })

	return cache
}

func TestNewBigCache(t *testing.T) {
	cache := newTestBigCache(t)

	assert.NotNil(t, cache.cache)
	assert.NotNil(t, cache.metricsScheduler)
	assert.True(t, cache.metricsScheduler.IsRunning())
}

func TestNewBigCache_InvalidShards(t *testing.T) {
	cfg := &config.BigCacheConfig{Size: 8, Shards: 3, LifeWindow: time.Hour, MaxEntrySize: 1024}

	_, err := NewBigCache(cfg, zap.NewNop())

	assert.Error(t, err, "bigcache requires a power of two shard count")
}

func TestBigCache_Set_And_Get(t *testing.T) {
	ctx := context.Background()
	cache := newTestBigCache(t)

	require.NoError(t, cache.Set(ctx, "test-key", []byte("test-value")))

	val, found, err := cache.Get(ctx, "test-key")

	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("test-value"), val)
}

func TestBigCache_Get_NotFound(t *testing.T) {
	cache := newTestBigCache(t)

	val, found, err := cache.Get(context.Background(), "non-existent-key")

	assert.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, val)
}

func TestBigCache_Set_Overwrites(t *testing.T) {
	ctx := context.Background()
	cache := newTestBigCache(t)

	require.NoError(t, cache.Set(ctx, "key", []byte("first")))
	require.NoError(t, cache.Set(ctx, "key", []byte("second")))

	val, found, err := cache.Get(ctx, "key")
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("second"), val)
}

func TestBigCache_Delete(t *testing.T) {
	ctx := context.Background()
	cache := newTestBigCache(t)

	require.NoError(t, cache.Set(ctx, "test-key", []byte("test-value")))
	require.NoError(t, cache.Delete(ctx, "test-key"))

	_, found, err := cache.Get(ctx, "test-key")
	assert.NoError(t, err)
	assert.False(t, found)
}

func TestBigCache_Delete_NonExistent(t *testing.T) {
	cache := newTestBigCache(t)

	assert.NoError(t, cache.Delete(context.Background(), "non-existent-key"))
}

func TestBigCache_Keys(t *testing.T) {
	ctx := context.Background()
	cache := newTestBigCache(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, cache.Set(ctx, fmt.Sprintf("offline:app-v1-static|GET /%d.js", i), []byte("x")))
	}
	require.NoError(t, cache.Set(ctx, "offline:app-v1-api|GET /api/me", []byte("x")))
	require.NoError(t, cache.Set(ctx, "unrelated", []byte("x")))

	keys, err := cache.Keys(ctx, "offline:app-v1-static|")
	require.NoError(t, err)
	assert.Len(t, keys, 5)
	assert.Equal(t, "offline:app-v1-static|GET /0.js", keys[0])

	all, err := cache.Keys(ctx, "offline:")
	require.NoError(t, err)
	assert.Len(t, all, 6)

	none, err := cache.Keys(ctx, "missing:")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestBigCache_Set_TooLarge(t *testing.T) {
	cache := newTestBigCache(t)

	// 8MB spread over 16 shards leaves 512KB per shard
	err := cache.Set(context.Background(), "huge", make([]byte, 1024*1024))

	assert.Error(t, err)
}

func TestBigCache_GetStats(t *testing.T) {
	cache := newTestBigCache(t)

	capacity, used := cache.GetStats()

	assert.Equal(t, int64(8*1024*1024), capacity)
	assert.GreaterOrEqual(t, used, int64(0))
}

func TestBigCache_Concurrent_Access(t *testing.T) {
	ctx := context.Background()
	cache := newTestBigCache(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("concurrent-key-%d-%d", id, j)
				value := []byte(fmt.Sprintf("value-%d-%d", id, j))

				assert.NoError(t, cache.Set(ctx, key, value))

				result, found, err := cache.Get(ctx, key)
				assert.NoError(t, err)
				if found {
					assert.Equal(t, value, result)
				}

				assert.NoError(t, cache.Delete(ctx, key))
			}
		}(i)
	}
	wg.Wait()
}
