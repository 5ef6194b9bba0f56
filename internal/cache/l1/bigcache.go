package l1

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/allegro/bigcache/v3"
	"go.uber.org/zap"

	"go-offline-cache/internal/config"
	"go-offline-cache/internal/interfaces"
	"go-offline-cache/internal/metrics"
	"go-offline-cache/internal/scheduler"
)

// Ensure BigCache implements interfaces.Cache
var _ interfaces.Cache = (*BigCache)(nil)

// BigCache implements the L1 store using BigCache
type BigCache struct {
	cache            *bigcache.BigCache
	capacityBytes    int64
	logger           *zap.Logger
	metricsScheduler *scheduler.Scheduler
}

// NewBigCache creates a new BigCache instance
func NewBigCache(bigcacheCfg *config.BigCacheConfig, logger *zap.Logger) (*BigCache, error) {
	cfg := bigcache.DefaultConfig(bigcacheCfg.LifeWindow)
	cfg.Shards = bigcacheCfg.Shards
	cfg.HardMaxCacheSize = bigcacheCfg.Size // Size in MB
	cfg.MaxEntrySize = bigcacheCfg.MaxEntrySize
	cfg.CleanWindow = 0 // entries leave only through Delete, size pressure or LifeWindow
	cfg.Verbose = false

	cache, err := bigcache.New(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	bc := &BigCache{
		cache:         cache,
		capacityBytes: int64(bigcacheCfg.Size) * 1024 * 1024,
		logger:        logger,
	}

	bc.startMetricsCollection()

	return bc, nil
}

// Get retrieves a value from the cache
func (bc *BigCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	data, err := bc.cache.Get(key)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return nil, false, nil
	}
	if err != nil {
		metrics.RecordCacheError("l1", "read")
		return nil, false, fmt.Errorf("l1 get %q: %w", key, err)
	}
	return data, true, nil
}

// Set stores a value in the cache
func (bc *BigCache) Set(_ context.Context, key string, val []byte) error {
	if err := bc.cache.Set(key, val); err != nil {
		bc.logger.Error("Failed to set cache entry", zap.String("key", key), zap.Error(err))
		metrics.RecordCacheError("l1", "write")
		return fmt.Errorf("l1 set %q: %w", key, err)
	}
	return nil
}

// Delete removes an entry from the cache
func (bc *BigCache) Delete(_ context.Context, key string) error {
	err := bc.cache.Delete(key)
	if err != nil && !errors.Is(err, bigcache.ErrEntryNotFound) {
		metrics.RecordCacheError("l1", "delete")
		return fmt.Errorf("l1 delete %q: %w", key, err)
	}
	return nil
}

// Keys lists keys starting with prefix in sorted order
func (bc *BigCache) Keys(_ context.Context, prefix string) ([]string, error) {
	var keys []string

	iterator := bc.cache.Iterator()
	for iterator.SetNext() {
		entry, err := iterator.Value()
		if err != nil {
			// entry evicted while iterating
			continue
		}
		if strings.HasPrefix(entry.Key(), prefix) {
			keys = append(keys, entry.Key())
		}
	}

	sort.Strings(keys)
	return keys, nil
}

// Close stops metrics collection and releases the cache
func (bc *BigCache) Close() error {
	bc.stopMetricsCollection()

	return bc.cache.Close()
}

// GetStats returns the configured capacity and the bytes currently allocated
func (bc *BigCache) GetStats() (capacity, used int64) {
	return bc.capacityBytes, int64(bc.cache.Capacity())
}

// startMetricsCollection starts periodic metrics collection
func (bc *BigCache) startMetricsCollection() {
	bc.metricsScheduler = scheduler.New(30*time.Second, func(context.Context) {
		bc.updateMetrics()
	})
	bc.metricsScheduler.Start()

	// Initial collection
	bc.updateMetrics()

	bc.logger.Debug("Started L1 cache metrics collection")
}

// stopMetricsCollection stops periodic metrics collection
func (bc *BigCache) stopMetricsCollection() {
	if bc.metricsScheduler != nil {
		bc.metricsScheduler.Stop()
		bc.logger.Debug("Stopped L1 cache metrics collection")
	}
}

// updateMetrics updates cache metrics
func (bc *BigCache) updateMetrics() {
	capacity, used := bc.GetStats()
	metrics.UpdateL1CacheCapacity(capacity, used)
	metrics.UpdateCacheKeys("l1", int64(bc.cache.Len()))
}
