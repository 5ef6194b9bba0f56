package multi

import (
	"context"
	"errors"
	"sort"

	"go.uber.org/zap"

	"go-offline-cache/internal/interfaces"
)

// Ensure MultiCache implements interfaces.Cache
var _ interfaces.Cache = (*MultiCache)(nil)

// MultiCache implements a composite cache over an ordered list of tiers.
// Reads go through the tiers in order, writes and deletes reach every tier.
type MultiCache struct {
	caches            []interfaces.Cache
	enablePropagation bool
	logger            *zap.Logger
}

// NewMultiCache creates a new MultiCache instance with provided cache implementations.
// With enablePropagation set, a hit in a lower tier is copied into the tiers above it.
func NewMultiCache(caches []interfaces.Cache, enablePropagation bool, logger *zap.Logger) *MultiCache {
	return &MultiCache{
		caches:            caches,
		enablePropagation: enablePropagation,
		logger:            logger,
	}
}

// Get retrieves value from the first cache that has the key
func (mc *MultiCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if len(mc.caches) == 0 {
		mc.logger.Warn("No caches available for get operation", zap.String("key", key))
		return nil, false, nil
	}

	for i, cache := range mc.caches {
		val, found, err := cache.Get(ctx, key)
		if err != nil {
			return nil, false, err
		}
		if found {
			if mc.enablePropagation && i > 0 {
				mc.propagate(ctx, key, val, i)
			}
			return val, true, nil
		}
	}
	return nil, false, nil
}

// propagate copies a value found at tier `found` into every tier above it
func (mc *MultiCache) propagate(ctx context.Context, key string, val []byte, found int) {
	for i := 0; i < found; i++ {
		if err := mc.caches[i].Set(ctx, key, val); err != nil {
			mc.logger.Warn("Failed to propagate cache entry",
				zap.String("key", key),
				zap.Int("tier", i),
				zap.Error(err))
		}
	}
}

// Set stores value in all caches
func (mc *MultiCache) Set(ctx context.Context, key string, val []byte) error {
	if len(mc.caches) == 0 {
		mc.logger.Warn("No caches available for set operation", zap.String("key", key))
		return nil
	}

	var errs []error
	for _, cache := range mc.caches {
		if err := cache.Set(ctx, key, val); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Delete removes entry from all caches
func (mc *MultiCache) Delete(ctx context.Context, key string) error {
	if len(mc.caches) == 0 {
		mc.logger.Warn("No caches available for delete operation", zap.String("key", key))
		return nil
	}

	var errs []error
	for _, cache := range mc.caches {
		if err := cache.Delete(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Keys returns the sorted union of the keys held by every cache
func (mc *MultiCache) Keys(ctx context.Context, prefix string) ([]string, error) {
	seen := make(map[string]struct{})
	for _, cache := range mc.caches {
		keys, err := cache.Keys(ctx, prefix)
		if err != nil {
			return nil, err
		}
		for _, key := range keys {
			seen[key] = struct{}{}
		}
	}

	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

// GetCacheCount returns the number of caches in the multi-cache
func (mc *MultiCache) GetCacheCount() int {
	return len(mc.caches)
}
