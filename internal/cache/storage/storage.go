package storage

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"go-offline-cache/internal/cache"
	"go-offline-cache/internal/interfaces"
	"go-offline-cache/internal/metrics"
)

// Ensure CacheStorage implements interfaces.CacheStorage
var _ interfaces.CacheStorage = (*CacheStorage)(nil)

// CacheStorage is the namespace registry over a byte-level store.
// A namespace exists exactly while at least one entry is stored under it,
// so there is no separate bookkeeping to drift out of sync with the entries.
type CacheStorage struct {
	cache      interfaces.Cache
	keyBuilder interfaces.KeyBuilder
	logger     *zap.Logger
}

// NewCacheStorage creates a namespace registry backed by the given store
func NewCacheStorage(store interfaces.Cache, keyBuilder interfaces.KeyBuilder, logger *zap.Logger) *CacheStorage {
	return &CacheStorage{
		cache:      store,
		keyBuilder: keyBuilder,
		logger:     logger,
	}
}

// Open returns a handle to the named namespace
func (s *CacheStorage) Open(_ context.Context, name string) (interfaces.Namespace, error) {
	if err := cache.ValidateNamespaceName(name); err != nil {
		return nil, err
	}
	return &namespace{name: name, storage: s}, nil
}

// Has reports whether the namespace holds any entry
func (s *CacheStorage) Has(ctx context.Context, name string) (bool, error) {
	keys, err := s.cache.Keys(ctx, s.keyBuilder.NamespacePrefix(name))
	if err != nil {
		return false, fmt.Errorf("failed to list namespace %s: %w", name, err)
	}
	return len(keys) > 0, nil
}

// Delete removes every entry of the namespace. It reports whether the
// namespace existed.
func (s *CacheStorage) Delete(ctx context.Context, name string) (bool, error) {
	keys, err := s.cache.Keys(ctx, s.keyBuilder.NamespacePrefix(name))
	if err != nil {
		return false, fmt.Errorf("failed to list namespace %s: %w", name, err)
	}
	if len(keys) == 0 {
		return false, nil
	}

	for _, key := range keys {
		if err := s.cache.Delete(ctx, key); err != nil {
			return true, fmt.Errorf("failed to delete namespace %s: %w", name, err)
		}
	}

	metrics.RecordNamespaceDeletion()
	s.logger.Info("Deleted cache namespace", zap.String("namespace", name), zap.Int("entries", len(keys)))
	return true, nil
}

// DeleteAll removes every namespace and returns how many were deleted
func (s *CacheStorage) DeleteAll(ctx context.Context) (int, error) {
	names, err := s.Names(ctx)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, name := range names {
		existed, err := s.Delete(ctx, name)
		if err != nil {
			return deleted, err
		}
		if existed {
			deleted++
		}
	}
	return deleted, nil
}

// Names lists the existing namespaces in sorted order
func (s *CacheStorage) Names(ctx context.Context) ([]string, error) {
	keys, err := s.cache.Keys(ctx, s.keyBuilder.Root())
	if err != nil {
		return nil, fmt.Errorf("failed to list namespaces: %w", err)
	}

	seen := make(map[string]struct{})
	for _, key := range keys {
		if name, ok := s.keyBuilder.ParseNamespace(key); ok {
			seen[name] = struct{}{}
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
