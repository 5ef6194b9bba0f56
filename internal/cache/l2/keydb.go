package l2

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"go-offline-cache/internal/config"
	"go-offline-cache/internal/interfaces"
	"go-offline-cache/internal/metrics"
)

// Ensure KeyDBCache implements interfaces.Cache
var _ interfaces.Cache = (*KeyDBCache)(nil)

// KeyDBCache implements the L2 store using Redis/KeyDB
type KeyDBCache struct {
	client interfaces.KeyDbClient
	config *config.KeyDBConfig
	logger *zap.Logger
}

// NewKeyDBCache creates a new KeyDBCache instance with provided client
func NewKeyDBCache(cfg *config.KeyDBConfig, client interfaces.KeyDbClient, logger *zap.Logger) *KeyDBCache {
	return &KeyDBCache{
		client: client,
		config: cfg,
		logger: logger,
	}
}

// Get retrieves a value from KeyDB
func (kc *KeyDBCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, kc.config.Connection.ReadTimeout)
	defer cancel()

	data, err := kc.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		kc.logger.Error("L2 cache get error", zap.String("key", key), zap.Error(err))
		metrics.RecordCacheError("l2", "read")
		return nil, false, fmt.Errorf("l2 get %q: %w", key, err)
	}

	return data, true, nil
}

// Set stores a value in KeyDB, expiring it after the configured entry TTL if any
func (kc *KeyDBCache) Set(ctx context.Context, key string, val []byte) error {
	ctx, cancel := context.WithTimeout(ctx, kc.config.Connection.SendTimeout)
	defer cancel()

	if err := kc.client.Set(ctx, key, val, kc.config.EntryTTL).Err(); err != nil {
		kc.logger.Error("Failed to set L2 cache entry", zap.String("key", key), zap.Error(err))
		metrics.RecordCacheError("l2", "write")
		return fmt.Errorf("l2 set %q: %w", key, err)
	}
	return nil
}

// Delete removes an entry from KeyDB
func (kc *KeyDBCache) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, kc.config.Connection.SendTimeout)
	defer cancel()

	if err := kc.client.Del(ctx, key).Err(); err != nil {
		kc.logger.Error("Failed to delete L2 cache entry", zap.String("key", key), zap.Error(err))
		metrics.RecordCacheError("l2", "delete")
		return fmt.Errorf("l2 delete %q: %w", key, err)
	}
	return nil
}

// Keys walks the keyspace with SCAN and returns keys starting with prefix in sorted order
func (kc *KeyDBCache) Keys(ctx context.Context, prefix string) ([]string, error) {
	match := escapeGlob(prefix) + "*"
	seen := make(map[string]struct{})

	var cursor uint64
	for {
		batch, next, err := kc.scan(ctx, cursor, match)
		if err != nil {
			kc.logger.Error("L2 cache scan error", zap.String("prefix", prefix), zap.Error(err))
			metrics.RecordCacheError("l2", "scan")
			return nil, fmt.Errorf("l2 scan %q: %w", prefix, err)
		}

		// SCAN may return a key more than once
		for _, key := range batch {
			seen[key] = struct{}{}
		}

		if next == 0 {
			break
		}
		cursor = next
	}

	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

func (kc *KeyDBCache) scan(ctx context.Context, cursor uint64, match string) ([]string, uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, kc.config.Connection.ReadTimeout)
	defer cancel()

	return kc.client.Scan(ctx, cursor, match, kc.config.ScanCount).Result()
}

// Ping checks KeyDB connectivity
func (kc *KeyDBCache) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, kc.config.Connection.ReadTimeout)
	defer cancel()

	return kc.client.Ping(ctx).Err()
}

// Close closes the KeyDB connection
func (kc *KeyDBCache) Close() error {
	return kc.client.Close()
}

// escapeGlob quotes the characters SCAN MATCH treats as pattern syntax
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\', '^':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
