package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"go-offline-cache/internal/interfaces"
	"go-offline-cache/internal/metrics"
	"go-offline-cache/internal/models"
)

// Ensure namespace implements interfaces.Namespace
var _ interfaces.Namespace = (*namespace)(nil)

type namespace struct {
	name    string
	storage *CacheStorage
}

// Name returns the namespace name
func (n *namespace) Name() string {
	return n.name
}

// Match looks up the entry stored for the request identity
func (n *namespace) Match(ctx context.Context, req *models.Request) (*models.CacheEntry, bool, error) {
	key, err := n.storage.keyBuilder.Build(n.name, req)
	if err != nil {
		return nil, false, err
	}

	data, found, err := n.storage.cache.Get(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s from %s: %w", req.URL, n.name, err)
	}
	if !found {
		return nil, false, nil
	}

	var entry models.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		n.storage.logger.Warn("Dropping undecodable cache entry",
			zap.String("namespace", n.name),
			zap.String("key", key),
			zap.Error(err))
		metrics.RecordCacheError("storage", "decode")
		if delErr := n.storage.cache.Delete(ctx, key); delErr != nil {
			n.storage.logger.Warn("Failed to drop undecodable cache entry", zap.String("key", key), zap.Error(delErr))
		}
		return nil, false, nil
	}

	return &entry, true, nil
}

// Put stores the entry under the request identity, replacing any previous one
func (n *namespace) Put(ctx context.Context, req *models.Request, entry *models.CacheEntry) error {
	key, err := n.storage.keyBuilder.Build(n.name, req)
	if err != nil {
		return err
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry for %s: %w", req.URL, err)
	}

	if err := n.storage.cache.Set(ctx, key, data); err != nil {
		return fmt.Errorf("failed to write %s to %s: %w", req.URL, n.name, err)
	}
	return nil
}

// Delete removes the entry stored for the request identity and reports whether it existed
func (n *namespace) Delete(ctx context.Context, req *models.Request) (bool, error) {
	key, err := n.storage.keyBuilder.Build(n.name, req)
	if err != nil {
		return false, err
	}

	_, found, err := n.storage.cache.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to read %s from %s: %w", req.URL, n.name, err)
	}
	if !found {
		return false, nil
	}

	if err := n.storage.cache.Delete(ctx, key); err != nil {
		return true, fmt.Errorf("failed to delete %s from %s: %w", req.URL, n.name, err)
	}
	return true, nil
}

// Keys lists the request identities ("GET <url>") stored in the namespace
func (n *namespace) Keys(ctx context.Context) ([]string, error) {
	prefix := n.storage.keyBuilder.NamespacePrefix(n.name)

	keys, err := n.storage.cache.Keys(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list namespace %s: %w", n.name, err)
	}

	identities := make([]string, 0, len(keys))
	for _, key := range keys {
		identities = append(identities, strings.TrimPrefix(key, prefix))
	}
	return identities, nil
}
