// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"go-offline-cache/internal/cache"
	"go-offline-cache/internal/cache/l1"
	"go-offline-cache/internal/cache/storage"
	"go-offline-cache/internal/config"
	"go-offline-cache/internal/models"
)

// NewStorage returns a namespace registry backed by a small in-process BigCache
func NewStorage(t *testing.T) *storage.CacheStorage {
	t.Helper()

	cfg := &config.BigCacheConfig{Size: 8, Shards: 16, LifeWindow: time.Hour, MaxEntrySize: 4096}
	store, err := l1.NewBigCache(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return storage.NewCacheStorage(store, cache.NewKeyBuilder(), zap.NewNop())
}

// MustRequest builds a GET request for rawURL
func MustRequest(t *testing.T, rawURL string) *models.Request {
	t.Helper()

	req, err := models.NewGetRequest(rawURL)
	require.NoError(t, err)
	return req
}

// Seed stores an entry for rawURL in the named namespace
func Seed(t *testing.T, s *storage.CacheStorage, name, rawURL string, cachedAt time.Time, body string) {
	t.Helper()

	ctx := context.Background()
	ns, err := s.Open(ctx, name)
	require.NoError(t, err)

	entry := &models.CacheEntry{
		URL:      rawURL,
		CachedAt: cachedAt.UnixMilli(),
		Response: models.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": []string{"text/plain"}},
			Body:       []byte(body),
		},
	}
	require.NoError(t, ns.Put(ctx, MustRequest(t, rawURL), entry))
}

// OKResponse returns a buffered 200 response with the given body
func OKResponse(body string) *models.Response {
	return &models.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"text/plain"}},
		Body:       []byte(body),
	}
}
