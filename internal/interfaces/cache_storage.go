package interfaces

import (
	"context"

	"go-offline-cache/internal/models"
)

//go:generate mockgen -package=mock -source=cache_storage.go -destination=mock/cache_storage.go

// CacheStorage manages named cache namespaces
type CacheStorage interface {
	// Open returns a handle to the namespace. The namespace only comes into
	// existence once an entry is written to it.
	Open(ctx context.Context, name string) (Namespace, error)
	// Has reports whether the namespace holds any entry
	Has(ctx context.Context, name string) (bool, error)
	// Delete destroys the namespace and every entry in it
	Delete(ctx context.Context, name string) (bool, error)
	// DeleteAll destroys every namespace and returns how many were removed
	DeleteAll(ctx context.Context) (int, error)
	// Names lists existing namespaces in sorted order
	Names(ctx context.Context) ([]string, error)
}

// Namespace stores responses keyed by request identity (method + URL)
type Namespace interface {
	Name() string
	Match(ctx context.Context, req *models.Request) (*models.CacheEntry, bool, error)
	Put(ctx context.Context, req *models.Request, entry *models.CacheEntry) error
	Delete(ctx context.Context, req *models.Request) (bool, error)
	Keys(ctx context.Context) ([]string, error)
}
