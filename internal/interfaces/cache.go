package interfaces

import "context"

//go:generate mockgen -package=mock -source=cache.go -destination=mock/cache.go

// Cache is the byte-level key/value store backing cache namespaces.
// Implementations must make every Get, Set and Delete atomic per key;
// concurrent writers to the same key resolve as last write wins.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error) // returns value and found flag
	Set(ctx context.Context, key string, val []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error) // keys starting with prefix
}
