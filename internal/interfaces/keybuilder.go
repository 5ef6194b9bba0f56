package interfaces

import "go-offline-cache/internal/models"

// KeyBuilder canonizes requests into deterministic cache keys
type KeyBuilder interface {
	// Build returns the storage key of req inside the namespace
	Build(namespace string, req *models.Request) (string, error)
	// NamespacePrefix returns the prefix shared by every key of the namespace
	NamespacePrefix(namespace string) string
	// Root returns the prefix shared by every key the builder produces
	Root() string
	// ParseNamespace extracts the namespace name from a storage key
	ParseNamespace(key string) (string, bool)
}
