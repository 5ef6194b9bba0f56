package cache

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go-offline-cache/internal/interfaces"
	"go-offline-cache/internal/models"
)

const (
	// DefaultKeyRoot prefixes every key written by the offline cache
	DefaultKeyRoot = "offline:"

	// namespaceSeparator splits the namespace name from the request identity
	namespaceSeparator = "|"
)

// Ensure KeyBuilderImpl implements interfaces.KeyBuilder
var _ interfaces.KeyBuilder = (*KeyBuilderImpl)(nil)

// KeyBuilderImpl implements the KeyBuilder interface
type KeyBuilderImpl struct {
	root string
}

// NewKeyBuilder creates a new KeyBuilder instance
func NewKeyBuilder() interfaces.KeyBuilder {
	return NewKeyBuilderWithRoot(DefaultKeyRoot)
}

// NewKeyBuilderWithRoot creates a KeyBuilder writing keys below root
func NewKeyBuilderWithRoot(root string) interfaces.KeyBuilder {
	return &KeyBuilderImpl{root: root}
}

// Build creates the storage key for a request inside a namespace.
// Key format: <root><namespace>|<METHOD> <url without fragment>
func (kb *KeyBuilderImpl) Build(namespace string, req *models.Request) (string, error) {
	if err := ValidateNamespaceName(namespace); err != nil {
		return "", err
	}

	if req == nil || req.URL == nil {
		return "", errors.New("request cannot be nil")
	}

	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}
	if method != http.MethodGet {
		return "", fmt.Errorf("only GET requests can be cached, got %s", method)
	}

	u := *req.URL
	u.Fragment = ""
	u.RawFragment = ""

	return kb.NamespacePrefix(namespace) + method + " " + u.String(), nil
}

// NamespacePrefix returns the prefix shared by all keys of a namespace
func (kb *KeyBuilderImpl) NamespacePrefix(namespace string) string {
	return kb.root + namespace + namespaceSeparator
}

// Root returns the prefix shared by all keys
func (kb *KeyBuilderImpl) Root() string {
	return kb.root
}

// ParseNamespace extracts the namespace name from a key built by Build
func (kb *KeyBuilderImpl) ParseNamespace(key string) (string, bool) {
	if !strings.HasPrefix(key, kb.root) {
		return "", false
	}

	rest := strings.TrimPrefix(key, kb.root)
	idx := strings.Index(rest, namespaceSeparator)
	if idx <= 0 {
		return "", false
	}
	return rest[:idx], true
}

// ValidateNamespaceName checks that a namespace name can be embedded in a key
func ValidateNamespaceName(name string) error {
	if name == "" {
		return errors.New("namespace cannot be empty")
	}
	if strings.Contains(name, namespaceSeparator) {
		return fmt.Errorf("namespace %q cannot contain %q", name, namespaceSeparator)
	}
	return nil
}
