package noop

import (
	"context"

	"go-offline-cache/internal/interfaces"
)

// Ensure NoOpCache implements interfaces.Cache
var _ interfaces.Cache = (*NoOpCache)(nil)

// NoOpCache is a no-operation cache implementation for disabled tiers
type NoOpCache struct{}

// NewNoOpCache creates a new no-operation cache instance
func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

// Get always returns cache miss
func (n *NoOpCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, nil
}

// Set does nothing
func (n *NoOpCache) Set(context.Context, string, []byte) error {
	return nil
}

// Delete does nothing
func (n *NoOpCache) Delete(context.Context, string) error {
	return nil
}

// Keys always returns no keys
func (n *NoOpCache) Keys(context.Context, string) ([]string, error) {
	return nil, nil
}
