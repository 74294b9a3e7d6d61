package cache

import (
	"context"
	"sync"

	"github.com/schoolms/backend/internal/domain/identity"
)

// InMemoryTenantCache implements the tenant cache in process memory. It is
// suitable for tests and for deployments without Redis; it does not survive
// process restarts.
type InMemoryTenantCache struct {
	mu    sync.RWMutex
	value string
	set   bool
}

// NewInMemoryTenantCache creates an empty in-memory tenant cache
func NewInMemoryTenantCache() *InMemoryTenantCache {
	return &InMemoryTenantCache{}
}

// Get returns the cached tenant id, or "" when absent
func (c *InMemoryTenantCache) Get(ctx context.Context) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.set {
		return "", nil
	}
	return c.value, nil
}

// Set stores the tenant id
func (c *InMemoryTenantCache) Set(ctx context.Context, tenantID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = tenantID
	c.set = true
	return nil
}

// Remove deletes the cached tenant id
func (c *InMemoryTenantCache) Remove(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = ""
	c.set = false
	return nil
}

// Ensure InMemoryTenantCache implements identity.TenantCache
var _ identity.TenantCache = (*InMemoryTenantCache)(nil)
