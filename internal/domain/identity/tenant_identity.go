package identity

import (
	"time"

	"github.com/google/uuid"
)

// IdentitySource records where a tenant identity was resolved from
type IdentitySource string

const (
	IdentitySourceMemory       IdentitySource = "memory"
	IdentitySourceDurableCache IdentitySource = "durable-cache"
	IdentitySourceResolver     IdentitySource = "resolver"
)

// TenantIdentity is the runtime value held by the tenant context once
// resolution succeeds. It is created on first successful resolution per
// process lifetime, invalidated entirely on sign-out, and replaced
// atomically, never partially updated.
type TenantIdentity struct {
	TenantID   uuid.UUID
	Tenant     *Tenant
	ResolvedAt time.Time
	Source     IdentitySource
}

// NewTenantIdentity creates an identity for a resolved tenant
func NewTenantIdentity(tenant *Tenant, source IdentitySource) TenantIdentity {
	return TenantIdentity{
		TenantID:   tenant.ID,
		Tenant:     tenant,
		ResolvedAt: time.Now(),
		Source:     source,
	}
}
