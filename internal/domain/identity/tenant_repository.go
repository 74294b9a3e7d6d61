package identity

import (
	"context"

	"github.com/google/uuid"
)

// TenantRepository defines the interface for tenant persistence
type TenantRepository interface {
	// FindByID finds a tenant by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Tenant, error)

	// FindByCode finds a tenant by its unique code
	FindByCode(ctx context.Context, code string) (*Tenant, error)

	// FindBySubdomain finds a tenant by its subdomain
	FindBySubdomain(ctx context.Context, subdomain string) (*Tenant, error)

	// Save creates or updates a tenant
	Save(ctx context.Context, tenant *Tenant) error

	// ExistsByCode checks if a tenant with the given code exists
	ExistsByCode(ctx context.Context, code string) (bool, error)
}

// AssignmentRepository defines the interface for tenant assignment lookups
type AssignmentRepository interface {
	// FindByEmail finds the assignment for a principal's email
	FindByEmail(ctx context.Context, email string) (*TenantAssignment, error)

	// Save creates or updates an assignment
	Save(ctx context.Context, assignment *TenantAssignment) error
}

// TenantCache persists the last-known tenant identifier across process
// restarts. Both implementations (durable and in-memory) are owned
// exclusively by the tenant context; no other component writes to them.
type TenantCache interface {
	// Get returns the cached tenant id, or "" when absent
	Get(ctx context.Context) (string, error)

	// Set stores the tenant id
	Set(ctx context.Context, tenantID string) error

	// Remove deletes the cached tenant id
	Remove(ctx context.Context) error
}
