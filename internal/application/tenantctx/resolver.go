package tenantctx

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/schoolms/backend/internal/domain/identity"
	"github.com/schoolms/backend/internal/domain/shared"
)

// Resolver looks up the owning tenant record for a principal's email. It is
// stateless and idempotent; each call is a fresh round trip. Caching is the
// tenant context's job, not the resolver's.
type Resolver struct {
	assignments identity.AssignmentRepository
	tenants     identity.TenantRepository
	logger      *zap.Logger
}

// NewResolver creates a new resolver
func NewResolver(
	assignments identity.AssignmentRepository,
	tenants identity.TenantRepository,
	logger *zap.Logger,
) *Resolver {
	return &Resolver{
		assignments: assignments,
		tenants:     tenants,
		logger:      logger,
	}
}

// Resolve finds the tenant assignment for email, loads the full tenant
// record, and rejects tenants that are not active
func (r *Resolver) Resolve(ctx context.Context, email string) (*identity.Tenant, error) {
	assignment, err := r.assignments.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, identity.ErrTenantNotFound
		}
		return nil, err
	}

	tenant, err := r.tenants.FindByID(ctx, assignment.TenantID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			// Assignment points at a deleted tenant; same outcome for the user
			r.logger.Warn("tenant assignment references missing tenant",
				zap.String("email", email),
				zap.String("tenant_id", assignment.TenantID.String()),
			)
			return nil, identity.ErrTenantNotFound
		}
		return nil, err
	}

	if !tenant.IsActive() {
		r.logger.Warn("resolved tenant is not active",
			zap.String("tenant_id", tenant.ID.String()),
			zap.String("status", string(tenant.Status)),
		)
		return nil, identity.ErrTenantNotActive
	}

	return tenant, nil
}
