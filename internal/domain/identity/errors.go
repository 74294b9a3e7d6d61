package identity

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/schoolms/backend/internal/domain/shared"
)

// Tenant resolution error taxonomy.
//
// AuthNotReady is expected during the pre-login window and must never be
// surfaced as a user-facing error. TenantInvalid is fatal for the session.
// IsolationViolation means a scoped read returned another tenant's rows and
// is always fatal. Transient errors are retried by the startup loader.
var (
	// ErrAuthNotReady indicates the principal is absent or the session is
	// still loading. Callers retry silently.
	ErrAuthNotReady = shared.NewDomainError("AUTH_NOT_READY", "No authenticated principal available")

	// ErrTenantNotFound indicates the principal has no tenant assignment.
	ErrTenantNotFound = shared.NewDomainError("TENANT_NOT_FOUND", "No tenant assignment found for this account")

	// ErrTenantNotActive indicates the resolved tenant exists but is
	// suspended or inactive.
	ErrTenantNotActive = shared.NewDomainError("TENANT_NOT_ACTIVE", "Tenant is not active, contact your administrator")
)

// IsAuthNotReady reports whether err is the expected pre-login condition
func IsAuthNotReady(err error) bool {
	return errors.Is(err, ErrAuthNotReady)
}

// IsTenantInvalid reports whether err is a fatal tenant lookup failure
func IsTenantInvalid(err error) bool {
	return errors.Is(err, ErrTenantNotFound) || errors.Is(err, ErrTenantNotActive)
}

// IsolationViolationError indicates a scoped query returned rows belonging
// to a different tenant. The offending data is discarded, never returned.
type IsolationViolationError struct {
	Expected   uuid.UUID
	Collection string
	BadRows    int
}

// Error implements the error interface
func (e *IsolationViolationError) Error() string {
	return fmt.Sprintf("isolation violation: %d row(s) in %q do not belong to tenant %s",
		e.BadRows, e.Collection, e.Expected)
}

// IsIsolationViolation reports whether err is a cross-tenant data leak
func IsIsolationViolation(err error) bool {
	var iv *IsolationViolationError
	return errors.As(err, &iv)
}

// TransientError wraps a network/availability failure during resolution or
// caching. The caller may retry with a bounded delay.
type TransientError struct {
	Op  string
	Err error
}

// Error implements the error interface
func (e *TransientError) Error() string {
	return fmt.Sprintf("transient failure during %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps err as retryable
func NewTransientError(op string, err error) *TransientError {
	return &TransientError{Op: op, Err: err}
}

// IsTransient reports whether err may succeed on retry
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
