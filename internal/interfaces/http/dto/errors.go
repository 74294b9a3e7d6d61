package dto

import (
	"errors"
	"net/http"

	"github.com/schoolms/backend/internal/domain/identity"
	"github.com/schoolms/backend/internal/domain/shared"
	"github.com/schoolms/backend/internal/infrastructure/persistence/scope"
)

// Error code constants
const (
	ErrCodeUnknown      = "ERR_UNKNOWN"
	ErrCodeInternal     = "ERR_INTERNAL"
	ErrCodeValidation   = "ERR_VALIDATION"
	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeForbidden    = "ERR_FORBIDDEN"
	ErrCodeNotFound     = "ERR_NOT_FOUND"
	ErrCodeConflict     = "ERR_CONFLICT"

	// ErrCodeAuthNotReady is the expected pre-login condition; clients
	// retry after sign-in instead of showing an error
	ErrCodeAuthNotReady = "ERR_AUTH_NOT_READY"
	// ErrCodeTenantNotFound means the account has no tenant assignment
	ErrCodeTenantNotFound = "ERR_TENANT_NOT_FOUND"
	// ErrCodeTenantNotActive means the tenant is suspended or inactive
	ErrCodeTenantNotActive = "ERR_TENANT_NOT_ACTIVE"
	// ErrCodeTenantNotReady means a tenant-scoped endpoint was called
	// before tenant resolution completed
	ErrCodeTenantNotReady = "ERR_TENANT_NOT_READY"
	// ErrCodeIsolation means a scoped read detected cross-tenant rows
	ErrCodeIsolation = "ERR_TENANT_ISOLATION"
	// ErrCodeUnavailable is a retryable backend availability failure
	ErrCodeUnavailable = "ERR_UNAVAILABLE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:      http.StatusInternalServerError,
	ErrCodeInternal:     http.StatusInternalServerError,
	ErrCodeValidation:   http.StatusBadRequest,
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeNotFound:     http.StatusNotFound,
	ErrCodeConflict:     http.StatusConflict,

	ErrCodeAuthNotReady:    http.StatusUnauthorized,
	ErrCodeTenantNotFound:  http.StatusForbidden,
	ErrCodeTenantNotActive: http.StatusForbidden,
	ErrCodeTenantNotReady:  http.StatusServiceUnavailable,
	ErrCodeIsolation:       http.StatusInternalServerError,
	ErrCodeUnavailable:     http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status code for an error code, defaulting
// to 500 for unmapped codes
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// MapError classifies a domain error into a response code and message.
// Isolation violations are reported without the underlying details; the
// full context goes to the log, not the client.
func MapError(err error) (string, string) {
	switch {
	case identity.IsAuthNotReady(err):
		return ErrCodeAuthNotReady, "Sign in to continue"
	case errors.Is(err, identity.ErrTenantNotFound):
		return ErrCodeTenantNotFound, "No school is associated with this account"
	case errors.Is(err, identity.ErrTenantNotActive):
		return ErrCodeTenantNotActive, "Your school's account is not active"
	case identity.IsIsolationViolation(err):
		return ErrCodeIsolation, "Request could not be completed"
	case errors.Is(err, scope.ErrTenantIDRequired):
		return ErrCodeTenantNotReady, "Tenant context is not ready"
	case identity.IsTransient(err):
		return ErrCodeUnavailable, "Service temporarily unavailable, try again"
	case errors.Is(err, shared.ErrNotFound):
		return ErrCodeNotFound, "Resource not found"
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return ErrCodeValidation, domainErr.Message
	}
	return ErrCodeInternal, "Internal server error"
}
