package dto

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/schoolms/backend/internal/domain/identity"
	"github.com/schoolms/backend/internal/domain/shared"
	"github.com/schoolms/backend/internal/infrastructure/persistence/scope"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeUnknown, http.StatusInternalServerError},
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeBadRequest, http.StatusBadRequest},
		{ErrCodeUnauthorized, http.StatusUnauthorized},
		{ErrCodeForbidden, http.StatusForbidden},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeConflict, http.StatusConflict},
		{ErrCodeAuthNotReady, http.StatusUnauthorized},
		{ErrCodeTenantNotFound, http.StatusForbidden},
		{ErrCodeTenantNotActive, http.StatusForbidden},
		{ErrCodeTenantNotReady, http.StatusServiceUnavailable},
		{ErrCodeIsolation, http.StatusInternalServerError},
		{ErrCodeUnavailable, http.StatusServiceUnavailable},
		// Unknown code should return 500
		{"SOMETHING_ELSE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestMapError(t *testing.T) {
	t.Run("auth not ready maps to a retry-after-sign-in code", func(t *testing.T) {
		code, _ := MapError(identity.ErrAuthNotReady)
		assert.Equal(t, ErrCodeAuthNotReady, code)
		assert.Equal(t, http.StatusUnauthorized, GetHTTPStatus(code))
	})

	t.Run("missing assignment maps to forbidden", func(t *testing.T) {
		code, msg := MapError(identity.ErrTenantNotFound)
		assert.Equal(t, ErrCodeTenantNotFound, code)
		assert.Equal(t, http.StatusForbidden, GetHTTPStatus(code))
		assert.Contains(t, msg, "school")
	})

	t.Run("inactive tenant maps to forbidden", func(t *testing.T) {
		code, _ := MapError(identity.ErrTenantNotActive)
		assert.Equal(t, ErrCodeTenantNotActive, code)
		assert.Equal(t, http.StatusForbidden, GetHTTPStatus(code))
	})

	t.Run("isolation violations hide the details", func(t *testing.T) {
		violation := &identity.IsolationViolationError{
			Expected:   uuid.New(),
			Collection: "notifications",
			BadRows:    2,
		}

		code, msg := MapError(violation)
		assert.Equal(t, ErrCodeIsolation, code)
		assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus(code))
		assert.NotContains(t, msg, "notifications")
		assert.NotContains(t, msg, violation.Expected.String())
	})

	t.Run("unresolved tenant context maps to service unavailable", func(t *testing.T) {
		code, _ := MapError(scope.ErrTenantIDRequired)
		assert.Equal(t, ErrCodeTenantNotReady, code)
		assert.Equal(t, http.StatusServiceUnavailable, GetHTTPStatus(code))
	})

	t.Run("transient failures are retryable", func(t *testing.T) {
		err := identity.NewTransientError("tenant lookup", errors.New("connection refused"))

		code, msg := MapError(err)
		assert.Equal(t, ErrCodeUnavailable, code)
		assert.Contains(t, msg, "try again")
	})

	t.Run("not found maps to 404", func(t *testing.T) {
		code, _ := MapError(shared.ErrNotFound)
		assert.Equal(t, ErrCodeNotFound, code)
	})

	t.Run("domain errors surface their message as validation", func(t *testing.T) {
		err := shared.NewDomainError("INVALID_TITLE", "Notification title cannot be empty")

		code, msg := MapError(err)
		assert.Equal(t, ErrCodeValidation, code)
		assert.Equal(t, "Notification title cannot be empty", msg)
	})

	t.Run("everything else is an internal error", func(t *testing.T) {
		code, msg := MapError(errors.New("unexpected"))
		assert.Equal(t, ErrCodeInternal, code)
		assert.Equal(t, "Internal server error", msg)
	})

	t.Run("wrapped errors still classify", func(t *testing.T) {
		err := fmt.Errorf("resolving tenant: %w", identity.ErrTenantNotFound)
		code, _ := MapError(err)
		assert.Equal(t, ErrCodeTenantNotFound, code)
	})
}
