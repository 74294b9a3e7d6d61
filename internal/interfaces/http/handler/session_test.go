package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/schoolms/backend/internal/application/tenantctx"
	"github.com/schoolms/backend/internal/domain/identity"
	"github.com/schoolms/backend/internal/domain/shared"
	"github.com/schoolms/backend/internal/infrastructure/auth"
	"github.com/schoolms/backend/internal/infrastructure/cache"
	"github.com/schoolms/backend/internal/infrastructure/config"
	"github.com/schoolms/backend/internal/infrastructure/event"
	"github.com/schoolms/backend/internal/interfaces/http/dto"
	"github.com/schoolms/backend/internal/interfaces/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

type stubAssignmentRepo struct {
	assignments map[string]*identity.TenantAssignment
}

func (s *stubAssignmentRepo) FindByEmail(ctx context.Context, email string) (*identity.TenantAssignment, error) {
	a, ok := s.assignments[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return a, nil
}

func (s *stubAssignmentRepo) Save(ctx context.Context, assignment *identity.TenantAssignment) error {
	if s.assignments == nil {
		s.assignments = make(map[string]*identity.TenantAssignment)
	}
	s.assignments[assignment.Email] = assignment
	return nil
}

type stubTenantRepo struct {
	tenants map[uuid.UUID]*identity.Tenant
}

func (s *stubTenantRepo) FindByID(ctx context.Context, id uuid.UUID) (*identity.Tenant, error) {
	t, ok := s.tenants[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return t, nil
}

func (s *stubTenantRepo) FindByCode(ctx context.Context, code string) (*identity.Tenant, error) {
	for _, t := range s.tenants {
		if t.Code == code {
			return t, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (s *stubTenantRepo) FindBySubdomain(ctx context.Context, subdomain string) (*identity.Tenant, error) {
	return nil, shared.ErrNotFound
}

func (s *stubTenantRepo) Save(ctx context.Context, tenant *identity.Tenant) error {
	if s.tenants == nil {
		s.tenants = make(map[uuid.UUID]*identity.Tenant)
	}
	s.tenants[tenant.ID] = tenant
	return nil
}

func (s *stubTenantRepo) ExistsByCode(ctx context.Context, code string) (bool, error) {
	_, err := s.FindByCode(ctx, code)
	return err == nil, nil
}

type sessionFixture struct {
	handler    *SessionHandler
	router     *gin.Engine
	jwtService *auth.JWTService
	session    *auth.SessionProvider
	tenantCtx  *tenantctx.Context
	tenant     *identity.Tenant
	accountID  uuid.UUID
	email      string
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()

	tenant, err := identity.NewTenant("GREENHILL", "Greenhill School")
	require.NoError(t, err)

	accountID := uuid.New()
	email := "teacher@greenhill.edu"
	assignment, err := identity.NewTenantAssignment(email, tenant.ID, identity.AssignmentRoleTeacher)
	require.NoError(t, err)

	logger := zap.NewNop()
	bus := event.NewInMemoryEventBus(logger)
	session := auth.NewSessionProvider(bus)
	resolver := tenantctx.NewResolver(
		&stubAssignmentRepo{assignments: map[string]*identity.TenantAssignment{email: assignment}},
		&stubTenantRepo{tenants: map[uuid.UUID]*identity.Tenant{tenant.ID: tenant}},
		logger,
	)
	tc := tenantctx.NewContext(session, resolver, cache.NewInMemoryTenantCache(),
		config.TenantConfig{ResolveTimeout: 2 * time.Second}, logger)

	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:     "test-secret-key-at-least-32-chars",
		Expiration: 15 * time.Minute,
		Issuer:     "test-issuer",
	})

	h := NewSessionHandler(jwtService, session, tc, logger)
	router := gin.New()
	h.RegisterRoutes(router.Group("/api/v1"))

	return &sessionFixture{
		handler:    h,
		router:     router,
		jwtService: jwtService,
		session:    session,
		tenantCtx:  tc,
		tenant:     tenant,
		accountID:  accountID,
		email:      email,
	}
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func dataMap(t *testing.T, resp dto.Response) map[string]any {
	t.Helper()
	m, ok := resp.Data.(map[string]any)
	require.True(t, ok, "response data is not an object: %v", resp.Data)
	return m
}

func TestSessionHandler_Login(t *testing.T) {
	t.Run("issues a token for a verified account", func(t *testing.T) {
		f := newSessionFixture(t)

		w := doJSON(t, f.router, http.MethodPost, "/api/v1/auth/login", gin.H{
			"account_id": f.accountID.String(),
			"email":      f.email,
		})

		require.Equal(t, http.StatusOK, w.Code)
		data := dataMap(t, decodeResponse(t, w))

		token, _ := data["token"].(string)
		require.NotEmpty(t, token)
		claims, err := f.jwtService.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, f.accountID.String(), claims.Subject)
		assert.Equal(t, f.email, claims.Email)

		principal, err := f.session.Principal(context.Background())
		require.NoError(t, err)
		require.NotNil(t, principal)
		assert.Equal(t, f.accountID, principal.ID)
	})

	t.Run("rejects a malformed body", func(t *testing.T) {
		f := newSessionFixture(t)

		w := doJSON(t, f.router, http.MethodPost, "/api/v1/auth/login", gin.H{
			"email": "not-an-email",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeResponse(t, w)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	})

	t.Run("rejects a nil account id", func(t *testing.T) {
		f := newSessionFixture(t)

		w := doJSON(t, f.router, http.MethodPost, "/api/v1/auth/login", gin.H{
			"account_id": uuid.Nil.String(),
			"email":      f.email,
		})

		assert.NotEqual(t, http.StatusOK, w.Code)
	})
}

func TestSessionHandler_Logout(t *testing.T) {
	f := newSessionFixture(t)
	require.NoError(t, f.session.SignIn(context.Background(), f.accountID, f.email))

	w := doJSON(t, f.router, http.MethodPost, "/api/v1/auth/logout", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	principal, err := f.session.Principal(context.Background())
	require.NoError(t, err)
	assert.Nil(t, principal)
}

func TestSessionHandler_CurrentTenant(t *testing.T) {
	t.Run("reports uninitialized before resolution", func(t *testing.T) {
		f := newSessionFixture(t)

		w := doJSON(t, f.router, http.MethodGet, "/api/v1/tenant/current", nil)
		require.Equal(t, http.StatusOK, w.Code)

		data := dataMap(t, decodeResponse(t, w))
		assert.Equal(t, string(tenantctx.StateUninitialized), data["state"])
		assert.Empty(t, data["tenant_id"])
	})

	t.Run("reports the resolved tenant", func(t *testing.T) {
		f := newSessionFixture(t)
		require.NoError(t, f.session.SignIn(context.Background(), f.accountID, f.email))
		require.True(t, f.tenantCtx.Initialize(context.Background()).Success)

		w := doJSON(t, f.router, http.MethodGet, "/api/v1/tenant/current", nil)
		require.Equal(t, http.StatusOK, w.Code)

		data := dataMap(t, decodeResponse(t, w))
		assert.Equal(t, string(tenantctx.StateReady), data["state"])
		assert.Equal(t, f.tenant.ID.String(), data["tenant_id"])
		assert.Equal(t, "Greenhill School", data["tenant_name"])
	})
}

func TestSessionHandler_InitializeTenant(t *testing.T) {
	t.Run("resolves the tenant for a signed-in session", func(t *testing.T) {
		f := newSessionFixture(t)
		require.NoError(t, f.session.SignIn(context.Background(), f.accountID, f.email))

		w := doJSON(t, f.router, http.MethodPost, "/api/v1/tenant/initialize", nil)
		require.Equal(t, http.StatusOK, w.Code)

		data := dataMap(t, decodeResponse(t, w))
		tenant, ok := data["tenant"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, string(tenantctx.StateReady), tenant["state"])
		assert.Equal(t, f.tenant.ID.String(), tenant["tenant_id"])
	})

	t.Run("fails with auth-not-ready before sign-in", func(t *testing.T) {
		f := newSessionFixture(t)

		w := doJSON(t, f.router, http.MethodPost, "/api/v1/tenant/initialize", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		resp := decodeResponse(t, w)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeAuthNotReady, resp.Error.Code)
	})
}
