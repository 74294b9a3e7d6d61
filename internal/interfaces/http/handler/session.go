package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/schoolms/backend/internal/application/tenantctx"
	"github.com/schoolms/backend/internal/infrastructure/auth"
	"github.com/schoolms/backend/internal/interfaces/http/middleware"
)

// SessionHandler handles sign-in, sign-out and tenant context inspection.
// Credential verification happens upstream (the identity provider callback
// posts here with a verified account); this handler's job is the session
// token and the tenant context lifecycle.
type SessionHandler struct {
	BaseHandler
	jwtService *auth.JWTService
	session    *auth.SessionProvider
	tenantCtx  *tenantctx.Context
	logger     *zap.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(
	jwtService *auth.JWTService,
	session *auth.SessionProvider,
	tenantCtx *tenantctx.Context,
	logger *zap.Logger,
) *SessionHandler {
	return &SessionHandler{
		jwtService: jwtService,
		session:    session,
		tenantCtx:  tenantCtx,
		logger:     logger,
	}
}

// RegisterRoutes registers session routes
func (h *SessionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	authGroup := rg.Group("/auth")
	{
		authGroup.POST("/login", h.Login)
		authGroup.POST("/logout", h.Logout)
	}
	tenantGroup := rg.Group("/tenant")
	{
		tenantGroup.GET("/current", h.CurrentTenant)
		tenantGroup.POST("/initialize", h.InitializeTenant)
	}
}

type loginRequest struct {
	AccountID string `json:"account_id" binding:"required,uuid"`
	Email     string `json:"email" binding:"required,email"`
}

type loginResponse struct {
	Token        string         `json:"token"`
	TenantStatus tenantSnapshot `json:"tenant"`
}

type tenantSnapshot struct {
	State      string `json:"state"`
	TenantID   string `json:"tenant_id,omitempty"`
	TenantName string `json:"tenant_name,omitempty"`
	Source     string `json:"source,omitempty"`
}

// Login establishes a session for a verified account and kicks off tenant
// resolution via the session event. Tenant resolution failure does not fail
// the login; the client retries through /tenant/initialize.
func (h *SessionHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		h.BadRequest(c, "account_id must be a valid UUID")
		return
	}

	if err := h.session.SignIn(c.Request.Context(), accountID, req.Email); err != nil {
		h.logger.Error("sign-in failed", zap.Error(err))
		h.DomainError(c, err)
		return
	}

	token, err := h.jwtService.Generate(accountID, req.Email)
	if err != nil {
		h.logger.Error("token generation failed", zap.Error(err))
		h.InternalError(c, "Could not create session")
		return
	}

	h.Success(c, loginResponse{
		Token:        token,
		TenantStatus: h.snapshot(),
	})
}

// Logout tears down the session; the tenant context is cleared before this
// handler returns
func (h *SessionHandler) Logout(c *gin.Context) {
	if err := h.session.SignOut(c.Request.Context()); err != nil {
		h.logger.Error("sign-out failed", zap.Error(err))
		h.DomainError(c, err)
		return
	}
	h.NoContent(c)
}

// CurrentTenant reports the tenant context state without triggering
// resolution
func (h *SessionHandler) CurrentTenant(c *gin.Context) {
	h.Success(c, h.snapshot())
}

// InitializeTenant triggers (or joins) tenant resolution and reports the
// outcome
func (h *SessionHandler) InitializeTenant(c *gin.Context) {
	res := h.tenantCtx.Initialize(c.Request.Context())
	if res.Success {
		h.Success(c, gin.H{
			"from_cache": res.FromCache,
			"tenant":     h.snapshot(),
		})
		return
	}
	if res.TimedOut {
		h.Success(c, gin.H{
			"from_cache": false,
			"timed_out":  true,
			"tenant":     h.snapshot(),
		})
		return
	}
	h.DomainError(c, res.Err)
}

func (h *SessionHandler) snapshot() tenantSnapshot {
	snap := tenantSnapshot{State: string(h.tenantCtx.State())}
	if ident := h.tenantCtx.Identity(); ident != nil {
		snap.TenantID = ident.TenantID.String()
		snap.Source = string(ident.Source)
		if ident.Tenant != nil {
			snap.TenantName = ident.Tenant.Name
		}
	}
	return snap
}
