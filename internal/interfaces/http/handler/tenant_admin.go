package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/schoolms/backend/internal/domain/identity"
	"github.com/schoolms/backend/internal/domain/shared"
	"github.com/schoolms/backend/internal/interfaces/http/middleware"
)

// TenantAdminHandler manages tenant records and account assignments. These
// endpoints serve the platform operator, not tenant users; they operate on
// unscoped repositories on purpose.
type TenantAdminHandler struct {
	BaseHandler
	tenants     identity.TenantRepository
	assignments identity.AssignmentRepository
	logger      *zap.Logger
}

// NewTenantAdminHandler creates a new tenant admin handler
func NewTenantAdminHandler(
	tenants identity.TenantRepository,
	assignments identity.AssignmentRepository,
	logger *zap.Logger,
) *TenantAdminHandler {
	return &TenantAdminHandler{
		tenants:     tenants,
		assignments: assignments,
		logger:      logger,
	}
}

// RegisterRoutes registers tenant admin routes
func (h *TenantAdminHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/admin/tenants")
	{
		g.POST("", h.Create)
		g.GET("/:id", h.Get)
		g.PUT("/:id", h.Update)
		g.POST("/:id/suspend", h.Suspend)
		g.POST("/:id/activate", h.Activate)
		g.POST("/:id/assignments", h.Assign)
	}
}

type createTenantRequest struct {
	Code      string `json:"code" binding:"required,tenant_code"`
	Name      string `json:"name" binding:"required,max=200"`
	Subdomain string `json:"subdomain"`
}

type tenantResponse struct {
	ID        string `json:"id"`
	Code      string `json:"code"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	Subdomain string `json:"subdomain,omitempty"`
}

func toTenantResponse(t *identity.Tenant) tenantResponse {
	return tenantResponse{
		ID:        t.ID.String(),
		Code:      t.Code,
		Name:      t.Name,
		Status:    string(t.Status),
		Subdomain: t.Subdomain,
	}
}

// Create provisions a new tenant
func (h *TenantAdminHandler) Create(c *gin.Context) {
	var req createTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	exists, err := h.tenants.ExistsByCode(c.Request.Context(), req.Code)
	if err != nil {
		h.DomainError(c, err)
		return
	}
	if exists {
		h.DomainError(c, shared.ErrAlreadyExists)
		return
	}

	tenant, err := identity.NewTenant(req.Code, req.Name)
	if err != nil {
		h.DomainError(c, err)
		return
	}
	if req.Subdomain != "" {
		if err := tenant.SetSubdomain(req.Subdomain); err != nil {
			h.DomainError(c, err)
			return
		}
	}

	if err := h.tenants.Save(c.Request.Context(), tenant); err != nil {
		h.logger.Error("tenant creation failed", zap.Error(err))
		h.DomainError(c, err)
		return
	}
	h.Created(c, toTenantResponse(tenant))
}

// Get returns one tenant
func (h *TenantAdminHandler) Get(c *gin.Context) {
	tenant, ok := h.load(c)
	if !ok {
		return
	}
	h.Success(c, toTenantResponse(tenant))
}

type updateTenantRequest struct {
	Name string `json:"name" binding:"required"`
}

// Update renames a tenant
func (h *TenantAdminHandler) Update(c *gin.Context) {
	tenant, ok := h.load(c)
	if !ok {
		return
	}

	var req updateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	if err := tenant.Update(req.Name); err != nil {
		h.DomainError(c, err)
		return
	}
	if err := h.tenants.Save(c.Request.Context(), tenant); err != nil {
		h.DomainError(c, err)
		return
	}
	h.Success(c, toTenantResponse(tenant))
}

// Suspend blocks a tenant; its users can no longer resolve a tenant context
func (h *TenantAdminHandler) Suspend(c *gin.Context) {
	h.transition(c, func(t *identity.Tenant) error { return t.Suspend() })
}

// Activate re-enables a tenant
func (h *TenantAdminHandler) Activate(c *gin.Context) {
	h.transition(c, func(t *identity.Tenant) error { return t.Activate() })
}

func (h *TenantAdminHandler) transition(c *gin.Context, fn func(*identity.Tenant) error) {
	tenant, ok := h.load(c)
	if !ok {
		return
	}
	if err := fn(tenant); err != nil {
		h.DomainError(c, err)
		return
	}
	if err := h.tenants.Save(c.Request.Context(), tenant); err != nil {
		h.DomainError(c, err)
		return
	}
	h.Success(c, toTenantResponse(tenant))
}

type assignRequest struct {
	Email string `json:"email" binding:"required,email"`
	Role  string `json:"role" binding:"required,oneof=admin teacher student parent"`
}

// Assign maps an account email to this tenant. One email belongs to exactly
// one tenant; re-assigning moves it.
func (h *TenantAdminHandler) Assign(c *gin.Context) {
	tenant, ok := h.load(c)
	if !ok {
		return
	}

	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	assignment, err := h.assignments.FindByEmail(c.Request.Context(), req.Email)
	switch {
	case err == nil:
		assignment.TenantID = tenant.ID
		assignment.Role = identity.AssignmentRole(req.Role)
	case errors.Is(err, shared.ErrNotFound):
		assignment, err = identity.NewTenantAssignment(req.Email, tenant.ID, identity.AssignmentRole(req.Role))
		if err != nil {
			h.DomainError(c, err)
			return
		}
	default:
		h.DomainError(c, err)
		return
	}

	if err := h.assignments.Save(c.Request.Context(), assignment); err != nil {
		h.DomainError(c, err)
		return
	}
	h.Created(c, gin.H{
		"email":     assignment.Email,
		"tenant_id": assignment.TenantID.String(),
		"role":      string(assignment.Role),
	})
}

func (h *TenantAdminHandler) load(c *gin.Context) (*identity.Tenant, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid tenant id")
		return nil, false
	}
	tenant, err := h.tenants.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			h.NotFound(c, "Tenant not found")
		} else {
			h.DomainError(c, err)
		}
		return nil, false
	}
	return tenant, true
}
