package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/schoolms/backend/internal/infrastructure/persistence"
)

// HealthHandler reports process and dependency health
type HealthHandler struct {
	BaseHandler
	db      *persistence.Database
	version string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db *persistence.Database, version string) *HealthHandler {
	return &HealthHandler{db: db, version: version}
}

// RegisterRoutes registers health routes
func (h *HealthHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health", h.Health)
}

// Health returns liveness plus a database ping
func (h *HealthHandler) Health(c *gin.Context) {
	dbStatus := "ok"
	if err := h.db.Ping(); err != nil {
		dbStatus = "unreachable"
	}
	h.Success(c, gin.H{
		"status":   "ok",
		"version":  h.version,
		"database": dbStatus,
	})
}
