package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/schoolms/backend/internal/application/tenantctx"
	"github.com/schoolms/backend/internal/infrastructure/logger"
	"github.com/schoolms/backend/internal/interfaces/http/dto"
)

// TenantIDKey is the gin context key holding the resolved tenant id
const TenantIDKey = "tenant_id"

// RequireTenant gates tenant-scoped endpoints on a READY tenant context.
// The tenant id is taken exclusively from the server-side context, never
// from request input, and is threaded into the request context for scoped
// persistence and logging.
func RequireTenant(tc *tenantctx.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID, ok := tc.TenantID()
		if !ok {
			// One resolution attempt on behalf of the caller; sign-in has
			// usually triggered it already, this covers process restarts.
			res := tc.Initialize(c.Request.Context())
			if !res.Success {
				code, message := dto.ErrCodeTenantNotReady, "Tenant context is not ready"
				if res.Err != nil {
					code, message = dto.MapError(res.Err)
				}
				c.AbortWithStatusJSON(dto.GetHTTPStatus(code),
					dto.NewErrorResponse(code, message))
				return
			}
			tenantID = res.Identity.TenantID
		}

		c.Set(TenantIDKey, tenantID.String())
		ctx, _ := logger.WithTenantID(c.Request.Context(), logger.FromContext(c.Request.Context()), tenantID.String())
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetTenantID returns the tenant id set by RequireTenant, or ""
func GetTenantID(c *gin.Context) string {
	return c.GetString(TenantIDKey)
}
