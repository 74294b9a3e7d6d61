package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/schoolms/backend/internal/infrastructure/auth"
	"github.com/schoolms/backend/internal/infrastructure/logger"
	"github.com/schoolms/backend/internal/interfaces/http/dto"
)

// Gin context keys set by the auth middleware
const (
	AccountIDKey    = "account_id"
	AccountEmailKey = "account_email"

	authHeaderKey = "Authorization"
	bearerPrefix  = "Bearer "
)

// AuthConfig holds auth middleware configuration
type AuthConfig struct {
	JWTService *auth.JWTService
	SkipPaths  []string
	Logger     *zap.Logger
}

// Auth verifies the bearer token and exposes the authenticated account id
// and email to downstream handlers. The token never carries a tenant id;
// anything tenant-scoped goes through server-side resolution.
func Auth(cfg AuthConfig) gin.HandlerFunc {
	skip := make(map[string]bool, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = true
	}

	return func(c *gin.Context) {
		if skip[c.Request.URL.Path] {
			c.Next()
			return
		}

		header := c.GetHeader(authHeaderKey)
		if !strings.HasPrefix(header, bearerPrefix) {
			unauthorized(c, "Missing or malformed authorization header")
			return
		}
		token := strings.TrimPrefix(header, bearerPrefix)
		if token == "" {
			unauthorized(c, "Missing token")
			return
		}

		claims, err := cfg.JWTService.Verify(token)
		if err != nil {
			if cfg.Logger != nil {
				cfg.Logger.Debug("token verification failed", zap.Error(err))
			}
			unauthorized(c, "Invalid or expired token")
			return
		}

		accountID, err := uuid.Parse(claims.Subject)
		if err != nil {
			unauthorized(c, "Invalid token subject")
			return
		}

		c.Set(AccountIDKey, accountID.String())
		c.Set(AccountEmailKey, claims.Email)

		ctx, _ := logger.WithPrincipalID(c.Request.Context(), logger.FromContext(c.Request.Context()), accountID.String())
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized,
		dto.NewErrorResponse(dto.ErrCodeUnauthorized, message))
}

// GetAccountID returns the authenticated account id, or uuid.Nil
func GetAccountID(c *gin.Context) uuid.UUID {
	raw := c.GetString(AccountIDKey)
	if raw == "" {
		return uuid.Nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil
	}
	return id
}

// GetAccountEmail returns the authenticated account email, or ""
func GetAccountEmail(c *gin.Context) string {
	return c.GetString(AccountEmailKey)
}
