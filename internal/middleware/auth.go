// File: internal/middleware/auth.go
package middleware

import (
	"crypto/subtle"
	"strings"

	"wws_listings_backend/internal/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// AuthorizationHeader is the header name for authorization token
	AuthorizationHeader = "Authorization"
	// AuthorizationTypeBearer is the prefix for Bearer tokens
	AuthorizationTypeBearer = "Bearer"
	// APIKeyHeader carries the admin key as an alternative to a Bearer token.
	APIKeyHeader = "X-API-Key"
	// AdminContextKey is set to true once the admin key was accepted.
	AdminContextKey = "isAdmin"
)

// APIKeyAuthMiddleware guards admin routes with a shared secret sent as
// X-API-Key or "Authorization: Bearer <key>". An empty secret locks the routes.
func APIKeyAuthMiddleware(secret string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			logger.Warn("Admin route called but API_SECRET_KEY is not configured", zap.String("path", c.Request.URL.Path))
			common.RespondWithError(c, common.ErrForbidden.WithMessage("Admin access is not configured."))
			return
		}

		presented := extractAPIKey(c)
		if presented == "" {
			logger.Debug("Admin key missing", zap.String("path", c.Request.URL.Path))
			common.RespondWithError(c, common.ErrUnauthorized.WithMessage("An API key is required for this operation."))
			return
		}

		if subtle.ConstantTimeCompare([]byte(presented), []byte(secret)) != 1 {
			logger.Warn("Admin key rejected", zap.String("path", c.Request.URL.Path), zap.String("ip", c.ClientIP()))
			common.RespondWithError(c, common.ErrForbidden.WithMessage("Invalid API key."))
			return
		}

		c.Set(AdminContextKey, true)
		c.Next()
	}
}

func extractAPIKey(c *gin.Context) string {
	if key := strings.TrimSpace(c.GetHeader(APIKeyHeader)); key != "" {
		return key
	}
	parts := strings.SplitN(c.GetHeader(AuthorizationHeader), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], AuthorizationTypeBearer) {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// IsAdmin reports whether APIKeyAuthMiddleware accepted the request.
func IsAdmin(c *gin.Context) bool {
	return c.GetBool(AdminContextKey)
}
