// File: internal/common/response.go
package common

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LoggerContextKey is where request-scoped middleware stores the *zap.Logger.
const LoggerContextKey = "logger"

// RespondWithError sends a JSON error response. Errors outside the APIError
// taxonomy become a 500; outside release mode the underlying error text is
// returned as the message.
func RespondWithError(c *gin.Context, err error) {
	apiErr, ok := IsAPIError(err)
	if !ok {
		if l, exists := c.Get(LoggerContextKey); exists {
			if logger, ok := l.(*zap.Logger); ok {
				logger.Error("Unhandled internal error being wrapped", zap.Error(err), zap.String("path", c.Request.URL.Path))
			}
		}
		apiErr = ErrInternalServer
		if gin.Mode() != gin.ReleaseMode {
			apiErr = apiErr.WithMessage(err.Error())
		}
	}

	c.AbortWithStatusJSON(apiErr.StatusCode, apiErr)
}

// RespondJSON writes data as the bare response body.
func RespondJSON(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, data)
}
