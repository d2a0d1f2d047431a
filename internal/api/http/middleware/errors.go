package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/dtroode/appauth-server/internal/apierrors"
	"github.com/dtroode/appauth-server/internal/logger"
)

// AbortWithError writes err as a JSON error body with the status of its kind.
// Errors that are not APIErrors are logged and hidden behind a 500.
func AbortWithError(c *gin.Context, logger *logger.Logger, err error) {
	apiErr := apierrors.As(err)
	if apiErr.Kind == apierrors.KindInternal {
		logger.Error("HTTP request failed",
			"path", c.Request.URL.Path,
			"error", err.Error(),
			"request_id", c.Writer.Header().Get(requestIDHeader))
	}
	c.AbortWithStatusJSON(apiErr.HTTPStatus(), gin.H{"error": apiErr.Message})
}
