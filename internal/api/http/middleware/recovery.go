package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dtroode/appauth-server/internal/logger"
)

// Recovery turns a handler panic into a 500 response.
func Recovery(logger *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("HTTP panic recovered",
					"error", r,
					"path", c.Request.URL.Path,
					"request_id", c.Writer.Header().Get(requestIDHeader))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "internal server error",
				})
			}
		}()
		c.Next()
	}
}
