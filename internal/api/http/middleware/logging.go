package middleware

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dtroode/appauth-server/internal/logger"
)

// HTTPObserver records request counts and latencies.
type HTTPObserver interface {
	ObserveHTTPRequest(method, path, status string, seconds float64)
}

// Logging logs every request and reports it to an optional observer.
type Logging struct {
	logger   *logger.Logger
	observer HTTPObserver
}

// NewLogging creates a new Logging middleware. observer may be nil.
func NewLogging(logger *logger.Logger, observer HTTPObserver) *Logging {
	return &Logging{logger: logger, observer: observer}
}

// Handle logs method, route, status and latency of each request.
func (l *Logging) Handle(c *gin.Context) {
	start := time.Now()

	c.Next()

	latency := time.Since(start)
	status := c.Writer.Status()

	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}

	if l.observer != nil {
		l.observer.ObserveHTTPRequest(c.Request.Method, route, strconv.Itoa(status), latency.Seconds())
	}

	level := slog.LevelInfo
	switch {
	case status >= 500:
		level = slog.LevelError
	case status >= 400:
		level = slog.LevelWarn
	}

	l.logger.Log(c.Request.Context(), level, "HTTP request completed",
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"route", route,
		"client_ip", c.ClientIP(),
		"status", status,
		"duration_ms", latency.Milliseconds(),
		"request_id", c.Writer.Header().Get(requestIDHeader))
}
