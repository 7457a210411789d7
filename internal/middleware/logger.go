package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stwalsh4118/sitetrack/internal/logger"
)

// LoggerKey is the gin context key holding the request-scoped logger.
const LoggerKey = "logger"

// Logger attaches a request-scoped logger to the context and writes one
// access log line per request. Requests against a workspace session are
// tagged with its ID.
func Logger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestLog := log.WithRequestID(GetRequestID(c))
		if sid := c.Param("sid"); sid != "" {
			requestLog = requestLog.WithSession(sid)
		}
		c.Set(LoggerKey, requestLog)

		c.Next()

		status := c.Writer.Status()
		fields := map[string]interface{}{
			"method":      c.Request.Method,
			"route":       c.FullPath(),
			"path":        c.Request.URL.Path,
			"status":      status,
			"duration_ms": time.Since(start).Milliseconds(),
			"ip":          c.ClientIP(),
			"actor":       GetActor(c),
		}
		if c.Request.URL.RawQuery != "" {
			fields["query"] = c.Request.URL.RawQuery
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}

		switch {
		case status >= 500:
			requestLog.Error("Request failed", nil, fields)
		case status >= 400:
			requestLog.Warn("Request rejected", fields)
		default:
			requestLog.Info("Request completed", fields)
		}
	}
}

// GetLogger returns the request-scoped logger, or nil outside the Logger
// middleware.
func GetLogger(c *gin.Context) *logger.Logger {
	if value, ok := c.Get(LoggerKey); ok {
		if log, ok := value.(*logger.Logger); ok {
			return log
		}
	}
	return nil
}
