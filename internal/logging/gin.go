package logging

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader carries the request id in both directions
const RequestIDHeader = "X-Request-ID"

const requestIDKey = "request_id"

// RequestLogger logs method, path, status, latency and request id.
// An incoming X-Request-ID is reused, otherwise a new one is generated.
func RequestLogger(l *slog.Logger) gin.HandlerFunc {
	l = Module(l, "http")
	return func(c *gin.Context) {
		start := time.Now()

		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)

		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"request_id", id,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency", time.Since(start),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
		}

		switch {
		case status >= 500:
			l.Error("request", attrs...)
		case status >= 400:
			l.Warn("request", attrs...)
		default:
			l.Info("request", attrs...)
		}
	}
}

// RequestID returns the id assigned by RequestLogger
func RequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
