package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"

	"github.com/movieverse/movieverse-gateway/session"
)

// RequestIDHeader is the HTTP header used to propagate the request ID.
const RequestIDHeader = "X-Request-ID"

// RequestID tags every request with a unique id, reusing an incoming
// X-Request-ID (e.g. from a load balancer) when present.
func RequestID() gin.HandlerFunc {
	return requestid.New()
}

// RequestLogger logs every request with timing. The session id is included
// once SessionAuth has resolved it, so authenticated traffic can be traced
// per browser session.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)

		fields := []any{
			"request_id", requestid.Get(c),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", latency.Milliseconds(),
			"ip", c.ClientIP(),
		}
		if v, ok := c.Get(ContextKeySession); ok {
			if sess, ok := v.(*session.Session); ok {
				fields = append(fields, "session_id", sess.ID())
			}
		}
		slog.Info("request", fields...)
	}
}
