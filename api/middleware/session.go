package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/movieverse/movieverse-gateway/session"
)

const (
	// SessionHeader carries the gateway session id on every request after
	// registration.
	SessionHeader = "X-Session-Id"
	// ContextKeySession is the gin context key for the resolved session.
	ContextKeySession = "gateway_session"
)

// SessionAuth resolves the caller's gateway session from the X-Session-Id
// header (or the session_id query parameter, for WebSocket upgrades where
// browsers cannot set headers). Requests without a live session are rejected.
// The session's cookie material is refreshed from the request so rotated
// upstream tokens are picked up.
func SessionAuth(registry *session.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(SessionHeader)
		if raw == "" {
			raw = c.Query("session_id")
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid session id"})
			return
		}

		sess, ok := registry.Get(id)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown session"})
			return
		}

		sess.Touch()
		if cookies := c.GetHeader("Cookie"); cookies != "" {
			sess.UpdateCookies(cookies)
		}

		c.Set(ContextKeySession, sess)
		c.Next()
	}
}
