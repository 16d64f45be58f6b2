package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/movieverse/movieverse-gateway/api/middleware"
	"github.com/movieverse/movieverse-gateway/session"
)

// sessionFromCtx extracts the resolved gateway session from the gin context.
func sessionFromCtx(c *gin.Context) *session.Session {
	v, _ := c.Get(middleware.ContextKeySession)
	sess, _ := v.(*session.Session)
	return sess
}
