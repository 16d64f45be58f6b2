package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/movieverse/movieverse-gateway/session"
)

// SessionHandler registers and tears down gateway sessions. The gateway never
// authenticates anyone itself; it captures the browser's Cookie header at
// registration and forwards it upstream, where the auth layer judges it.
type SessionHandler struct {
	registry *session.Registry
	stores   *PreferenceStores
}

func NewSessionHandler(registry *session.Registry, stores *PreferenceStores) *SessionHandler {
	return &SessionHandler{registry: registry, stores: stores}
}

type registerSessionRequest struct {
	UserID int `json:"user_id" binding:"required"`
}

// Register handles POST /session.
// Captures the request's Cookie header as the session's upstream credential
// and kicks off the initial preference load in the background. The returned
// session id goes in X-Session-Id on every subsequent request.
func (h *SessionHandler) Register(c *gin.Context) {
	var req registerSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	cookies := c.GetHeader("Cookie")
	if cookies == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no cookies to forward"})
		return
	}

	sess := h.registry.Register(cookies, req.UserID)
	store := h.stores.Create(sess)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		store.Refresh(ctx)
	}()

	c.JSON(http.StatusCreated, gin.H{"session_id": sess.ID().String()})
}

// Unregister handles DELETE /session.
// Tears the session down: its lookup caches are invalidated and its toggle
// state dropped. Reconciles still in flight become no-ops.
func (h *SessionHandler) Unregister(c *gin.Context) {
	sess := sessionFromCtx(c)
	h.registry.Remove(sess.ID())
	c.Status(http.StatusNoContent)
}
