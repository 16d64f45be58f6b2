package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/movieverse/movieverse-gateway/preference"
	"github.com/movieverse/movieverse-gateway/resolve"
	"github.com/movieverse/movieverse-gateway/upstream"
)

// ToggleHandler runs the optimistic preference toggles. Each endpoint flips
// the state, answers immediately with what the browser should render, and
// leaves the mutation plus authoritative re-read to the background; the
// reconciled snapshot reaches the browser over the session's socket.
type ToggleHandler struct {
	client *upstream.Client
	stores *PreferenceStores
}

func NewToggleHandler(client *upstream.Client, stores *PreferenceStores) *ToggleHandler {
	return &ToggleHandler{client: client, stores: stores}
}

// Favorite handles POST /toggle/favorite/:movieId.
func (h *ToggleHandler) Favorite(c *gin.Context) {
	h.toggleMovie(c, preference.KindFavorite)
}

// Watched handles POST /toggle/watched/:movieId. Watched marks cannot be
// removed upstream, so toggling an already-watched movie is a no-op.
func (h *ToggleHandler) Watched(c *gin.Context) {
	h.toggleMovie(c, preference.KindWatched)
}

func (h *ToggleHandler) toggleMovie(c *gin.Context, kind preference.Kind) {
	sess := sessionFromCtx(c)

	movieID, err := strconv.Atoi(c.Param("movieId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid movie id"})
		return
	}

	toggler, ok := h.toggler(c, kind)
	if !ok {
		return
	}

	target := preference.Target{ID: movieID}
	if ref, ok := sess.MovieRef(movieID); ok {
		target.Name = ref.Title
	}

	respondToggle(c, kind, target.ID, toggler.Toggle(target))
}

type friendToggleRequest struct {
	Username string `json:"username"`
}

// Friend handles POST /toggle/friend/:userId.
// Friend edges are keyed by username on the wire and by user id in the index,
// so the target carries both. The username comes from the request body when
// the browser has it, otherwise from a lookup.
func (h *ToggleHandler) Friend(c *gin.Context) {
	sess := sessionFromCtx(c)
	ctx := c.Request.Context()

	userID, err := strconv.Atoi(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	var req friendToggleRequest
	_ = c.ShouldBindJSON(&req)
	username := req.Username
	if username == "" {
		names := resolve.New(h.client, sess).Usernames(ctx, []int{userID})
		username = names[userID]
		if username == resolve.UnknownUser {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
	}

	toggler, ok := h.toggler(c, preference.KindFriend)
	if !ok {
		return
	}

	state := toggler.Toggle(preference.Target{ID: userID, Name: username})
	respondToggle(c, preference.KindFriend, userID, state)
}

func (h *ToggleHandler) toggler(c *gin.Context, kind preference.Kind) (*preference.Toggler, bool) {
	store, ok := h.stores.Get(sessionFromCtx(c))
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown session"})
		return nil, false
	}
	t, ok := store.Toggler(kind)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown relation"})
		return nil, false
	}
	return t, true
}

func respondToggle(c *gin.Context, kind preference.Kind, targetID int, state preference.State) {
	c.JSON(http.StatusAccepted, gin.H{
		"kind":      kind,
		"target_id": targetID,
		"state":     state,
	})
}
