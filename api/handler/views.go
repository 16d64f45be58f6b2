package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/movieverse/movieverse-gateway/preference"
	"github.com/movieverse/movieverse-gateway/resolve"
	"github.com/movieverse/movieverse-gateway/upstream"
)

// ViewHandler serves the composite "screen" endpoints. Each one fans out to
// the upstream services, joins the raw records through the resolver and
// returns a display-ready payload. Upstream read failures degrade to empty
// sections rather than error responses.
type ViewHandler struct {
	client *upstream.Client
	stores *PreferenceStores
}

func NewViewHandler(client *upstream.Client, stores *PreferenceStores) *ViewHandler {
	return &ViewHandler{client: client, stores: stores}
}

// Feed handles GET /view/feed.
// The friends newsfeed: the caller's friends' watched activity joined with
// movie and username lookups, in activity order.
func (h *ViewHandler) Feed(c *gin.Context) {
	sess := sessionFromCtx(c)
	ctx := c.Request.Context()
	resolver := resolve.New(h.client, sess)

	friends, err := h.client.Friends(ctx, sess)
	if err != nil {
		slog.Warn("feed: friend list unavailable", "session_id", sess.ID(), "error", err)
		c.JSON(http.StatusOK, gin.H{"entries": []resolve.FeedEntry{}})
		return
	}
	if len(friends) == 0 {
		c.JSON(http.StatusOK, gin.H{"entries": []resolve.FeedEntry{}})
		return
	}

	// Seed the username cache so the feed join doesn't refetch names we
	// already hold.
	friendIDs := make([]int, 0, len(friends))
	for _, f := range friends {
		friendIDs = append(friendIDs, f.UserID)
		sess.StoreUsername(f.UserID, f.Username)
	}

	activity, err := h.client.WatchedByUsers(ctx, sess, friendIDs)
	if err != nil {
		slog.Warn("feed: activity unavailable", "session_id", sess.ID(), "error", err)
		c.JSON(http.StatusOK, gin.H{"entries": []resolve.FeedEntry{}})
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": resolver.ActivityWithMovies(ctx, activity)})
}

// Movie handles GET /view/movies/:movieId.
// The movie detail composite: the full catalog record, its ratings joined
// with reviewer usernames, the two recommendation rails, and the caller's
// favorite/watched state.
func (h *ViewHandler) Movie(c *gin.Context) {
	sess := sessionFromCtx(c)
	ctx := c.Request.Context()

	movieID, err := strconv.Atoi(c.Param("movieId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid movie id"})
		return
	}

	movie, err := h.client.Movie(ctx, sess, movieID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "movie not found"})
		return
	}
	sess.StoreMovieRef(movie.MovieRef)

	resolver := resolve.New(h.client, sess)
	ratings, err := h.client.RatingsForMovie(ctx, sess, movieID)
	if err != nil {
		slog.Warn("movie view: ratings unavailable",
			"session_id", sess.ID(), "movie_id", movieID, "error", err)
		ratings = nil
	}

	payload := gin.H{
		"movie":              movie,
		"ratings":            resolver.RatingsWithUsernames(ctx, ratings),
		"similar_by_genre":   h.similarRail(c, movieID, h.client.SimilarByGenre),
		"similar_by_runtime": h.similarRail(c, movieID, h.client.SimilarByRuntime),
	}
	if store, ok := h.stores.Get(sess); ok {
		if t, ok := store.Toggler(preference.KindFavorite); ok {
			payload["favorite_state"] = t.State(movieID)
		}
		if t, ok := store.Toggler(preference.KindWatched); ok {
			payload["watched_state"] = t.State(movieID)
		}
	}
	c.JSON(http.StatusOK, payload)
}

// User handles GET /view/users/:userId.
// The profile screen: the user's watched movies and rated movies, each joined
// against the catalog. Rows whose movie cannot be resolved are dropped.
func (h *ViewHandler) User(c *gin.Context) {
	sess := sessionFromCtx(c)
	ctx := c.Request.Context()

	userID, err := strconv.Atoi(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	user, err := h.client.User(ctx, sess, userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	sess.StoreUsername(user.UserID, user.Username)

	resolver := resolve.New(h.client, sess)

	activity, err := h.client.WatchedByUsers(ctx, sess, []int{userID})
	if err != nil {
		slog.Warn("profile: activity unavailable",
			"session_id", sess.ID(), "user_id", userID, "error", err)
		activity = nil
	}
	movieIDs := make([]int, 0, len(activity))
	for _, rec := range activity {
		movieIDs = append(movieIDs, rec.MovieID)
	}

	ratings, err := h.client.RatingsByUser(ctx, sess, userID)
	if err != nil {
		slog.Warn("profile: ratings unavailable",
			"session_id", sess.ID(), "user_id", userID, "error", err)
		ratings = nil
	}

	c.JSON(http.StatusOK, gin.H{
		"user":           user,
		"watched_movies": resolver.Movies(ctx, movieIDs),
		"rated_movies":   resolver.RatedMovies(ctx, ratings),
	})
}

// similarRail fetches one of the movie view's recommendation rails. A failed
// read degrades to an empty rail; the rest of the view still renders.
func (h *ViewHandler) similarRail(
	c *gin.Context,
	movieID int,
	fetch func(context.Context, upstream.Credentials, int) ([]upstream.MovieComposite, error),
) []upstream.MovieComposite {
	sess := sessionFromCtx(c)

	movies, err := fetch(c.Request.Context(), sess, movieID)
	if err != nil {
		slog.Warn("movie view: recommendations unavailable",
			"session_id", sess.ID(), "movie_id", movieID, "error", err)
		return []upstream.MovieComposite{}
	}
	for _, m := range movies {
		sess.StoreMovieRef(m.MovieRef)
	}
	if movies == nil {
		movies = []upstream.MovieComposite{}
	}
	return movies
}

// friendRow is one row of the friends screen.
type friendRow struct {
	upstream.UserRef
	FriendState preference.State `json:"friend_state"`
}

// Friends handles GET /view/friends.
// Every registered user except the caller, flagged with the caller's friend
// edge state so pending toggles render immediately.
func (h *ViewHandler) Friends(c *gin.Context) {
	sess := sessionFromCtx(c)
	ctx := c.Request.Context()

	users, err := h.client.Users(ctx, sess)
	if err != nil {
		slog.Warn("friends view: user list unavailable", "session_id", sess.ID(), "error", err)
		c.JSON(http.StatusOK, gin.H{"users": []friendRow{}})
		return
	}

	var friendToggler *preference.Toggler
	if store, ok := h.stores.Get(sess); ok {
		friendToggler, _ = store.Toggler(preference.KindFriend)
	}

	rows := make([]friendRow, 0, len(users))
	for _, u := range users {
		if u.UserID == sess.UserID() {
			continue
		}
		sess.StoreUsername(u.UserID, u.Username)
		state := preference.Unset
		if friendToggler != nil {
			state = friendToggler.State(u.UserID)
		}
		rows = append(rows, friendRow{UserRef: u, FriendState: state})
	}
	c.JSON(http.StatusOK, gin.H{"users": rows})
}
