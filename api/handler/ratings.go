package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/movieverse/movieverse-gateway/resolve"
	"github.com/movieverse/movieverse-gateway/upstream"
)

// RatingHandler submits ratings and review reactions. Unlike the toggles,
// rating submission reconciles synchronously: the response already carries the
// refreshed joined rating list so the browser can replace its view wholesale.
type RatingHandler struct {
	client *upstream.Client
}

func NewRatingHandler(client *upstream.Client) *RatingHandler {
	return &RatingHandler{client: client}
}

// Submit handles POST /ratings/:movieId?rating=<n>.
func (h *RatingHandler) Submit(c *gin.Context) {
	sess := sessionFromCtx(c)
	ctx := c.Request.Context()

	movieID, err := strconv.Atoi(c.Param("movieId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid movie id"})
		return
	}
	rating, err := strconv.Atoi(c.Query("rating"))
	if err != nil || rating < 1 || rating > 10 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "rating must be between 1 and 10"})
		return
	}

	if err := h.client.SubmitRating(ctx, sess, movieID, rating); err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, upstream.ErrUnexpectedStatus) {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": "rating was not recorded"})
		return
	}

	// Re-read rather than patch, so concurrent ratings from other users show
	// up in the same response.
	records, err := h.client.RatingsForMovie(ctx, sess, movieID)
	if err != nil {
		records = nil
	}
	joined := resolve.New(h.client, sess).RatingsWithUsernames(ctx, records)
	c.JSON(http.StatusOK, gin.H{"movie_id": movieID, "ratings": joined})
}

// React handles POST /reviews/:ratingId/reaction?agreed=<bool>.
func (h *RatingHandler) React(c *gin.Context) {
	sess := sessionFromCtx(c)

	ratingID, err := strconv.Atoi(c.Param("ratingId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rating id"})
		return
	}
	agreed, err := strconv.ParseBool(c.Query("agreed"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "agreed must be true or false"})
		return
	}

	if err := h.client.ReactToReview(c.Request.Context(), sess, ratingID, agreed); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "reaction was not recorded"})
		return
	}
	c.Status(http.StatusNoContent)
}
