package handler

import (
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	"github.com/movieverse/movieverse-gateway/upstream"
)

// PosterHandler passes poster images through from the catalog service. The
// bytes are untouched; only the Content-Type is sniffed when the upstream
// omits or mislabels it.
type PosterHandler struct {
	client *upstream.Client
}

func NewPosterHandler(client *upstream.Client) *PosterHandler {
	return &PosterHandler{client: client}
}

// Get handles GET /posters/*path.
func (h *PosterHandler) Get(c *gin.Context) {
	sess := sessionFromCtx(c)

	path := c.Param("path")
	if path == "" || path == "/" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing poster path"})
		return
	}

	body, contentType, status, err := h.client.GetRaw(c.Request.Context(), sess, "/posters"+path, nil)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "poster unavailable"})
		return
	}
	if status != http.StatusOK {
		c.Status(status)
		return
	}

	// Catalog responses sometimes carry a generic octet-stream type; sniffing
	// recognises more formats than the stdlib (WebP, AVIF, HEIC).
	if !strings.HasPrefix(contentType, "image/") {
		contentType = mimetype.Detect(body).String()
	}
	c.Data(http.StatusOK, contentType, body)
}
