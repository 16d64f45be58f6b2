package api

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/movieverse/movieverse-gateway/api/handler"
	"github.com/movieverse/movieverse-gateway/api/middleware"
	"github.com/movieverse/movieverse-gateway/config"
	"github.com/movieverse/movieverse-gateway/session"
	"github.com/movieverse/movieverse-gateway/upstream"
)

// corsMiddleware returns a gin-contrib/cors middleware configured with the
// gateway's allowed origins. Credentialed origins from ExternalURL +
// CORSOrigins are accepted with credentials; the composite endpoints need the
// browser's cookies, so unknown origins are rejected outright.
func corsMiddleware(cfg config.Config) gin.HandlerFunc {
	allowed := buildAllowedOrigins(cfg.ExternalURL)
	for _, o := range cfg.CORSOrigins {
		allowed[strings.ToLower(o)] = true
	}

	return cors.New(cors.Config{
		AllowOriginWithContextFunc: func(c *gin.Context, origin string) bool {
			return allowed[strings.ToLower(origin)]
		},
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Content-Length", "Accept", middleware.SessionHeader, middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Type", middleware.SessionHeader, middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	})
}

// NewRouter builds and returns the gateway's http.Handler.
func NewRouter(
	cfg config.Config,
	client *upstream.Client,
	registry *session.Registry,
	health *upstream.HealthChecker,
	wsHub *handler.WSHub,
) http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.RequestLogger(), corsMiddleware(cfg))

	stores := handler.NewPreferenceStores(client, registry, wsHub)

	sessionH := handler.NewSessionHandler(registry, stores)
	viewH := handler.NewViewHandler(client, stores)
	toggleH := handler.NewToggleHandler(client, stores)
	ratingH := handler.NewRatingHandler(client)
	posterH := handler.NewPosterHandler(client)
	systemH := handler.NewSystemHandler(health)

	// Session registration is the only endpoint reachable without one.
	r.POST("/session", sessionH.Register)

	auth := r.Group("", middleware.SessionAuth(registry))
	{
		auth.DELETE("/session", sessionH.Unregister)

		auth.GET("/view/feed", viewH.Feed)
		auth.GET("/view/movies/:movieId", viewH.Movie)
		auth.GET("/view/users/:userId", viewH.User)
		auth.GET("/view/friends", viewH.Friends)

		auth.POST("/toggle/favorite/:movieId", toggleH.Favorite)
		auth.POST("/toggle/watched/:movieId", toggleH.Watched)
		auth.POST("/toggle/friend/:userId", toggleH.Friend)

		auth.POST("/ratings/:movieId", ratingH.Submit)
		auth.POST("/reviews/:ratingId/reaction", ratingH.React)

		auth.GET("/posters/*path", posterH.Get)

		auth.GET("/socket", handler.WebSocketHandler(wsHub))
	}

	// Health probes — unauthenticated, for container orchestrators.
	r.GET("/health", systemH.HealthLive)
	r.GET("/ready", systemH.HealthReady)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found"})
	})

	return r
}

// buildAllowedOrigins returns a set of lower-cased origin strings that are
// allowed to make credentialed cross-origin requests. It derives the origins
// from the configured ExternalURL and also includes its http/https counterpart
// so that both schemes work during development.
func buildAllowedOrigins(externalURL string) map[string]bool {
	origins := make(map[string]bool)
	if externalURL == "" {
		return origins
	}
	parsed, err := url.Parse(externalURL)
	if err != nil {
		origins[strings.ToLower(externalURL)] = true
		return origins
	}
	// Origin = scheme://host (no trailing slash, no path).
	origin := strings.ToLower(parsed.Scheme + "://" + parsed.Host)
	origins[origin] = true
	// Also allow the opposite scheme so http↔https both work.
	switch parsed.Scheme {
	case "https":
		origins["http://"+strings.ToLower(parsed.Host)] = true
	case "http":
		origins["https://"+strings.ToLower(parsed.Host)] = true
	}
	return origins
}
