package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// ListenAddr is the address the gateway HTTP server binds to.
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`
	// ExternalURL is the publicly reachable URL for this gateway, used to
	// derive the credentialed CORS origin.
	ExternalURL string `env:"EXTERNAL_URL" envDefault:"http://localhost:8080"`
	// UpstreamBaseURL is the base URL of the service gateway that fronts the
	// catalog, activity, user and preference services. All /api/... paths are
	// resolved against it.
	UpstreamBaseURL string `env:"UPSTREAM_BASE_URL" envDefault:"http://localhost"`
	// RequestTimeout is the total deadline for a single upstream JSON call.
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`
	// SessionIdleTTL is how long a registered browser session survives without
	// activity before its caches are torn down. 0 disables expiry.
	SessionIdleTTL time.Duration `env:"SESSION_IDLE_TTL" envDefault:"12h"`
	// UsernameCacheTTL bounds the per-session user id → username cache.
	UsernameCacheTTL time.Duration `env:"USERNAME_CACHE_TTL" envDefault:"10m"`
	// MovieCacheTTL bounds the per-session movie reference cache.
	MovieCacheTTL time.Duration `env:"MOVIE_CACHE_TTL" envDefault:"10m"`
	// HealthCheckInterval is how often the gateway pings each upstream service.
	// Services that fail 2 consecutive checks are reported as down on /ready.
	HealthCheckInterval time.Duration `env:"HEALTH_CHECK_INTERVAL" envDefault:"30s"`
	// ShutdownTimeout is the maximum duration to wait for in-flight requests
	// to complete during graceful shutdown.
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
	// CORSOrigins is an additional set of origins (comma-separated) that are
	// allowed to make credentialed cross-origin requests. The ExternalURL
	// origin is always included automatically.
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:","`
}

// Load parses configuration from environment variables.
// Returns an error if a value cannot be parsed into the expected type.
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}
