package config_test

import (
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/movieverse/movieverse-gateway/config"
)

func TestConfig(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Config Suite")
}

var _ = Describe("Load", func() {
	// Keys managed by these tests — saved and restored around each spec.
	var envKeys = []string{
		"LISTEN_ADDR", "EXTERNAL_URL", "UPSTREAM_BASE_URL", "REQUEST_TIMEOUT",
		"SESSION_IDLE_TTL", "USERNAME_CACHE_TTL", "MOVIE_CACHE_TTL",
		"HEALTH_CHECK_INTERVAL", "SHUTDOWN_TIMEOUT", "CORS_ORIGINS",
	}

	var saved map[string]string

	BeforeEach(func() {
		saved = make(map[string]string, len(envKeys))
		for _, k := range envKeys {
			saved[k] = os.Getenv(k)
			Expect(os.Unsetenv(k)).To(Succeed())
		}
	})

	AfterEach(func() {
		for k, v := range saved {
			if v == "" {
				Expect(os.Unsetenv(k)).To(Succeed())
			} else {
				Expect(os.Setenv(k, v)).To(Succeed())
			}
		}
	})

	It("returns defaults when no env vars are set", func() {
		cfg, err := config.Load()
		Expect(err).NotTo(HaveOccurred())

		Expect(cfg.ListenAddr).To(Equal(":8080"))
		Expect(cfg.ExternalURL).To(Equal("http://localhost:8080"))
		Expect(cfg.UpstreamBaseURL).To(Equal("http://localhost"))
		Expect(cfg.RequestTimeout).To(Equal(10 * time.Second))
		Expect(cfg.SessionIdleTTL).To(Equal(12 * time.Hour))
		Expect(cfg.UsernameCacheTTL).To(Equal(10 * time.Minute))
		Expect(cfg.MovieCacheTTL).To(Equal(10 * time.Minute))
		Expect(cfg.HealthCheckInterval).To(Equal(30 * time.Second))
		Expect(cfg.ShutdownTimeout).To(Equal(15 * time.Second))
		Expect(cfg.CORSOrigins).To(BeEmpty())
	})

	It("reads string values from env vars", func() {
		Expect(os.Setenv("LISTEN_ADDR", ":9090")).To(Succeed())
		Expect(os.Setenv("EXTERNAL_URL", "https://movies.example.com")).To(Succeed())
		Expect(os.Setenv("UPSTREAM_BASE_URL", "http://gateway:80")).To(Succeed())

		cfg, err := config.Load()
		Expect(err).NotTo(HaveOccurred())

		Expect(cfg.ListenAddr).To(Equal(":9090"))
		Expect(cfg.ExternalURL).To(Equal("https://movies.example.com"))
		Expect(cfg.UpstreamBaseURL).To(Equal("http://gateway:80"))
	})

	It("reads duration values from env vars", func() {
		Expect(os.Setenv("REQUEST_TIMEOUT", "3s")).To(Succeed())
		Expect(os.Setenv("SESSION_IDLE_TTL", "1h")).To(Succeed())
		Expect(os.Setenv("USERNAME_CACHE_TTL", "30s")).To(Succeed())

		cfg, err := config.Load()
		Expect(err).NotTo(HaveOccurred())

		Expect(cfg.RequestTimeout).To(Equal(3 * time.Second))
		Expect(cfg.SessionIdleTTL).To(Equal(time.Hour))
		Expect(cfg.UsernameCacheTTL).To(Equal(30 * time.Second))
	})

	It("returns an error for an invalid duration", func() {
		Expect(os.Setenv("REQUEST_TIMEOUT", "not-a-duration")).To(Succeed())

		_, err := config.Load()
		Expect(err).To(HaveOccurred())
	})

	It("splits CORS origins on commas", func() {
		Expect(os.Setenv("CORS_ORIGINS", "http://a.example,http://b.example")).To(Succeed())

		cfg, err := config.Load()
		Expect(err).NotTo(HaveOccurred())

		Expect(cfg.CORSOrigins).To(Equal([]string{"http://a.example", "http://b.example"}))
	})
})
