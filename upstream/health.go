package upstream

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

const (
	// Default interval between health checks.
	defaultHealthInterval = 30 * time.Second
	// Timeout for a single health-check ping.
	healthCheckTimeout = 5 * time.Second
)

// serviceProbes maps each logical upstream service to the path pinged by the
// health checker. The endpoints require a session, so an authentication
// rejection (4xx) still proves the service is up; only transport failures and
// 5xx responses count against it.
var serviceProbes = map[string]string{
	"catalog":    "/api/movies/list",
	"users":      "/api/users/retrieve",
	"activity":   "/api/activity/watched",
	"preference": "/api/preference/favorite",
}

// serviceStatus tracks the availability of a single upstream service.
type serviceStatus struct {
	available    bool
	lastChecked  time.Time
	lastErr      string
	failureCount int
}

// HealthChecker periodically pings every upstream service and maintains an
// in-memory availability map, reported on the gateway's readiness probe.
type HealthChecker struct {
	client   *Client
	interval time.Duration

	mu       sync.RWMutex
	statuses map[string]*serviceStatus // keyed by service name

	cancel context.CancelFunc
	done   chan struct{}
}

// NewHealthChecker creates a health checker bound to the given client.
// Call Start() to begin background checking.
func NewHealthChecker(client *Client, interval time.Duration) *HealthChecker {
	if interval <= 0 {
		interval = defaultHealthInterval
	}
	return &HealthChecker{
		client:   client,
		interval: interval,
		statuses: make(map[string]*serviceStatus),
		done:     make(chan struct{}),
	}
}

// Start begins the background health-check loop. It runs an immediate check
// on startup, then repeats at the configured interval. Safe to call once.
func (hc *HealthChecker) Start(ctx context.Context) {
	ctx, hc.cancel = context.WithCancel(ctx)

	go func() {
		defer close(hc.done)

		// Immediate first check so services are classified before the first request.
		hc.checkAll(ctx)

		ticker := time.NewTicker(hc.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				hc.checkAll(ctx)
			}
		}
	}()
}

// Stop signals the health-check loop to stop and waits for it to finish.
func (hc *HealthChecker) Stop() {
	if hc.cancel != nil {
		hc.cancel()
	}
	<-hc.done
}

// IsAvailable reports whether the named service is considered reachable.
// Services that have never been checked are assumed available so that the
// first requests aren't blocked.
func (hc *HealthChecker) IsAvailable(service string) bool {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	s, ok := hc.statuses[service]
	if !ok {
		return true // unknown = assume available until first check
	}
	return s.available
}

// AllAvailable reports whether every probed service is reachable.
func (hc *HealthChecker) AllAvailable() bool {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	for _, s := range hc.statuses {
		if !s.available {
			return false
		}
	}
	return true
}

// ServiceHealthStatus is a snapshot of one service's health for the
// readiness probe.
type ServiceHealthStatus struct {
	Service      string    `json:"service"`
	Available    bool      `json:"available"`
	LastChecked  time.Time `json:"last_checked"`
	LastError    string    `json:"last_error,omitempty"`
	FailureCount int       `json:"failure_count"`
}

// Statuses returns a snapshot of all tracked service health statuses.
func (hc *HealthChecker) Statuses() []ServiceHealthStatus {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	result := make([]ServiceHealthStatus, 0, len(hc.statuses))
	for name, s := range hc.statuses {
		result = append(result, ServiceHealthStatus{
			Service:      name,
			Available:    s.available,
			LastChecked:  s.lastChecked,
			LastError:    s.lastErr,
			FailureCount: s.failureCount,
		})
	}
	return result
}

// checkAll pings every probed service concurrently.
func (hc *HealthChecker) checkAll(ctx context.Context) {
	var wg sync.WaitGroup
	for name, path := range serviceProbes {
		wg.Add(1)
		go func(name, path string) {
			defer wg.Done()
			hc.checkOne(ctx, name, path)
		}(name, path)
	}
	wg.Wait()
}

// checkOne pings a single service path and updates the status map.
func (hc *HealthChecker) checkOne(ctx context.Context, name, path string) {
	reqCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, hc.client.baseURL+path, nil)
	if err != nil {
		hc.recordResult(name, fmt.Errorf("bad url: %w", err))
		return
	}

	resp, err := hc.client.jsonClient.Do(req)
	if err != nil {
		hc.recordResult(name, err)
		return
	}
	_ = resp.Body.Close()

	if resp.StatusCode < 500 {
		hc.recordResult(name, nil)
	} else {
		hc.recordResult(name, fmt.Errorf("status %d", resp.StatusCode))
	}
}

// recordResult updates the in-memory status for a service.
// A service is marked unavailable after 2 consecutive failures, and marked
// available again on the first success. This avoids flapping on transient
// single-request failures.
func (hc *HealthChecker) recordResult(name string, err error) {
	hc.mu.Lock()
	defer hc.mu.Unlock()

	s, ok := hc.statuses[name]
	if !ok {
		s = &serviceStatus{available: true}
		hc.statuses[name] = s
	}

	s.lastChecked = time.Now()

	if err == nil {
		if !s.available {
			slog.Info("upstream service came back online", "service", name)
		}
		s.available = true
		s.failureCount = 0
		s.lastErr = ""
		return
	}

	s.failureCount++
	s.lastErr = err.Error()

	// Require 2 consecutive failures before marking unavailable to avoid
	// flapping on a single dropped packet.
	if s.failureCount >= 2 && s.available {
		slog.Warn("upstream service marked unavailable",
			"service", name,
			"failures", s.failureCount, "error", err)
		s.available = false
	}
}
