package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/movieverse/movieverse-gateway/upstream"
)

// SystemHandler serves the container-orchestrator probes.
type SystemHandler struct {
	health *upstream.HealthChecker
}

func NewSystemHandler(health *upstream.HealthChecker) *SystemHandler {
	return &SystemHandler{health: health}
}

// HealthLive handles GET /health — liveness, always OK while the process runs.
func (h *SystemHandler) HealthLive(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HealthReady handles GET /ready — readiness, reflecting upstream service
// availability from the health checker. Degraded upstreams return 503 with
// the per-service breakdown.
func (h *SystemHandler) HealthReady(c *gin.Context) {
	status := http.StatusOK
	if !h.health.AllAvailable() {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{
		"status":   readyLabel(status),
		"services": h.health.Statuses(),
	})
}

func readyLabel(status int) string {
	if status == http.StatusOK {
		return "ready"
	}
	return "degraded"
}
