package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/etp-gateway/internal/service"
	"github.com/noah-isme/etp-gateway/pkg/jobs"
)

type queueStats interface {
	QueueStats() jobs.Stats
}

// ReadinessCheck probes one dependency.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// HealthHandler exposes liveness, readiness and Prometheus endpoints.
type HealthHandler struct {
	metrics *service.MetricsService
	queue   queueStats
	checks  []ReadinessCheck
	timeout time.Duration
}

// NewHealthHandler constructs the handler. queue may be nil.
func NewHealthHandler(metrics *service.MetricsService, queue queueStats, checks ...ReadinessCheck) *HealthHandler {
	return &HealthHandler{metrics: metrics, queue: queue, checks: checks, timeout: 2 * time.Second}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *HealthHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health responds with an OK payload and a metrics summary.
func (h *HealthHandler) Health(c *gin.Context) {
	payload := gin.H{"status": "ok"}
	if h.metrics != nil {
		payload["metrics"] = h.metrics.Snapshot()
	}
	if h.queue != nil {
		payload["reconcile_queue"] = h.queue.QueueStats()
	}
	c.JSON(http.StatusOK, payload)
}

// Ready runs every readiness check and reports 503 when one fails.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for _, check := range h.checks {
		if err := check.Check(ctx); err != nil {
			results[check.Name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[check.Name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "degraded"
	}
	c.JSON(status, gin.H{"status": state, "checks": results})
}
