package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/survey-api/internal/service"
)

// ReadinessCheck probes one dependency. Optional checks are reported but do
// not fail readiness; the API serves reports without Redis.
type ReadinessCheck struct {
	Name     string
	Optional bool
	Probe    func(ctx context.Context) error
}

// MetricsHandler serves probes and the Prometheus scrape endpoint.
type MetricsHandler struct {
	metrics *service.MetricsService
	checks  []ReadinessCheck
	timeout time.Duration
}

func NewMetricsHandler(metrics *service.MetricsService, checks ...ReadinessCheck) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, checks: checks, timeout: 2 * time.Second}
}

func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health is the liveness probe.
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready runs every check within a shared deadline.
func (h *MetricsHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	status, code := "ready", http.StatusOK
	results := make(map[string]string, len(h.checks))
	for _, check := range h.checks {
		if check.Probe == nil {
			continue
		}
		if err := check.Probe(ctx); err != nil {
			results[check.Name] = err.Error()
			if check.Optional {
				if status == "ready" {
					status = "degraded"
				}
				continue
			}
			status, code = "unavailable", http.StatusServiceUnavailable
			continue
		}
		results[check.Name] = "ok"
	}
	c.JSON(code, gin.H{"status": status, "checks": results})
}
