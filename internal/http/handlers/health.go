package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ReadinessCheck probes one dependency the API cannot serve without.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type HealthHandler struct {
	checks  []ReadinessCheck
	timeout time.Duration
}

func NewHealthHandler(checks ...ReadinessCheck) *HealthHandler {
	return &HealthHandler{checks: checks, timeout: time.Second}
}

func (h *HealthHandler) Healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readyz runs every check under one deadline and reports each result.
func (h *HealthHandler) Readyz(ctx *gin.Context) {
	c, cancel := context.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	status, code := "ready", http.StatusOK
	results := make(map[string]string, len(h.checks))

	for _, rc := range h.checks {
		if err := rc.Check(c); err != nil {
			results[rc.Name] = "down"
			status, code = "not_ready", http.StatusServiceUnavailable
			continue
		}
		results[rc.Name] = "up"
	}

	ctx.JSON(code, gin.H{"status": status, "checks": results})
}
