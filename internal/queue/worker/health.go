package worker

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the worker's side port: /healthz, /readyz (loop running
// and database reachable), /stats with the in-process job counters, and /metrics.
func (w *Worker) HealthHandler(db Pinger) http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/readyz", func(c *gin.Context) {
		checks := map[string]string{"loop": "up"}
		if !w.Ready() {
			checks["loop"] = "down"
		}

		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 500*time.Millisecond)
			defer cancel()

			checks["postgres"] = "up"
			if err := db.Ping(ctx); err != nil {
				checks["postgres"] = "down"
			}
		}

		for _, v := range checks {
			if v == "down" {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "checks": checks})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "checks": checks})
	})

	r.GET("/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, w.Metrics())
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}
