// Package httpapi provides the ops/admin HTTP surface of the coordinator:
// statistics, warmup triggers, invalidation, region administration, health
// and metrics. The business data path stays in-process through the Service
// interface; nothing here is on the request path.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	MetricsEnabled bool
	MetricsPath    string
	RequestTimeout time.Duration
}

// NewRouter creates the ops HTTP router.
func NewRouter(handler *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	r.Get("/health", handler.Health)

	if cfg.MetricsEnabled {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, promhttp.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/regions", handler.Regions)
		r.Delete("/regions/{region}", handler.ClearRegion)
		r.Delete("/regions/{region}/keys/{key}", handler.Evict)
		r.Post("/regions/{region}/warmup", handler.WarmupRegion)

		r.Get("/warmup/jobs", handler.WarmupJobs)

		r.Post("/invalidations", handler.Invalidate)

		r.Get("/relationships", handler.Relationships)
		r.Put("/relationships", handler.ReconfigureRelationships)
	})

	return r
}
