package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iho/journalbot/internal/adapter/http/handler"
	"github.com/iho/journalbot/internal/adapter/http/middleware"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	DocumentHandler *handler.DocumentHandler
	RulesHandler    *handler.RulesHandler
	StatsHandler    *handler.StatsHandler
	HealthHandler   *handler.HealthHandler
	RateLimiter     *middleware.RateLimiter
	Logger          zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Recovery)
	r.Use(middleware.Metrics)

	// Health and operational endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		if cfg.RateLimiter != nil {
			r.Use(cfg.RateLimiter.Limit)
		}

		// Documents
		r.Route("/documents", func(r chi.Router) {
			r.Post("/process", cfg.DocumentHandler.Process)
			r.Post("/process/batch", cfg.DocumentHandler.ProcessBatch)
		})

		// Rules
		r.Route("/rules", func(r chi.Router) {
			r.Get("/", cfg.RulesHandler.List)
			r.Post("/reload", cfg.RulesHandler.Reload)
		})

		// Stats
		r.Get("/stats", cfg.StatsHandler.Get)
	})

	return r
}
