// Nowcast - Now-Playing Aggregation and Real-Time Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nowcast

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/nowcast/internal/config"
	"github.com/tomtom215/nowcast/internal/middleware"
)

// NewRouter builds the chi router for the full HTTP surface:
//
//	GET /ws                   WebSocket session endpoint
//	GET /api/v1/now-playing   REST snapshot (per-IP rate limited)
//	GET /health               liveness probe
//	GET /ready                readiness probe
//	GET /metrics              Prometheus exposition (when enabled)
//
// The WebSocket route skips the Prometheus wrapper because the
// instrumenting ResponseWriter does not support hijacking.
func NewRouter(cfg *config.Config, h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.Recoverer)

	r.Get("/ws", h.ServeWS)

	r.Group(func(r chi.Router) {
		r.Use(middleware.SecurityHeaders)
		r.Use(middleware.PrometheusMetrics)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.Security.CORSAllowedOrigins,
			AllowedMethods: []string{"GET", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type"},
			MaxAge:         86400,
		}))

		r.Get("/health", h.Health)
		r.Get("/ready", h.Ready)

		if cfg.Metrics.Enabled {
			r.Handle("/metrics", promhttp.Handler())
		}

		r.Route("/api/v1", func(r chi.Router) {
			// Polling the snapshot endpoint is discouraged; push
			// clients should use /ws.
			r.Use(httprate.Limit(
				cfg.Push.RateLimit,
				cfg.Push.RateWindow,
				httprate.WithKeyFuncs(httprate.KeyByIP),
			))
			r.Get("/now-playing", h.NowPlaying)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "not_found", "no such endpoint")
	})

	return r
}
