// Nowcast - Now-Playing Aggregation and Real-Time Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nowcast

package api

import (
	"context"
	"net/http"
	"time"

	gorilla "github.com/gorilla/websocket"

	"github.com/tomtom215/nowcast/internal/config"
	"github.com/tomtom215/nowcast/internal/logging"
	"github.com/tomtom215/nowcast/internal/models"
	ws "github.com/tomtom215/nowcast/internal/websocket"
)

// restRunTimeout bounds how long the REST snapshot endpoint waits for
// a terminal result. Generous relative to the worst-case pipeline.
const restRunTimeout = 60 * time.Second

// Handler serves the REST and WebSocket endpoints.
type Handler struct {
	cfg       *config.Config
	refresher ws.Refresher
	hub       *ws.Hub
	upgrader  gorilla.Upgrader

	// baseCtx parents REST-triggered aggregation runs, decoupling
	// them from the request context: the run is shared through the
	// cache, so one disconnecting requester must not abort it for
	// attached callers.
	baseCtx context.Context
}

// NewHandler creates the handler set. baseCtx should be the process
// lifecycle context; it releases requests still waiting on a run when
// the server shuts down.
func NewHandler(baseCtx context.Context, cfg *config.Config, refresher ws.Refresher, hub *ws.Hub) *Handler {
	h := &Handler{
		cfg:       cfg,
		refresher: refresher,
		hub:       hub,
		baseCtx:   baseCtx,
	}
	h.upgrader = gorilla.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// checkOrigin applies the configured CORS origin list to WebSocket
// upgrades. Requests without an Origin header are rejected; browsers
// always send one and non-browser clients must identify themselves.
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return false
	}
	for _, allowed := range h.cfg.Security.CORSAllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// ServeWS upgrades the connection and hands it to the hub.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		logging.Debug().Err(err).Str("origin", r.Header.Get("Origin")).Msg("websocket upgrade rejected")
		return
	}

	client := ws.NewClient(h.hub, conn)
	h.hub.Register <- client
	client.Start()
}

// NowPlaying is the REST snapshot of the aggregation pipeline: it runs
// (or joins) an aggregation and responds with the terminal result.
func (h *Handler) NowPlaying(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(h.baseCtx, restRunTimeout)
	defer cancel()

	events := h.refresher.Run(ctx)

	var terminal models.AggregationResult
	first := true
	cached := false
	for result := range events {
		if result.Status.Terminal() {
			// A cache hit is delivered as the only event; every live
			// run emits a loading event before its terminal.
			cached = first
			terminal = result
			break
		}
		first = false
	}

	switch terminal.Status {
	case models.StatusComplete:
		respondSuccess(w, terminal, cached)
	case models.StatusError:
		respondError(w, http.StatusBadGateway, ErrCodeUpstreamFailed, terminal.Message)
	default:
		respondError(w, http.StatusInternalServerError, ErrCodeInternal, "aggregation did not complete")
	}
}

// Health is the liveness probe.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, map[string]string{"status": "ok"}, false)
}

// Ready is the readiness probe: the service is ready once the hub's
// run loop is active.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil || !h.hub.Running() {
		respondError(w, http.StatusServiceUnavailable, ErrCodeNotReady, "push hub not running")
		return
	}
	respondSuccess(w, map[string]string{"status": "ready"}, false)
}
