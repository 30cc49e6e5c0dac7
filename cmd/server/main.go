// Nowcast - Now-Playing Aggregation and Real-Time Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nowcast

// Nowcast aggregates a listener's currently playing track from a
// listening-history provider, enriches it with track metadata and
// cover art, and pushes status updates to WebSocket sessions in real
// time.
//
// Usage:
//
//	NOWCAST_HISTORY_USER=listener nowcast
//
// Configuration is read from config.yaml (or NOWCAST_CONFIG_PATH) with
// NOWCAST_* environment overrides; a .env file is loaded when present.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/tomtom215/nowcast/internal/aggregator"
	"github.com/tomtom215/nowcast/internal/api"
	"github.com/tomtom215/nowcast/internal/config"
	"github.com/tomtom215/nowcast/internal/logging"
	"github.com/tomtom215/nowcast/internal/providers"
	"github.com/tomtom215/nowcast/internal/ratelimit"
	"github.com/tomtom215/nowcast/internal/supervisor"
	"github.com/tomtom215/nowcast/internal/supervisor/services"
	ws "github.com/tomtom215/nowcast/internal/websocket"
)

func main() {
	// Local-run convenience; missing .env is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("user", cfg.History.User).
		Bool("enrichment_enabled", cfg.Enrichment.APIKey != "").
		Msg("Starting Nowcast")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Provider clients. The history stage is mandatory and gets the
	// circuit breaker; the rest are best-effort.
	timeout := cfg.Aggregator.CallTimeout
	var history providers.HistoryClient = providers.NewListenBrainzClient(&cfg.History, timeout)
	history = providers.NewBreakerHistoryClient(history)

	var enrichment providers.EnrichmentClient
	if cfg.Enrichment.APIKey != "" {
		enrichment = providers.NewLastFMClient(&cfg.Enrichment, timeout)
	} else {
		logging.Warn().Msg("No enrichment API key configured, enrichment stage disabled")
	}

	artwork := providers.NewCoverArtClient(&cfg.Artwork, timeout)
	catalog := providers.NewMusicBrainzClient(&cfg.Catalog, timeout)

	agg := aggregator.New(
		cfg.History.User,
		history,
		enrichment,
		artwork,
		catalog,
		aggregator.NewResultCache(cfg.Aggregator.CacheTTL),
	)

	limiter := ratelimit.New(cfg.Push.RateLimit, cfg.Push.RateWindow)
	hub := ws.NewHub(agg, limiter, cfg.Push.AutoRefreshInterval, cfg.Push.MaxClients)

	handler := api.NewHandler(ctx, cfg, agg, hub)
	router := api.NewRouter(cfg, handler)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	treeConfig := supervisor.DefaultTreeConfig()
	treeConfig.ShutdownTimeout = cfg.Server.ShutdownTimeout
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), treeConfig)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build supervisor tree")
	}

	tree.AddMessagingService(services.NewHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Nowcast stopped gracefully")
}
