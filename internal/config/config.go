// Nowcast - Now-Playing Aggregation and Real-Time Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nowcast

// Package config loads and validates the Nowcast configuration using
// koanf v2 with layered precedence: struct defaults, then an optional
// YAML file, then NOWCAST_* environment variables.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/nowcast/internal/validation"
)

// Config is the full configuration surface.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	History    HistoryConfig    `koanf:"history"`
	Enrichment EnrichmentConfig `koanf:"enrichment"`
	Artwork    ArtworkConfig    `koanf:"artwork"`
	Catalog    CatalogConfig    `koanf:"catalog"`
	Aggregator AggregatorConfig `koanf:"aggregator"`
	Push       PushConfig       `koanf:"push"`
	Security   SecurityConfig   `koanf:"security"`
	Logging    LoggingConfig    `koanf:"logging"`
	Metrics    MetricsConfig    `koanf:"metrics"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment" validate:"oneof=development production"`
}

// HistoryConfig points at the listening-history provider
// (ListenBrainz-shaped). Token is optional.
type HistoryConfig struct {
	BaseURL string `koanf:"base_url" validate:"required,url"`
	User    string `koanf:"user" validate:"required"`
	Token   string `koanf:"token"`
}

// EnrichmentConfig points at the metadata-enrichment provider
// (Last.fm-shaped). An empty APIKey disables all enrichment calls.
type EnrichmentConfig struct {
	BaseURL string `koanf:"base_url" validate:"required,url"`
	APIKey  string `koanf:"api_key"`
}

// ArtworkConfig points at the artwork-archive provider
// (Cover Art Archive-shaped).
type ArtworkConfig struct {
	BaseURL string `koanf:"base_url" validate:"required,url"`
}

// CatalogConfig points at the release-catalog search provider
// (MusicBrainz-shaped). RatePerSec is the client-side politeness pace.
type CatalogConfig struct {
	BaseURL    string  `koanf:"base_url" validate:"required,url"`
	RatePerSec float64 `koanf:"rate_per_sec" validate:"min=0"`
}

// AggregatorConfig holds the fixed-by-design pipeline timings. They
// ship as defaults and are construction parameters of the aggregator
// so tests can shrink them.
type AggregatorConfig struct {
	CacheTTL    time.Duration `koanf:"cache_ttl" validate:"min=1s"`
	CallTimeout time.Duration `koanf:"call_timeout" validate:"min=1s"`
}

// PushConfig holds the push-session policy.
type PushConfig struct {
	RateLimit           int           `koanf:"rate_limit" validate:"min=1"`
	RateWindow          time.Duration `koanf:"rate_window" validate:"min=1s"`
	AutoRefreshInterval time.Duration `koanf:"auto_refresh_interval" validate:"min=1s"`
	MaxClients          int           `koanf:"max_clients" validate:"min=1"`
}

// SecurityConfig holds the transport-level policy; the same origin
// list feeds both CORS and the WebSocket origin check.
type SecurityConfig struct {
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// MetricsConfig toggles the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled bool `koanf:"enabled"`
}

// defaultConfig returns a Config with all defaults applied. The
// aggregation and push timings carry their fixed-by-design values:
// 20s cache TTL, 8s per-call timeout, 10 requests per 60s window,
// 30s auto-refresh interval.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8090,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			Environment:     "development",
		},
		History: HistoryConfig{
			BaseURL: "https://api.listenbrainz.org",
			User:    "",
			Token:   "",
		},
		Enrichment: EnrichmentConfig{
			BaseURL: "https://ws.audioscrobbler.com",
			APIKey:  "",
		},
		Artwork: ArtworkConfig{
			BaseURL: "https://coverartarchive.org",
		},
		Catalog: CatalogConfig{
			BaseURL:    "https://musicbrainz.org",
			RatePerSec: 1,
		},
		Aggregator: AggregatorConfig{
			CacheTTL:    20 * time.Second,
			CallTimeout: 8 * time.Second,
		},
		Push: PushConfig{
			RateLimit:           10,
			RateWindow:          60 * time.Second,
			AutoRefreshInterval: 30 * time.Second,
			MaxClients:          256,
		},
		Security: SecurityConfig{
			CORSAllowedOrigins: []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate checks struct tags plus cross-field rules.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return err
	}

	if c.History.User == "" {
		return errors.New("history.user is required: set NOWCAST_HISTORY_USER or history.user in the config file")
	}

	if c.Push.AutoRefreshInterval < c.Aggregator.CacheTTL {
		// Auto-refresh faster than the cache TTL would only return
		// cached entries; allowed, but worth flagging in production.
		if c.Server.Environment == "production" && c.Push.AutoRefreshInterval < 5*time.Second {
			return fmt.Errorf("push.auto_refresh_interval %s is too aggressive for production", c.Push.AutoRefreshInterval)
		}
	}

	return nil
}
