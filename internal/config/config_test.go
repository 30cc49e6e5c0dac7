// Nowcast - Now-Playing Aggregation and Real-Time Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nowcast

package config

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tomtom215/nowcast/internal/logging"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{Level: "error", Output: io.Discard})
}

func TestDefaults(t *testing.T) {
	t.Setenv("NOWCAST_HISTORY_USER", "listener")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Aggregator.CacheTTL != 20*time.Second {
		t.Errorf("cache TTL = %v, want 20s", cfg.Aggregator.CacheTTL)
	}
	if cfg.Aggregator.CallTimeout != 8*time.Second {
		t.Errorf("call timeout = %v, want 8s", cfg.Aggregator.CallTimeout)
	}
	if cfg.Push.RateLimit != 10 || cfg.Push.RateWindow != 60*time.Second {
		t.Errorf("rate limit = %d/%v, want 10/60s", cfg.Push.RateLimit, cfg.Push.RateWindow)
	}
	if cfg.Push.AutoRefreshInterval != 30*time.Second {
		t.Errorf("auto refresh = %v, want 30s", cfg.Push.AutoRefreshInterval)
	}
	if cfg.History.BaseURL != "https://api.listenbrainz.org" {
		t.Errorf("history base = %q", cfg.History.BaseURL)
	}
	if cfg.Enrichment.APIKey != "" {
		t.Errorf("enrichment key should default empty, got %q", cfg.Enrichment.APIKey)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("NOWCAST_HISTORY_USER", "listener")
	t.Setenv("NOWCAST_HISTORY_TOKEN", "secret-token")
	t.Setenv("NOWCAST_ENRICHMENT_API_KEY", "lfm-key")
	t.Setenv("NOWCAST_SERVER_PORT", "9999")
	t.Setenv("NOWCAST_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.History.Token != "secret-token" {
		t.Errorf("token = %q", cfg.History.Token)
	}
	if cfg.Enrichment.APIKey != "lfm-key" {
		t.Errorf("api key = %q", cfg.Enrichment.APIKey)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("port = %d, want 9999", cfg.Server.Port)
	}
	if len(cfg.Security.CORSAllowedOrigins) != 2 || cfg.Security.CORSAllowedOrigins[1] != "https://b.example" {
		t.Errorf("cors origins = %v", cfg.Security.CORSAllowedOrigins)
	}
}

func TestUnmappedEnvIgnored(t *testing.T) {
	t.Setenv("NOWCAST_HISTORY_USER", "listener")
	t.Setenv("RANDOM_UNRELATED_VAR", "boom")

	if _, err := Load(); err != nil {
		t.Fatalf("Load() error with unrelated env: %v", err)
	}
}

func TestMissingUserFails(t *testing.T) {
	t.Setenv("NOWCAST_HISTORY_USER", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected validation error when history.user is empty")
	}
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("history:\n  user: filed-user\nserver:\n  port: 4242\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.History.User != "filed-user" {
		t.Errorf("user = %q, want filed-user", cfg.History.User)
	}
	if cfg.Server.Port != 4242 {
		t.Errorf("port = %d, want 4242", cfg.Server.Port)
	}
}

func TestEnvBeatsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("history:\n  user: filed-user\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("NOWCAST_HISTORY_USER", "env-user")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.History.User != "env-user" {
		t.Errorf("user = %q, want env-user (env must beat file)", cfg.History.User)
	}
}

func TestValidateRejectsBadPort(t *testing.T) {
	cfg := defaultConfig()
	cfg.History.User = "listener"
	cfg.Server.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for port 0")
	}
}
