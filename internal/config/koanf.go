// Nowcast - Now-Playing Aggregation and Real-Time Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nowcast

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/nowcast/config.yaml",
	"/etc/nowcast/config.yml",
}

// ConfigPathEnvVar overrides the config file search path.
const ConfigPathEnvVar = "NOWCAST_CONFIG_PATH"

// Load loads configuration with layered precedence:
//  1. Built-in defaults (struct provider)
//  2. Optional YAML config file
//  3. NOWCAST_* environment variables (highest priority)
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths are parsed as
// comma-separated slices when they arrive via environment variables.
var sliceConfigPaths = []string{
	"security.cors_allowed_origins",
}

// processSliceFields converts comma-separated env values to slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc maps NOWCAST_* environment variables to koanf paths.
// Unmapped variables are dropped so random environment variables never
// pollute the configuration.
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Server
		"nowcast_server_host":             "server.host",
		"nowcast_server_port":             "server.port",
		"nowcast_server_read_timeout":     "server.read_timeout",
		"nowcast_server_write_timeout":    "server.write_timeout",
		"nowcast_server_idle_timeout":     "server.idle_timeout",
		"nowcast_server_shutdown_timeout": "server.shutdown_timeout",
		"nowcast_environment":             "server.environment",

		// Providers
		"nowcast_history_base_url":    "history.base_url",
		"nowcast_history_user":        "history.user",
		"nowcast_history_token":       "history.token",
		"nowcast_enrichment_base_url": "enrichment.base_url",
		"nowcast_enrichment_api_key":  "enrichment.api_key",
		"nowcast_artwork_base_url":    "artwork.base_url",
		"nowcast_catalog_base_url":    "catalog.base_url",
		"nowcast_catalog_rate":        "catalog.rate_per_sec",

		// Aggregator
		"nowcast_cache_ttl":    "aggregator.cache_ttl",
		"nowcast_call_timeout": "aggregator.call_timeout",

		// Push sessions
		"nowcast_push_rate_limit":   "push.rate_limit",
		"nowcast_push_rate_window":  "push.rate_window",
		"nowcast_push_auto_refresh": "push.auto_refresh_interval",
		"nowcast_push_max_clients":  "push.max_clients",

		// Security
		"nowcast_cors_origins": "security.cors_allowed_origins",

		// Logging
		"nowcast_log_level":  "logging.level",
		"nowcast_log_format": "logging.format",
		"nowcast_log_caller": "logging.caller",

		// Metrics
		"nowcast_metrics_enabled": "metrics.enabled",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return ""
}
