// Nowcast - Now-Playing Aggregation and Real-Time Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nowcast

// Package metrics provides Prometheus instrumentation for Nowcast:
// provider call outcomes, aggregation pipeline terminals, cache
// efficiency, WebSocket sessions, and HTTP request latency.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Provider Metrics
	ProviderRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_requests_total",
			Help: "Total provider HTTP calls by provider and outcome",
		},
		[]string{"provider", "outcome"}, // outcome: success, error, no_data
	)

	ProviderRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "provider_request_duration_seconds",
			Help:    "Provider HTTP call duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 8, 10},
		},
		[]string{"provider"},
	)

	// Aggregation Metrics
	AggregationRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aggregation_runs_total",
			Help: "Completed aggregation runs by terminal status",
		},
		[]string{"terminal"}, // complete, nothing_playing, error
	)

	AggregationCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aggregation_cache_hits_total",
			Help: "Aggregation requests served from the result cache",
		},
	)

	AggregationCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aggregation_cache_misses_total",
			Help: "Aggregation requests that missed the result cache",
		},
	)

	AggregationCoalesced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aggregation_coalesced_total",
			Help: "Aggregation requests attached to an in-flight run",
		},
	)

	// Push Session Metrics
	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of connected WebSocket clients",
		},
	)

	RateLimitRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "push_rate_limit_rejections_total",
			Help: "Refresh requests rejected by the per-connection rate limiter",
		},
	)

	AutoRefreshTimers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "push_auto_refresh_timers",
			Help: "Active per-session auto-refresh timers",
		},
	)

	// Circuit Breaker Metrics (history provider)
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Requests through the circuit breaker by outcome",
		},
		[]string{"name", "outcome"}, // success, failure, rejected
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)
)

// RecordProviderRequest records one provider call observation.
func RecordProviderRequest(provider, outcome string, duration time.Duration) {
	ProviderRequests.WithLabelValues(provider, outcome).Inc()
	ProviderRequestDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordAPIRequest records one HTTP request observation.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the active request gauge.
func TrackActiveRequest(start bool) {
	if start {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// SetCircuitBreakerState records the current breaker state.
func SetCircuitBreakerState(name string, state float64) {
	CircuitBreakerState.WithLabelValues(name).Set(state)
}

// RecordCircuitBreakerTransition records one state transition.
func RecordCircuitBreakerTransition(name, from, to string) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
}

// RecordCircuitBreakerRequest records one request outcome through the
// breaker.
func RecordCircuitBreakerRequest(name, outcome string) {
	CircuitBreakerRequests.WithLabelValues(name, outcome).Inc()
}
