// Nowcast - Now-Playing Aggregation and Real-Time Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nowcast

package providers

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/tomtom215/nowcast/internal/logging"
	"github.com/tomtom215/nowcast/internal/metrics"
	"github.com/tomtom215/nowcast/internal/models"
)

// BreakerHistoryClient wraps a HistoryClient with a circuit breaker.
// The history call gates every aggregation run, so a dead provider
// must fail fast instead of holding each run for the full call
// timeout.
type BreakerHistoryClient struct {
	name   string
	inner  HistoryClient
	cb     *gobreaker.CircuitBreaker[*models.TrackIdentity]
	logger zerolog.Logger
}

// NewBreakerHistoryClient wraps inner with a circuit breaker. The
// breaker opens after 60% failures over at least 10 requests, stays
// open for 30s, then admits 3 trial requests half-open.
func NewBreakerHistoryClient(inner HistoryClient) *BreakerHistoryClient {
	b := &BreakerHistoryClient{
		name:   "history",
		inner:  inner,
		logger: logging.With().Str("component", "circuit_breaker").Str("breaker", "history").Logger(),
	}

	settings := gobreaker.Settings{
		Name:        b.name,
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= 0.6
		},
		OnStateChange: b.onStateChange,
	}
	b.cb = gobreaker.NewCircuitBreaker[*models.TrackIdentity](settings)
	metrics.SetCircuitBreakerState(b.name, stateValue(b.cb.State()))
	return b
}

// PlayingNow implements HistoryClient. An open breaker returns
// ErrOpenState immediately, which the aggregator surfaces as a
// provider failure.
func (b *BreakerHistoryClient) PlayingNow(ctx context.Context) (*models.TrackIdentity, error) {
	track, err := b.cb.Execute(func() (*models.TrackIdentity, error) {
		return b.inner.PlayingNow(ctx)
	})
	if err != nil {
		metrics.RecordCircuitBreakerRequest(b.name, "failure")
		return nil, err
	}
	metrics.RecordCircuitBreakerRequest(b.name, "success")
	return track, nil
}

func (b *BreakerHistoryClient) onStateChange(name string, from, to gobreaker.State) {
	b.logger.Warn().
		Str("from", from.String()).
		Str("to", to.String()).
		Msg("Circuit breaker state changed")
	metrics.RecordCircuitBreakerTransition(name, from.String(), to.String())
	metrics.SetCircuitBreakerState(name, stateValue(to))
}

// stateValue maps breaker states to the gauge encoding
// closed=0, half-open=1, open=2.
func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 2
	}
}
