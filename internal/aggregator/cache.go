// Nowcast - Now-Playing Aggregation and Real-Time Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nowcast

package aggregator

import (
	"sync"
	"time"

	"github.com/tomtom215/nowcast/internal/metrics"
	"github.com/tomtom215/nowcast/internal/models"
)

// BeginState classifies what Begin found for a key.
type BeginState int

const (
	// BeginStarted means the caller owns a fresh run and must call
	// finish exactly once.
	BeginStarted BeginState = iota

	// BeginAttached means another run is in flight; wait on the
	// returned InFlight for its terminal result.
	BeginAttached

	// BeginCached means a fresh terminal result was returned
	// directly.
	BeginCached
)

// InFlight is a single running aggregation that late callers attach
// to. Result is valid only after Done is closed.
type InFlight struct {
	done   chan struct{}
	result models.AggregationResult
}

// Done is closed when the run finishes.
func (f *InFlight) Done() <-chan struct{} { return f.done }

// Result returns the terminal result. Only call after Done is closed.
func (f *InFlight) Result() models.AggregationResult { return f.result }

type cachedResult struct {
	result  models.AggregationResult
	expires time.Time
}

// ResultCache coalesces concurrent aggregations per key and caches
// their terminal results for a fixed TTL. Error terminals resolve
// attached waiters but are never cached, so the next request retries
// the providers.
type ResultCache struct {
	mu       sync.Mutex
	ttl      time.Duration
	entries  map[string]cachedResult
	inflight map[string]*InFlight

	// now is replaceable in tests.
	now func() time.Time
}

// NewResultCache creates a cache with the given TTL.
func NewResultCache(ttl time.Duration) *ResultCache {
	return &ResultCache{
		ttl:      ttl,
		entries:  make(map[string]cachedResult),
		inflight: make(map[string]*InFlight),
		now:      time.Now,
	}
}

// Begin resolves a request for key against the cache. Exactly one of
// the returns is meaningful per state: the result for BeginCached, the
// InFlight for BeginAttached, neither for BeginStarted. A BeginStarted
// caller owns the run and must call finish exactly once, on every path.
func (c *ResultCache) Begin(key string) (models.AggregationResult, *InFlight, BeginState) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[key]; ok {
		if c.now().Before(entry.expires) {
			metrics.AggregationCacheHits.Inc()
			return entry.result, nil, BeginCached
		}
		delete(c.entries, key)
	}

	if f, ok := c.inflight[key]; ok {
		metrics.AggregationCoalesced.Inc()
		return models.AggregationResult{}, f, BeginAttached
	}

	metrics.AggregationCacheMisses.Inc()
	c.inflight[key] = &InFlight{done: make(chan struct{})}
	return models.AggregationResult{}, nil, BeginStarted
}

// finish resolves the in-flight run for key, waking attached waiters,
// and caches the result when cacheIt is set.
func (c *ResultCache) finish(key string, result models.AggregationResult, cacheIt bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, ok := c.inflight[key]
	if !ok {
		return
	}
	delete(c.inflight, key)

	if cacheIt {
		c.entries[key] = cachedResult{result: result, expires: c.now().Add(c.ttl)}
	}

	f.result = result
	close(f.done)
}
