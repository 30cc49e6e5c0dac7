// Nowcast - Now-Playing Aggregation and Real-Time Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nowcast

// Package ratelimit implements the per-session refresh budget: a
// fixed window that admits a bounded number of requests, then resets
// in full once the window elapses. Unlike a sliding window, a client
// that exhausts its budget regains all of it at once; the window
// anchors on the first admitted request after a reset.
package ratelimit

import (
	"sync"
	"time"

	"github.com/tomtom215/nowcast/internal/metrics"
)

type window struct {
	start time.Time
	count int
}

// Limiter tracks fixed-window budgets keyed by session ID.
type Limiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	keys   map[string]*window

	// now is replaceable in tests.
	now func() time.Time
}

// New creates a limiter admitting limit requests per window.
func New(limit int, windowLen time.Duration) *Limiter {
	return &Limiter{
		limit:  limit,
		window: windowLen,
		keys:   make(map[string]*window),
		now:    time.Now,
	}
}

// Admit reports whether key may make another request, consuming one
// unit of its budget when it may. The first request after a reset
// starts a fresh window.
func (l *Limiter) Admit(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.keys[key]
	if !ok || now.Sub(w.start) >= l.window {
		l.keys[key] = &window{start: now, count: 1}
		return true
	}
	if w.count >= l.limit {
		metrics.RateLimitRejections.Inc()
		return false
	}
	w.count++
	return true
}

// Forget drops all state for key. Called on session disconnect so the
// map does not accumulate dead sessions.
func (l *Limiter) Forget(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.keys, key)
}
