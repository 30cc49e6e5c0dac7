// Nowcast - Now-Playing Aggregation and Real-Time Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nowcast

// Package fallback provides first-success combinators over independent
// fallible operations: Race runs them concurrently and returns as soon
// as one succeeds, Chain tries them sequentially and stops at the first
// success. Both treat individual failures as fall-through, not as
// cancellation of the remaining attempts.
package fallback

import (
	"context"
	"errors"
)

// ErrNoAttempts is returned when no operations are supplied.
var ErrNoAttempts = errors.New("fallback: no operations to attempt")

// Op is a single fallible operation.
type Op[T any] func(ctx context.Context) (T, error)

type raceResult[T any] struct {
	value T
	err   error
}

// Race runs all ops concurrently and returns the first successful
// result. A failing op neither cancels nor blocks the others; losers
// keep running until their own contexts expire, bounded by whatever
// per-call timeout each op carries. If every op fails the joined
// errors are returned.
func Race[T any](ctx context.Context, ops ...Op[T]) (T, error) {
	var zero T
	if len(ops) == 0 {
		return zero, ErrNoAttempts
	}

	results := make(chan raceResult[T], len(ops))
	for _, op := range ops {
		go func(op Op[T]) {
			value, err := op(ctx)
			results <- raceResult[T]{value: value, err: err}
		}(op)
	}

	errs := make([]error, 0, len(ops))
	for range ops {
		select {
		case res := <-results:
			if res.err == nil {
				return res.value, nil
			}
			errs = append(errs, res.err)
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}

	return zero, errors.Join(errs...)
}

// Chain tries ops in order, returning the first success. Each failure
// falls through silently to the next attempt; if every op fails the
// joined errors are returned.
func Chain[T any](ctx context.Context, ops ...Op[T]) (T, error) {
	var zero T
	if len(ops) == 0 {
		return zero, ErrNoAttempts
	}

	errs := make([]error, 0, len(ops))
	for _, op := range ops {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		value, err := op(ctx)
		if err == nil {
			return value, nil
		}
		errs = append(errs, err)
	}

	return zero, errors.Join(errs...)
}
