// Nowcast - Now-Playing Aggregation and Real-Time Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nowcast

package fallback

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestRaceFirstSuccessWins(t *testing.T) {
	slow := func(ctx context.Context) (string, error) {
		select {
		case <-time.After(200 * time.Millisecond):
			return "slow", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	fast := func(_ context.Context) (string, error) {
		return "fast", nil
	}

	got, err := Race(context.Background(), slow, fast)
	if err != nil {
		t.Fatalf("Race error: %v", err)
	}
	if got != "fast" {
		t.Errorf("Race = %q, want fast", got)
	}
}

func TestRaceFailureDoesNotBlockWinner(t *testing.T) {
	boom := func(_ context.Context) (string, error) {
		return "", errors.New("boom")
	}
	winner := func(_ context.Context) (string, error) {
		time.Sleep(20 * time.Millisecond)
		return "winner", nil
	}

	got, err := Race(context.Background(), boom, winner)
	if err != nil {
		t.Fatalf("Race error: %v", err)
	}
	if got != "winner" {
		t.Errorf("Race = %q, want winner", got)
	}
}

func TestRaceAllFail(t *testing.T) {
	errA := errors.New("a failed")
	errB := errors.New("b failed")

	_, err := Race(context.Background(),
		func(_ context.Context) (int, error) { return 0, errA },
		func(_ context.Context) (int, error) { return 0, errB },
	)
	if err == nil {
		t.Fatal("expected error when all ops fail")
	}
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Errorf("joined error missing causes: %v", err)
	}
}

func TestRaceNoOps(t *testing.T) {
	_, err := Race[int](context.Background())
	if !errors.Is(err, ErrNoAttempts) {
		t.Errorf("err = %v, want ErrNoAttempts", err)
	}
}

func TestRaceContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	stuck := func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	}

	done := make(chan error, 1)
	go func() {
		_, err := Race(ctx, stuck)
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Race did not return after cancellation")
	}
}

func TestChainStopsAtFirstSuccess(t *testing.T) {
	var calls atomic.Int32

	first := func(_ context.Context) (string, error) {
		calls.Add(1)
		return "", errors.New("no data")
	}
	second := func(_ context.Context) (string, error) {
		calls.Add(1)
		return "art-url", nil
	}
	third := func(_ context.Context) (string, error) {
		calls.Add(1)
		return "should-not-run", nil
	}

	got, err := Chain(context.Background(), first, second, third)
	if err != nil {
		t.Fatalf("Chain error: %v", err)
	}
	if got != "art-url" {
		t.Errorf("Chain = %q, want art-url", got)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2 (third op must not run)", calls.Load())
	}
}

func TestChainTriesInOrder(t *testing.T) {
	var order []int

	_, err := Chain(context.Background(),
		func(_ context.Context) (int, error) { order = append(order, 1); return 0, errors.New("1") },
		func(_ context.Context) (int, error) { order = append(order, 2); return 0, errors.New("2") },
		func(_ context.Context) (int, error) { order = append(order, 3); return 0, errors.New("3") },
	)
	if err == nil {
		t.Fatal("expected error")
	}
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("attempt order = %v, want [1 2 3]", order)
	}
}

func TestChainContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Chain(ctx, func(_ context.Context) (int, error) {
		t.Error("op must not run after cancellation")
		return 0, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
