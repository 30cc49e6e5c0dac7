// Nowcast - Now-Playing Aggregation and Real-Time Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nowcast

package supervisor

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/tomtom215/nowcast/internal/logging"
)

type noopService struct {
	started chan struct{}
}

func (s *noopService) Serve(ctx context.Context) error {
	select {
	case <-s.started:
	default:
		close(s.started)
	}
	<-ctx.Done()
	return ctx.Err()
}

func (s *noopService) String() string { return "noop" }

func TestDefaultTreeConfig(t *testing.T) {
	cfg := DefaultTreeConfig()
	if cfg.FailureThreshold != 5.0 || cfg.FailureDecay != 30.0 {
		t.Errorf("Unexpected defaults: %+v", cfg)
	}
	if cfg.FailureBackoff != 15*time.Second || cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("Unexpected defaults: %+v", cfg)
	}
}

func TestZeroConfigGetsDefaults(t *testing.T) {
	logging.SetLogger(logging.NewTestLogger(io.Discard))
	tree, err := NewSupervisorTree(logging.NewSlogLogger(), TreeConfig{})
	if err != nil {
		t.Fatalf("NewSupervisorTree failed: %v", err)
	}
	if tree.config.FailureThreshold != 5.0 {
		t.Errorf("FailureThreshold = %v, want default 5.0", tree.config.FailureThreshold)
	}
	if tree.Root() == nil {
		t.Error("Root supervisor missing")
	}
}

func TestTreeServesAndStops(t *testing.T) {
	logging.SetLogger(logging.NewTestLogger(io.Discard))
	tree, err := NewSupervisorTree(logging.NewSlogLogger(), DefaultTreeConfig())
	if err != nil {
		t.Fatalf("NewSupervisorTree failed: %v", err)
	}

	svc := &noopService{started: make(chan struct{})}
	tree.AddMessagingService(svc)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	select {
	case <-svc.started:
	case <-time.After(2 * time.Second):
		t.Fatal("Service never started")
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("Supervisor stopped with %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Supervisor never stopped")
	}
}
