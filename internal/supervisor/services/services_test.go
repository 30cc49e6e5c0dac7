// Nowcast - Now-Playing Aggregation and Real-Time Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nowcast

package services

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

type mockHub struct {
	served chan struct{}
}

func (m *mockHub) RunWithContext(ctx context.Context) error {
	close(m.served)
	<-ctx.Done()
	return ctx.Err()
}

func TestHubServiceDelegates(t *testing.T) {
	hub := &mockHub{served: make(chan struct{})}
	svc := NewHubService(hub)

	if svc.String() != "websocket-hub" {
		t.Errorf("String() = %q", svc.String())
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	select {
	case <-hub.served:
	case <-time.After(2 * time.Second):
		t.Fatal("Hub was never served")
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve never returned")
	}
}

type mockHTTPServer struct {
	listenErr   error
	closed      chan struct{}
	shutdownErr error
	shutdowns   int
}

func (m *mockHTTPServer) ListenAndServe() error {
	if m.listenErr != nil {
		return m.listenErr
	}
	<-m.closed
	return http.ErrServerClosed
}

func (m *mockHTTPServer) Shutdown(ctx context.Context) error {
	m.shutdowns++
	close(m.closed)
	return m.shutdownErr
}

func TestHTTPServiceGracefulShutdown(t *testing.T) {
	server := &mockHTTPServer{closed: make(chan struct{})}
	svc := NewHTTPServerService(server, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve never returned")
	}
	if server.shutdowns != 1 {
		t.Errorf("Shutdown calls = %d, want 1", server.shutdowns)
	}
}

func TestHTTPServiceStartFailure(t *testing.T) {
	server := &mockHTTPServer{listenErr: errors.New("address already in use")}
	svc := NewHTTPServerService(server, time.Second)

	err := svc.Serve(context.Background())
	if err == nil {
		t.Fatal("Expected a start failure")
	}
}

func TestHTTPServiceDefaultShutdownTimeout(t *testing.T) {
	svc := NewHTTPServerService(&mockHTTPServer{closed: make(chan struct{})}, 0)
	if svc.shutdownTimeout != 10*time.Second {
		t.Errorf("shutdownTimeout = %v, want 10s default", svc.shutdownTimeout)
	}
}
