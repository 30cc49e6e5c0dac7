// Nowcast - Now-Playing Aggregation and Real-Time Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nowcast

// Package services adapts the long-running components to the
// suture.Service interface.
package services

import (
	"context"
)

// ContextHub matches *websocket.Hub's RunWithContext method. The
// interface keeps this package free of a websocket import.
type ContextHub interface {
	RunWithContext(ctx context.Context) error
}

// HubService wraps the push hub as a supervised service. The hub's
// RunWithContext already implements the suture.Service pattern, so
// this wrapper delegates and provides a name for logging.
type HubService struct {
	hub  ContextHub
	name string
}

// NewHubService creates a hub service wrapper.
func NewHubService(hub ContextHub) *HubService {
	return &HubService{
		hub:  hub,
		name: "websocket-hub",
	}
}

// Serve implements suture.Service. Returns ctx.Err() on normal
// shutdown after the hub has closed all sessions.
func (s *HubService) Serve(ctx context.Context) error {
	return s.hub.RunWithContext(ctx)
}

// String implements fmt.Stringer; suture uses it to identify the
// service in log messages.
func (s *HubService) String() string {
	return s.name
}
