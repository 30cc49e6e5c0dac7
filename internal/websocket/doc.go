// Nowcast - Now-Playing Aggregation and Real-Time Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nowcast

/*
Package websocket provides the real-time push surface for now-playing
status updates.

This package implements the session protocol over gorilla/websocket
with a hub-client architecture. Each connection is a session with a
UUID identity, its own refresh rate-limit budget, and an optional
auto-refresh timer. Refresh results are delivered only to the session
that requested them; there is no fan-out broadcast.

Key Components:

  - Hub: Single run-loop broker owning the session registry, timers,
    and refresh routing
  - Client: One WebSocket connection with read/write pump goroutines
  - Message: The JSON envelope of the session protocol

Session protocol (client to server): requestRefresh, startAutoRefresh,
ping. Server to client: statusUpdate carrying an aggregation result,
and pong. A refresh denied by the rate limiter is answered with a
status error statusUpdate rather than a connection close.

Concurrency Model:

The hub serializes all session mutations on its run-loop goroutine
with priority-ordered channel selection (shutdown, lifecycle, inbound
messages). Client pumps and result-forwarding goroutines communicate
with the hub only through channels and the mutex-guarded registry.
*/
package websocket
