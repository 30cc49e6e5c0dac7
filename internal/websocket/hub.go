// Nowcast - Now-Playing Aggregation and Real-Time Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nowcast

package websocket

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/nowcast/internal/logging"
	"github.com/tomtom215/nowcast/internal/metrics"
	"github.com/tomtom215/nowcast/internal/models"
	"github.com/tomtom215/nowcast/internal/ratelimit"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled indicates the parent context was
	// canceled. This is the normal graceful shutdown path (e.g. SIGTERM).
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline indicates the context deadline was
	// exceeded. This may indicate a hung operation during shutdown.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Message types for the session protocol. Clients send requestRefresh,
// startAutoRefresh, and ping; the server answers with statusUpdate and
// pong.
const (
	MessageTypeStatusUpdate     = "statusUpdate"
	MessageTypeRequestRefresh   = "requestRefresh"
	MessageTypeStartAutoRefresh = "startAutoRefresh"
	MessageTypePing             = "ping"
	MessageTypePong             = "pong"
)

// Message is the JSON envelope exchanged over a session.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Refresher starts one aggregation run and streams its status events.
// Satisfied by the aggregator.
type Refresher interface {
	Run(ctx context.Context) <-chan models.AggregationResult
}

// inboundMessage pairs a client message with its origin so the run
// loop can route replies back to the same session.
type inboundMessage struct {
	client *Client
	msg    Message
}

// session is the server-side per-connection state. The UUID is the
// rate-limit key; the stop channel is non-nil while an auto-refresh
// timer is running.
type session struct {
	id              string
	stopAutoRefresh chan struct{}
}

// Hub owns the session registry and routes refresh requests. All
// session mutations happen on the single run-loop goroutine; the
// registry map is additionally mutex-guarded because forwarding
// goroutines consult it when delivering results.
type Hub struct {
	clients    map[*Client]*session
	Register   chan *Client
	Unregister chan *Client
	inbound    chan inboundMessage
	mu         sync.RWMutex

	refresher       Refresher
	limiter         *ratelimit.Limiter
	refreshInterval time.Duration
	maxClients      int
	running         atomic.Bool
}

// NewHub creates a hub serving refreshes from refresher, budgeted by
// limiter, with auto-refresh timers firing every refreshInterval.
func NewHub(refresher Refresher, limiter *ratelimit.Limiter, refreshInterval time.Duration, maxClients int) *Hub {
	return &Hub{
		clients:         make(map[*Client]*session),
		Register:        make(chan *Client),
		Unregister:      make(chan *Client),
		inbound:         make(chan inboundMessage, 256),
		refresher:       refresher,
		limiter:         limiter,
		refreshInterval: refreshInterval,
		maxClients:      maxClients,
	}
}

// RunWithContext runs the hub until ctx is canceled. Designed for use
// with suture supervision: on cancellation every session is closed and
// every timer stopped, so a supervisor restart never leaks
// connections.
//
// DETERMINISM: Uses priority-based selection to ensure predictable
// behavior when multiple channels are ready:
// - Priority 1: Context cancellation (shutdown)
// - Priority 2: Client lifecycle events (Register/Unregister)
// - Priority 3: Inbound session messages
func (h *Hub) RunWithContext(ctx context.Context) error {
	h.running.Store(true)
	defer h.running.Store(false)

	for {
		// Priority 1: Check for shutdown (non-blocking)
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		default:
		}

		// Priority 2: Handle client lifecycle events (non-blocking)
		select {
		case client := <-h.Register:
			h.register(client)
			continue
		case client := <-h.Unregister:
			h.unregister(client)
			continue
		default:
		}

		// Priority 3: Handle session messages or wait (blocking)
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()

		case client := <-h.Register:
			h.register(client)

		case client := <-h.Unregister:
			h.unregister(client)

		case in := <-h.inbound:
			h.handleMessage(ctx, in)
		}
	}
}

func (h *Hub) register(client *Client) {
	h.mu.Lock()
	if len(h.clients) >= h.maxClients {
		h.mu.Unlock()
		logging.Warn().Int("max_clients", h.maxClients).Msg("connection rejected, session limit reached")
		close(client.send)
		return
	}
	sess := &session{id: uuid.NewString()}
	h.clients[client] = sess
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WebSocketConnections.Inc()
	logging.Info().
		Str("session_id", sess.id).
		Int("total_clients", total).
		Msg("session connected")
}

func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	sess, ok := h.clients[client]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	close(client.send)
	total := len(h.clients)
	h.mu.Unlock()

	h.stopTimer(sess)
	h.limiter.Forget(sess.id)
	metrics.WebSocketConnections.Dec()
	logging.Info().
		Str("session_id", sess.id).
		Int("total_clients", total).
		Msg("session disconnected")
}

// handleMessage dispatches one inbound session message on the run
// loop.
func (h *Hub) handleMessage(ctx context.Context, in inboundMessage) {
	h.mu.RLock()
	sess, ok := h.clients[in.client]
	h.mu.RUnlock()
	if !ok {
		// Raced with a disconnect; nothing to route back to.
		return
	}

	switch in.msg.Type {
	case MessageTypePing:
		h.sendToClient(in.client, Message{Type: MessageTypePong})

	case MessageTypeRequestRefresh:
		h.refresh(ctx, in.client, sess)

	case MessageTypeStartAutoRefresh:
		h.startAutoRefresh(ctx, in.client, sess)

	default:
		logging.Debug().
			Str("session_id", sess.id).
			Str("message_type", in.msg.Type).
			Msg("ignoring unknown session message")
	}
}

// refresh runs the rate-limited refresh path shared by manual requests
// and auto-refresh ticks. A denied request becomes a status:error
// event on the requesting session only; admitted requests stream the
// run's events back to that session.
func (h *Hub) refresh(ctx context.Context, client *Client, sess *session) {
	if !h.limiter.Admit(sess.id) {
		logging.Debug().Str("session_id", sess.id).Msg("refresh denied by rate limit")
		h.sendToClient(client, Message{
			Type: MessageTypeStatusUpdate,
			Data: models.ErrorResult("Refresh rate limit exceeded, try again shortly"),
		})
		return
	}

	events := h.refresher.Run(ctx)
	go func() {
		for result := range events {
			h.sendToClient(client, Message{Type: MessageTypeStatusUpdate, Data: result})
		}
	}()
}

// startAutoRefresh replaces any running timer for the session. The
// first tick fires one full interval after the request; clients
// wanting an immediate result send requestRefresh alongside.
func (h *Hub) startAutoRefresh(ctx context.Context, client *Client, sess *session) {
	h.stopTimer(sess)

	stop := make(chan struct{})
	sess.stopAutoRefresh = stop
	metrics.AutoRefreshTimers.Inc()
	logging.Debug().
		Str("session_id", sess.id).
		Dur("interval", h.refreshInterval).
		Msg("auto-refresh started")

	go func() {
		ticker := time.NewTicker(h.refreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				// Route through the run loop so the tick takes the
				// same rate-limited path as a manual request.
				select {
				case h.inbound <- inboundMessage{client: client, msg: Message{Type: MessageTypeRequestRefresh}}:
				default:
					logging.Warn().Str("session_id", sess.id).Msg("inbound queue full, dropping auto-refresh tick")
				}
			}
		}
	}()
}

// stopTimer cancels the session's auto-refresh timer if one is
// running. Called only from the run loop, which owns session fields.
func (h *Hub) stopTimer(sess *session) {
	if sess.stopAutoRefresh == nil {
		return
	}
	close(sess.stopAutoRefresh)
	sess.stopAutoRefresh = nil
	metrics.AutoRefreshTimers.Dec()
}

// sendToClient delivers a message to one session, dropping it when the
// client's queue is full or the session is already gone. Holding the
// read lock while sending keeps the send channel from being closed
// underneath us by a concurrent unregister.
func (h *Hub) sendToClient(client *Client, msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[client]; !ok {
		return
	}
	select {
	case client.send <- msg:
	default:
		logging.Warn().Str("message_type", msg.Type).Msg("client queue full, dropping message")
	}
}

// Route hands a client message to the hub's run loop. Called from
// client read pumps.
func (h *Hub) Route(client *Client, msg Message) {
	select {
	case h.inbound <- inboundMessage{client: client, msg: msg}:
	default:
		logging.Warn().Str("message_type", msg.Type).Msg("inbound queue full, dropping message")
	}
}

// Running reports whether the run loop is active. Used by the
// readiness probe.
func (h *Hub) Running() bool {
	return h.running.Load()
}

// GetClientCount returns the number of connected sessions.
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) logGracefulShutdown(ctx context.Context) {
	clientCount := h.GetClientCount()
	h.closeAllClients()

	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", clientCount).
		Msg("websocket hub stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	switch ctx.Err() {
	case context.DeadlineExceeded:
		return ShutdownReasonContextDeadline
	default:
		return ShutdownReasonContextCanceled
	}
}

// closeAllClients tears down every session during shutdown: timers
// stopped, rate-limit state forgotten, send channels closed.
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client, sess := range h.clients {
		h.stopTimer(sess)
		h.limiter.Forget(sess.id)
		close(client.send)
		delete(h.clients, client)
	}
	metrics.WebSocketConnections.Set(0)
}
