// Nowcast - Now-Playing Aggregation and Real-Time Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nowcast

// Package wsclient implements the embeddable session client: one
// persistent WebSocket connection with automatic reconnection and a
// live/dead signal. Senders fail fast while disconnected; callers are
// expected to re-issue a refresh after the client reports live again.
package wsclient

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/nowcast/internal/logging"
	"github.com/tomtom215/nowcast/internal/models"
	ws "github.com/tomtom215/nowcast/internal/websocket"
)

const (
	handshakeTimeout  = 10 * time.Second
	readIdleTimeout   = 60 * time.Second
	sendTimeout       = 10 * time.Second
	baseReconnectWait = 1 * time.Second
	maxReconnectWait  = 32 * time.Second
)

// ErrNotConnected is returned by senders while the connection is down.
// Requests are never queued for later delivery.
var ErrNotConnected = fmt.Errorf("not connected")

// ReconnectingClient maintains one session to the push server,
// redialing with capped exponential backoff after connection loss.
//
// MaxAttempts bounds consecutive failed redials; once exhausted Run
// returns. A successful connection resets both the backoff and the
// attempt count.
type ReconnectingClient struct {
	url         string
	maxAttempts int

	connMu sync.RWMutex
	conn   *websocket.Conn
	live   bool

	// writeMu serializes writes; gorilla connections support at most
	// one concurrent writer.
	writeMu sync.Mutex

	callbackMu sync.RWMutex
	onStatus   func(models.AggregationResult)
	onLive     func(bool)
}

// New creates a client for the push server at url (ws:// or wss://
// scheme, /ws path). maxAttempts <= 0 means unbounded redialing.
func New(url string, maxAttempts int) *ReconnectingClient {
	return &ReconnectingClient{
		url:         url,
		maxAttempts: maxAttempts,
	}
}

// OnStatus registers the callback for incoming statusUpdate events.
func (c *ReconnectingClient) OnStatus(fn func(models.AggregationResult)) {
	c.callbackMu.Lock()
	defer c.callbackMu.Unlock()
	c.onStatus = fn
}

// OnLive registers the callback for live-signal transitions. It fires
// on connect, disconnect, and when redialing gives up.
func (c *ReconnectingClient) OnLive(fn func(bool)) {
	c.callbackMu.Lock()
	defer c.callbackMu.Unlock()
	c.onLive = fn
}

// Live reports whether the session is currently connected.
func (c *ReconnectingClient) Live() bool {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.live
}

// RequestRefresh asks the server for one refresh. Fails fast with
// ErrNotConnected while the session is down.
func (c *ReconnectingClient) RequestRefresh() error {
	return c.send(ws.Message{Type: ws.MessageTypeRequestRefresh})
}

// StartAutoRefresh asks the server to start the periodic refresh timer
// for this session. Fails fast with ErrNotConnected while the session
// is down.
func (c *ReconnectingClient) StartAutoRefresh() error {
	return c.send(ws.Message{Type: ws.MessageTypeStartAutoRefresh})
}

func (c *ReconnectingClient) send(msg ws.Message) error {
	c.connMu.RLock()
	conn := c.conn
	c.connMu.RUnlock()
	if conn == nil {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.SetWriteDeadline(time.Now().Add(sendTimeout)); err != nil {
		return fmt.Errorf("setting write deadline: %w", err)
	}
	if err := conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("sending %s: %w", msg.Type, err)
	}
	return nil
}

// Run connects and reads until ctx is canceled or the redial budget is
// exhausted. Blocks; run it in its own goroutine.
func (c *ReconnectingClient) Run(ctx context.Context) error {
	delay := baseReconnectWait
	attempts := 0

	for {
		select {
		case <-ctx.Done():
			c.disconnect()
			return ctx.Err()
		default:
		}

		if err := c.connect(ctx); err != nil {
			attempts++
			if c.maxAttempts > 0 && attempts >= c.maxAttempts {
				logging.Warn().
					Int("attempts", attempts).
					Msg("giving up on reconnection")
				c.notifyLive(false)
				return fmt.Errorf("reconnect attempts exhausted: %w", err)
			}
			logging.Info().
				Err(err).
				Dur("delay", delay).
				Msg("connection failed, retrying")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			delay *= 2
			if delay > maxReconnectWait {
				delay = maxReconnectWait
			}
			continue
		}

		// Connected: reset the backoff and read until the
		// connection drops.
		delay = baseReconnectWait
		attempts = 0
		c.readLoop(ctx)
		c.disconnect()

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (c *ReconnectingClient) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("websocket dial failed (status %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("websocket dial failed: %w", err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	c.connMu.Lock()
	c.conn = conn
	c.live = true
	c.connMu.Unlock()

	logging.Info().Str("url", c.url).Msg("session connected")
	c.notifyLive(true)
	return nil
}

func (c *ReconnectingClient) disconnect() {
	c.connMu.Lock()
	wasLive := c.live
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.live = false
	c.connMu.Unlock()

	if wasLive {
		logging.Info().Msg("session disconnected")
		c.notifyLive(false)
	}
}

// readLoop delivers statusUpdate events to the OnStatus callback until
// the connection errors out.
func (c *ReconnectingClient) readLoop(ctx context.Context) {
	c.connMu.RLock()
	conn := c.conn
	c.connMu.RUnlock()
	if conn == nil {
		return
	}

	for {
		if err := conn.SetReadDeadline(time.Now().Add(readIdleTimeout)); err != nil {
			logging.Warn().Err(err).Msg("failed to set read deadline")
			return
		}
		var msg ws.Message
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.Warn().Err(err).Msg("session read error")
			}
			return
		}
		c.handleMessage(msg)
	}
}

func (c *ReconnectingClient) handleMessage(msg ws.Message) {
	if msg.Type != ws.MessageTypeStatusUpdate {
		return
	}

	// Data arrives as a generic map; round-trip through JSON to get
	// the typed result.
	raw, err := json.Marshal(msg.Data)
	if err != nil {
		logging.Warn().Err(err).Msg("failed to re-encode statusUpdate payload")
		return
	}
	var result models.AggregationResult
	if err := json.Unmarshal(raw, &result); err != nil {
		logging.Warn().Err(err).Msg("failed to parse statusUpdate payload")
		return
	}

	c.callbackMu.RLock()
	fn := c.onStatus
	c.callbackMu.RUnlock()
	if fn != nil {
		fn(result)
	}
}

func (c *ReconnectingClient) notifyLive(live bool) {
	c.callbackMu.RLock()
	fn := c.onLive
	c.callbackMu.RUnlock()
	if fn != nil {
		fn(live)
	}
}
