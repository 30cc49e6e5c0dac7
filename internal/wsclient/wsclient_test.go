// Nowcast - Now-Playing Aggregation and Real-Time Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nowcast

package wsclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"

	"github.com/tomtom215/nowcast/internal/logging"
	"github.com/tomtom215/nowcast/internal/models"
	ws "github.com/tomtom215/nowcast/internal/websocket"
)

func init() {
	logging.SetLogger(logging.NewTestLogger(io.Discard))
}

var upgrader = gorilla.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// pushServer is a minimal session endpoint for client tests. Each
// accepted connection is handed to handle.
func pushServer(t *testing.T, handle func(conn *gorilla.Conn)) (*httptest.Server, string) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("Upgrade failed: %v", err)
			return
		}
		defer conn.Close()
		handle(conn)
	}))
	return srv, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestSendersFailFastWhenDisconnected(t *testing.T) {
	client := New("ws://127.0.0.1:1/ws", 1)

	if err := client.RequestRefresh(); !errors.Is(err, ErrNotConnected) {
		t.Errorf("RequestRefresh = %v, want ErrNotConnected", err)
	}
	if err := client.StartAutoRefresh(); !errors.Is(err, ErrNotConnected) {
		t.Errorf("StartAutoRefresh = %v, want ErrNotConnected", err)
	}
	if client.Live() {
		t.Error("Live should be false before any connection")
	}
}

func TestReceivesStatusUpdates(t *testing.T) {
	received := make(chan ws.Message, 1)
	hold := make(chan struct{})
	srv, url := pushServer(t, func(conn *gorilla.Conn) {
		var msg ws.Message
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		received <- msg
		update := ws.Message{
			Type: ws.MessageTypeStatusUpdate,
			Data: models.CompleteResult(&models.TrackIdentity{Track: "Airbag", Artist: "Radiohead"}, "http://img/1.jpg", nil),
		}
		if err := conn.WriteJSON(update); err != nil {
			return
		}
		<-hold
	})
	defer srv.Close()
	defer close(hold)

	statuses := make(chan models.AggregationResult, 1)
	liveCh := make(chan bool, 4)
	client := New(url, 1)
	client.OnStatus(func(r models.AggregationResult) { statuses <- r })
	client.OnLive(func(live bool) { liveCh <- live })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Run(ctx)

	select {
	case live := <-liveCh:
		if !live {
			t.Fatal("First live transition should be true")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Never went live")
	}
	if !client.Live() {
		t.Error("Live() should report true while connected")
	}

	if err := client.RequestRefresh(); err != nil {
		t.Fatalf("RequestRefresh failed while live: %v", err)
	}
	select {
	case msg := <-received:
		if msg.Type != ws.MessageTypeRequestRefresh {
			t.Errorf("Server received %q, want requestRefresh", msg.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Server never received the refresh request")
	}

	select {
	case result := <-statuses:
		if result.Status != models.StatusComplete || result.TrackName != "Airbag" {
			t.Errorf("Unexpected status payload: %+v", result)
		}
		if result.CoverArt != "http://img/1.jpg" {
			t.Errorf("CoverArt = %q", result.CoverArt)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("OnStatus never fired")
	}
}

func TestConcurrentSendersDeliverIntactMessages(t *testing.T) {
	const senders = 8
	received := make(chan ws.Message, senders)
	hold := make(chan struct{})
	srv, url := pushServer(t, func(conn *gorilla.Conn) {
		for i := 0; i < senders; i++ {
			var msg ws.Message
			if err := conn.ReadJSON(&msg); err != nil {
				t.Errorf("Server read %d failed: %v", i, err)
				return
			}
			received <- msg
		}
		<-hold
	})
	defer srv.Close()
	defer close(hold)

	liveCh := make(chan bool, 4)
	client := New(url, 1)
	client.OnLive(func(live bool) { liveCh <- live })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Run(ctx)

	select {
	case live := <-liveCh:
		if !live {
			t.Fatal("First live transition should be true")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Never went live")
	}

	// Writes are serialized on the client, so parallel senders must
	// never corrupt a frame.
	var wg sync.WaitGroup
	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := client.RequestRefresh(); err != nil {
				t.Errorf("RequestRefresh failed: %v", err)
			}
		}()
	}
	wg.Wait()

	for i := 0; i < senders; i++ {
		select {
		case msg := <-received:
			if msg.Type != ws.MessageTypeRequestRefresh {
				t.Errorf("Message %d type = %q, want requestRefresh", i, msg.Type)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("Server received only %d of %d messages", i, senders)
		}
	}
}

func TestLiveSignalDropsOnDisconnect(t *testing.T) {
	srv, url := pushServer(t, func(conn *gorilla.Conn) {
		// Accept, then hang up immediately.
	})
	defer srv.Close()

	var mu sync.Mutex
	var transitions []bool
	client := New(url, 1)
	client.OnLive(func(live bool) {
		mu.Lock()
		transitions = append(transitions, live)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		client.Run(ctx)
	}()

	deadline := time.After(3 * time.Second)
	for {
		mu.Lock()
		n := len(transitions)
		mu.Unlock()
		if n >= 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("Expected live transitions, got %d", n)
		case <-time.After(10 * time.Millisecond):
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if !transitions[0] || transitions[1] {
		t.Errorf("Transitions = %v, want [true false ...]", transitions)
	}
}

func TestGivesUpAfterMaxAttempts(t *testing.T) {
	client := New("ws://127.0.0.1:1/ws", 1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := client.Run(ctx)
	if err == nil || errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Run = %v, want a dial failure after exhausted attempts", err)
	}
	if client.Live() {
		t.Error("Live should be false after giving up")
	}
}
