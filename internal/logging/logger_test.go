// Nowcast - Now-Playing Aggregation and Real-Time Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nowcast

package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestInitDefaults(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Output: &buf})

	Info().Str("key", "value").Msg("hello")

	out := buf.String()
	if !strings.Contains(out, `"key":"value"`) {
		t.Errorf("expected JSON field in output, got %q", out)
	}
	if !strings.Contains(out, `"message":"hello"`) {
		t.Errorf("expected message in output, got %q", out)
	}
}

func TestInitLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "error", Output: &buf})

	Info().Msg("suppressed")
	if buf.Len() != 0 {
		t.Errorf("info message emitted at error level: %q", buf.String())
	}

	Error().Msg("emitted")
	if !strings.Contains(buf.String(), "emitted") {
		t.Errorf("error message missing, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"disabled", zerolog.Disabled},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := parseLevel(tt.in); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "info", Format: "console", Output: &buf})

	Info().Msg("console line")

	if strings.Contains(buf.String(), `"message"`) {
		t.Errorf("console format produced JSON output: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "console line") {
		t.Errorf("message missing from console output: %q", buf.String())
	}
}

func TestCtxRequestID(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Output: &buf})

	ctx := ContextWithRequestID(context.Background(), "req-123")
	Ctx(ctx).Info().Msg("traced")

	if !strings.Contains(buf.String(), `"request_id":"req-123"`) {
		t.Errorf("request_id missing from output: %q", buf.String())
	}
}

func TestRequestIDFromContextAbsent(t *testing.T) {
	if id := RequestIDFromContext(context.Background()); id != "" {
		t.Errorf("expected empty request ID, got %q", id)
	}
}

func TestNewSlogLogger(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Output: &buf})

	slogger := NewSlogLogger()
	slogger.Info("bridged", "provider", "history")

	out := buf.String()
	if !strings.Contains(out, `"message":"bridged"`) {
		t.Errorf("slog message not bridged to zerolog: %q", out)
	}
	if !strings.Contains(out, `"provider":"history"`) {
		t.Errorf("slog attr not bridged: %q", out)
	}
}

func TestSlogHandlerGroups(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	h := NewSlogHandlerWithLogger(logger).WithGroup("supervisor")
	slogger := slog.New(h)
	slogger.Warn("restarting", "service", "hub")

	if !strings.Contains(buf.String(), `"supervisor.service":"hub"`) {
		t.Errorf("group prefix missing: %q", buf.String())
	}
}
