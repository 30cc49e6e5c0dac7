// Nowcast - Now-Playing Aggregation and Real-Time Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nowcast

// Package providers contains the timeout-wrapped HTTP clients for the
// four external metadata providers: the listening-history API
// (ListenBrainz-shaped), the enrichment API (Last.fm-shaped), the
// artwork archive (Cover Art Archive-shaped), and the release-catalog
// search (MusicBrainz-shaped).
//
// All providers are best-effort: any non-2xx status, network failure,
// or malformed body is reported as an error and treated by the
// aggregator as "no data" for that stage. A call exceeding its deadline
// is indistinguishable from an unavailable provider.
package providers

import (
	"errors"
	"io"
	"net/http"
	"time"
)

const userAgent = "Nowcast/1.0 (https://github.com/tomtom215/nowcast)"

// maxErrorBodySize limits how much of a response body is read for
// error reporting, preventing unbounded allocation on large error
// responses.
const maxErrorBodySize = 64 * 1024 // 64KB

// Sentinel errors for provider failures. Wrapped errors remain
// errors.Is-able against these.
var (
	// ErrUnavailable marks a non-2xx status, network failure, or
	// timeout.
	ErrUnavailable = errors.New("provider unavailable")

	// ErrNoData marks a well-formed response that carries no usable
	// data for the request (e.g. unknown track, missing cover art).
	ErrNoData = errors.New("provider returned no data")
)

// newHTTPClient returns a client enforcing the fixed per-call timeout.
func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// readBodyForError reads at most maxErrorBodySize of r for diagnostics.
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("... (truncated)")...)
	}
	return body
}

// outcomeFor maps a call result to a metrics outcome label.
func outcomeFor(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrNoData):
		return "no_data"
	default:
		return "error"
	}
}
