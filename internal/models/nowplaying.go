// Nowcast - Now-Playing Aggregation and Real-Time Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nowcast

// Package models defines the shared data types for Nowcast: the track
// identity reported by the history provider, the aggregation result
// pushed to clients, and the API response envelope.
package models

import (
	"github.com/goccy/go-json"
)

// Status is the lifecycle state of an aggregation result.
//
// Within a single aggregation run the status only advances forward
// (loading -> partial -> complete) or terminates with error; a run
// never regresses from complete back to loading.
type Status string

const (
	StatusLoading  Status = "loading"
	StatusPartial  Status = "partial"
	StatusComplete Status = "complete"
	StatusError    Status = "error"
)

// Terminal reports whether the status ends an aggregation run.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusError
}

// TrackIdentity is the track as reported by the history provider.
// It is immutable once received and serves as the join key for the
// enrichment and artwork lookups.
type TrackIdentity struct {
	Track         string   `json:"track"`
	Artist        string   `json:"artist"`
	Release       string   `json:"release,omitempty"`
	RecordingMBID string   `json:"recording_mbid,omitempty"`
	ReleaseMBID   string   `json:"release_mbid,omitempty"`
	ArtistMBIDs   []string `json:"artist_mbids,omitempty"`
}

// AggregationResult is the unit pushed to clients as a statusUpdate
// payload. Results are created fresh each run and never mutated after
// being pushed.
type AggregationResult struct {
	Status      Status          `json:"status"`
	TrackName   string          `json:"track_name,omitempty"`
	ArtistName  string          `json:"artist_name,omitempty"`
	ReleaseName string          `json:"release_name,omitempty"`
	MBID        string          `json:"mbid,omitempty"`
	CoverArt    string          `json:"coverArt,omitempty"`
	Enrichment  json.RawMessage `json:"enrichment,omitempty"`
	Message     string          `json:"message,omitempty"`
}

// LoadingResult returns the initial result for a fresh run.
func LoadingResult() AggregationResult {
	return AggregationResult{
		Status:  StatusLoading,
		Message: "Looking up current track",
	}
}

// PartialResult returns the early result carrying only the bare track
// identity, emitted before any enrichment call so clients can show the
// track name as soon as possible.
func PartialResult(track *TrackIdentity) AggregationResult {
	return AggregationResult{
		Status:      StatusPartial,
		TrackName:   track.Track,
		ArtistName:  track.Artist,
		ReleaseName: track.Release,
		MBID:        track.RecordingMBID,
		Message:     "Fetching track details",
	}
}

// NothingPlayingResult returns the terminal result for an empty
// listening history. This is a complete state, not an error, and it is
// cached like any other successful result.
func NothingPlayingResult() AggregationResult {
	return AggregationResult{
		Status:  StatusComplete,
		Message: "No track currently playing",
	}
}

// CompleteResult returns the terminal result for a finished run. The
// cover art URL and enrichment document are best-effort and may be
// empty; a missing enrichment does not demote the run to an error.
func CompleteResult(track *TrackIdentity, coverArt string, enrichment json.RawMessage) AggregationResult {
	return AggregationResult{
		Status:      StatusComplete,
		TrackName:   track.Track,
		ArtistName:  track.Artist,
		ReleaseName: track.Release,
		MBID:        track.RecordingMBID,
		CoverArt:    coverArt,
		Enrichment:  enrichment,
	}
}

// ErrorResult returns a terminal error result with a human-readable
// message. Error results are never cached.
func ErrorResult(message string) AggregationResult {
	return AggregationResult{
		Status:  StatusError,
		Message: message,
	}
}
