// Nowcast - Now-Playing Aggregation and Real-Time Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nowcast

package models

import (
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

func TestStatusTerminal(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusLoading, false},
		{StatusPartial, false},
		{StatusComplete, true},
		{StatusError, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.Terminal(); got != tt.want {
				t.Errorf("Terminal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAggregationResultWireFormat(t *testing.T) {
	res := AggregationResult{
		Status:      StatusComplete,
		TrackName:   "Song A",
		ArtistName:  "Artist B",
		ReleaseName: "Album C",
		MBID:        "abc",
		CoverArt:    "http://img/1.jpg",
	}

	data, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	// Client widgets key off these exact field names.
	for _, field := range []string{`"status":"complete"`, `"track_name"`, `"artist_name"`, `"release_name"`, `"mbid"`, `"coverArt"`} {
		if !strings.Contains(string(data), field) {
			t.Errorf("wire payload missing %s: %s", field, data)
		}
	}
}

func TestAggregationResultOmitsEmptyFields(t *testing.T) {
	data, err := json.Marshal(NothingPlayingResult())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	for _, field := range []string{"track_name", "artist_name", "coverArt", "enrichment"} {
		if strings.Contains(string(data), field) {
			t.Errorf("empty field %s serialized: %s", field, data)
		}
	}
	if !strings.Contains(string(data), "No track currently playing") {
		t.Errorf("nothing-playing message missing: %s", data)
	}
}

func TestPartialResultCarriesIdentity(t *testing.T) {
	track := &TrackIdentity{
		Track:         "Song A",
		Artist:        "Artist B",
		Release:       "Album C",
		RecordingMBID: "abc",
	}

	res := PartialResult(track)
	if res.Status != StatusPartial {
		t.Errorf("status = %q, want partial", res.Status)
	}
	if res.TrackName != "Song A" || res.ArtistName != "Artist B" || res.ReleaseName != "Album C" {
		t.Errorf("identity fields not carried over: %+v", res)
	}
	if res.MBID != "abc" {
		t.Errorf("mbid = %q, want abc", res.MBID)
	}
}

func TestErrorResult(t *testing.T) {
	res := ErrorResult("provider unavailable")
	if res.Status != StatusError || res.Message != "provider unavailable" {
		t.Errorf("unexpected error result: %+v", res)
	}
	if !res.Status.Terminal() {
		t.Error("error result must be terminal")
	}
}
