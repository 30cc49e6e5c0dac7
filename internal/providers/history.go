// Nowcast - Now-Playing Aggregation and Real-Time Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nowcast

package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/nowcast/internal/config"
	"github.com/tomtom215/nowcast/internal/logging"
	"github.com/tomtom215/nowcast/internal/metrics"
	"github.com/tomtom215/nowcast/internal/models"
)

// HistoryClient reports the track a user is listening to right now.
type HistoryClient interface {
	// PlayingNow returns the currently playing track for the
	// configured user, or (nil, nil) when nothing is playing.
	PlayingNow(ctx context.Context) (*models.TrackIdentity, error)
}

// ListenBrainzClient queries a ListenBrainz-compatible listening
// history API.
type ListenBrainzClient struct {
	baseURL string
	user    string
	token   string
	client  *http.Client
	logger  zerolog.Logger
}

// NewListenBrainzClient creates a history client for cfg.User.
func NewListenBrainzClient(cfg *config.HistoryConfig, timeout time.Duration) *ListenBrainzClient {
	return &ListenBrainzClient{
		baseURL: cfg.BaseURL,
		user:    cfg.User,
		token:   cfg.Token,
		client:  newHTTPClient(timeout),
		logger:  logging.With().Str("provider", "history").Logger(),
	}
}

// playingNowResponse mirrors the playing-now payload envelope.
type playingNowResponse struct {
	Payload struct {
		Count   int `json:"count"`
		Listens []struct {
			TrackMetadata struct {
				TrackName      string `json:"track_name"`
				ArtistName     string `json:"artist_name"`
				ReleaseName    string `json:"release_name"`
				AdditionalInfo struct {
					RecordingMBID string   `json:"recording_mbid"`
					ReleaseMBID   string   `json:"release_mbid"`
					ArtistMBIDs   []string `json:"artist_mbids"`
				} `json:"additional_info"`
			} `json:"track_metadata"`
		} `json:"listens"`
	} `json:"payload"`
}

// PlayingNow implements HistoryClient.
func (c *ListenBrainzClient) PlayingNow(ctx context.Context) (track *models.TrackIdentity, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordProviderRequest("history", outcomeFor(err), time.Since(start))
	}()

	endpoint := fmt.Sprintf("%s/1/user/%s/playing-now", c.baseURL, url.PathEscape(c.user))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("history: creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Token "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("history: %w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body := readBodyForError(resp.Body)
		c.logger.Warn().
			Int("status", resp.StatusCode).
			Str("body", string(body)).
			Msg("Playing-now request failed")
		return nil, fmt.Errorf("history: status %d: %w", resp.StatusCode, ErrUnavailable)
	}

	var payload playingNowResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("history: decoding response: %w", err)
	}

	if payload.Payload.Count == 0 || len(payload.Payload.Listens) == 0 {
		return nil, nil
	}

	md := payload.Payload.Listens[0].TrackMetadata
	return &models.TrackIdentity{
		Track:         md.TrackName,
		Artist:        md.ArtistName,
		Release:       md.ReleaseName,
		RecordingMBID: md.AdditionalInfo.RecordingMBID,
		ReleaseMBID:   md.AdditionalInfo.ReleaseMBID,
		ArtistMBIDs:   md.AdditionalInfo.ArtistMBIDs,
	}, nil
}
