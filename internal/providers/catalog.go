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
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/nowcast/internal/config"
	"github.com/tomtom215/nowcast/internal/metrics"
)

// CatalogClient searches the release catalog for MBIDs.
type CatalogClient interface {
	// SearchReleaseID returns the MBID of the best-scoring release
	// matching artist and release title. ErrNoData means no match.
	SearchReleaseID(ctx context.Context, artist, release string) (string, error)
}

// MusicBrainzClient queries a MusicBrainz-compatible release catalog.
// The public catalog asks clients to stay at or below one request per
// second; the limiter enforces that pace across concurrent callers.
type MusicBrainzClient struct {
	baseURL string
	limiter *rate.Limiter
	client  *http.Client
}

// NewMusicBrainzClient creates a catalog client paced at
// cfg.RatePerSec requests per second.
func NewMusicBrainzClient(cfg *config.CatalogConfig, timeout time.Duration) *MusicBrainzClient {
	pace := cfg.RatePerSec
	if pace <= 0 {
		pace = 1
	}
	return &MusicBrainzClient{
		baseURL: cfg.BaseURL,
		limiter: rate.NewLimiter(rate.Limit(pace), 1),
		client:  newHTTPClient(timeout),
	}
}

type releaseSearchResponse struct {
	Releases []struct {
		ID string `json:"id"`
	} `json:"releases"`
}

// SearchReleaseID implements CatalogClient. The limiter wait counts
// against the caller's deadline, so a backed-up limiter surfaces as a
// timed-out call rather than an unbounded stall.
func (c *MusicBrainzClient) SearchReleaseID(ctx context.Context, artist, release string) (id string, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordProviderRequest("catalog", outcomeFor(err), time.Since(start))
	}()

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("catalog: %w: %v", ErrUnavailable, err)
	}

	params := url.Values{}
	params.Set("query", luceneQuery(artist, release))
	params.Set("fmt", "json")
	params.Set("limit", "1")

	endpoint := fmt.Sprintf("%s/ws/2/release?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("catalog: creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("catalog: %w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("catalog: status %d: %w", resp.StatusCode, ErrUnavailable)
	}

	var result releaseSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("catalog: decoding response: %w", err)
	}
	if len(result.Releases) == 0 || result.Releases[0].ID == "" {
		return "", fmt.Errorf("catalog: no release matching %q / %q: %w", artist, release, ErrNoData)
	}
	return result.Releases[0].ID, nil
}

// luceneQuery builds a fielded search query with the values quoted so
// titles containing Lucene operators match literally.
func luceneQuery(artist, release string) string {
	return fmt.Sprintf(`artist:%s AND release:%s`, lucenePhrase(artist), lucenePhrase(release))
}

func lucenePhrase(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}
