// Nowcast - Now-Playing Aggregation and Real-Time Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nowcast

package providers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tomtom215/nowcast/internal/config"
	"github.com/tomtom215/nowcast/internal/metrics"
)

// ArtworkClient resolves release MBIDs to front-cover image URLs.
type ArtworkClient interface {
	// FrontCoverURL returns the URL serving the front cover of the
	// given release. ErrNoData means the release has no cover art.
	FrontCoverURL(ctx context.Context, releaseMBID string) (string, error)
}

// CoverArtClient queries a Cover Art Archive-compatible provider. The
// archive answers /release/{mbid}/front with a redirect chain ending
// at the actual image; the final URL after redirects is the artwork
// URL handed to consumers, so they fetch the image directly from the
// archive's storage.
type CoverArtClient struct {
	baseURL string
	client  *http.Client
}

// NewCoverArtClient creates an artwork client.
func NewCoverArtClient(cfg *config.ArtworkConfig, timeout time.Duration) *CoverArtClient {
	return &CoverArtClient{
		baseURL: cfg.BaseURL,
		client:  newHTTPClient(timeout),
	}
}

// FrontCoverURL implements ArtworkClient.
func (c *CoverArtClient) FrontCoverURL(ctx context.Context, releaseMBID string) (artwork string, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordProviderRequest("artwork", outcomeFor(err), time.Since(start))
	}()

	endpoint := fmt.Sprintf("%s/release/%s/front", c.baseURL, url.PathEscape(releaseMBID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("artwork: creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("artwork: %w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	// Only the response URL matters; drain so the connection is reused.
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodySize)) //nolint:errcheck

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", fmt.Errorf("artwork: no front cover for release %s: %w", releaseMBID, ErrNoData)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return "", fmt.Errorf("artwork: status %d: %w", resp.StatusCode, ErrUnavailable)
	}

	return resp.Request.URL.String(), nil
}
