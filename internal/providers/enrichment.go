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
)

// AlbumImage is one sized album-art variant as the enrichment provider
// reports it.
type AlbumImage struct {
	URL  string `json:"#text"`
	Size string `json:"size"`
}

// EnrichmentInfo is the enrichment provider's track document. Raw is
// the provider-shaped track object, passed through opaquely to
// consumers; Images is extracted from it for the artwork fallback
// chain.
type EnrichmentInfo struct {
	Raw    json.RawMessage
	Images []AlbumImage
}

// BestImage picks the preferred album-art URL from the provider's
// sized variants: extralarge first, then large, then whatever variant
// is listed last. Returns "" when no variant carries a URL.
func BestImage(images []AlbumImage) string {
	var large, last string
	for _, img := range images {
		if img.URL == "" {
			continue
		}
		switch img.Size {
		case "extralarge":
			return img.URL
		case "large":
			large = img.URL
		}
		last = img.URL
	}
	if large != "" {
		return large
	}
	return last
}

// EnrichmentClient looks up track metadata. Both lookups race in the
// aggregator; either may be the one that lands.
type EnrichmentClient interface {
	// TrackInfoByMBID looks up a track by recording MBID.
	TrackInfoByMBID(ctx context.Context, mbid string) (*EnrichmentInfo, error)

	// TrackInfoByName looks up a track by artist and title with
	// autocorrection enabled.
	TrackInfoByName(ctx context.Context, artist, track string) (*EnrichmentInfo, error)
}

// LastFMClient queries a Last.fm-compatible enrichment API.
type LastFMClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  zerolog.Logger
}

// NewLastFMClient creates an enrichment client. The caller is expected
// to skip construction entirely when no API key is configured.
func NewLastFMClient(cfg *config.EnrichmentConfig, timeout time.Duration) *LastFMClient {
	return &LastFMClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  newHTTPClient(timeout),
		logger:  logging.With().Str("provider", "enrichment").Logger(),
	}
}

// trackInfoEnvelope covers both the success and error shapes of the
// track.getInfo response. The provider reports failures with a 200
// status and an error code in the body.
type trackInfoEnvelope struct {
	Error   int             `json:"error"`
	Message string          `json:"message"`
	Track   json.RawMessage `json:"track"`
}

// trackAlbumImages extracts just the album image list from a track
// document.
type trackAlbumImages struct {
	Album struct {
		Image []AlbumImage `json:"image"`
	} `json:"album"`
}

// TrackInfoByMBID implements EnrichmentClient.
func (c *LastFMClient) TrackInfoByMBID(ctx context.Context, mbid string) (*EnrichmentInfo, error) {
	params := url.Values{}
	params.Set("mbid", mbid)
	return c.getInfo(ctx, params)
}

// TrackInfoByName implements EnrichmentClient.
func (c *LastFMClient) TrackInfoByName(ctx context.Context, artist, track string) (*EnrichmentInfo, error) {
	params := url.Values{}
	params.Set("artist", artist)
	params.Set("track", track)
	params.Set("autocorrect", "1")
	return c.getInfo(ctx, params)
}

func (c *LastFMClient) getInfo(ctx context.Context, params url.Values) (info *EnrichmentInfo, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordProviderRequest("enrichment", outcomeFor(err), time.Since(start))
	}()

	params.Set("method", "track.getInfo")
	params.Set("format", "json")
	params.Set("api_key", c.apiKey)

	endpoint := fmt.Sprintf("%s/2.0/?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("enrichment: creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("enrichment: %w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body := readBodyForError(resp.Body)
		c.logger.Warn().
			Int("status", resp.StatusCode).
			Str("body", string(body)).
			Msg("Track info request failed")
		return nil, fmt.Errorf("enrichment: status %d: %w", resp.StatusCode, ErrUnavailable)
	}

	var envelope trackInfoEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("enrichment: decoding response: %w", err)
	}
	if envelope.Error != 0 {
		return nil, fmt.Errorf("enrichment: provider error %d (%s): %w",
			envelope.Error, envelope.Message, ErrNoData)
	}
	if len(envelope.Track) == 0 {
		return nil, fmt.Errorf("enrichment: empty track document: %w", ErrNoData)
	}

	var album trackAlbumImages
	if err := json.Unmarshal(envelope.Track, &album); err != nil {
		return nil, fmt.Errorf("enrichment: parsing track document: %w", err)
	}

	return &EnrichmentInfo{
		Raw:    envelope.Track,
		Images: album.Album.Image,
	}, nil
}
