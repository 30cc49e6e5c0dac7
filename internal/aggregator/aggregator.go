// Nowcast - Now-Playing Aggregation and Real-Time Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nowcast

// Package aggregator implements the now-playing pipeline: history
// lookup, enrichment race, artwork fallback chain, and the TTL cache
// that coalesces concurrent runs.
package aggregator

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/nowcast/internal/fallback"
	"github.com/tomtom215/nowcast/internal/logging"
	"github.com/tomtom215/nowcast/internal/metrics"
	"github.com/tomtom215/nowcast/internal/models"
	"github.com/tomtom215/nowcast/internal/providers"
)

// maxEvents is the longest possible event sequence of one run:
// loading, partial, terminal. Result channels are buffered to this
// size so a slow consumer never blocks the pipeline.
const maxEvents = 3

// Aggregator runs the now-playing pipeline for the configured user.
// Concurrent runs coalesce on the cache: at most one pipeline executes
// per user at a time, and every attached caller receives the identical
// terminal result.
type Aggregator struct {
	history    providers.HistoryClient
	enrichment providers.EnrichmentClient // nil when no API key is configured
	artwork    providers.ArtworkClient
	catalog    providers.CatalogClient
	cache      *ResultCache
	user       string
	logger     zerolog.Logger
}

// New creates an aggregator for user. enrichment may be nil, which
// disables the enrichment race and its image-based artwork source.
func New(
	user string,
	history providers.HistoryClient,
	enrichment providers.EnrichmentClient,
	artwork providers.ArtworkClient,
	catalog providers.CatalogClient,
	cache *ResultCache,
) *Aggregator {
	return &Aggregator{
		history:    history,
		enrichment: enrichment,
		artwork:    artwork,
		catalog:    catalog,
		cache:      cache,
		user:       user,
		logger:     logging.With().Str("component", "aggregator").Logger(),
	}
}

// Run starts one aggregation and returns the channel of status events.
// A cache hit delivers the cached terminal as the only event. Otherwise
// the run emits its own loading event first, then either the shared
// terminal of an in-flight run or the full partial-then-terminal
// sequence of a fresh pipeline. The channel is closed after the
// terminal event (or early when ctx is cancelled while attached) and
// is buffered so the pipeline never waits on the consumer.
func (a *Aggregator) Run(ctx context.Context) <-chan models.AggregationResult {
	events := make(chan models.AggregationResult, maxEvents)

	go func() {
		defer close(events)

		cached, inflight, state := a.cache.Begin(a.user)
		switch state {
		case BeginCached:
			events <- cached
		case BeginAttached:
			events <- models.LoadingResult()
			select {
			case <-inflight.Done():
				events <- inflight.Result()
			case <-ctx.Done():
			}
		case BeginStarted:
			events <- models.LoadingResult()
			// The pipeline is shared through the cache, so it must not
			// die with the caller that happened to start it. Detach
			// from ctx's cancellation, keeping its values; the
			// per-call provider timeouts still bound the work.
			events <- a.execute(context.WithoutCancel(ctx), events)
		}
	}()

	return events
}

// execute runs the owned pipeline, resolves the in-flight entry on
// every path, and returns the terminal result. Intermediate events go
// to events; the terminal is returned so Run sends it exactly once.
func (a *Aggregator) execute(ctx context.Context, events chan<- models.AggregationResult) models.AggregationResult {
	start := time.Now()

	track, err := a.history.PlayingNow(ctx)
	if err != nil {
		a.logger.Warn().Err(err).Msg("History lookup failed")
		result := models.ErrorResult("Unable to reach the listening history service")
		a.cache.finish(a.user, result, false)
		metrics.AggregationRuns.WithLabelValues("error").Inc()
		return result
	}
	if track == nil {
		result := models.NothingPlayingResult()
		a.cache.finish(a.user, result, true)
		metrics.AggregationRuns.WithLabelValues("nothing_playing").Inc()
		return result
	}

	events <- models.PartialResult(track)

	info := a.enrich(ctx, track)
	coverArt := a.findArtwork(ctx, track, info)

	var raw json.RawMessage
	if info != nil {
		raw = info.Raw
	}
	result := models.CompleteResult(track, coverArt, raw)
	a.cache.finish(a.user, result, true)
	metrics.AggregationRuns.WithLabelValues("complete").Inc()

	a.logger.Debug().
		Str("track", track.Track).
		Str("artist", track.Artist).
		Bool("enriched", info != nil).
		Bool("artwork", coverArt != "").
		Dur("elapsed", time.Since(start)).
		Msg("Aggregation complete")
	return result
}

// enrich races the MBID and name lookups and returns whichever lands
// first, or nil when enrichment is disabled or both lookups fail.
// Losing lookups run to their own timeout; they are not cancelled when
// the winner lands.
func (a *Aggregator) enrich(ctx context.Context, track *models.TrackIdentity) *providers.EnrichmentInfo {
	if a.enrichment == nil {
		return nil
	}

	var ops []fallback.Op[*providers.EnrichmentInfo]
	if track.RecordingMBID != "" {
		mbid := track.RecordingMBID
		ops = append(ops, func(ctx context.Context) (*providers.EnrichmentInfo, error) {
			return a.enrichment.TrackInfoByMBID(ctx, mbid)
		})
	}
	if track.Artist != "" && track.Track != "" {
		artist, title := track.Artist, track.Track
		ops = append(ops, func(ctx context.Context) (*providers.EnrichmentInfo, error) {
			return a.enrichment.TrackInfoByName(ctx, artist, title)
		})
	}

	info, err := fallback.Race(ctx, ops...)
	if err != nil {
		a.logger.Debug().Err(err).Str("track", track.Track).Msg("Enrichment lookups failed")
		return nil
	}
	return info
}

// findArtwork walks the cover-art fallback chain: the enrichment
// document's album image, then the artwork archive keyed by the
// history-reported release MBID, then a catalog search to discover the
// MBID followed by the archive. Returns "" when every source misses.
func (a *Aggregator) findArtwork(ctx context.Context, track *models.TrackIdentity, info *providers.EnrichmentInfo) string {
	var ops []fallback.Op[string]

	if info != nil {
		if url := providers.BestImage(info.Images); url != "" {
			ops = append(ops, func(context.Context) (string, error) {
				return url, nil
			})
		}
	}

	if track.ReleaseMBID != "" {
		mbid := track.ReleaseMBID
		ops = append(ops, func(ctx context.Context) (string, error) {
			return a.artwork.FrontCoverURL(ctx, mbid)
		})
	}

	if track.Artist != "" && track.Release != "" {
		artist, release := track.Artist, track.Release
		ops = append(ops, func(ctx context.Context) (string, error) {
			mbid, err := a.catalog.SearchReleaseID(ctx, artist, release)
			if err != nil {
				return "", err
			}
			return a.artwork.FrontCoverURL(ctx, mbid)
		})
	}

	url, err := fallback.Chain(ctx, ops...)
	if err != nil {
		a.logger.Debug().Err(err).Str("track", track.Track).Msg("No cover art found")
		return ""
	}
	return url
}
