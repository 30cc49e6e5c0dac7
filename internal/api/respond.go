// Nowcast - Now-Playing Aggregation and Real-Time Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nowcast

// Package api provides the HTTP surface: the chi router, the REST
// handlers, and the WebSocket upgrade endpoint.
package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/nowcast/internal/logging"
	"github.com/tomtom215/nowcast/internal/models"
)

// Error codes returned in the APIResponse envelope.
const (
	ErrCodeInternal       = "internal_error"
	ErrCodeUpstreamFailed = "upstream_failed"
	ErrCodeNotReady       = "not_ready"
)

func respondJSON(w http.ResponseWriter, statusCode int, response models.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logging.Error().Err(err).Msg("failed to encode response")
	}
}

func respondSuccess(w http.ResponseWriter, data interface{}, cached bool) {
	respondJSON(w, http.StatusOK, models.APIResponse{
		Status: "success",
		Data:   data,
		Metadata: models.Metadata{
			Timestamp: time.Now().UTC(),
			Cached:    cached,
		},
	})
}

func respondError(w http.ResponseWriter, statusCode int, code, message string) {
	respondJSON(w, statusCode, models.APIResponse{
		Status:   "error",
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
		Error: &models.APIError{
			Code:    code,
			Message: message,
		},
	})
}
