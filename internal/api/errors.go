// Feedrank - Personalized Content Feed Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feedrank/feedrank

package api

import (
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/feedrank/feedrank/internal/logging"
	"github.com/feedrank/feedrank/internal/middleware"
	"github.com/feedrank/feedrank/internal/validation"
)

// ErrorResponse is the JSON error envelope for every non-2xx response.
type ErrorResponse struct {
	Error     string            `json:"error"`
	Details   map[string]string `json:"details,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger := logging.Ctx(r.Context())
		logger.Warn().Err(err).Msg("response encoding failed")
	}
}

// writeError writes the error envelope with the request ID attached.
func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, &ErrorResponse{
		Error:     msg,
		RequestID: middleware.GetRequestID(r.Context()),
	})
}

// writeValidationError writes a 400 with per-field detail.
func writeValidationError(w http.ResponseWriter, r *http.Request, verr *validation.RequestValidationError) {
	details := make(map[string]string, len(verr.Errors))
	for _, f := range verr.Errors {
		details[f.Field] = f.Message
	}
	writeJSON(w, r, http.StatusBadRequest, &ErrorResponse{
		Error:     "validation failed",
		Details:   details,
		RequestID: middleware.GetRequestID(r.Context()),
	})
}

// writeInternalError logs the cause and writes an opaque 500.
func writeInternalError(w http.ResponseWriter, r *http.Request, err error) {
	logger := logging.Ctx(r.Context())
	logger.Error().Err(err).
		Str("path", r.URL.Path).
		Msg("request failed")
	writeError(w, r, http.StatusInternalServerError, "internal error")
}
