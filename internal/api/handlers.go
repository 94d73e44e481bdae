// Feedrank - Personalized Content Feed Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feedrank/feedrank

// Package api provides the HTTP surface: feed retrieval, interaction and
// impression ingestion, and onboarding.
package api

import (
	"context"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/feedrank/feedrank/internal/config"
	"github.com/feedrank/feedrank/internal/engine"
	"github.com/feedrank/feedrank/internal/feedback"
	"github.com/feedrank/feedrank/internal/logging"
	"github.com/feedrank/feedrank/internal/middleware"
	"github.com/feedrank/feedrank/internal/models"
	"github.com/feedrank/feedrank/internal/validation"
)

// ImpressionStore persists impression batches. *database.DB satisfies it.
type ImpressionStore interface {
	UpsertImpressions(ctx context.Context, events []models.ImpressionEvent) (int64, error)
	Ping(ctx context.Context) error
}

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	engine  *engine.Engine
	proc    *feedback.Processor
	bus     *feedback.Bus
	store   ImpressionStore
	cfg     *config.RankingConfig
	version string
}

// NewHandlers creates the handler set.
func NewHandlers(eng *engine.Engine, proc *feedback.Processor, bus *feedback.Bus, store ImpressionStore, cfg *config.RankingConfig, version string) *Handlers {
	return &Handlers{engine: eng, proc: proc, bus: bus, store: store, cfg: cfg, version: version}
}

// GetFeed serves one page of the personalized feed.
//
// GET /api/v1/feed?cursor=<article_id>
func (h *Handlers) GetFeed(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	cursor := r.URL.Query().Get("cursor")

	page, err := h.engine.GetFeed(r.Context(), userID, cursor)
	if err != nil {
		writeInternalError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, page)
}

// PostInteraction accepts one interaction event. The event is durably
// appended before the response; profile updates run async afterwards, so a
// 202 means recorded, not yet applied.
//
// POST /api/v1/interactions
func (h *Handlers) PostInteraction(w http.ResponseWriter, r *http.Request) {
	var req InteractionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "malformed JSON body")
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		writeValidationError(w, r, verr)
		return
	}

	interactionType, err := models.ParseInteractionType(req.Type)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	// Unknown articles are rejected outright; accepting them would seed
	// stats rows and log entries for content that does not exist.
	exists, err := h.proc.ArticleExists(r.Context(), req.ArticleID)
	if err != nil {
		writeInternalError(w, r, err)
		return
	}
	if !exists {
		writeError(w, r, http.StatusNotFound, "unknown article")
		return
	}

	ev := &models.InteractionEvent{
		ID:        uuid.NewString(),
		UserID:    middleware.GetUserID(r.Context()),
		ArticleID: req.ArticleID,
		Type:      interactionType,
		Value:     req.Value,
		CreatedAt: time.Now().UTC(),
	}

	if err := h.proc.Record(r.Context(), ev); err != nil {
		writeInternalError(w, r, err)
		return
	}
	if err := h.bus.Publish(r.Context(), ev); err != nil {
		// Event is durable; only async convergence is delayed.
		logger := logging.Ctx(r.Context())
		logger.Warn().Err(err).
			Str("event_id", ev.ID).
			Msg("interaction publish failed")
	}

	writeJSON(w, r, http.StatusAccepted, map[string]string{"id": ev.ID})
}

// PostImpressions records which ranked articles a client actually rendered.
// The batch is idempotent per (user, feed request, article), so client
// retries never inflate counters.
//
// POST /api/v1/impressions
func (h *Handlers) PostImpressions(w http.ResponseWriter, r *http.Request) {
	var req ImpressionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "malformed JSON body")
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		writeValidationError(w, r, verr)
		return
	}

	userID := middleware.GetUserID(r.Context())
	shownAt := req.ShownAt
	if shownAt.IsZero() {
		shownAt = time.Now().UTC()
	}

	// When the materialized feed is still around, stamp each impression with
	// the pool tags and algorithm version it was actually ranked under.
	algorithmVersion := h.cfg.AlgorithmVersion
	tagsByID := map[string][]string{}
	if feed := h.engine.Materialized(userID, req.FeedRequestID); feed != nil {
		algorithmVersion = feed.AlgorithmVersion
		for i := range feed.Items {
			tagsByID[feed.Items[i].ID] = feed.Items[i].CandidateSources
		}
	}

	events := make([]models.ImpressionEvent, 0, len(req.Items))
	for _, item := range req.Items {
		events = append(events, models.ImpressionEvent{
			UserID:           userID,
			FeedRequestID:    req.FeedRequestID,
			ArticleID:        item.ArticleID,
			Position:         item.Position,
			AlgorithmVersion: algorithmVersion,
			CandidateSources: tagsByID[item.ArticleID],
			ShownAt:          shownAt,
		})
	}

	recorded, err := h.store.UpsertImpressions(r.Context(), events)
	if err != nil {
		writeInternalError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, &ImpressionsResponse{Recorded: recorded})
}

// PostOnboardingTopics seeds the user's topic weights from their onboarding
// picks and invalidates any materialized feed so the next request reflects
// them.
//
// POST /api/v1/onboarding/topics
func (h *Handlers) PostOnboardingTopics(w http.ResponseWriter, r *http.Request) {
	var req OnboardingTopicsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "malformed JSON body")
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		writeValidationError(w, r, verr)
		return
	}

	userID := middleware.GetUserID(r.Context())
	if err := h.proc.SeedTopics(r.Context(), userID, req.TopicIDs); err != nil {
		writeInternalError(w, r, err)
		return
	}
	h.engine.Invalidate(userID)

	w.WriteHeader(http.StatusNoContent)
}

// Health reports liveness and database reachability.
//
// GET /health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		writeJSON(w, r, http.StatusServiceUnavailable, &HealthResponse{Status: "degraded"})
		return
	}
	writeJSON(w, r, http.StatusOK, &HealthResponse{Status: "ok", Version: h.version})
}
