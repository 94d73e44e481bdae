// Feedrank - Personalized Content Feed Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feedrank/feedrank

package models

import (
	"fmt"
	"time"
)

// InteractionType classifies an explicit or implicit user signal.
type InteractionType string

const (
	InteractionOpen    InteractionType = "OPEN"
	InteractionLike    InteractionType = "LIKE"
	InteractionDislike InteractionType = "DISLIKE"
	InteractionSave    InteractionType = "SAVE"
	InteractionHide    InteractionType = "HIDE"
)

// ParseInteractionType validates a client-supplied interaction type.
func ParseInteractionType(s string) (InteractionType, error) {
	switch t := InteractionType(s); t {
	case InteractionOpen, InteractionLike, InteractionDislike, InteractionSave, InteractionHide:
		return t, nil
	default:
		return "", fmt.Errorf("unknown interaction type %q", s)
	}
}

// Positive reports whether the interaction is a positive signal.
func (t InteractionType) Positive() bool {
	return t == InteractionLike || t == InteractionSave || t == InteractionOpen
}

// InteractionEvent is one append-only row in the interaction log. Never
// mutated after creation.
type InteractionEvent struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	ArticleID string          `json:"article_id"`
	Type      InteractionType `json:"type"`

	// Value carries type-specific detail; for OPEN it is dwell seconds.
	Value float64 `json:"value,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// ImpressionEvent records that an article was shown to a user at a given
// rank by a given algorithm version. Unique on (UserID, FeedRequestID,
// ArticleID); duplicate writes are no-ops.
type ImpressionEvent struct {
	UserID           string    `json:"user_id"`
	FeedRequestID    string    `json:"feed_request_id"`
	ArticleID        string    `json:"article_id"`
	Position         int       `json:"position"`
	AlgorithmVersion string    `json:"algorithm_version"`
	CandidateSources []string  `json:"candidate_sources"`
	ShownAt          time.Time `json:"shown_at"`
}
