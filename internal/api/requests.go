// Feedrank - Personalized Content Feed Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feedrank/feedrank

package api

import "time"

// InteractionRequest is the POST /interactions payload.
type InteractionRequest struct {
	ArticleID string `json:"article_id" validate:"required,max=64"`
	Type      string `json:"type" validate:"required,oneof=OPEN LIKE DISLIKE SAVE HIDE"`

	// Value is dwell seconds for OPEN; ignored for other types.
	Value float64 `json:"value,omitempty" validate:"omitempty,min=0"`
}

// ImpressionItem is one shown article inside an impressions batch.
type ImpressionItem struct {
	ArticleID string `json:"article_id" validate:"required,max=64"`
	Position  int    `json:"position" validate:"min=0"`
}

// ImpressionsRequest is the POST /impressions payload: the articles a
// client actually rendered for one feed request.
type ImpressionsRequest struct {
	FeedRequestID string           `json:"feed_request_id" validate:"required,max=64"`
	Items         []ImpressionItem `json:"items" validate:"required,min=1,max=100,dive"`
	ShownAt       time.Time        `json:"shown_at,omitempty"`
}

// OnboardingTopicsRequest is the POST /onboarding/topics payload.
type OnboardingTopicsRequest struct {
	TopicIDs []string `json:"topic_ids" validate:"required,min=1,max=50,dive,required,max=64"`
}

// ImpressionsResponse reports how many impressions were newly recorded.
type ImpressionsResponse struct {
	Recorded int64 `json:"recorded"`
}

// HealthResponse is the GET /health payload.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}
