// Feedrank - Personalized Content Feed Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feedrank/feedrank

package feedback

import (
	"testing"

	"github.com/feedrank/feedrank/internal/config"
	"github.com/feedrank/feedrank/internal/models"
)

func testFeedbackConfig() *config.FeedbackConfig {
	return &config.FeedbackConfig{
		TopicDelta:         0.2,
		SourceDelta:        0.3,
		EMAAlpha:           0.05,
		VectorRetries:      5,
		SaveWeight:         3.0,
		LikeWeight:         2.0,
		DislikeWeight:      -2.0,
		HideWeight:         -3.0,
		OpenLongWeight:     1.5,
		OpenMediumWeight:   1.0,
		OpenShortWeight:    0.2,
		DwellLongSeconds:   60,
		DwellMediumSeconds: 10,
	}
}

func TestInteractionWeight(t *testing.T) {
	cfg := testFeedbackConfig()
	tests := []struct {
		name  string
		typ   models.InteractionType
		dwell float64
		want  float64
	}{
		{name: "save", typ: models.InteractionSave, want: 3.0},
		{name: "like", typ: models.InteractionLike, want: 2.0},
		{name: "dislike", typ: models.InteractionDislike, want: -2.0},
		{name: "hide", typ: models.InteractionHide, want: -3.0},
		{name: "open long dwell", typ: models.InteractionOpen, dwell: 60, want: 1.5},
		{name: "open above long threshold", typ: models.InteractionOpen, dwell: 300, want: 1.5},
		{name: "open medium dwell", typ: models.InteractionOpen, dwell: 10, want: 1.0},
		{name: "open just under long", typ: models.InteractionOpen, dwell: 59.9, want: 1.0},
		{name: "open short dwell", typ: models.InteractionOpen, dwell: 3, want: 0.2},
		{name: "open without dwell carries no signal", typ: models.InteractionOpen, dwell: 0, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InteractionWeight(cfg, tt.typ, tt.dwell); got != tt.want {
				t.Errorf("InteractionWeight(%s, %v) = %v, want %v", tt.typ, tt.dwell, got, tt.want)
			}
		})
	}
}

func TestMovesWeights(t *testing.T) {
	tests := []struct {
		typ  models.InteractionType
		want bool
	}{
		{models.InteractionLike, true},
		{models.InteractionDislike, true},
		{models.InteractionSave, true},
		{models.InteractionHide, true},
		{models.InteractionOpen, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			if got := movesWeights(tt.typ); got != tt.want {
				t.Errorf("movesWeights(%s) = %v, want %v", tt.typ, got, tt.want)
			}
		})
	}
}

func TestWeightDirection(t *testing.T) {
	if weightDirection(models.InteractionLike) != 1 || weightDirection(models.InteractionSave) != 1 {
		t.Error("positive interactions must push weights up")
	}
	if weightDirection(models.InteractionDislike) != -1 || weightDirection(models.InteractionHide) != -1 {
		t.Error("negative interactions must push weights down")
	}
}
