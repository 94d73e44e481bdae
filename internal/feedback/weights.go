// Feedrank - Personalized Content Feed Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feedrank/feedrank

// Package feedback implements the online learning loop: interaction events
// are appended durably and then fanned out to independent profile updates
// (topic weights, source affinities, interest vector). Each update is its
// own consumer; a failure in one never rolls back the others.
package feedback

import (
	"github.com/feedrank/feedrank/internal/config"
	"github.com/feedrank/feedrank/internal/models"
)

// InteractionWeight maps an interaction to its signed vector-update weight
// from the configured table. OPEN weight depends on dwell time; a bare OPEN
// with no dwell carries no vector signal. Returns 0 for signals that should
// not move the interest vector.
func InteractionWeight(cfg *config.FeedbackConfig, t models.InteractionType, dwellSeconds float64) float64 {
	switch t {
	case models.InteractionSave:
		return cfg.SaveWeight
	case models.InteractionLike:
		return cfg.LikeWeight
	case models.InteractionDislike:
		return cfg.DislikeWeight
	case models.InteractionHide:
		return cfg.HideWeight
	case models.InteractionOpen:
		if dwellSeconds <= 0 {
			return 0
		}
		switch {
		case dwellSeconds >= cfg.DwellLongSeconds:
			return cfg.OpenLongWeight
		case dwellSeconds >= cfg.DwellMediumSeconds:
			return cfg.OpenMediumWeight
		default:
			return cfg.OpenShortWeight
		}
	default:
		return 0
	}
}

// movesWeights reports whether the interaction adjusts topic weights and
// source affinity. OPEN moves only the interest vector.
func movesWeights(t models.InteractionType) bool {
	switch t {
	case models.InteractionLike, models.InteractionDislike,
		models.InteractionSave, models.InteractionHide:
		return true
	default:
		return false
	}
}

// weightDirection returns +1 for positive signals and -1 for negative ones.
func weightDirection(t models.InteractionType) float64 {
	if t == models.InteractionLike || t == models.InteractionSave {
		return 1
	}
	return -1
}
