// Feedrank - Personalized Content Feed Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feedrank/feedrank

package models

// Weight bounds for topic weights and source affinities. Every stored weight
// is clamped into [WeightMin, WeightMax]; an absent row reads as 0.
const (
	WeightMin = -3.0
	WeightMax = 3.0
)

// UserTopicWeight is a learned per-user, per-topic preference weight.
type UserTopicWeight struct {
	UserID  string  `json:"user_id"`
	TopicID string  `json:"topic_id"`
	Weight  float64 `json:"weight"`
}

// UserSourceAffinity is a learned per-user, per-source preference weight,
// distinct from topic-level preference.
type UserSourceAffinity struct {
	UserID   string  `json:"user_id"`
	SourceID string  `json:"source_id"`
	Weight   float64 `json:"weight"`
}

// UserInterestVector is an exponentially decayed profile in the article
// embedding space. It is replaced whole on every update, never partially
// mutated; Version increments with each replace.
type UserInterestVector struct {
	UserID  string    `json:"user_id"`
	Vector  []float32 `json:"vector"`
	Version int64     `json:"version"`
	Model   string    `json:"model"`
}

// ClampWeight clamps a weight into [WeightMin, WeightMax].
func ClampWeight(w float64) float64 {
	if w < WeightMin {
		return WeightMin
	}
	if w > WeightMax {
		return WeightMax
	}
	return w
}
