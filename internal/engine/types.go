// Feedrank - Personalized Content Feed Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feedrank/feedrank

// Package engine implements the personalized ranking pipeline: candidate
// generation from four pools, multi-signal scoring, greedy diversity
// reranking, and exploration injection. Feeds are materialized per user and
// paginated by cursor.
package engine

import (
	"time"

	"github.com/feedrank/feedrank/internal/models"
)

// Candidate pool tags carried on every ranked item for the impression ledger.
const (
	PoolSubscribed = "SUBSCRIBED"
	PoolTopic      = "TOPIC"
	PoolVector     = "VECTOR"
	PoolTrending   = "TRENDING"
	PoolExplore    = "EXPLORE"
)

// VectorTagThreshold is the minimum cosine similarity for a candidate to
// carry the VECTOR pool tag. Lower similarities still feed the score.
const VectorTagThreshold = 0.3

// TrendingTagThreshold is the minimum quality score for the TRENDING tag.
const TrendingTagThreshold = 0.5

// Candidate is one scorable article with everything scoring reads.
type Candidate struct {
	Article      models.Article
	SourceTitle  string
	SourceURL    string
	Preinstalled bool
	Topics       []models.Topic
	Stats        models.ArticleStats

	// Subscribed is true when the user follows the article's source.
	Subscribed bool

	// SourceAffinity is the user's learned affinity for the source, in [-3, 3].
	SourceAffinity float64

	// VectorSimilarity is cosine similarity against the user's interest
	// vector; 0 when either vector is missing.
	VectorSimilarity float64

	// Vector is the article's content embedding, hydrated per request for
	// the diversity reranker. Empty when the article is not embedded yet.
	Vector []float32

	// Seen is true when the article was shown inside the seen window.
	Seen bool
}

// ScoreBreakdown records every signal that fed a final score, returned with
// each item so clients can explain the ranking.
type ScoreBreakdown struct {
	TopicRelevance   float64 `json:"topic_relevance"`
	VectorSimilarity float64 `json:"vector_similarity"`
	Freshness        float64 `json:"freshness"`
	Subscribed       float64 `json:"subscribed"`
	SourceAffinity   float64 `json:"source_affinity"`
	QualityScore     float64 `json:"quality_score"`
	SeenPenalty      float64 `json:"seen_penalty"`
}

// RankedArticle is one item in a materialized feed.
type RankedArticle struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	URL         string         `json:"url"`
	Summary     string         `json:"summary,omitempty"`
	Author      string         `json:"author,omitempty"`
	PublishedAt time.Time      `json:"published_at"`
	Source      RankedSource   `json:"source"`
	Topics      []models.Topic `json:"topics"`

	Score            float64        `json:"score"`
	ScoreBreakdown   ScoreBreakdown `json:"score_breakdown"`
	CandidateSources []string       `json:"candidate_sources"`
}

// RankedSource is the source summary embedded in a ranked item.
type RankedSource struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	SiteURL string `json:"site_url,omitempty"`
}

// FeedPage is one page of a materialized feed.
type FeedPage struct {
	Items            []RankedArticle `json:"items"`
	NextCursor       string          `json:"next_cursor,omitempty"`
	FeedRequestID    string          `json:"feed_request_id"`
	AlgorithmVersion string          `json:"algorithm_version"`
}

// MaterializedFeed is the full ranked list stored between page fetches.
type MaterializedFeed struct {
	Items            []RankedArticle `json:"items"`
	FeedRequestID    string          `json:"feed_request_id"`
	AlgorithmVersion string          `json:"algorithm_version"`
	RankedAt         time.Time       `json:"ranked_at"`
}

// HasTag reports whether a ranked item carries the given pool tag.
func (r *RankedArticle) HasTag(tag string) bool {
	for _, t := range r.CandidateSources {
		if t == tag {
			return true
		}
	}
	return false
}
