// Feedrank - Personalized Content Feed Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feedrank/feedrank

package engine

import (
	"math"
	"sort"
	"time"

	"github.com/feedrank/feedrank/internal/config"
	"github.com/feedrank/feedrank/internal/models"
)

// scorer computes per-candidate scores with the coefficients from the
// injected config. The relevance term takes the stronger of topic relevance
// and vector similarity so cold-start users (topics only) and warm users
// (vectors) score on the same scale.
type scorer struct {
	cfg *config.RankingConfig
	now time.Time
}

func newScorer(cfg *config.RankingConfig, now time.Time) *scorer {
	return &scorer{cfg: cfg, now: now}
}

// score ranks one candidate against the user state and returns the final
// score with its full breakdown.
func (s *scorer) score(c *Candidate, st *userState) (float64, ScoreBreakdown) {
	b := ScoreBreakdown{
		TopicRelevance:   topicRelevance(c.Topics, st.topicWeights),
		VectorSimilarity: c.VectorSimilarity,
		Freshness:        s.freshness(c),
		SourceAffinity:   c.SourceAffinity,
	}
	if c.Subscribed {
		b.Subscribed = 1
	}
	if c.Stats.HasQuality {
		b.QualityScore = c.Stats.QualityScore
	}
	if c.Seen {
		b.SeenPenalty = 1
	}

	score := s.cfg.RelevanceWeight*math.Max(b.TopicRelevance, b.VectorSimilarity) +
		s.cfg.FreshnessWeight*b.Freshness +
		s.cfg.SubscribedWeight*b.Subscribed +
		s.cfg.SourceAffinityWeight*clamp01(b.SourceAffinity) +
		s.cfg.QualityWeight*b.QualityScore -
		s.cfg.SeenPenaltyWeight*b.SeenPenalty
	return score, b
}

// freshness decays exponentially with age. Articles whose publish date was
// estimated during ingestion get a flat neutral value instead, so estimation
// noise cannot masquerade as recency.
func (s *scorer) freshness(c *Candidate) float64 {
	if c.Article.DateEstimated {
		return s.cfg.EstimatedDateFreshness
	}
	ageHours := s.now.Sub(c.Article.PublishedAt).Hours()
	if ageHours < 0 {
		ageHours = 0
	}
	return math.Exp(-ageHours / s.cfg.FreshnessTauHours)
}

// topicRelevance averages the strictly positive user weights across the
// candidate's topics. Negative weights exclude a topic from the average
// rather than dragging it down; DISLIKE already acts through its own deltas.
func topicRelevance(topics []models.Topic, weights map[string]float64) float64 {
	var sum float64
	var n int
	for _, t := range topics {
		if w := weights[t.ID]; w > 0 {
			sum += w
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// poolTags derives the candidate-source tags from the scored signals.
func poolTags(c *Candidate, b *ScoreBreakdown) []string {
	var tags []string
	if c.Subscribed {
		tags = append(tags, PoolSubscribed)
	}
	if b.TopicRelevance > 0 {
		tags = append(tags, PoolTopic)
	}
	if b.VectorSimilarity > VectorTagThreshold {
		tags = append(tags, PoolVector)
	}
	if b.QualityScore > TrendingTagThreshold {
		tags = append(tags, PoolTrending)
	}
	return tags
}

// scoreAll scores every candidate and returns them ordered by descending
// score. Ties keep the candidate-pool order, which is stable across retries
// of the same materialization.
func (s *scorer) scoreAll(candidates []Candidate, st *userState) []scoredCandidate {
	out := make([]scoredCandidate, len(candidates))
	for i := range candidates {
		score, breakdown := s.score(&candidates[i], st)
		out[i] = scoredCandidate{
			Candidate: &candidates[i],
			Score:     score,
			Breakdown: breakdown,
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// scoredCandidate pairs a candidate with its computed score.
type scoredCandidate struct {
	Candidate *Candidate
	Score     float64
	Breakdown ScoreBreakdown
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
