// Feedrank - Personalized Content Feed Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feedrank/feedrank

package engine

import (
	"math"
	"testing"
	"time"

	"github.com/feedrank/feedrank/internal/config"
	"github.com/feedrank/feedrank/internal/models"
)

func testRankingConfig() *config.RankingConfig {
	return &config.RankingConfig{
		AlgorithmVersion:       "rank-v2-hybrid",
		PageSize:               20,
		MaxAgeDays:             30,
		CandidateCap:           500,
		VectorTopK:             200,
		TrendingCap:            50,
		TrendingWindowDays:     7,
		FreshnessTauHours:      48,
		EstimatedDateFreshness: 0.3,
		RelevanceWeight:        1.5,
		FreshnessWeight:        0.8,
		SubscribedWeight:       0.6,
		SourceAffinityWeight:   0.4,
		QualityWeight:          0.3,
		SeenPenaltyWeight:      1.0,
		MMRLambda:              0.8,
		SameSourcePenalty:      0.8,
		TopicOverlapWeight:     0.5,
		RerankLimit:            100,
		SourceCapTop20:         2,
		ExploreRate:            0.15,
		ExplorePoolSize:        20,
		ExploreScore:           0.5,
		SeenWindow:             24 * time.Hour,
	}
}

func TestTopicRelevance(t *testing.T) {
	topics := []models.Topic{{ID: "t1"}, {ID: "t2"}, {ID: "t3"}}

	tests := []struct {
		name    string
		weights map[string]float64
		want    float64
	}{
		{name: "no weights", weights: map[string]float64{}, want: 0},
		{name: "single positive", weights: map[string]float64{"t1": 1.0}, want: 1.0},
		{
			name:    "average of positives only",
			weights: map[string]float64{"t1": 1.0, "t2": -0.5, "t3": 0.6},
			want:    0.8,
		},
		{
			name:    "all negative is zero",
			weights: map[string]float64{"t1": -1, "t2": -2},
			want:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := topicRelevance(topics, tt.weights)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("topicRelevance() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScorerFreshness(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s := newScorer(testRankingConfig(), now)

	tests := []struct {
		name string
		c    Candidate
		want float64
	}{
		{
			name: "just published",
			c:    Candidate{Article: models.Article{PublishedAt: now}},
			want: 1,
		},
		{
			name: "one tau old",
			c:    Candidate{Article: models.Article{PublishedAt: now.Add(-48 * time.Hour)}},
			want: math.Exp(-1),
		},
		{
			name: "estimated date gets flat value",
			c:    Candidate{Article: models.Article{PublishedAt: now, DateEstimated: true}},
			want: 0.3,
		},
		{
			name: "future date treated as now",
			c:    Candidate{Article: models.Article{PublishedAt: now.Add(2 * time.Hour)}},
			want: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.freshness(&tt.c)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("freshness() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScorerScore(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s := newScorer(testRankingConfig(), now)

	baseArticle := models.Article{ID: "a1", SourceID: "s1", PublishedAt: now}

	t.Run("full formula", func(t *testing.T) {
		c := Candidate{
			Article:          baseArticle,
			Topics:           []models.Topic{{ID: "t1"}},
			Subscribed:       true,
			SourceAffinity:   0.5,
			VectorSimilarity: 0.2,
			Stats:            models.ArticleStats{QualityScore: 0.9, HasQuality: true},
			Seen:             true,
		}
		st := &userState{topicWeights: map[string]float64{"t1": 0.6}}

		got, b := s.score(&c, st)

		// relevance uses max(topic 0.6, vector 0.2) = 0.6
		want := 1.5*0.6 + 0.8*1 + 0.6*1 + 0.4*0.5 + 0.3*0.9 - 1.0*1
		if math.Abs(got-want) > 1e-9 {
			t.Errorf("score = %v, want %v", got, want)
		}
		if b.TopicRelevance != 0.6 || b.SeenPenalty != 1 || b.Subscribed != 1 {
			t.Errorf("unexpected breakdown: %+v", b)
		}
	})

	t.Run("vector similarity wins relevance when larger", func(t *testing.T) {
		c := Candidate{
			Article:          baseArticle,
			Topics:           []models.Topic{{ID: "t1"}},
			VectorSimilarity: 0.9,
		}
		st := &userState{topicWeights: map[string]float64{"t1": 0.2}}

		got, _ := s.score(&c, st)
		want := 1.5*0.9 + 0.8*1
		if math.Abs(got-want) > 1e-9 {
			t.Errorf("score = %v, want %v", got, want)
		}
	})

	t.Run("affinity clamped to [0,1] in score", func(t *testing.T) {
		high := Candidate{Article: baseArticle, SourceAffinity: 2.5}
		neg := Candidate{Article: baseArticle, SourceAffinity: -2}
		st := &userState{topicWeights: map[string]float64{}}

		gotHigh, bHigh := s.score(&high, st)
		gotNeg, _ := s.score(&neg, st)

		if math.Abs(gotHigh-(0.8*1+0.4*1)) > 1e-9 {
			t.Errorf("high affinity score = %v", gotHigh)
		}
		if math.Abs(gotNeg-0.8*1) > 1e-9 {
			t.Errorf("negative affinity score = %v", gotNeg)
		}
		// Breakdown keeps the raw value for explainability.
		if bHigh.SourceAffinity != 2.5 {
			t.Errorf("breakdown affinity = %v, want raw 2.5", bHigh.SourceAffinity)
		}
	})

	t.Run("missing quality scores as zero", func(t *testing.T) {
		c := Candidate{
			Article: baseArticle,
			Stats:   models.ArticleStats{QualityScore: 0.9, HasQuality: false},
		}
		st := &userState{topicWeights: map[string]float64{}}

		got, b := s.score(&c, st)
		if b.QualityScore != 0 {
			t.Errorf("breakdown quality = %v, want 0", b.QualityScore)
		}
		if math.Abs(got-0.8) > 1e-9 {
			t.Errorf("score = %v, want freshness only", got)
		}
	})
}

func TestPoolTags(t *testing.T) {
	tests := []struct {
		name string
		c    Candidate
		b    ScoreBreakdown
		want []string
	}{
		{
			name: "subscribed and topic",
			c:    Candidate{Subscribed: true},
			b:    ScoreBreakdown{TopicRelevance: 0.4},
			want: []string{PoolSubscribed, PoolTopic},
		},
		{
			name: "vector above threshold",
			b:    ScoreBreakdown{VectorSimilarity: 0.31},
			want: []string{PoolVector},
		},
		{
			name: "vector at threshold excluded",
			b:    ScoreBreakdown{VectorSimilarity: 0.3},
			want: nil,
		},
		{
			name: "trending by quality",
			b:    ScoreBreakdown{QualityScore: 0.6},
			want: []string{PoolTrending},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := poolTags(&tt.c, &tt.b)
			if len(got) != len(tt.want) {
				t.Fatalf("poolTags() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("poolTags() = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestScoreAllOrdering(t *testing.T) {
	now := time.Now()
	s := newScorer(testRankingConfig(), now)
	st := &userState{topicWeights: map[string]float64{}}

	candidates := []Candidate{
		{Article: models.Article{ID: "old", SourceID: "s1", PublishedAt: now.Add(-200 * time.Hour)}},
		{Article: models.Article{ID: "fresh", SourceID: "s2", PublishedAt: now}, Subscribed: true},
		{Article: models.Article{ID: "mid", SourceID: "s3", PublishedAt: now.Add(-24 * time.Hour)}},
	}

	scored := s.scoreAll(candidates, st)

	if scored[0].Candidate.Article.ID != "fresh" {
		t.Errorf("top item = %s, want fresh", scored[0].Candidate.Article.ID)
	}
	for i := 1; i < len(scored); i++ {
		if scored[i].Score > scored[i-1].Score {
			t.Errorf("not sorted descending at %d: %v > %v", i, scored[i].Score, scored[i-1].Score)
		}
	}
}
