// Feedrank - Personalized Content Feed Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feedrank/feedrank

// Package config provides layered application configuration: struct defaults,
// an optional YAML file, and FEEDRANK_-prefixed environment variables, merged
// in that order via koanf.
package config

import (
	"fmt"
	"time"
)

// Config is the root application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	FeedStore FeedStoreConfig `koanf:"feed_store"`
	Ranking   RankingConfig   `koanf:"ranking"`
	Feedback  FeedbackConfig  `koanf:"feedback"`
	Embedding EmbeddingConfig `koanf:"embedding"`
	Auth      AuthConfig      `koanf:"auth"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the listen address. Default: 0.0.0.0
	Host string `koanf:"host"`

	// Port is the listen port. Default: 8478
	Port int `koanf:"port"`

	// ShutdownTimeout bounds graceful shutdown. Default: 10s
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// RequestTimeout bounds a single feed request. Default: 15s
	RequestTimeout time.Duration `koanf:"request_timeout"`

	// CORSOrigins lists allowed origins for browser clients.
	CORSOrigins []string `koanf:"cors_origins"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	// Path is the database file path. ":memory:" for tests. Default: data/feedrank.db
	Path string `koanf:"path"`

	// Threads is the DuckDB thread count. 0 means NumCPU.
	Threads int `koanf:"threads"`

	// MaxOpenConns bounds the sql.DB pool. Default: 8
	MaxOpenConns int `koanf:"max_open_conns"`
}

// FeedStoreConfig holds the materialized-feed store settings.
type FeedStoreConfig struct {
	// Path is the badger directory. Empty means in-memory.
	Path string `koanf:"path"`

	// TTL is how long a materialized ranked list stays valid. Default: 30m
	TTL time.Duration `koanf:"ttl"`
}

// RankingConfig holds the tunable scoring and selection constants. Clamping
// ranges and the source cap semantics are fixed; only the coefficients are
// configurable.
type RankingConfig struct {
	// AlgorithmVersion tags every scoring pass and impression row.
	AlgorithmVersion string `koanf:"algorithm_version"`

	// PageSize is the fixed feed page size. Default: 20
	PageSize int `koanf:"page_size"`

	// MaxAgeDays is the candidate recency cutoff. Default: 30
	MaxAgeDays int `koanf:"max_age_days"`

	// CandidateCap bounds the merged candidate pool. Default: 500
	CandidateCap int `koanf:"candidate_cap"`

	// VectorTopK bounds the vector-similarity pool. Default: 200
	VectorTopK int `koanf:"vector_top_k"`

	// TrendingCap bounds the trending pool. Default: 50
	TrendingCap int `koanf:"trending_cap"`

	// TrendingWindowDays is the trailing engagement window. Default: 7
	TrendingWindowDays int `koanf:"trending_window_days"`

	// FreshnessTauHours is the freshness decay constant. Default: 48
	FreshnessTauHours float64 `koanf:"freshness_tau_hours"`

	// EstimatedDateFreshness is the neutral freshness for articles whose
	// publish date was estimated. Default: 0.3
	EstimatedDateFreshness float64 `koanf:"estimated_date_freshness"`

	// Scoring coefficients for the hybrid linear score.
	// Defaults: 1.5, 0.8, 0.6, 0.4, 0.3, 1.0.
	RelevanceWeight      float64 `koanf:"relevance_weight"`
	FreshnessWeight      float64 `koanf:"freshness_weight"`
	SubscribedWeight     float64 `koanf:"subscribed_weight"`
	SourceAffinityWeight float64 `koanf:"source_affinity_weight"`
	QualityWeight        float64 `koanf:"quality_weight"`
	SeenPenaltyWeight    float64 `koanf:"seen_penalty_weight"`

	// MMRLambda balances relevance vs. diversity. Default: 0.8
	MMRLambda float64 `koanf:"mmr_lambda"`

	// SameSourcePenalty is the redundancy penalty for a source already
	// selected, used when embeddings are unavailable. Default: 0.8
	SameSourcePenalty float64 `koanf:"same_source_penalty"`

	// TopicOverlapWeight scales the topic-overlap redundancy proxy. Default: 0.5
	TopicOverlapWeight float64 `koanf:"topic_overlap_weight"`

	// RerankLimit is how many items the greedy selection emits. Default: 100
	RerankLimit int `koanf:"rerank_limit"`

	// SourceCapTop20 is the per-source cap within the first 20 positions. Default: 2
	SourceCapTop20 int `koanf:"source_cap_top20"`

	// ExploreRate controls exploration cadence (one item per round(1/rate)
	// positions). Default: 0.15
	ExploreRate float64 `koanf:"explore_rate"`

	// ExplorePoolSize is the exploration pool size. Default: 20
	ExplorePoolSize int `koanf:"explore_pool_size"`

	// ExploreScore is the fixed score on exploration items. Default: 0.5
	ExploreScore float64 `koanf:"explore_score"`

	// SeenWindow is the recent-impression penalty window. Default: 24h
	SeenWindow time.Duration `koanf:"seen_window"`
}

// FeedbackConfig holds the online-learning constants, including the full
// interaction weight table for interest-vector updates.
type FeedbackConfig struct {
	// TopicDelta is the per-interaction topic weight delta. Default: 0.2
	TopicDelta float64 `koanf:"topic_delta"`

	// SourceDelta is the per-interaction source affinity delta. Default: 0.3
	SourceDelta float64 `koanf:"source_delta"`

	// EMAAlpha is the interest-vector learning rate. Default: 0.05
	EMAAlpha float64 `koanf:"ema_alpha"`

	// VectorRetries bounds the compare-and-set loop on vector replace. Default: 5
	VectorRetries int `koanf:"vector_retries"`

	// Signed vector-update weights per interaction type.
	// Defaults: 3.0, 2.0, -2.0, -3.0.
	SaveWeight    float64 `koanf:"save_weight"`
	LikeWeight    float64 `koanf:"like_weight"`
	DislikeWeight float64 `koanf:"dislike_weight"`
	HideWeight    float64 `koanf:"hide_weight"`

	// OPEN weights by dwell bucket, and the bucket thresholds in seconds.
	// Defaults: 1.5 at >=60s, 1.0 at >=10s, 0.2 below.
	OpenLongWeight     float64 `koanf:"open_long_weight"`
	OpenMediumWeight   float64 `koanf:"open_medium_weight"`
	OpenShortWeight    float64 `koanf:"open_short_weight"`
	DwellLongSeconds   float64 `koanf:"dwell_long_seconds"`
	DwellMediumSeconds float64 `koanf:"dwell_medium_seconds"`
}

// EmbeddingConfig holds the external embedding provider settings.
type EmbeddingConfig struct {
	// Enabled controls whether the provider is wired at all.
	Enabled bool `koanf:"enabled"`

	// APIKey authenticates against the provider.
	APIKey string `koanf:"api_key"`

	// Model is the embedding model. Default: text-embedding-3-small
	Model string `koanf:"model"`

	// Dimensions is the fixed vector dimension. Default: 1536
	Dimensions int `koanf:"dimensions"`

	// RequestsPerSecond limits outbound embedding calls. Default: 5
	RequestsPerSecond float64 `koanf:"requests_per_second"`

	// BackfillInterval is the article-embedding backfill cadence. Default: 5m
	BackfillInterval time.Duration `koanf:"backfill_interval"`

	// BackfillBatch is the per-run backfill batch size. Default: 50
	BackfillBatch int `koanf:"backfill_batch"`
}

// AuthConfig holds token verification settings. Session management is
// external; the engine only verifies and reads the subject claim.
type AuthConfig struct {
	// JWTSecret is the HMAC secret for bearer token verification.
	JWTSecret string `koanf:"jwt_secret"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration for errors.
//
//nolint:gocyclo // validation needs to check many fields
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in [1, 65535], got %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}
	if c.FeedStore.TTL <= 0 {
		return fmt.Errorf("feed_store.ttl must be positive, got %v", c.FeedStore.TTL)
	}

	r := &c.Ranking
	if r.PageSize < 1 {
		return fmt.Errorf("ranking.page_size must be positive, got %d", r.PageSize)
	}
	if r.CandidateCap < r.PageSize {
		return fmt.Errorf("ranking.candidate_cap must be >= page_size, got %d < %d", r.CandidateCap, r.PageSize)
	}
	if r.MMRLambda < 0 || r.MMRLambda > 1 {
		return fmt.Errorf("ranking.mmr_lambda must be in [0, 1], got %f", r.MMRLambda)
	}
	if r.ExploreRate < 0 || r.ExploreRate > 1 {
		return fmt.Errorf("ranking.explore_rate must be in [0, 1], got %f", r.ExploreRate)
	}
	if r.FreshnessTauHours <= 0 {
		return fmt.Errorf("ranking.freshness_tau_hours must be positive, got %f", r.FreshnessTauHours)
	}
	if r.SourceCapTop20 < 1 {
		return fmt.Errorf("ranking.source_cap_top20 must be positive, got %d", r.SourceCapTop20)
	}
	if r.SeenWindow <= 0 {
		return fmt.Errorf("ranking.seen_window must be positive, got %v", r.SeenWindow)
	}
	if r.AlgorithmVersion == "" {
		return fmt.Errorf("ranking.algorithm_version must not be empty")
	}

	f := &c.Feedback
	if f.EMAAlpha <= 0 || f.EMAAlpha >= 1 {
		return fmt.Errorf("feedback.ema_alpha must be in (0, 1), got %f", f.EMAAlpha)
	}
	if f.TopicDelta <= 0 {
		return fmt.Errorf("feedback.topic_delta must be positive, got %f", f.TopicDelta)
	}
	if f.SourceDelta <= 0 {
		return fmt.Errorf("feedback.source_delta must be positive, got %f", f.SourceDelta)
	}
	if f.VectorRetries < 1 {
		return fmt.Errorf("feedback.vector_retries must be positive, got %d", f.VectorRetries)
	}
	if f.DwellMediumSeconds <= 0 || f.DwellLongSeconds <= f.DwellMediumSeconds {
		return fmt.Errorf("feedback dwell thresholds must satisfy 0 < medium < long, got %f, %f",
			f.DwellMediumSeconds, f.DwellLongSeconds)
	}

	if c.Embedding.Enabled {
		if c.Embedding.APIKey == "" {
			return fmt.Errorf("embedding.api_key required when embedding is enabled")
		}
		if c.Embedding.Dimensions < 1 {
			return fmt.Errorf("embedding.dimensions must be positive, got %d", c.Embedding.Dimensions)
		}
	}

	return nil
}
