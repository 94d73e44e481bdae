// Feedrank - Personalized Content Feed Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feedrank/feedrank

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, in order.
// The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/feedrank/config.yaml",
	"/etc/feedrank/config.yml",
}

// ConfigPathEnvVar overrides the config file search path.
const ConfigPathEnvVar = "CONFIG_PATH"

// envPrefix namespaces environment overrides, e.g. FEEDRANK_SERVER__PORT=9000.
const envPrefix = "FEEDRANK_"

// defaultConfig returns a Config with all defaults applied. Config file and
// env vars override these.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8478,
			ShutdownTimeout: 10 * time.Second,
			RequestTimeout:  15 * time.Second,
			CORSOrigins:     []string{},
		},
		Database: DatabaseConfig{
			Path:         "data/feedrank.db",
			Threads:      0,
			MaxOpenConns: 8,
		},
		FeedStore: FeedStoreConfig{
			Path: "data/feedstore",
			TTL:  30 * time.Minute,
		},
		Ranking: RankingConfig{
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
		},
		Feedback: FeedbackConfig{
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
		},
		Embedding: EmbeddingConfig{
			Enabled:           false,
			Model:             "text-embedding-3-small",
			Dimensions:        1536,
			RequestsPerSecond: 5,
			BackfillInterval:  5 * time.Minute,
			BackfillBatch:     50,
		},
		Auth: AuthConfig{},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file, and
// environment variables, then validates the result.
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: struct defaults.
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	// Layer 2: optional YAML file.
	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// Layer 3: FEEDRANK_ environment variables. Double underscore separates
	// nesting levels so snake_case keys survive: FEEDRANK_SERVER__PORT maps
	// to server.port, FEEDRANK_FEED_STORE__TTL to feed_store.ttl.
	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// findConfigFile returns the first existing config file path, honoring the
// CONFIG_PATH override.
func findConfigFile() string {
	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		return path
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
