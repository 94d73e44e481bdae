// Feedrank - Personalized Content Feed Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feedrank/feedrank

package services

import (
	"context"
	"time"

	"github.com/feedrank/feedrank/internal/logging"
)

// QualityRecomputer refreshes derived article stats. *database.DB satisfies
// it.
type QualityRecomputer interface {
	RecomputeQualityScores(ctx context.Context, minImpressions int64) error
}

// minQualityImpressions is the impression floor below which an article keeps
// no quality score and scores on the neutral default.
const minQualityImpressions = 20

// StatsService periodically recomputes CTR and quality scores.
type StatsService struct {
	store    QualityRecomputer
	interval time.Duration
}

// NewStatsService creates the wrapper.
func NewStatsService(store QualityRecomputer, interval time.Duration) *StatsService {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &StatsService{store: store, interval: interval}
}

// Serve implements suture.Service.
func (s *StatsService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.store.RecomputeQualityScores(ctx, minQualityImpressions); err != nil {
				logging.Warn().Err(err).Msg("quality score recompute failed")
			}
		}
	}
}

func (s *StatsService) String() string { return "stats-recompute" }
