// Feedrank - Personalized Content Feed Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feedrank/feedrank

package services

import (
	"context"
	"time"

	"github.com/feedrank/feedrank/internal/embedding"
	"github.com/feedrank/feedrank/internal/logging"
)

// BackfillService runs the embedding backfill on a ticker. A run that still
// fills its whole batch triggers the next run immediately so a deep backlog
// drains at the provider's rate limit instead of the ticker's cadence.
type BackfillService struct {
	backfiller *embedding.Backfiller
	interval   time.Duration
	batchSize  int
}

// NewBackfillService creates the wrapper.
func NewBackfillService(b *embedding.Backfiller, interval time.Duration, batchSize int) *BackfillService {
	return &BackfillService{backfiller: b, interval: interval, batchSize: batchSize}
}

// Serve implements suture.Service.
func (s *BackfillService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		for {
			processed, err := s.backfiller.RunOnce(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logging.Warn().Err(err).Msg("embedding backfill run failed")
				break
			}
			if processed < s.batchSize {
				break
			}
		}
	}
}

func (s *BackfillService) String() string { return "embedding-backfill" }
