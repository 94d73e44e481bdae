// Feedrank - Personalized Content Feed Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feedrank/feedrank

package feedback

import (
	"context"
	"errors"
	"fmt"

	"github.com/feedrank/feedrank/internal/database"
	"github.com/feedrank/feedrank/internal/engine"
	"github.com/feedrank/feedrank/internal/logging"
)

// onboardingSeedWeight is the topic weight assigned to topics a user picks
// during onboarding.
const onboardingSeedWeight = 1.0

// vectorSeedSample bounds how many recent article embeddings seed a new
// user's interest vector.
const vectorSeedSample = 100

// SeedTopics records a user's onboarding topic picks: each chosen topic is
// set to the seed weight, and if the user has no interest vector yet one is
// initialized from the mean of recent article embeddings under those topics.
// Vector seeding is best effort; a user without one simply cold-starts on
// topic relevance alone.
func (p *Processor) SeedTopics(ctx context.Context, userID string, topicIDs []string) error {
	for _, topicID := range topicIDs {
		if err := p.store.SetTopicWeight(ctx, userID, topicID, onboardingSeedWeight); err != nil {
			return fmt.Errorf("seed topic %s: %w", topicID, err)
		}
	}

	if err := p.seedInterestVector(ctx, userID, topicIDs); err != nil {
		logging.Warn().Err(err).Str("user_id", userID).Msg("interest vector seeding failed")
	}
	return nil
}

func (p *Processor) seedInterestVector(ctx context.Context, userID string, topicIDs []string) error {
	if _, err := p.store.GetUserVector(ctx, userID); err == nil {
		return nil // already warm, interactions own the vector now
	} else if !errors.Is(err, database.ErrNotFound) {
		return err
	}

	vectors, err := p.store.VectorsForTopics(ctx, topicIDs, vectorSeedSample)
	if err != nil {
		return err
	}
	mean := engine.Mean(vectors)
	if mean == nil {
		return nil // no embedded articles under these topics yet
	}

	err = p.store.InsertUserVector(ctx, userID, mean, p.model)
	if errors.Is(err, database.ErrVersionConflict) {
		return nil // concurrent seeding won
	}
	return err
}
