// Feedrank - Personalized Content Feed Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feedrank/feedrank

package feedback

import (
	"context"
	"errors"
	"fmt"

	"github.com/feedrank/feedrank/internal/config"
	"github.com/feedrank/feedrank/internal/database"
	"github.com/feedrank/feedrank/internal/engine"
	"github.com/feedrank/feedrank/internal/logging"
	"github.com/feedrank/feedrank/internal/metrics"
	"github.com/feedrank/feedrank/internal/models"
)

// Store is the persistence surface the feedback loop writes. *database.DB
// satisfies it.
type Store interface {
	AppendInteraction(ctx context.Context, ev *models.InteractionEvent) error
	IncrementStat(ctx context.Context, articleID, counter string) error
	GetArticle(ctx context.Context, articleID string) (*models.Article, error)
	GetSource(ctx context.Context, sourceID string) (*models.Source, error)
	AddTopicWeightDelta(ctx context.Context, userID, topicID string, delta float64) error
	AddSourceAffinityDelta(ctx context.Context, userID, sourceID string, delta float64) error
	GetArticleVector(ctx context.Context, articleID string) (*models.ArticleVector, error)
	GetUserVector(ctx context.Context, userID string) (*models.UserInterestVector, error)
	InsertUserVector(ctx context.Context, userID string, vec []float32, model string) error
	ReplaceUserVector(ctx context.Context, userID string, vec []float32, expectedVersion int64) error
	SetTopicWeight(ctx context.Context, userID, topicID string, weight float64) error
	VectorsForTopics(ctx context.Context, topicIDs []string, limit int) ([][]float32, error)
}

// Processor applies one interaction event's profile updates. Each update
// method is an independent consumer stage; errors are returned so the bus
// can log and count them, but stages never undo each other.
type Processor struct {
	store Store
	cfg   *config.FeedbackConfig
	model string
}

// NewProcessor creates a Processor. The model tags newly created interest
// vectors so a model migration can invalidate stale ones.
func NewProcessor(store Store, cfg *config.FeedbackConfig, model string) *Processor {
	return &Processor{store: store, cfg: cfg, model: model}
}

// ArticleExists reports whether the article is in the content index. The
// HTTP layer rejects interactions on unknown articles before recording.
func (p *Processor) ArticleExists(ctx context.Context, articleID string) (bool, error) {
	_, err := p.store.GetArticle(ctx, articleID)
	if errors.Is(err, database.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check article: %w", err)
	}
	return true, nil
}

// Record durably appends the event and applies the synchronous stat
// increments. This is the only part of the pipeline on the request path;
// everything else runs async off the bus.
func (p *Processor) Record(ctx context.Context, ev *models.InteractionEvent) error {
	if err := p.store.AppendInteraction(ctx, ev); err != nil {
		return fmt.Errorf("record interaction: %w", err)
	}
	metrics.InteractionsTotal.WithLabelValues(string(ev.Type)).Inc()

	switch ev.Type {
	case models.InteractionLike:
		return p.store.IncrementStat(ctx, ev.ArticleID, "likes")
	case models.InteractionSave:
		return p.store.IncrementStat(ctx, ev.ArticleID, "saves")
	case models.InteractionOpen:
		return p.store.IncrementStat(ctx, ev.ArticleID, "opens")
	default:
		return nil
	}
}

// UpdateTopicWeights nudges the user's weight for every topic on the
// article's source. LIKE/SAVE push up, DISLIKE/HIDE push down; OPEN does
// not move topic weights.
func (p *Processor) UpdateTopicWeights(ctx context.Context, ev *models.InteractionEvent) error {
	if !movesWeights(ev.Type) {
		return nil
	}

	src, err := p.articleSource(ctx, ev.ArticleID)
	if err != nil {
		return err
	}
	if src == nil {
		return nil
	}

	delta := weightDirection(ev.Type) * p.cfg.TopicDelta
	for _, topicID := range src.TopicIDs {
		if err := p.store.AddTopicWeightDelta(ctx, ev.UserID, topicID, delta); err != nil {
			return fmt.Errorf("topic weight update: %w", err)
		}
	}
	return nil
}

// UpdateSourceAffinity nudges the user's affinity for the article's source.
func (p *Processor) UpdateSourceAffinity(ctx context.Context, ev *models.InteractionEvent) error {
	if !movesWeights(ev.Type) {
		return nil
	}

	src, err := p.articleSource(ctx, ev.ArticleID)
	if err != nil {
		return err
	}
	if src == nil {
		return nil
	}

	delta := weightDirection(ev.Type) * p.cfg.SourceDelta
	if err := p.store.AddSourceAffinityDelta(ctx, ev.UserID, src.ID, delta); err != nil {
		return fmt.Errorf("source affinity update: %w", err)
	}
	return nil
}

// UpdateInterestVector blends the article's embedding into the user's
// interest vector with the interaction-weighted EMA. A first positive
// interaction initializes the vector from the article embedding. The
// replace is version-guarded and retried; losing every retry is reported
// so the bus can count it, the event is never reprocessed.
func (p *Processor) UpdateInterestVector(ctx context.Context, ev *models.InteractionEvent) error {
	weight := InteractionWeight(p.cfg, ev.Type, ev.Value)
	if weight == 0 {
		return nil
	}

	av, err := p.store.GetArticleVector(ctx, ev.ArticleID)
	if errors.Is(err, database.ErrNotFound) {
		// Article not embedded yet; the signal is simply lost.
		return nil
	}
	if err != nil {
		return fmt.Errorf("load article vector: %w", err)
	}

	for attempt := 0; attempt < p.cfg.VectorRetries; attempt++ {
		uv, err := p.store.GetUserVector(ctx, ev.UserID)
		if errors.Is(err, database.ErrNotFound) {
			seed := make([]float32, len(av.Vector))
			copy(seed, av.Vector)
			err = p.store.InsertUserVector(ctx, ev.UserID, engine.Normalize(seed), p.model)
			if errors.Is(err, database.ErrVersionConflict) {
				continue // concurrent initialization won, blend into it
			}
			if err == nil {
				metrics.InterestVectorUpdates.Inc()
			}
			return err
		}
		if err != nil {
			return fmt.Errorf("load user vector: %w", err)
		}

		next := engine.EMAUpdate(uv.Vector, av.Vector, p.cfg.EMAAlpha, weight)
		err = p.store.ReplaceUserVector(ctx, ev.UserID, next, uv.Version)
		if errors.Is(err, database.ErrVersionConflict) {
			continue
		}
		if err == nil {
			metrics.InterestVectorUpdates.Inc()
		}
		return err
	}

	logging.Warn().
		Str("user_id", ev.UserID).
		Str("article_id", ev.ArticleID).
		Int("retries", p.cfg.VectorRetries).
		Msg("interest vector update lost every retry")
	return fmt.Errorf("interest vector update: %w", database.ErrVersionConflict)
}

// articleSource resolves the article's source; a missing article or source
// is treated as a stale event and skipped, not an error.
func (p *Processor) articleSource(ctx context.Context, articleID string) (*models.Source, error) {
	a, err := p.store.GetArticle(ctx, articleID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load article: %w", err)
	}

	src, err := p.store.GetSource(ctx, a.SourceID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load source: %w", err)
	}
	return src, nil
}
