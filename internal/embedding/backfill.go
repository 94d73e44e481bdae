// Feedrank - Personalized Content Feed Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feedrank/feedrank

package embedding

import (
	"context"
	"strings"
	"time"

	"github.com/feedrank/feedrank/internal/config"
	"github.com/feedrank/feedrank/internal/logging"
	"github.com/feedrank/feedrank/internal/models"
)

// Store is the persistence surface the backfill reads and writes.
// *database.DB satisfies it.
type Store interface {
	ArticlesMissingVectors(ctx context.Context, cutoff time.Time, limit int) ([]string, error)
	GetArticle(ctx context.Context, articleID string) (*models.Article, error)
	UpsertArticleVector(ctx context.Context, av *models.ArticleVector) error
}

// Backfiller embeds recent articles that have no stored vector yet.
type Backfiller struct {
	store    Store
	provider *Provider
	cfg      *config.EmbeddingConfig

	// maxAgeDays mirrors the candidate recency cutoff; older articles never
	// enter any pool, so embedding them is wasted spend.
	maxAgeDays int
}

// NewBackfiller creates a Backfiller.
func NewBackfiller(store Store, provider *Provider, cfg *config.EmbeddingConfig, maxAgeDays int) *Backfiller {
	return &Backfiller{store: store, provider: provider, cfg: cfg, maxAgeDays: maxAgeDays}
}

// RunOnce embeds one batch. Per-article failures are logged and skipped so
// one poison article cannot stall the drain. Returns how many articles were
// embedded.
func (b *Backfiller) RunOnce(ctx context.Context) (int, error) {
	cutoff := time.Now().AddDate(0, 0, -b.maxAgeDays)
	ids, err := b.store.ArticlesMissingVectors(ctx, cutoff, b.cfg.BackfillBatch)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return processed, ctx.Err()
		}
		if err := b.embedArticle(ctx, id); err != nil {
			logging.Warn().Err(err).Str("article_id", id).Msg("article embedding failed")
			continue
		}
		processed++
	}

	if processed > 0 {
		logging.Debug().Int("processed", processed).Int("batch", len(ids)).Msg("embedding backfill batch done")
	}
	return processed, nil
}

func (b *Backfiller) embedArticle(ctx context.Context, articleID string) error {
	a, err := b.store.GetArticle(ctx, articleID)
	if err != nil {
		return err
	}

	parts := make([]string, 0, 2)
	if a.Title != "" {
		parts = append(parts, a.Title)
	}
	if a.Summary != "" {
		parts = append(parts, a.Summary)
	}
	text := strings.Join(parts, ". ")
	if text == "" {
		return nil // nothing to embed, leave it for a summary back-fill
	}

	vec, err := b.provider.Embed(ctx, text)
	if err != nil {
		return err
	}

	return b.store.UpsertArticleVector(ctx, &models.ArticleVector{
		ArticleID: articleID,
		Vector:    vec,
		Model:     b.provider.Model(),
	})
}
