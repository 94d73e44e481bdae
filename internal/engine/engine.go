// Feedrank - Personalized Content Feed Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feedrank/feedrank

package engine

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/feedrank/feedrank/internal/cache"
	"github.com/feedrank/feedrank/internal/config"
	"github.com/feedrank/feedrank/internal/logging"
	"github.com/feedrank/feedrank/internal/metrics"
)

// FeedStore persists materialized ranked lists between page fetches. The
// badger-backed implementation lives in internal/feedstore.
type FeedStore interface {
	Put(userID string, feed *MaterializedFeed) error
	Get(userID string) (*MaterializedFeed, error)
	Delete(userID string) error
}

// Engine is the ranking pipeline entry point.
type Engine struct {
	cfg       *config.RankingConfig
	store     Store
	feedStore FeedStore

	gen      *generator
	reranker *reranker
	injector *injector
}

// New creates an Engine. The cache holds cross-user state (trending IDs);
// the rng drives exploration shuffling.
func New(cfg *config.RankingConfig, store Store, feedStore FeedStore, c *cache.Cache, rng *rand.Rand) *Engine {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec // shuffle order is not security sensitive
	}
	return &Engine{
		cfg:       cfg,
		store:     store,
		feedStore: feedStore,
		gen:       newGenerator(store, cfg, c),
		reranker:  newReranker(cfg),
		injector:  newInjector(cfg, rng),
	}
}

// GetFeed returns one page of the user's personalized feed.
//
// An empty cursor starts a fresh materialization: generate, score, rerank,
// inject, store the full list, return the first page. A cursor resumes the
// stored list from the position after the cursor item; a missing list or
// unknown cursor falls back to a fresh materialization, so a stale cursor
// degrades to page one rather than erroring.
func (e *Engine) GetFeed(ctx context.Context, userID, cursor string) (*FeedPage, error) {
	start := time.Now()
	defer func() {
		metrics.FeedRequestDuration.Observe(time.Since(start).Seconds())
	}()

	if cursor != "" {
		feed, err := e.feedStore.Get(userID)
		if err == nil && feed != nil {
			if idx := indexOf(feed.Items, cursor); idx >= 0 {
				metrics.FeedStoreHits.Inc()
				return e.page(feed, idx+1), nil
			}
		}
		metrics.FeedStoreMisses.Inc()
	}

	feed, err := e.materialize(ctx, userID)
	if err != nil {
		return nil, err
	}
	return e.page(feed, 0), nil
}

// Materialized returns the user's stored feed when it matches the given
// feed request ID, or nil. Impression ingestion uses it to attach the pool
// tags and algorithm version the articles were actually ranked under.
func (e *Engine) Materialized(userID, feedRequestID string) *MaterializedFeed {
	feed, err := e.feedStore.Get(userID)
	if err != nil || feed == nil || feed.FeedRequestID != feedRequestID {
		return nil
	}
	return feed
}

// Invalidate drops the user's materialized feed so the next request ranks
// fresh. Called after onboarding changes the user's interest profile.
func (e *Engine) Invalidate(userID string) {
	if err := e.feedStore.Delete(userID); err != nil {
		logging.Warn().Err(err).Str("user_id", userID).Msg("feed invalidation failed")
	}
}

// materialize runs the full pipeline and stores the result.
func (e *Engine) materialize(ctx context.Context, userID string) (*MaterializedFeed, error) {
	st := e.gen.loadUserState(ctx, userID)

	candidates, err := e.gen.candidates(ctx, userID, st)
	if err != nil {
		return nil, err
	}

	scored := newScorer(e.cfg, time.Now()).scoreAll(candidates, st)
	selected := e.reranker.rerank(scored)

	ranked := make([]RankedArticle, 0, len(selected))
	selectedSources := make(map[string]struct{}, len(selected))
	for i := range selected {
		ranked = append(ranked, toRanked(&selected[i]))
		selectedSources[selected[i].Candidate.Article.SourceID] = struct{}{}
	}

	pool := e.gen.explorationPool(ctx, userID, st, selectedSources)
	items := e.injector.inject(ranked, pool)

	feed := &MaterializedFeed{
		Items:            items,
		FeedRequestID:    uuid.NewString(),
		AlgorithmVersion: e.cfg.AlgorithmVersion,
		RankedAt:         time.Now(),
	}
	if err := e.feedStore.Put(userID, feed); err != nil {
		// The page is still servable from memory; only pagination suffers.
		logging.Warn().Err(err).Str("user_id", userID).Msg("feed materialization store failed")
	}

	logging.Debug().
		Str("user_id", userID).
		Str("feed_request_id", feed.FeedRequestID).
		Int("candidates", len(candidates)).
		Int("items", len(items)).
		Msg("feed materialized")
	return feed, nil
}

// page slices one fixed-size page out of a materialized feed. The next
// cursor is the last item's ID when a full page was returned.
func (e *Engine) page(feed *MaterializedFeed, start int) *FeedPage {
	if start > len(feed.Items) {
		start = len(feed.Items)
	}
	end := start + e.cfg.PageSize
	if end > len(feed.Items) {
		end = len(feed.Items)
	}

	page := &FeedPage{
		Items:            feed.Items[start:end],
		FeedRequestID:    feed.FeedRequestID,
		AlgorithmVersion: feed.AlgorithmVersion,
	}
	if len(page.Items) == e.cfg.PageSize && end < len(feed.Items) {
		page.NextCursor = page.Items[len(page.Items)-1].ID
	}
	return page
}

func indexOf(items []RankedArticle, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}

// toRanked converts a selected scored candidate into the wire shape.
func toRanked(sc *scoredCandidate) RankedArticle {
	c := sc.Candidate
	return RankedArticle{
		ID:          c.Article.ID,
		Title:       c.Article.Title,
		URL:         c.Article.URL,
		Summary:     c.Article.Summary,
		Author:      c.Article.Author,
		PublishedAt: c.Article.PublishedAt,
		Source: RankedSource{
			ID:      c.Article.SourceID,
			Title:   c.SourceTitle,
			SiteURL: c.SourceURL,
		},
		Topics:           c.Topics,
		Score:            sc.Score,
		ScoreBreakdown:   sc.Breakdown,
		CandidateSources: poolTags(c, &sc.Breakdown),
	}
}
