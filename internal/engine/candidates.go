// Feedrank - Personalized Content Feed Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feedrank/feedrank

package engine

import (
	"context"
	"time"

	"github.com/feedrank/feedrank/internal/cache"
	"github.com/feedrank/feedrank/internal/config"
	"github.com/feedrank/feedrank/internal/database"
	"github.com/feedrank/feedrank/internal/logging"
	"github.com/feedrank/feedrank/internal/metrics"
	"github.com/feedrank/feedrank/internal/models"
)

// Store is the persistence surface the engine reads. *database.DB satisfies
// it; tests substitute a fixture store.
type Store interface {
	TopicWeights(ctx context.Context, userID string) (map[string]float64, error)
	SourceAffinities(ctx context.Context, userID string) (map[string]float64, error)
	Subscriptions(ctx context.Context, userID string) (map[string]struct{}, error)
	HiddenSources(ctx context.Context, userID string) (map[string]struct{}, error)
	HiddenArticles(ctx context.Context, userID string) (map[string]struct{}, error)
	RecentlySeen(ctx context.Context, userID string, window time.Duration) (map[string]struct{}, error)
	GetUserVector(ctx context.Context, userID string) (*models.UserInterestVector, error)

	SubscribedCandidates(ctx context.Context, userID string, cutoff time.Time, limit int) ([]database.CandidateRow, error)
	TopicCandidates(ctx context.Context, userID string, cutoff time.Time, limit int) ([]database.CandidateRow, error)
	CandidatesByIDs(ctx context.Context, ids []string) ([]database.CandidateRow, error)
	TrendingIDs(ctx context.Context, window time.Duration, limit int) ([]string, error)
	VectorNeighbors(ctx context.Context, query []float32, cutoff time.Time, minSimilarity float64, limit int) ([]database.Neighbor, error)
	ExplorationCandidates(ctx context.Context, cutoff time.Time, excludeSources map[string]struct{}, limit int) ([]database.CandidateRow, error)
	TopicsBySource(ctx context.Context) (map[string][]models.Topic, error)
	ArticleVectors(ctx context.Context, ids []string) (map[string][]float32, error)
}

// userState is everything personal loaded once per ranking pass.
type userState struct {
	topicWeights   map[string]float64
	affinities     map[string]float64
	subscribed     map[string]struct{}
	hiddenSources  map[string]struct{}
	hiddenArticles map[string]struct{}
	recentlySeen   map[string]struct{}
	vector         []float32
}

const trendingCacheKey = "trending:ids"

// generator assembles the merged candidate pool for one user.
type generator struct {
	store Store
	cfg   *config.RankingConfig

	// trendingCache holds the global trending ID list between requests.
	trendingCache *cache.Cache
}

func newGenerator(store Store, cfg *config.RankingConfig, c *cache.Cache) *generator {
	return &generator{store: store, cfg: cfg, trendingCache: c}
}

// loadUserState reads all per-user signals. Interest-state reads that fail
// degrade to empty maps so a storage hiccup on one signal never fails the
// whole feed.
func (g *generator) loadUserState(ctx context.Context, userID string) *userState {
	st := &userState{}

	st.topicWeights = g.mapOrEmpty(ctx, userID, "topic_weights", g.store.TopicWeights)
	st.affinities = g.mapOrEmpty(ctx, userID, "source_affinities", g.store.SourceAffinities)
	st.subscribed = g.setOrEmpty(ctx, userID, "subscriptions", g.store.Subscriptions)
	st.hiddenSources = g.setOrEmpty(ctx, userID, "hidden_sources", g.store.HiddenSources)
	st.hiddenArticles = g.setOrEmpty(ctx, userID, "hidden_articles", g.store.HiddenArticles)

	seen, err := g.store.RecentlySeen(ctx, userID, g.cfg.SeenWindow)
	if err != nil {
		g.degraded(userID, "recently_seen", err)
		seen = map[string]struct{}{}
	}
	st.recentlySeen = seen

	uv, err := g.store.GetUserVector(ctx, userID)
	switch {
	case err == nil:
		st.vector = uv.Vector
	case err != database.ErrNotFound:
		g.degraded(userID, "interest_vector", err)
	}
	return st
}

func (g *generator) mapOrEmpty(ctx context.Context, userID, signal string,
	load func(context.Context, string) (map[string]float64, error),
) map[string]float64 {
	m, err := load(ctx, userID)
	if err != nil {
		g.degraded(userID, signal, err)
		return map[string]float64{}
	}
	return m
}

func (g *generator) setOrEmpty(ctx context.Context, userID, signal string,
	load func(context.Context, string) (map[string]struct{}, error),
) map[string]struct{} {
	s, err := load(ctx, userID)
	if err != nil {
		g.degraded(userID, signal, err)
		return map[string]struct{}{}
	}
	return s
}

func (g *generator) degraded(userID, signal string, err error) {
	metrics.DegradedSignals.WithLabelValues(signal).Inc()
	logging.Warn().Err(err).
		Str("user_id", userID).
		Str("signal", signal).
		Msg("signal degraded, continuing without it")
}

// candidates merges the subscription, topic, vector, and trending pools into
// a deduplicated set capped at CandidateCap, filtered for hidden content. A
// failing pool is skipped; only losing every pool empties the feed.
//
//nolint:gocyclo // pool merging is one sequential pipeline
func (g *generator) candidates(ctx context.Context, userID string, st *userState) ([]Candidate, error) {
	cutoff := time.Now().AddDate(0, 0, -g.cfg.MaxAgeDays)

	byID := make(map[string]*Candidate)
	order := make([]string, 0, g.cfg.CandidateCap)

	// Pool membership tags are derived from signals at scoring time; admit
	// only dedupes, filters, and keeps the best vector similarity.
	admit := func(row *database.CandidateRow, similarity float64) {
		if _, hidden := st.hiddenArticles[row.Article.ID]; hidden {
			return
		}
		if _, hidden := st.hiddenSources[row.Article.SourceID]; hidden {
			return
		}

		c, ok := byID[row.Article.ID]
		if !ok {
			if len(order) >= g.cfg.CandidateCap {
				return
			}
			c = &Candidate{
				Article:      row.Article,
				SourceTitle:  row.SourceTitle,
				SourceURL:    row.SourceSiteURL,
				Preinstalled: row.Preinstalled,
				Stats:        row.Stats,
			}
			_, c.Subscribed = st.subscribed[row.Article.SourceID]
			c.SourceAffinity = st.affinities[row.Article.SourceID]
			_, c.Seen = st.recentlySeen[row.Article.ID]
			byID[row.Article.ID] = c
			order = append(order, row.Article.ID)
		}
		if similarity > c.VectorSimilarity {
			c.VectorSimilarity = similarity
		}
	}

	// Subscription pool.
	rows, err := g.store.SubscribedCandidates(ctx, userID, cutoff, g.cfg.CandidateCap)
	if err != nil {
		g.degraded(userID, "pool_subscribed", err)
	}
	for i := range rows {
		admit(&rows[i], 0)
	}

	// Topic pool.
	rows, err = g.store.TopicCandidates(ctx, userID, cutoff, g.cfg.CandidateCap)
	if err != nil {
		g.degraded(userID, "pool_topic", err)
	}
	for i := range rows {
		admit(&rows[i], 0)
	}

	// Vector pool, only when the user has an interest vector.
	if len(st.vector) > 0 {
		neighbors, err := g.store.VectorNeighbors(ctx, st.vector, cutoff, 0, g.cfg.VectorTopK)
		if err != nil {
			g.degraded(userID, "pool_vector", err)
		}
		if len(neighbors) > 0 {
			sims := make(map[string]float64, len(neighbors))
			ids := make([]string, 0, len(neighbors))
			for _, n := range neighbors {
				sims[n.ArticleID] = n.Similarity
				ids = append(ids, n.ArticleID)
			}
			vrows, err := g.store.CandidatesByIDs(ctx, ids)
			if err != nil {
				g.degraded(userID, "pool_vector", err)
			}
			for i := range vrows {
				admit(&vrows[i], sims[vrows[i].Article.ID])
			}
		}
	}

	// Trending pool, shared across users and cached briefly.
	trendingIDs := g.trendingIDs(ctx, userID)
	if len(trendingIDs) > 0 {
		trows, err := g.store.CandidatesByIDs(ctx, trendingIDs)
		if err != nil {
			g.degraded(userID, "pool_trending", err)
		}
		for i := range trows {
			admit(&trows[i], 0)
		}
	}

	// Attach topic tags in one catalog pass.
	topicsBySource, err := g.store.TopicsBySource(ctx)
	if err != nil {
		g.degraded(userID, "topic_catalog", err)
		topicsBySource = map[string][]models.Topic{}
	}

	// Hydrate content embeddings for the diversity reranker. Request-local;
	// missing vectors leave the topic-overlap proxy in place.
	vectors, err := g.store.ArticleVectors(ctx, order)
	if err != nil {
		g.degraded(userID, "article_vectors", err)
		vectors = map[string][]float32{}
	}

	out := make([]Candidate, 0, len(order))
	for _, id := range order {
		c := byID[id]
		c.Topics = topicsBySource[c.Article.SourceID]
		c.Vector = vectors[id]
		out = append(out, *c)
	}

	metrics.CandidatePoolSize.WithLabelValues("merged").Observe(float64(len(out)))
	return out, nil
}

func (g *generator) trendingIDs(ctx context.Context, userID string) []string {
	if ids, ok := g.trendingCache.Get(trendingCacheKey); ok {
		return ids.([]string)
	}

	window := time.Duration(g.cfg.TrendingWindowDays) * 24 * time.Hour
	ids, err := g.store.TrendingIDs(ctx, window, g.cfg.TrendingCap)
	if err != nil {
		g.degraded(userID, "pool_trending", err)
		return nil
	}
	g.trendingCache.SetWithTTL(trendingCacheKey, ids, 5*time.Minute)
	return ids
}

// explorationPool fetches candidates from preinstalled sources the user is
// not subscribed to, for the exploration injector. Sources already present in
// the selected result are excluded too, so an exploration slot always shows
// the user a source the page does not.
func (g *generator) explorationPool(ctx context.Context, userID string, st *userState, selectedSources map[string]struct{}) []Candidate {
	cutoff := time.Now().AddDate(0, 0, -g.cfg.MaxAgeDays)

	exclude := make(map[string]struct{}, len(st.subscribed)+len(st.hiddenSources)+len(selectedSources))
	for id := range st.subscribed {
		exclude[id] = struct{}{}
	}
	for id := range st.hiddenSources {
		exclude[id] = struct{}{}
	}
	for id := range selectedSources {
		exclude[id] = struct{}{}
	}

	rows, err := g.store.ExplorationCandidates(ctx, cutoff, exclude, g.cfg.ExplorePoolSize)
	if err != nil {
		g.degraded(userID, "pool_explore", err)
		return nil
	}

	topicsBySource, err := g.store.TopicsBySource(ctx)
	if err != nil {
		topicsBySource = map[string][]models.Topic{}
	}

	out := make([]Candidate, 0, len(rows))
	for i := range rows {
		row := &rows[i]
		if _, hidden := st.hiddenArticles[row.Article.ID]; hidden {
			continue
		}
		if _, seen := st.recentlySeen[row.Article.ID]; seen {
			continue
		}
		out = append(out, Candidate{
			Article:      row.Article,
			SourceTitle:  row.SourceTitle,
			SourceURL:    row.SourceSiteURL,
			Preinstalled: row.Preinstalled,
			Topics:       topicsBySource[row.Article.SourceID],
			Stats:        row.Stats,
		})
	}
	return out
}
