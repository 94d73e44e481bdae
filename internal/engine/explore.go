// Feedrank - Personalized Content Feed Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feedrank/feedrank

package engine

import (
	"math"
	"math/rand"

	"github.com/feedrank/feedrank/internal/config"
)

// injector splices exploration items into a reranked list. Exploration items
// come from preinstalled sources the user does not follow and carry a fixed
// neutral score, so the slots cost the same regardless of which article
// fills them.
type injector struct {
	cfg *config.RankingConfig
	rng *rand.Rand
}

func newInjector(cfg *config.RankingConfig, rng *rand.Rand) *injector {
	return &injector{cfg: cfg, rng: rng}
}

// interval returns the exploration cadence: one slot per round(1/rate)
// positions. A rate of 0 disables injection.
func (in *injector) interval() int {
	if in.cfg.ExploreRate <= 0 {
		return 0
	}
	n := int(math.Round(1 / in.cfg.ExploreRate))
	if n < 1 {
		n = 1
	}
	return n
}

// inject places one shuffled pool item at every interval-th position,
// shifting ranked items down. Items already in the ranked list are skipped.
// When the pool runs dry the remaining slots keep their ranked items.
func (in *injector) inject(ranked []RankedArticle, pool []Candidate) []RankedArticle {
	interval := in.interval()
	if interval == 0 || len(pool) == 0 {
		return ranked
	}

	present := make(map[string]struct{}, len(ranked))
	for i := range ranked {
		present[ranked[i].ID] = struct{}{}
	}

	shuffled := make([]Candidate, len(pool))
	copy(shuffled, pool)
	in.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	out := make([]RankedArticle, 0, len(ranked)+len(shuffled))
	next := 0
	for _, r := range ranked {
		if (len(out)+1)%interval == 0 {
			for next < len(shuffled) {
				c := &shuffled[next]
				next++
				if _, dup := present[c.Article.ID]; dup {
					continue
				}
				item := in.exploreItem(c)
				present[item.ID] = struct{}{}
				out = append(out, item)
				break
			}
		}
		out = append(out, r)
	}
	return out
}

// exploreItem converts a pool candidate into a ranked item tagged EXPLORE
// with the fixed exploration score and an empty breakdown.
func (in *injector) exploreItem(c *Candidate) RankedArticle {
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
		Score:            in.cfg.ExploreScore,
		CandidateSources: []string{PoolExplore},
	}
}
