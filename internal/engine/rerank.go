// Feedrank - Personalized Content Feed Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feedrank/feedrank

package engine

import "github.com/feedrank/feedrank/internal/config"

// sourceCapWindow is the prefix length the per-source cap applies to.
const sourceCapWindow = 20

// reranker applies maximal-marginal-relevance selection with a hard
// per-source cap inside the top positions.
type reranker struct {
	cfg *config.RankingConfig
}

func newReranker(cfg *config.RankingConfig) *reranker {
	return &reranker{cfg: cfg}
}

// rerank greedily selects up to RerankLimit items. At each step the item
// maximizing lambda*score - (1-lambda)*redundancy wins; on an exact tie the
// earlier item in score order wins, keeping selection deterministic. While
// fewer than sourceCapWindow items are placed, a source at its cap is
// skipped, not discarded, so its items remain eligible for later positions.
func (r *reranker) rerank(scored []scoredCandidate) []scoredCandidate {
	limit := r.cfg.RerankLimit
	if limit > len(scored) {
		limit = len(scored)
	}

	selected := make([]scoredCandidate, 0, limit)
	sourceCount := make(map[string]int)
	remaining := make([]scoredCandidate, len(scored))
	copy(remaining, scored)

	for len(selected) < limit && len(remaining) > 0 {
		bestIdx := -1
		bestVal := 0.0

		for i := range remaining {
			c := remaining[i].Candidate

			if len(selected) < sourceCapWindow &&
				sourceCount[c.Article.SourceID] >= r.cfg.SourceCapTop20 {
				continue
			}

			val := r.cfg.MMRLambda*remaining[i].Score -
				(1-r.cfg.MMRLambda)*r.redundancy(c, selected)
			if bestIdx < 0 || val > bestVal {
				bestVal = val
				bestIdx = i
			}
		}

		// Every remaining item is capped out; with a cap >= 1 this can only
		// happen inside the top window when few sources are present.
		if bestIdx < 0 {
			break
		}

		pick := remaining[bestIdx]
		selected = append(selected, pick)
		sourceCount[pick.Candidate.Article.SourceID]++
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}

	return selected
}

// redundancy returns the worst-case similarity of the candidate to anything
// already selected. Per pair: cosine similarity when both embeddings are
// hydrated, else a flat penalty for a repeated source, else scaled topic
// overlap.
func (r *reranker) redundancy(c *Candidate, selected []scoredCandidate) float64 {
	var maxPenalty float64
	for i := range selected {
		s := selected[i].Candidate
		if len(c.Vector) > 0 && len(s.Vector) > 0 {
			if p := Cosine(c.Vector, s.Vector); p > maxPenalty {
				maxPenalty = p
			}
			continue
		}
		if s.Article.SourceID == c.Article.SourceID {
			if r.cfg.SameSourcePenalty > maxPenalty {
				maxPenalty = r.cfg.SameSourcePenalty
			}
			continue
		}
		if p := topicOverlap(c, s) * r.cfg.TopicOverlapWeight; p > maxPenalty {
			maxPenalty = p
		}
	}
	return maxPenalty
}

// topicOverlap is shared topics over the larger topic set, in [0, 1].
func topicOverlap(a, b *Candidate) float64 {
	larger := len(a.Topics)
	if len(b.Topics) > larger {
		larger = len(b.Topics)
	}
	if larger == 0 {
		return 0
	}

	shared := 0
	for _, ta := range a.Topics {
		for _, tb := range b.Topics {
			if ta.ID == tb.ID {
				shared++
				break
			}
		}
	}
	return float64(shared) / float64(larger)
}
