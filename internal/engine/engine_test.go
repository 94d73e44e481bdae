// Feedrank - Personalized Content Feed Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feedrank/feedrank

package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/feedrank/feedrank/internal/cache"
	"github.com/feedrank/feedrank/internal/database"
	"github.com/feedrank/feedrank/internal/models"
)

// fakeStore is an in-memory Store fixture. Setting fail["method"] makes that
// method return an error, for degradation tests.
type fakeStore struct {
	weights    map[string]float64
	affinities map[string]float64
	subs       map[string]struct{}
	hiddenSrc  map[string]struct{}
	hiddenArt  map[string]struct{}
	seen       map[string]struct{}
	userVec    *models.UserInterestVector

	subscribedRows []database.CandidateRow
	topicRows      []database.CandidateRow
	exploreRows    []database.CandidateRow
	neighbors      []database.Neighbor
	trending       []string
	byID           map[string]database.CandidateRow
	topics         map[string][]models.Topic
	articleVecs    map[string][]float32

	fail map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		weights:     map[string]float64{},
		affinities:  map[string]float64{},
		subs:        map[string]struct{}{},
		hiddenSrc:   map[string]struct{}{},
		hiddenArt:   map[string]struct{}{},
		seen:        map[string]struct{}{},
		byID:        map[string]database.CandidateRow{},
		topics:      map[string][]models.Topic{},
		articleVecs: map[string][]float32{},
		fail:        map[string]bool{},
	}
}

func (f *fakeStore) err(method string) error {
	if f.fail[method] {
		return errors.New(method + " unavailable")
	}
	return nil
}

func (f *fakeStore) TopicWeights(_ context.Context, _ string) (map[string]float64, error) {
	return f.weights, f.err("TopicWeights")
}

func (f *fakeStore) SourceAffinities(_ context.Context, _ string) (map[string]float64, error) {
	return f.affinities, f.err("SourceAffinities")
}

func (f *fakeStore) Subscriptions(_ context.Context, _ string) (map[string]struct{}, error) {
	return f.subs, f.err("Subscriptions")
}

func (f *fakeStore) HiddenSources(_ context.Context, _ string) (map[string]struct{}, error) {
	return f.hiddenSrc, f.err("HiddenSources")
}

func (f *fakeStore) HiddenArticles(_ context.Context, _ string) (map[string]struct{}, error) {
	return f.hiddenArt, f.err("HiddenArticles")
}

func (f *fakeStore) RecentlySeen(_ context.Context, _ string, _ time.Duration) (map[string]struct{}, error) {
	return f.seen, f.err("RecentlySeen")
}

func (f *fakeStore) GetUserVector(_ context.Context, _ string) (*models.UserInterestVector, error) {
	if err := f.err("GetUserVector"); err != nil {
		return nil, err
	}
	if f.userVec == nil {
		return nil, database.ErrNotFound
	}
	return f.userVec, nil
}

func (f *fakeStore) SubscribedCandidates(_ context.Context, _ string, _ time.Time, _ int) ([]database.CandidateRow, error) {
	return f.subscribedRows, f.err("SubscribedCandidates")
}

func (f *fakeStore) TopicCandidates(_ context.Context, _ string, _ time.Time, _ int) ([]database.CandidateRow, error) {
	return f.topicRows, f.err("TopicCandidates")
}

func (f *fakeStore) CandidatesByIDs(_ context.Context, ids []string) ([]database.CandidateRow, error) {
	if err := f.err("CandidatesByIDs"); err != nil {
		return nil, err
	}
	var out []database.CandidateRow
	for _, id := range ids {
		if row, ok := f.byID[id]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeStore) TrendingIDs(_ context.Context, _ time.Duration, _ int) ([]string, error) {
	return f.trending, f.err("TrendingIDs")
}

func (f *fakeStore) VectorNeighbors(_ context.Context, _ []float32, _ time.Time, _ float64, _ int) ([]database.Neighbor, error) {
	return f.neighbors, f.err("VectorNeighbors")
}

func (f *fakeStore) ExplorationCandidates(_ context.Context, _ time.Time, exclude map[string]struct{}, _ int) ([]database.CandidateRow, error) {
	if err := f.err("ExplorationCandidates"); err != nil {
		return nil, err
	}
	var out []database.CandidateRow
	for _, row := range f.exploreRows {
		if _, skip := exclude[row.Article.SourceID]; skip {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func (f *fakeStore) TopicsBySource(_ context.Context) (map[string][]models.Topic, error) {
	return f.topics, f.err("TopicsBySource")
}

func (f *fakeStore) ArticleVectors(_ context.Context, ids []string) (map[string][]float32, error) {
	if err := f.err("ArticleVectors"); err != nil {
		return nil, err
	}
	out := map[string][]float32{}
	for _, id := range ids {
		if v, ok := f.articleVecs[id]; ok {
			out[id] = v
		}
	}
	return out, nil
}

// fakeFeedStore is a map-backed engine.FeedStore.
type fakeFeedStore struct {
	feeds map[string]*MaterializedFeed
}

func newFakeFeedStore() *fakeFeedStore {
	return &fakeFeedStore{feeds: map[string]*MaterializedFeed{}}
}

func (f *fakeFeedStore) Put(userID string, feed *MaterializedFeed) error {
	f.feeds[userID] = feed
	return nil
}

func (f *fakeFeedStore) Get(userID string) (*MaterializedFeed, error) {
	feed, ok := f.feeds[userID]
	if !ok {
		return nil, errors.New("no materialized feed")
	}
	return feed, nil
}

func (f *fakeFeedStore) Delete(userID string) error {
	delete(f.feeds, userID)
	return nil
}

func candidateRow(id, sourceID string, publishedAt time.Time) database.CandidateRow {
	return database.CandidateRow{
		Article: models.Article{
			ID:          id,
			Title:       "title " + id,
			URL:         "https://example.com/" + id,
			PublishedAt: publishedAt,
			SourceID:    sourceID,
		},
		SourceTitle: "source " + sourceID,
	}
}

func newTestEngine(store *fakeStore, feeds *fakeFeedStore) *Engine {
	return New(testRankingConfig(), store, feeds, cache.New(time.Minute), rand.New(rand.NewSource(42)))
}

func TestGetFeedFirstPage(t *testing.T) {
	store := newFakeStore()
	feeds := newFakeFeedStore()
	now := time.Now()

	store.subs["s1"] = struct{}{}
	for i := 0; i < 40; i++ {
		row := candidateRow(fmt.Sprintf("a-%d", i), fmt.Sprintf("s-%d", i), now.Add(-time.Duration(i)*time.Hour))
		store.subscribedRows = append(store.subscribedRows, row)
	}

	eng := newTestEngine(store, feeds)
	page, err := eng.GetFeed(context.Background(), "u1", "")
	if err != nil {
		t.Fatalf("GetFeed() error = %v", err)
	}

	if len(page.Items) != 20 {
		t.Errorf("page size = %d, want 20", len(page.Items))
	}
	if page.NextCursor == "" {
		t.Error("expected next cursor on full page")
	}
	if page.NextCursor != page.Items[19].ID {
		t.Errorf("cursor = %s, want last item %s", page.NextCursor, page.Items[19].ID)
	}
	if page.FeedRequestID == "" {
		t.Error("missing feed request id")
	}
	if page.AlgorithmVersion != "rank-v2-hybrid" {
		t.Errorf("algorithm version = %s", page.AlgorithmVersion)
	}
	if _, ok := feeds.feeds["u1"]; !ok {
		t.Error("feed was not materialized")
	}
}

func TestGetFeedPagination(t *testing.T) {
	store := newFakeStore()
	feeds := newFakeFeedStore()
	now := time.Now()

	for i := 0; i < 50; i++ {
		row := candidateRow(fmt.Sprintf("a-%d", i), fmt.Sprintf("s-%d", i), now.Add(-time.Duration(i)*time.Hour))
		store.subscribedRows = append(store.subscribedRows, row)
	}

	eng := newTestEngine(store, feeds)
	ctx := context.Background()

	page1, err := eng.GetFeed(ctx, "u1", "")
	if err != nil {
		t.Fatalf("page 1 error = %v", err)
	}
	page2, err := eng.GetFeed(ctx, "u1", page1.NextCursor)
	if err != nil {
		t.Fatalf("page 2 error = %v", err)
	}

	if page2.FeedRequestID != page1.FeedRequestID {
		t.Error("page 2 re-materialized instead of resuming the stored feed")
	}

	seen := map[string]bool{}
	for _, item := range page1.Items {
		seen[item.ID] = true
	}
	for _, item := range page2.Items {
		if seen[item.ID] {
			t.Errorf("article %s appears on both pages", item.ID)
		}
	}

	// The two pages must be exactly the stored list's prefix.
	stored := feeds.feeds["u1"].Items
	combined := append(append([]RankedArticle{}, page1.Items...), page2.Items...)
	for i, item := range combined {
		if stored[i].ID != item.ID {
			t.Fatalf("position %d: got %s, stored %s", i, item.ID, stored[i].ID)
		}
	}
}

func TestGetFeedStaleCursorRecomputes(t *testing.T) {
	store := newFakeStore()
	feeds := newFakeFeedStore()
	now := time.Now()

	for i := 0; i < 10; i++ {
		store.subscribedRows = append(store.subscribedRows,
			candidateRow(fmt.Sprintf("a-%d", i), "s1", now.Add(-time.Duration(i)*time.Hour)))
	}

	eng := newTestEngine(store, feeds)
	page, err := eng.GetFeed(context.Background(), "u1", "no-such-article")
	if err != nil {
		t.Fatalf("GetFeed() error = %v", err)
	}
	if len(page.Items) == 0 {
		t.Error("stale cursor should fall back to a fresh first page")
	}
}

func TestGetFeedFiltersHidden(t *testing.T) {
	store := newFakeStore()
	feeds := newFakeFeedStore()
	now := time.Now()

	store.subscribedRows = []database.CandidateRow{
		candidateRow("visible", "s1", now),
		candidateRow("hidden-article", "s1", now),
		candidateRow("from-hidden-source", "s2", now),
	}
	store.hiddenArt["hidden-article"] = struct{}{}
	store.hiddenSrc["s2"] = struct{}{}

	eng := newTestEngine(store, feeds)
	page, err := eng.GetFeed(context.Background(), "u1", "")
	if err != nil {
		t.Fatalf("GetFeed() error = %v", err)
	}

	for _, item := range page.Items {
		if item.ID == "hidden-article" || item.ID == "from-hidden-source" {
			t.Errorf("hidden content served: %s", item.ID)
		}
	}
	if len(page.Items) != 1 {
		t.Errorf("page size = %d, want 1", len(page.Items))
	}
}

func TestGetFeedDegradedPools(t *testing.T) {
	store := newFakeStore()
	feeds := newFakeFeedStore()
	now := time.Now()

	store.topicRows = []database.CandidateRow{candidateRow("topical", "s1", now)}
	// Every other pool and most signals fail; the feed must still serve.
	for _, method := range []string{
		"SubscribedCandidates", "TrendingIDs", "VectorNeighbors",
		"TopicWeights", "SourceAffinities", "RecentlySeen",
	} {
		store.fail[method] = true
	}

	eng := newTestEngine(store, feeds)
	page, err := eng.GetFeed(context.Background(), "u1", "")
	if err != nil {
		t.Fatalf("GetFeed() error = %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].ID != "topical" {
		t.Errorf("degraded feed items = %v", page.Items)
	}
}

func TestGetFeedSeenPenaltyOrdering(t *testing.T) {
	store := newFakeStore()
	feeds := newFakeFeedStore()
	now := time.Now()

	store.subscribedRows = []database.CandidateRow{
		candidateRow("seen-one", "s1", now),
		candidateRow("unseen-one", "s2", now),
	}
	store.seen["seen-one"] = struct{}{}

	eng := newTestEngine(store, feeds)
	page, err := eng.GetFeed(context.Background(), "u1", "")
	if err != nil {
		t.Fatalf("GetFeed() error = %v", err)
	}

	if page.Items[0].ID != "unseen-one" {
		t.Errorf("top item = %s, want the unseen article", page.Items[0].ID)
	}
	if page.Items[1].ScoreBreakdown.SeenPenalty != 1 {
		t.Errorf("seen penalty = %v, want 1", page.Items[1].ScoreBreakdown.SeenPenalty)
	}
}

func TestExploreSlotsAvoidSelectedSources(t *testing.T) {
	store := newFakeStore()
	feeds := newFakeFeedStore()
	now := time.Now()

	// Ten ranked articles from unsubscribed sources, enough to reach the
	// first exploration slot.
	for i := 0; i < 10; i++ {
		store.topicRows = append(store.topicRows,
			candidateRow(fmt.Sprintf("a-%d", i), fmt.Sprintf("s-%d", i), now.Add(-time.Duration(i)*time.Hour)))
	}
	// The exploration pool offers a source already in the result and a
	// genuinely new one.
	store.exploreRows = []database.CandidateRow{
		candidateRow("explore-dup", "s-0", now),
		candidateRow("explore-new", "novel-src", now),
	}

	eng := newTestEngine(store, feeds)
	page, err := eng.GetFeed(context.Background(), "u1", "")
	if err != nil {
		t.Fatalf("GetFeed() error = %v", err)
	}

	rankedSources := map[string]bool{}
	for i := 0; i < 10; i++ {
		rankedSources[fmt.Sprintf("s-%d", i)] = true
	}

	var exploreCount int
	for _, item := range page.Items {
		if !item.HasTag(PoolExplore) {
			continue
		}
		exploreCount++
		if rankedSources[item.Source.ID] {
			t.Errorf("exploration item %s drawn from source %s already present in the selected result",
				item.ID, item.Source.ID)
		}
	}
	if exploreCount == 0 {
		t.Fatal("expected at least one exploration slot")
	}
}

func TestGetFeedVectorDiversity(t *testing.T) {
	store := newFakeStore()
	feeds := newFakeFeedStore()
	now := time.Now()

	// x and y share an embedding direction; z is orthogonal but slightly
	// older. Redundancy against x must demote y below z.
	store.subscribedRows = []database.CandidateRow{
		candidateRow("x", "s1", now),
		candidateRow("y", "s2", now.Add(-time.Hour)),
		candidateRow("z", "s3", now.Add(-2*time.Hour)),
	}
	store.articleVecs["x"] = []float32{1, 0}
	store.articleVecs["y"] = []float32{1, 0}
	store.articleVecs["z"] = []float32{0, 1}

	eng := newTestEngine(store, feeds)
	page, err := eng.GetFeed(context.Background(), "u1", "")
	if err != nil {
		t.Fatalf("GetFeed() error = %v", err)
	}

	var got []string
	for _, item := range page.Items {
		got = append(got, item.ID)
	}
	want := []string{"x", "z", "y"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestMaterializedLookup(t *testing.T) {
	store := newFakeStore()
	feeds := newFakeFeedStore()
	store.subscribedRows = []database.CandidateRow{candidateRow("a1", "s1", time.Now())}

	eng := newTestEngine(store, feeds)
	page, err := eng.GetFeed(context.Background(), "u1", "")
	if err != nil {
		t.Fatalf("GetFeed() error = %v", err)
	}

	if feed := eng.Materialized("u1", page.FeedRequestID); feed == nil {
		t.Error("expected materialized feed for matching request id")
	}
	if feed := eng.Materialized("u1", "other-request"); feed != nil {
		t.Error("expected nil for mismatched request id")
	}
	if feed := eng.Materialized("u2", page.FeedRequestID); feed != nil {
		t.Error("expected nil for unknown user")
	}
}
