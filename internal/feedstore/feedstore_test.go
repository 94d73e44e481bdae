// Feedrank - Personalized Content Feed Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feedrank/feedrank

package feedstore

import (
	"errors"
	"testing"
	"time"

	"github.com/feedrank/feedrank/internal/config"
	"github.com/feedrank/feedrank/internal/engine"
)

func newTestStore(t *testing.T, ttl time.Duration) *Store {
	t.Helper()
	s, err := New(&config.FeedStoreConfig{Path: "", TTL: ttl})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleFeed(requestID string, n int) *engine.MaterializedFeed {
	items := make([]engine.RankedArticle, n)
	for i := range items {
		items[i] = engine.RankedArticle{ID: string(rune('a' + i)), Score: float64(n - i)}
	}
	return &engine.MaterializedFeed{
		Items:            items,
		FeedRequestID:    requestID,
		AlgorithmVersion: "rank-v2-hybrid",
		RankedAt:         time.Now().UTC(),
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	s := newTestStore(t, 30*time.Minute)

	want := sampleFeed("fr-1", 5)
	if err := s.Put("user-1", want); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := s.Get("user-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.FeedRequestID != want.FeedRequestID {
		t.Errorf("feed request ID = %q, want %q", got.FeedRequestID, want.FeedRequestID)
	}
	if len(got.Items) != len(want.Items) {
		t.Fatalf("items = %d, want %d", len(got.Items), len(want.Items))
	}
	for i := range got.Items {
		if got.Items[i].ID != want.Items[i].ID {
			t.Errorf("item %d = %s, want %s", i, got.Items[i].ID, want.Items[i].ID)
		}
	}
}

func TestGetMissing(t *testing.T) {
	s := newTestStore(t, 30*time.Minute)

	if _, err := s.Get("nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get = %v, want ErrNotFound", err)
	}
}

func TestPutReplaces(t *testing.T) {
	s := newTestStore(t, 30*time.Minute)

	if err := s.Put("user-1", sampleFeed("fr-1", 3)); err != nil {
		t.Fatal(err)
	}
	if err := s.Put("user-1", sampleFeed("fr-2", 4)); err != nil {
		t.Fatal(err)
	}

	got, err := s.Get("user-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.FeedRequestID != "fr-2" {
		t.Errorf("feed request ID = %q, want latest fr-2", got.FeedRequestID)
	}
}

func TestDelete(t *testing.T) {
	s := newTestStore(t, 30*time.Minute)

	if err := s.Put("user-1", sampleFeed("fr-1", 2)); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete("user-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get("user-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete = %v, want ErrNotFound", err)
	}
}

func TestDeleteMissingIsIdempotent(t *testing.T) {
	s := newTestStore(t, 30*time.Minute)

	if err := s.Delete("nobody"); err != nil {
		t.Errorf("Delete on absent key = %v, want nil", err)
	}
}

func TestEntriesExpire(t *testing.T) {
	s := newTestStore(t, 100*time.Millisecond)

	if err := s.Put("user-1", sampleFeed("fr-1", 2)); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)

	if _, err := s.Get("user-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after TTL = %v, want ErrNotFound", err)
	}
}

func TestUsersAreIsolated(t *testing.T) {
	s := newTestStore(t, 30*time.Minute)

	if err := s.Put("user-1", sampleFeed("fr-1", 2)); err != nil {
		t.Fatal(err)
	}
	if err := s.Put("user-2", sampleFeed("fr-2", 2)); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete("user-1"); err != nil {
		t.Fatal(err)
	}

	got, err := s.Get("user-2")
	if err != nil {
		t.Fatalf("Get user-2: %v", err)
	}
	if got.FeedRequestID != "fr-2" {
		t.Errorf("feed request ID = %q, want fr-2", got.FeedRequestID)
	}
}
