// Feedrank - Personalized Content Feed Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feedrank/feedrank

// Package feedstore persists materialized ranked feeds in Badger, one entry
// per user with a TTL. Entries are serving state, never the source of truth:
// a lost or expired entry just forces the next request to rank fresh.
package feedstore

import (
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	json "github.com/goccy/go-json"

	"github.com/feedrank/feedrank/internal/config"
	"github.com/feedrank/feedrank/internal/engine"
	"github.com/feedrank/feedrank/internal/logging"
)

// ErrNotFound is returned when no materialized feed exists for the user.
var ErrNotFound = errors.New("no materialized feed")

// Store is a Badger-backed engine.FeedStore.
type Store struct {
	db  *badger.DB
	cfg *config.FeedStoreConfig
}

// New opens the store. An empty path runs fully in memory, which tests and
// small deployments use.
func New(cfg *config.FeedStoreConfig) (*Store, error) {
	opts := badger.DefaultOptions(cfg.Path).
		WithLogger(nil)
	if cfg.Path == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open feed store: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Dur("ttl", cfg.TTL).
		Msg("feed store ready")
	return &Store{db: db, cfg: cfg}, nil
}

// Close releases the underlying Badger database.
func (s *Store) Close() error {
	return s.db.Close()
}

func feedKey(userID string) []byte {
	return []byte("feed:" + userID)
}

// Put stores the user's materialized feed, replacing any previous one. The
// entry expires after the configured TTL.
func (s *Store) Put(userID string, feed *engine.MaterializedFeed) error {
	payload, err := json.Marshal(feed)
	if err != nil {
		return fmt.Errorf("encode feed: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(feedKey(userID), payload).WithTTL(s.cfg.TTL)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("store feed: %w", err)
	}
	return nil
}

// Get returns the user's materialized feed, or ErrNotFound when absent or
// expired.
func (s *Store) Get(userID string) (*engine.MaterializedFeed, error) {
	var feed engine.MaterializedFeed

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(feedKey(userID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &feed)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load feed: %w", err)
	}
	return &feed, nil
}

// Delete drops the user's materialized feed.
func (s *Store) Delete(userID string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(feedKey(userID))
	})
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("delete feed: %w", err)
	}
	return nil
}
