// Feedrank - Personalized Content Feed Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feedrank/feedrank

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/feedrank/feedrank/internal/metrics"
	"github.com/feedrank/feedrank/internal/models"
)

// TopicWeights returns the user's topic weight map. Absent topics read as 0.
func (db *DB) TopicWeights(ctx context.Context, userID string) (map[string]float64, error) {
	return db.weightMap(ctx, userID,
		`SELECT topic_id, weight FROM user_topic_weights WHERE user_id = ?`,
		"user_topic_weights")
}

// SourceAffinities returns the user's source affinity map.
func (db *DB) SourceAffinities(ctx context.Context, userID string) (map[string]float64, error) {
	return db.weightMap(ctx, userID,
		`SELECT source_id, weight FROM user_source_affinities WHERE user_id = ?`,
		"user_source_affinities")
}

func (db *DB) weightMap(ctx context.Context, userID, query, table string) (map[string]float64, error) {
	start := time.Now()
	stmt, err := db.prepared(ctx, query)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.QueryContext(ctx, userID)
	metrics.RecordDBQuery("select", table, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var key string
		var weight float64
		if err := rows.Scan(&key, &weight); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		out[key] = weight
	}
	return out, rows.Err()
}

// AddTopicWeightDelta applies a single-statement atomic clamped increment to
// a (user, topic) weight. The clamp runs inside the upsert so concurrent
// interactions never produce an out-of-range or lost update.
func (db *DB) AddTopicWeightDelta(ctx context.Context, userID, topicID string, delta float64) error {
	start := time.Now()
	stmt, err := db.prepared(ctx, `
		INSERT INTO user_topic_weights (user_id, topic_id, weight)
		VALUES (?, ?, least(?, greatest(?, ?)))
		ON CONFLICT (user_id, topic_id) DO UPDATE SET
			weight = least(?, greatest(?, user_topic_weights.weight + ?))`)
	if err != nil {
		return err
	}

	_, err = stmt.ExecContext(ctx,
		userID, topicID, models.WeightMax, models.WeightMin, delta,
		models.WeightMax, models.WeightMin, delta)
	metrics.RecordDBQuery("upsert", "user_topic_weights", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("add topic weight delta: %w", err)
	}
	return nil
}

// AddSourceAffinityDelta applies the same atomic clamped increment to a
// (user, source) affinity.
func (db *DB) AddSourceAffinityDelta(ctx context.Context, userID, sourceID string, delta float64) error {
	start := time.Now()
	stmt, err := db.prepared(ctx, `
		INSERT INTO user_source_affinities (user_id, source_id, weight)
		VALUES (?, ?, least(?, greatest(?, ?)))
		ON CONFLICT (user_id, source_id) DO UPDATE SET
			weight = least(?, greatest(?, user_source_affinities.weight + ?))`)
	if err != nil {
		return err
	}

	_, err = stmt.ExecContext(ctx,
		userID, sourceID, models.WeightMax, models.WeightMin, delta,
		models.WeightMax, models.WeightMin, delta)
	metrics.RecordDBQuery("upsert", "user_source_affinities", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("add source affinity delta: %w", err)
	}
	return nil
}

// SetTopicWeight overwrites a (user, topic) weight, clamped. Used by
// onboarding to seed chosen topics at 1.0.
func (db *DB) SetTopicWeight(ctx context.Context, userID, topicID string, weight float64) error {
	weight = models.ClampWeight(weight)
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO user_topic_weights (user_id, topic_id, weight)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id, topic_id) DO UPDATE SET weight = excluded.weight`,
		userID, topicID, weight)
	if err != nil {
		return fmt.Errorf("set topic weight: %w", err)
	}
	return nil
}

// Subscriptions returns the user's subscribed source IDs as a set.
func (db *DB) Subscriptions(ctx context.Context, userID string) (map[string]struct{}, error) {
	return db.idSet(ctx, userID,
		`SELECT source_id FROM user_subscriptions WHERE user_id = ?`)
}

// HiddenSources returns the user's hidden/blocked source IDs as a set.
func (db *DB) HiddenSources(ctx context.Context, userID string) (map[string]struct{}, error) {
	return db.idSet(ctx, userID,
		`SELECT source_id FROM user_hidden_sources WHERE user_id = ?`)
}

// HiddenArticles returns article IDs the user has hidden via HIDE
// interactions.
func (db *DB) HiddenArticles(ctx context.Context, userID string) (map[string]struct{}, error) {
	return db.idSet(ctx, userID,
		`SELECT DISTINCT article_id FROM interaction_events WHERE user_id = ? AND type = 'HIDE'`)
}

// Subscribe adds a subscription row.
func (db *DB) Subscribe(ctx context.Context, userID, sourceID string) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO user_subscriptions (user_id, source_id)
		VALUES (?, ?) ON CONFLICT DO NOTHING`, userID, sourceID)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	return nil
}

// HideSource adds a hidden-source row.
func (db *DB) HideSource(ctx context.Context, userID, sourceID string) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO user_hidden_sources (user_id, source_id)
		VALUES (?, ?) ON CONFLICT DO NOTHING`, userID, sourceID)
	if err != nil {
		return fmt.Errorf("hide source: %w", err)
	}
	return nil
}

func (db *DB) idSet(ctx context.Context, userID, query string) (map[string]struct{}, error) {
	stmt, err := db.prepared(ctx, query)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.QueryContext(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("query id set: %w", err)
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		out[id] = struct{}{}
	}
	return out, rows.Err()
}
