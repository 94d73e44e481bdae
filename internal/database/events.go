// Feedrank - Personalized Content Feed Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feedrank/feedrank

package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/feedrank/feedrank/internal/metrics"
	"github.com/feedrank/feedrank/internal/models"
)

// AppendInteraction durably appends one interaction event. The log is
// append-only; replays with the same event ID are ignored.
func (db *DB) AppendInteraction(ctx context.Context, ev *models.InteractionEvent) error {
	start := time.Now()
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO interaction_events (id, user_id, article_id, type, value, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING`,
		ev.ID, ev.UserID, ev.ArticleID, string(ev.Type), ev.Value, ev.CreatedAt)
	metrics.RecordDBQuery("insert", "interaction_events", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("append interaction: %w", err)
	}
	return nil
}

// UpsertImpressions records a page of impressions idempotently. The primary
// key (user_id, feed_request_id, article_id) makes client retries no-ops, so
// counters driven by this table never double count.
func (db *DB) UpsertImpressions(ctx context.Context, events []models.ImpressionEvent) (int64, error) {
	if len(events) == 0 {
		return 0, nil
	}

	start := time.Now()
	var inserted int64
	for i := range events {
		ev := &events[i]
		res, err := db.conn.ExecContext(ctx, `
			INSERT INTO impression_events
				(user_id, feed_request_id, article_id, position, algorithm_version, candidate_sources, shown_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT DO NOTHING`,
			ev.UserID, ev.FeedRequestID, ev.ArticleID, ev.Position,
			ev.AlgorithmVersion, strings.Join(ev.CandidateSources, ","), ev.ShownAt)
		if err != nil {
			metrics.RecordDBQuery("insert", "impression_events", time.Since(start), err)
			return inserted, fmt.Errorf("upsert impression: %w", err)
		}
		// Only a first-time impression bumps the article counter; a retried
		// batch can mix new and duplicate rows, so the check is per row.
		n, _ := res.RowsAffected()
		if n > 0 {
			inserted += n
			if err := db.bumpStat(ctx, ev.ArticleID, "impressions"); err != nil {
				return inserted, err
			}
		}
	}
	metrics.RecordDBQuery("insert", "impression_events", time.Since(start), nil)
	return inserted, nil
}

// RecentlySeen returns article IDs shown to the user inside the window.
func (db *DB) RecentlySeen(ctx context.Context, userID string, window time.Duration) (map[string]struct{}, error) {
	since := time.Now().Add(-window)

	stmt, err := db.prepared(ctx, `
		SELECT DISTINCT article_id FROM impression_events
		WHERE user_id = ? AND shown_at >= ?`)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.QueryContext(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("recently seen: %w", err)
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan seen id: %w", err)
		}
		out[id] = struct{}{}
	}
	return out, rows.Err()
}

// IncrementStat bumps one engagement counter (opens, likes, saves) for an
// article with a single additive update, creating the row on first touch.
func (db *DB) IncrementStat(ctx context.Context, articleID, counter string) error {
	return db.bumpStat(ctx, articleID, counter)
}

func (db *DB) bumpStat(ctx context.Context, articleID, counter string) error {
	var col string
	switch counter {
	case "impressions", "opens", "likes", "saves":
		col = counter
	default:
		return fmt.Errorf("unknown stat counter %q", counter)
	}

	start := time.Now()
	_, err := db.conn.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO article_stats (article_id, %[1]s) VALUES (?, 1)
		ON CONFLICT (article_id) DO UPDATE SET %[1]s = article_stats.%[1]s + 1`, col),
		articleID)
	metrics.RecordDBQuery("upsert", "article_stats", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("bump %s: %w", col, err)
	}
	return nil
}

// RecomputeQualityScores refreshes CTR and the derived quality score for
// articles with at least minImpressions. Articles below the floor keep a NULL
// quality score and fall back to the neutral prior at scoring time.
func (db *DB) RecomputeQualityScores(ctx context.Context, minImpressions int64) error {
	start := time.Now()
	_, err := db.conn.ExecContext(ctx, `
		UPDATE article_stats SET
			ctr = CASE WHEN impressions > 0 THEN opens::DOUBLE / impressions ELSE 0 END,
			quality_score = CASE WHEN impressions >= ?
				THEN least(1.0, (opens::DOUBLE / impressions) * 2 + (likes + saves)::DOUBLE / impressions)
				ELSE NULL END`,
		minImpressions)
	metrics.RecordDBQuery("update", "article_stats", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("recompute quality scores: %w", err)
	}
	return nil
}

// VectorsForTopics returns up to limit recent article embeddings from sources
// tagged with any of the given topics, newest first. Onboarding averages
// these to seed a user's initial interest vector.
func (db *DB) VectorsForTopics(ctx context.Context, topicIDs []string, limit int) ([][]float32, error) {
	if len(topicIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(topicIDs)), ",")
	args := make([]interface{}, 0, len(topicIDs)+1)
	for _, id := range topicIDs {
		args = append(args, id)
	}
	args = append(args, limit)

	rows, err := db.conn.QueryContext(ctx, `
		SELECT v.vector
		FROM article_vectors v
		JOIN articles a ON a.id = v.article_id
		WHERE a.source_id IN (
			SELECT DISTINCT source_id FROM source_topics WHERE topic_id IN (`+placeholders+`))
		ORDER BY a.published_at DESC
		LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("vectors for topics: %w", err)
	}
	defer rows.Close()

	var out [][]float32
	for rows.Next() {
		var encoded string
		if err := rows.Scan(&encoded); err != nil {
			return nil, fmt.Errorf("scan vector: %w", err)
		}
		vec, err := decodeVector(encoded)
		if err != nil {
			return nil, err
		}
		out = append(out, vec)
	}
	return out, rows.Err()
}
