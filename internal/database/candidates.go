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

// CandidateRow is one hydrated candidate: the article plus the source and
// stats fields scoring needs. Topic tags are attached by the generator from
// TopicsBySource.
type CandidateRow struct {
	Article       models.Article
	SourceTitle   string
	SourceSiteURL string
	Preinstalled  bool
	Stats         models.ArticleStats
}

// candidateSelect is the shared projection for candidate pool queries.
const candidateSelect = `
	SELECT a.id, a.title, a.url, a.published_at, a.date_estimated,
	       coalesce(a.author, ''), coalesce(a.summary, ''), a.source_id,
	       s.title, coalesce(s.site_url, ''), s.preinstalled,
	       coalesce(st.impressions, 0), coalesce(st.opens, 0),
	       coalesce(st.likes, 0), coalesce(st.saves, 0),
	       coalesce(st.ctr, 0), coalesce(st.quality_score, 0),
	       st.quality_score IS NOT NULL
	FROM articles a
	JOIN sources s ON s.id = a.source_id
	LEFT JOIN article_stats st ON st.article_id = a.id`

// scanCandidates reads candidate rows from a pool query.
func scanCandidates(rows rowScanner) ([]CandidateRow, error) {
	var out []CandidateRow
	for rows.Next() {
		var c CandidateRow
		err := rows.Scan(
			&c.Article.ID, &c.Article.Title, &c.Article.URL,
			&c.Article.PublishedAt, &c.Article.DateEstimated,
			&c.Article.Author, &c.Article.Summary, &c.Article.SourceID,
			&c.SourceTitle, &c.SourceSiteURL, &c.Preinstalled,
			&c.Stats.Impressions, &c.Stats.Opens,
			&c.Stats.Likes, &c.Stats.Saves,
			&c.Stats.CTR, &c.Stats.QualityScore, &c.Stats.HasQuality)
		if err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		c.Stats.ArticleID = c.Article.ID
		out = append(out, c)
	}
	return out, rows.Err()
}

// rowScanner abstracts *sql.Rows for scanCandidates.
type rowScanner interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// SubscribedCandidates returns recent articles from the user's subscribed
// sources, newest first.
func (db *DB) SubscribedCandidates(ctx context.Context, userID string, cutoff time.Time, limit int) ([]CandidateRow, error) {
	start := time.Now()
	stmt, err := db.prepared(ctx, candidateSelect+`
		WHERE a.published_at >= ?
		  AND a.source_id IN (SELECT source_id FROM user_subscriptions WHERE user_id = ?)
		ORDER BY a.published_at DESC
		LIMIT ?`)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.QueryContext(ctx, cutoff, userID, limit)
	metrics.RecordDBQuery("select", "articles", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("subscribed candidates: %w", err)
	}
	defer rows.Close()
	return scanCandidates(rows)
}

// TopicCandidates returns recent articles from sources tagged with any topic
// the user holds a strictly positive weight for.
func (db *DB) TopicCandidates(ctx context.Context, userID string, cutoff time.Time, limit int) ([]CandidateRow, error) {
	start := time.Now()
	stmt, err := db.prepared(ctx, candidateSelect+`
		WHERE a.published_at >= ?
		  AND a.source_id IN (
			SELECT DISTINCT sot.source_id
			FROM source_topics sot
			JOIN user_topic_weights w ON w.topic_id = sot.topic_id
			WHERE w.user_id = ? AND w.weight > 0)
		ORDER BY a.published_at DESC
		LIMIT ?`)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.QueryContext(ctx, cutoff, userID, limit)
	metrics.RecordDBQuery("select", "articles", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("topic candidates: %w", err)
	}
	defer rows.Close()
	return scanCandidates(rows)
}

// CandidatesByIDs hydrates a set of article IDs (vector pool, trending pool).
func (db *DB) CandidatesByIDs(ctx context.Context, ids []string) ([]CandidateRow, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx,
		candidateSelect+` WHERE a.id IN (`+placeholders+`)`, args...)
	metrics.RecordDBQuery("select", "articles", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("candidates by ids: %w", err)
	}
	defer rows.Close()
	return scanCandidates(rows)
}

// TrendingIDs returns article IDs with nonzero likes or opens inside the
// trailing window, ranked by the weighted engagement sum
// likes*3 + saves*5 + opens, capped to limit.
func (db *DB) TrendingIDs(ctx context.Context, window time.Duration, limit int) ([]string, error) {
	since := time.Now().Add(-window)

	start := time.Now()
	stmt, err := db.prepared(ctx, `
		SELECT article_id,
		       sum(CASE type WHEN 'LIKE' THEN 3 WHEN 'SAVE' THEN 5 WHEN 'OPEN' THEN 1 ELSE 0 END) AS engagement
		FROM interaction_events
		WHERE created_at >= ? AND type IN ('LIKE', 'SAVE', 'OPEN')
		GROUP BY article_id
		HAVING sum(CASE WHEN type IN ('LIKE', 'OPEN') THEN 1 ELSE 0 END) > 0
		ORDER BY engagement DESC
		LIMIT ?`)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.QueryContext(ctx, since, limit)
	metrics.RecordDBQuery("select", "interaction_events", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("trending ids: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		var engagement int64
		if err := rows.Scan(&id, &engagement); err != nil {
			return nil, fmt.Errorf("scan trending row: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// ExplorationCandidates returns recent articles from preinstalled sources
// not present in excludeSources, shuffled downstream by the injector.
func (db *DB) ExplorationCandidates(ctx context.Context, cutoff time.Time, excludeSources map[string]struct{}, limit int) ([]CandidateRow, error) {
	query := candidateSelect + `
		WHERE a.published_at >= ? AND s.preinstalled`
	args := []interface{}{cutoff}

	if len(excludeSources) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(excludeSources)), ",")
		query += ` AND a.source_id NOT IN (` + placeholders + `)`
		for id := range excludeSources {
			args = append(args, id)
		}
	}
	query += ` ORDER BY a.published_at DESC LIMIT ?`
	args = append(args, limit)

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, query, args...)
	metrics.RecordDBQuery("select", "articles", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("exploration candidates: %w", err)
	}
	defer rows.Close()
	return scanCandidates(rows)
}
