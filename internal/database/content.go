// Feedrank - Personalized Content Feed Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feedrank/feedrank

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/feedrank/feedrank/internal/metrics"
	"github.com/feedrank/feedrank/internal/models"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// UpsertSource writes or updates a source and its topic tags. Called by the
// ingestion collaborator and by tests.
func (db *DB) UpsertSource(ctx context.Context, src *models.Source) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO sources (id, title, site_url, preinstalled)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			site_url = excluded.site_url,
			preinstalled = excluded.preinstalled`,
		src.ID, src.Title, src.SiteURL, src.Preinstalled)
	if err != nil {
		return fmt.Errorf("upsert source: %w", err)
	}

	for _, topicID := range src.TopicIDs {
		_, err := db.conn.ExecContext(ctx, `
			INSERT INTO source_topics (source_id, topic_id)
			VALUES (?, ?) ON CONFLICT DO NOTHING`,
			src.ID, topicID)
		if err != nil {
			return fmt.Errorf("upsert source topic: %w", err)
		}
	}
	return nil
}

// UpsertTopic writes or updates a topic.
func (db *DB) UpsertTopic(ctx context.Context, t *models.Topic) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO topics (id, slug, label)
		VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET slug = excluded.slug, label = excluded.label`,
		t.ID, t.Slug, t.Label)
	if err != nil {
		return fmt.Errorf("upsert topic: %w", err)
	}
	return nil
}

// InsertArticle writes a committed article record from ingestion.
func (db *DB) InsertArticle(ctx context.Context, a *models.Article) error {
	start := time.Now()
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO articles (id, title, url, published_at, date_estimated, author, summary, content, source_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			summary = coalesce(excluded.summary, articles.summary),
			content = coalesce(excluded.content, articles.content)`,
		a.ID, a.Title, a.URL, a.PublishedAt, a.DateEstimated,
		nullable(a.Author), nullable(a.Summary), nullable(a.Content), a.SourceID)
	metrics.RecordDBQuery("insert", "articles", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("insert article: %w", err)
	}
	return nil
}

// GetArticle returns one article, or ErrNotFound.
func (db *DB) GetArticle(ctx context.Context, articleID string) (*models.Article, error) {
	stmt, err := db.prepared(ctx, `
		SELECT id, title, url, published_at, date_estimated,
		       coalesce(author, ''), coalesce(summary, ''), source_id
		FROM articles WHERE id = ?`)
	if err != nil {
		return nil, err
	}

	var a models.Article
	err = stmt.QueryRowContext(ctx, articleID).Scan(
		&a.ID, &a.Title, &a.URL, &a.PublishedAt, &a.DateEstimated,
		&a.Author, &a.Summary, &a.SourceID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get article: %w", err)
	}
	return &a, nil
}

// GetSource returns one source with its topic tags, or ErrNotFound.
func (db *DB) GetSource(ctx context.Context, sourceID string) (*models.Source, error) {
	var s models.Source
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, title, coalesce(site_url, ''), preinstalled
		FROM sources WHERE id = ?`, sourceID).Scan(
		&s.ID, &s.Title, &s.SiteURL, &s.Preinstalled)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get source: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT topic_id FROM source_topics WHERE source_id = ?`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("get source topics: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var topicID string
		if err := rows.Scan(&topicID); err != nil {
			return nil, fmt.Errorf("scan source topic: %w", err)
		}
		s.TopicIDs = append(s.TopicIDs, topicID)
	}
	return &s, rows.Err()
}

// TopicsBySource returns every source's topic tags in one pass. The topic
// catalog is small; candidate hydration loads it once per request.
func (db *DB) TopicsBySource(ctx context.Context) (map[string][]models.Topic, error) {
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, `
		SELECT st.source_id, t.id, t.slug, t.label
		FROM source_topics st
		JOIN topics t ON t.id = st.topic_id`)
	metrics.RecordDBQuery("select", "source_topics", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("topics by source: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]models.Topic)
	for rows.Next() {
		var sourceID string
		var t models.Topic
		if err := rows.Scan(&sourceID, &t.ID, &t.Slug, &t.Label); err != nil {
			return nil, fmt.Errorf("scan topic row: %w", err)
		}
		out[sourceID] = append(out[sourceID], t)
	}
	return out, rows.Err()
}

// PruneArticles deletes articles older than the retention window along with
// their stats and vectors. Returns the number of articles removed.
func (db *DB) PruneArticles(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM articles WHERE published_at < ?`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("prune articles: %w", err)
	}
	n, _ := res.RowsAffected()

	_, _ = db.conn.ExecContext(ctx, `
		DELETE FROM article_stats WHERE article_id NOT IN (SELECT id FROM articles)`)
	_, _ = db.conn.ExecContext(ctx, `
		DELETE FROM article_vectors WHERE article_id NOT IN (SELECT id FROM articles)`)
	return n, nil
}

// nullable maps "" to NULL for optional text columns.
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
