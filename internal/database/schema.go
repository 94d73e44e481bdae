// Feedrank - Personalized Content Feed Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feedrank/feedrank

package database

import (
	"context"
	"fmt"
)

// schemaStatements creates all tables and indexes. Statements are idempotent
// so reopening an existing database is safe.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS sources (
		id VARCHAR PRIMARY KEY,
		title VARCHAR NOT NULL,
		site_url VARCHAR,
		preinstalled BOOLEAN NOT NULL DEFAULT FALSE
	)`,

	`CREATE TABLE IF NOT EXISTS topics (
		id VARCHAR PRIMARY KEY,
		slug VARCHAR NOT NULL,
		label VARCHAR NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS source_topics (
		source_id VARCHAR NOT NULL,
		topic_id VARCHAR NOT NULL,
		PRIMARY KEY (source_id, topic_id)
	)`,

	`CREATE TABLE IF NOT EXISTS articles (
		id VARCHAR PRIMARY KEY,
		title VARCHAR NOT NULL,
		url VARCHAR NOT NULL,
		published_at TIMESTAMP NOT NULL,
		date_estimated BOOLEAN NOT NULL DEFAULT FALSE,
		author VARCHAR,
		summary VARCHAR,
		content VARCHAR,
		source_id VARCHAR NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_published ON articles (published_at)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_source ON articles (source_id)`,

	`CREATE TABLE IF NOT EXISTS article_stats (
		article_id VARCHAR PRIMARY KEY,
		impressions BIGINT NOT NULL DEFAULT 0,
		opens BIGINT NOT NULL DEFAULT 0,
		likes BIGINT NOT NULL DEFAULT 0,
		saves BIGINT NOT NULL DEFAULT 0,
		ctr DOUBLE NOT NULL DEFAULT 0,
		quality_score DOUBLE
	)`,

	// Vectors are stored as JSON array text and cast to FLOAT[] inside
	// similarity queries; DuckDB casts the literal directly.
	`CREATE TABLE IF NOT EXISTS article_vectors (
		article_id VARCHAR PRIMARY KEY,
		vector VARCHAR NOT NULL,
		model VARCHAR NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS user_subscriptions (
		user_id VARCHAR NOT NULL,
		source_id VARCHAR NOT NULL,
		PRIMARY KEY (user_id, source_id)
	)`,

	`CREATE TABLE IF NOT EXISTS user_hidden_sources (
		user_id VARCHAR NOT NULL,
		source_id VARCHAR NOT NULL,
		PRIMARY KEY (user_id, source_id)
	)`,

	`CREATE TABLE IF NOT EXISTS user_topic_weights (
		user_id VARCHAR NOT NULL,
		topic_id VARCHAR NOT NULL,
		weight DOUBLE NOT NULL,
		PRIMARY KEY (user_id, topic_id)
	)`,

	`CREATE TABLE IF NOT EXISTS user_source_affinities (
		user_id VARCHAR NOT NULL,
		source_id VARCHAR NOT NULL,
		weight DOUBLE NOT NULL,
		PRIMARY KEY (user_id, source_id)
	)`,

	`CREATE TABLE IF NOT EXISTS user_interest_vectors (
		user_id VARCHAR PRIMARY KEY,
		vector VARCHAR NOT NULL,
		version BIGINT NOT NULL DEFAULT 1,
		model VARCHAR NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS interaction_events (
		id VARCHAR PRIMARY KEY,
		user_id VARCHAR NOT NULL,
		article_id VARCHAR NOT NULL,
		type VARCHAR NOT NULL,
		value DOUBLE,
		created_at TIMESTAMP NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_interactions_user ON interaction_events (user_id, type)`,
	`CREATE INDEX IF NOT EXISTS idx_interactions_created ON interaction_events (created_at)`,

	`CREATE TABLE IF NOT EXISTS impression_events (
		user_id VARCHAR NOT NULL,
		feed_request_id VARCHAR NOT NULL,
		article_id VARCHAR NOT NULL,
		position INTEGER NOT NULL,
		algorithm_version VARCHAR NOT NULL,
		candidate_sources VARCHAR NOT NULL,
		shown_at TIMESTAMP NOT NULL DEFAULT now(),
		PRIMARY KEY (user_id, feed_request_id, article_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_impressions_user_shown ON impression_events (user_id, shown_at)`,
}

// initSchema creates all tables and indexes.
func (db *DB) initSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}
