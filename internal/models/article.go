// Feedrank - Personalized Content Feed Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feedrank/feedrank

// Package models defines the domain records shared across the engine:
// articles, sources, topics, per-user interest state, and the interaction
// and impression event types.
package models

import "time"

// Article is an immutable content record produced by ingestion.
type Article struct {
	// ID is the unique article identifier.
	ID string `json:"id"`

	// Title is the article headline.
	Title string `json:"title"`

	// URL is the canonical article URL.
	URL string `json:"url"`

	// PublishedAt is the real or estimated publish time.
	PublishedAt time.Time `json:"published_at"`

	// DateEstimated is true when PublishedAt was estimated during ingestion
	// rather than supplied by the source.
	DateEstimated bool `json:"date_estimated"`

	// Author is the article author, if known.
	Author string `json:"author,omitempty"`

	// Summary is a short excerpt, back-filled after ingestion when missing.
	Summary string `json:"summary,omitempty"`

	// Content is the full extracted text, if available.
	Content string `json:"content,omitempty"`

	// SourceID identifies the owning feed source.
	SourceID string `json:"source_id"`
}

// Source is a syndicated feed source owning many articles.
type Source struct {
	// ID is the unique source identifier.
	ID string `json:"id"`

	// Title is the source display name.
	Title string `json:"title"`

	// SiteURL is the source's site, if known.
	SiteURL string `json:"site_url,omitempty"`

	// TopicIDs are the topics tagged on this source.
	TopicIDs []string `json:"topic_ids"`

	// Preinstalled marks vetted sources eligible for exploration.
	Preinstalled bool `json:"preinstalled"`
}

// Topic is a content category, many-to-many with Source.
type Topic struct {
	ID    string `json:"id"`
	Slug  string `json:"slug"`
	Label string `json:"label"`
}

// ArticleStats holds aggregate engagement for one article. Likes and saves
// are incremented immediately on interaction; CTR and quality are recomputed
// periodically.
type ArticleStats struct {
	ArticleID   string  `json:"article_id"`
	Impressions int64   `json:"impressions"`
	Opens       int64   `json:"opens"`
	Likes       int64   `json:"likes"`
	Saves       int64   `json:"saves"`
	CTR         float64 `json:"ctr"`

	// QualityScore is in [0, 1]; HasQuality is false until the periodic
	// recompute has produced one.
	QualityScore float64 `json:"quality_score"`
	HasQuality   bool    `json:"has_quality"`
}

// ArticleVector is a fixed-dimension embedding of one article, produced by
// the external embedding step and read-only to the engine.
type ArticleVector struct {
	ArticleID string    `json:"article_id"`
	Vector    []float32 `json:"vector"`
	Model     string    `json:"model"`
}
