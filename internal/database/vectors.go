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
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/feedrank/feedrank/internal/metrics"
	"github.com/feedrank/feedrank/internal/models"
)

// ErrVersionConflict is returned when a version-guarded interest vector
// replace loses the race. Callers re-read and retry.
var ErrVersionConflict = errors.New("interest vector version conflict")

// encodeVector serializes a vector as a JSON array literal. DuckDB casts the
// text directly to FLOAT[] inside similarity queries.
func encodeVector(v []float32) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode vector: %w", err)
	}
	return string(b), nil
}

func decodeVector(s string) ([]float32, error) {
	var v []float32
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, fmt.Errorf("decode vector: %w", err)
	}
	return v, nil
}

// UpsertArticleVector stores an article embedding.
func (db *DB) UpsertArticleVector(ctx context.Context, av *models.ArticleVector) error {
	encoded, err := encodeVector(av.Vector)
	if err != nil {
		return err
	}

	start := time.Now()
	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO article_vectors (article_id, vector, model)
		VALUES (?, ?, ?)
		ON CONFLICT (article_id) DO UPDATE SET
			vector = excluded.vector, model = excluded.model`,
		av.ArticleID, encoded, av.Model)
	metrics.RecordDBQuery("upsert", "article_vectors", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("upsert article vector: %w", err)
	}
	return nil
}

// GetArticleVector returns one article embedding, or ErrNotFound.
func (db *DB) GetArticleVector(ctx context.Context, articleID string) (*models.ArticleVector, error) {
	stmt, err := db.prepared(ctx,
		`SELECT vector, model FROM article_vectors WHERE article_id = ?`)
	if err != nil {
		return nil, err
	}

	var encoded, model string
	err = stmt.QueryRowContext(ctx, articleID).Scan(&encoded, &model)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get article vector: %w", err)
	}

	vec, err := decodeVector(encoded)
	if err != nil {
		return nil, err
	}
	return &models.ArticleVector{ArticleID: articleID, Vector: vec, Model: model}, nil
}

// ArticlesMissingVectors returns IDs of recent articles without a stored
// embedding, newest first: fresh articles dominate the candidate pools, so
// they are the ones that need vectors soonest.
func (db *DB) ArticlesMissingVectors(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	stmt, err := db.prepared(ctx, `
		SELECT a.id FROM articles a
		LEFT JOIN article_vectors v ON v.article_id = a.id
		WHERE v.article_id IS NULL AND a.published_at >= ?
		ORDER BY a.published_at DESC
		LIMIT ?`)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.QueryContext(ctx, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("articles missing vectors: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan article id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// ArticleVectors returns the stored embeddings for a set of article IDs.
// Articles without an embedding are simply absent from the result.
func (db *DB) ArticleVectors(ctx context.Context, ids []string) (map[string][]float32, error) {
	if len(ids) == 0 {
		return map[string][]float32{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx,
		`SELECT article_id, vector FROM article_vectors WHERE article_id IN (`+placeholders+`)`,
		args...)
	metrics.RecordDBQuery("select", "article_vectors", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("article vectors: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]float32, len(ids))
	for rows.Next() {
		var id, encoded string
		if err := rows.Scan(&id, &encoded); err != nil {
			return nil, fmt.Errorf("scan article vector: %w", err)
		}
		vec, err := decodeVector(encoded)
		if err != nil {
			return nil, err
		}
		out[id] = vec
	}
	return out, rows.Err()
}

// Neighbor is one vector search hit.
type Neighbor struct {
	ArticleID  string
	Similarity float64
}

// VectorNeighbors runs cosine k-NN over recent article embeddings against the
// query vector and returns hits above minSimilarity, best first.
func (db *DB) VectorNeighbors(ctx context.Context, query []float32, cutoff time.Time, minSimilarity float64, limit int) ([]Neighbor, error) {
	encoded, err := encodeVector(query)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	stmt, err := db.prepared(ctx, `
		SELECT v.article_id,
		       list_cosine_similarity(v.vector::FLOAT[], ?::FLOAT[]) AS sim
		FROM article_vectors v
		JOIN articles a ON a.id = v.article_id
		WHERE a.published_at >= ?
		  AND list_cosine_similarity(v.vector::FLOAT[], ?::FLOAT[]) > ?
		ORDER BY sim DESC
		LIMIT ?`)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.QueryContext(ctx, encoded, cutoff, encoded, minSimilarity, limit)
	metrics.RecordDBQuery("select", "article_vectors", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("vector neighbors: %w", err)
	}
	defer rows.Close()

	var out []Neighbor
	for rows.Next() {
		var n Neighbor
		if err := rows.Scan(&n.ArticleID, &n.Similarity); err != nil {
			return nil, fmt.Errorf("scan neighbor: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// GetUserVector returns the user's interest vector, or ErrNotFound when the
// user has no vector yet.
func (db *DB) GetUserVector(ctx context.Context, userID string) (*models.UserInterestVector, error) {
	stmt, err := db.prepared(ctx,
		`SELECT vector, version, model FROM user_interest_vectors WHERE user_id = ?`)
	if err != nil {
		return nil, err
	}

	var encoded, model string
	var version int64
	err = stmt.QueryRowContext(ctx, userID).Scan(&encoded, &version, &model)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user vector: %w", err)
	}

	vec, err := decodeVector(encoded)
	if err != nil {
		return nil, err
	}
	return &models.UserInterestVector{
		UserID: userID, Vector: vec, Version: version, Model: model,
	}, nil
}

// InsertUserVector creates a user's initial interest vector at version 1.
// Returns ErrVersionConflict if a vector already exists.
func (db *DB) InsertUserVector(ctx context.Context, userID string, vec []float32, model string) error {
	encoded, err := encodeVector(vec)
	if err != nil {
		return err
	}

	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO user_interest_vectors (user_id, vector, version, model)
		VALUES (?, ?, 1, ?)
		ON CONFLICT DO NOTHING`,
		userID, encoded, model)
	if err != nil {
		return fmt.Errorf("insert user vector: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrVersionConflict
	}
	return nil
}

// ReplaceUserVector swaps the user's interest vector only if the stored
// version still matches expectedVersion. Returns ErrVersionConflict when a
// concurrent writer won; the feedback processor re-reads and retries.
func (db *DB) ReplaceUserVector(ctx context.Context, userID string, vec []float32, expectedVersion int64) error {
	encoded, err := encodeVector(vec)
	if err != nil {
		return err
	}

	start := time.Now()
	res, err := db.conn.ExecContext(ctx, `
		UPDATE user_interest_vectors
		SET vector = ?, version = version + 1
		WHERE user_id = ? AND version = ?`,
		encoded, userID, expectedVersion)
	metrics.RecordDBQuery("update", "user_interest_vectors", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("replace user vector: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrVersionConflict
	}
	return nil
}
