// Feedrank - Personalized Content Feed Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feedrank/feedrank

package engine

import "math"

// Cosine returns the cosine similarity of two vectors, or 0 when dimensions
// differ or either vector is zero.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Normalize scales a vector to unit length in place and returns it. A zero
// vector is returned unchanged.
func Normalize(v []float32) []float32 {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		return v
	}
	inv := 1 / math.Sqrt(norm)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
	return v
}

// EMAUpdate blends an article vector into the user's interest vector:
// (1-alpha)*user + alpha*weight*article, renormalized to unit length. The
// weight is signed, so negative interactions push the vector away from the
// article. Inputs are not mutated.
func EMAUpdate(user, article []float32, alpha, weight float64) []float32 {
	if len(user) != len(article) {
		return user
	}

	out := make([]float32, len(user))
	for i := range user {
		out[i] = float32((1-alpha)*float64(user[i]) + alpha*weight*float64(article[i]))
	}
	return Normalize(out)
}

// Mean averages a set of equal-dimension vectors, normalized to unit length.
// Returns nil when the set is empty.
func Mean(vectors [][]float32) []float32 {
	if len(vectors) == 0 {
		return nil
	}

	dim := len(vectors[0])
	sum := make([]float64, dim)
	for _, v := range vectors {
		if len(v) != dim {
			continue
		}
		for i, x := range v {
			sum[i] += float64(x)
		}
	}

	out := make([]float32, dim)
	inv := 1 / float64(len(vectors))
	for i, s := range sum {
		out[i] = float32(s * inv)
	}
	return Normalize(out)
}
