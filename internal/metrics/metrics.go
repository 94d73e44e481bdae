// Feedrank - Personalized Content Feed Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feedrank/feedrank

// Package metrics provides Prometheus instrumentation for the feed engine:
// API latency/throughput, DuckDB query performance, candidate pool health,
// feedback pipeline counters, and feed store efficiency.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API endpoint metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// Database metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table"},
	)

	// Ranking metrics
	CandidatePoolSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rank_candidate_pool_size",
			Help:    "Candidate count contributed per pool per request",
			Buckets: []float64{0, 5, 10, 25, 50, 100, 200, 500},
		},
		[]string{"pool"},
	)

	DegradedSignals = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rank_degraded_signals_total",
			Help: "Candidate pools that degraded to empty due to a backend error",
		},
		[]string{"pool"},
	)

	FeedRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rank_feed_request_duration_seconds",
			Help:    "End-to-end feed ranking latency in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	// Feed store metrics
	FeedStoreHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_store_hits_total",
			Help: "Materialized feed lookups served from the store",
		},
	)

	FeedStoreMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_store_misses_total",
			Help: "Materialized feed lookups that forced a recompute",
		},
	)

	// Feedback pipeline metrics
	InteractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedback_interactions_total",
			Help: "Interaction events accepted, by type",
		},
		[]string{"type"},
	)

	FeedbackUpdateErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedback_update_errors_total",
			Help: "Failed feedback updates, by stage",
		},
		[]string{"stage"},
	)

	InterestVectorUpdates = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feedback_interest_vector_updates_total",
			Help: "Successful interest vector replacements",
		},
	)

	// Embedding provider metrics
	EmbeddingRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "embedding_requests_total",
			Help: "Embedding provider calls, by outcome",
		},
		[]string{"outcome"},
	)
)

// RecordAPIRequest records a completed API request.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the active request gauge.
func TrackActiveRequest(active bool) {
	if active {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordDBQuery records a database query's duration and outcome.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}
