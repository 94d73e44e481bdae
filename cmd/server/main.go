// Feedrank - Personalized Content Feed Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feedrank/feedrank

// Package main is the entry point for the Feedrank server.
//
// Feedrank serves personalized article feeds: candidates are generated from
// subscriptions, learned topic weights, interest-vector similarity, and
// global trending; scored with a hybrid multi-signal formula; diversified
// with greedy MMR selection; and interleaved with exploration items from
// unfamiliar sources. User interactions stream back through an in-process
// bus that updates topic weights, source affinities, and the interest
// vector online.
//
// # Startup order
//
//  1. Configuration: koanf v2 layering defaults, config.yaml, FEEDRANK_ env vars
//  2. Logging: zerolog global logger
//  3. DuckDB: content index, interest store, event logs
//  4. Badger: materialized feed store
//  5. Feedback bus: watermill router with the three profile-update stages
//  6. Embedding provider (optional): article backfill workers
//  7. HTTP server: chi router under the suture supervision tree
//
// # Signal handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the HTTP server drains
// in-flight requests, the bus router closes, and both stores are released.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/feedrank/feedrank/internal/api"
	"github.com/feedrank/feedrank/internal/cache"
	"github.com/feedrank/feedrank/internal/config"
	"github.com/feedrank/feedrank/internal/database"
	"github.com/feedrank/feedrank/internal/embedding"
	"github.com/feedrank/feedrank/internal/engine"
	"github.com/feedrank/feedrank/internal/feedback"
	"github.com/feedrank/feedrank/internal/feedstore"
	"github.com/feedrank/feedrank/internal/logging"
	"github.com/feedrank/feedrank/internal/supervisor"
	"github.com/feedrank/feedrank/internal/supervisor/services"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "feedrank: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().Str("version", version).Msg("feedrank starting")

	db, err := database.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	feeds, err := feedstore.New(&cfg.FeedStore)
	if err != nil {
		return fmt.Errorf("open feed store: %w", err)
	}
	defer feeds.Close()

	trendingCache := cache.New(5 * time.Minute)

	eng := engine.New(&cfg.Ranking, db, feeds, trendingCache, nil)

	proc := feedback.NewProcessor(db, &cfg.Feedback, cfg.Embedding.Model)
	bus, err := feedback.NewBus(proc)
	if err != nil {
		return fmt.Errorf("create feedback bus: %w", err)
	}
	defer bus.Close()

	handlers := api.NewHandlers(eng, proc, bus, db, &cfg.Ranking, version)
	router := api.NewRouter(cfg, handlers)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	tree := supervisor.NewTree(
		slog.New(slog.NewJSONHandler(os.Stdout, nil)),
		supervisor.TreeConfig{ShutdownTimeout: cfg.Server.ShutdownTimeout},
	)
	tree.AddAPIService(services.NewHTTPService(server, cfg.Server.ShutdownTimeout))
	tree.AddBackgroundService(services.NewBusService(bus))
	tree.AddBackgroundService(services.NewStatsService(db, 15*time.Minute))

	if cfg.Embedding.Enabled {
		provider := embedding.NewProvider(&cfg.Embedding)
		backfiller := embedding.NewBackfiller(db, provider, &cfg.Embedding, cfg.Ranking.MaxAgeDays)
		tree.AddBackgroundService(services.NewBackfillService(
			backfiller, cfg.Embedding.BackfillInterval, cfg.Embedding.BackfillBatch))
	} else {
		logging.Info().Msg("embedding provider disabled, vector pool will stay cold")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("addr", server.Addr).Msg("serving")
	if err := tree.Serve(ctx); err != nil && err != context.Canceled {
		return err
	}
	logging.Info().Msg("feedrank stopped")
	return nil
}
