// Feedrank - Personalized Content Feed Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feedrank/feedrank

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/feedrank/feedrank/internal/config"
	"github.com/feedrank/feedrank/internal/middleware"
)

// NewRouter builds the chi router with the full middleware chain. Feed reads
// and write endpoints get separate rate limits because a feed fetch costs a
// full ranking pass while event writes are cheap.
func NewRouter(cfg *config.Config, h *Handlers) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.PrometheusMetrics)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(cfg.Server.RequestTimeout))

	if len(cfg.Server.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Server.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Unauthenticated surface.
	r.Get("/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	// Authenticated API.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.Auth.JWTSecret))

		r.Group(func(r chi.Router) {
			r.Use(httprate.LimitByIP(60, time.Minute))
			r.Get("/feed", h.GetFeed)
		})

		r.Group(func(r chi.Router) {
			r.Use(httprate.LimitByIP(600, time.Minute))
			r.Post("/interactions", h.PostInteraction)
			r.Post("/impressions", h.PostImpressions)
			r.Post("/onboarding/topics", h.PostOnboardingTopics)
		})
	})

	return r
}
