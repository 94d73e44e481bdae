// Feedrank - Personalized Content Feed Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feedrank/feedrank

// Package embedding wraps the external embedding provider behind a rate
// limiter and a circuit breaker, and runs the article backfill that keeps
// the vector pool populated.
package embedding

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/feedrank/feedrank/internal/config"
	"github.com/feedrank/feedrank/internal/logging"
	"github.com/feedrank/feedrank/internal/metrics"
)

// maxInputChars bounds the text sent per embedding request.
const maxInputChars = 8000

// Provider computes embeddings via the OpenAI API. All calls pass through a
// token-bucket limiter and a circuit breaker so a degraded provider slows
// the backfill instead of drowning it in timeouts.
type Provider struct {
	client  *openai.Client
	cfg     *config.EmbeddingConfig
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[[]float32]
}

// NewProvider creates a Provider from config.
func NewProvider(cfg *config.EmbeddingConfig) *Provider {
	settings := gobreaker.Settings{
		Name: "embedding",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("embedding circuit breaker state change")
		},
	}

	return &Provider{
		client:  openai.NewClient(cfg.APIKey),
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		breaker: gobreaker.NewCircuitBreaker[[]float32](settings),
	}
}

// truncateRunes caps s at max runes. Cutting on a byte offset could split a
// multi-byte rune and send invalid UTF-8 to the provider.
func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

// Embed returns the embedding for one text, truncated to the input cap.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	text = truncateRunes(text, maxInputChars)

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("embedding rate limit: %w", err)
	}

	vec, err := p.breaker.Execute(func() ([]float32, error) {
		resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input:      []string{text},
			Model:      openai.EmbeddingModel(p.cfg.Model),
			Dimensions: p.cfg.Dimensions,
		})
		if err != nil {
			return nil, err
		}
		if len(resp.Data) == 0 {
			return nil, fmt.Errorf("empty embedding response")
		}
		return resp.Data[0].Embedding, nil
	})
	if err != nil {
		metrics.EmbeddingRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("embed: %w", err)
	}

	metrics.EmbeddingRequests.WithLabelValues("ok").Inc()
	return vec, nil
}

// Model returns the configured embedding model name.
func (p *Provider) Model() string {
	return p.cfg.Model
}
