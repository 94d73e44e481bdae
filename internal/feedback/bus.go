// Feedrank - Personalized Content Feed Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feedrank/feedrank

package feedback

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/message/router/plugin"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/feedrank/feedrank/internal/logging"
	"github.com/feedrank/feedrank/internal/metrics"
	"github.com/feedrank/feedrank/internal/models"
)

// TopicInteractions is the bus topic carrying accepted interaction events.
const TopicInteractions = "feedback.interactions"

// Bus fans accepted interactions out to the async profile updates over an
// in-process pub/sub. Each update stage subscribes independently, so one
// stage failing or lagging never blocks the others.
type Bus struct {
	pubsub *gochannel.GoChannel
	router *message.Router
	proc   *Processor
}

// NewBus builds the pub/sub, the router, and its three handler
// subscriptions. Call Run to start consuming.
func NewBus(proc *Processor) (*Bus, error) {
	wmLogger := watermillLogger{}

	pubsub := gochannel.NewGoChannel(gochannel.Config{
		// Stage handlers subscribe separately; every stage sees every event.
		OutputChannelBuffer: 256,
	}, wmLogger)

	router, err := message.NewRouter(message.RouterConfig{
		CloseTimeout: 30 * time.Second,
	}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("create feedback router: %w", err)
	}

	router.AddPlugin(plugin.SignalsHandler)
	router.AddMiddleware(
		middleware.Recoverer,
		middleware.Retry{
			MaxRetries:      3,
			InitialInterval: 100 * time.Millisecond,
			Multiplier:      2,
			Logger:          wmLogger,
		}.Middleware,
	)

	b := &Bus{pubsub: pubsub, router: router, proc: proc}
	b.addStage(router, "topic_weights", proc.UpdateTopicWeights)
	b.addStage(router, "source_affinity", proc.UpdateSourceAffinity)
	b.addStage(router, "interest_vector", proc.UpdateInterestVector)
	return b, nil
}

// addStage registers one independent consumer for the interactions topic.
// Stage errors are counted and logged but always acked: feedback updates
// are best effort and must never wedge the queue.
func (b *Bus) addStage(router *message.Router, stage string, apply func(context.Context, *models.InteractionEvent) error) {
	router.AddNoPublisherHandler(
		"feedback_"+stage,
		TopicInteractions,
		b.pubsub,
		func(msg *message.Message) error {
			var ev models.InteractionEvent
			if err := json.Unmarshal(msg.Payload, &ev); err != nil {
				metrics.FeedbackUpdateErrors.WithLabelValues(stage).Inc()
				logging.Error().Err(err).Str("stage", stage).Msg("undecodable interaction event")
				return nil
			}

			if err := apply(msg.Context(), &ev); err != nil {
				metrics.FeedbackUpdateErrors.WithLabelValues(stage).Inc()
				logging.Warn().Err(err).
					Str("stage", stage).
					Str("user_id", ev.UserID).
					Str("article_id", ev.ArticleID).
					Msg("feedback update failed")
			}
			return nil
		},
	)
}

// Publish hands an accepted interaction to the async stages. The event is
// already durable in the interaction log; publish failures only delay
// profile convergence.
func (b *Bus) Publish(ctx context.Context, ev *models.InteractionEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode interaction event: %w", err)
	}

	msg := message.NewMessage(ev.ID, payload)
	msg.SetContext(ctx)
	if err := b.pubsub.Publish(TopicInteractions, msg); err != nil {
		return fmt.Errorf("publish interaction event: %w", err)
	}
	return nil
}

// Run starts the router and blocks until the context is cancelled.
func (b *Bus) Run(ctx context.Context) error {
	return b.router.Run(ctx)
}

// Running returns a channel closed once the router is consuming.
func (b *Bus) Running() <-chan struct{} {
	return b.router.Running()
}

// Close shuts down the router and the pub/sub.
func (b *Bus) Close() error {
	if err := b.router.Close(); err != nil {
		return err
	}
	return b.pubsub.Close()
}

// watermillLogger adapts the zerolog global logger to watermill.
type watermillLogger struct {
	fields watermill.LogFields
}

func (l watermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	l.event(logging.Error().Err(err), msg, fields)
}

func (l watermillLogger) Info(msg string, fields watermill.LogFields) {
	l.event(logging.Debug(), msg, fields) // watermill info is noise at our info level
}

func (l watermillLogger) Debug(msg string, fields watermill.LogFields) {
	l.event(logging.Debug(), msg, fields)
}

func (l watermillLogger) Trace(msg string, fields watermill.LogFields) {
	l.event(logging.Debug(), msg, fields)
}

func (l watermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return watermillLogger{fields: l.fields.Add(fields)}
}

func (l watermillLogger) event(ev *zerolog.Event, msg string, fields watermill.LogFields) {
	for k, v := range l.fields {
		ev = ev.Interface(k, v)
	}
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}
