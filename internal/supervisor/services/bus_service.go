// Feedrank - Personalized Content Feed Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feedrank/feedrank

package services

import (
	"context"

	"github.com/feedrank/feedrank/internal/feedback"
)

// BusService runs the feedback bus router as a supervised service.
type BusService struct {
	bus *feedback.Bus
}

// NewBusService creates the wrapper.
func NewBusService(bus *feedback.Bus) *BusService {
	return &BusService{bus: bus}
}

// Serve implements suture.Service. The router blocks until the context is
// cancelled; any other return is a crash and suture restarts it.
func (s *BusService) Serve(ctx context.Context) error {
	if err := s.bus.Run(ctx); err != nil {
		return err
	}
	return ctx.Err()
}

func (s *BusService) String() string { return "feedback-bus" }
