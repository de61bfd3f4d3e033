// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/wayfinder/internal/recommend/scheduler"
)

// PassRunner runs one scheduler pass. *scheduler.Scheduler satisfies it.
type PassRunner interface {
	RunOnce(ctx context.Context) (scheduler.Pass, error)
}

// SchedulerService drives the recommendation scheduler on a fixed interval.
// A pass runs immediately on start so a restarted process catches up on
// the queue without waiting a full interval.
type SchedulerService struct {
	runner   PassRunner
	interval time.Duration
	logger   zerolog.Logger
	name     string
}

// NewSchedulerService creates the service. A non-positive interval
// defaults to one minute.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewSchedulerService(runner PassRunner, interval time.Duration, logger zerolog.Logger) *SchedulerService {
	if interval <= 0 {
		interval = time.Minute
	}
	return &SchedulerService{
		runner:   runner,
		interval: interval,
		logger:   logger.With().Str("service", "scheduler").Logger(),
		name:     "recommend-scheduler",
	}
}

// Serve runs passes until ctx is canceled. A failed pass is logged and the
// next tick tries again; the service only returns on cancellation.
func (s *SchedulerService) Serve(ctx context.Context) error {
	s.logger.Info().Dur("interval", s.interval).Msg("scheduler service starting")

	s.pass(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("scheduler service shutting down")
			return ctx.Err()
		case <-ticker.C:
			s.pass(ctx)
		}
	}
}

func (s *SchedulerService) pass(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	p, err := s.runner.RunOnce(ctx)
	if err != nil {
		s.logger.Warn().Err(err).
			Int("stale", p.Stale).
			Int("failed", p.Queue.Failed).
			Msg("scheduler pass failed")
		return
	}
	if p.Skipped {
		return
	}
	if p.Queue.Selected > 0 || p.Stale > 0 || p.HistoryDeleted > 0 {
		s.logger.Info().
			Int("stale", p.Stale).
			Int("selected", p.Queue.Selected).
			Int("succeeded", p.Queue.Succeeded).
			Int("failed", p.Queue.Failed).
			Int("history_deleted", p.HistoryDeleted).
			Msg("scheduler pass complete")
	}
}

// String returns the service name for suture logs.
func (s *SchedulerService) String() string {
	return s.name
}
