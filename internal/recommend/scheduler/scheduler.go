// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tomtom215/wayfinder/internal/metrics"
	"github.com/tomtom215/wayfinder/internal/recommend"
)

// Pass results recorded in metrics.
const (
	ResultOK           = "ok"
	ResultError        = "error"
	ResultSkippedLease = "skipped_lease"
)

// Runner is the part of the Recommender the scheduler drives.
// *recommend.Recommender satisfies it.
type Runner interface {
	MarkStale(ctx context.Context) (int, error)
	ProcessQueue(ctx context.Context, opts recommend.QueueOptions) (recommend.QueueStats, error)
	CleanupHistory(ctx context.Context, batch int) (int, error)
	StatusCounts(ctx context.Context) (map[recommend.Status]int, error)
}

// Config holds scheduler settings.
type Config struct {
	// Interval is the time between passes. Default: 1m
	Interval time.Duration

	// BatchSize caps users recomputed per pass. Default: 100
	BatchSize int

	// TimeBudget stops launching runs once elapsed. Zero means no budget.
	TimeBudget time.Duration

	// Concurrency is the number of parallel runs. Default: 1
	Concurrency int

	// RunsPerSecond limits run starts. Zero means unlimited.
	RunsPerSecond float64

	// LeasePath is the host lease file. Empty disables the lease.
	LeasePath string

	// HistoryCleanupBatch is the history deletion batch size. Default: 5000
	HistoryCleanupBatch int

	// ProcessQueue enables queue processing. It mirrors cron mode: in
	// synchronous mode triggers recompute directly and the scheduler only
	// marks stale lists and cleans up history.
	ProcessQueue bool
}

// Pass summarizes one scheduler pass.
type Pass struct {
	Stale          int                  `json:"stale"`
	Queue          recommend.QueueStats `json:"queue"`
	HistoryDeleted int                  `json:"history_deleted"`
	Skipped        bool                 `json:"skipped"`
}

// Scheduler runs maintenance passes over the recommendation state. The
// periodic loop lives in the supervisor's scheduler service.
type Scheduler struct {
	runner  Runner
	config  Config
	limiter *rate.Limiter
	lease   *flock.Flock
	logger  zerolog.Logger

	// mu serializes passes so a manual pass never overlaps a tick.
	mu  sync.Mutex
	now func() time.Time
}

// New creates a scheduler. Zero config values are replaced by defaults.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func New(runner Runner, cfg Config, logger zerolog.Logger) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.HistoryCleanupBatch <= 0 {
		cfg.HistoryCleanupBatch = 5000
	}

	s := &Scheduler{
		runner: runner,
		config: cfg,
		logger: logger.With().Str("component", "scheduler").Logger(),
		now:    time.Now,
	}
	if cfg.RunsPerSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RunsPerSecond), cfg.Concurrency)
	}
	if cfg.LeasePath != "" {
		s.lease = flock.New(cfg.LeasePath)
	}
	return s
}

// Config returns the effective configuration.
func (s *Scheduler) Config() Config {
	return s.config
}

// RunOnce performs one pass. When the host lease is held elsewhere it
// returns a Pass with Skipped set and no error.
func (s *Scheduler) RunOnce(ctx context.Context) (Pass, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	release, ok, err := s.acquire()
	if err != nil {
		metrics.RecordSchedulerPass(ResultError, s.now())
		return Pass{}, err
	}
	if !ok {
		s.logger.Debug().Str("lease_path", s.config.LeasePath).Msg("lease held by another process, skipping pass")
		metrics.RecordSchedulerPass(ResultSkippedLease, s.now())
		return Pass{Skipped: true}, nil
	}
	defer release()

	start := time.Now()
	var (
		pass Pass
		errs []error
	)

	if pass.Stale, err = s.runner.MarkStale(ctx); err != nil {
		errs = append(errs, fmt.Errorf("mark stale: %w", err))
	}

	if s.config.ProcessQueue && ctx.Err() == nil {
		opts := recommend.QueueOptions{
			BatchSize:   s.config.BatchSize,
			TimeBudget:  s.config.TimeBudget,
			Concurrency: s.config.Concurrency,
		}
		if s.limiter != nil {
			opts.Limiter = s.limiter
		}
		if pass.Queue, err = s.runner.ProcessQueue(ctx, opts); err != nil {
			errs = append(errs, fmt.Errorf("process queue: %w", err))
		}
	}

	if ctx.Err() == nil {
		if pass.HistoryDeleted, err = s.runner.CleanupHistory(ctx, s.config.HistoryCleanupBatch); err != nil {
			errs = append(errs, fmt.Errorf("cleanup history: %w", err))
		}
	}

	s.publishCounts(ctx)

	if err := errors.Join(errs...); err != nil {
		metrics.RecordSchedulerPass(ResultError, s.now())
		return pass, err
	}
	metrics.RecordSchedulerPass(ResultOK, s.now())

	s.logger.Debug().
		Int("stale", pass.Stale).
		Int("selected", pass.Queue.Selected).
		Int("succeeded", pass.Queue.Succeeded).
		Int("failed", pass.Queue.Failed).
		Int("history_deleted", pass.HistoryDeleted).
		Dur("duration", time.Since(start)).
		Msg("scheduler pass complete")
	return pass, nil
}

// acquire takes the host lease if one is configured.
func (s *Scheduler) acquire() (release func(), ok bool, err error) {
	if s.lease == nil {
		return func() {}, true, nil
	}
	locked, err := s.lease.TryLock()
	if err != nil {
		return nil, false, fmt.Errorf("acquire lease %s: %w", s.config.LeasePath, err)
	}
	if !locked {
		return nil, false, nil
	}
	return func() {
		if err := s.lease.Unlock(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to release lease")
		}
	}, true, nil
}

// publishCounts exports the number of users per status.
func (s *Scheduler) publishCounts(ctx context.Context) {
	counts, err := s.runner.StatusCounts(ctx)
	if err != nil {
		s.logger.Debug().Err(err).Msg("failed to count statuses")
		return
	}
	byName := make(map[string]int, len(counts))
	for status, n := range counts {
		byName[string(status)] = n
	}
	metrics.SetUsersByStatus(byName)
}
