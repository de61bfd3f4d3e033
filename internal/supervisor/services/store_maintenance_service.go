// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package services

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

// ValueLogCollector reclaims space in a value log. *badger.DB satisfies it.
type ValueLogCollector interface {
	RunValueLogGC(discardRatio float64) error
}

// StoreMaintenanceConfig configures value-log garbage collection.
type StoreMaintenanceConfig struct {
	// Interval between collection rounds. Default: 10m
	Interval time.Duration

	// DiscardRatio is the fraction of stale data a file must hold before
	// it is rewritten. Default: 0.5
	DiscardRatio float64

	// MaxRewrites caps files rewritten per round. Default: 10
	MaxRewrites int
}

// StoreMaintenanceService runs badger value-log GC for the recommendation
// store. List swaps and history cleanup leave stale values behind that only
// GC reclaims.
type StoreMaintenanceService struct {
	db     ValueLogCollector
	config StoreMaintenanceConfig
	logger zerolog.Logger
	name   string
}

// NewStoreMaintenanceService creates the service. Zero config values are
// replaced by defaults.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewStoreMaintenanceService(db ValueLogCollector, cfg StoreMaintenanceConfig, logger zerolog.Logger) *StoreMaintenanceService {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Minute
	}
	if cfg.DiscardRatio <= 0 || cfg.DiscardRatio >= 1 {
		cfg.DiscardRatio = 0.5
	}
	if cfg.MaxRewrites <= 0 {
		cfg.MaxRewrites = 10
	}
	return &StoreMaintenanceService{
		db:     db,
		config: cfg,
		logger: logger.With().Str("service", "store-maintenance").Logger(),
		name:   "store-maintenance",
	}
}

// Serve collects on every tick until ctx is canceled.
func (s *StoreMaintenanceService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.Collect(ctx); err != nil {
				s.logger.Warn().Err(err).Msg("value log gc failed")
			}
		}
	}
}

// Collect rewrites value-log files until badger reports nothing left to
// rewrite, the cap is reached or ctx is canceled. It returns the number of
// files rewritten.
func (s *StoreMaintenanceService) Collect(ctx context.Context) (int, error) {
	rewritten := 0
	for rewritten < s.config.MaxRewrites && ctx.Err() == nil {
		err := s.db.RunValueLogGC(s.config.DiscardRatio)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrRejected) {
			break
		}
		if err != nil {
			return rewritten, err
		}
		rewritten++
	}
	if rewritten > 0 {
		s.logger.Debug().Int("rewritten", rewritten).Msg("value log gc complete")
	}
	return rewritten, nil
}

// String returns the service name for suture logs.
func (s *StoreMaintenanceService) String() string {
	return s.name
}
