// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package recommend

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
)

// BreakerConfig configures the content repository circuit breaker.
type BreakerConfig struct {
	// Name labels the breaker in logs and metrics.
	Name string

	// MaxRequests is the number of trial requests in the half-open state.
	MaxRequests uint32

	// Interval resets failure counts while closed.
	Interval time.Duration

	// Timeout is how long the breaker stays open.
	Timeout time.Duration

	// FailureThreshold is the number of consecutive failures that opens it.
	FailureThreshold uint32

	// OnStateChange is called on every transition. Optional.
	OnStateChange func(name, from, to string)
}

// DefaultBreakerConfig returns the defaults used by the server.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:             "content-repository",
		MaxRequests:      3,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// BreakerRepository guards a ContentRepository and SimilarityProvider with
// a circuit breaker. Every failure, including a rejected call while the
// breaker is open, is returned as a *RepositoryUnavailableError.
type BreakerRepository struct {
	repo    ContentRepository
	similar SimilarityProvider
	cb      *gobreaker.CircuitBreaker[any]
}

var (
	_ ContentRepository  = (*BreakerRepository)(nil)
	_ SimilarityProvider = (*BreakerRepository)(nil)
)

// NewBreakerRepository wraps repo. When repo also implements
// SimilarityProvider, similarity queries share the breaker.
func NewBreakerRepository(repo ContentRepository, cfg BreakerConfig, logger zerolog.Logger) *BreakerRepository {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = DefaultBreakerConfig().FailureThreshold
	}
	log := logger.With().Str("component", "content_breaker").Str("breaker", cfg.Name).Logger()

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		// Cancellation is the caller's doing, not a repository failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("from", from.String()).Str("to", to.String()).Msg("Content repository circuit breaker state change")
			if cfg.OnStateChange != nil {
				cfg.OnStateChange(name, from.String(), to.String())
			}
		},
	}

	b := &BreakerRepository{
		repo: repo,
		cb:   gobreaker.NewCircuitBreaker[any](settings),
	}
	if s, ok := repo.(SimilarityProvider); ok {
		b.similar = s
	}
	return b
}

// State returns the breaker state name.
func (b *BreakerRepository) State() string {
	return b.cb.State().String()
}

// Find runs the query through the breaker.
func (b *BreakerRepository) Find(ctx context.Context, criteria Criteria) ([]ContentItem, error) {
	out, err := b.cb.Execute(func() (any, error) {
		return b.repo.Find(ctx, criteria)
	})
	if err != nil {
		return nil, unavailable("find", err)
	}
	items, _ := out.([]ContentItem)
	return items, nil
}

// Flagged runs the lookup through the breaker.
func (b *BreakerRepository) Flagged(ctx context.Context, contentID, userID int, flag string) (bool, error) {
	out, err := b.cb.Execute(func() (any, error) {
		return b.repo.Flagged(ctx, contentID, userID, flag)
	})
	if err != nil {
		return false, unavailable("flagged", err)
	}
	flagged, _ := out.(bool)
	return flagged, nil
}

// Similar runs the similarity query through the breaker. Without an
// underlying provider it returns no results.
func (b *BreakerRepository) Similar(ctx context.Context, contentID, limit int) ([]ScoredItem, error) {
	if b.similar == nil {
		return nil, nil
	}
	out, err := b.cb.Execute(func() (any, error) {
		return b.similar.Similar(ctx, contentID, limit)
	})
	if err != nil {
		return nil, unavailable("similar", err)
	}
	items, _ := out.([]ScoredItem)
	return items, nil
}

func unavailable(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var repoErr *RepositoryUnavailableError
	if errors.As(err, &repoErr) {
		return err
	}
	return &RepositoryUnavailableError{Op: op, Err: err}
}
