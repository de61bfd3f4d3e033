// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package eventbus

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"github.com/tomtom215/wayfinder/internal/config"
)

// RouterConfig holds the middleware settings of the trigger router.
type RouterConfig struct {
	CloseTimeout time.Duration

	RetryMaxRetries      int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
	RetryMultiplier      float64

	// ThrottlePerSecond limits handled messages. Zero disables it.
	ThrottlePerSecond int64

	// PoisonQueueTopic receives messages that still fail after all
	// retries. Empty disables the poison queue.
	PoisonQueueTopic string
}

// DefaultRouterConfig returns production defaults.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		CloseTimeout:         30 * time.Second,
		RetryMaxRetries:      3,
		RetryInitialInterval: 100 * time.Millisecond,
		RetryMaxInterval:     10 * time.Second,
		RetryMultiplier:      2.0,
		PoisonQueueTopic:     "wayfinder.poison",
	}
}

// RouterConfigFrom maps the events configuration.
func RouterConfigFrom(cfg *config.EventsConfig) RouterConfig {
	rc := DefaultRouterConfig()
	if cfg.RouterCloseTimeout > 0 {
		rc.CloseTimeout = cfg.RouterCloseTimeout
	}
	rc.RetryMaxRetries = cfg.RouterRetryCount
	if cfg.RouterRetryInitialInterval > 0 {
		rc.RetryInitialInterval = cfg.RouterRetryInitialInterval
	}
	rc.ThrottlePerSecond = int64(cfg.RouterThrottlePerSecond)
	rc.PoisonQueueTopic = ""
	if cfg.RouterPoisonQueueEnabled {
		rc.PoisonQueueTopic = cfg.RouterPoisonQueueTopic
	}
	return rc
}

// newRouter creates a watermill router with the trigger middleware stack.
//
// Middleware order, outermost first:
//  1. Throttle (if enabled)
//  2. Poison queue (if enabled): acks a message whose retries are exhausted
//     after forwarding it to the poison topic
//  3. Retry with exponential backoff
//  4. Recoverer: turns handler panics into errors that are retried
func newRouter(cfg RouterConfig, poisonPub message.Publisher, logger watermill.LoggerAdapter) (*message.Router, error) {
	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: cfg.CloseTimeout}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill router: %w", err)
	}

	if cfg.ThrottlePerSecond > 0 {
		router.AddMiddleware(middleware.NewThrottle(cfg.ThrottlePerSecond, time.Second).Middleware)
	}

	if poisonPub != nil && cfg.PoisonQueueTopic != "" {
		poison, err := middleware.PoisonQueue(poisonPub, cfg.PoisonQueueTopic)
		if err != nil {
			return nil, fmt.Errorf("create poison queue middleware: %w", err)
		}
		router.AddMiddleware(poison)
	}

	retry := middleware.Retry{
		MaxRetries:      cfg.RetryMaxRetries,
		InitialInterval: cfg.RetryInitialInterval,
		MaxInterval:     cfg.RetryMaxInterval,
		Multiplier:      cfg.RetryMultiplier,
		Logger:          logger,
	}
	router.AddMiddleware(retry.Middleware, middleware.Recoverer)

	return router, nil
}
