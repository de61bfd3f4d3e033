// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package config

import (
	"fmt"
	"strings"

	"github.com/tomtom215/wayfinder/internal/recommend"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateStorage,
		c.validateEvents,
		c.validateRecommend,
		c.validateScheduler,
		c.validateLogging,
	}
	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}

// validateServer validates HTTP server configuration
func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	if !c.Server.RateLimitDisabled {
		if c.Server.RateLimitReqs <= 0 {
			return fmt.Errorf("RATE_LIMIT_REQUESTS must be positive (set DISABLE_RATE_LIMIT=true to disable)")
		}
		if c.Server.RateLimitWindow <= 0 {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
		}
	}
	switch c.Server.Environment {
	case "development", "staging", "production":
	default:
		return fmt.Errorf("ENVIRONMENT must be one of: development, staging, production")
	}
	return nil
}

// validateStorage validates the recommendation state store
func (c *Config) validateStorage() error {
	switch c.Storage.Type {
	case "memory":
		return nil
	case "badger":
		if c.Storage.Path == "" {
			return fmt.Errorf("RECOMMEND_STORE_PATH is required when RECOMMEND_STORE=badger")
		}
		return nil
	default:
		return fmt.Errorf("RECOMMEND_STORE must be one of: memory, badger")
	}
}

// validateEvents validates event bus configuration (only if enabled)
func (c *Config) validateEvents() error {
	if !c.Events.Enabled {
		return nil
	}

	switch c.Events.Mode {
	case "memory":
	case "nats":
		if !c.Events.EmbeddedServer {
			if err := validateNATSURL(c.Events.URL); err != nil {
				return fmt.Errorf("NATS_URL is invalid: %w", err)
			}
		}
		if c.Events.StreamName == "" {
			return fmt.Errorf("NATS_STREAM_NAME is required when EVENTS_MODE=nats")
		}
		if c.Events.SubscribersCount < 1 {
			return fmt.Errorf("NATS_SUBSCRIBERS must be at least 1")
		}
	default:
		return fmt.Errorf("EVENTS_MODE must be one of: memory, nats")
	}

	if c.Events.RouterRetryCount < 0 {
		return fmt.Errorf("EVENTS_RETRY_COUNT must be >= 0")
	}
	if c.Events.RouterThrottlePerSecond < 0 {
		return fmt.Errorf("EVENTS_THROTTLE must be >= 0")
	}
	if c.Events.RouterPoisonQueueEnabled && c.Events.RouterPoisonQueueTopic == "" {
		return fmt.Errorf("EVENTS_POISON_TOPIC is required when the poison queue is enabled")
	}
	return nil
}

// validateRecommend validates recommendation pipeline configuration
func (c *Config) validateRecommend() error {
	r := c.Recommend

	if !isOneOf(r.CombineStrategy, recommend.Strategies()) {
		return fmt.Errorf("RECOMMEND_COMBINE_STRATEGY must be one of: %s", strings.Join(recommend.Strategies(), ", "))
	}

	templates := recommend.ReasonTemplates{Single: r.ReasonSingle, Multiple: r.ReasonMultiple}
	if err := templates.Validate(); err != nil {
		return fmt.Errorf("RECOMMEND_REASON_SINGLE/RECOMMEND_REASON_MULTIPLE: %w", err)
	}

	if r.StaleAfter <= 0 {
		return fmt.Errorf("RECOMMEND_STALE_AFTER must be positive")
	}
	if r.MinRerunInterval < 0 {
		return fmt.Errorf("RECOMMEND_MIN_RERUN_INTERVAL must be >= 0")
	}
	if r.RunTimeout < 0 {
		return fmt.Errorf("RECOMMEND_RUN_TIMEOUT must be >= 0")
	}
	if _, err := recommend.ParseRetention(r.HistoryRetention); err != nil {
		return fmt.Errorf("RECOMMEND_HISTORY_RETENTION is invalid: %w", err)
	}

	for id, p := range r.Plugins {
		if p.CombineWeight < 0 {
			return fmt.Errorf("recommend.plugins.%s.combine_weight must be >= 0", id)
		}
		if p.NumberOfCandidates < 0 {
			return fmt.Errorf("recommend.plugins.%s.number_of_candidates must be >= 0", id)
		}
		for stage := range p.Weights {
			if _, err := recommend.ParseStage(stage); err != nil {
				return fmt.Errorf("recommend.plugins.%s.weights: %w", id, err)
			}
		}
	}
	return nil
}

// validateScheduler validates background queue processing configuration
func (c *Config) validateScheduler() error {
	if !c.Scheduler.Enabled {
		return nil
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("SCHEDULER_INTERVAL must be positive")
	}
	if c.Scheduler.BatchSize < 0 {
		return fmt.Errorf("SCHEDULER_BATCH_SIZE must be >= 0")
	}
	if c.Scheduler.Concurrency < 1 {
		return fmt.Errorf("SCHEDULER_CONCURRENCY must be at least 1")
	}
	if c.Scheduler.RunsPerSecond < 0 {
		return fmt.Errorf("SCHEDULER_RUNS_PER_SECOND must be >= 0")
	}
	if c.Scheduler.TimeBudget < 0 {
		return fmt.Errorf("SCHEDULER_TIME_BUDGET must be >= 0")
	}
	if c.Scheduler.HistoryCleanupBatch < 0 {
		return fmt.Errorf("SCHEDULER_HISTORY_CLEANUP_BATCH must be >= 0")
	}
	return nil
}

var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validateLogging validates logging configuration
func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}

func isOneOf(value string, allowed []string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}
