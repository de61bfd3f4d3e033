// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package config

import (
	"time"
)

// Config holds all application configuration loaded from defaults, an
// optional YAML file and environment variables.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in sensible defaults for all optional settings
//  2. Config File: Optional YAML config file (config.yaml)
//  3. Environment Variables: Override any mapped setting
//
// Configuration Categories:
//
//  1. Infrastructure:
//     - Server: HTTP server (port, host, timeouts, CORS, rate limiting)
//     - Storage: Recommendation state store (memory or BadgerDB)
//     - Database: DuckDB content, profile and history database
//     - Events: Trigger bus (in-process or NATS JetStream)
//
//  2. Recommendations:
//     - Recommend: Plugins, combine strategy, staleness, triggers, history
//     - Scheduler: Background queue processing in cron mode
//
//  3. Observability:
//     - Logging: Log levels and output formats
//
// Thread Safety:
// Config is immutable after Load() and safe for concurrent read access.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
	Storage   StorageConfig   `koanf:"storage"`
	Database  DatabaseConfig  `koanf:"database"`
	Events    EventsConfig    `koanf:"events"`
	Recommend RecommendConfig `koanf:"recommend"`
	Scheduler SchedulerConfig `koanf:"scheduler"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"` // development, staging, production

	// CORSOrigins lists allowed origins. "*" allows any origin.
	CORSOrigins []string `koanf:"cors_origins"`

	// RateLimitReqs is the number of requests allowed per IP per window.
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// LoggingConfig holds logging settings for zerolog.
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: true/false - include caller file:line (default: false)
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is the output format: json or console.
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	Caller bool `koanf:"caller"`
}

// StorageConfig selects the store for status records, current lists and
// (when no database history is used) recommendation history.
//
// Environment Variables:
//   - RECOMMEND_STORE: memory or badger (default: badger)
//   - RECOMMEND_STORE_PATH: BadgerDB directory (default: /data/recommend)
type StorageConfig struct {
	Type string `koanf:"type"`
	Path string `koanf:"path"`

	// HistoryInDatabase writes recommendation history to DuckDB instead of
	// the state store.
	HistoryInDatabase bool `koanf:"history_in_database"`
}

// DatabaseConfig holds DuckDB settings
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"`   // Number of DuckDB threads (0 = use NumCPU)
	SeedFile  string `koanf:"seed_file"` // Optional JSON seed loaded at startup
}

// EventsConfig holds trigger bus settings.
//
// Mode "memory" uses an in-process GoChannel; "nats" uses NATS JetStream,
// optionally served by an embedded server.
type EventsConfig struct {
	// Enabled controls whether trigger events are consumed.
	Enabled bool `koanf:"enabled"`

	// Mode is memory or nats.
	Mode string `koanf:"mode"`

	// URL is the NATS server connection URL.
	URL string `koanf:"url"`

	// EmbeddedServer starts an in-process NATS server.
	EmbeddedServer bool `koanf:"embedded_server"`

	// StoreDir is the JetStream storage directory of the embedded server.
	StoreDir string `koanf:"store_dir"`

	// MaxMemory is the maximum memory for JetStream in bytes.
	MaxMemory int64 `koanf:"max_memory"`

	// MaxStore is the maximum disk storage for JetStream in bytes.
	MaxStore int64 `koanf:"max_store"`

	// StreamName is the JetStream stream holding trigger subjects.
	StreamName string `koanf:"stream_name"`

	// StreamRetention is how long trigger events are kept.
	StreamRetention time.Duration `koanf:"stream_retention"`

	// DurableName is the consumer durable name prefix.
	DurableName string `koanf:"durable_name"`

	// QueueGroup is the queue group for load balancing.
	QueueGroup string `koanf:"queue_group"`

	// SubscribersCount is the number of concurrent message processors.
	SubscribersCount int `koanf:"subscribers_count"`

	// RouterRetryCount is the maximum number of retries for failed messages.
	RouterRetryCount int `koanf:"router_retry_count"`

	// RouterRetryInitialInterval is the initial backoff interval for retries.
	RouterRetryInitialInterval time.Duration `koanf:"router_retry_initial_interval"`

	// RouterThrottlePerSecond limits messages processed per second (0 = unlimited).
	RouterThrottlePerSecond int `koanf:"router_throttle_per_second"`

	// RouterPoisonQueueEnabled routes permanently failed messages to a poison topic.
	RouterPoisonQueueEnabled bool `koanf:"router_poison_queue_enabled"`

	// RouterPoisonQueueTopic is the topic for permanently failed messages.
	RouterPoisonQueueTopic string `koanf:"router_poison_queue_topic"`

	// RouterCloseTimeout is the maximum time to wait for graceful router shutdown.
	RouterCloseTimeout time.Duration `koanf:"router_close_timeout"`

	// PublishBreakerFailures is the number of consecutive publish failures
	// that opens the publisher circuit breaker.
	PublishBreakerFailures uint32 `koanf:"publish_breaker_failures"`
}

// RecommendConfig holds recommendation pipeline settings.
//
// Example - YAML:
//
//	recommend:
//	  enabled_plugins: [new_content, trending, user_interests, revision]
//	  combine_strategy: weighted_sum
//	  history_retention: "30 days"
//	  plugins:
//	    trending:
//	      combine_weight: 2
//	      number_of_candidates: 10
//	    revision:
//	      weights:
//	        rerank_candidates: 50
type RecommendConfig struct {
	// EnabledPlugins restricts the registry. Empty enables every plugin.
	EnabledPlugins []string `koanf:"enabled_plugins"`

	// Plugins holds per-plugin overrides keyed by plugin ID.
	Plugins map[string]PluginConfig `koanf:"plugins"`

	// CombineStrategy is weighted_sum, weighted_average, max or weighted_product.
	CombineStrategy string `koanf:"combine_strategy"`

	// ReasonSingle and ReasonMultiple are the reason templates.
	ReasonSingle   string `koanf:"reason_single"`
	ReasonMultiple string `koanf:"reason_multiple"`

	// StaleAfter is the freshness window of a Ready list.
	StaleAfter time.Duration `koanf:"stale_after"`

	// MinRerunInterval is the minimum time between two runs for one user.
	MinRerunInterval time.Duration `koanf:"min_rerun_interval"`

	// CronEnabled restricts recomputation to the background scheduler.
	CronEnabled bool `koanf:"cron_enabled"`

	// RerankOnLoad applies the rerank stage when a stored list is served.
	RerankOnLoad bool `koanf:"rerank_on_load"`

	BuildOnRegistration  bool `koanf:"build_on_registration"`
	BuildOnProfileUpdate bool `koanf:"build_on_profile_update"`
	BuildOnLogin         bool `koanf:"build_on_login"`

	// HistoryRetention is never, forever, a Go duration or "N days|weeks".
	HistoryRetention string `koanf:"history_retention"`

	// EnableDebug logs per-stage timings at info level.
	EnableDebug bool `koanf:"enable_debug"`

	// RunTimeout bounds a single pipeline run.
	RunTimeout time.Duration `koanf:"run_timeout"`

	// Seed seeds plugin randomness. Zero seeds from the clock.
	Seed int64 `koanf:"seed"`

	// BreakerFailures is the number of consecutive content repository
	// failures that opens the circuit breaker.
	BreakerFailures uint32 `koanf:"breaker_failures"`

	// BreakerTimeout is how long the breaker stays open.
	BreakerTimeout time.Duration `koanf:"breaker_timeout"`
}

// PluginConfig holds the overrides of one plugin.
type PluginConfig struct {
	// Weights overrides the per-stage ordering weight, keyed by stage name.
	Weights map[string]int `koanf:"weights"`

	// CombineWeight is the plugin's weight in the combine strategy.
	// Zero keeps the default of 1.
	CombineWeight float64 `koanf:"combine_weight"`

	// NumberOfCandidates is the generation size. Zero keeps the default.
	NumberOfCandidates int `koanf:"number_of_candidates"`

	// Reason is the human-readable reason. Empty keeps the default.
	Reason string `koanf:"reason"`
}

// SchedulerConfig holds background queue processing settings.
//
// Environment Variables:
//   - SCHEDULER_INTERVAL: tick interval (default: 1m)
//   - SCHEDULER_BATCH_SIZE: users per pass (default: 100)
//   - SCHEDULER_CONCURRENCY: parallel runs (default: 4)
//   - SCHEDULER_LEASE_PATH: host lease file, empty disables (default: /data/wayfinder.lock)
type SchedulerConfig struct {
	// Enabled starts the scheduler. Queue processing only happens when
	// recommend.cron_enabled is also true; stale marking and history
	// cleanup run regardless.
	Enabled bool `koanf:"enabled"`

	Interval            time.Duration `koanf:"interval"`
	BatchSize           int           `koanf:"batch_size"`
	TimeBudget          time.Duration `koanf:"time_budget"`
	Concurrency         int           `koanf:"concurrency"`
	RunsPerSecond       float64       `koanf:"runs_per_second"` // 0 = unlimited
	LeasePath           string        `koanf:"lease_path"`
	HistoryCleanupBatch int           `koanf:"history_cleanup_batch"`
}

// Load loads configuration using Koanf (defaults, file, env).
func Load() (*Config, error) {
	return LoadWithKoanf()
}

// Address returns the HTTP listen address.
func (s ServerConfig) Address() string {
	return joinHostPort(s.Host, s.Port)
}

// IsProduction reports whether the server runs in production mode.
func (s ServerConfig) IsProduction() bool {
	return s.Environment == "production"
}
