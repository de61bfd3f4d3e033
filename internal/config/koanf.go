// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/wayfinder/config.yaml",
	"/etc/wayfinder/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            3860,
			Host:            "0.0.0.0",
			Timeout:         30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			Environment:     "development",
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Storage: StorageConfig{
			Type: "badger",
			Path: "/data/recommend",
		},
		Database: DatabaseConfig{
			Path:      "/data/wayfinder.duckdb",
			MaxMemory: "1GB",
			Threads:   0, // 0 = use runtime.NumCPU()
		},
		Events: EventsConfig{
			Enabled:                    true,
			Mode:                       "memory",
			URL:                        "nats://127.0.0.1:4222",
			EmbeddedServer:             true,
			StoreDir:                   "/data/nats/jetstream",
			MaxMemory:                  256 << 20, // 256MB
			MaxStore:                   1 << 30,   // 1GB
			StreamName:                 "WAYFINDER",
			StreamRetention:            7 * 24 * time.Hour,
			DurableName:                "wayfinder",
			QueueGroup:                 "wayfinder",
			SubscribersCount:           2,
			RouterRetryCount:           3,
			RouterRetryInitialInterval: 100 * time.Millisecond,
			RouterThrottlePerSecond:    0, // Unlimited
			RouterPoisonQueueEnabled:   true,
			RouterPoisonQueueTopic:     "wayfinder.poison",
			RouterCloseTimeout:         30 * time.Second,
			PublishBreakerFailures:     5,
		},
		Recommend: RecommendConfig{
			CombineStrategy:      "weighted_average",
			ReasonSingle:         "Recommended because it is %s.",
			ReasonMultiple:       "Recommended because it is %s and %s.",
			StaleAfter:           4 * 7 * 24 * time.Hour,
			MinRerunInterval:     0,
			CronEnabled:          false,
			RerankOnLoad:         false,
			BuildOnRegistration:  true,
			BuildOnProfileUpdate: true,
			BuildOnLogin:         false,
			HistoryRetention:     "forever",
			EnableDebug:          false,
			RunTimeout:           2 * time.Minute,
			BreakerFailures:      5,
			BreakerTimeout:       30 * time.Second,
		},
		Scheduler: SchedulerConfig{
			Enabled:             true,
			Interval:            time.Minute,
			BatchSize:           100,
			TimeBudget:          50 * time.Second,
			Concurrency:         4,
			RunsPerSecond:       0,
			LeasePath:           "/data/wayfinder.lock",
			HistoryCleanupBatch: 5000,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in sensible defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any mapped setting
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Post-process slice fields from comma-separated strings
	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"server.cors_origins",
	"recommend.enabled_plugins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// This is necessary because env vars come in as strings, but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// If it's already a slice (from YAML file), skip
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		if strVal, ok := val.(string); ok {
			if strVal == "" {
				continue
			}
			parts := strings.Split(strVal, ",")
			trimmed := make([]string, 0, len(parts))
			for _, p := range parts {
				p = strings.TrimSpace(p)
				if p != "" {
					trimmed = append(trimmed, p)
				}
			}
			if len(trimmed) > 0 {
				if err := k.Set(path, trimmed); err != nil {
					return fmt.Errorf("failed to set %s: %w", path, err)
				}
			}
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
var envMappings = map[string]string{
	// Server mappings
	"http_port":             "server.port",
	"http_host":             "server.host",
	"http_timeout":          "server.timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"environment":           "server.environment",
	"cors_origins":          "server.cors_origins",
	"rate_limit_requests":   "server.rate_limit_reqs",
	"rate_limit_window":     "server.rate_limit_window",
	"disable_rate_limit":    "server.rate_limit_disabled",

	// Logging mappings
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// State store mappings
	"recommend_store":             "storage.type",
	"recommend_store_path":        "storage.path",
	"recommend_history_in_duckdb": "storage.history_in_database",

	// Database mappings
	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",
	"seed_file":         "database.seed_file",

	// Event bus mappings
	"events_enabled":             "events.enabled",
	"events_mode":                "events.mode",
	"nats_url":                   "events.url",
	"nats_embedded":              "events.embedded_server",
	"nats_store_dir":             "events.store_dir",
	"nats_max_memory":            "events.max_memory",
	"nats_max_store":             "events.max_store",
	"nats_stream_name":           "events.stream_name",
	"nats_stream_retention":      "events.stream_retention",
	"nats_durable_name":          "events.durable_name",
	"nats_queue_group":           "events.queue_group",
	"nats_subscribers":           "events.subscribers_count",
	"events_retry_count":         "events.router_retry_count",
	"events_retry_interval":      "events.router_retry_initial_interval",
	"events_throttle":            "events.router_throttle_per_second",
	"events_poison_enabled":      "events.router_poison_queue_enabled",
	"events_poison_topic":        "events.router_poison_queue_topic",
	"events_close_timeout":       "events.router_close_timeout",
	"events_publish_breaker_max": "events.publish_breaker_failures",

	// Recommendation mappings
	"recommend_enabled_plugins":         "recommend.enabled_plugins",
	"recommend_combine_strategy":        "recommend.combine_strategy",
	"recommend_reason_single":           "recommend.reason_single",
	"recommend_reason_multiple":         "recommend.reason_multiple",
	"recommend_stale_after":             "recommend.stale_after",
	"recommend_min_rerun_interval":      "recommend.min_rerun_interval",
	"recommend_cron_enabled":            "recommend.cron_enabled",
	"recommend_rerank_on_load":          "recommend.rerank_on_load",
	"recommend_build_on_registration":   "recommend.build_on_registration",
	"recommend_build_on_profile_update": "recommend.build_on_profile_update",
	"recommend_build_on_login":          "recommend.build_on_login",
	"recommend_history_retention":       "recommend.history_retention",
	"recommend_enable_debug":            "recommend.enable_debug",
	"recommend_run_timeout":             "recommend.run_timeout",
	"recommend_seed":                    "recommend.seed",
	"recommend_breaker_failures":        "recommend.breaker_failures",
	"recommend_breaker_timeout":         "recommend.breaker_timeout",

	// Scheduler mappings
	"scheduler_enabled":               "scheduler.enabled",
	"scheduler_interval":              "scheduler.interval",
	"scheduler_batch_size":            "scheduler.batch_size",
	"scheduler_time_budget":           "scheduler.time_budget",
	"scheduler_concurrency":           "scheduler.concurrency",
	"scheduler_runs_per_second":       "scheduler.runs_per_second",
	"scheduler_lease_path":            "scheduler.lease_path",
	"scheduler_history_cleanup_batch": "scheduler.history_cleanup_batch",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - HTTP_PORT -> server.port
//   - DUCKDB_PATH -> database.path
//   - RECOMMEND_CRON_ENABLED -> recommend.cron_enabled
//   - RECOMMEND_STALE_AFTER -> recommend.stale_after
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}

	// For unmapped keys, return empty string to skip them
	// This prevents random environment variables from polluting config
	return ""
}
