// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

/*
Package config provides centralized configuration management for Wayfinder.

Configuration is layered with Koanf v2: built-in defaults, an optional YAML
file (config.yaml, /etc/wayfinder/config.yaml or CONFIG_PATH), then mapped
environment variables. The merged result is validated before it is returned.

# Configuration Structure

  - ServerConfig: HTTP listener, CORS and rate limiting
  - LoggingConfig: zerolog level, format and caller info
  - StorageConfig: recommendation state store (memory or badger)
  - DatabaseConfig: DuckDB content/profile/history database and seed file
  - EventsConfig: trigger bus (in-process GoChannel or NATS JetStream)
  - RecommendConfig: plugins, combine strategy, staleness, triggers, history
  - SchedulerConfig: background queue processing

# Environment Variables

Server:
  - HTTP_PORT: Listen port (default: 3860)
  - HTTP_HOST: Bind address (default: 0.0.0.0)
  - CORS_ORIGINS: Comma-separated allowed origins (default: *)
  - RATE_LIMIT_REQUESTS / RATE_LIMIT_WINDOW / DISABLE_RATE_LIMIT

Storage and database:
  - RECOMMEND_STORE: memory or badger (default: badger)
  - RECOMMEND_STORE_PATH: BadgerDB directory (default: /data/recommend)
  - RECOMMEND_HISTORY_IN_DUCKDB: write history to DuckDB (default: false)
  - DUCKDB_PATH: Database file path (default: /data/wayfinder.duckdb)
  - SEED_FILE: JSON seed applied at startup

Events:
  - EVENTS_MODE: memory or nats (default: memory)
  - NATS_URL, NATS_EMBEDDED, NATS_STREAM_NAME, NATS_SUBSCRIBERS

Recommendations:
  - RECOMMEND_ENABLED_PLUGINS: Comma-separated plugin IDs (default: all)
  - RECOMMEND_COMBINE_STRATEGY: weighted_sum, weighted_average, max, weighted_product
  - RECOMMEND_STALE_AFTER: Freshness window (default: 672h)
  - RECOMMEND_CRON_ENABLED: Only the scheduler recomputes (default: false)
  - RECOMMEND_HISTORY_RETENTION: never, forever, "30 days", 720h

Per-plugin overrides (stage weights, combine weight, candidate count and
reason) are only available from the YAML file under recommend.plugins.

# Usage Example

	cfg, err := config.Load()
	if err != nil {
	    log.Fatalf("Failed to load config: %v", err)
	}
	fmt.Printf("Starting server on %s\n", cfg.Server.Address())

# Thread Safety

The Config struct is immutable after Load() returns, making it safe for concurrent
access from multiple goroutines without synchronization.
*/
package config
