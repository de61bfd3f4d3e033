// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

/*
Package main is the entry point for the Wayfinder server.

Wayfinder computes personalized learning content recommendations. A
pipeline of plugins generates, scores, filters and reranks candidate
content for each user; the result is stored per user and served over a
JSON API. Recomputation is triggered by lifecycle events (registration,
profile update, login), by administrators, or by the background scheduler.

# Application Architecture

	RootSupervisor ("wayfinder")
	├── DataSupervisor ("data-layer")
	│   └── Store maintenance (badger value-log GC, badger store only)
	├── MessagingSupervisor ("messaging-layer")
	│   ├── Trigger router (watermill, EVENTS_ENABLED=true only)
	│   └── Recommendation scheduler (SCHEDULER_ENABLED=true only)
	└── APISupervisor ("api-layer")
	    └── HTTP Server (chi)

Component initialization order:

 1. Configuration: Koanf v2 with environment variables and config files
 2. Logging: zerolog with JSON/console output modes
 3. State store: memory or BadgerDB (statuses, lists, history)
 4. Content database: DuckDB (content, profiles, similarity, flags)
 5. Recommendation pipeline: registry, orchestrator, recommender, scheduler
 6. Event bus: in-process GoChannel or NATS JetStream with optional embedded server
 7. Supervisor tree: Suture v4 process supervision
 8. HTTP server: chi router with middleware stack

# Configuration

Configuration is loaded via Koanf v2 with layered sources (highest priority wins):

	Priority: Environment variables > Config file > Defaults

Core environment variables:

	HTTP_PORT=3860                     # HTTP server port
	LOG_LEVEL=info                     # trace, debug, info, warn, error
	LOG_FORMAT=json                    # json or console

	RECOMMEND_STORE=badger             # memory or badger
	RECOMMEND_STORE_PATH=/data/state   # badger directory
	DUCKDB_PATH=/data/wayfinder.duckdb
	SEED_FILE=/data/seed.json          # optional content and profile seed

	RECOMMEND_CRON_ENABLED=true        # recompute only in the scheduler
	RECOMMEND_HISTORY_RETENTION="30 days"
	SCHEDULER_ENABLED=true
	SCHEDULER_INTERVAL=1m

	EVENTS_ENABLED=true
	EVENTS_MODE=nats                   # memory or nats
	NATS_URL=nats://127.0.0.1:4222
	NATS_EMBEDDED=true

# Signal Handling

The server shuts down gracefully on SIGINT and SIGTERM:

 1. The supervisor tree cancels every service
 2. The HTTP server drains in-flight requests (HTTP_SHUTDOWN_TIMEOUT)
 3. The trigger router closes; unacknowledged messages are redelivered
 4. The event bus transport, the content database and the state store close
 5. Services that failed to stop in time are reported

# Usage Examples

Development, synchronous mode with in-memory state:

	export LOG_FORMAT=console SEED_FILE=./testdata/seed.json
	go run ./cmd/server

Production, cron mode with persistent state and an embedded NATS server:

	export RECOMMEND_STORE=badger RECOMMEND_STORE_PATH=/data/state
	export RECOMMEND_CRON_ENABLED=true SCHEDULER_ENABLED=true
	export EVENTS_ENABLED=true EVENTS_MODE=nats NATS_EMBEDDED=true
	./wayfinder

# See Also

  - internal/config: Configuration management
  - internal/recommend: Pipeline, orchestrator and recommender
  - internal/supervisor: Process supervision
  - internal/api: HTTP handlers and routing
  - internal/eventbus: Trigger events
*/
package main
