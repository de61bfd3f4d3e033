// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

/*
Package metrics provides Prometheus instrumentation for Wayfinder.

All collectors are registered with the default registry through promauto
and exposed by the API server at /metrics. Metric names carry the
wayfinder_ prefix.

# Metric Groups

  - wayfinder_duckdb_*: content and history query latency and errors
  - wayfinder_api_*: HTTP request counts, latency, in-flight requests, rate limiting
  - wayfinder_pipeline_*, wayfinder_stage_*, wayfinder_plugin_errors_total:
    pipeline runs, stage latency, plugin failures by error kind
  - wayfinder_history_entries_*, wayfinder_stale_marked_total,
    wayfinder_queue_processed_total, wayfinder_recommend_users: history
    writes and retention, staleness, queue processing, users per status
  - wayfinder_scheduler_*: background pass outcomes
  - wayfinder_events_*: trigger events published and handled
  - wayfinder_circuit_breaker_*: content repository and publisher breakers
  - wayfinder_app_*: build info and uptime

RecommendObserver implements recommend.Observer and is passed to the
orchestrator and recommender so the core packages never import Prometheus.

# Example Queries

	# p95 pipeline run latency
	histogram_quantile(0.95, rate(wayfinder_pipeline_duration_seconds_bucket[5m]))

	# failing plugins
	sum by (plugin, kind) (rate(wayfinder_plugin_errors_total[15m]))

	# queue backlog
	wayfinder_recommend_users{status="queued"}
*/
package metrics
