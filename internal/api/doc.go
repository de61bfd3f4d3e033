// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

/*
Package api serves the Wayfinder HTTP API with the chi router.

# Endpoints

	GET  /api/v1/health/live
	GET  /api/v1/health/ready
	GET  /api/v1/recommendations/users/{userID}
	GET  /api/v1/recommendations/users/{userID}/status
	GET  /api/v1/recommendations/users/{userID}/history
	POST /api/v1/recommendations/users/{userID}/enqueue   {"priority": 0..1000}
	POST /api/v1/recommendations/users/{userID}/reset
	POST /api/v1/recommendations/reset                    {"priority": 0..1000}
	GET  /api/v1/recommendations/plugins
	GET  /api/v1/recommendations/top?window=168h&limit=10
	GET  /metrics

Every JSON response uses the APIResponse envelope:

	{"success": true, "data": {...}, "meta": {"request_id": "...", "timestamp": "..."}}

# Triggers

When a trigger publisher is configured, enqueue and reset requests are
published as trigger events and answered with 202 Accepted; the trigger
router applies them. If the publisher's circuit breaker is open the
request is applied directly instead, so admin actions keep working
while the broker is down. Without a publisher every request is applied
directly and answered with 200.

# Reports

The history and top routes read the DuckDB recommendation_history table
and are served only when history is kept in the database
(RECOMMEND_HISTORY_IN_DUCKDB). Otherwise they answer 404.

# Middleware

Request IDs, Prometheus instrumentation, access logging, panic recovery
and CORS apply to every route. The recommendation routes are also rate
limited per client IP with httprate.
*/
package api
