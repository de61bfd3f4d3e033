// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

/*
Package middleware provides the infrastructure middleware of the HTTP API.

  - RequestID: accepts or generates X-Request-ID and X-Correlation-ID and
    stores both in the request context for logging.Ctx
  - PrometheusMetrics: request counts, latency and in-flight gauge, labelled
    by chi route pattern so user IDs never become label values
  - AccessLog: one structured zerolog line per request

All middleware has the func(http.Handler) http.Handler shape used by chi:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)
	r.Use(middleware.AccessLog)

Compression and panic recovery come from chi's own middleware package.
*/
package middleware
