// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wayfinder_duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wayfinder_duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wayfinder_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wayfinder_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wayfinder_api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wayfinder_api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Pipeline Metrics
	RecommendRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wayfinder_pipeline_runs_total",
			Help: "Total number of pipeline runs by result",
		},
		[]string{"result"}, // success, error, superseded
	)

	RecommendRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wayfinder_pipeline_duration_seconds",
			Help:    "Duration of pipeline runs in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	RecommendRetrieved = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wayfinder_recommendations_retrieved",
			Help:    "Number of candidates retrieved per run",
			Buckets: []float64{0, 5, 10, 25, 50, 100, 250, 500},
		},
	)

	RecommendStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wayfinder_stage_duration_seconds",
			Help:    "Duration of pipeline stages in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"stage"},
	)

	RecommendPluginFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wayfinder_plugin_errors_total",
			Help: "Total number of plugin invocations skipped after an error",
		},
		[]string{"plugin", "stage", "kind"},
	)

	RecommendHistoryWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wayfinder_history_entries_written_total",
			Help: "Total number of history entries written",
		},
	)

	RecommendHistoryDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wayfinder_history_entries_deleted_total",
			Help: "Total number of history entries removed by retention",
		},
	)

	RecommendStaleMarked = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wayfinder_stale_marked_total",
			Help: "Total number of users marked stale",
		},
	)

	RecommendQueueProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wayfinder_queue_processed_total",
			Help: "Total number of queued users processed by result",
		},
		[]string{"result"}, // success, error, skipped
	)

	RecommendUsersByStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "wayfinder_recommend_users",
			Help: "Number of users per recommendation status",
		},
		[]string{"status"},
	)

	// Scheduler Metrics
	SchedulerPasses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wayfinder_scheduler_passes_total",
			Help: "Total number of scheduler passes by result",
		},
		[]string{"result"}, // ok, error, skipped_lease
	)

	SchedulerLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wayfinder_scheduler_last_success_timestamp",
			Help: "Unix timestamp of the last successful scheduler pass",
		},
	)

	// Trigger Event Metrics
	TriggersPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wayfinder_events_published_total",
			Help: "Total number of trigger events published",
		},
		[]string{"topic"},
	)

	TriggersConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wayfinder_events_handled_total",
			Help: "Total number of trigger events consumed by result",
		},
		[]string{"topic", "result"}, // handled, rejected, failed
	)

	TriggerProcessingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wayfinder_event_processing_duration_seconds",
			Help:    "Duration of trigger event handling in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "wayfinder_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wayfinder_circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "wayfinder_app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wayfinder_app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// RecordDBQuery records a database query metric
func RecordDBQuery(operation string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation).Inc()
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordRateLimitHit records a request rejected by the rate limiter.
func RecordRateLimitHit(endpoint string) {
	APIRateLimitHits.WithLabelValues(endpoint).Inc()
}

// SetAppInfo publishes build information.
func SetAppInfo(version, goVersion string) {
	AppInfo.WithLabelValues(version, goVersion).Set(1)
}

// RecordSchedulerPass records the outcome of one scheduler pass.
func RecordSchedulerPass(result string, at time.Time) {
	SchedulerPasses.WithLabelValues(result).Inc()
	if result == "ok" {
		SchedulerLastSuccess.Set(float64(at.Unix()))
	}
}

// RecordTriggerPublished records a published trigger event.
func RecordTriggerPublished(topic string) {
	TriggersPublished.WithLabelValues(topic).Inc()
}

// RecordTriggerConsumed records the handling outcome of a trigger event.
func RecordTriggerConsumed(topic, result string, duration time.Duration) {
	TriggersConsumed.WithLabelValues(topic, result).Inc()
	TriggerProcessingDuration.Observe(duration.Seconds())
}

// SetUsersByStatus replaces the per-status user gauge.
func SetUsersByStatus(counts map[string]int) {
	RecommendUsersByStatus.Reset()
	for status, n := range counts {
		RecommendUsersByStatus.WithLabelValues(status).Set(float64(n))
	}
}

// breakerStateValue maps gobreaker state names to the gauge encoding.
func breakerStateValue(state string) float64 {
	switch state {
	case "half-open":
		return 1
	case "open":
		return 2
	default:
		return 0
	}
}

// RecordBreakerTransition records a circuit breaker state change. Its
// signature matches recommend.BreakerConfig.OnStateChange.
func RecordBreakerTransition(name, from, to string) {
	CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
}
