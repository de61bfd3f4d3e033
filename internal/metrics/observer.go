// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package metrics

import (
	"time"

	"github.com/tomtom215/wayfinder/internal/recommend"
)

// RecommendObserver reports pipeline events to the package collectors.
type RecommendObserver struct{}

var _ recommend.Observer = RecommendObserver{}

// RunFinished records a completed pipeline run.
func (RecommendObserver) RunFinished(result string, duration time.Duration, retrieved int) {
	RecommendRuns.WithLabelValues(result).Inc()
	RecommendRunDuration.Observe(duration.Seconds())
	RecommendRetrieved.Observe(float64(retrieved))
}

// StageFinished records the duration of one stage.
func (RecommendObserver) StageFinished(stage recommend.Stage, duration time.Duration) {
	RecommendStageDuration.WithLabelValues(string(stage)).Observe(duration.Seconds())
}

// PluginFailed records a skipped plugin invocation.
func (RecommendObserver) PluginFailed(pluginID string, stage recommend.Stage, kind string) {
	RecommendPluginFailures.WithLabelValues(pluginID, string(stage), kind).Inc()
}

// HistoryWritten records appended history entries.
func (RecommendObserver) HistoryWritten(n int) {
	RecommendHistoryWritten.Add(float64(n))
}

// HistoryDeleted records history entries removed by retention.
func (RecommendObserver) HistoryDeleted(n int) {
	RecommendHistoryDeleted.Add(float64(n))
}

// StaleMarked records users moved to Stale.
func (RecommendObserver) StaleMarked(n int) {
	RecommendStaleMarked.Add(float64(n))
}

// QueueProcessed records the outcome for one queued user.
func (RecommendObserver) QueueProcessed(result string) {
	RecommendQueueProcessed.WithLabelValues(result).Inc()
}
