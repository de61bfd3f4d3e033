// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

/*
Package scheduler drives background maintenance of recommendation state.

Each pass performs, in order:

 1. Stale marking: Ready lists older than the freshness window become Stale.
 2. Queue processing (cron mode only): eligible users are recomputed in
    priority order, bounded by batch size, time budget, concurrency and an
    optional runs-per-second limit.
 3. History cleanup: entries older than the retention window are deleted
    in batches.

A failing step does not abort the pass. All step errors are joined and
returned together.

# Host Lease

When LeasePath is set, a pass first takes a non-blocking file lock. If
another process on the same host holds it the pass is skipped and counted
as skipped_lease, so two instances sharing a data directory never drain
the queue at the same time.

# Usage

	s := scheduler.New(recommender, scheduler.Config{
	    Interval:     time.Minute,
	    BatchSize:    100,
	    Concurrency:  4,
	    ProcessQueue: settings.CronEnabled,
	}, logger)
	pass, err := s.RunOnce(ctx)
*/
package scheduler
