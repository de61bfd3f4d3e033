// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

/*
Package services provides suture.Service wrappers for Wayfinder components.

Each wrapper turns a component lifecycle into suture's Serve(ctx) pattern
and implements fmt.Stringer so supervisor events name the service:

	HTTPServerService        api layer         ListenAndServe / Shutdown
	EventBusService          messaging layer   trigger router Run
	SchedulerService         messaging layer   periodic scheduler passes
	StoreMaintenanceService  data layer        badger value-log GC

# Error Contract

A wrapper returns ctx.Err() after cancellation, which suture treats as a
clean stop. Any other error is a failure that counts toward the
supervisor's threshold and triggers a restart with backoff. The scheduler
and store maintenance services log a failed pass and wait for the next
tick instead of returning, since one bad pass says nothing about the next.

Components are consumed through small interfaces (PassRunner,
TriggerRouter, ValueLogCollector, HTTPServer) so tests can substitute mocks.
*/
package services
