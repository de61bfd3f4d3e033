// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

/*
Package supervisor provides process supervision for Wayfinder using suture v4.

The tree groups long-running services into three layers that restart
independently:

	RootSupervisor ("wayfinder")
	├── DataSupervisor ("data-layer")
	│   └── StoreMaintenanceService (badger value-log GC)
	├── MessagingSupervisor ("messaging-layer")
	│   ├── EventBusService (if EVENTS_ENABLED)
	│   └── SchedulerService (if SCHEDULER_ENABLED)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

A trigger router that keeps failing backs off inside the messaging layer
while the API keeps serving stored recommendations.

# Usage Example

	logger := logging.NewSlogLogger("supervisor")
	tree, err := supervisor.NewSupervisorTree(logger, supervisor.TreeConfig{})
	if err != nil {
	    return err
	}

	tree.AddMessagingService(services.NewSchedulerService(sched, interval, zlog))
	tree.AddAPIService(services.NewHTTPServerService(srv, 10*time.Second))

	errCh := tree.ServeBackground(ctx)
	<-ctx.Done()
	<-errCh

	if report, _ := tree.UnstoppedServiceReport(); len(report) > 0 {
	    // services that ignored cancellation
	}

# Restart Behavior

Failures are counted per supervisor and decay over FailureDecay seconds.
Once FailureThreshold is exceeded the supervisor waits FailureBackoff
before restarting again. A service that returns ctx.Err() after
cancellation is treated as stopped, not failed.

See the services subpackage for the individual service wrappers.
*/
package supervisor
