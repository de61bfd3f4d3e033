// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func waitStarted(t *testing.T, svc *mockService) {
	t.Helper()
	select {
	case <-svc.started:
	case <-time.After(2 * time.Second):
		t.Fatalf("service %s did not start", svc.name)
	}
}

func TestSupervisorTreeConstruction(t *testing.T) {
	t.Parallel()

	t.Run("requires logger", func(t *testing.T) {
		t.Parallel()
		if _, err := NewSupervisorTree(nil, TreeConfig{}); err == nil {
			t.Error("expected error for nil logger")
		}
	})

	t.Run("applies defaults for zero config", func(t *testing.T) {
		t.Parallel()
		tree, err := NewSupervisorTree(testLogger(), TreeConfig{})
		if err != nil {
			t.Fatalf("NewSupervisorTree: %v", err)
		}
		if tree.Root() == nil {
			t.Fatal("root supervisor should not be nil")
		}
		want := DefaultTreeConfig()
		if tree.config != want {
			t.Errorf("config = %+v, want %+v", tree.config, want)
		}
	})

	t.Run("keeps explicit values", func(t *testing.T) {
		t.Parallel()
		tree, err := NewSupervisorTree(testLogger(), TreeConfig{FailureThreshold: 2, FailureBackoff: time.Second})
		if err != nil {
			t.Fatalf("NewSupervisorTree: %v", err)
		}
		if tree.config.FailureThreshold != 2 {
			t.Errorf("FailureThreshold = %v, want 2", tree.config.FailureThreshold)
		}
		if tree.config.FailureBackoff != time.Second {
			t.Errorf("FailureBackoff = %v, want 1s", tree.config.FailureBackoff)
		}
	})
}

func TestSupervisorTree_StartsEveryLayer(t *testing.T) {
	t.Parallel()

	tree, err := NewSupervisorTree(testLogger(), TreeConfig{ShutdownTimeout: time.Second})
	if err != nil {
		t.Fatalf("NewSupervisorTree: %v", err)
	}

	data := newMockService("mock-data")
	messaging := newMockService("mock-messaging")
	api := newMockService("mock-api")
	tree.AddDataService(data)
	tree.AddMessagingService(messaging)
	tree.AddAPIService(api)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	for _, svc := range []*mockService{data, messaging, api} {
		waitStarted(t, svc)
	}
	cancel()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("unexpected error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("tree did not shut down in time")
	}

	for _, svc := range []*mockService{data, messaging, api} {
		if svc.stops.Load() != 1 {
			t.Errorf("%s stops = %d, want 1", svc.name, svc.stops.Load())
		}
	}
	report, err := tree.UnstoppedServiceReport()
	if err != nil {
		t.Fatalf("UnstoppedServiceReport: %v", err)
	}
	if len(report) != 0 {
		t.Errorf("unstopped services: %v", report)
	}
}

func TestSupervisorTree_RestartsFailedService(t *testing.T) {
	t.Parallel()

	tree, err := NewSupervisorTree(testLogger(), TreeConfig{
		FailureThreshold: 10,
		FailureBackoff:   10 * time.Millisecond,
		ShutdownTimeout:  time.Second,
	})
	if err != nil {
		t.Fatalf("NewSupervisorTree: %v", err)
	}

	flaky := newMockService("flaky-router")
	flaky.failFirst(2, errors.New("broker unreachable"))
	api := newMockService("api")
	if _, err := tree.Add(LayerMessaging, flaky); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := tree.Add(LayerAPI, api); err != nil {
		t.Fatalf("Add: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := tree.ServeBackground(ctx)

	deadline := time.After(3 * time.Second)
	for flaky.starts.Load() < 3 {
		select {
		case <-flaky.started:
		case <-deadline:
			t.Fatalf("flaky service starts = %d, want 3", flaky.starts.Load())
		}
	}

	// The api layer is isolated from messaging failures.
	waitStarted(t, api)
	if got := api.starts.Load(); got != 1 {
		t.Errorf("api starts = %d, want 1", got)
	}

	cancel()
	<-errCh
}

func TestSupervisorTree_AddAndRemove(t *testing.T) {
	t.Parallel()

	tree, err := NewSupervisorTree(testLogger(), TreeConfig{ShutdownTimeout: time.Second})
	if err != nil {
		t.Fatalf("NewSupervisorTree: %v", err)
	}

	if _, err := tree.Add(Layer("bogus"), newMockService("x")); err == nil {
		t.Error("expected error for unknown layer")
	}
	if err := tree.Remove(Layer("bogus"), suture.ServiceToken{}); err == nil {
		t.Error("expected error for unknown layer")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := tree.ServeBackground(ctx)

	gc := newMockService("store-gc")
	token, err := tree.Add(LayerData, gc)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	waitStarted(t, gc)

	if err := tree.Remove(LayerData, token); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for gc.stops.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if gc.stops.Load() != 1 {
		t.Errorf("removed service stops = %d, want 1", gc.stops.Load())
	}

	cancel()
	<-errCh
}
