// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/tomtom215/wayfinder/internal/api"
	"github.com/tomtom215/wayfinder/internal/config"
	"github.com/tomtom215/wayfinder/internal/database"
	"github.com/tomtom215/wayfinder/internal/logging"
	"github.com/tomtom215/wayfinder/internal/metrics"
	"github.com/tomtom215/wayfinder/internal/recommend/storage"
	"github.com/tomtom215/wayfinder/internal/supervisor"
	"github.com/tomtom215/wayfinder/internal/supervisor/services"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Version:   version,
		Output:    os.Stderr,
	})
	logger := logging.Logger()

	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("storage", cfg.Storage.Type).
		Bool("events", cfg.Events.Enabled).
		Msg("Starting Wayfinder")
	metrics.SetAppInfo(version, runtime.Version())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	storeType, err := storage.ParseType(cfg.Storage.Type)
	if err != nil {
		logging.Fatal().Err(err).Msg("Invalid storage configuration")
	}
	factory, err := storage.NewFactory(storeType, cfg.Storage.Path)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open recommendation store")
	}
	defer func() {
		if err := factory.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing recommendation store")
		}
	}()

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	if cfg.Database.SeedFile != "" {
		if err := db.LoadSeedFile(ctx, cfg.Database.SeedFile); err != nil {
			logging.Fatal().Err(err).Str("file", cfg.Database.SeedFile).Msg("Failed to load seed file")
		}
		logging.Info().Str("file", cfg.Database.SeedFile).Msg("Seed data loaded")
	}

	rec, err := initRecommend(cfg, db, factory.Store(), logger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize recommendation pipeline")
	}

	events, err := initEvents(ctx, &cfg.Events, rec.Recommender, logger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize event bus")
	}
	defer func() {
		if err := events.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event bus")
		}
	}()

	handlerCfg := api.HandlerConfig{
		Recommendations: rec.Recommender,
		Version:         version,
		ReadinessChecks: []api.ReadinessCheck{
			{Name: "database", Check: db.Ping},
			{Name: "event_bus", Check: events.readinessCheck()},
		},
	}
	if events != nil {
		handlerCfg.Publisher = events.Publisher
	}
	if cfg.Storage.HistoryInDatabase {
		handlerCfg.Reports = db
	}
	handler, err := api.NewHandler(handlerCfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create API handler")
	}
	router := api.NewRouter(handler, api.NewChiMiddleware(api.ChiMiddlewareConfigFrom(&cfg.Server)))

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger("supervisor"), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	if badgerDB := factory.DB(); badgerDB != nil {
		tree.AddDataService(services.NewStoreMaintenanceService(badgerDB, services.StoreMaintenanceConfig{}, logger))
	}

	if events != nil {
		tree.AddMessagingService(services.NewEventBusService(events.Bus, logger))
	}
	if cfg.Scheduler.Enabled {
		tree.AddMessagingService(services.NewSchedulerService(rec.Scheduler, cfg.Scheduler.Interval, logger))
	} else {
		logging.Info().Msg("Scheduler disabled (SCHEDULER_ENABLED=false)")
	}

	addr := cfg.Server.Address()
	tree.AddAPIService(services.NewHTTPServerService(func() services.HTTPServer {
		return api.NewServer(addr, router, cfg.Server.Timeout)
	}, cfg.Server.ShutdownTimeout, logger))

	logging.Info().Str("addr", addr).Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	// The channel receives exactly one value, when the root supervisor
	// returns.
	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received, waiting for supervisor to finish...")
		if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
		cancel()
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Wayfinder stopped gracefully")
}
