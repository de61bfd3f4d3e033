// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package main

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/tomtom215/wayfinder/internal/config"
	"github.com/tomtom215/wayfinder/internal/database"
	"github.com/tomtom215/wayfinder/internal/metrics"
	"github.com/tomtom215/wayfinder/internal/recommend"
	"github.com/tomtom215/wayfinder/internal/recommend/plugins"
	"github.com/tomtom215/wayfinder/internal/recommend/scheduler"
	"github.com/tomtom215/wayfinder/internal/recommend/storage"
)

// RecommendComponents holds the recommendation pipeline.
type RecommendComponents struct {
	Registry    *recommend.Registry
	Recommender *recommend.Recommender
	Scheduler   *scheduler.Scheduler
}

// initRecommend builds the registry, orchestrator, recommender and
// scheduler over the content database and the state store.
//
//nolint:gocritic // hugeParam: logger passed by value for zerolog chaining
func initRecommend(cfg *config.Config, db *database.DB, store storage.Store, logger zerolog.Logger) (*RecommendComponents, error) {
	rc := &cfg.Recommend

	breakerCfg := recommend.DefaultBreakerConfig()
	if rc.BreakerFailures > 0 {
		breakerCfg.FailureThreshold = rc.BreakerFailures
	}
	if rc.BreakerTimeout > 0 {
		breakerCfg.Timeout = rc.BreakerTimeout
	}
	breakerCfg.OnStateChange = metrics.RecordBreakerTransition
	repo := recommend.NewBreakerRepository(db, breakerCfg, logger)

	registry := recommend.NewRegistry()
	if err := plugins.Register(registry, repo, repo, pluginSettings(rc)); err != nil {
		return nil, err
	}
	if err := applyRegistryConfig(registry, rc); err != nil {
		return nil, err
	}

	weights := combineWeights(rc)
	combiner, err := recommend.NewCombiner(rc.CombineStrategy, weights)
	if err != nil {
		return nil, err
	}

	settings, err := recommendSettings(rc)
	if err != nil {
		return nil, err
	}

	reasons := recommend.DefaultReasonTemplates()
	if rc.ReasonSingle != "" {
		reasons.Single = rc.ReasonSingle
	}
	if rc.ReasonMultiple != "" {
		reasons.Multiple = rc.ReasonMultiple
	}

	// History goes to DuckDB when configured so it can be joined with
	// content for reporting; otherwise it stays with the state store.
	var history recommend.HistoryStore = store
	if cfg.Storage.HistoryInDatabase {
		history = db
	}

	observer := metrics.RecommendObserver{}
	orch, err := recommend.NewOrchestrator(recommend.OrchestratorConfig{
		Registry:  registry,
		Weights:   weights,
		Combiner:  combiner,
		Reasons:   reasons,
		Profiles:  db,
		Statuses:  store,
		Lists:     store,
		History:   history,
		Retention: settings.Retention,
		Observer:  observer,
		Logger:    logger,
		Debug:     rc.EnableDebug,
		Timeout:   rc.RunTimeout,
	})
	if err != nil {
		return nil, err
	}

	rec, err := recommend.NewRecommender(recommend.RecommenderConfig{
		Orchestrator: orch,
		Profiles:     db,
		Statuses:     store,
		Lists:        store,
		History:      history,
		Settings:     settings,
		Observer:     observer,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}

	for _, h := range rec.CheckStatus() {
		if !h.OK {
			logger.Warn().Str("plugin", h.ID).Str("reason", h.Message).Msg("plugin configuration invalid")
		}
	}

	sc := cfg.Scheduler
	sched := scheduler.New(rec, scheduler.Config{
		Interval:            sc.Interval,
		BatchSize:           sc.BatchSize,
		TimeBudget:          sc.TimeBudget,
		Concurrency:         sc.Concurrency,
		RunsPerSecond:       sc.RunsPerSecond,
		LeasePath:           sc.LeasePath,
		HistoryCleanupBatch: sc.HistoryCleanupBatch,
		ProcessQueue:        rc.CronEnabled,
	}, logger)

	logger.Info().
		Strs("plugins", pluginIDs(registry)).
		Str("combine_strategy", rc.CombineStrategy).
		Bool("cron_enabled", rc.CronEnabled).
		Str("history_retention", settings.Retention.String()).
		Msg("recommendation pipeline initialized")

	return &RecommendComponents{
		Registry:    registry,
		Recommender: rec,
		Scheduler:   sched,
	}, nil
}

// pluginSettings maps per-plugin overrides to plugin settings. The global
// seed applies to every plugin.
func pluginSettings(rc *config.RecommendConfig) map[string]plugins.Settings {
	out := make(map[string]plugins.Settings, len(plugins.IDs()))
	for _, id := range plugins.IDs() {
		pc := rc.Plugins[id]
		out[id] = plugins.Settings{
			NumberOfCandidates: pc.NumberOfCandidates,
			Reason:             pc.Reason,
			Seed:               rc.Seed,
		}
	}
	return out
}

// applyRegistryConfig restricts the enabled set and applies stage weight
// overrides.
func applyRegistryConfig(reg *recommend.Registry, rc *config.RecommendConfig) error {
	if len(rc.EnabledPlugins) > 0 {
		if err := reg.SetEnabled(rc.EnabledPlugins); err != nil {
			return err
		}
	}

	ids := make([]string, 0, len(rc.Plugins))
	for id := range rc.Plugins {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		for stageName, weight := range rc.Plugins[id].Weights {
			stage, err := recommend.ParseStage(stageName)
			if err != nil {
				return fmt.Errorf("plugin %s: %w", id, err)
			}
			if err := reg.SetWeight(id, stage, weight); err != nil {
				return fmt.Errorf("plugin %s: %w", id, err)
			}
		}
	}
	return nil
}

// combineWeights collects the non-default combine weights.
func combineWeights(rc *config.RecommendConfig) recommend.Weights {
	w := recommend.Weights{}
	for id, pc := range rc.Plugins {
		if pc.CombineWeight > 0 {
			w[id] = pc.CombineWeight
		}
	}
	return w
}

// recommendSettings maps the scheduling and trigger options.
func recommendSettings(rc *config.RecommendConfig) (recommend.Settings, error) {
	retention, err := recommend.ParseRetention(rc.HistoryRetention)
	if err != nil {
		return recommend.Settings{}, err
	}
	s := recommend.DefaultSettings()
	if rc.StaleAfter > 0 {
		s.Policy.StaleAfter = rc.StaleAfter
	}
	s.Policy.MinRerunInterval = rc.MinRerunInterval
	s.Retention = retention
	s.CronEnabled = rc.CronEnabled
	s.RerankOnLoad = rc.RerankOnLoad
	s.BuildOnRegistration = rc.BuildOnRegistration
	s.BuildOnProfileUpdate = rc.BuildOnProfileUpdate
	s.BuildOnLogin = rc.BuildOnLogin
	return s, nil
}

func pluginIDs(reg *recommend.Registry) []string {
	enabled := reg.Plugins()
	ids := make([]string, len(enabled))
	for i, p := range enabled {
		ids[i] = p.ID()
	}
	return ids
}
