// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

// Package recommend implements the per-user recommendation pipeline.
//
// # Architecture
//
// A pipeline run produces an ordered list of content items for exactly one
// user. The run walks a fixed sequence of stages and invokes every enabled
// plugin that participates in the current stage:
//
//   - generate_candidates: plugins propose content items as Candidates
//   - alter_candidates: plugins add, remove or mutate the candidate set
//   - score_candidates: plugins compute or finalize per-plugin Scores
//   - combine: a Combiner reduces each Candidate's ready Scores to one value
//   - rerank_candidates: plugins reorder or inject already-scored Candidates
//
// Candidates and Scores live only for the duration of one run. The result of
// a successful run is stored as the user's current RecommendationList and,
// depending on the retention policy, appended to the history.
//
// # Status Tracking
//
// Every user has one UserStatus record. The orchestrator moves it through
// Queued, Generating Candidates, Altering Candidates, Scoring Candidates,
// Creating Recommendations, Reranking Candidates and finally Ready. A run
// that fails restores the status the user had before the run started, so
// previously Ready recommendations remain valid and the next scheduling pass
// recomputes from scratch.
//
// # Plugins
//
// A plugin is any type implementing Plugin plus one or more capability
// interfaces (Generator, Alterer, Scorer, Reranker). The Registry orders the
// plugins of each stage by weight, breaking ties by plugin ID.
//
// # Concurrency
//
// Runs for different users may execute in parallel. Runs for the same user
// are serialized by a Locker: a second run for a user that already has a run
// in flight fails fast with ErrRunInProgress.
//
// # Usage
//
//	registry := recommend.NewRegistry()
//	registry.Register(plugins.NewTrending(repo, plugins.Settings{}))
//
//	orch, err := recommend.NewOrchestrator(recommend.OrchestratorConfig{
//	    Registry:  registry,
//	    Combiner:  recommend.WeightedAverage(weights),
//	    Profiles:  profiles,
//	    Statuses:  store,
//	    Lists:     store,
//	    History:   store,
//	    Retention: recommend.RetainForever(),
//	    Logger:    logger,
//	})
//
//	recs, err := orch.Run(ctx, userID)
//
// This package has no dependencies on other internal packages. Storage,
// content access and metrics are supplied through interfaces.
package recommend
