// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

/*
Package database provides the DuckDB-backed data access layer of Wayfinder.

DB implements the repositories the recommendation pipeline consumes:

  - recommend.ContentRepository: Find and Flagged over published content
  - recommend.SimilarityProvider: precomputed item-to-item similarity
  - recommend.ProfileProvider: user language, interests and completions
  - recommend.HistoryStore: the analytical recommendation_history table

Content queries are assembled with squirrel so that optional criteria add
WHERE clauses only when set. Empty criteria slices never filter.

Writers (UpsertContent, SetPopularity, SetSimilarity, SetFlag, UpsertProfile)
are used by the host platform sync and by seed files loaded at startup.

Connections use a path such as "/data/wayfinder.duckdb" or ":memory:" for
tests. The schema is created on first open and upgraded through versioned
migrations recorded in schema_migrations.
*/
package database
