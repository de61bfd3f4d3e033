// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

/*
schema.go - Database Schema Management

Tables:
  - content: learning content items (type, language, published flag, modified time)
  - content_topics: topic tags of content items
  - content_popularity: popularity score per item, refreshed by the host platform
  - content_similarity: precomputed item-to-item similarity
  - content_flags: per-user flags on content (completed, review, ...)
  - user_profiles / user_interests: preferred language and interest topics
  - recommendation_history: presented recommendations, for analytics and retention

Schema changes are applied as versioned migrations recorded in
schema_migrations so that existing databases are upgraded in place.
*/

//nolint:staticcheck // File documentation, not package doc
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/wayfinder/internal/logging"
)

// Migration is one versioned schema change.
type Migration struct {
	Version     int
	Name        string
	Description string
	Statements  []string
}

// schemaContext returns a context with timeout for schema operations
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

func (db *DB) initialize() error {
	ctx, cancel := schemaContext()
	defer cancel()

	if _, err := db.conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name VARCHAR NOT NULL,
			description VARCHAR,
			applied_at TIMESTAMP DEFAULT current_timestamp
		)`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := db.appliedMigrations(ctx)
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	newMigrations := 0
	for _, m := range migrations() {
		if applied[m.Version] {
			continue
		}
		for _, stmt := range m.Statements {
			if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to execute migration v%d (%s): %w", m.Version, m.Name, err)
			}
		}
		if _, err := db.conn.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, name, description) VALUES (?, ?, ?)`,
			m.Version, m.Name, m.Description); err != nil {
			return fmt.Errorf("failed to record migration v%d: %w", m.Version, err)
		}
		newMigrations++
	}
	if newMigrations > 0 {
		logging.Debug().Int("migrations", newMigrations).Msg("Applied database migrations")
	}
	return nil
}

func (db *DB) appliedMigrations(ctx context.Context) (map[int]bool, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows)

	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

// SchemaVersion returns the highest applied migration.
func (db *DB) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := db.conn.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("query schema version: %w", err)
	}
	return v, nil
}

func migrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Name:        "content",
			Description: "Content items, topics, popularity and similarity",
			Statements: []string{
				`CREATE TABLE IF NOT EXISTS content (
						id INTEGER PRIMARY KEY,
						type VARCHAR NOT NULL,
						title VARCHAR NOT NULL DEFAULT '',
						language VARCHAR NOT NULL DEFAULT 'und',
						published BOOLEAN NOT NULL DEFAULT true,
						modified TIMESTAMP NOT NULL
					)`,
				`CREATE TABLE IF NOT EXISTS content_topics (
						content_id INTEGER NOT NULL,
						topic_id INTEGER NOT NULL,
						PRIMARY KEY (content_id, topic_id)
					)`,
				`CREATE TABLE IF NOT EXISTS content_popularity (
						content_id INTEGER PRIMARY KEY,
						score DOUBLE NOT NULL
					)`,
				`CREATE TABLE IF NOT EXISTS content_similarity (
						content_id INTEGER NOT NULL,
						similar_id INTEGER NOT NULL,
						score DOUBLE NOT NULL,
						PRIMARY KEY (content_id, similar_id)
					)`,
			},
		},
		{
			Version:     2,
			Name:        "users",
			Description: "User profiles, interests and content flags",
			Statements: []string{
				`CREATE TABLE IF NOT EXISTS user_profiles (
						user_id INTEGER PRIMARY KEY,
						language VARCHAR NOT NULL DEFAULT '',
						updated_at TIMESTAMP NOT NULL
					)`,
				`CREATE TABLE IF NOT EXISTS user_interests (
						user_id INTEGER NOT NULL,
						topic_id INTEGER NOT NULL,
						PRIMARY KEY (user_id, topic_id)
					)`,
				`CREATE TABLE IF NOT EXISTS content_flags (
						content_id INTEGER NOT NULL,
						user_id INTEGER NOT NULL,
						flag VARCHAR NOT NULL,
						flagged_at TIMESTAMP NOT NULL,
						PRIMARY KEY (content_id, user_id, flag)
					)`,
			},
		},
		{
			Version:     3,
			Name:        "recommendation_history",
			Description: "Presented recommendations",
			Statements: []string{
				`CREATE SEQUENCE IF NOT EXISTS recommendation_history_seq`,
				`CREATE TABLE IF NOT EXISTS recommendation_history (
						id BIGINT DEFAULT nextval('recommendation_history_seq') PRIMARY KEY,
						user_id INTEGER NOT NULL,
						content_id INTEGER NOT NULL,
						score DOUBLE NOT NULL,
						reason VARCHAR NOT NULL DEFAULT '',
						run_id VARCHAR NOT NULL,
						created_at TIMESTAMP NOT NULL
					)`,
				`CREATE INDEX IF NOT EXISTS idx_history_created ON recommendation_history (created_at)`,
				`CREATE INDEX IF NOT EXISTS idx_history_user ON recommendation_history (user_id)`,
			},
		},
	}
}
