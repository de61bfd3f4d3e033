// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/wayfinder/internal/recommend"
)

var _ recommend.ProfileProvider = (*DB)(nil)

// UserProfile is a stored user profile.
type UserProfile struct {
	UserID   int    `json:"user_id"`
	Language string `json:"language"`
	Topics   []int  `json:"topics,omitempty"`
}

// Profile assembles the user's profile. Unknown users get an empty profile.
func (db *DB) Profile(ctx context.Context, userID int) (*recommend.Profile, error) {
	return observe("profile", func() (*recommend.Profile, error) {
		return db.profile(ctx, userID)
	})
}

func (db *DB) profile(ctx context.Context, userID int) (*recommend.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	profile := &recommend.Profile{UserID: userID}

	err := db.conn.QueryRowContext(ctx,
		`SELECT language FROM user_profiles WHERE user_id = ?`, userID).Scan(&profile.Language)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("query profile of user %d: %w", userID, err)
	}

	topics, err := db.queryInts(ctx,
		`SELECT topic_id FROM user_interests WHERE user_id = ? ORDER BY topic_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query interests of user %d: %w", userID, err)
	}
	profile.Topics = topics

	completed, err := db.queryInts(ctx, `
		SELECT content_id FROM content_flags
		WHERE user_id = ? AND flag = ?
		ORDER BY flagged_at DESC, content_id`,
		userID, recommend.FlagCompleted)
	if err != nil {
		return nil, fmt.Errorf("query completions of user %d: %w", userID, err)
	}
	profile.Completed = completed

	return profile, nil
}

// UserIDs returns every user with a profile or a content flag.
func (db *DB) UserIDs(ctx context.Context) ([]int, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	ids, err := db.queryInts(ctx, `
		SELECT user_id FROM user_profiles
		UNION
		SELECT user_id FROM content_flags
		ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("query user ids: %w", err)
	}
	return ids, nil
}

// UpsertProfile replaces a user's language and interests.
func (db *DB) UpsertProfile(ctx context.Context, p UserProfile, at time.Time) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO user_profiles (user_id, language, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			language = EXCLUDED.language,
			updated_at = EXCLUDED.updated_at`,
		p.UserID, p.Language, at.UTC()); err != nil {
		return fmt.Errorf("upsert profile of user %d: %w", p.UserID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM user_interests WHERE user_id = ?`, p.UserID); err != nil {
		return fmt.Errorf("clear interests of user %d: %w", p.UserID, err)
	}
	for _, topic := range p.Topics {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO user_interests (user_id, topic_id) VALUES (?, ?) ON CONFLICT DO NOTHING`,
			p.UserID, topic); err != nil {
			return fmt.Errorf("add interest of user %d: %w", p.UserID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit profile: %w", err)
	}
	return nil
}

func (db *DB) queryInts(ctx context.Context, query string, args ...any) ([]int, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows)

	var out []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
