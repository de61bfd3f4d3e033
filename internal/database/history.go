// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/wayfinder/internal/recommend"
)

var _ recommend.HistoryStore = (*DB)(nil)

// ContentCount aggregates how often a content item was recommended.
type ContentCount struct {
	ContentID int     `json:"content_id"`
	Count     int     `json:"count"`
	AvgScore  float64 `json:"avg_score"`
}

// AppendHistory inserts history entries in one transaction.
func (db *DB) AppendHistory(ctx context.Context, entries []recommend.HistoryEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO recommendation_history (user_id, content_id, score, reason, run_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare history insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.UserID, e.ContentID, e.Score, e.Reason, e.RunID, e.Timestamp.UTC()); err != nil {
			return fmt.Errorf("insert history for user %d: %w", e.UserID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit history: %w", err)
	}
	return nil
}

// DeleteHistoryBefore removes up to limit entries older than cutoff, oldest
// first. A limit of zero or less removes all of them.
func (db *DB) DeleteHistoryBefore(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var (
		query = `DELETE FROM recommendation_history WHERE created_at < ?`
		args  = []any{cutoff.UTC()}
	)
	if limit > 0 {
		query = `
			DELETE FROM recommendation_history WHERE id IN (
				SELECT id FROM recommendation_history
				WHERE created_at < ?
				ORDER BY created_at, id
				LIMIT ?
			)`
		args = append(args, limit)
	}

	res, err := db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete history rows affected: %w", err)
	}
	return int(n), nil
}

// History returns the entries of a user, oldest first.
func (db *DB) History(ctx context.Context, userID int) ([]recommend.HistoryEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT user_id, content_id, score, reason, run_id, created_at
		FROM recommendation_history
		WHERE user_id = ?
		ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer closeRows(rows)

	var out []recommend.HistoryEntry
	for rows.Next() {
		var e recommend.HistoryEntry
		if err := rows.Scan(&e.UserID, &e.ContentID, &e.Score, &e.Reason, &e.RunID, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// TopRecommended returns the most recommended content since a point in time.
func (db *DB) TopRecommended(ctx context.Context, since time.Time, limit int) ([]ContentCount, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 10
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT content_id, COUNT(*) AS n, AVG(score) AS avg_score
		FROM recommendation_history
		WHERE created_at >= ?
		GROUP BY content_id
		ORDER BY n DESC, content_id
		LIMIT ?`, since.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("query top recommended: %w", err)
	}
	defer closeRows(rows)

	var out []ContentCount
	for rows.Next() {
		var c ContentCount
		if err := rows.Scan(&c.ContentID, &c.Count, &c.AvgScore); err != nil {
			return nil, fmt.Errorf("scan top recommended: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
