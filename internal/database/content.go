// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package database

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/tomtom215/wayfinder/internal/recommend"
)

var (
	_ recommend.ContentRepository  = (*DB)(nil)
	_ recommend.SimilarityProvider = (*DB)(nil)
)

// Content is a content row with its topics.
type Content struct {
	ID        int       `json:"id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Language  string    `json:"language"`
	Published bool      `json:"published"`
	Modified  time.Time `json:"modified"`
	Topics    []int     `json:"topics,omitempty"`
}

func intArgs(ids []int) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

// findQuery translates criteria into a SELECT over published content.
func findQuery(c recommend.Criteria) (string, []any, error) {
	q := sq.Select("c.id", "c.type", "c.language", "c.modified").
		From("content c").
		Where(sq.Eq{"c.published": true})

	if len(c.IDs) > 0 {
		q = q.Where(sq.Eq{"c.id": c.IDs})
	}
	if len(c.ExcludeIDs) > 0 {
		q = q.Where(sq.NotEq{"c.id": c.ExcludeIDs})
	}
	if len(c.Types) > 0 {
		q = q.Where(sq.Eq{"c.type": c.Types})
	}
	if len(c.Languages) > 0 {
		q = q.Where(sq.Eq{"c.language": c.Languages})
	}
	if len(c.Topics) > 0 {
		q = q.Where(sq.Expr(
			"c.id IN (SELECT content_id FROM content_topics WHERE topic_id IN ("+sq.Placeholders(len(c.Topics))+"))",
			intArgs(c.Topics)...,
		))
	}
	if !c.Flag.IsZero() {
		q = q.Where(sq.Expr(
			"EXISTS (SELECT 1 FROM content_flags f WHERE f.content_id = c.id AND f.user_id = ? AND f.flag = ?)",
			c.Flag.UserID, c.Flag.Name,
		))
	}

	switch c.Ordering {
	case recommend.OrderRecency:
		q = q.OrderBy("c.modified DESC", "c.id DESC")
	case recommend.OrderPopularity:
		q = q.LeftJoin("content_popularity p ON p.content_id = c.id").
			OrderBy("COALESCE(p.score, 0) DESC", "c.id")
	case recommend.OrderRandom:
		q = q.OrderBy("random()")
	default:
		q = q.OrderBy("c.id")
	}
	if c.Limit > 0 {
		q = q.Limit(uint64(c.Limit))
	}
	return q.ToSql()
}

// Find returns published content matching the criteria.
func (db *DB) Find(ctx context.Context, criteria recommend.Criteria) ([]recommend.ContentItem, error) {
	return observe("find_content", func() ([]recommend.ContentItem, error) {
		return db.find(ctx, criteria)
	})
}

func (db *DB) find(ctx context.Context, criteria recommend.Criteria) ([]recommend.ContentItem, error) {
	query, args, err := findQuery(criteria)
	if err != nil {
		return nil, fmt.Errorf("build content query: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query content: %w", err)
	}
	defer closeRows(rows)

	var items []recommend.ContentItem
	for rows.Next() {
		var item recommend.ContentItem
		if err := rows.Scan(&item.ID, &item.Type, &item.Language, &item.Modified); err != nil {
			return nil, fmt.Errorf("scan content: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate content: %w", err)
	}
	if len(items) == 0 {
		return items, nil
	}

	if err := db.attachTopics(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

func (db *DB) attachTopics(ctx context.Context, items []recommend.ContentItem) error {
	ids := make([]int, len(items))
	index := make(map[int]int, len(items))
	for i, item := range items {
		ids[i] = item.ID
		index[item.ID] = i
	}

	query, args, err := sq.Select("content_id", "topic_id").
		From("content_topics").
		Where(sq.Eq{"content_id": ids}).
		OrderBy("content_id", "topic_id").
		ToSql()
	if err != nil {
		return fmt.Errorf("build topic query: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query content topics: %w", err)
	}
	defer closeRows(rows)

	for rows.Next() {
		var contentID, topicID int
		if err := rows.Scan(&contentID, &topicID); err != nil {
			return fmt.Errorf("scan content topic: %w", err)
		}
		if i, ok := index[contentID]; ok {
			items[i].Topics = append(items[i].Topics, topicID)
		}
	}
	return rows.Err()
}

// Flagged reports whether the user flagged the content item.
func (db *DB) Flagged(ctx context.Context, contentID, userID int, flag string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM content_flags WHERE content_id = ? AND user_id = ? AND flag = ?`,
		contentID, userID, flag).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("query flag: %w", err)
	}
	return n > 0, nil
}

// Similar returns published items similar to contentID, most similar first.
func (db *DB) Similar(ctx context.Context, contentID, limit int) ([]recommend.ScoredItem, error) {
	return observe("similar_content", func() ([]recommend.ScoredItem, error) {
		return db.similar(ctx, contentID, limit)
	})
}

func (db *DB) similar(ctx context.Context, contentID, limit int) ([]recommend.ScoredItem, error) {
	q := sq.Select("s.similar_id", "s.score").
		From("content_similarity s").
		Join("content c ON c.id = s.similar_id").
		Where(sq.Eq{"s.content_id": contentID, "c.published": true}).
		OrderBy("s.score DESC", "s.similar_id")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build similarity query: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query similar content: %w", err)
	}
	defer closeRows(rows)

	var out []recommend.ScoredItem
	for rows.Next() {
		var item recommend.ScoredItem
		if err := rows.Scan(&item.ContentID, &item.Score); err != nil {
			return nil, fmt.Errorf("scan similar content: %w", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// UpsertContent inserts or replaces content rows and their topics.
func (db *DB) UpsertContent(ctx context.Context, items []Content) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, item := range items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO content (id, type, title, language, published, modified)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				type = EXCLUDED.type,
				title = EXCLUDED.title,
				language = EXCLUDED.language,
				published = EXCLUDED.published,
				modified = EXCLUDED.modified`,
			item.ID, item.Type, item.Title, item.Language, item.Published, item.Modified.UTC())
		if err != nil {
			return fmt.Errorf("upsert content %d: %w", item.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM content_topics WHERE content_id = ?`, item.ID); err != nil {
			return fmt.Errorf("clear topics of %d: %w", item.ID, err)
		}
		for _, topic := range item.Topics {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO content_topics (content_id, topic_id) VALUES (?, ?) ON CONFLICT DO NOTHING`,
				item.ID, topic); err != nil {
				return fmt.Errorf("tag content %d: %w", item.ID, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit content: %w", err)
	}
	return nil
}

// SetPopularity stores popularity scores keyed by content ID.
func (db *DB) SetPopularity(ctx context.Context, scores map[int]float64) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for id, score := range scores {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO content_popularity (content_id, score) VALUES (?, ?)
			ON CONFLICT (content_id) DO UPDATE SET score = EXCLUDED.score`,
			id, score); err != nil {
			return fmt.Errorf("set popularity of %d: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit popularity: %w", err)
	}
	return nil
}

// SetSimilarity replaces the similarity list of a content item.
func (db *DB) SetSimilarity(ctx context.Context, contentID int, similar []recommend.ScoredItem) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM content_similarity WHERE content_id = ?`, contentID); err != nil {
		return fmt.Errorf("clear similarity of %d: %w", contentID, err)
	}
	for _, s := range similar {
		if s.ContentID == contentID {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO content_similarity (content_id, similar_id, score) VALUES (?, ?, ?) ON CONFLICT DO NOTHING`,
			contentID, s.ContentID, s.Score); err != nil {
			return fmt.Errorf("set similarity %d->%d: %w", contentID, s.ContentID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit similarity: %w", err)
	}
	return nil
}

// SetFlag flags a content item for a user.
func (db *DB) SetFlag(ctx context.Context, contentID, userID int, flag string, at time.Time) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO content_flags (content_id, user_id, flag, flagged_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (content_id, user_id, flag) DO UPDATE SET flagged_at = EXCLUDED.flagged_at`,
		contentID, userID, flag, at.UTC())
	if err != nil {
		return fmt.Errorf("set flag %s on %d for user %d: %w", flag, contentID, userID, err)
	}
	return nil
}
