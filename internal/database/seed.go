// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package database

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/wayfinder/internal/logging"
	"github.com/tomtom215/wayfinder/internal/recommend"
)

// Seed is the content and user data a seed file provides.
type Seed struct {
	Content    []Content          `json:"content"`
	Popularity []PopularityScore  `json:"popularity"`
	Similarity []SimilarityRecord `json:"similarity"`
	Profiles   []UserProfile      `json:"profiles"`
	Flags      []FlagRecord       `json:"flags"`
}

// PopularityScore is the popularity of one content item.
type PopularityScore struct {
	ContentID int     `json:"content_id"`
	Score     float64 `json:"score"`
}

// SimilarityRecord lists the items similar to one content item.
type SimilarityRecord struct {
	ContentID int                    `json:"content_id"`
	Similar   []recommend.ScoredItem `json:"similar"`
}

// FlagRecord is a user flag on a content item.
type FlagRecord struct {
	ContentID int       `json:"content_id"`
	UserID    int       `json:"user_id"`
	Flag      string    `json:"flag"`
	FlaggedAt time.Time `json:"flagged_at"`
}

// LoadSeedFile reads a JSON seed file and applies it.
func (db *DB) LoadSeedFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator configuration
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}
	var seed Seed
	if err := json.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("parse seed file %s: %w", path, err)
	}
	if err := db.ApplySeed(ctx, &seed, time.Now()); err != nil {
		return err
	}
	logging.Info().
		Str("path", path).
		Int("content", len(seed.Content)).
		Int("profiles", len(seed.Profiles)).
		Int("flags", len(seed.Flags)).
		Msg("Loaded seed data")
	return nil
}

// ApplySeed upserts every record of the seed.
func (db *DB) ApplySeed(ctx context.Context, seed *Seed, now time.Time) error {
	if len(seed.Content) > 0 {
		if err := db.UpsertContent(ctx, seed.Content); err != nil {
			return err
		}
	}
	if len(seed.Popularity) > 0 {
		scores := make(map[int]float64, len(seed.Popularity))
		for _, p := range seed.Popularity {
			scores[p.ContentID] = p.Score
		}
		if err := db.SetPopularity(ctx, scores); err != nil {
			return err
		}
	}
	for _, s := range seed.Similarity {
		if err := db.SetSimilarity(ctx, s.ContentID, s.Similar); err != nil {
			return err
		}
	}
	for _, p := range seed.Profiles {
		if err := db.UpsertProfile(ctx, p, now); err != nil {
			return err
		}
	}
	for _, f := range seed.Flags {
		at := f.FlaggedAt
		if at.IsZero() {
			at = now
		}
		if err := db.SetFlag(ctx, f.ContentID, f.UserID, f.Flag, at); err != nil {
			return err
		}
	}
	return nil
}
