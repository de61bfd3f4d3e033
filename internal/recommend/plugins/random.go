// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package plugins

import (
	"context"
	"fmt"

	"github.com/tomtom215/wayfinder/internal/recommend"
)

// DefaultRandomCandidates is the generation size of the random plugin.
const DefaultRandomCandidates = 10

// Random proposes random content with a uniform score in [0, 1] so users
// see something outside their usual signals.
type Random struct {
	base
	repo recommend.ContentRepository
}

var (
	_ recommend.Generator = (*Random)(nil)
	_ recommend.Scorer    = (*Random)(nil)
)

// NewRandom creates the random plugin.
func NewRandom(repo recommend.ContentRepository, s Settings) *Random {
	return &Random{
		base: newBase(IDRandom, map[recommend.Stage]int{
			recommend.StageGenerate: 0,
			recommend.StageScore:    0,
		}, s, DefaultRandomCandidates, "something different"),
		repo: repo,
	}
}

// Generate returns random items the user has not completed.
func (p *Random) Generate(ctx context.Context, profile *recommend.Profile) (*recommend.CandidateSet, error) {
	set := recommend.NewCandidateSet(profile.UserID)
	items, err := p.repo.Find(ctx, recommend.Criteria{
		ExcludeIDs: profile.Completed,
		Limit:      p.count,
		Ordering:   recommend.OrderRandom,
	})
	if err != nil {
		return nil, fmt.Errorf("find random content: %w", err)
	}
	for _, item := range items {
		c, _ := set.Add(item.ID)
		c.Stage(p.id, p.rng.between(0, 1), p.reason)
	}
	return set, nil
}

// Score finalizes the staged random scores.
func (p *Random) Score(_ context.Context, set *recommend.CandidateSet, _ *recommend.Profile) error {
	p.finalizeOwn(set)
	return nil
}
