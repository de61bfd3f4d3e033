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

// Trending proposes the most popular content. Scores are staged at
// generation as 1/position and finalized when scoring.
type Trending struct {
	base
	repo recommend.ContentRepository
}

var (
	_ recommend.Generator = (*Trending)(nil)
	_ recommend.Scorer    = (*Trending)(nil)
)

// NewTrending creates the trending plugin.
func NewTrending(repo recommend.ContentRepository, s Settings) *Trending {
	return &Trending{
		base: newBase(IDTrending, map[recommend.Stage]int{
			recommend.StageGenerate: 0,
			recommend.StageScore:    0,
		}, s, DefaultNumberOfCandidates, "popular"),
		repo: repo,
	}
}

// Generate returns popular items the user has not completed.
func (p *Trending) Generate(ctx context.Context, profile *recommend.Profile) (*recommend.CandidateSet, error) {
	set := recommend.NewCandidateSet(profile.UserID)
	items, err := p.repo.Find(ctx, recommend.Criteria{
		Languages:  profile.Languages(),
		ExcludeIDs: profile.Completed,
		Limit:      p.count,
		Ordering:   recommend.OrderPopularity,
	})
	if err != nil {
		return nil, fmt.Errorf("find popular content: %w", err)
	}
	for i, item := range items {
		c, _ := set.Add(item.ID)
		c.Stage(p.id, 1/float64(i+1), p.reason)
	}
	return set, nil
}

// Score finalizes the staged popularity scores.
func (p *Trending) Score(_ context.Context, set *recommend.CandidateSet, _ *recommend.Profile) error {
	p.finalizeOwn(set)
	return nil
}
