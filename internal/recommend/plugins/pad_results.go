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

// Padding score bounds keep padded items below real signals.
const (
	padScoreMin = 0.1
	padScoreMax = 0.25
)

// PadResults tops up short candidate sets with random content scored low.
type PadResults struct {
	base
	repo recommend.ContentRepository
}

var (
	_ recommend.Alterer = (*PadResults)(nil)
	_ recommend.Scorer  = (*PadResults)(nil)
)

// NewPadResults creates the pad results plugin.
func NewPadResults(repo recommend.ContentRepository, s Settings) *PadResults {
	return &PadResults{
		base: newBase(IDPadResults, map[recommend.Stage]int{
			recommend.StageAlter: 0,
			recommend.StageScore: 0,
		}, s, DefaultNumberOfCandidates, "something you might want to explore"),
		repo: repo,
	}
}

// Alter adds up to N random items when the set holds N or fewer
// candidates. A set that already carries padding is left alone.
func (p *PadResults) Alter(ctx context.Context, set *recommend.CandidateSet, profile *recommend.Profile) error {
	if set.Len() > p.count || p.padded(set) {
		return nil
	}
	exclude := append(set.IDs(), profile.Completed...)
	items, err := p.repo.Find(ctx, recommend.Criteria{
		Languages:  profile.Languages(),
		ExcludeIDs: exclude,
		Limit:      p.count,
		Ordering:   recommend.OrderRandom,
	})
	if err != nil {
		return fmt.Errorf("find padding content: %w", err)
	}
	for _, item := range items {
		c, created := set.Add(item.ID)
		if !created {
			continue
		}
		c.Stage(p.id, p.rng.between(padScoreMin, padScoreMax), p.reason)
	}
	return nil
}

func (p *PadResults) padded(set *recommend.CandidateSet) bool {
	for _, c := range set.All() {
		if _, ok := c.Score(p.id); ok {
			return true
		}
	}
	return false
}

// Score finalizes the staged padding scores.
func (p *PadResults) Score(_ context.Context, set *recommend.CandidateSet, _ *recommend.Profile) error {
	p.finalizeOwn(set)
	return nil
}
