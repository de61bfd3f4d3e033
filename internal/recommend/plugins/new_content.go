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

// minNewContentScore drops candidates whose recency score is negligible.
const minNewContentScore = 0.01

// NewContent proposes recently modified content and scores every candidate
// inversely to the days since it was last modified.
type NewContent struct {
	base
	repo recommend.ContentRepository
}

var (
	_ recommend.Generator = (*NewContent)(nil)
	_ recommend.Scorer    = (*NewContent)(nil)
)

// NewNewContent creates the new content plugin.
func NewNewContent(repo recommend.ContentRepository, s Settings) *NewContent {
	return &NewContent{
		base: newBase(IDNewContent, map[recommend.Stage]int{
			recommend.StageGenerate: 0,
			recommend.StageScore:    0,
		}, s, DefaultNumberOfCandidates, "new"),
		repo: repo,
	}
}

// Generate returns the most recently modified items in the user's languages.
func (p *NewContent) Generate(ctx context.Context, profile *recommend.Profile) (*recommend.CandidateSet, error) {
	set := recommend.NewCandidateSet(profile.UserID)
	items, err := p.repo.Find(ctx, recommend.Criteria{
		Languages: profile.Languages(),
		Limit:     p.count,
		Ordering:  recommend.OrderRecency,
	})
	if err != nil {
		return nil, fmt.Errorf("find recent content: %w", err)
	}
	for _, item := range items {
		set.Add(item.ID)
	}
	return set, nil
}

// Score assigns 1/(days since modified + 1) to every candidate.
func (p *NewContent) Score(ctx context.Context, set *recommend.CandidateSet, _ *recommend.Profile) error {
	if set.Len() == 0 {
		return nil
	}
	items, err := p.repo.Find(ctx, recommend.Criteria{IDs: set.IDs()})
	if err != nil {
		return fmt.Errorf("load candidate content: %w", err)
	}
	byID := make(map[int]recommend.ContentItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	now := p.now()
	for _, c := range set.All() {
		item, ok := byID[c.ContentID]
		if !ok {
			return &recommend.DataIntegrityError{PluginID: p.id, ContentID: c.ContentID, Detail: "content not found"}
		}
		days := now.Sub(item.Modified).Hours() / 24
		if days < 0 {
			days = 0
		}
		score := 1 / (days + 1)
		if score < minNewContentScore {
			continue
		}
		c.SetScore(p.id, score, p.reason)
	}
	return nil
}
