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

// Interest score bounds.
const (
	interestScoreMin = 0.75
	interestScoreMax = 1.0
)

// interestTypes are the content types proposed for topical interests.
var interestTypes = []string{"course", "learn_article", "learn_link", "learn_package"}

// UserInterests proposes content in the user's interest topics and boosts
// every candidate tagged with one of them.
type UserInterests struct {
	base
	repo recommend.ContentRepository
}

var (
	_ recommend.Generator = (*UserInterests)(nil)
	_ recommend.Scorer    = (*UserInterests)(nil)
)

// NewUserInterests creates the user interests plugin.
func NewUserInterests(repo recommend.ContentRepository, s Settings) *UserInterests {
	return &UserInterests{
		base: newBase(IDUserInterests, map[recommend.Stage]int{
			recommend.StageGenerate: 0,
			recommend.StageScore:    0,
		}, s, DefaultNumberOfCandidates, "something you might be interested in"),
		repo: repo,
	}
}

// Generate returns random uncompleted items in the user's topics. A user
// without interests gets no candidates.
func (p *UserInterests) Generate(ctx context.Context, profile *recommend.Profile) (*recommend.CandidateSet, error) {
	set := recommend.NewCandidateSet(profile.UserID)
	if len(profile.Topics) == 0 {
		return set, nil
	}
	items, err := p.repo.Find(ctx, recommend.Criteria{
		Types:      interestTypes,
		Topics:     profile.Topics,
		ExcludeIDs: profile.Completed,
		Limit:      p.count,
		Ordering:   recommend.OrderRandom,
	})
	if err != nil {
		return nil, fmt.Errorf("find content of interest: %w", err)
	}
	for _, item := range items {
		c, _ := set.Add(item.ID)
		c.Stage(p.id, p.rng.between(interestScoreMin, interestScoreMax), p.reason)
	}
	return set, nil
}

// Score gives every candidate tagged with an interest topic a ready score.
// Staged scores are finalized. Candidates outside the user's topics lose
// any score this plugin staged for them.
func (p *UserInterests) Score(ctx context.Context, set *recommend.CandidateSet, profile *recommend.Profile) error {
	if set.Len() == 0 {
		return nil
	}
	topics := make(map[int]bool, len(profile.Topics))
	for _, t := range profile.Topics {
		topics[t] = true
	}

	items, err := p.repo.Find(ctx, recommend.Criteria{IDs: set.IDs()})
	if err != nil {
		return fmt.Errorf("load candidate content: %w", err)
	}
	byID := make(map[int]recommend.ContentItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	for _, c := range set.All() {
		item, ok := byID[c.ContentID]
		if !ok {
			return &recommend.DataIntegrityError{PluginID: p.id, ContentID: c.ContentID, Detail: "content not found"}
		}
		if !matchesTopic(item, topics) {
			c.RemoveScore(p.id)
			continue
		}
		if c.Finalize(p.id) {
			continue
		}
		c.SetScore(p.id, p.rng.between(interestScoreMin, interestScoreMax), p.reason)
	}
	return nil
}

func matchesTopic(item recommend.ContentItem, topics map[int]bool) bool {
	for _, t := range item.Topics {
		if topics[t] {
			return true
		}
	}
	return false
}
