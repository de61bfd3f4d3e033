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

// DefaultRevisionWeight places revision after other rerankers.
const DefaultRevisionWeight = 100

// Revision spreads completed content flagged for review through the ranked
// list. Injected items get a combined score drawn uniformly from the range
// of existing combined scores so they are neither buried nor dominant.
type Revision struct {
	base
	repo recommend.ContentRepository
}

var _ recommend.Reranker = (*Revision)(nil)

// NewRevision creates the revision plugin.
func NewRevision(repo recommend.ContentRepository, s Settings) *Revision {
	return &Revision{
		base: newBase(IDRevision, map[recommend.Stage]int{
			recommend.StageRerank: DefaultRevisionWeight,
		}, s, DefaultNumberOfCandidates, "related to your recent activity"),
		repo: repo,
	}
}

// Rerank injects review items. An item already ranked is replaced.
func (p *Revision) Rerank(ctx context.Context, ranked []*recommend.Candidate, profile *recommend.Profile) ([]*recommend.Candidate, error) {
	items, err := p.repo.Find(ctx, recommend.Criteria{
		Flag:     recommend.FlagFilter{Name: recommend.FlagReview, UserID: profile.UserID},
		Limit:    p.count,
		Ordering: recommend.OrderRecency,
	})
	if err != nil {
		return nil, fmt.Errorf("find review content: %w", err)
	}
	if len(items) == 0 {
		return ranked, nil
	}

	lo, hi := scoreBounds(ranked)
	out := make([]*recommend.Candidate, 0, len(ranked)+len(items))
	inject := make(map[int]*recommend.Candidate, len(items))
	for _, item := range items {
		completed, err := p.repo.Flagged(ctx, item.ID, profile.UserID, recommend.FlagCompleted)
		if err != nil {
			return nil, fmt.Errorf("check completion of %d: %w", item.ID, err)
		}
		if !completed {
			continue
		}
		value := p.rng.between(lo, hi)
		c := recommend.NewCandidate(profile.UserID, item.ID)
		c.SetScore(p.id, value, p.reason)
		c.Combined = value
		inject[item.ID] = c
	}

	for _, c := range ranked {
		if _, replaced := inject[c.ContentID]; !replaced {
			out = append(out, c)
		}
	}
	for _, item := range items {
		if c, ok := inject[item.ID]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// scoreBounds returns the min and max combined score, or [0, 1] when the
// list is empty.
func scoreBounds(ranked []*recommend.Candidate) (float64, float64) {
	if len(ranked) == 0 {
		return 0, 1
	}
	lo, hi := ranked[0].Combined, ranked[0].Combined
	for _, c := range ranked[1:] {
		if c.Combined < lo {
			lo = c.Combined
		}
		if c.Combined > hi {
			hi = c.Combined
		}
	}
	return lo, hi
}
