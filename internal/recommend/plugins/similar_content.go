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

// maxSimilarPerCompletion caps how many new items one completed item adds.
const maxSimilarPerCompletion = 3

// SimilarContent proposes content similar to what the user completed.
// Similarity scores are normalized by the best match and staged at
// generation.
type SimilarContent struct {
	base
	similar recommend.SimilarityProvider
}

var (
	_ recommend.Generator = (*SimilarContent)(nil)
	_ recommend.Scorer    = (*SimilarContent)(nil)
)

// NewSimilarContent creates the similar content plugin.
func NewSimilarContent(similar recommend.SimilarityProvider, s Settings) *SimilarContent {
	return &SimilarContent{
		base: newBase(IDSimilarContent, map[recommend.Stage]int{
			recommend.StageGenerate: 0,
			recommend.StageScore:    0,
		}, s, DefaultNumberOfCandidates, "similar to content you've completed"),
		similar: similar,
	}
}

// Generate walks the user's completions, most recent first, and collects up
// to three uncompleted similar items per completion until enough are found.
func (p *SimilarContent) Generate(ctx context.Context, profile *recommend.Profile) (*recommend.CandidateSet, error) {
	set := recommend.NewCandidateSet(profile.UserID)
	if len(profile.Completed) == 0 {
		return set, nil
	}

	scores := make(map[int]float64)
	var order []int
	for _, completedID := range profile.Completed {
		similar, err := p.similar.Similar(ctx, completedID, p.count)
		if err != nil {
			return nil, fmt.Errorf("find content similar to %d: %w", completedID, err)
		}
		added := 0
		for _, item := range similar {
			if profile.HasCompleted(item.ContentID) {
				continue
			}
			if prev, seen := scores[item.ContentID]; seen {
				if item.Score > prev {
					scores[item.ContentID] = item.Score
				}
				continue
			}
			scores[item.ContentID] = item.Score
			order = append(order, item.ContentID)
			added++
			if added >= maxSimilarPerCompletion {
				break
			}
		}
		if len(order) >= p.count {
			break
		}
	}
	if len(order) == 0 {
		return set, nil
	}

	var best float64
	for _, v := range scores {
		if v > best {
			best = v
		}
	}
	for _, id := range order {
		value := scores[id]
		if best > 0 {
			value /= best
		}
		c, _ := set.Add(id)
		c.Stage(p.id, value, p.reason)
	}
	return set, nil
}

// Score finalizes the staged similarity scores.
func (p *SimilarContent) Score(_ context.Context, set *recommend.CandidateSet, _ *recommend.Profile) error {
	p.finalizeOwn(set)
	return nil
}
