// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package plugins

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/wayfinder/internal/recommend"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testClock() time.Time { return testNow }

// fakeRepo is an in-memory ContentRepository and SimilarityProvider.
// OrderRandom keeps insertion order so results are deterministic.
type fakeRepo struct {
	mu         sync.Mutex
	items      []recommend.ContentItem
	popularity map[int]int
	flags      map[string]bool
	similar    map[int][]recommend.ScoredItem
	err        error
	queries    []recommend.Criteria
}

func newFakeRepo(items ...recommend.ContentItem) *fakeRepo {
	return &fakeRepo{
		items:      items,
		popularity: make(map[int]int),
		flags:      make(map[string]bool),
		similar:    make(map[int][]recommend.ScoredItem),
	}
}

func flagKey(contentID, userID int, flag string) string {
	return fmt.Sprintf("%d/%d/%s", contentID, userID, flag)
}

func (f *fakeRepo) flag(contentID, userID int, flag string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flags[flagKey(contentID, userID, flag)] = true
}

func (f *fakeRepo) Find(_ context.Context, c recommend.Criteria) ([]recommend.ContentItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, c)
	if f.err != nil {
		return nil, f.err
	}

	var out []recommend.ContentItem
	for _, item := range f.items {
		if len(c.IDs) > 0 && !containsInt(c.IDs, item.ID) {
			continue
		}
		if containsInt(c.ExcludeIDs, item.ID) {
			continue
		}
		if len(c.Types) > 0 && !containsString(c.Types, item.Type) {
			continue
		}
		if len(c.Languages) > 0 && !containsString(c.Languages, item.Language) {
			continue
		}
		if len(c.Topics) > 0 && !anyInt(c.Topics, item.Topics) {
			continue
		}
		if !c.Flag.IsZero() && !f.flags[flagKey(item.ID, c.Flag.UserID, c.Flag.Name)] {
			continue
		}
		out = append(out, item)
	}

	switch c.Ordering {
	case recommend.OrderRecency:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Modified.After(out[j].Modified) })
	case recommend.OrderPopularity:
		sort.SliceStable(out, func(i, j int) bool { return f.popularity[out[i].ID] > f.popularity[out[j].ID] })
	}
	if c.Limit > 0 && len(out) > c.Limit {
		out = out[:c.Limit]
	}
	return out, nil
}

func (f *fakeRepo) Flagged(_ context.Context, contentID, userID int, flag string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	return f.flags[flagKey(contentID, userID, flag)], nil
}

func (f *fakeRepo) Similar(_ context.Context, contentID, limit int) ([]recommend.ScoredItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := f.similar[contentID]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func containsInt(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func containsString(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func anyInt(want, have []int) bool {
	for _, v := range have {
		if containsInt(want, v) {
			return true
		}
	}
	return false
}

func item(id int, typ string, lang string, modified time.Time, topics ...int) recommend.ContentItem {
	return recommend.ContentItem{ID: id, Type: typ, Language: lang, Modified: modified, Topics: topics}
}

func scoreOf(t *testing.T, set *recommend.CandidateSet, contentID int, pluginID string) recommend.Score {
	t.Helper()
	c, ok := set.Get(contentID)
	if !ok {
		t.Fatalf("candidate %d missing", contentID)
	}
	s, ok := c.Score(pluginID)
	if !ok {
		t.Fatalf("candidate %d has no %s score", contentID, pluginID)
	}
	return s
}
