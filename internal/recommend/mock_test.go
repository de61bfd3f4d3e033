// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package recommend

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// memStore implements StatusStore, ListStore and HistoryStore for testing.
type memStore struct {
	mu       sync.Mutex
	statuses map[int]UserStatus
	lists    map[int]RecommendationList
	history  []HistoryEntry

	statusErr error
	swapErr   error
	swaps     int
	// statusLog records every status written, in order.
	statusLog []Status
}

func newMemStore() *memStore {
	return &memStore{
		statuses: make(map[int]UserStatus),
		lists:    make(map[int]RecommendationList),
	}
}

func (m *memStore) GetStatus(_ context.Context, userID int) (UserStatus, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.statusErr != nil {
		return UserStatus{}, false, m.statusErr
	}
	s, ok := m.statuses[userID]
	return s, ok, nil
}

func (m *memStore) UpdateStatus(_ context.Context, userID int, fn func(*UserStatus, bool)) (UserStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.statusErr != nil {
		return UserStatus{}, m.statusErr
	}
	s, ok := m.statuses[userID]
	if !ok {
		s = UserStatus{UserID: userID}
	}
	fn(&s, ok)
	s.UserID = userID
	m.statuses[userID] = s
	m.statusLog = append(m.statusLog, s.Status)
	return s, nil
}

func (m *memStore) ListStatuses(_ context.Context) ([]UserStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]UserStatus, 0, len(m.statuses))
	for _, s := range m.statuses {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (m *memStore) CurrentList(_ context.Context, userID int) (RecommendationList, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lists[userID]
	return l, ok, nil
}

func (m *memStore) SwapList(_ context.Context, list RecommendationList) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.swapErr != nil {
		return m.swapErr
	}
	if cur, ok := m.lists[list.UserID]; ok && cur.StartedAt.After(list.StartedAt) {
		return ErrStaleWrite
	}
	m.lists[list.UserID] = list
	m.swaps++
	return nil
}

func (m *memStore) AppendHistory(_ context.Context, entries []HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, entries...)
	return nil
}

func (m *memStore) DeleteHistoryBefore(_ context.Context, cutoff time.Time, limit int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.history[:0]
	deleted := 0
	for _, e := range m.history {
		if deleted < limit && e.Timestamp.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	m.history = kept
	return deleted, nil
}

func (m *memStore) status(userID int) UserStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statuses[userID]
}

// mockProfiles implements ProfileProvider for testing.
type mockProfiles struct {
	mu       sync.Mutex
	profiles map[int]*Profile
	err      error
}

func (m *mockProfiles) Profile(_ context.Context, userID int) (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if p, ok := m.profiles[userID]; ok {
		cp := *p
		return &cp, nil
	}
	return &Profile{UserID: userID}, nil
}

func (m *mockProfiles) UserIDs(_ context.Context) ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int, 0, len(m.profiles))
	for id := range m.profiles {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}

// stubPlugin is a configurable plugin taking part in any stage.
type stubPlugin struct {
	id      string
	weights map[Stage]int

	generate func(ctx context.Context, p *Profile) (*CandidateSet, error)
	alter    func(ctx context.Context, set *CandidateSet, p *Profile) error
	score    func(ctx context.Context, set *CandidateSet, p *Profile) error
	rerank   func(ctx context.Context, ranked []*Candidate, p *Profile) ([]*Candidate, error)
	confErr  error

	mu    sync.Mutex
	calls []Stage
}

func (s *stubPlugin) ID() string             { return s.id }
func (s *stubPlugin) Weights() map[Stage]int { return s.weights }
func (s *stubPlugin) CheckConfig() error     { return s.confErr }

func (s *stubPlugin) record(stage Stage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, stage)
}

func (s *stubPlugin) Generate(ctx context.Context, p *Profile) (*CandidateSet, error) {
	s.record(StageGenerate)
	if s.generate == nil {
		return NewCandidateSet(p.UserID), nil
	}
	return s.generate(ctx, p)
}

func (s *stubPlugin) Alter(ctx context.Context, set *CandidateSet, p *Profile) error {
	s.record(StageAlter)
	if s.alter == nil {
		return nil
	}
	return s.alter(ctx, set, p)
}

func (s *stubPlugin) Score(ctx context.Context, set *CandidateSet, p *Profile) error {
	s.record(StageScore)
	if s.score == nil {
		return nil
	}
	return s.score(ctx, set, p)
}

func (s *stubPlugin) Rerank(ctx context.Context, ranked []*Candidate, p *Profile) ([]*Candidate, error) {
	s.record(StageRerank)
	if s.rerank == nil {
		return ranked, nil
	}
	return s.rerank(ctx, ranked, p)
}

// generatorOnly implements Generator without any other capability.
type generatorOnly struct {
	id string
}

func (g generatorOnly) ID() string             { return g.id }
func (g generatorOnly) Weights() map[Stage]int { return map[Stage]int{StageScore: 0} }
func (g generatorOnly) Generate(context.Context, *Profile) (*CandidateSet, error) {
	return nil, nil
}

// stagedScores returns a generator staging fixed processing scores and a
// scorer finalizing them.
func stagedScores(id string, scores map[int]float64, order []int) *stubPlugin {
	return &stubPlugin{
		id:      id,
		weights: map[Stage]int{StageGenerate: 0, StageScore: 0},
		generate: func(_ context.Context, p *Profile) (*CandidateSet, error) {
			set := NewCandidateSet(p.UserID)
			for _, cid := range order {
				c, _ := set.Add(cid)
				c.Stage(id, scores[cid], id+" reason")
			}
			return set, nil
		},
		score: func(_ context.Context, set *CandidateSet, _ *Profile) error {
			for _, c := range set.All() {
				c.Finalize(id)
			}
			return nil
		},
	}
}

// countingObserver records observer calls.
type countingObserver struct {
	mu      sync.Mutex
	results map[string]int
	plugins map[string]int
	stale   int
	written int
	deleted int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{results: make(map[string]int), plugins: make(map[string]int)}
}

func (c *countingObserver) RunFinished(result string, _ time.Duration, _ int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results[result]++
}

func (c *countingObserver) StageFinished(Stage, time.Duration) {}

func (c *countingObserver) PluginFailed(pluginID string, _ Stage, kind string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.plugins[pluginID+"/"+kind]++
}

func (c *countingObserver) HistoryWritten(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written += n
}

func (c *countingObserver) HistoryDeleted(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleted += n
}

func (c *countingObserver) StaleMarked(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stale += n
}

func (c *countingObserver) QueueProcessed(string) {}

var errBoom = errors.New("boom")
