// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/wayfinder/internal/recommend"
)

// MemoryStore is an in-memory Store.
type MemoryStore struct {
	mu       sync.RWMutex
	statuses map[int]recommend.UserStatus
	lists    map[int]recommend.RecommendationList
	history  []recommend.HistoryEntry
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		statuses: make(map[int]recommend.UserStatus),
		lists:    make(map[int]recommend.RecommendationList),
	}
}

// GetStatus returns the user's status record.
func (m *MemoryStore) GetStatus(_ context.Context, userID int) (recommend.UserStatus, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.statuses[userID]
	return s, ok, nil
}

// UpdateStatus applies fn to the user's record under the store lock.
func (m *MemoryStore) UpdateStatus(_ context.Context, userID int, fn func(*recommend.UserStatus, bool)) (recommend.UserStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.statuses[userID]
	if !ok {
		s = recommend.UserStatus{UserID: userID}
	}
	fn(&s, ok)
	s.UserID = userID
	m.statuses[userID] = s
	return s, nil
}

// ListStatuses returns every status ordered by user ID.
func (m *MemoryStore) ListStatuses(_ context.Context) ([]recommend.UserStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]recommend.UserStatus, 0, len(m.statuses))
	for _, s := range m.statuses {
		out = append(out, s)
	}
	sortStatuses(out)
	return out, nil
}

// CurrentList returns the live list of a user.
func (m *MemoryStore) CurrentList(_ context.Context, userID int) (recommend.RecommendationList, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.lists[userID]
	if !ok {
		return recommend.RecommendationList{}, false, nil
	}
	return copyList(l), true, nil
}

// SwapList replaces the live list unless a later-started run already
// stored one.
func (m *MemoryStore) SwapList(_ context.Context, list recommend.RecommendationList) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.lists[list.UserID]; ok && cur.StartedAt.After(list.StartedAt) {
		return recommend.ErrStaleWrite
	}
	m.lists[list.UserID] = copyList(list)
	return nil
}

// AppendHistory records entries.
func (m *MemoryStore) AppendHistory(_ context.Context, entries []recommend.HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, entries...)
	return nil
}

// DeleteHistoryBefore removes up to limit entries older than cutoff.
func (m *MemoryStore) DeleteHistoryBefore(_ context.Context, cutoff time.Time, limit int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.history[:0]
	deleted := 0
	for _, e := range m.history {
		if (limit <= 0 || deleted < limit) && e.Timestamp.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	// Release references held past the new length.
	for i := len(kept); i < len(m.history); i++ {
		m.history[i] = recommend.HistoryEntry{}
	}
	m.history = kept
	return deleted, nil
}

// History returns the entries of a user, oldest first.
func (m *MemoryStore) History(_ context.Context, userID int) ([]recommend.HistoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []recommend.HistoryEntry
	for _, e := range m.history {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func copyList(l recommend.RecommendationList) recommend.RecommendationList {
	items := make([]recommend.Recommendation, len(l.Items))
	copy(items, l.Items)
	l.Items = items
	return l
}

func sortStatuses(statuses []recommend.UserStatus) {
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].UserID < statuses[j].UserID })
}
