// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package supervisor

import (
	"context"
	"sync"
	"sync/atomic"
)

// mockService counts starts and optionally fails its first runs.
type mockService struct {
	name      string
	starts    atomic.Int32
	stops     atomic.Int32
	mu        sync.Mutex
	failCount int
	err       error
	started   chan struct{}
}

func newMockService(name string) *mockService {
	return &mockService{name: name, started: make(chan struct{}, 16)}
}

// failFirst makes the first n runs return err.
func (m *mockService) failFirst(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failCount = n
	m.err = err
}

func (m *mockService) Serve(ctx context.Context) error {
	m.starts.Add(1)
	select {
	case m.started <- struct{}{}:
	default:
	}

	m.mu.Lock()
	if m.failCount > 0 {
		m.failCount--
		err := m.err
		m.mu.Unlock()
		return err
	}
	m.mu.Unlock()

	<-ctx.Done()
	m.stops.Add(1)
	return ctx.Err()
}

func (m *mockService) String() string {
	return m.name
}
