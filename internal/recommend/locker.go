// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package recommend

import (
	"sync"

	"github.com/google/uuid"
)

// Locker is the in-flight set of pipeline runs keyed by user. Each held
// lock is identified by a run token so a stale holder cannot release a
// newer run's lock.
type Locker struct {
	mu     sync.Mutex
	tokens map[int]string
}

// NewLocker creates an empty in-flight set.
func NewLocker() *Locker {
	return &Locker{tokens: make(map[int]string)}
}

// TryAcquire claims the user. It returns the run token and true on
// success, or false when a run is already in flight.
func (l *Locker) TryAcquire(userID int) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, held := l.tokens[userID]; held {
		return "", false
	}
	token := uuid.NewString()
	l.tokens[userID] = token
	return token, true
}

// Release frees the user if token still holds it.
func (l *Locker) Release(userID int, token string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.tokens[userID] != token {
		return false
	}
	delete(l.tokens, userID)
	return true
}

// InFlight reports whether a run for the user is in progress.
func (l *Locker) InFlight(userID int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, held := l.tokens[userID]
	return held
}

// Len returns the number of runs in flight.
func (l *Locker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tokens)
}
