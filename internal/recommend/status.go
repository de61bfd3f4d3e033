// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package recommend

import (
	"sort"
	"time"
)

// UserStatus is the pipeline state record of one user.
type UserStatus struct {
	// UserID is the user identifier.
	UserID int `json:"user_id"`

	// Status is the current pipeline state.
	Status Status `json:"status"`

	// Priority orders queued users. Higher runs sooner.
	Priority int `json:"priority"`

	// Created is when the record was first written.
	Created time.Time `json:"created"`

	// Updated is when the last successful run finished. Zero if never.
	Updated time.Time `json:"updated"`

	// Attempted is when the last run started, successful or not.
	Attempted time.Time `json:"attempted"`

	// Requested is when a recomputation was last requested. A request that
	// arrives while a run is in flight leaves the user queued afterwards.
	Requested time.Time `json:"requested"`

	// Duration is the wall time of the last successful run.
	Duration time.Duration `json:"duration"`

	// Retrieved is the number of recommendations the last run produced.
	Retrieved int `json:"retrieved"`

	// LastError holds the failure of the last run, if it failed.
	LastError string `json:"last_error,omitempty"`
}

// NewUserStatus returns a queued status record.
func NewUserStatus(userID int, now time.Time) UserStatus {
	return UserStatus{UserID: userID, Status: StatusQueued, Created: now}
}

// Policy decides when a user's recommendations must be recomputed.
type Policy struct {
	// StaleAfter is the freshness window after Updated.
	StaleAfter time.Duration

	// MinRerunInterval is the minimum time between two runs for a user.
	MinRerunInterval time.Duration
}

// DefaultPolicy returns a four week freshness window with no rerun limit.
func DefaultPolicy() Policy {
	return Policy{StaleAfter: 4 * 7 * 24 * time.Hour}
}

// IsStale reports whether a successful run is older than the freshness window.
func (p Policy) IsStale(s UserStatus, now time.Time) bool {
	if s.Updated.IsZero() {
		return true
	}
	return now.Sub(s.Updated) > p.StaleAfter
}

// Throttled reports whether the user ran too recently to run again.
func (p Policy) Throttled(s UserStatus, now time.Time) bool {
	if p.MinRerunInterval <= 0 {
		return false
	}
	last := s.Attempted
	if s.Updated.After(last) {
		last = s.Updated
	}
	return !last.IsZero() && now.Sub(last) < p.MinRerunInterval
}

// NeedsRun reports whether a status is eligible for a run: it is queued,
// stale, left mid-pipeline, or Ready but past the freshness window, and it
// is not throttled. A fresh Ready status is never eligible, regardless of
// priority.
func (p Policy) NeedsRun(s UserStatus, now time.Time) bool {
	if p.Throttled(s, now) {
		return false
	}
	if s.Status == StatusReady {
		return p.IsStale(s, now)
	}
	return true
}

// Queue returns the statuses eligible for a run ordered by priority
// descending and then by staleness age (oldest Updated first, never-run
// first), with user ID as the final tie breaker. Users in inFlight are
// skipped. At most limit statuses are returned when limit > 0.
func (p Policy) Queue(statuses []UserStatus, now time.Time, inFlight func(userID int) bool, limit int) []UserStatus {
	eligible := make([]UserStatus, 0, len(statuses))
	for _, s := range statuses {
		if inFlight != nil && inFlight(s.UserID) {
			continue
		}
		if p.NeedsRun(s, now) {
			eligible = append(eligible, s)
		}
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		a, b := eligible[i], eligible[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if !a.Updated.Equal(b.Updated) {
			return a.Updated.Before(b.Updated)
		}
		return a.UserID < b.UserID
	})
	if limit > 0 && len(eligible) > limit {
		eligible = eligible[:limit]
	}
	return eligible
}
