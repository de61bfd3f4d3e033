// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package recommend

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Retention is the history retention policy.
type Retention struct {
	mode     retentionMode
	duration time.Duration
}

type retentionMode int

const (
	retainForever retentionMode = iota
	retainNever
	retainFor
)

// RetainForever keeps history entries indefinitely.
func RetainForever() Retention { return Retention{mode: retainForever} }

// RetainNever disables history recording.
func RetainNever() Retention { return Retention{mode: retainNever} }

// RetainFor keeps history entries for d.
func RetainFor(d time.Duration) Retention { return Retention{mode: retainFor, duration: d} }

// ParseRetention parses "never", "forever", a Go duration ("720h") or a
// relative duration ("30 days", "2 weeks", "6 months").
func ParseRetention(s string) (Retention, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "", "forever":
		return RetainForever(), nil
	case "never":
		return RetainNever(), nil
	}
	if d, err := time.ParseDuration(v); err == nil {
		if d <= 0 {
			return Retention{}, fmt.Errorf("history retention %q must be positive", s)
		}
		return RetainFor(d), nil
	}

	fields := strings.Fields(v)
	if len(fields) != 2 {
		return Retention{}, fmt.Errorf("invalid history retention %q", s)
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil || n <= 0 {
		return Retention{}, fmt.Errorf("invalid history retention %q: count must be a positive integer", s)
	}
	var unit time.Duration
	switch strings.TrimSuffix(fields[1], "s") {
	case "hour":
		unit = time.Hour
	case "day":
		unit = 24 * time.Hour
	case "week":
		unit = 7 * 24 * time.Hour
	case "month":
		unit = 30 * 24 * time.Hour
	case "year":
		unit = 365 * 24 * time.Hour
	default:
		return Retention{}, fmt.Errorf("invalid history retention %q: unknown unit %q", s, fields[1])
	}
	return RetainFor(time.Duration(n) * unit), nil
}

// Records reports whether history entries are written at all.
func (r Retention) Records() bool { return r.mode != retainNever }

// Expires reports whether entries are ever deleted.
func (r Retention) Expires() bool { return r.mode == retainFor }

// Cutoff returns the time before which entries are expired.
func (r Retention) Cutoff(now time.Time) (time.Time, bool) {
	if r.mode != retainFor {
		return time.Time{}, false
	}
	return now.Add(-r.duration), true
}

// String returns the canonical form accepted by ParseRetention.
func (r Retention) String() string {
	switch r.mode {
	case retainNever:
		return "never"
	case retainFor:
		return r.duration.String()
	default:
		return "forever"
	}
}
