// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package plugins

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/tomtom215/wayfinder/internal/recommend"
)

// Plugin identifiers.
const (
	IDNewContent     = "new_content"
	IDTrending       = "trending"
	IDUserInterests  = "user_interests"
	IDSimilarContent = "similar_content"
	IDRandom         = "random"
	IDPadResults     = "pad_results"
	IDRevision       = "revision"
)

// DefaultNumberOfCandidates is the generation size of most plugins.
const DefaultNumberOfCandidates = 5

// IDs returns every built-in plugin ID.
func IDs() []string {
	return []string{
		IDNewContent, IDTrending, IDUserInterests, IDSimilarContent,
		IDRandom, IDPadResults, IDRevision,
	}
}

// Settings are the per-plugin options.
type Settings struct {
	// NumberOfCandidates is how many items the plugin proposes.
	// Zero selects the plugin default. Negative values are rejected by
	// CheckConfig.
	NumberOfCandidates int

	// Reason is the human-readable reason attached to the plugin's scores.
	// Empty selects the plugin default.
	Reason string

	// Seed seeds the plugin's random source. Zero seeds from the clock.
	Seed int64

	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time
}

// base carries the state shared by every plugin.
type base struct {
	id      string
	weights map[recommend.Stage]int
	count   int
	reason  string
	invalid error
	rng     *lockedRand
	now     func() time.Time
}

func newBase(id string, weights map[recommend.Stage]int, s Settings, defaultCount int, defaultReason string) base {
	b := base{
		id:      id,
		weights: weights,
		count:   s.NumberOfCandidates,
		reason:  s.Reason,
		rng:     newLockedRand(s.Seed),
		now:     s.Clock,
	}
	switch {
	case s.NumberOfCandidates < 0:
		b.invalid = fmt.Errorf("number_of_candidates must be >= 0, got %d", s.NumberOfCandidates)
	case s.NumberOfCandidates == 0:
		b.count = defaultCount
	}
	if b.reason == "" {
		b.reason = defaultReason
	}
	if b.now == nil {
		b.now = time.Now
	}
	return b
}

// ID returns the plugin identifier.
func (b *base) ID() string { return b.id }

// Weights returns the default stage weights.
func (b *base) Weights() map[recommend.Stage]int {
	out := make(map[recommend.Stage]int, len(b.weights))
	for k, v := range b.weights {
		out[k] = v
	}
	return out
}

// CheckConfig reports invalid settings.
func (b *base) CheckConfig() error { return b.invalid }

// Reason returns the plugin reason.
func (b *base) Reason() string { return b.reason }

// finalizeOwn promotes every processing score of the plugin to ready.
func (b *base) finalizeOwn(set *recommend.CandidateSet) {
	for _, c := range set.All() {
		if s, ok := c.Score(b.id); ok && !s.Ready() {
			c.Finalize(b.id)
		}
	}
}

// lockedRand is a random source safe for concurrent runs.
type lockedRand struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func newLockedRand(seed int64) *lockedRand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &lockedRand{rng: rand.New(rand.NewSource(seed))} //nolint:gosec // ranking noise, not security
}

// maxRandSteps bounds the three-decimal grid of between. Wider ranges,
// such as weighted sums of large weights, are sampled continuously.
const maxRandSteps = 1_000_000

// between returns a uniform value in [lo, hi], with three decimals when the
// range is narrow enough. It returns lo when the range is empty.
func (r *lockedRand) between(lo, hi float64) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !(hi > lo) {
		return lo
	}
	span := (hi - lo) * 1000
	if span > maxRandSteps || math.IsInf(span, 0) {
		f := r.rng.Float64()
		return math.Min(math.Max(lo*(1-f)+hi*f, lo), hi)
	}
	steps := int(math.Round(span))
	return math.Min(lo+float64(r.rng.Intn(steps+1))/1000, hi)
}
