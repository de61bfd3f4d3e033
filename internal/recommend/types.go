// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package recommend

import (
	"context"
	"time"
)

// Language codes that match every user regardless of preference.
const (
	// LanguageNotApplicable marks content with no linguistic content.
	LanguageNotApplicable = "zxx"
	// LanguageUndefined marks content whose language is unknown.
	LanguageUndefined = "und"
)

// Flag names understood by the content repository.
const (
	FlagCompleted = "completed"
	FlagReview    = "review"
)

// Ordering selects how the content repository sorts query results.
type Ordering string

const (
	// OrderNone leaves ordering to the repository.
	OrderNone Ordering = ""
	// OrderRandom returns results in random order.
	OrderRandom Ordering = "random"
	// OrderRecency returns the most recently modified items first.
	OrderRecency Ordering = "recency"
	// OrderPopularity returns the most popular items first.
	OrderPopularity Ordering = "popularity"
)

// ContentItem is the metadata of one piece of learning content.
type ContentItem struct {
	// ID is the content identifier.
	ID int `json:"id"`

	// Type is the content bundle (course, learn_article, ...).
	Type string `json:"type"`

	// Topics are the topic IDs the item is tagged with.
	Topics []int `json:"topics,omitempty"`

	// Language is the item language code.
	Language string `json:"language"`

	// Modified is the last-modified timestamp.
	Modified time.Time `json:"modified"`
}

// FlagFilter restricts a query to items a user has flagged.
// The zero value disables the filter.
type FlagFilter struct {
	Name   string `json:"name"`
	UserID int    `json:"user_id"`
}

// IsZero reports whether the filter is disabled.
func (f FlagFilter) IsZero() bool {
	return f.Name == ""
}

// Criteria filters a content repository query. Empty slices do not filter.
type Criteria struct {
	// IDs restricts results to the given content IDs.
	IDs []int `json:"ids,omitempty"`

	// Types restricts results to the given bundles.
	Types []string `json:"types,omitempty"`

	// Topics restricts results to items tagged with any of the topics.
	Topics []int `json:"topics,omitempty"`

	// Languages restricts results to the given language codes.
	Languages []string `json:"languages,omitempty"`

	// ExcludeIDs removes the given content IDs from results.
	ExcludeIDs []int `json:"exclude_ids,omitempty"`

	// Flag restricts results to items flagged by a user.
	Flag FlagFilter `json:"flag"`

	// Limit caps the number of results. Zero means no limit.
	Limit int `json:"limit"`

	// Ordering selects result order.
	Ordering Ordering `json:"ordering"`
}

// ScoredItem is a content ID with a similarity score.
type ScoredItem struct {
	ContentID int     `json:"content_id"`
	Score     float64 `json:"score"`
}

// ContentRepository is the query interface onto the content store.
type ContentRepository interface {
	// Find returns the content items matching the criteria.
	Find(ctx context.Context, criteria Criteria) ([]ContentItem, error)

	// Flagged reports whether a user has set the named flag on a content item.
	Flagged(ctx context.Context, contentID, userID int, flag string) (bool, error)
}

// SimilarityProvider returns content similar to a given item, most similar
// first. Similarity is opaque to the pipeline.
type SimilarityProvider interface {
	Similar(ctx context.Context, contentID, limit int) ([]ScoredItem, error)
}

// Profile is the subset of a user's profile the pipeline consumes.
type Profile struct {
	// UserID is the user identifier.
	UserID int `json:"user_id"`

	// Language is the preferred language code. Empty when unknown.
	Language string `json:"language"`

	// Topics are the user's interest topic IDs.
	Topics []int `json:"topics,omitempty"`

	// Completed are the content IDs the user has completed.
	Completed []int `json:"completed,omitempty"`
}

// HasCompleted reports whether the user completed the content item.
func (p *Profile) HasCompleted(contentID int) bool {
	for _, id := range p.Completed {
		if id == contentID {
			return true
		}
	}
	return false
}

// Languages returns the language codes matching the user: their preferred
// language plus the language-neutral codes.
func (p *Profile) Languages() []string {
	langs := []string{LanguageNotApplicable, LanguageUndefined}
	if p.Language != "" && p.Language != LanguageNotApplicable && p.Language != LanguageUndefined {
		langs = append(langs, p.Language)
	}
	return langs
}

// ProfileProvider resolves user profiles.
type ProfileProvider interface {
	// Profile returns the user's profile. A user without preferences yields
	// a Profile with empty fields, not an error.
	Profile(ctx context.Context, userID int) (*Profile, error)

	// UserIDs returns every known user.
	UserIDs(ctx context.Context) ([]int, error)
}

// Recommendation is one entry of a user's ranked recommendation list.
type Recommendation struct {
	ContentID int     `json:"content_id"`
	Score     float64 `json:"score"`
	Reason    string  `json:"reason"`
}

// RecommendationList is the persisted result of a successful run.
type RecommendationList struct {
	// UserID is the owner of the list.
	UserID int `json:"user_id"`

	// RunID identifies the run that produced the list.
	RunID string `json:"run_id"`

	// StartedAt is when the producing run started. Swaps of lists from
	// runs that started earlier than the stored list are rejected.
	StartedAt time.Time `json:"started_at"`

	// CreatedAt is when the list was written.
	CreatedAt time.Time `json:"created_at"`

	// Items are ordered by descending score.
	Items []Recommendation `json:"items"`
}

// HistoryEntry records one recommendation presented to a user.
type HistoryEntry struct {
	UserID    int       `json:"user_id"`
	ContentID int       `json:"content_id"`
	Score     float64   `json:"score"`
	Reason    string    `json:"reason"`
	RunID     string    `json:"run_id"`
	Timestamp time.Time `json:"timestamp"`
}

// StatusStore persists per-user status records.
type StatusStore interface {
	// GetStatus returns the user's status and whether one exists.
	GetStatus(ctx context.Context, userID int) (UserStatus, bool, error)

	// UpdateStatus atomically applies fn to the user's status and stores
	// the result. When no record exists fn receives a zero status with
	// UserID set and exists false.
	UpdateStatus(ctx context.Context, userID int, fn func(status *UserStatus, exists bool)) (UserStatus, error)

	// ListStatuses returns all status records.
	ListStatuses(ctx context.Context) ([]UserStatus, error)
}

// ListStore persists the current recommendation list per user.
type ListStore interface {
	// CurrentList returns the user's current list and whether one exists.
	CurrentList(ctx context.Context, userID int) (RecommendationList, bool, error)

	// SwapList atomically replaces the user's current list. It returns
	// ErrStaleWrite when the stored list came from a run that started
	// after the given one.
	SwapList(ctx context.Context, list RecommendationList) error
}

// HistoryStore persists recommendation history.
type HistoryStore interface {
	// AppendHistory records entries. Entries are never mutated.
	AppendHistory(ctx context.Context, entries []HistoryEntry) error

	// DeleteHistoryBefore removes up to limit entries older than cutoff and
	// returns how many were removed.
	DeleteHistoryBefore(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

// Observer receives pipeline events for instrumentation. All methods must be
// safe for concurrent use.
type Observer interface {
	RunFinished(result string, duration time.Duration, retrieved int)
	StageFinished(stage Stage, duration time.Duration)
	PluginFailed(pluginID string, stage Stage, kind string)
	HistoryWritten(n int)
	HistoryDeleted(n int)
	StaleMarked(n int)
	QueueProcessed(result string)
}

type nopObserver struct{}

func (nopObserver) RunFinished(string, time.Duration, int) {}
func (nopObserver) StageFinished(Stage, time.Duration)     {}
func (nopObserver) PluginFailed(string, Stage, string)     {}
func (nopObserver) HistoryWritten(int)                     {}
func (nopObserver) HistoryDeleted(int)                     {}
func (nopObserver) StaleMarked(int)                        {}
func (nopObserver) QueueProcessed(string)                  {}
