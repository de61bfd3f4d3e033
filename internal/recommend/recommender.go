// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package recommend

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Trigger priorities.
const (
	PriorityRegistration  = 50
	PriorityProfileUpdate = 10
	PriorityLogin         = 0
	PriorityReset         = 100
	MaxPriority           = 1000
)

// Settings controls scheduling and trigger behaviour.
type Settings struct {
	// Policy is the staleness policy.
	Policy Policy

	// Retention is the history retention policy.
	Retention Retention

	// CronEnabled limits recomputation to ProcessQueue. When false,
	// triggers and Get recompute synchronously.
	CronEnabled bool

	// RerankOnLoad applies the rerank stage when serving a stored list.
	RerankOnLoad bool

	// BuildOnRegistration queues new users.
	BuildOnRegistration bool

	// BuildOnProfileUpdate queues users whose profile changed.
	BuildOnProfileUpdate bool

	// BuildOnLogin queues users on login.
	BuildOnLogin bool
}

// DefaultSettings returns the built-in defaults.
func DefaultSettings() Settings {
	return Settings{
		Policy:               DefaultPolicy(),
		Retention:            RetainForever(),
		BuildOnRegistration:  true,
		BuildOnProfileUpdate: true,
	}
}

// Limiter paces pipeline runs. *rate.Limiter satisfies it.
type Limiter interface {
	Wait(ctx context.Context) error
}

// QueueOptions bounds one ProcessQueue pass.
type QueueOptions struct {
	// BatchSize caps the number of users selected. Zero means no cap.
	BatchSize int

	// TimeBudget stops launching new runs once elapsed. Zero means no budget.
	TimeBudget time.Duration

	// Concurrency is the number of parallel runs. Defaults to 1.
	Concurrency int

	// Limiter paces run starts. Optional.
	Limiter Limiter
}

// QueueStats summarizes a ProcessQueue pass.
type QueueStats struct {
	Selected  int           `json:"selected"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Duration  time.Duration `json:"duration"`
}

// PluginHealth is the check-status report of one plugin.
type PluginHealth struct {
	ID      string        `json:"id"`
	Enabled bool          `json:"enabled"`
	Stages  map[Stage]int `json:"stages"`
	OK      bool          `json:"ok"`
	Message string        `json:"message,omitempty"`
}

// RecommenderConfig wires a Recommender.
type RecommenderConfig struct {
	Orchestrator *Orchestrator
	Profiles     ProfileProvider
	Statuses     StatusStore
	Lists        ListStore
	History      HistoryStore
	Settings     Settings
	Observer     Observer
	Logger       zerolog.Logger
	Clock        func() time.Time
}

// Recommender is the entry point of the host application: it serves lists,
// handles recomputation triggers, drains the queue, and maintains
// staleness and history.
type Recommender struct {
	orch     *Orchestrator
	profiles ProfileProvider
	statuses StatusStore
	lists    ListStore
	history  HistoryStore
	settings Settings
	observer Observer
	logger   zerolog.Logger
	now      func() time.Time
}

// NewRecommender creates a Recommender.
func NewRecommender(cfg RecommenderConfig) (*Recommender, error) {
	if cfg.Orchestrator == nil {
		return nil, fmt.Errorf("recommender: orchestrator is required")
	}
	if cfg.Profiles == nil || cfg.Statuses == nil || cfg.Lists == nil {
		return nil, fmt.Errorf("recommender: profiles, statuses and lists are required")
	}
	if cfg.Observer == nil {
		cfg.Observer = nopObserver{}
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Recommender{
		orch:     cfg.Orchestrator,
		profiles: cfg.Profiles,
		statuses: cfg.Statuses,
		lists:    cfg.Lists,
		history:  cfg.History,
		settings: cfg.Settings,
		observer: cfg.Observer,
		logger:   cfg.Logger.With().Str("component", "recommender").Logger(),
		now:      cfg.Clock,
	}, nil
}

// Settings returns the active settings.
func (r *Recommender) Settings() Settings { return r.settings }

// Get returns the user's current recommendations. In synchronous mode a
// missing, queued or stale list is recomputed first. A user without a
// list gets an empty slice, not an error.
func (r *Recommender) Get(ctx context.Context, userID int) ([]Recommendation, error) {
	status, exists, err := r.statuses.GetStatus(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get status: %w", err)
	}
	list, has, err := r.lists.CurrentList(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get recommendations: %w", err)
	}

	if !r.settings.CronEnabled && r.needsRefresh(status, exists, has) {
		recs, err := r.orch.Run(ctx, userID)
		if err == nil {
			return recs, nil
		}
		r.logger.Warn().Err(err).Int("user_id", userID).Msg("On-access recomputation failed, serving stored recommendations")
		if list, has, err = r.lists.CurrentList(ctx, userID); err != nil {
			return nil, fmt.Errorf("get recommendations: %w", err)
		}
	}

	if !has || len(list.Items) == 0 {
		return []Recommendation{}, nil
	}
	items := list.Items
	if r.settings.RerankOnLoad {
		reranked, err := r.orch.Rerank(ctx, userID, items)
		if err != nil {
			r.logger.Warn().Err(err).Int("user_id", userID).Msg("Rerank on load failed, serving stored order")
			return items, nil
		}
		return reranked, nil
	}
	return items, nil
}

func (r *Recommender) needsRefresh(status UserStatus, exists, has bool) bool {
	now := r.now()
	if !exists {
		return true
	}
	if r.settings.Policy.Throttled(status, now) {
		return false
	}
	if !has {
		return true
	}
	return r.settings.Policy.NeedsRun(status, now)
}

// HasRecommendations reports whether the user has a current, non-stale list.
func (r *Recommender) HasRecommendations(ctx context.Context, userID int) (bool, error) {
	status, exists, err := r.statuses.GetStatus(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("get status: %w", err)
	}
	if exists && status.Status == StatusStale {
		return false, nil
	}
	_, has, err := r.lists.CurrentList(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("get recommendations: %w", err)
	}
	return has, nil
}

// Status returns the user's status record.
func (r *Recommender) Status(ctx context.Context, userID int) (UserStatus, bool, error) {
	return r.statuses.GetStatus(ctx, userID)
}

// Enqueue requests a recomputation with at least the given priority. In
// synchronous mode the pipeline runs before Enqueue returns unless the user
// ran within the minimum rerun interval; a throttled user stays Queued for
// the next Get or queue pass. Pipeline failures are logged and leave the
// user queued.
func (r *Recommender) Enqueue(ctx context.Context, userID, priority int) error {
	return r.enqueue(ctx, userID, priority, false)
}

// Reset invalidates the user's recommendations at reset priority. An admin
// reset is not subject to the minimum rerun interval.
func (r *Recommender) Reset(ctx context.Context, userID int) error {
	return r.enqueue(ctx, userID, PriorityReset, true)
}

func (r *Recommender) enqueue(ctx context.Context, userID, priority int, force bool) error {
	status, err := r.markQueued(ctx, userID, priority)
	if err != nil {
		return err
	}
	if r.settings.CronEnabled {
		return nil
	}
	if !force && r.settings.Policy.Throttled(status, r.now()) {
		r.logger.Debug().Int("user_id", userID).Msg("Recommendation run throttled, user left queued")
		return nil
	}
	if _, err := r.orch.Run(ctx, userID); err != nil {
		if errors.Is(err, ErrRunInProgress) {
			return nil
		}
		r.logger.Warn().Err(err).Int("user_id", userID).Msg("Synchronous recommendation run failed")
	}
	return nil
}

func (r *Recommender) markQueued(ctx context.Context, userID, priority int) (UserStatus, error) {
	if priority < 0 || priority > MaxPriority {
		return UserStatus{}, fmt.Errorf("priority %d out of range [0, %d]", priority, MaxPriority)
	}
	now := r.now()
	status, err := r.statuses.UpdateStatus(ctx, userID, func(s *UserStatus, exists bool) {
		if !exists {
			*s = NewUserStatus(userID, now)
		}
		if !s.Status.InProgress() {
			s.Status = StatusQueued
		}
		if priority > s.Priority {
			s.Priority = priority
		}
		s.Requested = now
	})
	if err != nil {
		return UserStatus{}, fmt.Errorf("queue user %d: %w", userID, err)
	}
	return status, nil
}

// OnRegistration handles a newly registered user.
func (r *Recommender) OnRegistration(ctx context.Context, userID int) error {
	if !r.settings.BuildOnRegistration {
		return nil
	}
	return r.Enqueue(ctx, userID, PriorityRegistration)
}

// OnProfileUpdate handles a profile change.
func (r *Recommender) OnProfileUpdate(ctx context.Context, userID int) error {
	if !r.settings.BuildOnProfileUpdate {
		return nil
	}
	return r.Enqueue(ctx, userID, PriorityProfileUpdate)
}

// OnLogin handles a user login.
func (r *Recommender) OnLogin(ctx context.Context, userID int) error {
	if !r.settings.BuildOnLogin {
		return nil
	}
	return r.Enqueue(ctx, userID, PriorityLogin)
}

// QueueAll marks every known user Queued with the given priority without
// running the pipeline. It returns the number of users queued.
func (r *Recommender) QueueAll(ctx context.Context, priority int) (int, error) {
	ids, err := r.profiles.UserIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list users: %w", err)
	}
	statuses, err := r.statuses.ListStatuses(ctx)
	if err != nil {
		return 0, fmt.Errorf("list statuses: %w", err)
	}

	seen := make(map[int]bool, len(ids)+len(statuses))
	all := make([]int, 0, len(ids)+len(statuses))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			all = append(all, id)
		}
	}
	for _, s := range statuses {
		if !seen[s.UserID] {
			seen[s.UserID] = true
			all = append(all, s.UserID)
		}
	}

	for i, id := range all {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if _, err := r.markQueued(ctx, id, priority); err != nil {
			return i, err
		}
	}
	r.logger.Info().Int("users", len(all)).Int("priority", priority).Msg("Queued all users for recommendation rebuild")
	return len(all), nil
}

// MarkStale moves Ready users past the freshness window to Stale and
// returns how many were marked.
func (r *Recommender) MarkStale(ctx context.Context) (int, error) {
	statuses, err := r.statuses.ListStatuses(ctx)
	if err != nil {
		return 0, fmt.Errorf("list statuses: %w", err)
	}
	now := r.now()
	marked := 0
	for _, s := range statuses {
		if s.Status != StatusReady || !r.settings.Policy.IsStale(s, now) {
			continue
		}
		changed := false
		_, err := r.statuses.UpdateStatus(ctx, s.UserID, func(cur *UserStatus, exists bool) {
			if exists && cur.Status == StatusReady && r.settings.Policy.IsStale(*cur, now) {
				cur.Status = StatusStale
				changed = true
			}
		})
		if err != nil {
			return marked, fmt.Errorf("mark user %d stale: %w", s.UserID, err)
		}
		if changed {
			marked++
		}
	}
	if marked > 0 {
		r.observer.StaleMarked(marked)
		r.logger.Info().Int("users", marked).Msg("Marked recommendations stale")
	}
	return marked, nil
}

// ProcessQueue runs the pipeline for eligible users, highest priority and
// oldest first, within the bounds of opts.
func (r *Recommender) ProcessQueue(ctx context.Context, opts QueueOptions) (QueueStats, error) {
	start := time.Now()
	statuses, err := r.statuses.ListStatuses(ctx)
	if err != nil {
		return QueueStats{}, fmt.Errorf("list statuses: %w", err)
	}

	queue := r.settings.Policy.Queue(statuses, r.now(), r.orch.Locker().InFlight, opts.BatchSize)
	stats := QueueStats{Selected: len(queue)}
	if len(queue) == 0 {
		return stats, nil
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, concurrency)
	)
	record := func(result string) {
		mu.Lock()
		defer mu.Unlock()
		switch result {
		case "success":
			stats.Succeeded++
		case "error":
			stats.Failed++
		default:
			stats.Skipped++
		}
		r.observer.QueueProcessed(result)
	}

	for i, s := range queue {
		if ctx.Err() != nil || (opts.TimeBudget > 0 && time.Since(start) >= opts.TimeBudget) {
			for range queue[i:] {
				record("skipped")
			}
			break
		}
		if opts.Limiter != nil {
			if err := opts.Limiter.Wait(ctx); err != nil {
				for range queue[i:] {
					record("skipped")
				}
				break
			}
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(userID int) {
			defer wg.Done()
			defer func() { <-sem }()

			_, err := r.orch.Run(ctx, userID)
			switch {
			case err == nil:
				record("success")
			case errors.Is(err, ErrRunInProgress):
				record("skipped")
			default:
				record("error")
			}
		}(s.UserID)
	}
	wg.Wait()

	stats.Duration = time.Since(start)
	r.logger.Info().
		Int("selected", stats.Selected).
		Int("succeeded", stats.Succeeded).
		Int("failed", stats.Failed).
		Int("skipped", stats.Skipped).
		Dur("duration", stats.Duration).
		Msg("Processed recommendation queue")
	return stats, nil
}

// CleanupHistory deletes expired history entries in batches and returns the
// number removed. It is a no-op unless retention is a duration.
func (r *Recommender) CleanupHistory(ctx context.Context, batch int) (int, error) {
	cutoff, ok := r.settings.Retention.Cutoff(r.now())
	if !ok || r.history == nil {
		return 0, nil
	}
	if batch <= 0 {
		batch = 5000
	}
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := r.history.DeleteHistoryBefore(ctx, cutoff, batch)
		if err != nil {
			return total, fmt.Errorf("delete history: %w", err)
		}
		total += n
		if n > 0 {
			r.observer.HistoryDeleted(n)
		}
		if n < batch {
			break
		}
	}
	if total > 0 {
		r.logger.Info().Int("deleted", total).Time("cutoff", cutoff).Msg("Cleaned up recommendation history")
	}
	return total, nil
}

// CheckStatus reports the configuration health of every registered plugin.
func (r *Recommender) CheckStatus() []PluginHealth {
	reg := r.orch.Registry()
	plugins := reg.All()
	out := make([]PluginHealth, 0, len(plugins))
	for _, p := range plugins {
		h := PluginHealth{
			ID:      p.ID(),
			Enabled: reg.Enabled(p.ID()),
			Stages:  make(map[Stage]int),
			OK:      true,
		}
		for stage := range p.Weights() {
			if w, ok := reg.Weight(p.ID(), stage); ok {
				h.Stages[stage] = w
			}
		}
		if checker, ok := p.(ConfigChecker); ok {
			if err := checker.CheckConfig(); err != nil {
				h.OK = false
				h.Message = err.Error()
			}
		}
		out = append(out, h)
	}
	return out
}

// PluginOrder returns the enabled plugin IDs of every plugin stage in
// execution order.
func (r *Recommender) PluginOrder() map[Stage][]string {
	reg := r.orch.Registry()
	out := make(map[Stage][]string, len(PluginStages()))
	for _, stage := range PluginStages() {
		ids := []string{}
		for _, p := range reg.ForStage(stage) {
			ids = append(ids, p.ID())
		}
		out[stage] = ids
	}
	return out
}

// StatusCounts returns the number of users per status.
func (r *Recommender) StatusCounts(ctx context.Context) (map[Status]int, error) {
	statuses, err := r.statuses.ListStatuses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list statuses: %w", err)
	}
	counts := make(map[Status]int)
	for _, s := range statuses {
		counts[s.Status]++
	}
	return counts, nil
}
