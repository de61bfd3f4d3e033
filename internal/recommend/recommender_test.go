// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package recommend

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type recommenderFixture struct {
	store    *memStore
	profiles *mockProfiles
	obs      *countingObserver
	rec      *Recommender
	runs     *atomic.Int32
}

func newRecommenderFixture(t *testing.T, settings Settings, clock func() time.Time) *recommenderFixture {
	t.Helper()
	if clock == nil {
		clock = func() time.Time { return testNow }
	}

	f := &recommenderFixture{
		store: newMemStore(),
		profiles: &mockProfiles{profiles: map[int]*Profile{
			1: {UserID: 1},
			2: {UserID: 2},
			3: {UserID: 3},
		}},
		obs:  newCountingObserver(),
		runs: &atomic.Int32{},
	}

	counter := stagedScores("counter", map[int]float64{10: 0.6, 11: 0.4}, []int{10, 11})
	inner := counter.generate
	counter.generate = func(ctx context.Context, p *Profile) (*CandidateSet, error) {
		f.runs.Add(1)
		return inner(ctx, p)
	}

	reg := NewRegistry()
	if err := reg.Register(counter); err != nil {
		t.Fatal(err)
	}
	orch, err := NewOrchestrator(OrchestratorConfig{
		Registry:  reg,
		Profiles:  f.profiles,
		Statuses:  f.store,
		Lists:     f.store,
		History:   f.store,
		Retention: settings.Retention,
		Observer:  f.obs,
		Logger:    zerolog.Nop(),
		Clock:     clock,
	})
	if err != nil {
		t.Fatal(err)
	}
	f.rec, err = NewRecommender(RecommenderConfig{
		Orchestrator: orch,
		Profiles:     f.profiles,
		Statuses:     f.store,
		Lists:        f.store,
		History:      f.store,
		Settings:     settings,
		Observer:     f.obs,
		Logger:       zerolog.Nop(),
		Clock:        clock,
	})
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func cronSettings() Settings {
	s := DefaultSettings()
	s.CronEnabled = true
	return s
}

func TestRecommender_GetComputesOnAccess(t *testing.T) {
	t.Parallel()

	f := newRecommenderFixture(t, DefaultSettings(), nil)
	recs, err := f.rec.Get(context.Background(), 1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(recs) != 2 || recs[0].ContentID != 10 {
		t.Errorf("recs = %+v", recs)
	}

	// Fresh Ready list is served without a new run.
	if _, err := f.rec.Get(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	if n := f.runs.Load(); n != 1 {
		t.Errorf("pipeline runs = %d, want 1", n)
	}
}

func TestRecommender_GetCronModeServesEmpty(t *testing.T) {
	t.Parallel()

	f := newRecommenderFixture(t, cronSettings(), nil)
	recs, err := f.rec.Get(context.Background(), 1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if recs == nil || len(recs) != 0 {
		t.Errorf("recs = %#v, want empty non-nil slice", recs)
	}
	if f.runs.Load() != 0 {
		t.Error("cron mode ran the pipeline on access")
	}
}

func TestRecommender_GetServesStoredListOnFailure(t *testing.T) {
	t.Parallel()

	f := newRecommenderFixture(t, DefaultSettings(), nil)
	f.store.lists[1] = RecommendationList{UserID: 1, RunID: "old", Items: []Recommendation{{ContentID: 99, Score: 1}}}
	f.profiles.err = errBoom

	recs, err := f.rec.Get(context.Background(), 1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(recs) != 1 || recs[0].ContentID != 99 {
		t.Errorf("recs = %+v, want stored list", recs)
	}
}

func TestRecommender_EnqueueCronMode(t *testing.T) {
	t.Parallel()

	f := newRecommenderFixture(t, cronSettings(), nil)
	ctx := context.Background()

	if err := f.rec.Enqueue(ctx, 1, PriorityProfileUpdate); err != nil {
		t.Fatal(err)
	}
	if err := f.rec.Enqueue(ctx, 1, PriorityLogin); err != nil {
		t.Fatal(err)
	}
	status := f.store.status(1)
	if status.Status != StatusQueued || status.Priority != PriorityProfileUpdate {
		t.Errorf("status = %s priority %d, want Queued priority %d", status.Status, status.Priority, PriorityProfileUpdate)
	}
	if !status.Requested.Equal(testNow) {
		t.Errorf("Requested = %v", status.Requested)
	}
	if f.runs.Load() != 0 {
		t.Error("cron mode ran the pipeline on enqueue")
	}

	if err := f.rec.Enqueue(ctx, 1, MaxPriority+1); err == nil {
		t.Error("expected error for out of range priority")
	}
	if err := f.rec.Enqueue(ctx, 1, -1); err == nil {
		t.Error("expected error for negative priority")
	}
}

func TestRecommender_EnqueueSyncModeRuns(t *testing.T) {
	t.Parallel()

	f := newRecommenderFixture(t, DefaultSettings(), nil)
	if err := f.rec.Reset(context.Background(), 2); err != nil {
		t.Fatal(err)
	}
	status := f.store.status(2)
	if status.Status != StatusReady || status.Priority != 0 {
		t.Errorf("status = %s priority %d, want Ready priority 0", status.Status, status.Priority)
	}
	has, err := f.rec.HasRecommendations(context.Background(), 2)
	if err != nil || !has {
		t.Errorf("HasRecommendations = %v, %v", has, err)
	}
}

func TestRecommender_TriggersHonourMinRerunInterval(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	settings := DefaultSettings()
	settings.Policy.MinRerunInterval = time.Hour
	f := newRecommenderFixture(t, settings, nil)

	for i := 0; i < 5; i++ {
		if err := f.rec.OnProfileUpdate(ctx, 1); err != nil {
			t.Fatalf("OnProfileUpdate #%d: %v", i, err)
		}
	}
	if got := f.runs.Load(); got != 1 {
		t.Fatalf("pipeline runs = %d, want 1", got)
	}
	status := f.store.status(1)
	if status.Status != StatusQueued || status.Priority != PriorityProfileUpdate {
		t.Errorf("status = %s priority %d, want Queued priority %d", status.Status, status.Priority, PriorityProfileUpdate)
	}

	if err := f.rec.Enqueue(ctx, 1, 10); err != nil {
		t.Fatal(err)
	}
	if _, err := f.rec.Get(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if got := f.runs.Load(); got != 1 {
		t.Errorf("pipeline runs after Enqueue and Get = %d, want 1", got)
	}

	// An admin reset is not throttled.
	if err := f.rec.Reset(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if got := f.runs.Load(); got != 2 {
		t.Errorf("pipeline runs after Reset = %d, want 2", got)
	}
	if status := f.store.status(1); status.Status != StatusReady {
		t.Errorf("status after Reset = %s, want Ready", status.Status)
	}
}

func TestRecommender_Triggers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		trigger func(*Recommender, context.Context, int) error
		queued  bool
		prio    int
	}{
		{"registration", (*Recommender).OnRegistration, true, PriorityRegistration},
		{"profile update", (*Recommender).OnProfileUpdate, true, PriorityProfileUpdate},
		{"login disabled by default", (*Recommender).OnLogin, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newRecommenderFixture(t, cronSettings(), nil)
			if err := tt.trigger(f.rec, context.Background(), 1); err != nil {
				t.Fatal(err)
			}
			status, exists, _ := f.rec.Status(context.Background(), 1)
			if exists != tt.queued {
				t.Fatalf("status exists = %v, want %v", exists, tt.queued)
			}
			if tt.queued && (status.Status != StatusQueued || status.Priority != tt.prio) {
				t.Errorf("status = %+v", status)
			}
		})
	}
}

func TestRecommender_QueueAll(t *testing.T) {
	t.Parallel()

	f := newRecommenderFixture(t, cronSettings(), nil)
	f.store.statuses[7] = UserStatus{UserID: 7, Status: StatusReady, Updated: testNow}

	n, err := f.rec.QueueAll(context.Background(), 5)
	if err != nil {
		t.Fatal(err)
	}
	if n != 4 {
		t.Errorf("queued %d users, want 4", n)
	}
	for _, id := range []int{1, 2, 3, 7} {
		if s := f.store.status(id); s.Status != StatusQueued || s.Priority != 5 {
			t.Errorf("user %d status = %s priority %d", id, s.Status, s.Priority)
		}
	}
}

func TestRecommender_MarkStale(t *testing.T) {
	t.Parallel()

	f := newRecommenderFixture(t, cronSettings(), nil)
	old := testNow.Add(-5 * 7 * 24 * time.Hour)
	f.store.statuses[1] = UserStatus{UserID: 1, Status: StatusReady, Updated: old}
	f.store.statuses[2] = UserStatus{UserID: 2, Status: StatusReady, Updated: testNow.Add(-time.Hour)}
	f.store.statuses[3] = UserStatus{UserID: 3, Status: StatusQueued, Updated: old}

	n, err := f.rec.MarkStale(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 || f.obs.stale != 1 {
		t.Errorf("marked %d (observer %d), want 1", n, f.obs.stale)
	}
	if s := f.store.status(1).Status; s != StatusStale {
		t.Errorf("user 1 = %s, want Stale", s)
	}
	if s := f.store.status(2).Status; s != StatusReady {
		t.Errorf("user 2 = %s, want Ready", s)
	}
	if has, _ := f.rec.HasRecommendations(context.Background(), 1); has {
		t.Error("stale user reported as having recommendations")
	}
}

func TestRecommender_ProcessQueue(t *testing.T) {
	t.Parallel()

	f := newRecommenderFixture(t, cronSettings(), nil)
	f.store.statuses[1] = UserStatus{UserID: 1, Status: StatusQueued, Priority: 10}
	f.store.statuses[2] = UserStatus{UserID: 2, Status: StatusReady, Updated: testNow}
	f.store.statuses[3] = UserStatus{UserID: 3, Status: StatusStale, Updated: testNow.Add(-time.Hour)}

	stats, err := f.rec.ProcessQueue(context.Background(), QueueOptions{Concurrency: 2})
	if err != nil {
		t.Fatal(err)
	}
	if stats.Selected != 2 || stats.Succeeded != 2 || stats.Failed != 0 {
		t.Errorf("stats = %+v, want 2 selected and succeeded", stats)
	}
	for _, id := range []int{1, 3} {
		if s := f.store.status(id); s.Status != StatusReady {
			t.Errorf("user %d = %s, want Ready", id, s.Status)
		}
	}
	if f.runs.Load() != 2 {
		t.Errorf("runs = %d, want 2", f.runs.Load())
	}
}

func TestRecommender_ProcessQueueBatchAndFailures(t *testing.T) {
	t.Parallel()

	f := newRecommenderFixture(t, cronSettings(), nil)
	for id := 1; id <= 3; id++ {
		f.store.statuses[id] = UserStatus{UserID: id, Status: StatusQueued, Priority: id}
	}
	f.profiles.err = errBoom

	stats, err := f.rec.ProcessQueue(context.Background(), QueueOptions{BatchSize: 2})
	if err != nil {
		t.Fatal(err)
	}
	if stats.Selected != 2 || stats.Failed != 2 {
		t.Errorf("stats = %+v, want 2 selected and failed", stats)
	}
	if s := f.store.status(3); s.Status != StatusQueued || s.LastError == "" {
		t.Errorf("user 3 = %+v, want Queued with LastError", s)
	}
	if s := f.store.status(1); !s.Attempted.IsZero() {
		t.Error("user 1 outside the batch was attempted")
	}
}

type cancelingLimiter struct{}

func (cancelingLimiter) Wait(context.Context) error { return errors.New("rate: wait canceled") }

func TestRecommender_ProcessQueueLimiterSkips(t *testing.T) {
	t.Parallel()

	f := newRecommenderFixture(t, cronSettings(), nil)
	f.store.statuses[1] = UserStatus{UserID: 1, Status: StatusQueued}
	f.store.statuses[2] = UserStatus{UserID: 2, Status: StatusQueued}

	stats, err := f.rec.ProcessQueue(context.Background(), QueueOptions{Limiter: cancelingLimiter{}})
	if err != nil {
		t.Fatal(err)
	}
	if stats.Skipped != 2 || f.runs.Load() != 0 {
		t.Errorf("stats = %+v runs = %d, want 2 skipped and no runs", stats, f.runs.Load())
	}
}

func TestRecommender_CleanupHistory(t *testing.T) {
	t.Parallel()

	retention, err := ParseRetention("30 days")
	if err != nil {
		t.Fatal(err)
	}
	settings := cronSettings()
	settings.Retention = retention
	f := newRecommenderFixture(t, settings, nil)

	for i := 0; i < 5; i++ {
		f.store.history = append(f.store.history, HistoryEntry{UserID: 1, ContentID: i, Timestamp: testNow.AddDate(0, 0, -40)})
	}
	f.store.history = append(f.store.history, HistoryEntry{UserID: 1, ContentID: 9, Timestamp: testNow.AddDate(0, 0, -1)})

	n, err := f.rec.CleanupHistory(context.Background(), 2)
	if err != nil {
		t.Fatal(err)
	}
	if n != 5 || f.obs.deleted != 5 {
		t.Errorf("deleted %d (observer %d), want 5", n, f.obs.deleted)
	}
	if len(f.store.history) != 1 || f.store.history[0].ContentID != 9 {
		t.Errorf("remaining history = %+v", f.store.history)
	}
}

func TestRecommender_CleanupHistoryForever(t *testing.T) {
	t.Parallel()

	f := newRecommenderFixture(t, cronSettings(), nil)
	f.store.history = []HistoryEntry{{UserID: 1, Timestamp: time.Unix(0, 0)}}
	n, err := f.rec.CleanupHistory(context.Background(), 0)
	if err != nil || n != 0 || len(f.store.history) != 1 {
		t.Errorf("CleanupHistory = %d, %v; history %d", n, err, len(f.store.history))
	}
}

func TestRecommender_CheckStatus(t *testing.T) {
	t.Parallel()

	f := newRecommenderFixture(t, cronSettings(), nil)
	reg := f.rec.orch.Registry()
	if err := reg.Register(&stubPlugin{
		id:      "broken",
		weights: map[Stage]int{StageScore: 3},
		confErr: errors.New("reason must not be empty"),
	}); err != nil {
		t.Fatal(err)
	}

	health := f.rec.CheckStatus()
	if len(health) != 2 {
		t.Fatalf("health entries = %d, want 2", len(health))
	}
	byID := make(map[string]PluginHealth)
	for _, h := range health {
		byID[h.ID] = h
	}
	if h := byID["broken"]; h.OK || h.Message == "" || h.Stages[StageScore] != 3 {
		t.Errorf("broken health = %+v", h)
	}
	if h := byID["counter"]; !h.OK || !h.Enabled {
		t.Errorf("counter health = %+v", h)
	}
}

func TestRecommender_PluginOrder(t *testing.T) {
	t.Parallel()

	f := newRecommenderFixture(t, cronSettings(), nil)
	reg := f.rec.orch.Registry()
	if err := reg.Register(&stubPlugin{id: "early", weights: map[Stage]int{StageScore: -5}}); err != nil {
		t.Fatal(err)
	}

	order := f.rec.PluginOrder()
	if len(order) != len(PluginStages()) {
		t.Fatalf("stages = %d, want %d", len(order), len(PluginStages()))
	}
	score := order[StageScore]
	if len(score) == 0 || score[0] != "early" {
		t.Errorf("score order = %v, want early first", score)
	}
	if order[StageAlter] == nil {
		t.Error("stages without plugins should map to an empty slice")
	}
}

func TestRecommender_StatusCounts(t *testing.T) {
	t.Parallel()

	f := newRecommenderFixture(t, cronSettings(), nil)
	f.store.statuses[1] = UserStatus{UserID: 1, Status: StatusQueued}
	f.store.statuses[2] = UserStatus{UserID: 2, Status: StatusReady, Updated: testNow}
	f.store.statuses[3] = UserStatus{UserID: 3, Status: StatusQueued}

	counts, err := f.rec.StatusCounts(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if counts[StatusQueued] != 2 || counts[StatusReady] != 1 || len(counts) != 2 {
		t.Errorf("counts = %v", counts)
	}
}
