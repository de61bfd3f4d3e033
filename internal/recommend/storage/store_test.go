// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/wayfinder/internal/recommend"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type historyReader interface {
	History(ctx context.Context, userID int) ([]recommend.HistoryEntry, error)
}

func newBadgerTestStore(t *testing.T) Store {
	t.Helper()
	factory, err := NewFactory(TypeBadger, t.TempDir())
	if err != nil {
		t.Fatalf("NewFactory(badger): %v", err)
	}
	t.Cleanup(func() { _ = factory.Close() })
	return factory.Store()
}

// backends runs a test against every Store implementation.
func backends(t *testing.T, fn func(t *testing.T, store Store)) {
	t.Helper()
	t.Run("memory", func(t *testing.T) {
		t.Parallel()
		fn(t, NewMemoryStore())
	})
	t.Run("badger", func(t *testing.T) {
		t.Parallel()
		fn(t, newBadgerTestStore(t))
	})
}

func TestStore_StatusLifecycle(t *testing.T) {
	t.Parallel()
	backends(t, func(t *testing.T, store Store) {
		ctx := context.Background()

		if _, ok, err := store.GetStatus(ctx, 1); err != nil || ok {
			t.Fatalf("GetStatus on empty store = %v, %v", ok, err)
		}

		got, err := store.UpdateStatus(ctx, 1, func(s *recommend.UserStatus, exists bool) {
			if exists {
				t.Error("exists = true for new record")
			}
			*s = recommend.NewUserStatus(1, testNow)
			s.Priority = 50
		})
		if err != nil {
			t.Fatalf("UpdateStatus: %v", err)
		}
		if got.Status != recommend.StatusQueued || got.Priority != 50 {
			t.Errorf("UpdateStatus returned %+v", got)
		}

		_, err = store.UpdateStatus(ctx, 1, func(s *recommend.UserStatus, exists bool) {
			if !exists {
				t.Error("exists = false for stored record")
			}
			s.Status = recommend.StatusReady
			s.Updated = testNow.Add(time.Minute)
			s.Duration = 1500 * time.Millisecond
			s.Retrieved = 12
		})
		if err != nil {
			t.Fatal(err)
		}

		status, ok, err := store.GetStatus(ctx, 1)
		if err != nil || !ok {
			t.Fatalf("GetStatus = %v, %v", ok, err)
		}
		if status.Status != recommend.StatusReady || status.Retrieved != 12 || status.Duration != 1500*time.Millisecond {
			t.Errorf("status = %+v", status)
		}
		if !status.Created.Equal(testNow) || !status.Updated.Equal(testNow.Add(time.Minute)) {
			t.Errorf("timestamps = created %v updated %v", status.Created, status.Updated)
		}

		for _, id := range []int{30, 2} {
			if _, err := store.UpdateStatus(ctx, id, func(s *recommend.UserStatus, _ bool) {
				s.Status = recommend.StatusQueued
			}); err != nil {
				t.Fatal(err)
			}
		}
		all, err := store.ListStatuses(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(all) != 3 || all[0].UserID != 1 || all[1].UserID != 2 || all[2].UserID != 30 {
			t.Errorf("ListStatuses = %+v", all)
		}
	})
}

func TestStore_ConcurrentStatusUpdates(t *testing.T) {
	t.Parallel()
	backends(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := store.UpdateStatus(ctx, 1, func(s *recommend.UserStatus, _ bool) {
					s.Priority++
				})
				if err != nil {
					t.Errorf("UpdateStatus: %v", err)
				}
			}()
		}
		wg.Wait()

		status, _, err := store.GetStatus(ctx, 1)
		if err != nil {
			t.Fatal(err)
		}
		if status.Priority != 8 {
			t.Errorf("priority = %d, want 8 (lost update)", status.Priority)
		}
	})
}

func TestStore_SwapList(t *testing.T) {
	t.Parallel()
	backends(t, func(t *testing.T, store Store) {
		ctx := context.Background()

		if _, ok, err := store.CurrentList(ctx, 1); err != nil || ok {
			t.Fatalf("CurrentList on empty store = %v, %v", ok, err)
		}

		first := recommend.RecommendationList{
			UserID:    1,
			RunID:     "run-1",
			StartedAt: testNow,
			CreatedAt: testNow.Add(time.Second),
			Items: []recommend.Recommendation{
				{ContentID: 10, Score: 0.9, Reason: "Recommended because it is new."},
				{ContentID: 11, Score: 0.5},
			},
		}
		if err := store.SwapList(ctx, first); err != nil {
			t.Fatalf("SwapList: %v", err)
		}

		second := recommend.RecommendationList{
			UserID:    1,
			RunID:     "run-2",
			StartedAt: testNow.Add(time.Hour),
			Items:     []recommend.Recommendation{{ContentID: 12, Score: 0.7}},
		}
		if err := store.SwapList(ctx, second); err != nil {
			t.Fatalf("SwapList second: %v", err)
		}

		// A run that started before the stored one loses.
		err := store.SwapList(ctx, recommend.RecommendationList{UserID: 1, RunID: "run-0", StartedAt: testNow.Add(-time.Hour)})
		if !errors.Is(err, recommend.ErrStaleWrite) {
			t.Errorf("stale SwapList err = %v, want ErrStaleWrite", err)
		}

		got, ok, err := store.CurrentList(ctx, 1)
		if err != nil || !ok {
			t.Fatalf("CurrentList = %v, %v", ok, err)
		}
		if got.RunID != "run-2" || len(got.Items) != 1 || got.Items[0].ContentID != 12 {
			t.Errorf("CurrentList = %+v, want run-2", got)
		}

		// Lists of other users are independent.
		if _, ok, _ := store.CurrentList(ctx, 2); ok {
			t.Error("user 2 has a list")
		}
	})
}

func TestStore_History(t *testing.T) {
	t.Parallel()
	backends(t, func(t *testing.T, store Store) {
		ctx := context.Background()

		var entries []recommend.HistoryEntry
		for i := 0; i < 5; i++ {
			entries = append(entries, recommend.HistoryEntry{
				UserID:    1,
				ContentID: 100 + i,
				Score:     0.5,
				RunID:     "old",
				Timestamp: testNow.AddDate(0, 0, -40),
			})
		}
		entries = append(entries, recommend.HistoryEntry{UserID: 1, ContentID: 200, RunID: "new", Timestamp: testNow})
		entries = append(entries, recommend.HistoryEntry{UserID: 2, ContentID: 300, RunID: "other", Timestamp: testNow})
		if err := store.AppendHistory(ctx, entries); err != nil {
			t.Fatalf("AppendHistory: %v", err)
		}

		cutoff := testNow.AddDate(0, 0, -30)
		n, err := store.DeleteHistoryBefore(ctx, cutoff, 3)
		if err != nil || n != 3 {
			t.Fatalf("first batch = %d, %v; want 3", n, err)
		}
		n, err = store.DeleteHistoryBefore(ctx, cutoff, 3)
		if err != nil || n != 2 {
			t.Fatalf("second batch = %d, %v; want 2", n, err)
		}
		n, err = store.DeleteHistoryBefore(ctx, cutoff, 3)
		if err != nil || n != 0 {
			t.Fatalf("third batch = %d, %v; want 0", n, err)
		}

		reader, ok := store.(historyReader)
		if !ok {
			t.Fatal("store does not expose History")
		}
		remaining, err := reader.History(ctx, 1)
		if err != nil {
			t.Fatal(err)
		}
		if len(remaining) != 1 || remaining[0].ContentID != 200 {
			t.Errorf("remaining history = %+v", remaining)
		}
	})
}

func TestParseType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Type
		wantErr bool
	}{
		{"", TypeMemory, false},
		{"memory", TypeMemory, false},
		{"badger", TypeBadger, false},
		{"redis", "", true},
	}
	for _, tt := range tests {
		got, err := ParseType(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseType(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestNewFactory(t *testing.T) {
	t.Parallel()

	mem, err := NewFactory(TypeMemory, "")
	if err != nil {
		t.Fatal(err)
	}
	if mem.DB() != nil {
		t.Error("memory factory opened a database")
	}
	if _, ok := mem.Store().(*MemoryStore); !ok {
		t.Errorf("memory factory store = %T", mem.Store())
	}
	if err := mem.Close(); err != nil {
		t.Error(err)
	}

	if _, err := NewFactory(TypeBadger, ""); err == nil {
		t.Error("expected error for badger without path")
	}

	dir := t.TempDir()
	bf, err := NewFactory(TypeBadger, dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if _, err := bf.Store().UpdateStatus(ctx, 5, func(s *recommend.UserStatus, _ bool) { s.Status = recommend.StatusStale }); err != nil {
		t.Fatal(err)
	}
	if err := bf.Close(); err != nil {
		t.Fatal(err)
	}

	// State survives reopening.
	reopened, err := NewFactory(TypeBadger, dir)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = reopened.Close() }()
	status, ok, err := reopened.Store().GetStatus(ctx, 5)
	if err != nil || !ok || status.Status != recommend.StatusStale {
		t.Errorf("reopened status = %+v, %v, %v", status, ok, err)
	}
}
