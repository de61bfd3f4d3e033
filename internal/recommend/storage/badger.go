// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/wayfinder/internal/recommend"
)

// Key prefixes for BadgerDB storage
const (
	statusKeyPrefix      = "status:"
	listKeyPrefix        = "list:"
	listCurrentKeyPrefix = "list_current:"
	historyKeyPrefix     = "history:"
)

// maxConflictRetries bounds retries of optimistic transactions.
const maxConflictRetries = 10

// BadgerStore implements Store using BadgerDB for durable storage.
type BadgerStore struct {
	db *badger.DB
}

var _ Store = (*BadgerStore)(nil)

// NewBadgerStore creates a store on an open database.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

func statusKey(userID int) []byte {
	return []byte(statusKeyPrefix + strconv.Itoa(userID))
}

func listKey(userID int, runID string) []byte {
	return []byte(listKeyPrefix + strconv.Itoa(userID) + ":" + runID)
}

func listCurrentKey(userID int) []byte {
	return []byte(listCurrentKeyPrefix + strconv.Itoa(userID))
}

// historyKey sorts by timestamp. Timestamps before the epoch are clamped.
func historyKey(e recommend.HistoryEntry, n int) []byte {
	ts := e.Timestamp.UnixNano()
	if ts < 0 {
		ts = 0
	}
	return []byte(fmt.Sprintf("%s%020d:%d:%s:%d", historyKeyPrefix, ts, e.UserID, e.RunID, n))
}

// historyKeyTime extracts the timestamp of a history key.
func historyKeyTime(key []byte) (time.Time, bool) {
	rest := strings.TrimPrefix(string(key), historyKeyPrefix)
	i := strings.IndexByte(rest, ':')
	if i < 0 {
		return time.Time{}, false
	}
	ns, err := strconv.ParseInt(rest[:i], 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(0, ns), true
}

// update runs fn in a read-write transaction, retrying on conflicts.
func (s *BadgerStore) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

func getJSON(txn *badger.Txn, key []byte, v any) (bool, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func setJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return txn.Set(key, data)
}

// GetStatus returns the user's status record.
func (s *BadgerStore) GetStatus(_ context.Context, userID int) (recommend.UserStatus, bool, error) {
	var status recommend.UserStatus
	var found bool
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		found, err = getJSON(txn, statusKey(userID), &status)
		return err
	})
	if err != nil {
		return recommend.UserStatus{}, false, fmt.Errorf("get status: %w", err)
	}
	return status, found, nil
}

// UpdateStatus applies fn to the user's record in one transaction. fn may
// be called more than once when the transaction conflicts.
func (s *BadgerStore) UpdateStatus(ctx context.Context, userID int, fn func(*recommend.UserStatus, bool)) (recommend.UserStatus, error) {
	var result recommend.UserStatus
	err := s.update(ctx, func(txn *badger.Txn) error {
		var status recommend.UserStatus
		found, err := getJSON(txn, statusKey(userID), &status)
		if err != nil {
			return fmt.Errorf("get status: %w", err)
		}
		if !found {
			status = recommend.UserStatus{UserID: userID}
		}
		fn(&status, found)
		status.UserID = userID
		result = status
		return setJSON(txn, statusKey(userID), &status)
	})
	if err != nil {
		return recommend.UserStatus{}, fmt.Errorf("update status: %w", err)
	}
	return result, nil
}

// ListStatuses returns every status ordered by user ID.
func (s *BadgerStore) ListStatuses(_ context.Context) ([]recommend.UserStatus, error) {
	var statuses []recommend.UserStatus
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(statusKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var status recommend.UserStatus
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &status)
			})
			if err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			statuses = append(statuses, status)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list statuses: %w", err)
	}
	sortStatuses(statuses)
	return statuses, nil
}

// CurrentList returns the live list of a user.
func (s *BadgerStore) CurrentList(_ context.Context, userID int) (recommend.RecommendationList, bool, error) {
	var list recommend.RecommendationList
	var found bool
	err := s.db.View(func(txn *badger.Txn) error {
		runID, ok, err := currentRun(txn, userID)
		if err != nil || !ok {
			return err
		}
		found, err = getJSON(txn, listKey(userID, runID), &list)
		return err
	})
	if err != nil {
		return recommend.RecommendationList{}, false, fmt.Errorf("get recommendations: %w", err)
	}
	return list, found, nil
}

func currentRun(txn *badger.Txn, userID int) (string, bool, error) {
	item, err := txn.Get(listCurrentKey(userID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return "", false, err
	}
	return string(val), true, nil
}

// SwapList writes the list under its run key and moves the current pointer
// to it in one transaction. The previous run's list is removed.
func (s *BadgerStore) SwapList(ctx context.Context, list recommend.RecommendationList) error {
	err := s.update(ctx, func(txn *badger.Txn) error {
		prevRun, hasPrev, err := currentRun(txn, list.UserID)
		if err != nil {
			return err
		}
		if hasPrev {
			var cur recommend.RecommendationList
			found, err := getJSON(txn, listKey(list.UserID, prevRun), &cur)
			if err != nil {
				return err
			}
			if found && cur.StartedAt.After(list.StartedAt) {
				return recommend.ErrStaleWrite
			}
		}

		if err := setJSON(txn, listKey(list.UserID, list.RunID), &list); err != nil {
			return err
		}
		if err := txn.Set(listCurrentKey(list.UserID), []byte(list.RunID)); err != nil {
			return err
		}
		if hasPrev && prevRun != list.RunID {
			if err := txn.Delete(listKey(list.UserID, prevRun)); err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, recommend.ErrStaleWrite) {
		return err
	}
	if err != nil {
		return fmt.Errorf("swap recommendations: %w", err)
	}
	return nil
}

// AppendHistory records entries in one write batch.
func (s *BadgerStore) AppendHistory(_ context.Context, entries []recommend.HistoryEntry) error {
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for i, e := range entries {
		data, err := json.Marshal(&e)
		if err != nil {
			return fmt.Errorf("marshal history entry: %w", err)
		}
		if err := wb.Set(historyKey(e, i), data); err != nil {
			return fmt.Errorf("write history entry: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flush history: %w", err)
	}
	return nil
}

// DeleteHistoryBefore removes up to limit entries older than cutoff,
// oldest first.
func (s *BadgerStore) DeleteHistoryBefore(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(historyKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(keys) >= limit {
				break
			}
			key := it.Item().KeyCopy(nil)
			ts, ok := historyKeyTime(key)
			if ok && !ts.Before(cutoff) {
				break
			}
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan history: %w", err)
	}
	if len(keys) == 0 {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range keys {
		if err := wb.Delete(key); err != nil {
			return 0, fmt.Errorf("delete history entry: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("flush history deletes: %w", err)
	}
	return len(keys), nil
}

// History returns the entries of a user, oldest first.
func (s *BadgerStore) History(_ context.Context, userID int) ([]recommend.HistoryEntry, error) {
	var out []recommend.HistoryEntry
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(historyKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var e recommend.HistoryEntry
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			}); err != nil {
				return err
			}
			if e.UserID == userID {
				out = append(out, e)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	return out, nil
}
