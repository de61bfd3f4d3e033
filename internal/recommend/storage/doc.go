// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

// Package storage persists recommendation state: per-user status records,
// the current recommendation list of each user, and the presentation
// history.
//
// # Backends
//
// Two implementations of Store are provided:
//   - MemoryStore keeps everything in process memory. It is the default and
//     is used by tests and single-run tools.
//   - BadgerStore persists records in BadgerDB so that statuses and lists
//     survive restarts.
//
// Factory selects the backend from configuration:
//
//	factory, err := storage.NewFactory(storage.TypeBadger, "/data/recommend")
//	if err != nil {
//	    return err
//	}
//	defer factory.Close()
//	store := factory.Store()
//
// # Key Layout (BadgerDB)
//
//	status:{user}                 JSON UserStatus
//	list:{user}:{run}             JSON RecommendationList of one run
//	list_current:{user}           run ID of the live list
//	history:{unix_nano}:{user}:{run}:{n}   JSON HistoryEntry
//
// History keys sort by timestamp, so retention cleanup is a prefix scan that
// stops at the cutoff.
//
// # Write-Then-Swap
//
// SwapList writes the new run's list under its own key and moves the
// list_current pointer in the same transaction. Readers either see the
// previous list or the new one, never a partial list. A list whose run
// started before the stored one is rejected with recommend.ErrStaleWrite.
//
// # Thread Safety
//
// Both stores are safe for concurrent use. UpdateStatus is an atomic
// read-modify-write; BadgerStore retries on transaction conflicts.
package storage
