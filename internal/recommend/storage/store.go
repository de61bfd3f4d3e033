// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package storage

import (
	"fmt"
	"io"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/wayfinder/internal/recommend"
)

// Store is the full persistence surface used by the recommender.
type Store interface {
	recommend.StatusStore
	recommend.ListStore
	recommend.HistoryStore
}

// Type selects the storage backend.
type Type string

const (
	// TypeMemory keeps state in process memory (default, not persistent).
	TypeMemory Type = "memory"

	// TypeBadger persists state in BadgerDB.
	TypeBadger Type = "badger"
)

// ParseType validates a backend name. Empty selects memory.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case "", TypeMemory:
		return TypeMemory, nil
	case TypeBadger:
		return TypeBadger, nil
	default:
		return "", fmt.Errorf("unknown storage type %q (want memory or badger)", s)
	}
}

// Factory creates the configured Store and owns its resources.
type Factory struct {
	db    *badger.DB
	store Store
}

// NewFactory opens the backend. For TypeBadger a database is opened at
// path; for TypeMemory path is ignored.
func NewFactory(storeType Type, path string) (*Factory, error) {
	switch storeType {
	case TypeBadger:
		if path == "" {
			return nil, fmt.Errorf("badger storage requires a path")
		}
		opts := badger.DefaultOptions(path)
		opts.Logger = nil

		db, err := badger.Open(opts)
		if err != nil {
			return nil, fmt.Errorf("open badger db for recommendations: %w", err)
		}
		return &Factory{db: db, store: NewBadgerStore(db)}, nil
	case TypeMemory, "":
		return &Factory{store: NewMemoryStore()}, nil
	default:
		return nil, fmt.Errorf("unknown storage type %q", storeType)
	}
}

// Store returns the store.
func (f *Factory) Store() Store {
	return f.store
}

// DB returns the underlying BadgerDB, or nil for the memory backend.
func (f *Factory) DB() *badger.DB {
	return f.db
}

// Close closes the underlying BadgerDB if one was opened.
func (f *Factory) Close() error {
	if f.db != nil {
		return f.db.Close()
	}
	return nil
}

var _ io.Closer = (*Factory)(nil)
