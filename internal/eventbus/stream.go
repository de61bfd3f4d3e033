// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package eventbus

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// StreamConfig describes the JetStream stream holding trigger subjects.
type StreamConfig struct {
	Name            string
	Subjects        []string
	MaxAge          time.Duration
	DuplicateWindow time.Duration
}

// EnsureStream creates the stream or updates its configuration.
func EnsureStream(ctx context.Context, url string, cfg StreamConfig) (*jetstream.StreamInfo, error) {
	nc, err := nats.Connect(url, nats.Name("wayfinder-stream-init"))
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	defer nc.Close()

	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	subjects := cfg.Subjects
	if len(subjects) == 0 {
		subjects = []string{SubjectWildcard}
	}
	duplicates := cfg.DuplicateWindow
	if duplicates <= 0 {
		duplicates = 2 * time.Minute
	}
	if cfg.MaxAge > 0 && duplicates > cfg.MaxAge {
		duplicates = cfg.MaxAge
	}

	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:       cfg.Name,
		Subjects:   subjects,
		Retention:  jetstream.LimitsPolicy,
		MaxAge:     cfg.MaxAge,
		Duplicates: duplicates,
		Storage:    jetstream.FileStorage,
		Discard:    jetstream.DiscardOld,
	})
	if err != nil {
		return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
	}
	return stream.Info(ctx)
}
