// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package main

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/tomtom215/wayfinder/internal/config"
	"github.com/tomtom215/wayfinder/internal/eventbus"
	"github.com/tomtom215/wayfinder/internal/logging"
)

// EventComponents holds the trigger event bus.
type EventComponents struct {
	Transport *eventbus.Transport
	Bus       *eventbus.Bus
	Publisher *eventbus.Publisher
}

// initEvents creates the transport, the consuming bus and the publisher.
// Returns nil when events are disabled.
//
//nolint:gocritic // hugeParam: logger passed by value for zerolog chaining
func initEvents(ctx context.Context, cfg *config.EventsConfig, triggers eventbus.Triggers, logger zerolog.Logger) (*EventComponents, error) {
	if !cfg.Enabled {
		logger.Info().Msg("event bus disabled (EVENTS_ENABLED=false)")
		return nil, nil
	}

	wmLogger := logging.NewWatermillLogger(logger.With().Str("component", "watermill").Logger())
	transport, err := eventbus.NewTransport(ctx, cfg, wmLogger)
	if err != nil {
		return nil, err
	}

	handler := eventbus.NewHandler(triggers, logger)
	bus := eventbus.NewBus(transport, handler, eventbus.RouterConfigFrom(cfg), wmLogger)
	pub := eventbus.NewPublisher(transport.Publisher, eventbus.PublisherConfig{
		FailureThreshold: cfg.PublishBreakerFailures,
	}, logger)

	logger.Info().
		Str("mode", transport.Mode()).
		Str("url", transport.URL()).
		Strs("topics", eventbus.Topics()).
		Msg("event bus initialized")

	return &EventComponents{Transport: transport, Bus: bus, Publisher: pub}, nil
}

// Close releases the transport. Safe on nil components.
func (c *EventComponents) Close() error {
	if c == nil {
		return nil
	}
	return c.Bus.Close()
}

// readinessCheck reports the bus as not ready until a router is consuming.
func (c *EventComponents) readinessCheck() func(context.Context) error {
	return func(context.Context) error {
		if c == nil || c.Bus.IsRunning() {
			return nil
		}
		return errors.New("trigger router not running")
	}
}
