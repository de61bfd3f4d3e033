// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// TriggerRouter consumes trigger events until ctx is canceled.
// *eventbus.Bus satisfies it.
type TriggerRouter interface {
	Run(ctx context.Context) error
}

// EventBusService runs the trigger router under supervision. The router
// is rebuilt on every run so a broker outage becomes a supervised restart.
type EventBusService struct {
	router TriggerRouter
	logger zerolog.Logger
	name   string
}

// NewEventBusService creates the service.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEventBusService(router TriggerRouter, logger zerolog.Logger) *EventBusService {
	return &EventBusService{
		router: router,
		logger: logger.With().Str("service", "eventbus").Logger(),
		name:   "trigger-router",
	}
}

// Serve blocks in the router. Once ctx is canceled it returns ctx.Err() so
// suture records a stop rather than a failure.
func (s *EventBusService) Serve(ctx context.Context) error {
	s.logger.Info().Msg("trigger router starting")
	err := s.router.Run(ctx)
	if ctx.Err() != nil {
		s.logger.Info().Msg("trigger router stopped")
		return ctx.Err()
	}
	if err == nil {
		err = errors.New("trigger router exited unexpectedly")
	}
	s.logger.Error().Err(err).Msg("trigger router failed")
	return err
}

// String returns the service name for suture logs.
func (s *EventBusService) String() string {
	return s.name
}
