// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package logging

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"
)

// TriggerLogger provides logging for trigger event handling with
// consistent field names across publishers and handlers.
type TriggerLogger struct {
	logger zerolog.Logger
}

// NewTriggerLogger creates a TriggerLogger tagged with component=eventbus.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewTriggerLogger(logger zerolog.Logger) *TriggerLogger {
	return &TriggerLogger{logger: logger.With().Str("component", "eventbus").Logger()}
}

func (t *TriggerLogger) withContext(ctx context.Context) zerolog.Logger {
	logCtx := t.logger.With()
	if correlationID := CorrelationIDFromContext(ctx); correlationID != "" {
		logCtx = logCtx.Str("correlation_id", correlationID)
	}
	if requestID := RequestIDFromContext(ctx); requestID != "" {
		logCtx = logCtx.Str("request_id", requestID)
	}
	return logCtx.Logger()
}

// LogTriggerReceived logs a trigger taken off the bus.
func (t *TriggerLogger) LogTriggerReceived(ctx context.Context, eventID, topic string, userID int) {
	l := t.withContext(ctx)
	l.Debug().
		Str("event_id", eventID).
		Str("topic", topic).
		Int("user_id", userID).
		Msg("trigger received")
}

// LogTriggerHandled logs a trigger that was applied.
func (t *TriggerLogger) LogTriggerHandled(ctx context.Context, eventID, topic string, userID int, d time.Duration) {
	l := t.withContext(ctx)
	l.Info().
		Str("event_id", eventID).
		Str("topic", topic).
		Int("user_id", userID).
		Dur("duration", d).
		Msg("trigger handled")
}

// LogTriggerRejected logs a malformed trigger that is acknowledged without
// being applied.
func (t *TriggerLogger) LogTriggerRejected(ctx context.Context, messageUUID, topic string, err error) {
	l := t.withContext(ctx)
	l.Warn().
		Str("message_uuid", messageUUID).
		Str("topic", topic).
		Err(err).
		Msg("trigger rejected")
}

// LogTriggerFailed logs a trigger whose handling failed and will be retried.
func (t *TriggerLogger) LogTriggerFailed(ctx context.Context, eventID, topic string, userID int, err error) {
	l := t.withContext(ctx)
	l.Error().
		Str("event_id", eventID).
		Str("topic", topic).
		Int("user_id", userID).
		Err(err).
		Msg("trigger handling failed")
}

// LogTriggerPublished logs a trigger published to the bus.
func (t *TriggerLogger) LogTriggerPublished(ctx context.Context, eventID, topic string, userID int) {
	l := t.withContext(ctx)
	l.Debug().
		Str("event_id", eventID).
		Str("topic", topic).
		Int("user_id", userID).
		Msg("trigger published")
}

// WatermillLogger adapts zerolog to watermill.LoggerAdapter.
type WatermillLogger struct {
	logger zerolog.Logger
}

var _ watermill.LoggerAdapter = (*WatermillLogger)(nil)

// NewWatermillLogger wraps logger for use by watermill routers, publishers
// and subscribers.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewWatermillLogger(logger zerolog.Logger) *WatermillLogger {
	return &WatermillLogger{logger: logger}
}

func addFields(event *zerolog.Event, fields watermill.LogFields) *zerolog.Event {
	for k, v := range fields {
		event = event.Interface(k, v)
	}
	return event
}

// Error logs an error with fields.
func (w *WatermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	addFields(w.logger.Error().Err(err), fields).Msg(msg)
}

// Info logs at info level.
func (w *WatermillLogger) Info(msg string, fields watermill.LogFields) {
	addFields(w.logger.Info(), fields).Msg(msg)
}

// Debug logs at debug level.
func (w *WatermillLogger) Debug(msg string, fields watermill.LogFields) {
	addFields(w.logger.Debug(), fields).Msg(msg)
}

// Trace logs at trace level.
func (w *WatermillLogger) Trace(msg string, fields watermill.LogFields) {
	addFields(w.logger.Trace(), fields).Msg(msg)
}

// With returns a logger carrying the fields on every entry.
func (w *WatermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	ctx := w.logger.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &WatermillLogger{logger: ctx.Logger()}
}
