// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

/*
Package logging provides centralized zerolog-based logging for Wayfinder.

A single global zerolog logger is configured once from main and used through
package-level helpers. Components that take an explicit zerolog.Logger (the
recommendation orchestrator, stores, the event router) receive a child of it
tagged with a component field.

# Quick Start

	logging.Init(logging.Config{Level: "info", Format: "json"})

	logging.Info().Msg("Server starting")
	logging.Error().Err(err).Int("user_id", userID).Msg("Run failed")

	// With request, correlation and user IDs from context
	logging.Ctx(ctx).Info().Msg("Recommendations served")

# Adapters

  - NewSlogLogger: slog.Logger backed by zerolog, used by sutureslog
  - NewWatermillLogger: watermill.LoggerAdapter backed by zerolog, used by
    the trigger router, publishers and subscribers

# Trigger Events

TriggerLogger carries domain-specific helpers for the event bus handlers
(received, handled, rejected, failed, published) so every trigger is
logged with the same field names.

# Configuration

Environment Variables:
  - LOG_LEVEL: trace, debug, info, warn, error (default: info)
  - LOG_FORMAT: json, console (default: json)
  - LOG_CALLER: true/false (default: false)

Always terminate log chains with .Msg() or .Send():

	logging.Info().Str("key", "value").Msg("message")  // Correct
	logging.Info().Str("key", "value")                 // WRONG - log not emitted
*/
package logging
