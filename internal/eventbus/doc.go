// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

// Package eventbus carries recomputation triggers from the host platform to
// the recommender using Watermill.
//
// # Topics
//
//	wayfinder.user.registered          -> Recommender.OnRegistration
//	wayfinder.user.updated             -> Recommender.OnProfileUpdate
//	wayfinder.user.login               -> Recommender.OnLogin
//	wayfinder.recommendations.enqueue  -> Recommender.Enqueue(user, priority)
//	wayfinder.recommendations.reset    -> Recommender.Reset, or QueueAll when all is true
//
// Every payload is a JSON TriggerEvent:
//
//	{"event_id": "...", "user_id": 42, "priority": 10, "timestamp": "..."}
//
// A reset of every user omits user_id and sets "all": true. A reset with
// neither is rejected.
//
// # Transports
//
// Mode "memory" uses an in-process GoChannel. Mode "nats" uses NATS
// JetStream: a single stream named by events.stream_name captures every
// "wayfinder.>" subject, each trigger topic gets its own durable queue
// consumer, and an embedded server can be started for single-host setups.
//
// # Failure Handling
//
//   - Malformed payloads are acknowledged, logged and counted as rejected.
//   - Trigger errors are retried with exponential backoff and finally
//     routed to the poison topic.
//   - Panics in handlers are recovered and treated as errors.
//   - Publishing goes through a circuit breaker; while it is open Publish
//     returns ErrPublisherUnavailable without touching the broker.
package eventbus
