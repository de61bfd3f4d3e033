// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package eventbus

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"

	"github.com/tomtom215/wayfinder/internal/logging"
	"github.com/tomtom215/wayfinder/internal/metrics"
)

// Handling results recorded in metrics.
const (
	ResultHandled  = "handled"
	ResultRejected = "rejected"
	ResultFailed   = "failed"
)

// metadataCorrelationID carries the publisher's correlation ID.
const metadataCorrelationID = "correlation_id"

// Triggers is the part of the Recommender that trigger events drive.
// *recommend.Recommender satisfies it.
type Triggers interface {
	OnRegistration(ctx context.Context, userID int) error
	OnProfileUpdate(ctx context.Context, userID int) error
	OnLogin(ctx context.Context, userID int) error
	Enqueue(ctx context.Context, userID, priority int) error
	Reset(ctx context.Context, userID int) error
	QueueAll(ctx context.Context, priority int) (int, error)
}

// Handler applies trigger events to the recommender.
type Handler struct {
	triggers Triggers
	log      *logging.TriggerLogger
}

// NewHandler creates a trigger handler.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewHandler(triggers Triggers, logger zerolog.Logger) *Handler {
	return &Handler{
		triggers: triggers,
		log:      logging.NewTriggerLogger(logger),
	}
}

// For returns the watermill handler for topic.
//
// A malformed payload is logged, counted as rejected and acknowledged so
// that it is never redelivered. A failing trigger returns its error so the
// router retries it and finally routes it to the poison topic.
func (h *Handler) For(topic string) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		start := time.Now()
		ctx := msg.Context()
		if id := msg.Metadata.Get(metadataCorrelationID); id != "" {
			ctx = logging.ContextWithCorrelationID(ctx, id)
		}

		event, err := UnmarshalEvent(topic, msg.Payload)
		if err != nil {
			h.log.LogTriggerRejected(ctx, msg.UUID, topic, err)
			metrics.RecordTriggerConsumed(topic, ResultRejected, time.Since(start))
			return nil
		}
		ctx = logging.ContextWithUserID(ctx, event.UserID)
		h.log.LogTriggerReceived(ctx, event.EventID, topic, event.UserID)

		if err := h.apply(ctx, topic, event); err != nil {
			h.log.LogTriggerFailed(ctx, event.EventID, topic, event.UserID, err)
			metrics.RecordTriggerConsumed(topic, ResultFailed, time.Since(start))
			return err
		}

		h.log.LogTriggerHandled(ctx, event.EventID, topic, event.UserID, time.Since(start))
		metrics.RecordTriggerConsumed(topic, ResultHandled, time.Since(start))
		return nil
	}
}

func (h *Handler) apply(ctx context.Context, topic string, e *TriggerEvent) error {
	switch topic {
	case TopicUserRegistered:
		return h.triggers.OnRegistration(ctx, e.UserID)
	case TopicUserUpdated:
		return h.triggers.OnProfileUpdate(ctx, e.UserID)
	case TopicUserLogin:
		return h.triggers.OnLogin(ctx, e.UserID)
	case TopicEnqueue:
		return h.triggers.Enqueue(ctx, e.UserID, e.Priority)
	case TopicReset:
		if e.All {
			_, err := h.triggers.QueueAll(ctx, e.Priority)
			return err
		}
		return h.triggers.Reset(ctx, e.UserID)
	default:
		return fmt.Errorf("%w: unknown topic %q", ErrMalformedEvent, topic)
	}
}
