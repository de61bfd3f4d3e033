// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package eventbus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/wayfinder/internal/logging"
	"github.com/tomtom215/wayfinder/internal/metrics"
)

// ErrPublisherUnavailable is returned while the publish breaker is open.
var ErrPublisherUnavailable = errors.New("trigger publisher unavailable")

// PublisherConfig configures the publish circuit breaker.
type PublisherConfig struct {
	// FailureThreshold is the number of consecutive failures that opens
	// the breaker. Default: 5
	FailureThreshold uint32

	// Timeout is how long the breaker stays open. Default: 30s
	Timeout time.Duration
}

// Publisher publishes trigger events through a circuit breaker.
type Publisher struct {
	pub message.Publisher
	cb  *gobreaker.CircuitBreaker[any]
	log *logging.TriggerLogger
}

// NewPublisher wraps pub.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewPublisher(pub message.Publisher, cfg PublisherConfig, logger zerolog.Logger) *Publisher {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        "trigger-publisher",
		MaxRequests: 1,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.RecordBreakerTransition(name, from.String(), to.String())
			logger.Warn().
				Str("component", "eventbus").
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("publisher circuit breaker state changed")
		},
	}

	return &Publisher{
		pub: pub,
		cb:  gobreaker.NewCircuitBreaker[any](settings),
		log: logging.NewTriggerLogger(logger),
	}
}

// Publish sends event on topic. The event ID doubles as the JetStream
// message ID so a retried publish is deduplicated by the stream.
func (p *Publisher) Publish(ctx context.Context, topic string, event *TriggerEvent) error {
	if !IsTopic(topic) {
		return fmt.Errorf("unknown trigger topic %q", topic)
	}
	data, err := MarshalEvent(topic, event)
	if err != nil {
		return err
	}

	msg := message.NewMessage(event.EventID, data)
	msg.Metadata.Set(natsgo.MsgIdHdr, event.EventID)
	if id := logging.CorrelationIDFromContext(ctx); id != "" {
		msg.Metadata.Set(metadataCorrelationID, id)
	}
	msg.SetContext(ctx)

	_, err = p.cb.Execute(func() (any, error) {
		return nil, p.pub.Publish(topic, msg)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrPublisherUnavailable, err)
	}
	if err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}

	metrics.RecordTriggerPublished(topic)
	p.log.LogTriggerPublished(ctx, event.EventID, topic, event.UserID)
	return nil
}

// BreakerState returns closed, half-open or open.
func (p *Publisher) BreakerState() string {
	return p.cb.State().String()
}
