// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package eventbus

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// Bus consumes trigger topics and applies them to the recommender.
type Bus struct {
	transport *Transport
	handler   *Handler
	config    RouterConfig
	logger    watermill.LoggerAdapter

	running   atomic.Bool
	ready     chan struct{}
	readyOnce sync.Once
}

// NewBus creates a bus over transport.
func NewBus(transport *Transport, handler *Handler, cfg RouterConfig, logger watermill.LoggerAdapter) *Bus {
	return &Bus{
		transport: transport,
		handler:   handler,
		config:    cfg,
		logger:    logger,
		ready:     make(chan struct{}),
	}
}

// Run subscribes a handler per trigger topic and blocks until ctx is
// canceled or the router stops. Every call builds a fresh router, so a
// supervisor may call Run again after a failure.
func (b *Bus) Run(ctx context.Context) error {
	router, err := newRouter(b.config, b.transport.Publisher, b.logger)
	if err != nil {
		return err
	}
	for _, topic := range Topics() {
		router.AddConsumerHandler("trigger-"+topic, topic, keepOpen{b.transport.Subscriber}, b.handler.For(topic))
	}

	go func() {
		select {
		case <-router.Running():
			b.running.Store(true)
			b.readyOnce.Do(func() { close(b.ready) })
		case <-ctx.Done():
		}
	}()

	defer b.running.Store(false)
	if err := router.Run(ctx); err != nil {
		return fmt.Errorf("trigger router: %w", err)
	}
	return nil
}

// keepOpen stops a closing router from closing the shared subscriber, which
// must survive router restarts. Subscriptions still end with the router
// context.
type keepOpen struct {
	message.Subscriber
}

func (keepOpen) Close() error { return nil }

// Ready is closed once the first router is running.
func (b *Bus) Ready() <-chan struct{} {
	return b.ready
}

// IsRunning reports whether a router is currently consuming.
func (b *Bus) IsRunning() bool {
	return b.running.Load()
}

// Close releases the transport.
func (b *Bus) Close() error {
	return b.transport.Close()
}
