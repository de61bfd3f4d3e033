// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package eventbus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"

	"github.com/tomtom215/wayfinder/internal/config"
)

const testPoisonTopic = "wayfinder.poison"

func testRouterConfig() RouterConfig {
	return RouterConfig{
		CloseTimeout:         5 * time.Second,
		RetryMaxRetries:      1,
		RetryInitialInterval: time.Millisecond,
		RetryMaxInterval:     10 * time.Millisecond,
		RetryMultiplier:      1.5,
		PoisonQueueTopic:     testPoisonTopic,
	}
}

// startBus runs a bus until the test ends.
func startBus(t *testing.T, cfg *config.EventsConfig, triggers Triggers) (*Bus, *Transport) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	transport, err := NewTransport(ctx, cfg, watermill.NopLogger{})
	if err != nil {
		cancel()
		t.Fatalf("NewTransport() error = %v", err)
	}

	bus := NewBus(transport, NewHandler(triggers, zerolog.Nop()), testRouterConfig(), watermill.NopLogger{})
	done := make(chan error, 1)
	go func() { done <- bus.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(10 * time.Second):
			t.Error("bus did not stop")
		}
		_ = bus.Close()
	})

	select {
	case <-bus.Ready():
	case err := <-done:
		t.Fatalf("bus stopped before running: %v", err)
	case <-time.After(10 * time.Second):
		t.Fatal("bus not ready")
	}
	if !bus.IsRunning() {
		t.Error("IsRunning() = false after Ready")
	}
	return bus, transport
}

func waitCall(t *testing.T, triggers *mockTriggers) triggerCall {
	t.Helper()
	select {
	case call := <-triggers.notify:
		return call
	case <-time.After(10 * time.Second):
		t.Fatal("trigger not delivered")
		return triggerCall{}
	}
}

func TestBus_MemoryDelivers(t *testing.T) {
	t.Parallel()

	triggers := newMockTriggers()
	_, transport := startBus(t, &config.EventsConfig{Mode: ModeMemory}, triggers)
	pub := NewPublisher(transport.Publisher, PublisherConfig{}, zerolog.Nop())

	ctx := context.Background()
	if err := pub.Publish(ctx, TopicEnqueue, NewTriggerEvent(77, 30)); err != nil {
		t.Fatal(err)
	}
	call := waitCall(t, triggers)
	if call.Method != "Enqueue" || call.UserID != 77 || call.Priority != 30 {
		t.Errorf("call = %+v", call)
	}

	if err := pub.Publish(ctx, TopicReset, NewResetAllEvent(100)); err != nil {
		t.Fatal(err)
	}
	if call := waitCall(t, triggers); call.Method != "QueueAll" || call.Priority != 100 {
		t.Errorf("call = %+v, want QueueAll", call)
	}
}

func TestBus_FailedTriggerGoesToPoisonQueue(t *testing.T) {
	t.Parallel()

	triggers := newMockTriggers()
	triggers.err = errors.New("status store down")
	triggers.fails = -1
	_, transport := startBus(t, &config.EventsConfig{Mode: ModeMemory}, triggers)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	poison, err := transport.Subscriber.Subscribe(ctx, testPoisonTopic)
	if err != nil {
		t.Fatal(err)
	}

	pub := NewPublisher(transport.Publisher, PublisherConfig{}, zerolog.Nop())
	event := NewTriggerEvent(5, 0)
	if err := pub.Publish(context.Background(), TopicUserLogin, event); err != nil {
		t.Fatal(err)
	}

	select {
	case msg := <-poison:
		msg.Ack()
		if msg.UUID != event.EventID {
			t.Errorf("poisoned message UUID = %q, want %q", msg.UUID, event.EventID)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("failed trigger not routed to poison topic")
	}

	// One attempt plus one retry.
	if n := len(triggers.Calls()); n != 2 {
		t.Errorf("attempts = %d, want 2", n)
	}
}

func TestBus_TransientFailureIsRetried(t *testing.T) {
	t.Parallel()

	triggers := newMockTriggers()
	triggers.err = errors.New("temporary")
	triggers.fails = 1
	_, transport := startBus(t, &config.EventsConfig{Mode: ModeMemory}, triggers)

	pub := NewPublisher(transport.Publisher, PublisherConfig{}, zerolog.Nop())
	if err := pub.Publish(context.Background(), TopicUserUpdated, NewTriggerEvent(8, 0)); err != nil {
		t.Fatal(err)
	}
	waitCall(t, triggers)
	if call := waitCall(t, triggers); call.Method != "OnProfileUpdate" || call.UserID != 8 {
		t.Errorf("retry call = %+v", call)
	}
}

func TestNewTransport_UnknownMode(t *testing.T) {
	t.Parallel()

	if _, err := NewTransport(context.Background(), &config.EventsConfig{Mode: "kafka"}, watermill.NopLogger{}); err == nil {
		t.Error("NewTransport() accepted unknown mode")
	}
}

func TestRouterConfigFrom(t *testing.T) {
	t.Parallel()

	cfg := &config.EventsConfig{
		RouterRetryCount:           4,
		RouterRetryInitialInterval: 250 * time.Millisecond,
		RouterThrottlePerSecond:    20,
		RouterPoisonQueueEnabled:   false,
		RouterPoisonQueueTopic:     "wayfinder.poison",
	}
	rc := RouterConfigFrom(cfg)
	if rc.RetryMaxRetries != 4 || rc.RetryInitialInterval != 250*time.Millisecond || rc.ThrottlePerSecond != 20 {
		t.Errorf("RouterConfigFrom() = %+v", rc)
	}
	if rc.PoisonQueueTopic != "" {
		t.Errorf("poison topic = %q with poison queue disabled", rc.PoisonQueueTopic)
	}
	if rc.CloseTimeout != 30*time.Second {
		t.Errorf("CloseTimeout = %v, want default 30s", rc.CloseTimeout)
	}

	cfg.RouterPoisonQueueEnabled = true
	if got := RouterConfigFrom(cfg).PoisonQueueTopic; got != "wayfinder.poison" {
		t.Errorf("poison topic = %q", got)
	}
}

func TestEmbeddedPort(t *testing.T) {
	t.Parallel()

	tests := map[string]int{
		"nats://127.0.0.1:4333": 4333,
		"nats://localhost":      4222,
		"::not a url":           4222,
	}
	for in, want := range tests {
		if got := embeddedPort(in); got != want {
			t.Errorf("embeddedPort(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestBus_RunAgainAfterStop(t *testing.T) {
	t.Parallel()

	transport, err := NewTransport(context.Background(), &config.EventsConfig{Mode: ModeMemory}, watermill.NopLogger{})
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = transport.Close() }()

	triggers := newMockTriggers()
	bus := NewBus(transport, NewHandler(triggers, zerolog.Nop()), testRouterConfig(), watermill.NopLogger{})

	// First run stops on cancel without closing the shared transport.
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- bus.Run(ctx) }()
	<-bus.Ready()
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("first Run() error = %v", err)
	}

	ctx2, cancel2 := context.WithCancel(context.Background())
	defer cancel2()
	done2 := make(chan error, 1)
	go func() { done2 <- bus.Run(ctx2) }()

	pub := NewPublisher(transport.Publisher, PublisherConfig{}, zerolog.Nop())
	deadline := time.After(10 * time.Second)
	for {
		// The second router subscribes asynchronously; GoChannel drops
		// messages published before that, so publish until one lands.
		if err := pub.Publish(context.Background(), TopicUserLogin, NewTriggerEvent(3, 0)); err != nil {
			t.Fatalf("Publish() after restart error = %v", err)
		}
		select {
		case call := <-triggers.notify:
			if call.Method != "OnLogin" {
				t.Errorf("call = %+v", call)
			}
			cancel2()
			<-done2
			return
		case <-time.After(50 * time.Millisecond):
		case <-deadline:
			t.Fatal("trigger not delivered after restart")
		}
	}
}
