// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package eventbus

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/wayfinder/internal/logging"
)

// triggerCall records one call into the recommender.
type triggerCall struct {
	Method        string
	UserID        int
	Priority      int
	CorrelationID string
}

// mockTriggers implements Triggers and records calls.
type mockTriggers struct {
	mu    sync.Mutex
	calls []triggerCall
	err   error
	fails int // remaining calls that return err; negative fails forever

	notify chan triggerCall
}

func newMockTriggers() *mockTriggers {
	return &mockTriggers{notify: make(chan triggerCall, 64)}
}

func (m *mockTriggers) record(ctx context.Context, method string, userID, priority int) error {
	m.mu.Lock()
	call := triggerCall{Method: method, UserID: userID, Priority: priority, CorrelationID: logging.CorrelationIDFromContext(ctx)}
	m.calls = append(m.calls, call)
	var err error
	if m.err != nil && m.fails != 0 {
		err = m.err
		if m.fails > 0 {
			m.fails--
		}
	}
	m.mu.Unlock()

	select {
	case m.notify <- call:
	default:
	}
	return err
}

func (m *mockTriggers) OnRegistration(ctx context.Context, userID int) error {
	return m.record(ctx, "OnRegistration", userID, 0)
}

func (m *mockTriggers) OnProfileUpdate(ctx context.Context, userID int) error {
	return m.record(ctx, "OnProfileUpdate", userID, 0)
}

func (m *mockTriggers) OnLogin(ctx context.Context, userID int) error {
	return m.record(ctx, "OnLogin", userID, 0)
}

func (m *mockTriggers) Enqueue(ctx context.Context, userID, priority int) error {
	return m.record(ctx, "Enqueue", userID, priority)
}

func (m *mockTriggers) Reset(ctx context.Context, userID int) error {
	return m.record(ctx, "Reset", userID, 0)
}

func (m *mockTriggers) QueueAll(ctx context.Context, priority int) (int, error) {
	return 3, m.record(ctx, "QueueAll", 0, priority)
}

func (m *mockTriggers) Calls() []triggerCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]triggerCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// mockPublisher implements message.Publisher.
type mockPublisher struct {
	mu        sync.Mutex
	published map[string][]*message.Message
	err       error
}

func newMockPublisher() *mockPublisher {
	return &mockPublisher{published: make(map[string][]*message.Message)}
}

func (p *mockPublisher) Publish(topic string, msgs ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published[topic] = append(p.published[topic], msgs...)
	return nil
}

func (p *mockPublisher) Close() error { return nil }

func (p *mockPublisher) Messages(topic string) []*message.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.published[topic]
}

func (p *mockPublisher) SetErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

var errBrokerDown = errors.New("broker down")

func eventMessage(topic string, e *TriggerEvent) *message.Message {
	data, err := MarshalEvent(topic, e)
	if err != nil {
		panic(fmt.Sprintf("marshal test event: %v", err))
	}
	return message.NewMessage(e.EventID, data)
}
