// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/wayfinder/internal/eventbus"
	"github.com/tomtom215/wayfinder/internal/recommend"
)

type call struct {
	Method   string
	UserID   int
	Priority int
}

// mockRecommendations records trigger calls and serves canned data.
type mockRecommendations struct {
	mu       sync.Mutex
	calls    []call
	lists    map[int][]recommend.Recommendation
	statuses map[int]recommend.UserStatus
	users    int
	err      error
	settings recommend.Settings
}

func newMockRecommendations() *mockRecommendations {
	return &mockRecommendations{
		lists:    make(map[int][]recommend.Recommendation),
		statuses: make(map[int]recommend.UserStatus),
	}
}

func (m *mockRecommendations) record(method string, userID, priority int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call{Method: method, UserID: userID, Priority: priority})
}

func (m *mockRecommendations) Calls() []call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]call(nil), m.calls...)
}

func (m *mockRecommendations) Get(_ context.Context, userID int) ([]recommend.Recommendation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.lists[userID], nil
}

func (m *mockRecommendations) HasRecommendations(_ context.Context, userID int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.lists[userID]) > 0, nil
}

func (m *mockRecommendations) Status(_ context.Context, userID int) (recommend.UserStatus, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return recommend.UserStatus{}, false, m.err
	}
	s, ok := m.statuses[userID]
	return s, ok, nil
}

func (m *mockRecommendations) Enqueue(_ context.Context, userID, priority int) error {
	m.record("Enqueue", userID, priority)
	return m.err
}

func (m *mockRecommendations) Reset(_ context.Context, userID int) error {
	m.record("Reset", userID, recommend.PriorityReset)
	return m.err
}

func (m *mockRecommendations) QueueAll(_ context.Context, priority int) (int, error) {
	m.record("QueueAll", 0, priority)
	return m.users, m.err
}

func (m *mockRecommendations) CheckStatus() []recommend.PluginHealth {
	return []recommend.PluginHealth{
		{ID: "trending", Enabled: true, OK: true, Stages: map[recommend.Stage]int{recommend.StageGenerate: 0}},
		{ID: "revision", Enabled: true, OK: false, Message: "reason must not be empty"},
	}
}

func (m *mockRecommendations) PluginOrder() map[recommend.Stage][]string {
	return map[recommend.Stage][]string{recommend.StageGenerate: {"trending"}, recommend.StageRerank: {"revision"}}
}

func (m *mockRecommendations) Settings() recommend.Settings {
	return m.settings
}

type published struct {
	Topic string
	Event *eventbus.TriggerEvent
}

// mockPublisher records published trigger events.
type mockPublisher struct {
	mu     sync.Mutex
	events []published
	err    error
}

func (p *mockPublisher) Publish(_ context.Context, topic string, event *eventbus.TriggerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, published{Topic: topic, Event: event})
	return nil
}

func (p *mockPublisher) Events() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.events...)
}

// envelope mirrors APIResponse with raw data.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
	Meta *APIMeta `json:"meta"`
}

func newTestRouter(t *testing.T, rec Recommendations, pub TriggerPublisher, checks ...ReadinessCheck) http.Handler {
	t.Helper()
	cfg := HandlerConfig{Recommendations: rec, ReadinessChecks: checks, Version: "test"}
	if pub != nil {
		cfg.Publisher = pub
	}
	h, err := NewHandler(cfg)
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	mc := DefaultChiMiddlewareConfig()
	mc.RateLimitDisabled = true
	return NewRouter(h, NewChiMiddleware(mc))
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, env
}
