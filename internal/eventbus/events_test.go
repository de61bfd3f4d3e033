// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package eventbus

import (
	"errors"
	"testing"
)

func TestTriggerEvent_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		topic   string
		event   TriggerEvent
		wantErr bool
	}{
		{"valid registration", TopicUserRegistered, TriggerEvent{EventID: "e1", UserID: 7}, false},
		{"valid enqueue with priority", TopicEnqueue, TriggerEvent{EventID: "e1", UserID: 7, Priority: 1000}, false},
		{"reset all users", TopicReset, TriggerEvent{EventID: "e1", Priority: 100, All: true}, false},
		{"reset without user or all", TopicReset, TriggerEvent{EventID: "e1", Priority: 100}, true},
		{"reset all naming a user", TopicReset, TriggerEvent{EventID: "e1", UserID: 3, All: true}, true},
		{"all outside reset", TopicEnqueue, TriggerEvent{EventID: "e1", All: true}, true},
		{"missing event id", TopicUserLogin, TriggerEvent{UserID: 7}, true},
		{"zero user outside reset", TopicUserUpdated, TriggerEvent{EventID: "e1"}, true},
		{"negative user", TopicReset, TriggerEvent{EventID: "e1", UserID: -1}, true},
		{"negative priority", TopicEnqueue, TriggerEvent{EventID: "e1", UserID: 1, Priority: -1}, true},
		{"priority above max", TopicEnqueue, TriggerEvent{EventID: "e1", UserID: 1, Priority: 1001}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.event.Validate(tt.topic)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrMalformedEvent) {
				t.Errorf("error %v does not wrap ErrMalformedEvent", err)
			}
		})
	}
}

func TestMarshalUnmarshalEvent(t *testing.T) {
	t.Parallel()

	event := NewTriggerEvent(42, 10)
	if event.EventID == "" || event.Timestamp.IsZero() {
		t.Fatalf("NewTriggerEvent() = %+v", event)
	}

	data, err := MarshalEvent(TopicEnqueue, event)
	if err != nil {
		t.Fatalf("MarshalEvent() error = %v", err)
	}
	got, err := UnmarshalEvent(TopicEnqueue, data)
	if err != nil {
		t.Fatalf("UnmarshalEvent() error = %v", err)
	}
	if got.EventID != event.EventID || got.UserID != 42 || got.Priority != 10 || !got.Timestamp.Equal(event.Timestamp) {
		t.Errorf("round trip = %+v, want %+v", got, event)
	}

	if _, err := MarshalEvent(TopicUserLogin, &TriggerEvent{EventID: "x"}); !errors.Is(err, ErrMalformedEvent) {
		t.Errorf("MarshalEvent(invalid) error = %v", err)
	}
}

func TestUnmarshalEvent_Malformed(t *testing.T) {
	t.Parallel()

	payloads := map[string]string{
		"not json":       "user 42 registered",
		"wrong type":     `{"event_id":"e1","user_id":"forty-two"}`,
		"missing fields": `{}`,
	}
	for name, payload := range payloads {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if _, err := UnmarshalEvent(TopicUserRegistered, []byte(payload)); !errors.Is(err, ErrMalformedEvent) {
				t.Errorf("UnmarshalEvent(%q) error = %v, want ErrMalformedEvent", payload, err)
			}
		})
	}
}

func TestTopics(t *testing.T) {
	t.Parallel()

	if len(Topics()) != 5 {
		t.Fatalf("Topics() = %v", Topics())
	}
	for _, topic := range Topics() {
		if !IsTopic(topic) {
			t.Errorf("IsTopic(%q) = false", topic)
		}
	}
	if IsTopic("wayfinder.poison") {
		t.Error("poison topic reported as trigger topic")
	}
}
