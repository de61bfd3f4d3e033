// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package eventbus

import (
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/wayfinder/internal/recommend"
)

// Trigger topics.
const (
	TopicUserRegistered = "wayfinder.user.registered"
	TopicUserUpdated    = "wayfinder.user.updated"
	TopicUserLogin      = "wayfinder.user.login"
	TopicEnqueue        = "wayfinder.recommendations.enqueue"
	TopicReset          = "wayfinder.recommendations.reset"

	// SubjectWildcard matches every Wayfinder subject, including the
	// default poison topic.
	SubjectWildcard = "wayfinder.>"
)

// ErrMalformedEvent marks a payload that can never be applied. Handlers
// acknowledge such messages instead of retrying them.
var ErrMalformedEvent = errors.New("malformed trigger event")

// Topics returns every trigger topic.
func Topics() []string {
	return []string{
		TopicUserRegistered,
		TopicUserUpdated,
		TopicUserLogin,
		TopicEnqueue,
		TopicReset,
	}
}

// IsTopic reports whether topic is a trigger topic.
func IsTopic(topic string) bool {
	for _, t := range Topics() {
		if t == topic {
			return true
		}
	}
	return false
}

// TriggerEvent asks the recommender to recompute one user. On the reset
// topic a zero UserID queues every known user.
type TriggerEvent struct {
	EventID   string    `json:"event_id"`
	UserID    int       `json:"user_id"`
	Priority  int       `json:"priority,omitempty"`
	All       bool      `json:"all,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTriggerEvent creates an event with a fresh ID.
func NewTriggerEvent(userID, priority int) *TriggerEvent {
	return &TriggerEvent{
		EventID:   uuid.New().String(),
		UserID:    userID,
		Priority:  priority,
		Timestamp: time.Now().UTC(),
	}
}

// NewResetAllEvent creates a reset event that queues every known user.
func NewResetAllEvent(priority int) *TriggerEvent {
	e := NewTriggerEvent(0, priority)
	e.All = true
	return e
}

// Validate checks the event against the rules of topic. Only a reset may
// set all, and then it must not name a user.
func (e *TriggerEvent) Validate(topic string) error {
	if e.EventID == "" {
		return fmt.Errorf("%w: event_id is required", ErrMalformedEvent)
	}
	switch {
	case e.All && topic != TopicReset:
		return fmt.Errorf("%w: all is only valid on %s", ErrMalformedEvent, TopicReset)
	case e.All && e.UserID != 0:
		return fmt.Errorf("%w: user_id must be omitted when all is set", ErrMalformedEvent)
	case !e.All && e.UserID <= 0:
		return fmt.Errorf("%w: user_id must be positive", ErrMalformedEvent)
	}
	if e.Priority < 0 || e.Priority > recommend.MaxPriority {
		return fmt.Errorf("%w: priority must be between 0 and %d", ErrMalformedEvent, recommend.MaxPriority)
	}
	return nil
}

// MarshalEvent validates and encodes an event for topic.
func MarshalEvent(topic string, e *TriggerEvent) ([]byte, error) {
	if err := e.Validate(topic); err != nil {
		return nil, err
	}
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return data, nil
}

// UnmarshalEvent decodes and validates an event received on topic. Every
// failure wraps ErrMalformedEvent.
func UnmarshalEvent(topic string, data []byte) (*TriggerEvent, error) {
	var e TriggerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if err := e.Validate(topic); err != nil {
		return nil, err
	}
	return &e, nil
}
