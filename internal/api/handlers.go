// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/wayfinder/internal/eventbus"
	"github.com/tomtom215/wayfinder/internal/logging"
	"github.com/tomtom215/wayfinder/internal/recommend"
	"github.com/tomtom215/wayfinder/internal/validation"
)

// maxBodyBytes bounds admin request bodies.
const maxBodyBytes = 64 << 10

// Recommendations is the part of the Recommender the API serves.
// *recommend.Recommender satisfies it.
type Recommendations interface {
	Get(ctx context.Context, userID int) ([]recommend.Recommendation, error)
	HasRecommendations(ctx context.Context, userID int) (bool, error)
	Status(ctx context.Context, userID int) (recommend.UserStatus, bool, error)
	Enqueue(ctx context.Context, userID, priority int) error
	Reset(ctx context.Context, userID int) error
	QueueAll(ctx context.Context, priority int) (int, error)
	CheckStatus() []recommend.PluginHealth
	PluginOrder() map[recommend.Stage][]string
	Settings() recommend.Settings
}

// TriggerPublisher publishes trigger events. *eventbus.Publisher satisfies it.
type TriggerPublisher interface {
	Publish(ctx context.Context, topic string, event *eventbus.TriggerEvent) error
}

// ReadinessCheck is one dependency probed by the readiness endpoint.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// HandlerConfig wires a Handler.
type HandlerConfig struct {
	Recommendations Recommendations

	// Publisher routes admin triggers through the event bus. Optional.
	Publisher TriggerPublisher

	// Reports serves history reports. Optional; the report routes answer
	// 404 without it.
	Reports HistoryReports

	ReadinessChecks []ReadinessCheck
	ReadyTimeout    time.Duration
	Version         string
}

// Handler serves the API endpoints.
type Handler struct {
	rec          Recommendations
	publisher    TriggerPublisher
	reports      HistoryReports
	checks       []ReadinessCheck
	readyTimeout time.Duration
	version      string
	startTime    time.Time
}

// NewHandler creates a Handler.
func NewHandler(cfg HandlerConfig) (*Handler, error) {
	if cfg.Recommendations == nil {
		return nil, errors.New("api handler: recommendations are required")
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = 2 * time.Second
	}
	return &Handler{
		rec:          cfg.Recommendations,
		publisher:    cfg.Publisher,
		reports:      cfg.Reports,
		checks:       cfg.ReadinessChecks,
		readyTimeout: cfg.ReadyTimeout,
		version:      cfg.Version,
		startTime:    time.Now(),
	}, nil
}

// PriorityRequest is the body of the enqueue and reset-all endpoints.
type PriorityRequest struct {
	Priority int `json:"priority" validate:"priority"`
}

// RecommendationsResponse is the body of the list endpoint.
type RecommendationsResponse struct {
	UserID             int                        `json:"user_id"`
	Items              []recommend.Recommendation `json:"items"`
	Count              int                        `json:"count"`
	HasRecommendations bool                       `json:"has_recommendations"`
}

// TriggerResponse is the body of enqueue and reset responses.
type TriggerResponse struct {
	UserID   int    `json:"user_id,omitempty"`
	Priority int    `json:"priority"`
	Queued   int    `json:"queued,omitempty"`
	EventID  string `json:"event_id,omitempty"`
	Mode     string `json:"mode"`
}

// Trigger delivery modes reported in TriggerResponse.
const (
	ModeDirect    = "direct"
	ModePublished = "published"
)

// PluginsResponse is the body of the plugins endpoint.
type PluginsResponse struct {
	Plugins     []recommend.PluginHealth     `json:"plugins"`
	Order       map[recommend.Stage][]string `json:"order"`
	CronEnabled bool                         `json:"cron_enabled"`
}

// GetRecommendations serves the user's ordered recommendation list. A user
// without a list gets an empty one.
func (h *Handler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	userID, ok := userIDParam(rw, r)
	if !ok {
		return
	}
	ctx := logging.ContextWithUserID(r.Context(), userID)

	items, err := h.rec.Get(ctx, userID)
	if err != nil {
		respondServiceError(ctx, rw, "get recommendations", err)
		return
	}
	has, err := h.rec.HasRecommendations(ctx, userID)
	if err != nil {
		respondServiceError(ctx, rw, "has recommendations", err)
		return
	}
	if items == nil {
		items = []recommend.Recommendation{}
	}
	rw.Success(RecommendationsResponse{
		UserID:             userID,
		Items:              items,
		Count:              len(items),
		HasRecommendations: has,
	})
}

// GetStatus serves the user's status record.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	userID, ok := userIDParam(rw, r)
	if !ok {
		return
	}
	ctx := logging.ContextWithUserID(r.Context(), userID)

	status, exists, err := h.rec.Status(ctx, userID)
	if err != nil {
		respondServiceError(ctx, rw, "get status", err)
		return
	}
	if !exists {
		rw.NotFound(fmt.Sprintf("no recommendation status for user %d", userID))
		return
	}
	rw.Success(status)
}

// Enqueue requests a recomputation for one user.
func (h *Handler) Enqueue(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	userID, ok := userIDParam(rw, r)
	if !ok {
		return
	}
	req, ok := decodePriority(rw, r)
	if !ok {
		return
	}
	ctx := logging.ContextWithUserID(r.Context(), userID)

	h.trigger(ctx, rw, eventbus.TopicEnqueue, eventbus.NewTriggerEvent(userID, req.Priority), func() (TriggerResponse, error) {
		return TriggerResponse{UserID: userID, Priority: req.Priority}, h.rec.Enqueue(ctx, userID, req.Priority)
	})
}

// ResetUser discards the freshness of one user's list and queues it.
func (h *Handler) ResetUser(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	userID, ok := userIDParam(rw, r)
	if !ok {
		return
	}
	ctx := logging.ContextWithUserID(r.Context(), userID)

	h.trigger(ctx, rw, eventbus.TopicReset, eventbus.NewTriggerEvent(userID, recommend.PriorityReset), func() (TriggerResponse, error) {
		return TriggerResponse{UserID: userID, Priority: recommend.PriorityReset}, h.rec.Reset(ctx, userID)
	})
}

// ResetAll queues every known user.
func (h *Handler) ResetAll(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	req, ok := decodePriority(rw, r)
	if !ok {
		return
	}
	ctx := r.Context()

	h.trigger(ctx, rw, eventbus.TopicReset, eventbus.NewResetAllEvent(req.Priority), func() (TriggerResponse, error) {
		n, err := h.rec.QueueAll(ctx, req.Priority)
		return TriggerResponse{Priority: req.Priority, Queued: n}, err
	})
}

// Plugins serves the registry and the configuration health of each plugin.
func (h *Handler) Plugins(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(PluginsResponse{
		Plugins:     h.rec.CheckStatus(),
		Order:       h.rec.PluginOrder(),
		CronEnabled: h.rec.Settings().CronEnabled,
	})
}

// trigger publishes the request as an event when a publisher is set and
// applies it directly otherwise, or when the publisher is unavailable.
func (h *Handler) trigger(ctx context.Context, rw *ResponseWriter, topic string, event *eventbus.TriggerEvent, direct func() (TriggerResponse, error)) {
	if h.publisher != nil {
		err := h.publisher.Publish(ctx, topic, event)
		if err == nil {
			rw.Accepted(TriggerResponse{UserID: event.UserID, Priority: event.Priority, EventID: event.EventID, Mode: ModePublished})
			return
		}
		if !errors.Is(err, eventbus.ErrPublisherUnavailable) {
			respondServiceError(ctx, rw, "publish "+topic, err)
			return
		}
		logging.Ctx(ctx).Warn().Err(err).Str("topic", topic).Msg("publisher unavailable, applying trigger directly")
	}

	resp, err := direct()
	if err != nil {
		respondServiceError(ctx, rw, topic, err)
		return
	}
	resp.Mode = ModeDirect
	rw.Success(resp)
}

func userIDParam(rw *ResponseWriter, r *http.Request) (int, bool) {
	userID, err := strconv.Atoi(chi.URLParam(r, "userID"))
	if err != nil || userID <= 0 {
		rw.BadRequest(ErrInvalidUserID.Error())
		return 0, false
	}
	return userID, true
}

// decodePriority reads an optional PriorityRequest body. An empty body
// means priority 0.
func decodePriority(rw *ResponseWriter, r *http.Request) (PriorityRequest, bool) {
	var req PriorityRequest
	dec := json.NewDecoder(http.MaxBytesReader(rw.w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		rw.BadRequest(fmt.Sprintf("%v: %v", ErrInvalidBody, err))
		return req, false
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		rw.ErrorWithDetails(http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Fields)
		return req, false
	}
	return req, true
}
