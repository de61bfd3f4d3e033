// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/tomtom215/wayfinder/internal/database"
	"github.com/tomtom215/wayfinder/internal/logging"
	"github.com/tomtom215/wayfinder/internal/recommend"
	"github.com/tomtom215/wayfinder/internal/validation"
)

// Report defaults.
const (
	defaultReportWindow = 7 * 24 * time.Hour
	defaultReportLimit  = 10
)

// HistoryReports answers analytical queries over recommendation history.
// *database.DB satisfies it.
type HistoryReports interface {
	TopRecommended(ctx context.Context, since time.Time, limit int) ([]database.ContentCount, error)
	History(ctx context.Context, userID int) ([]recommend.HistoryEntry, error)
}

// TopRecommendedRequest holds the query parameters of the top report.
type TopRecommendedRequest struct {
	Window time.Duration `json:"window" validate:"gt=0,lte=8784h"`
	Limit  int           `json:"limit" validate:"gte=1,lte=100"`
}

// TopRecommendedResponse is the body of the top report.
type TopRecommendedResponse struct {
	Since time.Time               `json:"since"`
	Items []database.ContentCount `json:"items"`
}

// HistoryResponse is the body of a user's history report.
type HistoryResponse struct {
	UserID  int                      `json:"user_id"`
	Entries []recommend.HistoryEntry `json:"entries"`
	Count   int                      `json:"count"`
}

// TopRecommended serves the most recommended content within a window.
//
//	GET /api/v1/recommendations/top?window=168h&limit=10
func (h *Handler) TopRecommended(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.reports == nil {
		rw.NotFound(errReportsDisabled)
		return
	}

	req, err := parseTopRecommended(r)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		rw.ErrorWithDetails(http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Fields)
		return
	}

	since := time.Now().Add(-req.Window).UTC()
	items, err := h.reports.TopRecommended(r.Context(), since, req.Limit)
	if err != nil {
		respondServiceError(r.Context(), rw, "top recommended", err)
		return
	}
	if items == nil {
		items = []database.ContentCount{}
	}
	rw.Success(TopRecommendedResponse{Since: since, Items: items})
}

// GetHistory serves a user's recommendation history, oldest first.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.reports == nil {
		rw.NotFound(errReportsDisabled)
		return
	}
	userID, ok := userIDParam(rw, r)
	if !ok {
		return
	}
	ctx := logging.ContextWithUserID(r.Context(), userID)

	entries, err := h.reports.History(ctx, userID)
	if err != nil {
		respondServiceError(ctx, rw, "get history", err)
		return
	}
	if entries == nil {
		entries = []recommend.HistoryEntry{}
	}
	rw.Success(HistoryResponse{UserID: userID, Entries: entries, Count: len(entries)})
}

const errReportsDisabled = "history reports require storage.history_in_database"

func parseTopRecommended(r *http.Request) (TopRecommendedRequest, error) {
	req := TopRecommendedRequest{Window: defaultReportWindow, Limit: defaultReportLimit}
	q := r.URL.Query()
	if v := q.Get("window"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return req, fmt.Errorf("invalid window %q: %w", v, err)
		}
		req.Window = d
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, fmt.Errorf("invalid limit %q", v)
		}
		req.Limit = n
	}
	return req, nil
}
