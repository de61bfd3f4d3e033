// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/tomtom215/wayfinder/internal/logging"
	"github.com/tomtom215/wayfinder/internal/recommend"
)

var (
	// ErrInvalidUserID is returned for a user ID path segment that is not a
	// positive integer.
	ErrInvalidUserID = errors.New("user ID must be a positive integer")

	// ErrInvalidBody is returned for a request body that cannot be decoded.
	ErrInvalidBody = errors.New("invalid request body")
)

// respondServiceError maps a recommender error to a status code and writes
// it. Internal details are logged, not returned.
func respondServiceError(ctx context.Context, rw *ResponseWriter, op string, err error) {
	var repoErr *recommend.RepositoryUnavailableError
	switch {
	case errors.As(err, &repoErr):
		rw.Error(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "content repository unavailable")
	case errors.Is(err, recommend.ErrRunInProgress):
		rw.Error(http.StatusConflict, ErrCodeConflict, "recommendation run already in progress")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		rw.Error(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "request canceled")
	default:
		rw.Error(http.StatusInternalServerError, ErrCodeInternalError, "internal error")
	}
	logging.Ctx(ctx).Error().Err(err).Str("op", op).Str("kind", recommend.ErrorKind(err)).Msg("request failed")
}
