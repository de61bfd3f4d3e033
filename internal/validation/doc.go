// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

// Package validation validates API request bodies with go-playground/validator.
//
// The validator is a process-wide singleton so struct metadata is cached
// once. Two custom tags cover the recommendation API:
//
//	priority  integer in 0..recommend.MaxPriority
//	user_id   positive integer
//
// Example:
//
//	type EnqueueRequest struct {
//	    Priority int `json:"priority" validate:"priority"`
//	}
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    respondJSON(w, http.StatusBadRequest, verr.ToAPIError())
//	    return
//	}
package validation
