// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package recommend

import (
	"context"
	"errors"
	"fmt"
)

// Error kinds used to label failures in logs and metrics.
const (
	KindDataIntegrity         = "data_integrity"
	KindConfiguration         = "configuration"
	KindRepositoryUnavailable = "repository_unavailable"
	KindStaleWrite            = "stale_write"
	KindCanceled              = "canceled"
	KindInternal              = "internal"
)

var (
	// ErrStaleWrite is returned by ListStore.SwapList when a newer run
	// already stored its result.
	ErrStaleWrite = errors.New("stale recommendation write")

	// ErrRunInProgress is returned when a run for the user is already in flight.
	ErrRunInProgress = errors.New("recommendation run already in progress")
)

// DataIntegrityError reports a candidate that references content the
// repository cannot resolve.
type DataIntegrityError struct {
	PluginID  string
	ContentID int
	Detail    string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("plugin %s: content %d: %s", e.PluginID, e.ContentID, e.Detail)
}

// ErrorKind returns the classification label.
func (e *DataIntegrityError) ErrorKind() string { return KindDataIntegrity }

// PluginConfigurationError reports malformed plugin settings. The plugin is
// skipped for the rest of the run.
type PluginConfigurationError struct {
	PluginID string
	Err      error
}

func (e *PluginConfigurationError) Error() string {
	return fmt.Sprintf("plugin %s misconfigured: %v", e.PluginID, e.Err)
}

func (e *PluginConfigurationError) Unwrap() error { return e.Err }

// ErrorKind returns the classification label.
func (e *PluginConfigurationError) ErrorKind() string { return KindConfiguration }

// RepositoryUnavailableError reports a failed content repository query.
type RepositoryUnavailableError struct {
	Op  string
	Err error
}

func (e *RepositoryUnavailableError) Error() string {
	return fmt.Sprintf("content repository unavailable (%s): %v", e.Op, e.Err)
}

func (e *RepositoryUnavailableError) Unwrap() error { return e.Err }

// ErrorKind returns the classification label.
func (e *RepositoryUnavailableError) ErrorKind() string { return KindRepositoryUnavailable }

// PipelineError is returned when a run aborts. LastStage is the status of
// the last stage that completed before the failure.
type PipelineError struct {
	UserID    int
	LastStage Status
	Err       error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("recommendation pipeline for user %d aborted after %q: %v", e.UserID, e.LastStage, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// ErrorKind returns the kind of the underlying error.
func (e *PipelineError) ErrorKind() string { return ErrorKind(e.Err) }

// ErrorKind classifies an error into one of the Kind labels.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	var dataErr *DataIntegrityError
	var confErr *PluginConfigurationError
	var repoErr *RepositoryUnavailableError
	switch {
	case errors.As(err, &dataErr):
		return KindDataIntegrity
	case errors.As(err, &confErr):
		return KindConfiguration
	case errors.As(err, &repoErr):
		return KindRepositoryUnavailable
	case errors.Is(err, ErrStaleWrite):
		return KindStaleWrite
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	default:
		return KindInternal
	}
}
