// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package recommend

import "fmt"

// Stage is one step of the pipeline.
type Stage string

const (
	// StageGenerate proposes new candidates.
	StageGenerate Stage = "generate_candidates"
	// StageAlter adds, removes or mutates candidates.
	StageAlter Stage = "alter_candidates"
	// StageScore computes or finalizes per-plugin scores.
	StageScore Stage = "score_candidates"
	// StageCombine reduces scores to a combined value. Plugins cannot
	// participate in it.
	StageCombine Stage = "combine"
	// StageRerank reorders or injects scored candidates.
	StageRerank Stage = "rerank_candidates"
)

// PluginStages returns the stages plugins may participate in, in pipeline order.
func PluginStages() []Stage {
	return []Stage{StageGenerate, StageAlter, StageScore, StageRerank}
}

// ParseStage converts a stage name to a plugin Stage.
func ParseStage(s string) (Stage, error) {
	for _, st := range PluginStages() {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown stage %q", s)
}

// Status returns the user status that represents the stage in progress.
func (s Stage) Status() Status {
	switch s {
	case StageGenerate:
		return StatusGenerating
	case StageAlter:
		return StatusAltering
	case StageScore:
		return StatusScoring
	case StageCombine:
		return StatusCombining
	case StageRerank:
		return StatusReranking
	default:
		return StatusQueued
	}
}

// Status is the pipeline state of a user.
type Status string

const (
	StatusQueued     Status = "Queued"
	StatusGenerating Status = "Generating Candidates"
	StatusAltering   Status = "Altering Candidates"
	StatusScoring    Status = "Scoring Candidates"
	StatusCombining  Status = "Creating Recommendations"
	StatusReranking  Status = "Reranking Candidates"
	StatusReady      Status = "Ready"
	StatusStale      Status = "Stale"
)

// InProgress reports whether the status belongs to a running pipeline.
func (s Status) InProgress() bool {
	switch s {
	case StatusGenerating, StatusAltering, StatusScoring, StatusCombining, StatusReranking:
		return true
	default:
		return false
	}
}

// ParseStatus converts a status name to a Status.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusQueued, StatusGenerating, StatusAltering, StatusScoring,
		StatusCombining, StatusReranking, StatusReady, StatusStale:
		return st, nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}
