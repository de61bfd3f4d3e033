// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package recommend

import "context"

// Plugin is the base contract of every scoring plugin. A plugin takes part
// in a stage when it declares a weight for the stage and implements the
// matching capability interface.
type Plugin interface {
	// ID returns the unique plugin identifier.
	ID() string

	// Weights returns the default ordering weight per declared stage.
	// Lower weights run earlier.
	Weights() map[Stage]int
}

// Generator proposes candidates for a user. Implementations return an empty
// set when the profile lacks the preferences they need.
type Generator interface {
	Plugin
	Generate(ctx context.Context, profile *Profile) (*CandidateSet, error)
}

// Alterer may add, remove or mutate candidates. Calling Alter twice with the
// same input must leave the set as after the first call.
type Alterer interface {
	Plugin
	Alter(ctx context.Context, set *CandidateSet, profile *Profile) error
}

// Scorer computes or finalizes the plugin's scores in place.
type Scorer interface {
	Plugin
	Score(ctx context.Context, set *CandidateSet, profile *Profile) error
}

// Reranker runs after combining. It receives the candidates ordered by
// descending combined score and returns the new list. Injected candidates
// must carry a combined score.
type Reranker interface {
	Plugin
	Rerank(ctx context.Context, ranked []*Candidate, profile *Profile) ([]*Candidate, error)
}

// ConfigChecker is implemented by plugins that can validate their settings.
// A non-nil error excludes the plugin from the run.
type ConfigChecker interface {
	CheckConfig() error
}

// implements reports whether p has the capability required by stage.
func implements(p Plugin, stage Stage) bool {
	switch stage {
	case StageGenerate:
		_, ok := p.(Generator)
		return ok
	case StageAlter:
		_, ok := p.(Alterer)
		return ok
	case StageScore:
		_, ok := p.(Scorer)
		return ok
	case StageRerank:
		_, ok := p.(Reranker)
		return ok
	default:
		return false
	}
}
