// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package plugins

import (
	"fmt"

	"github.com/tomtom215/wayfinder/internal/recommend"
)

// Build creates every built-in plugin in IDs() order. settings is keyed by
// plugin ID; missing entries use defaults.
func Build(repo recommend.ContentRepository, similar recommend.SimilarityProvider, settings map[string]Settings) []recommend.Plugin {
	return []recommend.Plugin{
		NewNewContent(repo, settings[IDNewContent]),
		NewTrending(repo, settings[IDTrending]),
		NewUserInterests(repo, settings[IDUserInterests]),
		NewSimilarContent(similar, settings[IDSimilarContent]),
		NewRandom(repo, settings[IDRandom]),
		NewPadResults(repo, settings[IDPadResults]),
		NewRevision(repo, settings[IDRevision]),
	}
}

// Register builds the built-in plugins and adds them to reg.
func Register(reg *recommend.Registry, repo recommend.ContentRepository, similar recommend.SimilarityProvider, settings map[string]Settings) error {
	for _, p := range Build(repo, similar, settings) {
		if err := reg.Register(p); err != nil {
			return fmt.Errorf("register plugin %s: %w", p.ID(), err)
		}
	}
	return nil
}
