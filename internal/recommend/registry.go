// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package recommend

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds the registered plugins, which of them are enabled, and
// their per-stage ordering. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	plugins   map[string]Plugin
	order     []string
	enabled   map[string]bool // nil means all enabled
	overrides map[string]map[Stage]int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		plugins:   make(map[string]Plugin),
		overrides: make(map[string]map[Stage]int),
	}
}

// Register adds a plugin. Plugin IDs must be unique and every declared
// stage must be a plugin stage the plugin implements.
func (r *Registry) Register(p Plugin) error {
	id := p.ID()
	if id == "" {
		return fmt.Errorf("plugin ID must not be empty")
	}
	for stage := range p.Weights() {
		if _, err := ParseStage(string(stage)); err != nil {
			return fmt.Errorf("plugin %s: %w", id, err)
		}
		if !implements(p, stage) {
			return fmt.Errorf("plugin %s declares stage %s without implementing it", id, stage)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.plugins[id]; ok {
		return fmt.Errorf("plugin %s already registered", id)
	}
	r.plugins[id] = p
	r.order = append(r.order, id)
	return nil
}

// SetEnabled restricts the registry to the given plugin IDs. A nil slice
// enables every registered plugin. Unknown IDs are an error.
func (r *Registry) SetEnabled(ids []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ids == nil {
		r.enabled = nil
		return nil
	}
	enabled := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := r.plugins[id]; !ok {
			return fmt.Errorf("unknown plugin %q", id)
		}
		enabled[id] = true
	}
	r.enabled = enabled
	return nil
}

// SetWeight overrides a plugin's ordering weight for a stage it declares.
func (r *Registry) SetWeight(id string, stage Stage, weight int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.plugins[id]
	if !ok {
		return fmt.Errorf("unknown plugin %q", id)
	}
	if _, declared := p.Weights()[stage]; !declared {
		return fmt.Errorf("plugin %s does not participate in %s", id, stage)
	}
	if r.overrides[id] == nil {
		r.overrides[id] = make(map[Stage]int)
	}
	r.overrides[id][stage] = weight
	return nil
}

// Weight returns the effective weight of a plugin for a stage.
func (r *Registry) Weight(id string, stage Stage) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.weightLocked(id, stage)
}

func (r *Registry) weightLocked(id string, stage Stage) (int, bool) {
	if w, ok := r.overrides[id][stage]; ok {
		return w, true
	}
	p, ok := r.plugins[id]
	if !ok {
		return 0, false
	}
	w, ok := p.Weights()[stage]
	return w, ok
}

// Enabled reports whether a plugin is registered and enabled.
func (r *Registry) Enabled(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.plugins[id]
	return ok && (r.enabled == nil || r.enabled[id])
}

// Plugins returns the enabled plugins in registration order.
func (r *Registry) Plugins() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Plugin, 0, len(r.order))
	for _, id := range r.order {
		if r.enabled == nil || r.enabled[id] {
			out = append(out, r.plugins[id])
		}
	}
	return out
}

// All returns every registered plugin in registration order, enabled or not.
func (r *Registry) All() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Plugin, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.plugins[id])
	}
	return out
}

// ForStage returns the enabled plugins participating in a stage, ordered by
// weight and then by plugin ID.
func (r *Registry) ForStage(stage Stage) []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	type entry struct {
		p      Plugin
		weight int
	}
	var entries []entry
	for _, id := range r.order {
		if r.enabled != nil && !r.enabled[id] {
			continue
		}
		w, ok := r.weightLocked(id, stage)
		if !ok {
			continue
		}
		entries = append(entries, entry{p: r.plugins[id], weight: w})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].weight != entries[j].weight {
			return entries[i].weight < entries[j].weight
		}
		return entries[i].p.ID() < entries[j].p.ID()
	})

	out := make([]Plugin, len(entries))
	for i, e := range entries {
		out[i] = e.p
	}
	return out
}
