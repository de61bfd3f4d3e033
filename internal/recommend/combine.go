// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package recommend

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Combine strategy names.
const (
	StrategyWeightedSum     = "weighted_sum"
	StrategyWeightedAverage = "weighted_average"
	StrategyMax             = "max"
	StrategyWeightedProduct = "weighted_product"
)

// Strategies returns the supported combine strategy names.
func Strategies() []string {
	return []string{StrategyWeightedSum, StrategyWeightedAverage, StrategyMax, StrategyWeightedProduct}
}

// Weights maps plugin IDs to combine weights. Plugins without an entry
// weigh 1.0.
type Weights map[string]float64

// Of returns the weight of a plugin.
func (w Weights) Of(pluginID string) float64 {
	if v, ok := w[pluginID]; ok {
		return v
	}
	return 1.0
}

// Combiner reduces a candidate's ready scores to a single ranking value.
// The boolean is false when there is nothing to combine.
type Combiner interface {
	Name() string
	Combine(scores []Score) (float64, bool)
}

// NewCombiner returns the named strategy.
func NewCombiner(strategy string, weights Weights) (Combiner, error) {
	switch strategy {
	case StrategyWeightedSum:
		return WeightedSum(weights), nil
	case StrategyWeightedAverage, "":
		return WeightedAverage(weights), nil
	case StrategyMax:
		return Max(weights), nil
	case StrategyWeightedProduct:
		return WeightedProduct(weights), nil
	default:
		return nil, fmt.Errorf("unknown combine strategy %q (valid: %s)", strategy, strings.Join(Strategies(), ", "))
	}
}

type combineFunc struct {
	name string
	fn   func(scores []Score) float64
}

func (c combineFunc) Name() string { return c.name }

func (c combineFunc) Combine(scores []Score) (float64, bool) {
	ready := scores[:0:0]
	for _, s := range scores {
		if s.Ready() {
			ready = append(ready, s)
		}
	}
	if len(ready) == 0 {
		return 0, false
	}
	return c.fn(ready), true
}

// WeightedSum adds weight*value over all ready scores.
func WeightedSum(w Weights) Combiner {
	return combineFunc{name: StrategyWeightedSum, fn: func(scores []Score) float64 {
		var sum float64
		for _, s := range scores {
			sum += w.Of(s.PluginID) * s.Value
		}
		return sum
	}}
}

// WeightedAverage divides the weighted sum by the sum of weights.
func WeightedAverage(w Weights) Combiner {
	return combineFunc{name: StrategyWeightedAverage, fn: func(scores []Score) float64 {
		var sum, total float64
		for _, s := range scores {
			weight := w.Of(s.PluginID)
			sum += weight * s.Value
			total += weight
		}
		if total == 0 {
			return 0
		}
		return sum / total
	}}
}

// Max takes the largest weighted value.
func Max(w Weights) Combiner {
	return combineFunc{name: StrategyMax, fn: func(scores []Score) float64 {
		best := math.Inf(-1)
		for _, s := range scores {
			if v := w.Of(s.PluginID) * s.Value; v > best {
				best = v
			}
		}
		return best
	}}
}

// WeightedProduct multiplies value^weight over all ready scores. Negative
// values are clamped to zero.
func WeightedProduct(w Weights) Combiner {
	return combineFunc{name: StrategyWeightedProduct, fn: func(scores []Score) float64 {
		product := 1.0
		for _, s := range scores {
			product *= math.Pow(math.Max(s.Value, 0), w.Of(s.PluginID))
		}
		return product
	}}
}

// ReasonTemplates builds a candidate reason from the reasons of the plugins
// that contributed most to its combined score.
type ReasonTemplates struct {
	// Single is used with one contributing reason. Must contain one %s.
	Single string

	// Multiple is used with two contributing reasons. Must contain two %s.
	Multiple string
}

// DefaultReasonTemplates returns the built-in templates.
func DefaultReasonTemplates() ReasonTemplates {
	return ReasonTemplates{
		Single:   "Recommended because it is %s.",
		Multiple: "Recommended because it is %s and %s.",
	}
}

// Validate checks the placeholder counts.
func (t ReasonTemplates) Validate() error {
	if strings.Count(t.Single, "%s") != 1 {
		return fmt.Errorf("single reason template must contain exactly one %%s")
	}
	if strings.Count(t.Multiple, "%s") != 2 {
		return fmt.Errorf("multiple reason template must contain exactly two %%s")
	}
	return nil
}

// Compose returns the reason for a candidate using its top two ready scores
// by weighted value. Scores without a reason are ignored and duplicate
// reasons are collapsed. It returns "" when no score has a reason.
func (t ReasonTemplates) Compose(scores []Score, w Weights) string {
	ready := make([]Score, 0, len(scores))
	for _, s := range scores {
		if s.Ready() && s.Reason != "" {
			ready = append(ready, s)
		}
	}
	sort.SliceStable(ready, func(i, j int) bool {
		return w.Of(ready[i].PluginID)*ready[i].Value > w.Of(ready[j].PluginID)*ready[j].Value
	})

	var reasons []string
	for _, s := range ready {
		if len(reasons) == 2 {
			break
		}
		if len(reasons) == 1 && reasons[0] == s.Reason {
			continue
		}
		reasons = append(reasons, s.Reason)
	}

	switch len(reasons) {
	case 0:
		return ""
	case 1:
		return fmt.Sprintf(t.Single, reasons[0])
	default:
		return fmt.Sprintf(t.Multiple, reasons[0], reasons[1])
	}
}
