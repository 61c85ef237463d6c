// Package scoring computes normalized multi-objective scores for region
// candidates. Lower scores are better.
package scoring

import (
	"fmt"
	"math"
	"strings"

	"github.com/cass-sched/cass/pkg/failure"
)

// Objective is one of the values a region is judged on.
type Objective int

const (
	Carbon Objective = iota
	Latency
	Cost
)

func (o Objective) String() string {
	switch o {
	case Carbon:
		return "carbon"
	case Latency:
		return "latency"
	case Cost:
		return "cost"
	default:
		return fmt.Sprintf("objective(%d)", int(o))
	}
}

// ParseObjective parses an objective name such as "carbon" or "latency_ms".
func ParseObjective(s string) (Objective, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "carbon", "carbon_intensity":
		return Carbon, nil
	case "latency", "latency_ms":
		return Latency, nil
	case "cost", "cost_per_unit":
		return Cost, nil
	}
	return 0, fmt.Errorf("unknown objective %q (want carbon, latency or cost)", s)
}

// Values is implemented by anything that exposes the three objective values.
type Values interface {
	Objectives() (carbon, latencyMs, cost float64)
}

// Value returns the objective's value for v.
func (o Objective) Value(v Values) float64 {
	carbon, latency, cost := v.Objectives()
	switch o {
	case Latency:
		return latency
	case Cost:
		return cost
	default:
		return carbon
	}
}

// Weights controls the relative importance of each objective.
type Weights struct {
	Carbon  float64 `json:"carbon" yaml:"carbon"`
	Latency float64 `json:"latency" yaml:"latency"`
	Cost    float64 `json:"cost" yaml:"cost"`
}

// DefaultWeights favors carbon, then latency, then cost.
func DefaultWeights() Weights {
	return Weights{Carbon: 0.5, Latency: 0.3, Cost: 0.2}
}

// Validate reports a configuration error for negative, non-finite or
// all-zero weights.
func (w Weights) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{{"carbon", w.Carbon}, {"latency", w.Latency}, {"cost", w.Cost}} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return failure.Newf(failure.ConfigurationError, "scoring", "weight %s is not finite", f.name)
		}
		if f.v < 0 {
			return failure.Newf(failure.ConfigurationError, "scoring", "weight %s is negative: %g", f.name, f.v)
		}
	}
	if w.sum() == 0 {
		return failure.Newf(failure.ConfigurationError, "scoring", "objective weights sum to zero")
	}
	return nil
}

// Normalized returns the weights rescaled to sum to 1.
func (w Weights) Normalized() (Weights, error) {
	if err := w.Validate(); err != nil {
		return Weights{}, err
	}
	s := w.sum()
	return Weights{Carbon: w.Carbon / s, Latency: w.Latency / s, Cost: w.Cost / s}, nil
}

func (w Weights) sum() float64 {
	return w.Carbon + w.Latency + w.Cost
}

// Normalize maps value into [0,1] relative to [min,max]. When every
// candidate shares the same value the objective is neutral (0.5).
func Normalize(value, min, max float64) float64 {
	if max == min {
		return 0.5
	}
	return (value - min) / (max - min)
}

type bounds struct {
	min, max [3]float64
}

func rangeOf[T Values](all []T) bounds {
	var b bounds
	for i, c := range all {
		carbon, latency, cost := c.Objectives()
		vals := [3]float64{carbon, latency, cost}
		for j, v := range vals {
			if i == 0 || v < b.min[j] {
				b.min[j] = v
			}
			if i == 0 || v > b.max[j] {
				b.max[j] = v
			}
		}
	}
	return b
}

func (b bounds) score(c Values, w Weights) float64 {
	carbon, latency, cost := c.Objectives()
	return w.Carbon*Normalize(carbon, b.min[0], b.max[0]) +
		w.Latency*Normalize(latency, b.min[1], b.max[1]) +
		w.Cost*Normalize(cost, b.min[2], b.max[2])
}

// Score computes the weighted score of c relative to all candidates.
// The weights are renormalized to a convex combination first.
func Score[T Values](c T, all []T, w Weights) (float64, error) {
	nw, err := w.Normalized()
	if err != nil {
		return 0, err
	}
	if len(all) == 0 {
		return 0, failure.Newf(failure.DataUnavailable, "scoring", "no candidates to score against")
	}
	return rangeOf(all).score(c, nw), nil
}

// ScoreAll scores every candidate, computing the ranges once.
func ScoreAll[T Values](all []T, w Weights) ([]float64, error) {
	nw, err := w.Normalized()
	if err != nil {
		return nil, err
	}
	b := rangeOf(all)
	scores := make([]float64, len(all))
	for i, c := range all {
		scores[i] = b.score(c, nw)
	}
	return scores, nil
}
