// Package decision selects the region that should run the next unit of work.
package decision

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cass-sched/cass/pkg/failure"
	"github.com/cass-sched/cass/pkg/pareto"
	"github.com/cass-sched/cass/pkg/scoring"
)

// Mode selects how the winning candidate is chosen.
type Mode string

const (
	// ModeSingle picks the candidate with the lowest carbon intensity.
	ModeSingle Mode = "single"
	// ModeMulti picks the candidate with the lowest weighted score.
	ModeMulti Mode = "multi"
)

// ParseMode parses a mode name. The empty string is ModeMulti.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "multi", "multi-objective":
		return ModeMulti, nil
	case "single", "single-objective", "carbon":
		return ModeSingle, nil
	}
	return "", failure.Newf(failure.ConfigurationError, "decision", "unknown mode %q", s)
}

// Decision is the immutable record of one tick's choice.
type Decision struct {
	ID             uuid.UUID       `json:"id"`
	Timestamp      time.Time       `json:"timestamp"`
	Mode           Mode            `json:"mode"`
	SelectedRegion string          `json:"selected_region"`
	Selected       Candidate       `json:"selected"`
	Candidates     []Candidate     `json:"candidates"`
	Weights        scoring.Weights `json:"weights"`
	MeanCarbon     float64         `json:"mean_carbon"`
	// RawSavings is MeanCarbon minus the selected intensity. It may be
	// negative when a multi-objective pick is dirtier than average.
	RawSavings    float64        `json:"raw_savings"`
	Frontier      []pareto.Point `json:"frontier,omitempty"`
	DataTimestamp time.Time      `json:"data_timestamp,omitempty"`
}

// Savings returns the carbon saved against the mean, clamped at zero.
func (d *Decision) Savings() float64 {
	if d.RawSavings < 0 {
		return 0
	}
	return d.RawSavings
}

// SavingsPercent returns Savings as a percentage of the mean intensity.
func (d *Decision) SavingsPercent() float64 {
	if d.MeanCarbon <= 0 {
		return 0
	}
	return d.Savings() / d.MeanCarbon * 100
}

func (d *Decision) String() string {
	return fmt.Sprintf("%s (%.0f gCO2/kWh, saves %.1f%%)", d.SelectedRegion, d.Selected.CarbonIntensity, d.SavingsPercent())
}

// Select returns the index of the winning candidate. In multi mode it also
// returns a scored copy of the candidates; the input is never modified.
// Ties go to the earliest candidate.
func Select(candidates []Candidate, mode Mode, w scoring.Weights) (int, []Candidate, error) {
	if len(candidates) == 0 {
		return -1, nil, failure.Newf(failure.DataUnavailable, "decision", "no region candidates")
	}

	out := make([]Candidate, len(candidates))
	copy(out, candidates)

	switch mode {
	case ModeSingle:
		best := 0
		for i := 1; i < len(out); i++ {
			if out[i].CarbonIntensity < out[best].CarbonIntensity {
				best = i
			}
		}
		return best, out, nil

	case ModeMulti, "":
		scores, err := scoring.ScoreAll(out, w)
		if err != nil {
			return -1, nil, err
		}
		best := 0
		for i := range out {
			s := scores[i]
			out[i].Score = &s
			if scores[i] < scores[best] {
				best = i
			}
		}
		return best, out, nil
	}
	return -1, nil, failure.Newf(failure.ConfigurationError, "decision", "unknown mode %q", mode)
}

// MeanCarbon returns the mean carbon intensity of candidates.
func MeanCarbon(candidates []Candidate) float64 {
	if len(candidates) == 0 {
		return 0
	}
	var sum float64
	for _, c := range candidates {
		sum += c.CarbonIntensity
	}
	return sum / float64(len(candidates))
}

// Decide builds a Decision from an already-assembled candidate set.
func Decide(candidates []Candidate, mode Mode, w scoring.Weights, now time.Time) (*Decision, error) {
	idx, scored, err := Select(candidates, mode, w)
	if err != nil {
		return nil, err
	}
	if mode == "" {
		mode = ModeMulti
	}
	selected := scored[idx]
	mean := MeanCarbon(scored)
	return &Decision{
		ID:             uuid.New(),
		Timestamp:      now,
		Mode:           mode,
		SelectedRegion: selected.Region,
		Selected:       selected,
		Candidates:     scored,
		Weights:        w,
		MeanCarbon:     mean,
		RawSavings:     mean - selected.CarbonIntensity,
		Frontier:       pareto.Frontier(scored, scoring.Carbon, scoring.Latency),
	}, nil
}
