package decision

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/cass-sched/cass/pkg/carbon"
	"github.com/cass-sched/cass/pkg/clock"
	"github.com/cass-sched/cass/pkg/failure"
	"github.com/cass-sched/cass/pkg/scoring"
)

var now = time.Date(2025, 11, 5, 12, 0, 0, 0, time.UTC)

func scenario() []Candidate {
	return []Candidate{
		{Region: "A", CarbonIntensity: 650, LatencyMs: 10, CostPerUnit: 0.0476},
		{Region: "B", CarbonIntensity: 45, LatencyMs: 180, CostPerUnit: 0.0570},
		{Region: "C", CarbonIntensity: 420, LatencyMs: 150, CostPerUnit: 0.0475},
	}
}

func TestSelect_SingleObjective(t *testing.T) {
	idx, _, err := Select(scenario(), ModeSingle, scoring.DefaultWeights())
	if err != nil {
		t.Fatal(err)
	}
	if got := scenario()[idx].Region; got != "B" {
		t.Errorf("selected %s, want B", got)
	}
}

func TestSelect_SingleObjectiveTieFirstWins(t *testing.T) {
	cands := []Candidate{
		{Region: "X", CarbonIntensity: 300},
		{Region: "Y", CarbonIntensity: 100},
		{Region: "Z", CarbonIntensity: 100},
	}
	idx, _, err := Select(cands, ModeSingle, scoring.Weights{})
	if err != nil {
		t.Fatal(err)
	}
	if cands[idx].Region != "Y" {
		t.Errorf("selected %s, want Y", cands[idx].Region)
	}
}

func TestSelect_MultiObjectiveTieFirstWins(t *testing.T) {
	cands := []Candidate{
		{Region: "P", CarbonIntensity: 100, LatencyMs: 10, CostPerUnit: 1},
		{Region: "Q", CarbonIntensity: 100, LatencyMs: 10, CostPerUnit: 1},
	}
	idx, scored, err := Select(cands, ModeMulti, scoring.DefaultWeights())
	if err != nil {
		t.Fatal(err)
	}
	if idx != 0 {
		t.Errorf("selected index %d, want 0", idx)
	}
	if got := *scored[0].Score; math.Abs(got-0.5) > 1e-9 {
		t.Errorf("degenerate score = %v, want 0.5", got)
	}
}

func TestSelect_MultiObjectiveDoesNotMutateInput(t *testing.T) {
	cands := scenario()
	_, scored, err := Select(cands, ModeMulti, scoring.DefaultWeights())
	if err != nil {
		t.Fatal(err)
	}
	for i := range cands {
		if cands[i].Score != nil {
			t.Errorf("input candidate %d was scored in place", i)
		}
		if scored[i].Score == nil {
			t.Errorf("output candidate %d has no score", i)
		}
	}
}

func TestSelect_Empty(t *testing.T) {
	_, _, err := Select(nil, ModeSingle, scoring.DefaultWeights())
	if !failure.Is(err, failure.DataUnavailable) {
		t.Errorf("expected DataUnavailable, got %v", err)
	}
}

func TestSelect_ZeroWeights(t *testing.T) {
	_, _, err := Select(scenario(), ModeMulti, scoring.Weights{})
	if !failure.Is(err, failure.ConfigurationError) {
		t.Errorf("expected ConfigurationError, got %v", err)
	}
}

func TestDecide_Savings(t *testing.T) {
	d, err := Decide(scenario(), ModeSingle, scoring.DefaultWeights(), now)
	if err != nil {
		t.Fatal(err)
	}
	// mean = (650 + 45 + 420) / 3
	wantMean := 1115.0 / 3
	if d.MeanCarbon != wantMean {
		t.Errorf("MeanCarbon = %v, want %v", d.MeanCarbon, wantMean)
	}
	if d.RawSavings != wantMean-45 {
		t.Errorf("RawSavings = %v, want %v", d.RawSavings, wantMean-45)
	}
	if d.Savings() != d.RawSavings {
		t.Errorf("Savings() = %v, want %v", d.Savings(), d.RawSavings)
	}
	if d.SelectedRegion != "B" || d.Selected.Region != "B" {
		t.Errorf("selected %s", d.SelectedRegion)
	}
	if !d.Timestamp.Equal(now) {
		t.Errorf("Timestamp = %v", d.Timestamp)
	}
	if len(d.Frontier) != 3 {
		t.Errorf("frontier has %d points, want 3", len(d.Frontier))
	}
}

func TestDecide_NegativeSavingsClamped(t *testing.T) {
	// Latency dominates, so the dirtiest region wins.
	d, err := Decide(scenario(), ModeMulti, scoring.Weights{Latency: 1}, now)
	if err != nil {
		t.Fatal(err)
	}
	if d.SelectedRegion != "A" {
		t.Fatalf("selected %s, want A", d.SelectedRegion)
	}
	if d.RawSavings >= 0 {
		t.Errorf("RawSavings = %v, want negative", d.RawSavings)
	}
	if d.Savings() != 0 {
		t.Errorf("Savings() = %v, want 0", d.Savings())
	}
	if d.SavingsPercent() != 0 {
		t.Errorf("SavingsPercent() = %v, want 0", d.SavingsPercent())
	}
}

func TestBuildCandidates(t *testing.T) {
	snapshot := map[string]carbon.Reading{
		"DE": {Zone: "DE", CarbonIntensity: 420},
		"IN": {Zone: "IN", CarbonIntensity: 650},
	}
	got := BuildCandidates(DefaultCatalog(), snapshot)
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}
	if got[0].Region != "IN" || got[1].Region != "DE" {
		t.Errorf("order = %s, %s; want catalog order IN, DE", got[0].Region, got[1].Region)
	}
	if got[1].LatencyMs != 150 || got[1].CostPerUnit != 0.0475 {
		t.Errorf("DE catalog values not applied: %+v", got[1])
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeMulti, false},
		{"multi", ModeMulti, false},
		{"Single", ModeSingle, false},
		{"pareto", "", true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMode(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

type failingSource struct{}

func (failingSource) FetchAll(ctx context.Context, zones []string) (map[string]carbon.Reading, error) {
	return nil, errors.New("connection refused")
}

func TestNewEngine_ConfigurationErrors(t *testing.T) {
	src := &carbon.Static{}
	tests := []struct {
		name    string
		catalog Catalog
		cfg     Config
	}{
		{"empty catalog", nil, Config{Weights: scoring.DefaultWeights()}},
		{"zero weights", DefaultCatalog(), Config{Mode: ModeMulti}},
		{"bad filter", DefaultCatalog(), Config{Weights: scoring.DefaultWeights(), Filter: "candidate.latency_ms <"}},
		{"unknown mode", DefaultCatalog(), Config{Mode: "random", Weights: scoring.DefaultWeights()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEngine(src, tt.catalog, tt.cfg)
			if !failure.Is(err, failure.ConfigurationError) {
				t.Errorf("expected ConfigurationError, got %v", err)
			}
		})
	}
}

func TestEngine_Decide(t *testing.T) {
	src := &carbon.Static{
		Intensities: map[string]float64{"IN": 650, "FI": 45, "DE": 420},
		Clock:       clock.NewFakeClock(now),
	}
	e, err := NewEngine(src, DefaultCatalog(), Config{
		Mode:    ModeSingle,
		Weights: scoring.DefaultWeights(),
		Clock:   clock.NewFakeClock(now),
	})
	if err != nil {
		t.Fatal(err)
	}

	d, err := e.Decide(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if d.SelectedRegion != "FI" {
		t.Errorf("selected %s, want FI", d.SelectedRegion)
	}
	if len(d.Candidates) != 3 {
		t.Errorf("expected 3 candidates, got %d", len(d.Candidates))
	}
	if !d.DataTimestamp.Equal(now) {
		t.Errorf("DataTimestamp = %v, want %v", d.DataTimestamp, now)
	}
}

func TestEngine_DecideAllFetchesFailed(t *testing.T) {
	e, err := NewEngine(failingSource{}, DefaultCatalog(), Config{Weights: scoring.DefaultWeights()})
	if err != nil {
		t.Fatal(err)
	}
	d, err := e.Decide(context.Background())
	if d != nil {
		t.Errorf("expected no decision, got %+v", d)
	}
	if !failure.Is(err, failure.DataUnavailable) {
		t.Errorf("expected DataUnavailable, got %v", err)
	}
}

func TestEngine_DecideEmptySnapshot(t *testing.T) {
	e, err := NewEngine(&carbon.Static{}, DefaultCatalog(), Config{Weights: scoring.DefaultWeights()})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.Decide(context.Background()); !failure.Is(err, failure.DataUnavailable) {
		t.Errorf("expected DataUnavailable, got %v", err)
	}
}

func TestEngine_Filter(t *testing.T) {
	src := &carbon.Static{Intensities: map[string]float64{"IN": 650, "FI": 45, "DE": 420}}
	e, err := NewEngine(src, DefaultCatalog(), Config{
		Mode:    ModeSingle,
		Weights: scoring.DefaultWeights(),
		Filter:  "candidate.latency_ms < 160.0",
	})
	if err != nil {
		t.Fatal(err)
	}
	d, err := e.Decide(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	// FI is cleanest but too far away.
	if d.SelectedRegion != "DE" {
		t.Errorf("selected %s, want DE", d.SelectedRegion)
	}
}

func TestEngine_FilterRejectsEverything(t *testing.T) {
	src := &carbon.Static{Intensities: map[string]float64{"IN": 650}}
	e, err := NewEngine(src, DefaultCatalog(), Config{
		Weights: scoring.DefaultWeights(),
		Filter:  `candidate.region == "nowhere"`,
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.Decide(context.Background()); !failure.Is(err, failure.DataUnavailable) {
		t.Errorf("expected DataUnavailable, got %v", err)
	}
}

func TestFilter_Allow(t *testing.T) {
	f, err := CompileFilter(`candidate.carbon_intensity <= 200.0 && candidate.region != "BR-CS"`)
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		c    Candidate
		want bool
	}{
		{Candidate{Region: "FI", CarbonIntensity: 45}, true},
		{Candidate{Region: "BR-CS", CarbonIntensity: 90}, false},
		{Candidate{Region: "IN", CarbonIntensity: 650}, false},
	}
	for _, tt := range tests {
		got, err := f.Allow(tt.c)
		if err != nil {
			t.Fatalf("Allow(%s) error = %v", tt.c.Region, err)
		}
		if got != tt.want {
			t.Errorf("Allow(%s) = %v, want %v", tt.c.Region, got, tt.want)
		}
	}
}

func TestFilter_NilAllowsAll(t *testing.T) {
	f, err := CompileFilter("")
	if err != nil {
		t.Fatal(err)
	}
	if f != nil {
		t.Fatal("expected nil filter for empty expression")
	}
	ok, err := f.Allow(Candidate{Region: "IN"})
	if !ok || err != nil {
		t.Errorf("nil filter Allow() = %v, %v", ok, err)
	}
}

func TestFilter_NonBoolResult(t *testing.T) {
	f, err := CompileFilter("candidate.latency_ms")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Allow(Candidate{Region: "IN", LatencyMs: 10}); err == nil {
		t.Error("expected error for non-bool result")
	}
}

func TestRegion_Target(t *testing.T) {
	de, ok := DefaultCatalog().Lookup("DE")
	if !ok {
		t.Fatal("DE missing from default catalog")
	}
	if got := de.Target("gcp"); got != "europe-west3" {
		t.Errorf("Target(gcp) = %v", got)
	}
	if got := de.Target("direct"); got != "DE" {
		t.Errorf("Target(direct) = %v, want DE", got)
	}
}
