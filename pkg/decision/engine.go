package decision

import (
	"context"
	"log/slog"

	"github.com/cass-sched/cass/pkg/carbon"
	"github.com/cass-sched/cass/pkg/clock"
	"github.com/cass-sched/cass/pkg/failure"
	"github.com/cass-sched/cass/pkg/scoring"
)

// Config configures an Engine.
type Config struct {
	Mode    Mode
	Weights scoring.Weights
	// Filter is an optional CEL expression; see Filter.
	Filter string
	Clock  clock.Clock
	Logger *slog.Logger
}

// Engine fetches a carbon snapshot and turns it into a Decision.
type Engine struct {
	source  carbon.Source
	catalog Catalog
	mode    Mode
	weights scoring.Weights
	filter  *Filter
	clock   clock.Clock
	logger  *slog.Logger
}

// NewEngine validates the configuration eagerly. An empty catalog, invalid
// weights, an unknown mode or a filter that does not compile are
// configuration errors.
func NewEngine(source carbon.Source, catalog Catalog, cfg Config) (*Engine, error) {
	if source == nil {
		return nil, failure.Newf(failure.ConfigurationError, "decision", "carbon source is required")
	}
	if len(catalog) == 0 {
		return nil, failure.Newf(failure.ConfigurationError, "decision", "region catalog is empty")
	}
	mode := cfg.Mode
	if mode == "" {
		mode = ModeMulti
	}
	if mode != ModeSingle && mode != ModeMulti {
		return nil, failure.Newf(failure.ConfigurationError, "decision", "unknown mode %q", mode)
	}
	if mode == ModeMulti {
		if err := cfg.Weights.Validate(); err != nil {
			return nil, err
		}
	}
	filter, err := CompileFilter(cfg.Filter)
	if err != nil {
		return nil, failure.New(failure.ConfigurationError, "decision", err)
	}

	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		source:  source,
		catalog: catalog,
		mode:    mode,
		weights: cfg.Weights,
		filter:  filter,
		clock:   clk,
		logger:  logger.With(slog.String("component", "decision")),
	}, nil
}

// Catalog returns the engine's region catalog.
func (e *Engine) Catalog() Catalog {
	return e.catalog
}

// Candidates fetches the snapshot and returns the eligible candidates along
// with the raw readings.
func (e *Engine) Candidates(ctx context.Context) ([]Candidate, map[string]carbon.Reading, error) {
	snapshot, err := e.source.FetchAll(ctx, e.catalog.Codes())
	if err != nil && len(snapshot) == 0 {
		if failure.KindOf(err) == failure.KindUnknown {
			err = failure.New(failure.DataUnavailable, "decision", err)
		}
		return nil, nil, err
	}

	candidates := BuildCandidates(e.catalog, snapshot)
	filtered, errs := e.filter.Apply(candidates)
	for _, ferr := range errs {
		e.logger.WarnContext(ctx, "candidate filter error", slog.String("error", ferr.Error()))
	}
	if len(candidates) > 0 && len(filtered) == 0 {
		return nil, snapshot, failure.Newf(failure.DataUnavailable, "decision",
			"all %d candidates rejected by filter %q", len(candidates), e.filter.String())
	}
	return filtered, snapshot, nil
}

// Decide runs one decision: fetch, build candidates, filter, select.
func (e *Engine) Decide(ctx context.Context) (*Decision, error) {
	candidates, snapshot, err := e.Candidates(ctx)
	if err != nil {
		return nil, err
	}

	d, err := Decide(candidates, e.mode, e.weights, e.clock.Now())
	if err != nil {
		return nil, err
	}
	if r, ok := snapshot[d.SelectedRegion]; ok {
		d.DataTimestamp = r.Timestamp
	}

	e.logger.InfoContext(ctx, "region selected",
		slog.String("decision_id", d.ID.String()),
		slog.String("region", d.SelectedRegion),
		slog.String("mode", string(d.Mode)),
		slog.Float64("carbon_intensity", d.Selected.CarbonIntensity),
		slog.Float64("savings", d.Savings()),
		slog.Int("candidates", len(d.Candidates)),
	)
	return d, nil
}
