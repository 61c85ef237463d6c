// Package scheduler runs scheduling ticks: fetch carbon data, decide, dispatch
// and record.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cass-sched/cass/pkg/clock"
	"github.com/cass-sched/cass/pkg/decision"
	"github.com/cass-sched/cass/pkg/decisionlog"
	"github.com/cass-sched/cass/pkg/dispatch"
	"github.com/cass-sched/cass/pkg/failure"
	"github.com/cass-sched/cass/pkg/notify"
)

// Decider produces a decision for the current tick.
type Decider interface {
	Decide(ctx context.Context) (*decision.Decision, error)
}

// Dispatcher delivers an instruction.
type Dispatcher interface {
	Dispatch(ctx context.Context, inst dispatch.Instruction) (*dispatch.Result, error)
	ProviderName() string
}

// Recorder receives tick-level metrics. *metrics.Metrics implements it.
type Recorder interface {
	RecordTick(outcome string)
	RecordDecision(d *decision.Decision)
	RecordLogFailure()
}

// TickResult is the outcome of one tick.
type TickResult struct {
	Started     time.Time             `json:"started"`
	Duration    time.Duration         `json:"duration"`
	Decision    *decision.Decision    `json:"decision,omitempty"`
	Instruction *dispatch.Instruction `json:"instruction,omitempty"`
	Dispatch    *dispatch.Result      `json:"dispatch,omitempty"`
	Outcome     string                `json:"outcome"`
	Error       string                `json:"error,omitempty"`
}

// Config configures a Scheduler.
type Config struct {
	// Catalog maps the selected zone to provider regions.
	Catalog decision.Catalog
	// DryRun decides without dispatching.
	DryRun   bool
	Clock    clock.Clock
	Recorder Recorder
	// Notifier receives region changes and failed ticks. Optional.
	Notifier notify.Notifier
}

// Scheduler runs ticks. Ticks never overlap: Tick holds a mutex for its
// whole duration, so the periodic runner and on-demand callers serialize.
type Scheduler struct {
	decider    Decider
	dispatcher Dispatcher
	log        decisionlog.Log
	catalog    decision.Catalog
	dryRun     bool
	clock      clock.Clock
	recorder   Recorder
	notifier   notify.Notifier
	logger     *slog.Logger

	tickMu sync.Mutex
	lastMu sync.RWMutex
	last   *TickResult

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a scheduler. log may be nil to skip recording.
func New(decider Decider, dispatcher Dispatcher, log decisionlog.Log, cfg Config, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}
	return &Scheduler{
		decider:    decider,
		dispatcher: dispatcher,
		log:        log,
		catalog:    cfg.Catalog,
		dryRun:     cfg.DryRun,
		clock:      clk,
		recorder:   cfg.Recorder,
		notifier:   cfg.Notifier,
		logger:     logger.With(slog.String("component", "scheduler")),
	}
}

// Tick runs one full cycle. DataUnavailable and ConfigurationError abort
// the tick; RetryExhausted is returned after the decision is logged. Log
// failures are reported through the logger only.
func (s *Scheduler) Tick(ctx context.Context) (*TickResult, error) {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	start := s.clock.Now()
	res := &TickResult{Started: start}
	err := s.tick(ctx, res)
	res.Duration = s.clock.Since(start)
	res.Outcome = outcome(err)
	if err != nil {
		res.Error = err.Error()
	}
	if s.recorder != nil {
		s.recorder.RecordTick(res.Outcome)
	}

	s.lastMu.Lock()
	prev := s.last
	s.last = res
	s.lastMu.Unlock()

	s.notify(ctx, prev, res, err)
	return res, err
}

func (s *Scheduler) tick(ctx context.Context, res *TickResult) error {
	d, err := s.decider.Decide(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "decision failed",
			slog.String("kind", failure.KindOf(err).String()),
			slog.String("error", err.Error()),
		)
		return err
	}
	res.Decision = d
	if s.recorder != nil {
		s.recorder.RecordDecision(d)
	}

	var dispatchErr error
	if !s.dryRun && s.dispatcher != nil {
		providerName := s.dispatcher.ProviderName()
		target := d.SelectedRegion
		if r, ok := s.catalog.Lookup(d.SelectedRegion); ok {
			target = r.Target(providerName)
		}
		inst := dispatch.NewInstruction(d, target, providerName)
		res.Instruction = &inst
		res.Dispatch, dispatchErr = s.dispatcher.Dispatch(ctx, inst)
	}

	s.record(ctx, d, res.Dispatch)
	return dispatchErr
}

func (s *Scheduler) record(ctx context.Context, d *decision.Decision, r *dispatch.Result) {
	if s.log == nil {
		return
	}
	if err := s.log.Append(ctx, d, r); err != nil {
		err = failure.New(failure.LogSinkFailure, "scheduler", err)
		s.logger.WarnContext(ctx, "failed to record decision",
			slog.String("decision_id", d.ID.String()),
			slog.String("error", err.Error()),
		)
		if s.recorder != nil {
			s.recorder.RecordLogFailure()
		}
	}
}

// notify reports a failed tick, an exhausted dispatch, or a selected
// region that differs from the previous successful decision.
func (s *Scheduler) notify(ctx context.Context, prev, res *TickResult, err error) {
	if s.notifier == nil {
		return
	}

	ev := notify.Event{Timestamp: s.clock.Now()}
	if res.Decision != nil {
		ev.Region = res.Decision.SelectedRegion
		ev.DecisionID = res.Decision.ID.String()
	}
	switch {
	case err != nil && res.Decision == nil:
		ev.Type = notify.EventTickFailed
		ev.Kind = failure.KindOf(err).String()
		ev.Message = err.Error()
	case err != nil:
		ev.Type = notify.EventDispatchExhausted
		ev.Kind = failure.KindOf(err).String()
		ev.Message = err.Error()
	case prev != nil && prev.Decision != nil && prev.Decision.SelectedRegion != ev.Region:
		ev.Type = notify.EventRegionChanged
		ev.Previous = prev.Decision.SelectedRegion
		ev.Message = fmt.Sprintf("selected region changed from %s to %s", ev.Previous, ev.Region)
	default:
		return
	}

	if nerr := s.notifier.Notify(ctx, ev); nerr != nil {
		s.logger.WarnContext(ctx, "failed to send notification",
			slog.String("event", ev.Type),
			slog.String("error", nerr.Error()),
		)
	}
}

// Last returns the most recent tick result, or nil.
func (s *Scheduler) Last() *TickResult {
	s.lastMu.RLock()
	defer s.lastMu.RUnlock()
	return s.last
}

// Start runs a tick every interval in the background. If immediate is set,
// the first tick runs right away.
func (s *Scheduler) Start(ctx context.Context, interval time.Duration, immediate bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.started = true

	s.wg.Add(1)
	go s.loop(ctx, interval, immediate)

	s.logger.Info("scheduler started", slog.Duration("interval", interval))
}

// Stop stops the background loop and waits for an in-flight tick.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.cancel()
	s.wg.Wait()
	s.started = false

	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, interval time.Duration, immediate bool) {
	defer s.wg.Done()

	ticker := s.clock.NewTicker(interval)
	defer ticker.Stop()

	if immediate {
		s.Tick(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			s.Tick(ctx)
		}
	}
}

func outcome(err error) string {
	if err == nil {
		return "success"
	}
	if k := failure.KindOf(err); k != failure.KindUnknown {
		return k.String()
	}
	return "error"
}
