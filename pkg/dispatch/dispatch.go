// Package dispatch delivers a decision's job to its region with bounded,
// fixed-delay retries.
package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/cass-sched/cass/pkg/clock"
	"github.com/cass-sched/cass/pkg/failure"
	"github.com/cass-sched/cass/pkg/provider"
	"github.com/cass-sched/cass/pkg/provider/direct"
	"github.com/cass-sched/cass/pkg/retry"
)

// Defaults applied when Config leaves a field zero.
const (
	DefaultMaxAttempts = 3
	DefaultDelay       = 2 * time.Second
	DefaultTimeout     = 30 * time.Second
)

// Outcome values reported in events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Event describes a single attempt.
type Event struct {
	Region      string
	Provider    string
	Attempt     int
	MaxAttempts int
	Elapsed     time.Duration
	Outcome     string
	Err         error
}

// Observer receives an event after every attempt.
type Observer interface {
	ObserveAttempt(Event)
}

// Config configures an Engine.
type Config struct {
	MaxAttempts int
	Delay       time.Duration
	// Timeout bounds each attempt.
	Timeout  time.Duration
	Clock    clock.Clock
	Logger   *slog.Logger
	Observer Observer
	// Fallback configures the direct adapter used when no cloud adapter is
	// given.
	Fallback direct.Config
}

// Result is the outcome of one dispatch sequence.
type Result struct {
	Success          bool                   `json:"success"`
	TaskID           string                 `json:"task_id"`
	Zone             string                 `json:"zone"`
	Region           string                 `json:"region"`
	Provider         string                 `json:"provider"`
	Attempts         int                    `json:"attempts"`
	Elapsed          time.Duration          `json:"elapsed"`
	ErrorKind        failure.Kind           `json:"error_kind,omitempty"`
	Err              error                  `json:"-"`
	Error            string                 `json:"error,omitempty"`
	ProviderResponse *provider.DeployResult `json:"provider_response,omitempty"`
	State            State                  `json:"state"`
	Trace            []State                `json:"trace"`
}

// Engine runs dispatch sequences against one adapter.
type Engine struct {
	adapter     provider.Adapter
	maxAttempts int
	delay       time.Duration
	timeout     time.Duration
	clock       clock.Clock
	logger      *slog.Logger
	observer    Observer
}

// New creates an engine. A nil adapter selects the direct HTTP fallback.
func New(adapter provider.Adapter, cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if adapter == nil {
		fb := cfg.Fallback
		if fb.Logger == nil {
			fb.Logger = logger
		}
		if fb.Timeout == 0 {
			fb.Timeout = cfg.Timeout
		}
		adapter = direct.New(fb)
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	delay := cfg.Delay
	if delay < 0 {
		delay = 0
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}
	return &Engine{
		adapter:     adapter,
		maxAttempts: maxAttempts,
		delay:       delay,
		timeout:     timeout,
		clock:       clk,
		logger:      logger.With(slog.String("component", "dispatch")),
		observer:    cfg.Observer,
	}
}

// Adapter returns the adapter jobs are sent through.
func (e *Engine) Adapter() provider.Adapter {
	return e.adapter
}

// ProviderName returns the adapter's name.
func (e *Engine) ProviderName() string {
	return e.adapter.Name()
}

// Dispatch delivers inst. Individual attempt failures are retried; only
// exhaustion is reported, as a RetryExhausted error wrapping the last
// attempt's error. The Result is returned in both cases.
func (e *Engine) Dispatch(ctx context.Context, inst Instruction) (*Result, error) {
	m := newMachine()
	start := e.clock.Now()
	var ack *provider.DeployResult

	region := inst.TargetRegion
	providerName := e.adapter.Name()

	e.logger.InfoContext(ctx, "dispatching job",
		slog.String("task_id", inst.TaskID()),
		slog.String("zone", inst.Zone),
		slog.String("region", region),
		slog.String("provider", providerName),
		slog.Int("max_attempts", e.maxAttempts),
	)

	attempts, err := retry.Do(ctx, retry.Config{
		MaxAttempts: e.maxAttempts,
		Delay:       e.delay,
		Clock:       e.clock,
		OnAttempt: func(attempt int, elapsed time.Duration, err error) {
			e.emit(ctx, Event{
				Region:      region,
				Provider:    providerName,
				Attempt:     attempt,
				MaxAttempts: e.maxAttempts,
				Elapsed:     elapsed,
				Outcome:     outcome(err),
				Err:         err,
			})
		},
		OnWait: func(attempt int, delay time.Duration) {
			m.to(StateRetrying)
			e.logger.DebugContext(ctx, "waiting before retry",
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay),
			)
		},
	}, func(ctx context.Context, attempt int) error {
		if err := m.to(StateAttempting); err != nil {
			return err
		}
		actx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()

		res, err := e.adapter.DeployJob(actx, region, inst.Payload)
		if err != nil {
			return failure.New(failure.TransientDispatchFailure, "dispatch", err)
		}
		ack = res
		return nil
	})

	result := &Result{
		TaskID:   inst.TaskID(),
		Zone:     inst.Zone,
		Region:   region,
		Provider: providerName,
		Attempts: attempts,
		Elapsed:  e.clock.Since(start),
	}

	if err == nil {
		m.mustTo(StateSuccess)
		result.Success = true
		result.ProviderResponse = ack
		result.State = m.current()
		result.Trace = m.trace
		e.logger.InfoContext(ctx, "job dispatched",
			slog.String("task_id", inst.TaskID()),
			slog.String("region", region),
			slog.Int("attempts", attempts),
			slog.Duration("elapsed", result.Elapsed),
		)
		return result, nil
	}

	m.mustTo(StateExhausted)
	exhausted := failure.New(failure.RetryExhausted, "dispatch", err)
	result.ErrorKind = failure.RetryExhausted
	result.Err = exhausted
	result.Error = exhausted.Error()
	result.State = m.current()
	result.Trace = m.trace
	e.logger.ErrorContext(ctx, "dispatch exhausted",
		slog.String("task_id", inst.TaskID()),
		slog.String("region", region),
		slog.Int("attempts", attempts),
		slog.Duration("elapsed", result.Elapsed),
		slog.String("error", err.Error()),
	)
	return result, exhausted
}

func (e *Engine) emit(ctx context.Context, ev Event) {
	attrs := []any{
		slog.String("region", ev.Region),
		slog.String("provider", ev.Provider),
		slog.Int("attempt", ev.Attempt),
		slog.Int("max_attempts", ev.MaxAttempts),
		slog.Duration("elapsed", ev.Elapsed),
		slog.String("outcome", ev.Outcome),
	}
	if ev.Err != nil {
		attrs = append(attrs, slog.String("error", ev.Err.Error()))
		e.logger.WarnContext(ctx, "dispatch attempt failed", attrs...)
	} else {
		e.logger.InfoContext(ctx, "dispatch attempt succeeded", attrs...)
	}
	if e.observer != nil {
		e.observer.ObserveAttempt(ev)
	}
}

func outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}
