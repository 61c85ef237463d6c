// Package retry runs an operation a bounded number of times with a fixed
// delay between attempts.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cass-sched/cass/pkg/clock"
)

// Config configures retry behavior.
type Config struct {
	// MaxAttempts is the total number of attempts including the first one.
	// Values below 1 are treated as 1.
	MaxAttempts int

	// Delay is the fixed wait after every failed attempt except the last.
	Delay time.Duration

	// RetryableFunc determines if an error should trigger a retry.
	// If nil, all non-nil errors are retried.
	RetryableFunc func(error) bool

	// Clock is the clock used for waits. If nil, uses real time.
	Clock clock.Clock

	// OnAttempt is called after every attempt with its 1-based number, its
	// duration and its error (nil on success).
	OnAttempt func(attempt int, elapsed time.Duration, err error)

	// OnWait is called before each inter-attempt wait.
	OnWait func(attempt int, delay time.Duration)
}

// DefaultConfig returns the dispatch defaults: three attempts two seconds apart.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		Delay:       2 * time.Second,
	}
}

// Do executes fn until it succeeds, a non-retryable error is returned, or
// MaxAttempts is reached. It returns the number of attempts made and the
// last error.
func Do(ctx context.Context, cfg Config, fn func(ctx context.Context, attempt int) error) (int, error) {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}

	var lastErr error
	attempt := 0

	for attempt < maxAttempts {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return attempt, errors.Join(err, lastErr)
			}
			return attempt, err
		}

		attempt++
		start := clk.Now()
		err := fn(ctx, attempt)
		if cfg.OnAttempt != nil {
			cfg.OnAttempt(attempt, clk.Since(start), err)
		}
		if err == nil {
			return attempt, nil
		}
		lastErr = err

		if cfg.RetryableFunc != nil && !cfg.RetryableFunc(err) {
			return attempt, err
		}

		// No wait after the last attempt.
		if attempt >= maxAttempts {
			break
		}

		if cfg.OnWait != nil {
			cfg.OnWait(attempt, cfg.Delay)
		}
		select {
		case <-ctx.Done():
			return attempt, errors.Join(ctx.Err(), lastErr)
		case <-clk.After(cfg.Delay):
		}
	}

	return attempt, lastErr
}

// IsTimeout returns true if the error is a timeout error.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	type timeout interface {
		Timeout() bool
	}
	var t timeout
	if errors.As(err, &t) {
		return t.Timeout()
	}
	return false
}
