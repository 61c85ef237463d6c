package retry

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/cass-sched/cass/pkg/clock"
)

func newFakeClock() *clock.FakeClock {
	return clock.NewFakeClock(time.Date(2025, 11, 5, 0, 0, 0, 0, time.UTC))
}

func TestDo_SuccessOnFirstAttempt(t *testing.T) {
	clk := newFakeClock()
	cfg := Config{MaxAttempts: 3, Delay: 2 * time.Second, Clock: clk}

	attempts, err := Do(context.Background(), cfg, func(ctx context.Context, attempt int) error {
		return nil
	})

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts)
	}
	if len(clk.Waits()) != 0 {
		t.Errorf("expected no waits, got %v", clk.Waits())
	}
}

func TestDo_SuccessOnAttemptK(t *testing.T) {
	for k := 1; k <= 4; k++ {
		clk := newFakeClock()
		cfg := Config{MaxAttempts: 4, Delay: time.Second, Clock: clk}

		calls := 0
		attempts, err := Do(context.Background(), cfg, func(ctx context.Context, attempt int) error {
			calls++
			if attempt < k {
				return errors.New("temporary error")
			}
			return nil
		})

		if err != nil {
			t.Errorf("k=%d: expected no error, got %v", k, err)
		}
		if attempts != k || calls != k {
			t.Errorf("k=%d: attempts = %d, calls = %d", k, attempts, calls)
		}
		if got := len(clk.Waits()); got != k-1 {
			t.Errorf("k=%d: waits = %d, want %d", k, got, k-1)
		}
	}
}

func TestDo_MaxAttemptsExceeded(t *testing.T) {
	clk := newFakeClock()
	cfg := Config{MaxAttempts: 3, Delay: 2 * time.Second, Clock: clk}

	expectedErr := errors.New("persistent error")
	attempts, err := Do(context.Background(), cfg, func(ctx context.Context, attempt int) error {
		return expectedErr
	})

	if !errors.Is(err, expectedErr) {
		t.Errorf("expected %v, got %v", expectedErr, err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}

	waits := clk.Waits()
	if len(waits) != 2 {
		t.Fatalf("expected 2 waits, got %d", len(waits))
	}
	for _, w := range waits {
		if w != 2*time.Second {
			t.Errorf("wait = %v, want fixed 2s", w)
		}
	}
}

func TestDo_ZeroMaxAttemptsRunsOnce(t *testing.T) {
	attempts, _ := Do(context.Background(), Config{Clock: newFakeClock()}, func(ctx context.Context, attempt int) error {
		return errors.New("fail")
	})
	if attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts)
	}
}

func TestDo_NonRetryableError(t *testing.T) {
	nonRetryableErr := errors.New("permanent error")
	cfg := Config{
		MaxAttempts: 5,
		Clock:       newFakeClock(),
		RetryableFunc: func(err error) bool {
			return !errors.Is(err, nonRetryableErr)
		},
	}

	attempts, err := Do(context.Background(), cfg, func(ctx context.Context, attempt int) error {
		return nonRetryableErr
	})

	if !errors.Is(err, nonRetryableErr) {
		t.Errorf("expected %v, got %v", nonRetryableErr, err)
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts)
	}
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := Config{MaxAttempts: 5, Delay: time.Second, Clock: newFakeClock()}

	attempts, err := Do(ctx, cfg, func(ctx context.Context, attempt int) error {
		if attempt == 2 {
			cancel()
		}
		return errors.New("error")
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled in error chain, got %v", err)
	}
	if attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts)
	}
}

func TestDo_Hooks(t *testing.T) {
	var attemptLog []int
	var waitLog []int
	cfg := Config{
		MaxAttempts: 3,
		Delay:       time.Second,
		Clock:       newFakeClock(),
		OnAttempt: func(attempt int, elapsed time.Duration, err error) {
			attemptLog = append(attemptLog, attempt)
		},
		OnWait: func(attempt int, delay time.Duration) {
			waitLog = append(waitLog, attempt)
		},
	}

	Do(context.Background(), cfg, func(ctx context.Context, attempt int) error {
		return errors.New("fail")
	})

	if len(attemptLog) != 3 || attemptLog[2] != 3 {
		t.Errorf("OnAttempt calls = %v, want [1 2 3]", attemptLog)
	}
	if len(waitLog) != 2 || waitLog[0] != 1 || waitLog[1] != 2 {
		t.Errorf("OnWait calls = %v, want [1 2]", waitLog)
	}
}

func TestIsTimeout(t *testing.T) {
	if !IsTimeout(context.DeadlineExceeded) {
		t.Error("expected DeadlineExceeded to be a timeout")
	}
	if !IsTimeout(&net.DNSError{IsTimeout: true}) {
		t.Error("expected DNS timeout to be a timeout")
	}
	if IsTimeout(errors.New("boom")) {
		t.Error("plain error should not be a timeout")
	}
}
