// Package clock abstracts time so that retry waits and tick intervals can
// be observed in tests.
//
// Production code uses Real(). Tests use NewFakeClock(), which advances
// instantly on every wait and records the durations it was asked to wait.
package clock

import "time"

// Clock provides the time operations used by the scheduler.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// Since returns the time elapsed since t.
	Since(t time.Time) time.Duration

	// After waits for the duration to elapse and then sends the current time.
	After(d time.Duration) <-chan time.Time

	// NewTicker returns a Ticker that fires every d.
	NewTicker(d time.Duration) Ticker
}

// Ticker wraps time.Ticker functionality.
type Ticker interface {
	// C returns the channel on which ticks are delivered.
	C() <-chan time.Time

	// Stop turns off the ticker.
	Stop()
}
