package decisionlog

import (
	"context"
	"sync"
	"time"

	"github.com/cass-sched/cass/pkg/clock"
	"github.com/cass-sched/cass/pkg/decision"
	"github.com/cass-sched/cass/pkg/dispatch"
)

// DefaultMaxEntries bounds the number of records kept.
const DefaultMaxEntries = 1000

// InMemLog is a bounded in-memory Log. Suitable for testing and
// single-instance deployments.
type InMemLog struct {
	mu      sync.RWMutex
	records []Record // oldest first
	max     int
	clock   clock.Clock
}

// NewInMemLog creates an in-memory log keeping at most max records.
func NewInMemLog(max int, clk clock.Clock) *InMemLog {
	if max <= 0 {
		max = DefaultMaxEntries
	}
	if clk == nil {
		clk = clock.Real()
	}
	return &InMemLog{max: max, clock: clk}
}

// Append stores a record, evicting the oldest when full.
func (l *InMemLog) Append(ctx context.Context, d *decision.Decision, r *dispatch.Result) error {
	rec := NewRecord(d, r, l.clock.Now())
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, rec)
	if over := len(l.records) - l.max; over > 0 {
		l.records = append([]Record(nil), l.records[over:]...)
	}
	return nil
}

// Recent returns up to n records, newest first.
func (l *InMemLog) Recent(ctx context.Context, n int) ([]Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if n <= 0 || n > len(l.records) {
		n = len(l.records)
	}
	out := make([]Record, 0, n)
	for i := len(l.records) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, l.records[i])
	}
	return out, nil
}

// Since returns records at or after t, newest first.
func (l *InMemLog) Since(ctx context.Context, t time.Time) ([]Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []Record
	for i := len(l.records) - 1; i >= 0; i-- {
		if !l.records[i].Timestamp.Before(t) {
			out = append(out, l.records[i])
		}
	}
	return out, nil
}

// Len returns the number of stored records.
func (l *InMemLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// Close is a no-op.
func (l *InMemLog) Close() error {
	return nil
}
