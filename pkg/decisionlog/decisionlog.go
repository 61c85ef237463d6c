// Package decisionlog persists scheduling decisions and their dispatch
// outcomes. Writes are best effort: callers log and swallow errors.
package decisionlog

import (
	"context"
	"time"

	"github.com/cass-sched/cass/pkg/decision"
	"github.com/cass-sched/cass/pkg/dispatch"
)

// Record is one logged tick.
type Record struct {
	ID                  string    `json:"id"`
	Timestamp           time.Time `json:"timestamp"`
	TaskID              string    `json:"task_id,omitempty"`
	Mode                string    `json:"mode"`
	SelectedRegion      string    `json:"selected_region"`
	CarbonIntensity     float64   `json:"carbon_intensity"`
	SavingsGCO2         float64   `json:"savings_gco2"`
	SavingsPercent      float64   `json:"savings_percent"`
	AverageCarbon       float64   `json:"average_carbon"`
	TotalRegionsChecked int       `json:"total_regions_checked"`
	Provider            string    `json:"provider,omitempty"`
	TargetRegion        string    `json:"target_region,omitempty"`

	// Execution fields are empty when no dispatch happened.
	ExecutionSuccess   *bool  `json:"execution_success,omitempty"`
	Attempts           int    `json:"attempts,omitempty"`
	ExecutionTimeMs    int64  `json:"execution_time_ms,omitempty"`
	ExecutionError     string `json:"execution_error,omitempty"`
	ExecutionErrorKind string `json:"execution_error_kind,omitempty"`

	LoggedAt time.Time `json:"logged_at"`
}

// NewRecord flattens a decision and its dispatch result. r may be nil.
func NewRecord(d *decision.Decision, r *dispatch.Result, now time.Time) Record {
	rec := Record{
		ID:                  d.ID.String(),
		Timestamp:           d.Timestamp,
		Mode:                string(d.Mode),
		SelectedRegion:      d.SelectedRegion,
		CarbonIntensity:     d.Selected.CarbonIntensity,
		SavingsGCO2:         d.Savings(),
		SavingsPercent:      d.SavingsPercent(),
		AverageCarbon:       d.MeanCarbon,
		TotalRegionsChecked: len(d.Candidates),
		LoggedAt:            now,
	}
	if r != nil {
		success := r.Success
		rec.TaskID = r.TaskID
		rec.Provider = r.Provider
		rec.TargetRegion = r.Region
		rec.ExecutionSuccess = &success
		rec.Attempts = r.Attempts
		rec.ExecutionTimeMs = r.Elapsed.Milliseconds()
		rec.ExecutionError = r.Error
		if !r.Success {
			rec.ExecutionErrorKind = r.ErrorKind.String()
		}
	}
	return rec
}

// Log stores records, newest first.
type Log interface {
	// Append stores the record for d and r. r may be nil.
	Append(ctx context.Context, d *decision.Decision, r *dispatch.Result) error
	// Recent returns up to n records, newest first. n <= 0 returns all.
	Recent(ctx context.Context, n int) ([]Record, error)
	// Since returns records with Timestamp at or after t, newest first.
	Since(ctx context.Context, t time.Time) ([]Record, error)
	Close() error
}
