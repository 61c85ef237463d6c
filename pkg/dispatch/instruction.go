package dispatch

import (
	"time"

	"github.com/cass-sched/cass/pkg/decision"
	"github.com/cass-sched/cass/pkg/provider"
)

// SchedulerVersion identifies the scheduler in job metadata.
const SchedulerVersion = "cass-scheduler/v1"

// Instruction is what gets delivered for one decision.
type Instruction struct {
	// Zone is the decision's region code.
	Zone string `json:"zone"`
	// TargetRegion is the provider-specific region the job is posted to.
	TargetRegion string           `json:"target_region"`
	Provider     string           `json:"provider"`
	Payload      provider.Payload `json:"payload"`
	Metadata     map[string]any   `json:"metadata"`
}

// TaskID returns the payload's task id.
func (i Instruction) TaskID() string {
	return i.Payload.JobID()
}

// NewInstruction derives the instruction for d. The result depends only on
// its arguments: the task id comes from the decision id.
func NewInstruction(d *decision.Decision, targetRegion, providerName string) Instruction {
	if targetRegion == "" {
		targetRegion = d.SelectedRegion
	}
	ts := d.Timestamp.UTC().Format(time.RFC3339)
	return Instruction{
		Zone:         d.SelectedRegion,
		TargetRegion: targetRegion,
		Provider:     providerName,
		Payload: provider.Payload{
			"task_id":          "task-" + d.ID.String(),
			"scheduled_at":     ts,
			"region":           d.SelectedRegion,
			"carbon_intensity": d.Selected.CarbonIntensity,
			"reason":           "carbon_optimized",
		},
		Metadata: map[string]any{
			"scheduler_version":      SchedulerVersion,
			"decision_id":            d.ID.String(),
			"decision_timestamp":     ts,
			"mode":                   string(d.Mode),
			"carbon_savings_gco2":    d.Savings(),
			"carbon_savings_percent": d.SavingsPercent(),
		},
	}
}
