// Package notify delivers scheduler events such as a change of selected
// region or an exhausted dispatch to external systems.
package notify

import (
	"context"
	"time"
)

// Event types.
const (
	EventRegionChanged     = "region_changed"
	EventDispatchExhausted = "dispatch_exhausted"
	EventTickFailed        = "tick_failed"
)

// Event is one notification.
type Event struct {
	Type       string    `json:"event"`
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
	Region     string    `json:"region,omitempty"`
	Previous   string    `json:"previous_region,omitempty"`
	DecisionID string    `json:"decision_id,omitempty"`
	Kind       string    `json:"kind,omitempty"`
}

// Notifier sends events.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}
