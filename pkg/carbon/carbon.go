// Package carbon supplies per-region carbon-intensity readings.
package carbon

import (
	"context"
	"time"

	"github.com/cass-sched/cass/pkg/clock"
)

// Reading is a single carbon-intensity observation for a zone.
type Reading struct {
	Zone            string    `json:"zone"`
	CarbonIntensity float64   `json:"carbon_intensity"` // gCO2eq/kWh
	Timestamp       time.Time `json:"timestamp"`
	FetchedAt       time.Time `json:"fetched_at"`
}

// Source fetches the latest readings for a set of zones.
//
// Zones that cannot be fetched are absent from the returned map. An error is
// returned only when no zone could be fetched at all.
type Source interface {
	FetchAll(ctx context.Context, zones []string) (map[string]Reading, error)
}

// Static is a Source backed by fixed intensities. Useful for development and
// for running without an API key.
type Static struct {
	Intensities map[string]float64
	Clock       clock.Clock
}

// FetchAll returns a reading for every requested zone present in Intensities.
func (s *Static) FetchAll(ctx context.Context, zones []string) (map[string]Reading, error) {
	clk := s.Clock
	if clk == nil {
		clk = clock.Real()
	}
	now := clk.Now()
	out := make(map[string]Reading, len(zones))
	for _, z := range zones {
		v, ok := s.Intensities[z]
		if !ok {
			continue
		}
		out[z] = Reading{Zone: z, CarbonIntensity: v, Timestamp: now, FetchedAt: now}
	}
	return out, nil
}
