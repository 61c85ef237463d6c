package decision

import (
	"github.com/cass-sched/cass/pkg/carbon"
)

// Region is a static catalog entry.
type Region struct {
	Code        string  `json:"code"`
	LatencyMs   float64 `json:"latency_ms"`
	CostPerUnit float64 `json:"cost_per_unit"`
	// WorkerURL is the direct-dispatch endpoint for this region.
	WorkerURL string `json:"worker_url,omitempty"`
	// Targets maps a provider name to that provider's region for this
	// zone, e.g. {"gcp": "europe-west3"}.
	Targets map[string]string `json:"targets,omitempty"`
}

// Target returns the provider-specific region for r, or r.Code when no
// mapping exists.
func (r Region) Target(provider string) string {
	if t, ok := r.Targets[provider]; ok && t != "" {
		return t
	}
	return r.Code
}

// Catalog is the ordered list of regions considered each tick.
type Catalog []Region

// Codes returns the region codes in catalog order.
func (c Catalog) Codes() []string {
	codes := make([]string, len(c))
	for i, r := range c {
		codes[i] = r.Code
	}
	return codes
}

// Lookup returns the entry for code.
func (c Catalog) Lookup(code string) (Region, bool) {
	for _, r := range c {
		if r.Code == code {
			return r, true
		}
	}
	return Region{}, false
}

// Defaults for catalog entries that omit latency or cost.
const (
	DefaultLatencyMs   = 100
	DefaultCostPerUnit = 0.05
)

// DefaultCatalog returns the six ElectricityMaps zones the scheduler ships
// with, their measured latency and relative compute cost, and the nearest
// region of each supported provider.
func DefaultCatalog() Catalog {
	return Catalog{
		{Code: "IN", LatencyMs: 10, CostPerUnit: 0.0476, Targets: targets("asia-south1", "ap-south-1", "centralindia")},
		{Code: "FI", LatencyMs: 180, CostPerUnit: 0.0570, Targets: targets("europe-west1", "eu-west-1", "northeurope")},
		{Code: "DE", LatencyMs: 150, CostPerUnit: 0.0475, Targets: targets("europe-west3", "eu-central-1", "westeurope")},
		{Code: "JP", LatencyMs: 90, CostPerUnit: 0.0560, Targets: targets("asia-northeast1", "ap-northeast-1", "eastasia")},
		{Code: "AU-NSW", LatencyMs: 140, CostPerUnit: 0.0595, Targets: targets("asia-southeast1", "ap-southeast-2", "australiaeast")},
		{Code: "BR-CS", LatencyMs: 350, CostPerUnit: 0.0450, Targets: targets("us-east1", "us-east-1", "eastus")},
	}
}

func targets(gcp, aws, azure string) map[string]string {
	return map[string]string{"gcp": gcp, "aws": aws, "azure": azure}
}

// Candidate is a region under consideration for one tick.
type Candidate struct {
	Region          string   `json:"region"`
	CarbonIntensity float64  `json:"carbon_intensity"`
	LatencyMs       float64  `json:"latency_ms"`
	CostPerUnit     float64  `json:"cost_per_unit"`
	Score           *float64 `json:"score,omitempty"`
}

// Objectives returns carbon intensity, latency and cost.
func (c Candidate) Objectives() (float64, float64, float64) {
	return c.CarbonIntensity, c.LatencyMs, c.CostPerUnit
}

// RegionCode returns the candidate's region.
func (c Candidate) RegionCode() string {
	return c.Region
}

// BuildCandidates joins the catalog with a snapshot. Regions missing from the
// snapshot are skipped; catalog order is preserved.
func BuildCandidates(catalog Catalog, snapshot map[string]carbon.Reading) []Candidate {
	out := make([]Candidate, 0, len(catalog))
	for _, r := range catalog {
		reading, ok := snapshot[r.Code]
		if !ok {
			continue
		}
		out = append(out, Candidate{
			Region:          r.Code,
			CarbonIntensity: reading.CarbonIntensity,
			LatencyMs:       r.LatencyMs,
			CostPerUnit:     r.CostPerUnit,
		})
	}
	return out
}
