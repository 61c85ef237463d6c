package decisionlog

import (
	"sort"
)

// Summary aggregates a set of records.
type Summary struct {
	TotalDecisions     int            `json:"total_decisions"`
	AvgCarbonIntensity float64        `json:"avg_carbon_intensity"`
	MostFrequentRegion string         `json:"most_frequent_region"`
	MostFrequentCount  int            `json:"most_frequent_region_count"`
	TotalCarbonSaved   float64        `json:"total_carbon_saved_gco2"`
	AvgSavingsPercent  float64        `json:"avg_savings_percent"`
	Executions         int            `json:"executions"`
	SuccessRate        *float64       `json:"success_rate"` // fraction in [0,1]; nil when nothing was dispatched
	RegionDistribution map[string]int `json:"region_distribution"`
}

// Summarize computes aggregate statistics. Ties for the most frequent region
// go to the alphabetically first code.
func Summarize(records []Record) Summary {
	s := Summary{
		TotalDecisions:     len(records),
		RegionDistribution: make(map[string]int),
	}
	if len(records) == 0 {
		return s
	}

	var carbon, percent float64
	var successes int
	for _, r := range records {
		carbon += r.CarbonIntensity
		percent += r.SavingsPercent
		s.TotalCarbonSaved += r.SavingsGCO2
		s.RegionDistribution[r.SelectedRegion]++
		if r.ExecutionSuccess != nil {
			s.Executions++
			if *r.ExecutionSuccess {
				successes++
			}
		}
	}
	n := float64(len(records))
	s.AvgCarbonIntensity = carbon / n
	s.AvgSavingsPercent = percent / n

	regions := make([]string, 0, len(s.RegionDistribution))
	for r := range s.RegionDistribution {
		regions = append(regions, r)
	}
	sort.Strings(regions)
	for _, r := range regions {
		if c := s.RegionDistribution[r]; c > s.MostFrequentCount {
			s.MostFrequentRegion = r
			s.MostFrequentCount = c
		}
	}

	if s.Executions > 0 {
		rate := float64(successes) / float64(s.Executions)
		s.SuccessRate = &rate
	}
	return s
}
