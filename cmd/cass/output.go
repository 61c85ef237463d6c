package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/pterm/pterm"

	"github.com/cass-sched/cass/pkg/api"
	"github.com/cass-sched/cass/pkg/decision"
	"github.com/cass-sched/cass/pkg/decisionlog"
	"github.com/cass-sched/cass/pkg/scheduler"
)

func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderTable(header []string, rows [][]string) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header(header)
	for _, row := range rows {
		table.Append(row)
	}
	table.Render()
}

func printDecision(d *decision.Decision) {
	pterm.DefaultHeader.WithBackgroundStyle(pterm.NewStyle(pterm.BgDarkGray)).
		WithTextStyle(pterm.NewStyle(pterm.FgLightGreen, pterm.Bold)).
		Println("Selected region: " + d.SelectedRegion)
	fmt.Println()

	pterm.Info.Printfln("Mode: %s", d.Mode)
	pterm.Info.Printfln("Carbon intensity: %s", formatCarbon(d.Selected.CarbonIntensity))
	pterm.Info.Printfln("Savings vs mean: %.1f gCO2/kWh (%.1f%%)", d.Savings(), d.SavingsPercent())
	fmt.Println()

	renderTable([]string{"", "Region", "Carbon", "Latency", "Cost", "Score"}, candidateRows(d.Candidates, d.SelectedRegion))
}

func candidateRows(cands []decision.Candidate, selected string) [][]string {
	rows := make([][]string, 0, len(cands))
	for _, c := range cands {
		mark := ""
		if c.Region == selected {
			mark = "*"
		}
		score := "-"
		if c.Score != nil {
			score = fmt.Sprintf("%.3f", *c.Score)
		}
		rows = append(rows, []string{
			mark,
			c.Region,
			formatCarbon(c.CarbonIntensity),
			fmt.Sprintf("%.0f ms", c.LatencyMs),
			fmt.Sprintf("%.4f", c.CostPerUnit),
			score,
		})
	}
	return rows
}

func printPareto(resp api.ParetoResponse) {
	pterm.DefaultSection.Printfln("Pareto frontier: %s vs %s", resp.X, resp.Y)

	onFrontier := make(map[string]bool, len(resp.Frontier))
	for _, p := range resp.Frontier {
		onFrontier[p.Region] = true
	}
	rows := make([][]string, 0, len(resp.Points))
	for _, p := range resp.Points {
		mark := ""
		if onFrontier[p.Region] {
			mark = "*"
		}
		rows = append(rows, []string{mark, p.Region, formatFloat(p.Objective1), formatFloat(p.Objective2)})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i][0] > rows[j][0] })
	renderTable([]string{"Frontier", "Region", resp.X, resp.Y}, rows)
}

func printTick(res *scheduler.TickResult) {
	if res.Decision == nil {
		pterm.Error.Printfln("Tick failed: %s", res.Error)
		return
	}
	printDecision(res.Decision)
	fmt.Println()

	switch d := res.Dispatch; {
	case d == nil:
		pterm.Info.Println("Dispatch skipped (dry run)")
	case d.Success:
		pterm.Success.Printfln("Dispatched %s to %s/%s in %d attempt(s), %s",
			d.TaskID, d.Provider, d.Region, d.Attempts, d.Elapsed.Round(time.Millisecond))
	default:
		pterm.Error.Printfln("Dispatch to %s/%s failed after %d attempt(s): %s",
			d.Provider, d.Region, d.Attempts, d.Error)
	}
	if d := res.Dispatch; d != nil && len(d.Trace) > 0 {
		trace := make([]string, len(d.Trace))
		for i, s := range d.Trace {
			trace[i] = string(s)
		}
		pterm.Info.Printfln("Trace: %s", strings.Join(trace, " → "))
	}
}

func printRegions(resp *api.RegionsResponse) {
	rows := make([][]string, 0, len(resp.Candidates))
	for _, c := range resp.Candidates {
		updated := "-"
		if r, ok := resp.Readings[c.Region]; ok {
			updated = formatAge(r.Timestamp, time.Now())
		}
		rows = append(rows, []string{
			c.Region,
			formatCarbon(c.CarbonIntensity),
			fmt.Sprintf("%.0f ms", c.LatencyMs),
			fmt.Sprintf("%.4f", c.CostPerUnit),
			updated,
		})
	}
	renderTable([]string{"Region", "Carbon", "Latency", "Cost", "Updated"}, rows)

	if len(resp.Missing) > 0 {
		pterm.Warning.Printfln("No carbon data for: %s", strings.Join(resp.Missing, ", "))
	}
}

func printHistory(records []decisionlog.Record) {
	renderTable([]string{"Time", "Region", "Carbon", "Savings", "Mode", "Target", "Dispatch"}, historyRows(records, time.Now()))
}

func historyRows(records []decisionlog.Record, now time.Time) [][]string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		target := "-"
		if r.Provider != "" {
			target = r.Provider + "/" + r.TargetRegion
		}
		rows = append(rows, []string{
			formatAge(r.Timestamp, now),
			r.SelectedRegion,
			formatCarbon(r.CarbonIntensity),
			fmt.Sprintf("%.1f%%", r.SavingsPercent),
			r.Mode,
			target,
			formatExecution(r.ExecutionSuccess, r.Attempts),
		})
	}
	return rows
}

func printStats(s *api.StatsResponse) {
	pterm.DefaultSection.Printfln("Last %d day(s)", s.Days)

	if s.TotalDecisions == 0 {
		pterm.Info.Println("No decisions recorded")
		return
	}

	data := pterm.TableData{
		{"Metric", "Value"},
		{"Decisions", fmt.Sprintf("%d", s.TotalDecisions)},
		{"Avg carbon intensity", formatCarbon(s.AvgCarbonIntensity)},
		{"Most frequent region", fmt.Sprintf("%s (%d)", s.MostFrequentRegion, s.MostFrequentCount)},
		{"Total carbon saved", fmt.Sprintf("%.1f gCO2/kWh", s.TotalCarbonSaved)},
		{"Avg savings", fmt.Sprintf("%.1f%%", s.AvgSavingsPercent)},
		{"Dispatch success", formatSuccessRate(s.SuccessRate, s.Executions)},
	}
	pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(data).Render()
	fmt.Println()

	pterm.DefaultSection.Println("Region distribution")
	renderTable([]string{"Region", "Decisions", "Share"}, distributionRows(s.RegionDistribution, s.TotalDecisions))
}

// distributionRows orders regions by count, then code.
func distributionRows(dist map[string]int, total int) [][]string {
	regions := make([]string, 0, len(dist))
	for r := range dist {
		regions = append(regions, r)
	}
	sort.Slice(regions, func(i, j int) bool {
		if dist[regions[i]] != dist[regions[j]] {
			return dist[regions[i]] > dist[regions[j]]
		}
		return regions[i] < regions[j]
	})

	rows := make([][]string, 0, len(regions))
	for _, r := range regions {
		share := 0.0
		if total > 0 {
			share = float64(dist[r]) / float64(total) * 100
		}
		rows = append(rows, []string{r, fmt.Sprintf("%d", dist[r]), fmt.Sprintf("%.1f%%", share)})
	}
	return rows
}

// formatSuccessRate renders a success fraction as a percentage.
func formatSuccessRate(rate *float64, executions int) string {
	if rate == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f%% of %d", *rate*100, executions)
}

func formatCarbon(v float64) string {
	return fmt.Sprintf("%.0f gCO2/kWh", v)
}

func formatFloat(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.4g", v)
}

func formatExecution(success *bool, attempts int) string {
	switch {
	case success == nil:
		return "-"
	case *success:
		return fmt.Sprintf("ok (%d)", attempts)
	default:
		return fmt.Sprintf("failed (%d)", attempts)
	}
}

func formatAge(t, now time.Time) string {
	if t.IsZero() {
		return "Never"
	}
	duration := now.Sub(t)
	if duration < time.Minute {
		return fmt.Sprintf("%ds ago", int(duration.Seconds()))
	} else if duration < time.Hour {
		return fmt.Sprintf("%dm ago", int(duration.Minutes()))
	} else if duration < 24*time.Hour {
		return fmt.Sprintf("%dh ago", int(duration.Hours()))
	}
	return fmt.Sprintf("%dd ago", int(duration.Hours()/24))
}
