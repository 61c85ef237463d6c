// Package metrics exposes Prometheus metrics for scheduling ticks and
// dispatch attempts.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cass-sched/cass/pkg/clock"
	"github.com/cass-sched/cass/pkg/decision"
	"github.com/cass-sched/cass/pkg/decisionlog"
	"github.com/cass-sched/cass/pkg/dispatch"
)

// summaryWindow is the history the success-rate gauge is computed over.
const summaryWindow = 24 * time.Hour

// Metrics implements prometheus.Collector and dispatch.Observer.
type Metrics struct {
	log   decisionlog.Log
	clock clock.Clock

	ticksTotal          *prometheus.CounterVec
	attemptsTotal       *prometheus.CounterVec
	attemptDuration     *prometheus.HistogramVec
	selectedCarbon      *prometheus.GaugeVec
	carbonSavings       prometheus.Gauge
	logFailures         prometheus.Counter
	dispatchSuccessRate prometheus.Gauge
}

// New creates the collectors. log may be nil; when set, the success-rate
// gauge is refreshed from it on every scrape over the window ending at clk's
// current time. A nil clk uses the real clock.
func New(log decisionlog.Log, clk clock.Clock) *Metrics {
	if clk == nil {
		clk = clock.Real()
	}
	return &Metrics{
		log:   log,
		clock: clk,
		ticksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cass_ticks_total",
				Help: "Total number of scheduling ticks by outcome",
			},
			[]string{"outcome"},
		),
		attemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cass_dispatch_attempts_total",
				Help: "Total number of dispatch attempts by provider, region and outcome",
			},
			[]string{"provider", "region", "outcome"},
		),
		attemptDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cass_dispatch_attempt_duration_seconds",
				Help:    "Duration of individual dispatch attempts",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider"},
		),
		selectedCarbon: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cass_selected_carbon_intensity",
				Help: "Carbon intensity (gCO2/kWh) of the most recently selected region",
			},
			[]string{"region"},
		),
		carbonSavings: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cass_carbon_savings_gco2",
			Help: "Carbon saved by the most recent decision against the candidate mean",
		}),
		logFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cass_decision_log_failures_total",
			Help: "Total number of decision log writes that failed",
		}),
		dispatchSuccessRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cass_dispatch_success_rate",
			Help: "Fraction of logged dispatches in the last 24h that succeeded",
		}),
	}
}

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.ticksTotal.Describe(ch)
	m.attemptsTotal.Describe(ch)
	m.attemptDuration.Describe(ch)
	m.selectedCarbon.Describe(ch)
	m.carbonSavings.Describe(ch)
	m.logFailures.Describe(ch)
	m.dispatchSuccessRate.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.collectSuccessRate(context.Background())

	m.ticksTotal.Collect(ch)
	m.attemptsTotal.Collect(ch)
	m.attemptDuration.Collect(ch)
	m.selectedCarbon.Collect(ch)
	m.carbonSavings.Collect(ch)
	m.logFailures.Collect(ch)
	m.dispatchSuccessRate.Collect(ch)
}

func (m *Metrics) collectSuccessRate(ctx context.Context) {
	if m.log == nil {
		return
	}
	recs, err := m.log.Since(ctx, m.clock.Now().Add(-summaryWindow))
	if err != nil {
		return
	}
	if s := decisionlog.Summarize(recs); s.SuccessRate != nil {
		m.dispatchSuccessRate.Set(*s.SuccessRate)
	}
}

// ObserveAttempt implements dispatch.Observer.
func (m *Metrics) ObserveAttempt(ev dispatch.Event) {
	m.attemptsTotal.WithLabelValues(ev.Provider, ev.Region, ev.Outcome).Inc()
	m.attemptDuration.WithLabelValues(ev.Provider).Observe(ev.Elapsed.Seconds())
}

// RecordTick counts a finished tick.
func (m *Metrics) RecordTick(outcome string) {
	m.ticksTotal.WithLabelValues(outcome).Inc()
}

// RecordDecision updates the selection gauges.
func (m *Metrics) RecordDecision(d *decision.Decision) {
	m.selectedCarbon.Reset()
	m.selectedCarbon.WithLabelValues(d.SelectedRegion).Set(d.Selected.CarbonIntensity)
	m.carbonSavings.Set(d.Savings())
}

// RecordLogFailure counts a failed decision log write.
func (m *Metrics) RecordLogFailure() {
	m.logFailures.Inc()
}
