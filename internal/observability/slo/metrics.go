// Package slo tracks service level objectives for the polling pipeline.
// The gauges here are updated after each cycle from the cycle report.
package slo

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SLO targets for the pipeline. A cycle that polls most feeds successfully
// still counts toward availability; individual feed outages are expected.
const (
	// FeedAvailabilitySLO is the target fraction of configured feeds
	// successfully contacted per cycle.
	FeedAvailabilitySLO = 0.95

	// CycleCompletionSLO is the target fraction of scheduler ticks that
	// produce a completed cycle (not skipped, not aborted).
	CycleCompletionSLO = 0.99

	// SummaryComplianceSLO is the target fraction of matched items that end
	// up stored with a non-empty summary.
	SummaryComplianceSLO = 0.9
)

var (
	// SLOFeedAvailability tracks the fraction of feeds successfully polled
	// in the most recent cycle.
	SLOFeedAvailability = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "slo_feed_availability_ratio",
			Help: "Fraction of feeds successfully polled in the last cycle, target: 0.95",
		},
	)

	// SLOCycleCompletion tracks the rolling completion ratio of poll cycles.
	SLOCycleCompletion = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "slo_cycle_completion_ratio",
			Help: "Fraction of scheduled cycles that ran to completion, target: 0.99",
		},
	)

	// SLOSummaryCompliance tracks the fraction of published items that
	// carry a summary.
	SLOSummaryCompliance = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "slo_summary_compliance_ratio",
			Help: "Fraction of published items with a non-empty summary, target: 0.9",
		},
	)
)

// UpdateFeedAvailability records the per-cycle feed availability ratio.
func UpdateFeedAvailability(polled, failed int) {
	if polled <= 0 {
		return
	}
	SLOFeedAvailability.Set(float64(polled-failed) / float64(polled))
}

// UpdateCycleCompletion records the rolling cycle completion ratio.
func UpdateCycleCompletion(ratio float64) {
	SLOCycleCompletion.Set(ratio)
}

// UpdateSummaryCompliance records the published-with-summary ratio for the
// last cycle.
func UpdateSummaryCompliance(published, withoutSummary int) {
	if published <= 0 {
		return
	}
	SLOSummaryCompliance.Set(float64(published-withoutSummary) / float64(published))
}
