// Package metrics provides centralized Prometheus metrics for the pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cycle metrics track whole poll cycles.
var (
	// CyclesTotal counts completed poll cycles by outcome.
	CyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poll_cycles_total",
			Help: "Total number of poll cycles",
		},
		[]string{"outcome"}, // outcome: success, partial, failed, skipped
	)

	// CycleDuration measures full cycle duration in seconds.
	CycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "poll_cycle_duration_seconds",
			Help:    "Time taken for a full poll cycle",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
	)

	// LastCycleSuccessTimestamp records when the last successful cycle ended.
	LastCycleSuccessTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "poll_last_cycle_success_timestamp_seconds",
			Help: "Unix timestamp of the last successful poll cycle",
		},
	)
)

// Feed metrics track per-source polling.
var (
	// FeedPollDuration measures time to poll one feed source.
	FeedPollDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feed_poll_duration_seconds",
			Help:    "Time taken to poll a feed source",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"source"},
	)

	// FeedPollErrors counts errors during feed polling.
	FeedPollErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_poll_errors_total",
			Help: "Total number of feed poll errors",
		},
		[]string{"source", "error_type"},
	)

	// FeedsDisabled tracks how many sources are currently disabled after
	// repeated failures.
	FeedsDisabled = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "feeds_disabled_total",
			Help: "Number of feed sources currently disabled",
		},
	)

	// ItemsFetchedTotal counts items parsed from each source.
	ItemsFetchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "items_fetched_total",
			Help: "Total number of feed items parsed from sources",
		},
		[]string{"source"},
	)
)

// Pipeline metrics track the filter stages between fetch and store.
var (
	// ItemsDeduplicatedTotal counts items dropped as already seen.
	ItemsDeduplicatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "items_deduplicated_total",
			Help: "Total number of items dropped by the dedup index",
		},
	)

	// ItemsMatchedTotal counts relevance decisions by result.
	ItemsMatchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "items_matched_total",
			Help: "Total number of relevance decisions",
		},
		[]string{"result"}, // result: relevant, irrelevant
	)

	// ItemsPublishedTotal counts items written to the item store.
	ItemsPublishedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "items_published_total",
			Help: "Total number of items published to the store",
		},
	)

	// ItemsSummarizedTotal counts summarization outcomes.
	ItemsSummarizedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "items_summarized_total",
			Help: "Total number of summarization attempts",
		},
		[]string{"status"}, // status: success, failure
	)

	// SummarizationDuration measures time to summarize one item.
	SummarizationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "summarization_duration_seconds",
			Help:    "Time taken to summarize an item",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
	)

	// EnrichAttemptsTotal counts abstract enrichment attempts by result.
	EnrichAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrich_attempts_total",
			Help: "Total number of abstract enrichment attempts",
		},
		[]string{"result"}, // result: success, failure, skipped
	)

	// EnrichDuration measures time to fetch one abstract.
	EnrichDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "enrich_duration_seconds",
			Help:    "Time taken to fetch an abstract for a thin excerpt",
			Buckets: []float64{0.1, 0.2, 0.4, 0.8, 1.6, 3.2, 6.4, 12.8},
		},
	)
)

// Database metrics track database performance.
var (
	// DBQueryDuration measures database query duration.
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
		},
		[]string{"operation"},
	)

	// DBConnectionsActive tracks active database connections.
	DBConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_active",
			Help: "Number of active database connections",
		},
	)

	// DBConnectionsIdle tracks idle database connections.
	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_idle",
			Help: "Number of idle database connections",
		},
	)

	// ItemsStoredTotal tracks the total number of items in the store.
	ItemsStoredTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "items_stored_total",
			Help: "Total number of published items in the store",
		},
	)
)

// RecordOperationDuration records the duration of a named database operation.
func RecordOperationDuration(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
