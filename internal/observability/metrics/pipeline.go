package metrics

import (
	"time"
)

// RecordCycle records the outcome and duration of one poll cycle.
// Outcome should be one of "success", "partial", "failed".
func RecordCycle(outcome string, duration time.Duration) {
	CyclesTotal.WithLabelValues(outcome).Inc()
	CycleDuration.Observe(duration.Seconds())
	if outcome == "success" || outcome == "partial" {
		LastCycleSuccessTimestamp.SetToCurrentTime()
	}
}

// RecordCycleSkipped records a scheduler tick skipped because the previous
// cycle was still running.
func RecordCycleSkipped() {
	CyclesTotal.WithLabelValues("skipped").Inc()
}

// RecordFeedPoll records metrics for one feed poll.
func RecordFeedPoll(sourceName string, duration time.Duration, itemsFound int) {
	FeedPollDuration.WithLabelValues(sourceName).Observe(duration.Seconds())
	if itemsFound > 0 {
		RecordItemsFetched(sourceName, itemsFound)
	}
}

// RecordFeedPollError records an error during feed polling.
func RecordFeedPollError(sourceName, errorType string) {
	FeedPollErrors.WithLabelValues(sourceName, errorType).Inc()
}

// UpdateFeedsDisabled updates the disabled source gauge.
func UpdateFeedsDisabled(count int) {
	FeedsDisabled.Set(float64(count))
}

// RecordItemsFetched records the number of items parsed from a source.
func RecordItemsFetched(sourceName string, count int) {
	ItemsFetchedTotal.WithLabelValues(sourceName).Add(float64(count))
}

// RecordItemDeduplicated records one item dropped as already seen.
func RecordItemDeduplicated() {
	ItemsDeduplicatedTotal.Inc()
}

// RecordItemMatched records one relevance decision.
func RecordItemMatched(relevant bool) {
	result := "relevant"
	if !relevant {
		result = "irrelevant"
	}
	ItemsMatchedTotal.WithLabelValues(result).Inc()
}

// RecordItemPublished records one item written to the store.
func RecordItemPublished() {
	ItemsPublishedTotal.Inc()
}

// RecordItemSummarized records the result of one summarization attempt.
func RecordItemSummarized(success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "failure"
	}
	ItemsSummarizedTotal.WithLabelValues(status).Inc()
	SummarizationDuration.Observe(duration.Seconds())
}

// RecordEnrichSuccess records a successful abstract fetch.
func RecordEnrichSuccess(duration time.Duration) {
	EnrichAttemptsTotal.WithLabelValues("success").Inc()
	EnrichDuration.Observe(duration.Seconds())
}

// RecordEnrichFailed records a failed abstract fetch.
func RecordEnrichFailed(duration time.Duration) {
	EnrichAttemptsTotal.WithLabelValues("failure").Inc()
	EnrichDuration.Observe(duration.Seconds())
}

// RecordEnrichSkipped records an item whose excerpt was already substantial.
func RecordEnrichSkipped() {
	EnrichAttemptsTotal.WithLabelValues("skipped").Inc()
}

// UpdateItemsStored updates the stored item count gauge. Called after each
// cycle from the store's Count.
func UpdateItemsStored(count int64) {
	ItemsStoredTotal.Set(float64(count))
}

// UpdateDBConnectionStats updates database connection pool statistics.
func UpdateDBConnectionStats(active, idle int) {
	DBConnectionsActive.Set(float64(active))
	DBConnectionsIdle.Set(float64(idle))
}
