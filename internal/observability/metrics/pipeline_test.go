package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordCycleUpdatesLastSuccess(t *testing.T) {
	before := testutil.ToFloat64(LastCycleSuccessTimestamp)
	RecordCycle("success", 3*time.Second)
	after := testutil.ToFloat64(LastCycleSuccessTimestamp)
	assert.Greater(t, after, before)
}

func TestRecordCycleFailedLeavesLastSuccess(t *testing.T) {
	RecordCycle("success", time.Second)
	stamp := testutil.ToFloat64(LastCycleSuccessTimestamp)
	RecordCycle("failed", time.Second)
	assert.Equal(t, stamp, testutil.ToFloat64(LastCycleSuccessTimestamp))
}

func TestRecordItemMatched(t *testing.T) {
	relevantBefore := testutil.ToFloat64(ItemsMatchedTotal.WithLabelValues("relevant"))
	irrelevantBefore := testutil.ToFloat64(ItemsMatchedTotal.WithLabelValues("irrelevant"))

	RecordItemMatched(true)
	RecordItemMatched(false)
	RecordItemMatched(false)

	assert.Equal(t, relevantBefore+1, testutil.ToFloat64(ItemsMatchedTotal.WithLabelValues("relevant")))
	assert.Equal(t, irrelevantBefore+2, testutil.ToFloat64(ItemsMatchedTotal.WithLabelValues("irrelevant")))
}

func TestRecordItemSummarized(t *testing.T) {
	failBefore := testutil.ToFloat64(ItemsSummarizedTotal.WithLabelValues("failure"))
	RecordItemSummarized(false, 100*time.Millisecond)
	assert.Equal(t, failBefore+1, testutil.ToFloat64(ItemsSummarizedTotal.WithLabelValues("failure")))
}

func TestUpdateFeedsDisabled(t *testing.T) {
	UpdateFeedsDisabled(3)
	assert.Equal(t, float64(3), testutil.ToFloat64(FeedsDisabled))
	UpdateFeedsDisabled(0)
	assert.Equal(t, float64(0), testutil.ToFloat64(FeedsDisabled))
}
