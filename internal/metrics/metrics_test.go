package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordOrganizeDuration(t *testing.T) {
	start := time.Now().Add(-100 * time.Millisecond)

	RecordOrganizeDuration(start)

	// Histogram recorded successfully if we get here without panic
}

func TestRunsTotal_Counter(t *testing.T) {
	RunsTotal.WithLabelValues("completed").Inc()
	RunsTotal.WithLabelValues("failed").Inc()

	completed := testutil.ToFloat64(RunsTotal.WithLabelValues("completed"))
	assert.GreaterOrEqual(t, completed, float64(1))

	failed := testutil.ToFloat64(RunsTotal.WithLabelValues("failed"))
	assert.GreaterOrEqual(t, failed, float64(1))
}

func TestActionCounters(t *testing.T) {
	ActionsTotal.WithLabelValues("move").Inc()
	assert.GreaterOrEqual(t, testutil.ToFloat64(ActionsTotal.WithLabelValues("move")), float64(1))

	ParseOutcomes.WithLabelValues("compact").Inc()
	assert.GreaterOrEqual(t, testutil.ToFloat64(ParseOutcomes.WithLabelValues("compact")), float64(1))

	UndoActionsTotal.WithLabelValues("reversed").Inc()
	assert.GreaterOrEqual(t, testutil.ToFloat64(UndoActionsTotal.WithLabelValues("reversed")), float64(1))
}

func TestGauges_Exist(t *testing.T) {
	HistoryEntriesTotal.Set(10)
	assert.Equal(t, float64(10), testutil.ToFloat64(HistoryEntriesTotal))

	TaggedFilesTotal.Set(5)
	assert.Equal(t, float64(5), testutil.ToFloat64(TaggedFilesTotal))
}
