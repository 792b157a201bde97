package metrics

import (
	"testing"

	dto "github.com/prometheus/client_model/go"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/sonanterra/queueengine/internal/provider"
)

func histogramSampleCount(t *testing.T, h interface{ Write(*dto.Metric) error }) uint64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, h.Write(&m))
	return m.GetHistogram().GetSampleCount()
}

func TestRecordSubmitIncrementsOutcomeAndRule(t *testing.T) {
	RecordSubmit("rejected", "duplicate_in_queue")
	require.Equal(t, float64(1), testutil.ToFloat64(SubmitTotal.WithLabelValues("rejected")))
	require.Equal(t, float64(1), testutil.ToFloat64(RejectTotal.WithLabelValues("duplicate_in_queue")))
}

func TestRecordSubmitWithoutRuleLeavesRejectTotalUntouched(t *testing.T) {
	before := testutil.ToFloat64(RejectTotal.WithLabelValues("max_queue_length"))
	RecordSubmit("admitted", "")
	require.Equal(t, before, testutil.ToFloat64(RejectTotal.WithLabelValues("max_queue_length")))
}

func TestRecordQueueLengthAddsHistogramObservation(t *testing.T) {
	before := histogramSampleCount(t, QueueLength)
	RecordQueueLength(3)
	require.Equal(t, before+1, histogramSampleCount(t, QueueLength))
}

func TestBreakerObserverSetsGauge(t *testing.T) {
	obs := NewBreakerObserver()
	obs.SetState("youtube", provider.BreakerOpen)
	require.Equal(t, float64(provider.BreakerOpen), testutil.ToFloat64(ProviderBreakerState.WithLabelValues("youtube")))

	obs.SetState("youtube", provider.BreakerClosed)
	require.Equal(t, float64(provider.BreakerClosed), testutil.ToFloat64(ProviderBreakerState.WithLabelValues("youtube")))
}
