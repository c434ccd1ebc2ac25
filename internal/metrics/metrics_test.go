package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsASingletonAndRegistersCollectors(t *testing.T) {
	m1 := New()
	m2 := New()
	assert.Same(t, m1, m2)
}

func TestObserveQueueStatsSetsGauges(t *testing.T) {
	m := New()
	m.ObserveQueueStats(5, 2, 4)

	assert.Equal(t, float64(5), readGauge(t, m.QueuePending))
	assert.Equal(t, float64(2), readGauge(t, m.QueueProcessing))
	assert.Equal(t, 0.5, readGauge(t, m.WorkerUtilization))
}

func TestObserveCompletionIncrementsCounters(t *testing.T) {
	m := New()
	before := counterVecTotal(t, m.JobsCompleted, "excellent")

	m.ObserveCompletion("excellent", 2, 1)

	assert.Equal(t, before+1, counterVecTotal(t, m.JobsCompleted, "excellent"))
}

func readGauge(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var metric dto.Metric
	require.NoError(t, g.Write(&metric))
	return metric.GetGauge().GetValue()
}

func counterVecTotal(t *testing.T, cv *prometheus.CounterVec, label string) float64 {
	t.Helper()
	var metric dto.Metric
	require.NoError(t, cv.WithLabelValues(label).Write(&metric))
	return metric.GetCounter().GetValue()
}
