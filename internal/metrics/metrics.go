// Package metrics registers the Prometheus instrumentation for the queue,
// worker pool, and post-processing pipeline, grounded on the promauto
// registration style used throughout this stack's metrics packages.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles every gauge/counter/histogram this service exports.
type Metrics struct {
	QueuePending      prometheus.Gauge
	QueueProcessing   prometheus.Gauge
	WorkerUtilization prometheus.Gauge

	JobsSubmitted *prometheus.CounterVec
	JobsCompleted *prometheus.CounterVec
	JobsFailed    *prometheus.CounterVec

	RecognizerCallDuration *prometheus.HistogramVec
	RecognizerCallErrors   *prometheus.CounterVec

	PipelineStepDuration *prometheus.HistogramVec
	ConfidenceScore      prometheus.Histogram
	ExactMatchCount      prometheus.Counter
	FuzzyMatchCount      prometheus.Counter
}

var (
	instance *Metrics
	once     sync.Once
)

// New returns the process-wide metrics bundle, registering it with the
// default Prometheus registry on first call.
func New() *Metrics {
	once.Do(func() {
		instance = newMetrics()
	})
	return instance
}

func newMetrics() *Metrics {
	return &Metrics{
		QueuePending: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "transcribeapi_queue_pending_jobs",
			Help: "Number of jobs waiting to be claimed.",
		}),
		QueueProcessing: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "transcribeapi_queue_processing_jobs",
			Help: "Number of jobs currently claimed by a worker.",
		}),
		WorkerUtilization: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "transcribeapi_worker_utilization_ratio",
			Help: "Fraction of the worker pool currently busy processing a job.",
		}),
		JobsSubmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "transcribeapi_jobs_submitted_total",
			Help: "Total jobs accepted by the submission service.",
		}, []string{"audio_format"}),
		JobsCompleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "transcribeapi_jobs_completed_total",
			Help: "Total jobs reaching COMPLETED.",
		}, []string{"confidence_bucket"}),
		JobsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "transcribeapi_jobs_failed_total",
			Help: "Total jobs reaching FAILED, by reason.",
		}, []string{"reason"}),
		RecognizerCallDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "transcribeapi_recognizer_call_duration_seconds",
			Help:    "External recognizer call latency.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"outcome"}),
		RecognizerCallErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "transcribeapi_recognizer_call_errors_total",
			Help: "External recognizer call failures by error kind.",
		}, []string{"kind"}),
		PipelineStepDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "transcribeapi_pipeline_step_duration_seconds",
			Help:    "Post-processing step duration.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"step"}),
		ConfidenceScore: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "transcribeapi_confidence_score",
			Help:    "Distribution of emitted confidence scores.",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
		ExactMatchCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: "transcribeapi_lexicon_exact_matches_total",
			Help: "Total exact lexicon substitutions applied across all jobs.",
		}),
		FuzzyMatchCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: "transcribeapi_lexicon_fuzzy_matches_total",
			Help: "Total fuzzy lexicon substitutions applied across all jobs.",
		}),
	}
}

// ObserveQueueStats updates the queue depth gauges from a queue.Stats-like
// snapshot. Decoupled from the queue package's concrete type so metrics
// has no import-cycle dependency on queue.
func (m *Metrics) ObserveQueueStats(pending, processing int64, workerCount int) {
	m.QueuePending.Set(float64(pending))
	m.QueueProcessing.Set(float64(processing))
	if workerCount > 0 {
		m.WorkerUtilization.Set(float64(processing) / float64(workerCount))
	}
}

// ObserveCompletion records a terminal job outcome.
func (m *Metrics) ObserveCompletion(confidenceBucket string, exactMatches, fuzzyMatches int) {
	m.JobsCompleted.WithLabelValues(confidenceBucket).Inc()
	m.ExactMatchCount.Add(float64(exactMatches))
	m.FuzzyMatchCount.Add(float64(fuzzyMatches))
}

// ObserveFailure records a terminal failure outcome by reason.
func (m *Metrics) ObserveFailure(reason string) {
	m.JobsFailed.WithLabelValues(reason).Inc()
}
