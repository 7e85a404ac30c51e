// Package metrics provides custom Prometheus metrics for motionsync-go.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// MotionSyncMetrics contains the Prometheus metrics for engines, processors and the
// controller update loop. A nil *MotionSyncMetrics is valid and records nothing.
type MotionSyncMetrics struct {
	OperationsTotal  *prometheus.CounterVec
	ErrorsTotal      *prometheus.CounterVec
	DurationSeconds  *prometheus.HistogramVec
	ProcessedSamples *prometheus.CounterVec

	OpenProcessors *prometheus.GaugeVec
	ActiveEngines  prometheus.Gauge
}

// NewMotionSyncMetrics creates the collector and registers it with registry.
func NewMotionSyncMetrics(registry prometheus.Registerer) (*MotionSyncMetrics, error) {
	m := &MotionSyncMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register motion sync metrics: %w", err)
	}
	return m, nil
}

func (m *MotionSyncMetrics) initMetrics() {
	m.OperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "motionsync_operations_total",
			Help: "Total number of motion sync operations partitioned by operation and status.",
		},
		[]string{"operation", "status"},
	)

	m.ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "motionsync_errors_total",
			Help: "Total number of motion sync errors partitioned by operation and error category.",
		},
		[]string{"operation", "category"},
	)

	m.DurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "motionsync_operation_duration_seconds",
			Help:    "Time taken by motion sync operations.",
			Buckets: prometheus.ExponentialBuckets(BucketStart10us, BucketFactor2, BucketCount14),
		},
		[]string{"operation"},
	)

	m.ProcessedSamples = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "motionsync_processed_samples_total",
			Help: "Total number of audio samples consumed by analysis, partitioned by engine type.",
		},
		[]string{"engine"},
	)

	m.OpenProcessors = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "motionsync_open_processors",
			Help: "Number of open processors per engine type.",
		},
		[]string{"engine"},
	)

	m.ActiveEngines = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "motionsync_active_engines",
			Help: "Number of initialized analysis engines.",
		},
	)
}

// RecordOperation implements Recorder.
func (m *MotionSyncMetrics) RecordOperation(operation, status string) {
	if m == nil {
		return
	}
	m.OperationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordDuration implements Recorder.
func (m *MotionSyncMetrics) RecordDuration(operation string, seconds float64) {
	if m == nil {
		return
	}
	m.DurationSeconds.WithLabelValues(operation).Observe(seconds)
}

// RecordError implements Recorder.
func (m *MotionSyncMetrics) RecordError(operation, errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(operation, errorType).Inc()
}

// RecordAnalyze records one analyze call on an engine type.
func (m *MotionSyncMetrics) RecordAnalyze(engine string, processed int, seconds float64, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.OperationsTotal.WithLabelValues(OpAnalyze, StatusError).Inc()
		return
	}
	m.OperationsTotal.WithLabelValues(OpAnalyze, StatusSuccess).Inc()
	m.DurationSeconds.WithLabelValues(OpAnalyze).Observe(seconds)
	m.ProcessedSamples.WithLabelValues(engine).Add(float64(processed))
}

// ProcessorOpened increments the open processor gauge for engine.
func (m *MotionSyncMetrics) ProcessorOpened(engine string) {
	if m == nil {
		return
	}
	m.OpenProcessors.WithLabelValues(engine).Inc()
}

// ProcessorClosed decrements the open processor gauge for engine.
func (m *MotionSyncMetrics) ProcessorClosed(engine string) {
	if m == nil {
		return
	}
	m.OpenProcessors.WithLabelValues(engine).Dec()
}

// SetActiveEngines sets the number of initialized engines.
func (m *MotionSyncMetrics) SetActiveEngines(count int) {
	if m == nil {
		return
	}
	m.ActiveEngines.Set(float64(count))
}

// Describe implements the prometheus.Collector interface.
func (m *MotionSyncMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.OperationsTotal.Describe(ch)
	m.ErrorsTotal.Describe(ch)
	m.DurationSeconds.Describe(ch)
	m.ProcessedSamples.Describe(ch)
	m.OpenProcessors.Describe(ch)
	ch <- m.ActiveEngines.Desc()
}

// Collect implements the prometheus.Collector interface.
func (m *MotionSyncMetrics) Collect(ch chan<- prometheus.Metric) {
	m.OperationsTotal.Collect(ch)
	m.ErrorsTotal.Collect(ch)
	m.DurationSeconds.Collect(ch)
	m.ProcessedSamples.Collect(ch)
	m.OpenProcessors.Collect(ch)
	ch <- m.ActiveEngines
}

var _ Recorder = (*MotionSyncMetrics)(nil)
