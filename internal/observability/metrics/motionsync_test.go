package metrics

import (
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAnalyze(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	m, err := NewMotionSyncMetrics(registry)
	require.NoError(t, err)

	m.RecordAnalyze("CRI", 800, 0.0004, nil)
	m.RecordAnalyze("CRI", 800, 0.0003, nil)
	m.RecordAnalyze("CRI", 0, 0, fmt.Errorf("boom"))

	assert.InDelta(t, 2.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues(OpAnalyze, StatusSuccess)), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues(OpAnalyze, StatusError)), 0)
	assert.InDelta(t, 1600.0, testutil.ToFloat64(m.ProcessedSamples.WithLabelValues("CRI")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.DurationSeconds))
}

func TestProcessorGauge(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	m, err := NewMotionSyncMetrics(registry)
	require.NoError(t, err)

	m.ProcessorOpened("CRI")
	m.ProcessorOpened("CRI")
	m.ProcessorClosed("CRI")
	m.SetActiveEngines(1)

	assert.InDelta(t, 1.0, testutil.ToFloat64(m.OpenProcessors.WithLabelValues("CRI")), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.ActiveEngines), 0)
}

func TestRecorderInterface(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	m, err := NewMotionSyncMetrics(registry)
	require.NoError(t, err)

	var r Recorder = m
	r.RecordOperation(OpCreateProcessor, StatusError)
	r.RecordError(OpCreateProcessor, "validation")
	r.RecordDuration(OpUpdate, 0.002)

	assert.InDelta(t, 1.0, testutil.ToFloat64(m.ErrorsTotal.WithLabelValues(OpCreateProcessor, "validation")), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues(OpCreateProcessor, StatusError)), 0)
}

func TestNilMetricsAreSafe(t *testing.T) {
	t.Parallel()

	var m *MotionSyncMetrics
	assert.NotPanics(t, func() {
		m.RecordAnalyze("CRI", 1, 0.1, nil)
		m.ProcessorOpened("CRI")
		m.ProcessorClosed("CRI")
		m.SetActiveEngines(3)
		m.RecordError(OpAnalyze, "x")
	})

	var f *AudioFeedMetrics
	assert.NotPanics(t, func() {
		f.RecordDecoded(10)
		f.RecordDrained(10, 0)
		f.RecordStall()
	})
}

func TestDuplicateRegistrationFails(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	_, err := NewMotionSyncMetrics(registry)
	require.NoError(t, err)

	_, err = NewMotionSyncMetrics(registry)
	require.Error(t, err)
}

func TestAudioFeedMetrics(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	m, err := NewAudioFeedMetrics(registry)
	require.NoError(t, err)

	m.RecordDecoded(4096)
	m.RecordDrained(1024, 12288)
	m.RecordStall()

	assert.InDelta(t, 4096.0, testutil.ToFloat64(m.SamplesDecoded), 0)
	assert.InDelta(t, 1024.0, testutil.ToFloat64(m.SamplesDrained), 0)
	assert.InDelta(t, 12288.0, testutil.ToFloat64(m.BufferedBytes), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.WriteStalls), 0)
}
