package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// AudioFeedMetrics tracks the decoded sample queue between a file decoder and the frame loop.
type AudioFeedMetrics struct {
	SamplesDecoded prometheus.Counter
	SamplesDrained prometheus.Counter
	BufferedBytes  prometheus.Gauge
	WriteStalls    prometheus.Counter
}

// NewAudioFeedMetrics creates the collector and registers it with registry.
func NewAudioFeedMetrics(registry prometheus.Registerer) (*AudioFeedMetrics, error) {
	m := &AudioFeedMetrics{
		SamplesDecoded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "audiofeed_samples_decoded_total",
			Help: "Total number of samples decoded from the audio source.",
		}),
		SamplesDrained: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "audiofeed_samples_drained_total",
			Help: "Total number of samples handed to the frame loop.",
		}),
		BufferedBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "audiofeed_buffered_bytes",
			Help: "Bytes currently waiting in the sample ring buffer.",
		}),
		WriteStalls: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "audiofeed_write_stalls_total",
			Help: "Number of times the decoder waited for ring buffer space.",
		}),
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register audio feed metrics: %w", err)
	}
	return m, nil
}

// RecordDecoded adds n decoded samples.
func (m *AudioFeedMetrics) RecordDecoded(n int) {
	if m == nil {
		return
	}
	m.SamplesDecoded.Add(float64(n))
}

// RecordDrained adds n drained samples and updates the buffered byte gauge.
func (m *AudioFeedMetrics) RecordDrained(n, buffered int) {
	if m == nil {
		return
	}
	m.SamplesDrained.Add(float64(n))
	m.BufferedBytes.Set(float64(buffered))
}

// RecordStall counts one decoder wait on a full buffer.
func (m *AudioFeedMetrics) RecordStall() {
	if m == nil {
		return
	}
	m.WriteStalls.Inc()
}

// Describe implements the prometheus.Collector interface.
func (m *AudioFeedMetrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.SamplesDecoded.Desc()
	ch <- m.SamplesDrained.Desc()
	ch <- m.BufferedBytes.Desc()
	ch <- m.WriteStalls.Desc()
}

// Collect implements the prometheus.Collector interface.
func (m *AudioFeedMetrics) Collect(ch chan<- prometheus.Metric) {
	ch <- m.SamplesDecoded
	ch <- m.SamplesDrained
	ch <- m.BufferedBytes
	ch <- m.WriteStalls
}
