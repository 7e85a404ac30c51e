// Package observability provides metrics and monitoring capabilities for motionsync-go.
package observability

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tphakala/motionsync-go/internal/errors"
	"github.com/tphakala/motionsync-go/internal/logger"
	"github.com/tphakala/motionsync-go/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry   *prometheus.Registry
	MotionSync *metrics.MotionSyncMetrics
	AudioFeed  *metrics.AudioFeedMetrics
}

// NewMetrics creates a new instance of Metrics on its own registry.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("failed to register go collector: %w", err)
	}

	motionSyncMetrics, err := metrics.NewMotionSyncMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create motion sync metrics: %w", err)
	}

	audioFeedMetrics, err := metrics.NewAudioFeedMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create audio feed metrics: %w", err)
	}

	return &Metrics{
		registry:   registry,
		MotionSync: motionSyncMetrics,
		AudioFeed:  audioFeedMetrics,
	}, nil
}

// Registry returns the registry all collectors are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ErrorHook returns an errors hook that counts enhanced errors by component and category.
func (m *Metrics) ErrorHook() errors.ErrorHook {
	return func(ee *errors.EnhancedError) {
		m.MotionSync.RecordError(ee.GetComponent(), ee.GetCategory())
	}
}

// RegisterHandlers registers the metrics endpoint with the provided http.ServeMux.
func (m *Metrics) RegisterHandlers(mux *http.ServeMux) {
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.HTTPErrorOnError,
	}))
}

// WriteTextfile writes the current metric values in text exposition format to path.
func (m *Metrics) WriteTextfile(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.New(err).
				Component("observability").
				Category(errors.CategoryFileIO).
				Context("operation", "create-metrics-dir").
				Build()
		}
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return errors.New(err).
			Component("observability").
			Category(errors.CategoryFileIO).
			Context("operation", "write-metrics-textfile").
			Build()
	}
	GetLogger().Info("metrics written", logger.String("path", path))
	return nil
}
