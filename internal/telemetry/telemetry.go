// Package telemetry provides opt-in, privacy-filtered error reporting to Sentry.
//
// Init installs errors.SentryReporter so every EnhancedError built afterwards is
// forwarded. Nothing is sent unless telemetry is enabled in the settings.
package telemetry

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/tphakala/motionsync-go/internal/conf"
	"github.com/tphakala/motionsync-go/internal/cpuspec"
	"github.com/tphakala/motionsync-go/internal/errors"
	"github.com/tphakala/motionsync-go/internal/logger"
)

// DefaultFlushTimeout bounds Shutdown.
const DefaultFlushTimeout = 2 * time.Second

type options struct {
	transport sentry.Transport
	release   string
	log       logger.Logger
}

// Option configures Init.
type Option func(*options)

// WithTransport replaces the HTTP transport, used by tests.
func WithTransport(t sentry.Transport) Option {
	return func(o *options) { o.transport = t }
}

// WithRelease sets the release reported with every event.
func WithRelease(version string) Option {
	return func(o *options) { o.release = "motionsync-go@" + version }
}

// WithLogger sets the logger used for initialization messages.
func WithLogger(l logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// GetLogger returns the package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("telemetry")
}

// Init configures Sentry from settings and installs the error reporter.
// It returns false without error when telemetry is disabled.
func Init(settings conf.TelemetrySettings, opts ...Option) (bool, error) {
	o := options{release: "motionsync-go@dev", log: GetLogger()}
	for _, opt := range opts {
		opt(&o)
	}

	if !settings.Enabled {
		errors.SetTelemetryReporter(nil)
		o.log.Info("telemetry is disabled (opt-in required)")
		return false, nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              settings.DSN,
		SampleRate:       settings.SampleRate,
		Environment:      settings.Environment,
		Release:          o.release,
		AttachStacktrace: false,
		ServerName:       "",
		Transport:        o.transport,
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			return applyPrivacyFilters(event)
		},
	})
	if err != nil {
		return false, errors.New(fmt.Errorf("sentry initialization failed: %w", err)).
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Build()
	}

	cpu := cpuspec.GetCPUSpec()
	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("os", runtime.GOOS)
		scope.SetTag("arch", runtime.GOARCH)
		scope.SetTag("go_version", runtime.Version())
		scope.SetTag("cpu_simd", strings.Join(cpu.Vector, ","))
		scope.SetContext("cpu", sentry.Context{
			"brand":          cpu.BrandName,
			"logical_cores":  cpu.LogicalCores,
			"physical_cores": cpu.PhysicalCores,
		})
	})

	errors.SetTelemetryReporter(errors.NewSentryReporter(true))
	o.log.Info("telemetry enabled",
		logger.String("environment", settings.Environment),
		logger.Float64("sample_rate", settings.SampleRate))
	return true, nil
}

// Shutdown uninstalls the reporter and flushes pending events.
func Shutdown(timeout time.Duration) bool {
	errors.SetTelemetryReporter(nil)
	if timeout <= 0 {
		timeout = DefaultFlushTimeout
	}
	return sentry.Flush(timeout)
}

// applyPrivacyFilters strips host and user identification from an event.
func applyPrivacyFilters(event *sentry.Event) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""

	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
		delete(event.Contexts, "runtime")
	}

	for k := range event.Extra {
		if k != "error_type" && k != "component" {
			delete(event.Extra, k)
		}
	}

	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}
	return event
}
