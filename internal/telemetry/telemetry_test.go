package telemetry

import (
	"bytes"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/motionsync-go/internal/conf"
	"github.com/tphakala/motionsync-go/internal/errors"
	"github.com/tphakala/motionsync-go/internal/logger"
)

// Tests in this file share the global Sentry hub and error reporter and do not run in parallel.

func quietLogger() logger.Logger {
	return logger.NewSlogLogger(&bytes.Buffer{}, logger.LogLevelInfo, time.UTC)
}

func TestInitDisabled(t *testing.T) {
	enabled, err := Init(conf.TelemetrySettings{Enabled: false}, WithLogger(quietLogger()))
	require.NoError(t, err)
	assert.False(t, enabled)
	assert.Nil(t, errors.GetTelemetryReporter())
}

func TestInitReportsEnhancedErrors(t *testing.T) {
	transport := NewMockTransport()
	t.Cleanup(func() { Shutdown(time.Second) })

	enabled, err := Init(conf.TelemetrySettings{
		Enabled:     true,
		DSN:         "https://public@example.com/1",
		Environment: "test",
		SampleRate:  1,
	}, WithTransport(transport), WithRelease("1.2.3"), WithLogger(quietLogger()))
	require.NoError(t, err)
	require.True(t, enabled)
	require.NotNil(t, errors.GetTelemetryReporter())

	_ = errors.Newf("backend failed for /home/alice/voice.wav").
		Component("motionsync.engine").
		Category(errors.CategoryEngine).
		Context("operation", "initialize_engine").
		Build()

	events := transport.Events()
	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, "motionsync-go@1.2.3", ev.Release)
	assert.Equal(t, "test", ev.Environment)
	assert.Equal(t, "motionsync.engine", ev.Tags["component"])
	assert.Equal(t, "analysis-engine", ev.Tags["category"])
	assert.NotContains(t, ev.Message, "alice")
	assert.Empty(t, ev.ServerName)
}

func TestInitRejectsBadDSN(t *testing.T) {
	t.Cleanup(func() { Shutdown(time.Second) })

	enabled, err := Init(conf.TelemetrySettings{Enabled: true, DSN: "not a dsn", SampleRate: 1},
		WithLogger(quietLogger()))
	require.Error(t, err)
	assert.False(t, enabled)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestApplyPrivacyFilters(t *testing.T) {
	t.Parallel()

	ev := &sentry.Event{
		ServerName: "studio-pc",
		User:       sentry.User{ID: "42", Email: "someone@example.com"},
		Contexts: map[string]sentry.Context{
			"os":      {"name": "linux"},
			"device":  {"arch": "amd64"},
			"runtime": {"name": "go"},
			"engine":  {"value": "cri"},
		},
		Extra: map[string]any{"component": "x", "path": "/home/alice"},
		Tags:  map[string]string{"hostname": "studio-pc", "category": "processing"},
	}

	out := applyPrivacyFilters(ev)
	assert.Empty(t, out.ServerName)
	assert.True(t, out.User.IsEmpty())
	assert.Equal(t, []string{"engine"}, keys(out.Contexts))
	assert.Equal(t, map[string]any{"component": "x"}, out.Extra)
	assert.Equal(t, map[string]string{"category": "processing"}, out.Tags)
}

func keys(m map[string]sentry.Context) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
