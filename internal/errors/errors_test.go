package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFastPathNoTelemetry(t *testing.T) {
	SetTelemetryReporter(nil)
	ClearErrorHooks()

	ee := New(fmt.Errorf("test error")).Build()

	assert.Equal(t, "test error", ee.Error())
	assert.Equal(t, ComponentUnknown, ee.GetComponent())
	assert.Equal(t, CategoryGeneric, ee.Category)
}

func TestBuilderContext(t *testing.T) {
	t.Parallel()

	ee := Newf("sample rate %d out of range", 8000).
		Component("motionsync.engine").
		Category(CategoryValidation).
		Context("sample_rate", 8000).
		Priority("bogus").
		Build()

	assert.Equal(t, "motionsync.engine", ee.GetComponent())
	assert.Equal(t, CategoryValidation, ee.Category)
	assert.Equal(t, PriorityMedium, ee.GetPriority())
	assert.Equal(t, 8000, ee.GetContext()["sample_rate"])

	// returned context is a copy
	ee.GetContext()["sample_rate"] = 1
	assert.Equal(t, 8000, ee.GetContext()["sample_rate"])
}

func TestSentinelMatching(t *testing.T) {
	t.Parallel()

	sentinel := New(NewStd("engine already exists")).
		Category(CategoryConflict).
		Build()
	other := New(NewStd("engine not registered")).
		Category(CategoryNotFound).
		Build()

	derived := New(sentinel).Context("engine_type", "CRI").Build()

	assert.True(t, Is(derived, sentinel))
	assert.False(t, Is(derived, other))
	assert.Equal(t, CategoryConflict, derived.Category, "category inherited from wrapped sentinel")
	assert.True(t, IsCategory(fmt.Errorf("wrapped: %w", derived), CategoryConflict))
	assert.False(t, IsNotFound(derived))
	assert.True(t, IsNotFound(other))
}

func TestValidationErrorHelper(t *testing.T) {
	t.Parallel()

	err := ValidationError("blend ratio must be between 0 and 1")
	require.NotNil(t, err)
	assert.Equal(t, CategoryValidation, err.Category)
	assert.Equal(t, "blend ratio must be between 0 and 1", err.GetMessage())
}

func TestFileContextAnonymizesPath(t *testing.T) {
	t.Parallel()

	ee := FileError(NewStd("open failed"), "/home/alice/voice.wav", 2048)
	ctx := ee.GetContext()

	assert.Equal(t, "absolute-path", ctx["file_type"])
	assert.Equal(t, "wav", ctx["file_extension"])
	assert.Equal(t, "small", ctx["file_size_category"])
}

func TestErrorHooksActivateReporting(t *testing.T) {
	SetTelemetryReporter(nil)
	ClearErrorHooks()
	t.Cleanup(ClearErrorHooks)

	var seen []ErrorCategory
	AddErrorHook(func(ee *EnhancedError) {
		seen = append(seen, ee.Category)
	})

	_ = New(NewStd("invalid smoothing")).Build()
	_ = New(NewStd("whatever")).Category(CategoryEngine).Build()

	require.Len(t, seen, 2)
	assert.Equal(t, CategoryValidation, seen[0], "category detected from message")
	assert.Equal(t, CategoryEngine, seen[1])
}

type recordingReporter struct {
	enabled bool
	got     []*EnhancedError
}

func (r *recordingReporter) IsEnabled() bool { return r.enabled }

func (r *recordingReporter) ReportError(ee *EnhancedError) { r.got = append(r.got, ee) }

func TestTelemetryReporter(t *testing.T) {
	ClearErrorHooks()
	t.Cleanup(func() { SetTelemetryReporter(nil) })

	disabled := &recordingReporter{}
	SetTelemetryReporter(disabled)
	_ = New(NewStd("ignored")).Build()
	assert.Empty(t, disabled.got)

	enabled := &recordingReporter{enabled: true}
	SetTelemetryReporter(enabled)
	_ = New(NewStd("reported")).Build()
	require.Len(t, enabled.got, 1)
	assert.Equal(t, "reported", enabled.got[0].Error())
}

func TestPrivacyScrubbing(t *testing.T) {
	scrubbed := basicPathScrub("open /home/alice/motion.json failed, dsn=https://key@sentry.io/1")
	assert.NotContains(t, scrubbed, "alice")
	assert.NotContains(t, scrubbed, "key@sentry")
	assert.Contains(t, scrubbed, "/home/[USER]/motion.json")

	SetPrivacyScrubber(func(string) string { return "custom" })
	t.Cleanup(func() { SetPrivacyScrubber(nil) })
	assert.Equal(t, "custom", scrubMessageForPrivacy("anything"))
}

func TestGenerateErrorTitle(t *testing.T) {
	t.Parallel()

	ee := New(NewStd("x")).
		Component("engine").
		Category(CategoryEngine).
		Context("operation", "create_processor").
		Build()

	assert.Equal(t, "Engine Analysis Engine Error Create Processor", generateErrorTitle(ee))
}
