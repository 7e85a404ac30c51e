package errors

import (
	"fmt"
	"testing"
)

// BenchmarkErrorCreationNoTelemetry tests error creation performance when telemetry is disabled
func BenchmarkErrorCreationNoTelemetry(b *testing.B) {
	SetTelemetryReporter(nil)
	ClearErrorHooks()

	b.ReportAllocs()

	for b.Loop() {
		err := fmt.Errorf("test error")
		_ = New(err).
			Component("test").
			Category(CategoryGeneric).
			Build()
	}
}

// BenchmarkErrorCreationWithContext tests error creation with context when telemetry is disabled
func BenchmarkErrorCreationWithContext(b *testing.B) {
	SetTelemetryReporter(nil)
	ClearErrorHooks()

	b.ReportAllocs()

	for b.Loop() {
		err := fmt.Errorf("test error")
		_ = New(err).
			Component("test").
			Category(CategoryValidation).
			Context("operation", "analyze").
			Context("smoothing", 101).
			Build()
	}
}

// BenchmarkErrorCreationWithHook measures the slow path with component auto-detection
func BenchmarkErrorCreationWithHook(b *testing.B) {
	ClearErrorHooks()
	AddErrorHook(func(*EnhancedError) {})
	b.Cleanup(ClearErrorHooks)

	b.ReportAllocs()

	for b.Loop() {
		_ = New(fmt.Errorf("test error")).Build()
	}
}

// BenchmarkPrivacyScrubbing tests the performance of privacy scrubbing
func BenchmarkPrivacyScrubbing(b *testing.B) {
	testMessage := "failed to open /home/user/models/motion.json token=abc123"

	b.ReportAllocs()

	for b.Loop() {
		_ = basicPathScrub(testMessage)
	}
}
