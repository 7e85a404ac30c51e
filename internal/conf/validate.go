// conf/validate.go

package conf

import (
	"fmt"
	"slices"
	"strings"
)

// Replay output formats
const (
	OutputTable = "table"
	OutputJSONL = "jsonl"
)

var validLogLevels = []string{"trace", "debug", "info", "warn", "error"}

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := validateLoggingSettings(settings); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateEngineSettings(&settings.Engine); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateReplaySettings(&settings.Replay); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateTelemetrySettings(&settings.Telemetry); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validLevel(level string) bool {
	return level == "" || slices.Contains(validLogLevels, strings.ToLower(level))
}

func validateLoggingSettings(settings *Settings) error {
	cfg := &settings.Logging
	if !validLevel(cfg.DefaultLevel) {
		return fmt.Errorf("invalid log level %q", cfg.DefaultLevel)
	}
	if cfg.Console != nil && !validLevel(cfg.Console.Level) {
		return fmt.Errorf("invalid console log level %q", cfg.Console.Level)
	}
	if cfg.FileOutput != nil {
		if !validLevel(cfg.FileOutput.Level) {
			return fmt.Errorf("invalid file log level %q", cfg.FileOutput.Level)
		}
		if cfg.FileOutput.Enabled && cfg.FileOutput.Path == "" {
			return fmt.Errorf("file logging enabled but path is empty")
		}
	}
	for module, level := range cfg.ModuleLevels {
		if !validLevel(level) {
			return fmt.Errorf("invalid log level %q for module %s", level, module)
		}
	}
	return nil
}

func validateEngineSettings(settings *EngineSettings) error {
	if settings.SampleRate <= 0 {
		return fmt.Errorf("engine sample rate must be positive, got %v", settings.SampleRate)
	}
	switch settings.BitDepth {
	case 16, 24, 32:
	default:
		return fmt.Errorf("engine bit depth must be 16, 24 or 32, got %d", settings.BitDepth)
	}
	if settings.AudioLevelRatio < 0 || settings.AudioLevelRatio > 1 {
		return fmt.Errorf("audio level ratio must be between 0 and 1, got %v", settings.AudioLevelRatio)
	}
	return nil
}

func validateReplaySettings(settings *ReplaySettings) error {
	if settings.FrameRate <= 0 {
		return fmt.Errorf("replay frame rate must be positive, got %d", settings.FrameRate)
	}
	if settings.ChunkSamples <= 0 {
		return fmt.Errorf("replay chunk size must be positive, got %d", settings.ChunkSamples)
	}
	// one chunk of float32 samples must fit
	if settings.BufferCapacity < settings.ChunkSamples*4 {
		return fmt.Errorf("replay buffer capacity %d is smaller than one chunk (%d bytes)",
			settings.BufferCapacity, settings.ChunkSamples*4)
	}
	if settings.Output != OutputTable && settings.Output != OutputJSONL {
		return fmt.Errorf("replay output must be %q or %q, got %q", OutputTable, OutputJSONL, settings.Output)
	}
	if settings.CacheTTL < 0 {
		return fmt.Errorf("cache ttl must not be negative")
	}
	return nil
}

func validateTelemetrySettings(settings *TelemetrySettings) error {
	if !settings.Enabled {
		return nil
	}
	if settings.DSN == "" {
		return fmt.Errorf("telemetry enabled but DSN is empty")
	}
	if settings.SampleRate < 0 || settings.SampleRate > 1 {
		return fmt.Errorf("telemetry sample rate must be between 0 and 1, got %v", settings.SampleRate)
	}
	return nil
}
