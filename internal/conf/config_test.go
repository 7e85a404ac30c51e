package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	settings, err := LoadDefaults()
	require.NoError(t, err)

	assert.InDelta(t, 48000.0, settings.Engine.SampleRate, 0)
	assert.Equal(t, 32, settings.Engine.BitDepth)
	assert.Equal(t, 60, settings.Replay.FrameRate)
	assert.Equal(t, OutputTable, settings.Replay.Output)
	assert.Equal(t, 10*time.Minute, settings.Replay.CacheTTL)
	require.NotNil(t, settings.Logging.Console)
	assert.True(t, settings.Logging.Console.Enabled)
	assert.False(t, settings.Telemetry.Enabled)
}

func TestLoadFromFile(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
engine:
  samplerate: 16000
  audiolevelratio: 0.25
replay:
  framerate: 30
  output: jsonl
  cachettl: 30s
`)

	settings, err := Load(NewViper(), path)
	require.NoError(t, err)

	assert.InDelta(t, 16000.0, settings.Engine.SampleRate, 0)
	assert.InDelta(t, 0.25, settings.Engine.AudioLevelRatio, 1e-9)
	assert.Equal(t, 32, settings.Engine.BitDepth, "unset keys keep their defaults")
	assert.Equal(t, 30, settings.Replay.FrameRate)
	assert.Equal(t, OutputJSONL, settings.Replay.Output)
	assert.Equal(t, 30*time.Second, settings.Replay.CacheTTL)
	assert.Equal(t, path, settings.ConfigFile)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	t.Parallel()

	_, err := Load(NewViper(), filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
engine:
  bitdepth: 12
`)

	_, err := Load(NewViper(), path)
	require.Error(t, err)

	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors, 1)
	assert.Contains(t, ve.Errors[0], "bit depth")
}

// Environment overrides mutate process state, so this test is not parallel.
func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("MOTIONSYNC_REPLAY_FRAMERATE", "24")

	path := writeConfig(t, "debug: true\n")
	settings, err := Load(NewViper(), path)
	require.NoError(t, err)

	assert.True(t, settings.Debug)
	assert.Equal(t, 24, settings.Replay.FrameRate)
}

func TestValidateSettings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(*Settings) {}},
		{
			name:    "zero sample rate",
			mutate:  func(s *Settings) { s.Engine.SampleRate = 0 },
			wantErr: "sample rate",
		},
		{
			name:    "level ratio above one",
			mutate:  func(s *Settings) { s.Engine.AudioLevelRatio = 1.5 },
			wantErr: "audio level ratio",
		},
		{
			name:    "zero frame rate",
			mutate:  func(s *Settings) { s.Replay.FrameRate = 0 },
			wantErr: "frame rate",
		},
		{
			name:    "buffer smaller than chunk",
			mutate:  func(s *Settings) { s.Replay.BufferCapacity = 16 },
			wantErr: "buffer capacity",
		},
		{
			name:    "unknown output",
			mutate:  func(s *Settings) { s.Replay.Output = "xml" },
			wantErr: "replay output",
		},
		{
			name:    "bad log level",
			mutate:  func(s *Settings) { s.Logging.DefaultLevel = "verbose" },
			wantErr: "invalid log level",
		},
		{
			name:    "bad module level",
			mutate:  func(s *Settings) { s.Logging.ModuleLevels = map[string]string{"engine": "loud"} },
			wantErr: "module engine",
		},
		{
			name:    "telemetry without dsn",
			mutate:  func(s *Settings) { s.Telemetry.Enabled = true },
			wantErr: "DSN",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			settings, err := LoadDefaults()
			require.NoError(t, err)
			tt.mutate(settings)

			err = ValidateSettings(settings)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDefaultConfigPaths(t *testing.T) {
	t.Parallel()

	paths := DefaultConfigPaths()
	require.NotEmpty(t, paths)
	assert.Equal(t, ".", paths[0])
}
