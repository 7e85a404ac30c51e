package replay

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tphakala/motionsync-go/internal/conf"
	"github.com/tphakala/motionsync-go/internal/errors"
	"github.com/tphakala/motionsync-go/internal/logger"
	"github.com/tphakala/motionsync-go/internal/motionsync/data"
	"github.com/tphakala/motionsync-go/internal/observability"
	"github.com/tphakala/motionsync-go/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const settingsDoc = "../motionsync/data/testdata/basic.motionsync3.json"

func quietLogger() logger.Logger {
	return logger.NewSlogLogger(&bytes.Buffer{}, logger.LogLevelError, nil)
}

func testSettings(t *testing.T) *conf.Settings {
	t.Helper()
	settings, err := conf.LoadDefaults()
	require.NoError(t, err)
	return settings
}

// vowelA writes seconds of a two-tone 800/1200 Hz signal as 16-bit mono.
func vowelA(t *testing.T, fs afero.Fs, path string, rate int, seconds float64) {
	t.Helper()
	testutil.WriteWAV(t, fs, path, rate, 16, 1, testutil.Tones(rate, seconds, 0.3, 800, 1200))
}

func memFs(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	buf, err := os.ReadFile(settingsDoc)
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fs, "/model/basic.motionsync3.json", buf, 0o644))
	return fs
}

func TestBuildModel(t *testing.T) {
	t.Parallel()

	buf, err := os.ReadFile(settingsDoc)
	require.NoError(t, err)
	d, err := data.Parse(buf, data.WithLogger(quietLogger()))
	require.NoError(t, err)

	table, err := BuildModel(d)
	require.NoError(t, err)
	require.Equal(t, 4, table.ParameterCount())
	assert.Equal(t, "ParamA", table.ParameterID(0))
	assert.Equal(t, "ParamI", table.ParameterID(1))
	assert.Equal(t, "ParamMouthOpenY", table.ParameterID(2))
	assert.Equal(t, "ParamEyeOpen", table.ParameterID(3))
	assert.Equal(t, []float64{0, 0, 0, 0}, table.Snapshot())

	table.SetParameterValue(0, 3)
	assert.InDelta(t, 1.0, table.ParameterValue(0), 0, "range comes from the settings")
}

func TestRunTable(t *testing.T) {
	t.Parallel()

	fs := memFs(t)
	vowelA(t, fs, "/audio/a.wav", 16000, 1)

	var out bytes.Buffer
	summary, err := Run(t.Context(), testSettings(t), Options{
		SettingsPath: "/model/basic.motionsync3.json",
		AudioPath:    "/audio/a.wav",
		Output:       &out,
		Fs:           fs,
		Logger:       quietLogger(),
	})
	require.NoError(t, err)

	assert.Equal(t, 60, summary.Frames)
	assert.Equal(t, 16000, summary.Samples)
	assert.Equal(t, 16000, summary.SampleRate)
	assert.Equal(t, 1, summary.Processors, "the FFT setting has no backend")
	assert.Positive(t, summary.Processed)
	assert.LessOrEqual(t, summary.Processed, summary.Samples)
	assert.GreaterOrEqual(t, summary.Processed, summary.Samples-2000)

	assert.Greater(t, summary.Final["ParamA"], 0.3)
	assert.Greater(t, summary.Final["ParamA"], summary.Final["ParamI"])
	assert.Zero(t, summary.Final["ParamEyeOpen"])

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 61)
	header := strings.Fields(lines[0])
	assert.Equal(t, []string{"frame", "time", "processed", "ParamA", "ParamI", "ParamMouthOpenY", "ParamEyeOpen"}, header)
	assert.Equal(t, "59", strings.Fields(lines[60])[0])
}

func TestRunJSONLWithModelSetting(t *testing.T) {
	t.Parallel()

	fs := memFs(t)
	model := `{"Version":3,"FileReferences":{"MotionSync":"basic.motionsync3.json",
		"Motions":{"Talk":[{"File":"talk.motion3.json","Sound":"sounds/talk.wav"}]}}}`
	require.NoError(t, afero.WriteFile(fs, "/model/model.model3.json", []byte(model), 0o644))
	vowelA(t, fs, "/model/sounds/talk.wav", 16000, 0.5)

	settings := testSettings(t)
	settings.Replay.Output = conf.OutputJSONL
	settings.Replay.FrameRate = 30

	var out bytes.Buffer
	summary, err := Run(t.Context(), settings, Options{
		SettingsPath: "/model/model.model3.json",
		Output:       &out,
		Fs:           fs,
		Logger:       quietLogger(),
	})
	require.NoError(t, err)
	assert.Equal(t, 16, summary.Frames)

	scanner := bufio.NewScanner(&out)
	count := 0
	for scanner.Scan() {
		var f Frame
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &f))
		assert.Equal(t, count, f.Index)
		assert.InDelta(t, float64(count)/30, f.Time, 1e-9)
		assert.Contains(t, f.Values, "ParamMouthOpenY")
		count++
	}
	require.NoError(t, scanner.Err())
	assert.Equal(t, summary.Frames, count)
}

func TestRunWritesMetricsTextfile(t *testing.T) {
	t.Parallel()

	fs := memFs(t)
	vowelA(t, fs, "/audio/a.wav", 16000, 0.25)

	m, err := observability.NewMetrics()
	require.NoError(t, err)

	settings := testSettings(t)
	settings.Metrics.Enabled = true
	settings.Metrics.Textfile = filepath.Join(t.TempDir(), "replay.prom")

	summary, err := Run(t.Context(), settings, Options{
		SettingsPath: "/model/basic.motionsync3.json",
		AudioPath:    "/audio/a.wav",
		Fs:           fs,
		Metrics:      m,
		Logger:       quietLogger(),
	})
	require.NoError(t, err)

	assert.InDelta(t, float64(summary.Samples), promtestutil.ToFloat64(m.AudioFeed.SamplesDecoded), 0)
	assert.InDelta(t, float64(summary.Samples), promtestutil.ToFloat64(m.AudioFeed.SamplesDrained), 0)

	buf, err := os.ReadFile(settings.Metrics.Textfile)
	require.NoError(t, err)
	assert.Contains(t, string(buf), "motionsync_processed_samples_total")
	assert.Contains(t, string(buf), "audiofeed_samples_decoded_total")
}

func TestRunErrors(t *testing.T) {
	t.Parallel()

	fs := memFs(t)
	vowelA(t, fs, "/audio/low.wav", 8000, 0.1)
	require.NoError(t, afero.WriteFile(fs, "/model/empty.model3.json", []byte(`{"FileReferences":{}}`), 0o644))

	tests := []struct {
		name     string
		opts     Options
		category errors.ErrorCategory
	}{
		{
			name:     "missing settings",
			opts:     Options{SettingsPath: "/model/missing.motionsync3.json", AudioPath: "/audio/low.wav"},
			category: errors.CategoryFileIO,
		},
		{
			name:     "no audio path",
			opts:     Options{SettingsPath: "/model/basic.motionsync3.json"},
			category: errors.CategoryValidation,
		},
		{
			name:     "model without motion sync file",
			opts:     Options{SettingsPath: "/model/empty.model3.json"},
			category: errors.CategoryConfiguration,
		},
		{
			name:     "sample rate below backend minimum",
			opts:     Options{SettingsPath: "/model/basic.motionsync3.json", AudioPath: "/audio/low.wav"},
			category: errors.CategoryProcessing,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tt.opts.Fs = fs
			tt.opts.Logger = quietLogger()
			summary, err := Run(t.Context(), testSettings(t), tt.opts)
			require.Error(t, err)
			assert.Nil(t, summary)
			assert.True(t, errors.IsCategory(err, tt.category), "got %v", err)
		})
	}
}

func TestNewFrameWriter(t *testing.T) {
	t.Parallel()

	_, err := NewFrameWriter("csv", &bytes.Buffer{})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))

	var out bytes.Buffer
	w, err := NewFrameWriter("TABLE", &out)
	require.NoError(t, err)
	require.NoError(t, w.WriteHeader([]string{"P"}))
	require.NoError(t, w.WriteFrame(Frame{Index: 3, Time: 0.05, Processed: 256, Values: map[string]float64{"P": 0.5}}))
	require.NoError(t, w.Flush())
	assert.Equal(t, []string{"3", "0.050", "256", "0.500"}, strings.Fields(strings.Split(out.String(), "\n")[1]))
}
