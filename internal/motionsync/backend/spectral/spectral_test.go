package spectral

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/motionsync-go/internal/errors"
	"github.com/tphakala/motionsync-go/internal/logger"
	"github.com/tphakala/motionsync-go/internal/motionsync/data"
	"github.com/tphakala/motionsync-go/internal/motionsync/engine"
)

const testRate = 48000

// slots: ParamA ParamI ParamU ParamE ParamO ParamSilence
var testParameterIDs = []string{"ParamA", "ParamI", "ParamU", "ParamE", "ParamO", "ParamSilence"}

func oneHotMappings(scale float64) []data.MappingInfo {
	infos := make([]data.MappingInfo, 0, len(testParameterIDs))
	for i, id := range ChannelIDs() {
		values := make([]float64, len(testParameterIDs))
		values[i] = 1
		infos = append(infos, data.MappingInfo{
			AudioParameterID:     id,
			ModelParameterIDs:    testParameterIDs,
			ModelParameterValues: values,
			Scale:                scale,
			Enabled:              true,
		})
	}
	return infos
}

func tones(n int, rate float64, amplitude float64, freqs ...float64) []float32 {
	out := make([]float32, n)
	for i := range out {
		var v float64
		for _, f := range freqs {
			v += amplitude * math.Sin(2*math.Pi*f*float64(i)/rate)
		}
		out[i] = float32(v)
	}
	return out
}

func newProcessor(t *testing.T, mappings []data.MappingInfo) *engine.Processor {
	t.Helper()
	log := logger.NewSlogLogger(&bytes.Buffer{}, logger.LogLevelDebug, time.UTC)
	m := engine.NewManager(engine.WithLogger(log))
	require.NoError(t, Register(m, log))

	e, err := m.InitializeEngine(data.AnalysisTypeCRI, engine.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { m.Close(e, true) })

	p, err := e.CreateProcessor(len(testParameterIDs), mappings, testRate)
	require.NoError(t, err)
	return p
}

func analyze(t *testing.T, p *engine.Processor, samples []float32, blend float64, smoothing int, level float64) []float64 {
	t.Helper()
	result := engine.NewAnalysisResult(p.ParameterCount())
	require.NoError(t, p.Analyze(samples, 0, blend, smoothing, level, result))
	return result.Values
}

func argmax(values []float64) int {
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return best
}

func TestFrameSizeFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		rate float64
		want int
	}{
		{16000, 512},
		{44100, 1024},
		{48000, 1024},
		{96000, 2048},
		{128000, 4096},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, frameSizeFor(tt.rate), "rate %v", tt.rate)
	}
}

func TestBandForStaysInsideSpectrum(t *testing.T) {
	t.Parallel()

	b := bandFor(300, testRate/1024.0, 513)
	assert.Equal(t, band{lo: 6, hi: 7}, b)

	narrow := bandFor(300, 1000, 9)
	assert.Equal(t, narrow.lo, narrow.hi)
	assert.GreaterOrEqual(t, narrow.lo, 1)
}

func TestBackendIdentity(t *testing.T) {
	t.Parallel()

	b := New(nil)
	assert.Equal(t, engine.EngineNameCRI, b.Name())
	assert.Equal(t, data.AnalysisTypeCRI, engine.TypeFromName(b.Name()))
	assert.Equal(t, "1.0.0 (16777216)", engine.Version(b.Version()).String())

	lo, hi := b.SampleRateRange()
	assert.InDelta(t, 16000.0, lo, 0)
	assert.InDelta(t, 128000.0, hi, 0)
}

func TestInitializeRejectsBitDepth(t *testing.T) {
	t.Parallel()

	b := New(nil)
	err := b.Initialize(engine.Config{BitDepth: 12})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))

	_, err = b.NewContext(engine.ContextConfig{SampleRate: testRate, BitDepth: 32}, oneHotMappings(1), 6)
	assert.True(t, errors.IsCategory(err, errors.CategoryState), "context needs an initialized backend")

	require.NoError(t, b.Initialize(engine.Config{BitDepth: 16}))
	ctx, err := b.NewContext(engine.ContextConfig{SampleRate: 16000, BitDepth: 16}, oneHotMappings(1), 6)
	require.NoError(t, err)
	assert.Equal(t, 512, ctx.RequireSampleCount())
	ctx.Close()
}

func TestCreateProcessorRejectsLowSampleRate(t *testing.T) {
	t.Parallel()

	m := engine.NewManager()
	require.NoError(t, Register(m, nil))
	e, err := m.InitializeEngine(data.AnalysisTypeCRI, engine.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { m.Close(e, true) })

	p, err := e.CreateProcessor(6, oneHotMappings(1), 8000)
	assert.Nil(t, p)
	assert.ErrorIs(t, err, engine.ErrInvalidArgument)
}

func TestVowelDetection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		freqs []float64
		want  int
	}{
		{name: "A", freqs: []float64{800, 1200}, want: 0},
		{name: "I", freqs: []float64{300, 2300}, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := newProcessor(t, oneHotMappings(1))
			assert.Equal(t, 1024, p.RequireSampleCount())

			result := engine.NewAnalysisResult(p.ParameterCount())
			require.NoError(t, p.Analyze(tones(2048, testRate, 0.3, tt.freqs...), 0, 0, 1, 0, result))
			assert.Equal(t, 512, result.ProcessedSampleCount)

			values := result.Values
			assert.Equal(t, tt.want, argmax(values[:5]))
			assert.InDelta(t, 1.0, values[tt.want], 1e-9, "winner takes all at blend 0")
			for v := range 5 {
				if v != tt.want {
					assert.InDelta(t, 0.0, values[v], 1e-9)
				}
			}
			assert.Greater(t, values[5], 0.0)
			assert.Less(t, values[5], 0.5, "loud input is not silence")
		})
	}
}

func TestSilenceInput(t *testing.T) {
	t.Parallel()

	p := newProcessor(t, oneHotMappings(1))
	values := analyze(t, p, make([]float32, 1024), 0.5, 1, 1)
	for v := range 5 {
		assert.InDelta(t, 0.0, values[v], 0)
	}
	assert.InDelta(t, 1.0, values[5], 0)
}

func TestBlendRatioSpreadsWeights(t *testing.T) {
	t.Parallel()

	p := newProcessor(t, oneHotMappings(1))
	values := analyze(t, p, tones(1024, testRate, 0.3, 800, 1200), 1, 1, 0)

	sum := 0.0
	for v := range 5 {
		sum += values[v]
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.Equal(t, 0, argmax(values[:5]))
	assert.Less(t, values[0], 1.0)
}

func TestAudioLevelEffectRatio(t *testing.T) {
	t.Parallel()

	samples := tones(1024, testRate, 0.3, 800, 1200)

	full := analyze(t, newProcessor(t, oneHotMappings(1)), samples, 0, 1, 0)
	scaled := analyze(t, newProcessor(t, oneHotMappings(1)), samples, 0, 1, 1)

	assert.InDelta(t, 1.0, full[0], 1e-9)
	assert.Less(t, scaled[0], full[0])
	assert.InDelta(t, 1.0, scaled[0]+scaled[5], 1e-9, "level and silence are complementary")
}

func TestSmoothingAveragesFrames(t *testing.T) {
	t.Parallel()

	p := newProcessor(t, oneHotMappings(1))
	samples := tones(1024, testRate, 0.3, 800, 1200)

	first := analyze(t, p, samples, 0, 51, 0)
	second := analyze(t, p, samples, 0, 51, 0)
	assert.InDelta(t, 0.5, first[0], 1e-9)
	assert.InDelta(t, 0.75, second[0], 1e-9)
}

func TestScaleAndUnreachedSlots(t *testing.T) {
	t.Parallel()

	mappings := []data.MappingInfo{{
		AudioParameterID:     "A",
		ModelParameterIDs:    []string{"ParamA", "ParamOpen"},
		ModelParameterValues: []float64{1, 0.5},
		Scale:                2,
		Enabled:              true,
	}, {
		AudioParameterID:     "Unknown",
		ModelParameterIDs:    []string{"ParamA"},
		ModelParameterValues: []float64{1},
		Scale:                1,
		Enabled:              true,
	}}
	p := newProcessor(t, mappings)

	values := analyze(t, p, tones(1024, testRate, 0.3, 800, 1200), 0, 1, 0)
	require.Len(t, values, 6)
	assert.InDelta(t, 2.0, values[0], 1e-9)
	assert.InDelta(t, 1.0, values[1], 1e-9)
	for i := 2; i < 6; i++ {
		assert.True(t, math.IsNaN(values[i]), "slot %d has no mapping target", i)
	}
}

func TestQuantize(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.123456, quantize(0.123456, 32), 0)
	assert.InDelta(t, 1.0, quantize(1.5, 16), 0)
	assert.InDelta(t, math.Round(0.5*32767)/32767, quantize(0.5, 16), 0)
}
