package spectral

import (
	"math"

	algofft "github.com/cwbudde/algo-fft"
	vecmath "github.com/cwbudde/algo-vecmath"

	"github.com/tphakala/motionsync-go/internal/errors"
	"github.com/tphakala/motionsync-go/internal/motionsync/data"
	"github.com/tphakala/motionsync-go/internal/motionsync/engine"
)

const (
	// frameDuration is the minimum analysis frame length in seconds.
	frameDuration = 0.02
	// minLevelDB maps to level 0; 0 dBFS maps to level 1.
	minLevelDB = -60.0
	// scoreFloor is the total formant energy below which a frame counts as unvoiced.
	scoreFloor = 1e-12
)

type band struct {
	lo, hi int
}

type mappedChannel struct {
	channel channel
	info    data.MappingInfo
}

// analysisContext is not safe for concurrent use; a processor drives it from one goroutine.
type analysisContext struct {
	sampleRate     float64
	bitDepth       int
	frameSize      int
	hop            int
	parameterCount int

	plan   *algofft.Plan[complex128]
	window []float64
	frame  []float64
	in     []complex128
	out    []complex128
	re     []float64
	im     []float64
	power  []float64

	bands    [vowelCount][2]band
	mappings []mappedChannel
	state    [channelCount]float64
}

func newContext(cfg engine.ContextConfig, mappings []data.MappingInfo, parameterCount int) (*analysisContext, error) {
	n := frameSizeFor(cfg.SampleRate)
	plan, err := algofft.NewPlan64(n)
	if err != nil {
		return nil, errors.New(err).
			Component(ComponentSpectral).
			Category(errors.CategoryAudioAnalysis).
			Context("operation", "fft-plan").
			Context("frame_size", n).
			Build()
	}

	bins := n/2 + 1
	c := &analysisContext{
		sampleRate:     cfg.SampleRate,
		bitDepth:       cfg.BitDepth,
		frameSize:      n,
		hop:            n / 2,
		parameterCount: parameterCount,
		plan:           plan,
		window:         hann(n),
		frame:          make([]float64, n),
		in:             make([]complex128, n),
		out:            make([]complex128, n),
		re:             make([]float64, bins),
		im:             make([]float64, bins),
		power:          make([]float64, bins),
	}

	binHz := cfg.SampleRate / float64(n)
	for v, f := range vowelFormants {
		c.bands[v][0] = bandFor(f.f1, binHz, bins)
		c.bands[v][1] = bandFor(f.f2, binHz, bins)
	}

	for _, mi := range mappings {
		ch, ok := channelOf(mi.AudioParameterID)
		if !ok || !mi.Enabled {
			continue
		}
		c.mappings = append(c.mappings, mappedChannel{channel: ch, info: mi})
	}
	return c, nil
}

// frameSizeFor returns the smallest power of two covering frameDuration at sampleRate.
func frameSizeFor(sampleRate float64) int {
	need := int(math.Ceil(sampleRate * frameDuration))
	n := 1
	for n < need {
		n <<= 1
	}
	return n
}

// hann returns a periodic Hann window of length n.
func hann(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return w
}

func bandFor(center, binHz float64, bins int) band {
	lo := int(math.Ceil(center * (1 - formantBandwidth) / binHz))
	hi := int(math.Floor(center * (1 + formantBandwidth) / binHz))
	if hi < lo {
		lo = int(math.Round(center / binHz))
		hi = lo
	}
	lo = max(1, min(lo, bins-1))
	hi = max(lo, min(hi, bins-1))
	return band{lo: lo, hi: hi}
}

func (c *analysisContext) RequireSampleCount() int { return c.frameSize }

// Analyze scores one frame from the start of samples and consumes one hop.
func (c *analysisContext) Analyze(samples []float32, result *engine.AnalysisResult, cfg engine.AnalysisConfig) error {
	if len(samples) < c.frameSize {
		return errors.Newf("%d samples given, frame needs %d", len(samples), c.frameSize).
			Component(ComponentSpectral).
			Category(errors.CategoryBuffer).
			Build()
	}

	for i := range c.frame {
		c.frame[i] = quantize(float64(samples[i]), c.bitDepth)
	}
	level := levelOf(c.frame)

	vecmath.MulBlockInPlace(c.frame, c.window)
	for i, x := range c.frame {
		c.in[i] = complex(x, 0)
	}
	if err := c.plan.Forward(c.out, c.in); err != nil {
		return errors.New(err).
			Component(ComponentSpectral).
			Category(errors.CategoryAudioAnalysis).
			Context("operation", "fft").
			Build()
	}
	for i := range c.re {
		c.re[i] = real(c.out[i])
		c.im[i] = imag(c.out[i])
	}
	vecmath.Power(c.power, c.re, c.im)

	var target [channelCount]float64
	weights := c.vowelWeights(cfg.BlendRatio)
	gain := 1 - cfg.AudioLevelEffectRatio + cfg.AudioLevelEffectRatio*level
	if level == 0 {
		gain = 0
	}
	for v := range vowelCount {
		target[v] = weights[v] * gain
	}
	target[channelSilence] = 1 - level

	alpha := float64(cfg.Smoothing-1) / 100
	for ch := range c.state {
		c.state[ch] = alpha*c.state[ch] + (1-alpha)*target[ch]
	}

	c.writeValues(result)
	result.ProcessedSampleCount = c.hop
	return nil
}

// vowelWeights normalizes the formant scores of the current spectrum. A blend ratio of
// zero selects the best vowel alone; one keeps the normalized scores.
func (c *analysisContext) vowelWeights(blendRatio float64) [vowelCount]float64 {
	var scores [vowelCount]float64
	total := 0.0
	best := 0
	for v := range vowelCount {
		d1 := c.density(c.bands[v][0])
		d2 := c.density(c.bands[v][1])
		scores[v] = math.Sqrt(d1 * d2)
		total += scores[v]
		if scores[v] > scores[best] {
			best = v
		}
	}

	var weights [vowelCount]float64
	if total < scoreFloor {
		return weights
	}
	for v := range vowelCount {
		w := blendRatio * scores[v] / total
		if v == best {
			w += 1 - blendRatio
		}
		weights[v] = w
	}
	return weights
}

func (c *analysisContext) density(b band) float64 {
	return vecmath.Sum(c.power[b.lo:b.hi+1]) / float64(b.hi-b.lo+1)
}

// writeValues combines the channel states into the result. Slot i receives the sum of
// every mapping's target value i weighted by its channel and scale; slots no mapping
// reaches stay NaN.
func (c *analysisContext) writeValues(result *engine.AnalysisResult) {
	n := min(c.parameterCount, len(result.Values))
	for _, m := range c.mappings {
		activation := c.state[m.channel] * m.info.Scale
		for i := range min(n, len(m.info.ModelParameterValues)) {
			v := activation * m.info.ModelParameterValues[i]
			if math.IsNaN(result.Values[i]) {
				result.Values[i] = v
			} else {
				result.Values[i] += v
			}
		}
	}
}

func (c *analysisContext) Close() {
	c.plan = nil
}

// levelOf maps the RMS of frame in dBFS onto [0, 1].
func levelOf(frame []float64) float64 {
	meanSquare := vecmath.DotProduct(frame, frame) / float64(len(frame))
	if meanSquare <= 0 {
		return 0
	}
	db := 10 * math.Log10(meanSquare)
	return max(0, min(1, (db-minLevelDB)/-minLevelDB))
}

// quantize rounds x to the resolution of a signed integer sample of bits width.
// 32-bit input is passed through.
func quantize(x float64, bits int) float64 {
	if bits >= 32 || bits <= 0 {
		return x
	}
	scale := float64(int64(1)<<(bits-1) - 1)
	return math.Round(max(-1, min(1, x))*scale) / scale
}
