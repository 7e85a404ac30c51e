package engine

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/tphakala/motionsync-go/internal/errors"
	"github.com/tphakala/motionsync-go/internal/logger"
)

// Processor is one setting's analysis context on an Engine.
type Processor struct {
	id             uuid.UUID
	engine         *Engine
	ctx            Context
	sampleRate     float64
	bitDepth       int
	parameterCount int
	log            logger.Logger

	closeOnce sync.Once
	closed    atomic.Bool
}

func (p *Processor) ID() uuid.UUID       { return p.id }
func (p *Processor) Engine() *Engine     { return p.engine }
func (p *Processor) SampleRate() float64 { return p.sampleRate }
func (p *Processor) BitDepth() int       { return p.bitDepth }

// IsClosed reports whether Close was called.
func (p *Processor) IsClosed() bool { return p.closed.Load() }

// Type returns the analysis type of the owning engine.
func (p *Processor) Type() string { return p.engine.typ.String() }

// ParameterCount is the number of values each AnalysisResult carries.
func (p *Processor) ParameterCount() int { return p.parameterCount }

// RequireSampleCount returns the minimum sample count the next Analyze call needs,
// or zero once the processor is closed.
func (p *Processor) RequireSampleCount() int {
	if p.closed.Load() {
		return 0
	}
	return p.ctx.RequireSampleCount()
}

// Analyze runs the backend over samples[beginIndex:] and fills result.
//
// Arguments are validated first: at least RequireSampleCount samples after beginIndex,
// beginIndex inside samples, blendRatio and audioLevelEffectRatio in [0, 1],
// smoothing in [1, 100] and a non-nil result.
func (p *Processor) Analyze(samples []float32, beginIndex int, blendRatio float64, smoothing int,
	audioLevelEffectRatio float64, result *AnalysisResult) error {
	if err := p.validate(samples, beginIndex, blendRatio, smoothing, audioLevelEffectRatio, result); err != nil {
		p.log.Debug("analyze rejected", logger.Error(err))
		p.engine.metrics.RecordAnalyze(p.Type(), 0, 0, err)
		return err
	}

	if len(result.Values) != p.parameterCount {
		result.Values = make([]float64, p.parameterCount)
	}
	result.Reset()

	available := len(samples) - beginIndex
	start := time.Now()
	err := p.ctx.Analyze(samples[beginIndex:], result, AnalysisConfig{
		BlendRatio:            blendRatio,
		Smoothing:             smoothing,
		AudioLevelEffectRatio: audioLevelEffectRatio,
	})
	elapsed := time.Since(start)

	if err == nil && (result.ProcessedSampleCount < 0 || result.ProcessedSampleCount > available) {
		err = errors.Newf("backend reported %d processed samples of %d available", result.ProcessedSampleCount, available).
			Component(ComponentEngine).
			Category(errors.CategoryProcessing).
			Build()
	}
	if err != nil {
		result.Reset()
		err = errors.New(err).
			Component(ComponentEngine).
			Category(errors.CategoryProcessing).
			Context("operation", "analyze").
			Context("engine", p.engine.name).
			Build()
		p.engine.metrics.RecordAnalyze(p.Type(), 0, 0, err)
		return err
	}

	p.engine.metrics.RecordAnalyze(p.Type(), result.ProcessedSampleCount, elapsed.Seconds(), nil)
	return nil
}

func (p *Processor) validate(samples []float32, beginIndex int, blendRatio float64, smoothing int,
	audioLevelEffectRatio float64, result *AnalysisResult) error {
	if p.closed.Load() {
		return errors.New(ErrProcessorClosed).
			Component(ComponentEngine).
			Context("processor_id", p.id.String()).
			Build()
	}
	if beginIndex < 0 || beginIndex >= len(samples) {
		return invalidArgument("analyze", "begin index %d outside samples of length %d", beginIndex, len(samples))
	}
	if need := p.ctx.RequireSampleCount(); len(samples)-beginIndex < need {
		return invalidArgument("analyze", "%d samples available, %d required", len(samples)-beginIndex, need)
	}
	if math.IsNaN(blendRatio) || blendRatio < MinBlendRatio || blendRatio > MaxBlendRatio {
		return invalidArgument("analyze", "blend ratio %v outside [0, 1]", blendRatio)
	}
	if smoothing < MinSmoothing || smoothing > MaxSmoothing {
		return invalidArgument("analyze", "smoothing %d outside [1, 100]", smoothing)
	}
	if math.IsNaN(audioLevelEffectRatio) || audioLevelEffectRatio < MinAudioLevelEffectRatio ||
		audioLevelEffectRatio > MaxAudioLevelEffectRatio {
		return invalidArgument("analyze", "audio level effect ratio %v outside [0, 1]", audioLevelEffectRatio)
	}
	if result == nil {
		return invalidArgument("analyze", "result is nil")
	}
	return nil
}

// Close releases the backend context and detaches the processor from its engine.
// Close is idempotent.
func (p *Processor) Close() {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		p.ctx.Close()
		if p.engine.removeProcessor(p) {
			p.engine.metrics.ProcessorClosed(p.Type())
		}
		p.log.Debug("processor closed")
	})
}
