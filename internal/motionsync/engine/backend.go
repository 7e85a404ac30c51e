// Package engine manages pluggable analysis backends and the per-setting processors
// created on them.
//
// A Manager owns at most one Engine per analysis type. Each Engine wraps a Backend
// created by the Factory registered for that type and tracks the Processors opened on
// it. Processors validate their arguments before handing samples to the backend Context.
package engine

import (
	"math"

	"github.com/tphakala/motionsync-go/internal/motionsync/data"
)

// DefaultBitDepth is the sample bit depth passed to backends when none is configured.
const DefaultBitDepth = 32

// Analysis argument limits.
const (
	MinBlendRatio            = 0.0
	MaxBlendRatio            = 1.0
	MinSmoothing             = 1
	MaxSmoothing             = 100
	MinAudioLevelEffectRatio = 0.0
	MaxAudioLevelEffectRatio = 1.0
)

// Config is passed to Backend.Initialize.
type Config struct {
	BitDepth int
}

// ContextConfig describes the audio a Context will analyze.
type ContextConfig struct {
	SampleRate float64
	BitDepth   int
}

// AnalysisConfig carries the per-call analysis tuning.
type AnalysisConfig struct {
	BlendRatio            float64
	Smoothing             int
	AudioLevelEffectRatio float64
}

// AnalysisResult receives one value per model parameter. NaN marks a parameter the
// backend did not update.
type AnalysisResult struct {
	Values               []float64
	ProcessedSampleCount int
}

// NewAnalysisResult returns a result for parameterCount parameters with every value NaN.
func NewAnalysisResult(parameterCount int) *AnalysisResult {
	r := &AnalysisResult{Values: make([]float64, parameterCount)}
	r.Reset()
	return r
}

// Reset marks every value as not updated and clears the processed count.
func (r *AnalysisResult) Reset() {
	for i := range r.Values {
		r.Values[i] = math.NaN()
	}
	r.ProcessedSampleCount = 0
}

// CopyFrom copies values from src, resizing r when needed. The processed count is reset.
func (r *AnalysisResult) CopyFrom(src *AnalysisResult) {
	if cap(r.Values) < len(src.Values) {
		r.Values = make([]float64, len(src.Values))
	}
	r.Values = r.Values[:len(src.Values)]
	copy(r.Values, src.Values)
	r.ProcessedSampleCount = 0
}

// Backend is an analysis engine implementation.
type Backend interface {
	// Name identifies the implementation, e.g. EngineNameCRI.
	Name() string
	// Version is packed as major<<24 | minor<<16 | patch.
	Version() uint32
	Initialize(cfg Config) error
	Dispose()
	// SampleRateRange returns the inclusive audio sample rate limits for contexts.
	SampleRateRange() (minRate, maxRate float64)
	NewContext(cfg ContextConfig, mappings []data.MappingInfo, parameterCount int) (Context, error)
}

// Context is per-setting analysis state inside a Backend.
type Context interface {
	// RequireSampleCount is the minimum number of samples the next Analyze call needs.
	RequireSampleCount() int
	// Analyze consumes a prefix of samples and fills result.
	Analyze(samples []float32, result *AnalysisResult, cfg AnalysisConfig) error
	Close()
}

// Factory creates an uninitialized Backend.
type Factory func() Backend
