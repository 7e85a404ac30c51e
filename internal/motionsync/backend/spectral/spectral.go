// Package spectral is the in-process analysis backend for the CRI analysis type.
//
// Each Analyze call looks at one frame of roughly 20 ms, rounded up to a power of two,
// and advances by half a frame. The frame is scored against five vowel formant templates
// and its RMS level drives the Silence parameter.
package spectral

import (
	"sync"

	"github.com/tphakala/motionsync-go/internal/errors"
	"github.com/tphakala/motionsync-go/internal/logger"
	"github.com/tphakala/motionsync-go/internal/motionsync/data"
	"github.com/tphakala/motionsync-go/internal/motionsync/engine"
)

// ComponentSpectral identifies this package in enhanced errors.
const ComponentSpectral = "motionsync.spectral"

// Sample rate limits reported by SampleRateRange.
const (
	MinSampleRate = 16000
	MaxSampleRate = 128000
)

// BackendVersion is the version reported to the engine manager.
var BackendVersion = engine.NewVersion(1, 0, 0)

// Backend implements engine.Backend with FFT formant scoring.
type Backend struct {
	mu          sync.Mutex
	initialized bool
	bitDepth    int
	log         logger.Logger
}

// New returns an uninitialized backend. A nil logger falls back to the package logger.
func New(log logger.Logger) *Backend {
	if log == nil {
		log = GetLogger()
	}
	return &Backend{log: log}
}

// Register adds the spectral backend to m for the CRI analysis type.
func Register(m *engine.Manager, log logger.Logger) error {
	return m.Register(data.AnalysisTypeCRI, func() engine.Backend { return New(log) })
}

// GetLogger returns the package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("motionsync").Module("spectral")
}

func (b *Backend) Name() string    { return engine.EngineNameCRI }
func (b *Backend) Version() uint32 { return BackendVersion.Raw() }

// Initialize records the bit depth used to quantize input. Only 16, 24 and 32 are accepted.
func (b *Backend) Initialize(cfg engine.Config) error {
	switch cfg.BitDepth {
	case 16, 24, 32:
	default:
		return errors.Newf("unsupported bit depth %d", cfg.BitDepth).
			Component(ComponentSpectral).
			Category(errors.CategoryValidation).
			Context("bit_depth", cfg.BitDepth).
			Build()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.initialized = true
	b.bitDepth = cfg.BitDepth
	b.log.Debug("spectral backend initialized", logger.Int("bit_depth", cfg.BitDepth))
	return nil
}

func (b *Backend) Dispose() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.initialized = false
	b.log.Debug("spectral backend disposed")
}

func (b *Backend) SampleRateRange() (minRate, maxRate float64) {
	return MinSampleRate, MaxSampleRate
}

// NewContext prepares the FFT plan and window for one processor.
func (b *Backend) NewContext(cfg engine.ContextConfig, mappings []data.MappingInfo, parameterCount int) (engine.Context, error) {
	b.mu.Lock()
	initialized := b.initialized
	b.mu.Unlock()
	if !initialized {
		return nil, errors.Newf("spectral backend is not initialized").
			Component(ComponentSpectral).
			Category(errors.CategoryState).
			Build()
	}

	for i := range mappings {
		if _, ok := channelOf(mappings[i].AudioParameterID); !ok {
			b.log.Debug("audio parameter not produced by this backend",
				logger.String("audio_parameter", mappings[i].AudioParameterID))
		}
	}

	return newContext(cfg, mappings, parameterCount)
}

var _ engine.Backend = (*Backend)(nil)
