// Package enginetest provides a scriptable engine.Backend for tests.
package enginetest

import (
	"math"
	"sync"

	"github.com/tphakala/motionsync-go/internal/motionsync/data"
	"github.com/tphakala/motionsync-go/internal/motionsync/engine"
)

// Defaults for a new Backend.
const (
	DefaultRequire = 10
	DefaultMinRate = 16000
	DefaultMaxRate = 128000
)

// ValueFunc computes the raw values for one analyze call. call counts from zero.
type ValueFunc func(call int, samples []float32, cfg engine.AnalysisConfig) []float64

// Backend records calls and returns configured values.
// Zero-valued fields fall back to the package defaults.
type Backend struct {
	EngineName    string
	EngineVersion uint32
	MinRate       float64
	MaxRate       float64
	InitErr       error
	ContextErr    error
	AnalyzeErr    error

	// Require is the RequireSampleCount of every context.
	Require int
	// Consume is the processed count per call, capped at the samples given. Zero means Require.
	Consume int
	// Values are the raw values returned by each call, padded with NaN. Ignored when Func is set.
	Values []float64
	Func   ValueFunc

	mu          sync.Mutex
	initialized int
	disposed    int
	calls       int
	contexts    []*Context
}

// New returns a CRI-named backend with default limits.
func New() *Backend {
	return &Backend{EngineName: engine.EngineNameCRI, EngineVersion: uint32(engine.NewVersion(1, 2, 3))}
}

// Factory returns a factory that always yields b.
func (b *Backend) Factory() engine.Factory {
	return func() engine.Backend { return b }
}

func (b *Backend) Name() string    { return b.EngineName }
func (b *Backend) Version() uint32 { return b.EngineVersion }

func (b *Backend) Initialize(engine.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.InitErr != nil {
		return b.InitErr
	}
	b.initialized++
	return nil
}

func (b *Backend) Dispose() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.disposed++
}

func (b *Backend) SampleRateRange() (float64, float64) {
	minRate, maxRate := b.MinRate, b.MaxRate
	if minRate == 0 {
		minRate = DefaultMinRate
	}
	if maxRate == 0 {
		maxRate = DefaultMaxRate
	}
	return minRate, maxRate
}

func (b *Backend) NewContext(cfg engine.ContextConfig, mappings []data.MappingInfo, parameterCount int) (engine.Context, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ContextErr != nil {
		return nil, b.ContextErr
	}
	c := &Context{backend: b, Config: cfg, Mappings: mappings, ParameterCount: parameterCount}
	b.contexts = append(b.contexts, c)
	return c, nil
}

// Initialized returns the number of successful Initialize calls.
func (b *Backend) Initialized() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.initialized
}

// Disposed returns the number of Dispose calls.
func (b *Backend) Disposed() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.disposed
}

// Calls returns the number of Analyze calls across all contexts.
func (b *Backend) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

// Contexts returns the contexts created so far.
func (b *Backend) Contexts() []*Context {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Context(nil), b.contexts...)
}

func (b *Backend) require() int {
	if b.Require <= 0 {
		return DefaultRequire
	}
	return b.Require
}

// Context is a stub analysis context.
type Context struct {
	backend        *Backend
	Config         engine.ContextConfig
	Mappings       []data.MappingInfo
	ParameterCount int

	mu      sync.Mutex
	closed  bool
	configs []engine.AnalysisConfig
}

func (c *Context) RequireSampleCount() int { return c.backend.require() }

func (c *Context) Analyze(samples []float32, result *engine.AnalysisResult, cfg engine.AnalysisConfig) error {
	b := c.backend
	b.mu.Lock()
	call := b.calls
	b.calls++
	b.mu.Unlock()

	c.mu.Lock()
	c.configs = append(c.configs, cfg)
	c.mu.Unlock()

	if b.AnalyzeErr != nil {
		return b.AnalyzeErr
	}

	var values []float64
	if b.Func != nil {
		values = b.Func(call, samples, cfg)
	} else {
		values = b.Values
	}
	for i := range result.Values {
		if i < len(values) {
			result.Values[i] = values[i]
		} else {
			result.Values[i] = math.NaN()
		}
	}

	consume := b.Consume
	if consume <= 0 {
		consume = b.require()
	}
	result.ProcessedSampleCount = min(consume, len(samples))
	return nil
}

func (c *Context) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// Closed reports whether Close was called.
func (c *Context) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Configs returns the analysis configs passed to Analyze.
func (c *Context) Configs() []engine.AnalysisConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]engine.AnalysisConfig(nil), c.configs...)
}

var _ engine.Backend = (*Backend)(nil)
