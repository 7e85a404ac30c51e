package engine

import (
	"sync"

	"github.com/google/uuid"

	"github.com/tphakala/motionsync-go/internal/errors"
	"github.com/tphakala/motionsync-go/internal/logger"
	"github.com/tphakala/motionsync-go/internal/motionsync/data"
	"github.com/tphakala/motionsync-go/internal/observability/metrics"
)

// Engine is an initialized Backend shared by every setting of one analysis type.
type Engine struct {
	typ      data.AnalysisType
	name     string
	version  Version
	bitDepth int
	backend  Backend
	manager  *Manager

	mu         sync.Mutex
	processors map[*Processor]struct{}
	closed     bool

	log     logger.Logger
	metrics *metrics.MotionSyncMetrics
}

func (e *Engine) Type() data.AnalysisType { return e.typ }
func (e *Engine) Name() string            { return e.name }
func (e *Engine) Version() Version        { return e.version }

// Backend returns the wrapped implementation.
func (e *Engine) Backend() Backend { return e.backend }

// IsClosed reports whether the engine was disposed.
func (e *Engine) IsClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// ProcessorCount returns the number of open processors.
func (e *Engine) ProcessorCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.processors)
}

// CreateProcessor opens an analysis context for one setting.
// mappings must not be empty and sampleRate must lie in the backend's SampleRateRange.
func (e *Engine) CreateProcessor(parameterCount int, mappings []data.MappingInfo, sampleRate float64) (*Processor, error) {
	p, err := e.createProcessor(parameterCount, mappings, sampleRate)
	if err != nil {
		e.metrics.RecordOperation(metrics.OpCreateProcessor, metrics.StatusError)
		e.log.Warn("processor creation failed", logger.Error(err))
		return nil, err
	}
	e.metrics.RecordOperation(metrics.OpCreateProcessor, metrics.StatusSuccess)
	e.metrics.ProcessorOpened(e.typ.String())
	p.log.Debug("processor created",
		logger.Float64("sample_rate", sampleRate),
		logger.Int("parameters", parameterCount),
		logger.Int("mappings", len(mappings)))
	return p, nil
}

func (e *Engine) createProcessor(parameterCount int, mappings []data.MappingInfo, sampleRate float64) (*Processor, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, errors.New(ErrEngineClosed).
			Component(ComponentEngine).
			Context("engine", e.name).
			Build()
	}
	if len(mappings) == 0 {
		return nil, invalidArgument("create-processor", "mapping list is empty")
	}
	if parameterCount <= 0 {
		return nil, invalidArgument("create-processor", "parameter count %d must be positive", parameterCount)
	}
	minRate, maxRate := e.backend.SampleRateRange()
	if sampleRate < minRate || sampleRate > maxRate {
		return nil, invalidArgument("create-processor", "sample rate %v outside [%v, %v]", sampleRate, minRate, maxRate)
	}

	ctx, err := e.backend.NewContext(ContextConfig{SampleRate: sampleRate, BitDepth: e.bitDepth}, mappings, parameterCount)
	if err != nil {
		return nil, errors.New(err).
			Component(ComponentEngine).
			Category(errors.CategoryProcessing).
			Context("operation", "create-context").
			Context("engine", e.name).
			Build()
	}

	id := uuid.New()
	p := &Processor{
		id:             id,
		engine:         e,
		ctx:            ctx,
		sampleRate:     sampleRate,
		bitDepth:       e.bitDepth,
		parameterCount: parameterCount,
		log:            e.log.Module("processor").With(logger.String("processor_id", id.String())),
	}
	e.processors[p] = struct{}{}
	return p, nil
}

// removeProcessor drops p from the open set and reports whether it was present.
func (e *Engine) removeProcessor(p *Processor) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.processors[p]; !ok {
		return false
	}
	delete(e.processors, p)
	return true
}

// close disposes the backend unless processors are open and force is false.
func (e *Engine) close(force bool) bool {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return false
	}
	if len(e.processors) > 0 && !force {
		open := len(e.processors)
		e.mu.Unlock()
		e.log.Debug("engine close skipped, processors still open", logger.Int("processors", open))
		return false
	}
	e.closed = true
	open := make([]*Processor, 0, len(e.processors))
	for p := range e.processors {
		open = append(open, p)
	}
	e.mu.Unlock()

	for _, p := range open {
		p.Close()
	}

	e.backend.Dispose()
	return true
}
