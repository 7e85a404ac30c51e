package engine

import (
	"slices"
	"sync"

	"github.com/tphakala/motionsync-go/internal/errors"
	"github.com/tphakala/motionsync-go/internal/logger"
	"github.com/tphakala/motionsync-go/internal/motionsync/data"
	"github.com/tphakala/motionsync-go/internal/observability/metrics"
)

// Manager owns backend registrations and the engines initialized from them.
// It is safe for concurrent use.
type Manager struct {
	mu        sync.RWMutex
	factories map[data.AnalysisType]Factory
	engines   map[data.AnalysisType]*Engine
	log       logger.Logger
	metrics   *metrics.MotionSyncMetrics
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the manager logger. Engines and processors log through sub-modules of it.
func WithLogger(l logger.Logger) ManagerOption {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithMetrics enables metric collection.
func WithMetrics(mm *metrics.MotionSyncMetrics) ManagerOption {
	return func(m *Manager) {
		m.metrics = mm
	}
}

// NewManager creates an empty manager.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		factories: make(map[data.AnalysisType]Factory),
		engines:   make(map[data.AnalysisType]*Engine),
		log:       GetLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register adds the backend factory for typ.
func (m *Manager) Register(typ data.AnalysisType, factory Factory) error {
	if factory == nil {
		return invalidArgument("register-backend", "nil factory for %s", typ)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.factories[typ]; exists {
		return errors.New(ErrBackendAlreadyRegistered).
			Component(ComponentEngine).
			Context("analysis_type", typ.String()).
			Build()
	}
	m.factories[typ] = factory
	m.log.Debug("backend registered", logger.String("analysis_type", typ.String()))
	return nil
}

// InitializeEngine creates, initializes and stores the engine for typ.
// It returns ErrEngineAlreadyExists when typ already has an engine and
// ErrBackendNotRegistered when no factory was registered for typ.
func (m *Manager) InitializeEngine(typ data.AnalysisType, cfg Config) (*Engine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.engines[typ]; exists {
		m.metrics.RecordOperation(metrics.OpInitializeEngine, metrics.StatusError)
		return nil, errors.New(ErrEngineAlreadyExists).
			Component(ComponentEngine).
			Context("analysis_type", typ.String()).
			Build()
	}

	factory, ok := m.factories[typ]
	if !ok {
		m.metrics.RecordOperation(metrics.OpInitializeEngine, metrics.StatusError)
		return nil, errors.New(ErrBackendNotRegistered).
			Component(ComponentEngine).
			Context("analysis_type", typ.String()).
			Build()
	}

	if cfg.BitDepth <= 0 {
		cfg.BitDepth = DefaultBitDepth
	}

	backend := factory()
	name := backend.Name()
	version := Version(backend.Version())
	if TypeFromName(name) != typ {
		m.log.Debug("backend name does not identify its registered type",
			logger.String("engine", name),
			logger.String("analysis_type", typ.String()))
	}

	if err := backend.Initialize(cfg); err != nil {
		m.metrics.RecordOperation(metrics.OpInitializeEngine, metrics.StatusError)
		return nil, errors.New(err).
			Component(ComponentEngine).
			Category(errors.CategoryEngine).
			Context("operation", "initialize-engine").
			Context("engine", name).
			Build()
	}

	e := &Engine{
		typ:        typ,
		name:       name,
		version:    version,
		bitDepth:   cfg.BitDepth,
		backend:    backend,
		manager:    m,
		processors: make(map[*Processor]struct{}),
		log:        m.log.Module("engine").With(logger.String("engine", name)),
		metrics:    m.metrics,
	}
	m.engines[typ] = e

	m.log.Info("analysis engine initialized",
		logger.String("engine", name),
		logger.String("version", version.String()),
		logger.String("analysis_type", typ.String()))
	m.metrics.RecordOperation(metrics.OpInitializeEngine, metrics.StatusSuccess)
	m.metrics.SetActiveEngines(len(m.engines))

	return e, nil
}

// GetEngine returns the engine for typ, or nil.
func (m *Manager) GetEngine(typ data.AnalysisType) *Engine {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.engines[typ]
}

// GetEngines returns all engines ordered by analysis type.
func (m *Manager) GetEngines() []*Engine {
	m.mu.RLock()
	defer m.mu.RUnlock()

	engines := make([]*Engine, 0, len(m.engines))
	for _, e := range m.engines {
		engines = append(engines, e)
	}
	slices.SortFunc(engines, func(a, b *Engine) int { return int(a.typ) - int(b.typ) })
	return engines
}

// Close disposes engine. Without force, an engine with open processors is left running
// and Close returns false. With force, its processors are closed first.
// Returns true when the engine was removed.
func (m *Manager) Close(engine *Engine, force bool) bool {
	if engine == nil {
		return false
	}
	if !engine.close(force) {
		return false
	}

	m.mu.Lock()
	if m.engines[engine.typ] == engine {
		delete(m.engines, engine.typ)
	}
	count := len(m.engines)
	m.mu.Unlock()

	m.metrics.SetActiveEngines(count)
	m.log.Info("analysis engine closed",
		logger.String("engine", engine.name),
		logger.Bool("forced", force))
	return true
}

// CloseAll force-closes every engine.
func (m *Manager) CloseAll() {
	for _, e := range m.GetEngines() {
		m.Close(e, true)
	}
}

// GetLogger returns the engine package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("motionsync").Module("engine")
}
