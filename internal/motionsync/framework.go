// Package motionsync drives avatar parameters from audio.
//
// A Framework owns the engine manager and the lifecycle. MotionSync controllers created
// from it drain per-setting sample buffers through analysis processors, filter the results
// and write them into the avatar model once per tick.
//
//	fw := motionsync.NewFramework()
//	fw.StartUp(motionsync.Option{Logger: log})
//	fw.Initialize()
//	defer fw.CleanUp()
//
//	ms := fw.Create(table, doc, 48000)
//	ms.SetSoundBuffer(0, samples, 0)
//	ms.Update(1.0 / 60)
package motionsync

import (
	"sync"

	"github.com/tphakala/motionsync-go/internal/errors"
	"github.com/tphakala/motionsync-go/internal/logger"
	"github.com/tphakala/motionsync-go/internal/motionsync/backend/spectral"
	"github.com/tphakala/motionsync-go/internal/motionsync/data"
	"github.com/tphakala/motionsync-go/internal/motionsync/engine"
	"github.com/tphakala/motionsync-go/internal/observability/metrics"
)

// Status is the outcome of a lifecycle call. Lifecycle calls never fail the host.
type Status int

const (
	// StatusOK means the transition happened.
	StatusOK Status = iota
	// StatusAlreadyDone means the framework was already in the requested state.
	StatusAlreadyDone
	// StatusNotReady means a prerequisite transition is missing.
	StatusNotReady
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusAlreadyDone:
		return "already-done"
	case StatusNotReady:
		return "not-ready"
	default:
		return "unknown"
	}
}

// Option configures StartUp.
type Option struct {
	// Logger receives framework and controller logs. Nil uses the global logger.
	Logger logger.Logger
	// Engine is passed to every backend on engine initialization.
	Engine engine.Config
	// AudioLevelEffectRatio is the initial ratio of new controllers.
	AudioLevelEffectRatio float64
	// Metrics is optional.
	Metrics *metrics.MotionSyncMetrics
	// Backends maps analysis types to factories. Empty registers the spectral backend for CRI.
	Backends map[data.AnalysisType]engine.Factory
}

type lifecycle int

const (
	stateNotStarted lifecycle = iota
	stateStarted
	stateInitialized
)

// Framework is the lifecycle context shared by controllers. The zero value is not usable;
// call NewFramework.
type Framework struct {
	mu      sync.RWMutex
	state   lifecycle
	option  Option
	manager *engine.Manager
	log     logger.Logger
}

// NewFramework returns a framework in the not-started state.
func NewFramework() *Framework {
	return &Framework{log: GetLogger()}
}

// GetLogger returns the package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("motionsync")
}

// StartUp stores opt, creates the engine manager and registers the backends.
func (f *Framework) StartUp(opt Option) Status {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != stateNotStarted {
		f.log.Info("framework start up is already done")
		return StatusAlreadyDone
	}

	if opt.Logger != nil {
		f.log = opt.Logger
	}
	f.option = opt
	f.manager = engine.NewManager(engine.WithLogger(f.log), engine.WithMetrics(opt.Metrics))

	if len(opt.Backends) == 0 {
		if err := spectral.Register(f.manager, f.log); err != nil {
			f.log.Warn("spectral backend registration failed", logger.Error(err))
		}
	}
	for typ, factory := range opt.Backends {
		if err := f.manager.Register(typ, factory); err != nil {
			f.log.Warn("backend registration failed",
				logger.String("analysis_type", typ.String()),
				logger.Error(err))
		}
	}

	f.state = stateStarted
	f.log.Info("framework start up is complete")
	return StatusOK
}

// Initialize enables controller creation and updates. StartUp must come first.
func (f *Framework) Initialize() Status {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.state {
	case stateNotStarted:
		f.log.Warn("framework is not started")
		return StatusNotReady
	case stateInitialized:
		f.log.Warn("framework is already initialized")
		return StatusAlreadyDone
	}

	f.state = stateInitialized
	f.log.Info("framework initialize is complete")
	return StatusOK
}

// Dispose force-closes every engine and returns to the started state.
// Controllers become inert until the next Initialize; their processors stay closed.
func (f *Framework) Dispose() Status {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.state {
	case stateNotStarted:
		f.log.Warn("framework is not started")
		return StatusNotReady
	case stateStarted:
		f.log.Warn("framework is not initialized")
		return StatusAlreadyDone
	}

	f.manager.CloseAll()
	f.state = stateStarted
	f.log.Info("framework dispose is complete")
	return StatusOK
}

// CleanUp disposes if needed and returns to the not-started state.
func (f *Framework) CleanUp() Status {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state == stateNotStarted {
		f.log.Info("framework clean up is already done")
		return StatusAlreadyDone
	}

	f.manager.CloseAll()
	f.manager = nil
	f.state = stateNotStarted
	f.log.Info("framework clean up is complete")
	return StatusOK
}

// IsStarted reports whether StartUp succeeded and CleanUp has not run since.
func (f *Framework) IsStarted() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.state != stateNotStarted
}

// IsInitialized reports whether controllers may be created and updated.
func (f *Framework) IsInitialized() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.state == stateInitialized
}

// Manager returns the engine manager, or nil before StartUp.
func (f *Framework) Manager() *engine.Manager {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.manager
}

// engineFor returns the shared engine for typ, initializing it on first use.
func (f *Framework) engineFor(typ data.AnalysisType) (*engine.Engine, error) {
	if e := f.manager.GetEngine(typ); e != nil {
		return e, nil
	}
	e, err := f.manager.InitializeEngine(typ, f.option.Engine)
	if errors.Is(err, engine.ErrEngineAlreadyExists) {
		if existing := f.manager.GetEngine(typ); existing != nil {
			return existing, nil
		}
	}
	return e, err
}
