package motionsync

import (
	"math"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/tphakala/motionsync-go/internal/logger"
	"github.com/tphakala/motionsync-go/internal/motionsync/data"
	"github.com/tphakala/motionsync-go/internal/motionsync/engine"
	"github.com/tphakala/motionsync-go/internal/motionsync/model"
	"github.com/tphakala/motionsync-go/internal/observability/metrics"
)

// Processor defaults applied before a setting's post-processing values.
const (
	DefaultBlendRatio            = 0.0
	DefaultSmoothing             = 1
	DefaultSampleRate            = 30.0
	DefaultAudioLevelEffectRatio = 0.0
)

// analyzeWarnInterval limits analyze failure warnings per setting.
const analyzeWarnInterval = 5 * time.Second

// MotionSync applies analysis results of every setting to one avatar model.
// It is not safe for concurrent use; call it from the frame loop.
type MotionSync struct {
	id       uuid.UUID
	fw       *Framework
	model    model.Parameters
	data     *data.Data
	states   []*processorState
	log      logger.Logger
	recorder metrics.Recorder
}

// Create builds a controller for m from d. Parameter indices are resolved on a copy of d.
// Settings whose analysis type is unknown or whose processor cannot be created are
// skipped with a warning. Create returns nil unless the framework is initialized.
func (f *Framework) Create(m model.Parameters, d *data.Data, sampleRate float64) *MotionSync {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.state != stateInitialized {
		f.log.Warn("create called before framework initialize")
		return nil
	}
	if m == nil || d == nil {
		f.log.Warn("create called without model or data")
		return nil
	}

	id := uuid.New()
	ms := &MotionSync{
		id:       id,
		fw:       f,
		model:    m,
		data:     d.Clone(),
		log:      f.log.Module("controller").With(logger.String("controller_id", id.String())),
		recorder: metrics.NopRecorder{},
	}
	if f.option.Metrics != nil {
		ms.recorder = f.option.Metrics
	}
	ms.data.ResolveParameterIndices(m)
	ms.states = make([]*processorState, ms.data.SettingCount())

	for i, s := range ms.data.Settings() {
		log := ms.log.With(logger.Int("setting_index", i), logger.String("setting", s.ID))
		if s.AnalysisType == data.AnalysisTypeUnknown {
			log.Warn("cannot create processor, analysis type is unknown")
			continue
		}

		e, err := f.engineFor(s.AnalysisType)
		if err != nil {
			log.Warn("analysis engine unavailable", logger.Error(err))
			continue
		}

		p, err := e.CreateProcessor(len(s.CubismParameters), ms.data.GetMappingInfoList(i), sampleRate)
		if err != nil {
			log.Warn("processor creation failed", logger.Error(err))
			continue
		}

		ms.states[i] = newProcessorState(p, s, m, f.option.AudioLevelEffectRatio, log)
	}

	ms.log.Info("controller created",
		logger.Int("settings", ms.data.SettingCount()),
		logger.Int("processors", ms.ProcessorCount()),
		logger.Float64("sample_rate", sampleRate))
	return ms
}

// ID identifies the controller in logs.
func (ms *MotionSync) ID() uuid.UUID { return ms.id }

// Data returns the controller's settings with resolved parameter indices.
func (ms *MotionSync) Data() *data.Data { return ms.data }

// ProcessorCount is the number of settings that have a processor.
func (ms *MotionSync) ProcessorCount() int {
	n := 0
	for _, s := range ms.states {
		if s != nil {
			n++
		}
	}
	return n
}

// HasProcessor reports whether the setting at index has a processor.
func (ms *MotionSync) HasProcessor(settingIndex int) bool {
	return ms.state(settingIndex) != nil
}

func (ms *MotionSync) state(settingIndex int) *processorState {
	if settingIndex < 0 || settingIndex >= len(ms.states) {
		return nil
	}
	return ms.states[settingIndex]
}

// active returns the state at index when the framework is initialized.
func (ms *MotionSync) active(settingIndex int) *processorState {
	if !ms.fw.IsInitialized() {
		return nil
	}
	return ms.state(settingIndex)
}

// SetSoundBuffer replaces the pending samples of a setting. Reading starts at startIndex.
func (ms *MotionSync) SetSoundBuffer(settingIndex int, buffer []float32, startIndex int) {
	if s := ms.active(settingIndex); s != nil {
		s.buffer = buffer
		s.cursor = max(0, startIndex)
	}
}

// SetBlendRatio sets the blend ratio passed to Analyze.
func (ms *MotionSync) SetBlendRatio(settingIndex int, blendRatio float64) {
	if s := ms.active(settingIndex); s != nil {
		s.blendRatio = blendRatio
	}
}

// SetSmoothing sets the backend smoothing passed to Analyze.
func (ms *MotionSync) SetSmoothing(settingIndex int, smoothing int) {
	if s := ms.active(settingIndex); s != nil {
		s.smoothing = smoothing
	}
}

// SetSampleRate sets the analysis rate in updates per second. Non-positive rates are ignored.
func (ms *MotionSync) SetSampleRate(settingIndex int, sampleRate float64) {
	s := ms.active(settingIndex)
	if s == nil {
		return
	}
	if !(sampleRate > 0) || math.IsInf(sampleRate, 0) {
		s.log.Warn("ignoring invalid sample rate", logger.Float64("sample_rate", sampleRate))
		return
	}
	s.sampleRate = sampleRate
}

// SetAudioLevelEffectRatio sets how strongly the input level scales the results.
func (ms *MotionSync) SetAudioLevelEffectRatio(settingIndex int, ratio float64) {
	if s := ms.active(settingIndex); s != nil {
		s.levelRatio = ratio
	}
}

// GetLastTotalProcessedCount returns the samples consumed by the setting during the last
// Update, or zero when the setting has no processor.
func (ms *MotionSync) GetLastTotalProcessedCount(settingIndex int) int {
	if s := ms.state(settingIndex); s != nil {
		return s.lastTotalProcessed
	}
	return 0
}

// PendingSampleCount returns the unread samples in the setting's buffer.
func (ms *MotionSync) PendingSampleCount(settingIndex int) int {
	if s := ms.state(settingIndex); s != nil {
		return max(0, len(s.buffer)-s.cursor)
	}
	return 0
}

// Update advances every setting by deltaSeconds. A setting analyzes only after a full
// tick of 1/sampleRate seconds has elapsed; between ticks the last damped values are
// written again so other writers cannot override them.
func (ms *MotionSync) Update(deltaSeconds float64) {
	if !ms.fw.IsInitialized() {
		return
	}
	// NaN, negative and infinite deltas count as no time passing
	if !(deltaSeconds > 0) || math.IsInf(deltaSeconds, 1) {
		deltaSeconds = 0
	}

	start := time.Now()
	failed := false
	for _, s := range ms.states {
		if s == nil {
			continue
		}
		if !s.update(ms.model, deltaSeconds) {
			failed = true
		}
	}

	status := metrics.StatusSuccess
	if failed {
		status = metrics.StatusError
		ms.recorder.RecordError(metrics.OpUpdate, "analyze")
	}
	ms.recorder.RecordOperation(metrics.OpUpdate, status)
	ms.recorder.RecordDuration(metrics.OpUpdate, time.Since(start).Seconds())
}

// Release closes every processor. Engines stay open for other controllers.
func (ms *MotionSync) Release() {
	for i, s := range ms.states {
		if s == nil {
			continue
		}
		s.processor.Close()
		ms.states[i] = nil
	}
	ms.log.Debug("controller released")
}

// processorState is the per-setting filter and buffer state.
type processorState struct {
	processor *engine.Processor
	setting   *data.Setting
	log       logger.Logger
	warn      *rate.Limiter

	blendRatio float64
	smoothing  int
	sampleRate float64
	levelRatio float64

	buffer []float32
	cursor int

	lastSmoothed       []float64
	lastDamped         []float64
	elapsed            float64
	lastTotalProcessed int
	// result is the last successful analysis; scratch receives each call.
	result  *engine.AnalysisResult
	scratch *engine.AnalysisResult
}

func newProcessorState(p *engine.Processor, s *data.Setting, m model.Parameters, levelRatio float64, log logger.Logger) *processorState {
	ps := &processorState{
		processor:  p,
		setting:    s,
		log:        log,
		warn:       rate.NewLimiter(rate.Every(analyzeWarnInterval), 1),
		blendRatio: DefaultBlendRatio,
		smoothing:  DefaultSmoothing,
		sampleRate: DefaultSampleRate,
		levelRatio: levelRatio,
		result:     engine.NewAnalysisResult(len(s.CubismParameters)),
		scratch:    engine.NewAnalysisResult(len(s.CubismParameters)),
	}
	ps.init(m)
	return ps
}

// init seeds the filter history from the model and applies the setting's post-processing.
func (ps *processorState) init(m model.Parameters) {
	n := len(ps.setting.CubismParameters)
	ps.elapsed = 0
	ps.lastSmoothed = make([]float64, n)
	ps.lastDamped = make([]float64, n)
	for i, cp := range ps.setting.CubismParameters {
		v := model.Value(m, cp.ParameterIndex)
		ps.lastSmoothed[i] = v
		ps.lastDamped[i] = v
	}

	ps.blendRatio = ps.setting.BlendRatio
	ps.smoothing = ps.setting.Smoothing
	if ps.setting.SampleRate > 0 {
		ps.sampleRate = ps.setting.SampleRate
	}
	ps.lastTotalProcessed = 0
}

// update runs one frame for the setting and reports whether analysis succeeded.
func (ps *processorState) update(m model.Parameters, dt float64) bool {
	ps.lastTotalProcessed = 0
	ps.elapsed += dt

	tick := 1 / ps.sampleRate
	if ps.elapsed < tick {
		ps.apply(m)
		return true
	}

	ok := ps.analyze()
	ps.elapsed = math.Mod(ps.elapsed, tick)
	ps.apply(m)
	return ok
}

// analyze drains the buffer in backend-sized chunks and filters every result.
func (ps *processorState) analyze() bool {
	if ps.buffer == nil {
		return true
	}

	require := ps.processor.RequireSampleCount()
	for require > 0 && len(ps.buffer)-ps.cursor >= require {
		err := ps.processor.Analyze(ps.buffer, ps.cursor, ps.blendRatio, ps.smoothing, ps.levelRatio, ps.scratch)
		if err != nil {
			if ps.warn.Allow() {
				ps.log.Warn("analysis failed, keeping last values", logger.Error(err))
			}
			return false
		}

		processed := ps.scratch.ProcessedSampleCount
		if processed <= 0 {
			break
		}
		ps.cursor += processed
		ps.lastTotalProcessed += processed
		ps.result.CopyFrom(ps.scratch)

		for i, raw := range ps.result.Values {
			if i >= len(ps.setting.CubismParameters) || math.IsNaN(raw) {
				continue
			}
			cp := ps.setting.CubismParameters[i]
			ps.lastSmoothed[i], ps.lastDamped[i] = filter(raw, ps.lastSmoothed[i], ps.lastDamped[i], cp.Smooth, cp.Damper)
		}

		require = ps.processor.RequireSampleCount()
	}
	return true
}

// apply writes the damped values of every slot the last result updated.
func (ps *processorState) apply(m model.Parameters) {
	for i, v := range ps.result.Values {
		if i >= len(ps.setting.CubismParameters) || math.IsNaN(v) {
			continue
		}
		model.SetValue(m, ps.setting.CubismParameters[i].ParameterIndex, ps.lastDamped[i])
	}
}

// filter applies exponential smoothing followed by a deadband.
// smooth is the percentage of the previous smoothed value kept. A smoothed value closer
// than damper to the previous damped value leaves the damped value unchanged.
func filter(raw, prevSmoothed, prevDamped float64, smooth int, damper float64) (smoothed, damped float64) {
	s := float64(smooth)
	smoothed = ((100-s)*raw + s*prevSmoothed) / 100
	if math.Abs(smoothed-prevDamped) < damper {
		return smoothed, prevDamped
	}
	return smoothed, smoothed
}
