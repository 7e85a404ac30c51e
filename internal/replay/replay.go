// Package replay plays a WAV file through a motion sync controller at a fixed frame rate
// and emits the avatar parameter values of every frame.
package replay

import (
	"context"
	"io"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/tphakala/motionsync-go/internal/audiofeed"
	"github.com/tphakala/motionsync-go/internal/conf"
	"github.com/tphakala/motionsync-go/internal/errors"
	"github.com/tphakala/motionsync-go/internal/logger"
	"github.com/tphakala/motionsync-go/internal/motionsync"
	"github.com/tphakala/motionsync-go/internal/motionsync/data"
	"github.com/tphakala/motionsync-go/internal/motionsync/engine"
	"github.com/tphakala/motionsync-go/internal/motionsync/model"
	"github.com/tphakala/motionsync-go/internal/observability"
)

// ComponentReplay identifies this package in enhanced errors.
const ComponentReplay = "replay"

// modelSettingSuffix marks a model setting file instead of a settings document.
const modelSettingSuffix = ".model3.json"

// producerWait is how long the frame loop waits for the decoder when the queue is empty.
const producerWait = time.Millisecond

// Options selects the inputs of a replay.
type Options struct {
	// SettingsPath is a motionsync3.json document or a model3.json that references one.
	SettingsPath string
	// AudioPath is the WAV file to play. Empty uses the first sound file of a model setting.
	AudioPath string
	// Output receives the frame rows.
	Output io.Writer
	// Fs defaults to the OS filesystem.
	Fs afero.Fs
	// Metrics is optional. When set, the endpoint and textfile settings apply.
	Metrics *observability.Metrics
	// Logger defaults to the package logger.
	Logger logger.Logger
}

// Summary describes a finished replay.
type Summary struct {
	Frames     int
	Samples    int
	Processed  int
	Processors int
	SampleRate int
	Final      map[string]float64
}

// GetLogger returns the package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("replay")
}

// Run replays opts.AudioPath through the settings at opts.SettingsPath.
// The decoder and the frame loop run concurrently and stop together on the first error.
func Run(ctx context.Context, settings *conf.Settings, opts Options) (*Summary, error) {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Output == nil {
		opts.Output = io.Discard
	}
	log := opts.Logger
	if log == nil {
		log = GetLogger()
	}

	doc, audioPath, err := loadInputs(settings, opts, log)
	if err != nil {
		return nil, err
	}

	table, err := BuildModel(doc)
	if err != nil {
		return nil, err
	}

	dec, err := audiofeed.Open(opts.Fs, audioPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = dec.Close() }()
	dec.SetChunkFrames(settings.Replay.ChunkSamples)

	sampleRate := dec.Format().SampleRate
	if sampleRate <= 0 {
		sampleRate = int(settings.Engine.SampleRate)
	}

	fw := motionsync.NewFramework()
	option := motionsync.Option{
		Logger:                log.Module("motionsync"),
		Engine:                engine.Config{BitDepth: settings.Engine.BitDepth},
		AudioLevelEffectRatio: settings.Engine.AudioLevelRatio,
	}
	queueOpts := []audiofeed.QueueOption{audiofeed.WithLogger(log.Module("audiofeed"))}
	if opts.Metrics != nil {
		option.Metrics = opts.Metrics.MotionSync
		queueOpts = append(queueOpts, audiofeed.WithMetrics(opts.Metrics.AudioFeed))
	}
	fw.StartUp(option)
	fw.Initialize()
	defer fw.CleanUp()

	ms := fw.Create(table, doc, float64(sampleRate))
	if ms == nil || ms.ProcessorCount() == 0 {
		return nil, errors.Newf("no setting of %s could be processed at %d Hz", opts.SettingsPath, sampleRate).
			Component(ComponentReplay).
			Category(errors.CategoryProcessing).
			Context("sample_rate", sampleRate).
			Build()
	}
	defer ms.Release()

	queue, err := audiofeed.NewQueue(max(1, settings.Replay.BufferCapacity/4), queueOpts...)
	if err != nil {
		return nil, err
	}

	out, err := NewFrameWriter(settings.Replay.Output, opts.Output)
	if err != nil {
		return nil, err
	}

	log.Info("replay starting",
		logger.String("settings", opts.SettingsPath),
		logger.String("audio", audioPath),
		logger.Int("sample_rate", sampleRate),
		logger.Int("frame_rate", settings.Replay.FrameRate),
		logger.Int("processors", ms.ProcessorCount()),
		logger.Bool("realtime", settings.Replay.Realtime))

	p := &player{
		ms:         ms,
		table:      table,
		queue:      queue,
		out:        out,
		frameRate:  settings.Replay.FrameRate,
		sampleRate: sampleRate,
		realtime:   settings.Replay.Realtime,
		log:        log,
	}

	g, gctx := errgroup.WithContext(ctx)
	runCtx, stop := context.WithCancel(gctx)
	defer stop()

	if opts.Metrics != nil && settings.Metrics.Listen != "" {
		ep, err := observability.NewEndpoint(settings, opts.Metrics)
		if err != nil {
			return nil, err
		}
		g.Go(func() error { return ep.Run(runCtx) })
	}
	g.Go(func() error { return audiofeed.Feed(runCtx, dec, queue) })
	g.Go(func() error {
		defer stop()
		return p.run(runCtx)
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if opts.Metrics != nil && settings.Metrics.Textfile != "" {
		if err := opts.Metrics.WriteTextfile(settings.Metrics.Textfile); err != nil {
			return nil, err
		}
	}

	summary := p.summary()
	summary.Processors = ms.ProcessorCount()
	log.Info("replay finished",
		logger.Int("frames", summary.Frames),
		logger.Int("samples", summary.Samples),
		logger.Int("processed", summary.Processed))
	return summary, nil
}

// loadInputs resolves the settings document and the audio path.
func loadInputs(settings *conf.Settings, opts Options, log logger.Logger) (*data.Data, string, error) {
	loader := data.NewLoader(opts.Fs, settings.Replay.CacheTTL, log.Module("data"))

	if !strings.HasSuffix(strings.ToLower(opts.SettingsPath), modelSettingSuffix) {
		doc, err := loader.Load(opts.SettingsPath)
		if err != nil {
			return nil, "", err
		}
		if opts.AudioPath == "" {
			return nil, "", errors.Newf("no audio file given for %s", opts.SettingsPath).
				Component(ComponentReplay).
				Category(errors.CategoryValidation).
				Build()
		}
		return doc, opts.AudioPath, nil
	}

	ms, doc, err := loader.LoadModelSetting(opts.SettingsPath)
	if err != nil {
		return nil, "", err
	}
	if doc == nil {
		return nil, "", errors.Newf("model setting %s has no motion sync file", opts.SettingsPath).
			Component(ComponentReplay).
			Category(errors.CategoryConfiguration).
			Build()
	}

	audioPath := opts.AudioPath
	if audioPath == "" {
		if len(ms.SoundFiles) == 0 {
			return nil, "", errors.Newf("model setting %s lists no sound files", opts.SettingsPath).
				Component(ComponentReplay).
				Category(errors.CategoryValidation).
				Build()
		}
		audioPath = filepath.Join(filepath.Dir(opts.SettingsPath), ms.SoundFiles[0])
		log.Debug("using model sound file", logger.String("path", audioPath))
	}
	return doc, audioPath, nil
}

// player is the frame loop consumer.
type player struct {
	ms         *motionsync.MotionSync
	table      *model.ParameterTable
	queue      *audiofeed.Queue
	out        FrameWriter
	frameRate  int
	sampleRate int
	realtime   bool
	log        logger.Logger

	buffers   [][]float32
	frames    int
	samples   int
	processed int
}

func (p *player) ids() []string {
	ids := make([]string, p.table.ParameterCount())
	for i := range ids {
		ids[i] = p.table.ParameterID(i)
	}
	return ids
}

func (p *player) run(ctx context.Context) error {
	dt := 1.0 / float64(p.frameRate)
	perFrame := max(1, int(math.Round(float64(p.sampleRate)*dt)))
	chunk := make([]float32, perFrame)
	p.buffers = make([][]float32, p.ms.Data().SettingCount())

	ids := p.ids()
	if err := p.out.WriteHeader(ids); err != nil {
		return err
	}

	var ticker *time.Ticker
	if p.realtime {
		ticker = time.NewTicker(time.Duration(dt * float64(time.Second)))
		defer ticker.Stop()
	}

	for {
		n, eof, err := p.fill(ctx, chunk)
		if err != nil {
			return err
		}
		if n == 0 && eof {
			break
		}
		p.step(chunk[:n], dt)

		values := p.table.Snapshot()
		row := Frame{
			Index:     p.frames,
			Time:      float64(p.frames) * dt,
			Processed: p.lastProcessed(),
			Values:    make(map[string]float64, len(ids)),
		}
		for i, id := range ids {
			row.Values[id] = values[i]
		}
		if err := p.out.WriteFrame(row); err != nil {
			return err
		}
		p.frames++

		if ticker != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
	}
	return p.out.Flush()
}

// fill reads up to len(dst) samples, waiting for the decoder while the queue is empty.
func (p *player) fill(ctx context.Context, dst []float32) (n int, eof bool, err error) {
	for n < len(dst) {
		got, err := p.queue.Read(dst[n:])
		if err == io.EOF {
			return n, true, nil
		}
		if err != nil {
			return n, false, err
		}
		n += got
		if got > 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return n, false, ctx.Err()
		case <-time.After(producerWait):
		}
	}
	return n, false, nil
}

// step appends samples to every setting's pending buffer, updates the controller and
// drops what the processors consumed.
func (p *player) step(samples []float32, dt float64) {
	p.samples += len(samples)
	for i := range p.buffers {
		if !p.ms.HasProcessor(i) {
			continue
		}
		p.buffers[i] = append(p.buffers[i], samples...)
		p.ms.SetSoundBuffer(i, p.buffers[i], 0)
	}

	p.ms.Update(dt)

	for i, buf := range p.buffers {
		if !p.ms.HasProcessor(i) {
			continue
		}
		p.processed += p.ms.GetLastTotalProcessedCount(i)
		pending := p.ms.PendingSampleCount(i)
		n := copy(buf, buf[len(buf)-pending:])
		p.buffers[i] = buf[:n]
	}
}

func (p *player) lastProcessed() int {
	total := 0
	for i := range p.buffers {
		total += p.ms.GetLastTotalProcessedCount(i)
	}
	return total
}

func (p *player) summary() *Summary {
	final := make(map[string]float64, p.table.ParameterCount())
	for i, v := range p.table.Snapshot() {
		final[p.table.ParameterID(i)] = v
	}
	return &Summary{
		Frames:     p.frames,
		Samples:    p.samples,
		Processed:  p.processed,
		SampleRate: p.sampleRate,
		Final:      final,
	}
}
