// Package audiofeed decodes WAV files into mono float32 samples and queues them
// between a decoding producer and a frame-paced consumer.
package audiofeed

import (
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/spf13/afero"

	"github.com/tphakala/motionsync-go/internal/errors"
	"github.com/tphakala/motionsync-go/internal/logger"
)

// ComponentAudioFeed identifies this package in enhanced errors.
const ComponentAudioFeed = "audiofeed"

// DefaultChunkFrames is the PCM read size when none is given.
const DefaultChunkFrames = 4096

// Format describes the decoded stream.
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// Decoder reads a WAV stream and downmixes it to mono.
type Decoder struct {
	dec     *wav.Decoder
	closer  io.Closer
	format  Format
	divisor float32
	buf     *audio.IntBuffer
	log     logger.Logger
}

// GetLogger returns the package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("audiofeed")
}

// Open opens path on fs and validates the WAV header.
func Open(fs afero.Fs, path string) (*Decoder, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, errors.New(err).
			Component(ComponentAudioFeed).
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	d, err := NewDecoder(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	d.closer = f
	return d, nil
}

// NewDecoder validates the WAV header of r. Only 16, 24 and 32 bit integer PCM with one or
// two channels is accepted.
func NewDecoder(r io.ReadSeeker) (*Decoder, error) {
	dec := wav.NewDecoder(r)
	dec.ReadInfo()
	if !dec.IsValidFile() {
		return nil, errors.Newf("input is not a valid WAV audio file").
			Component(ComponentAudioFeed).
			Category(errors.CategoryFileParsing).
			Build()
	}

	divisor, err := audioDivisor(int(dec.BitDepth))
	if err != nil {
		return nil, err
	}
	if dec.NumChans != 1 && dec.NumChans != 2 {
		return nil, errors.Newf("unsupported number of channels: %d", dec.NumChans).
			Component(ComponentAudioFeed).
			Category(errors.CategoryValidation).
			Build()
	}

	format := Format{
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		BitDepth:   int(dec.BitDepth),
	}
	d := &Decoder{
		dec:     dec,
		format:  format,
		divisor: divisor,
		buf: &audio.IntBuffer{
			Data:   make([]int, DefaultChunkFrames*format.Channels),
			Format: &audio.Format{SampleRate: format.SampleRate, NumChannels: format.Channels},
		},
		log: GetLogger(),
	}
	d.log.Debug("wav stream opened",
		logger.Int("sample_rate", format.SampleRate),
		logger.Int("channels", format.Channels),
		logger.Int("bit_depth", format.BitDepth))
	return d, nil
}

func audioDivisor(bitDepth int) (float32, error) {
	switch bitDepth {
	case 16:
		return 32768.0, nil
	case 24:
		return 8388608.0, nil
	case 32:
		return 2147483648.0, nil
	default:
		return 0, errors.Newf("unsupported bit depth: %d", bitDepth).
			Component(ComponentAudioFeed).
			Category(errors.CategoryValidation).
			Context("bit_depth", bitDepth).
			Build()
	}
}

// SetChunkFrames changes how many frames Read decodes at once. Non-positive values are ignored.
func (d *Decoder) SetChunkFrames(frames int) {
	if frames <= 0 {
		return
	}
	d.buf.Data = make([]int, frames*d.format.Channels)
}

// Format returns the stream format.
func (d *Decoder) Format() Format { return d.format }

// Read decodes up to one chunk of frames as mono samples in [-1, 1).
// It returns io.EOF once the stream is exhausted.
func (d *Decoder) Read() ([]float32, error) {
	n, err := d.dec.PCMBuffer(d.buf)
	if err != nil {
		return nil, errors.New(fmt.Errorf("error decoding pcm: %w", err)).
			Component(ComponentAudioFeed).
			Category(errors.CategoryAudio).
			Build()
	}
	if n == 0 {
		return nil, io.EOF
	}

	ch := d.format.Channels
	frames := n / ch
	out := make([]float32, frames)
	for i := range frames {
		var sum int
		for c := range ch {
			sum += d.buf.Data[i*ch+c]
		}
		out[i] = float32(sum) / float32(ch) / d.divisor
	}
	return out, nil
}

// ReadAll decodes the remaining stream.
func (d *Decoder) ReadAll() ([]float32, error) {
	var all []float32
	for {
		chunk, err := d.Read()
		if err == io.EOF {
			return all, nil
		}
		if err != nil {
			return all, err
		}
		all = append(all, chunk...)
	}
}

// Close closes the underlying file when the decoder was created by Open.
func (d *Decoder) Close() error {
	if d.closer == nil {
		return nil
	}
	return d.closer.Close()
}
