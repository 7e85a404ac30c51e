package testutil

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// WriteWAV encodes interleaved integer PCM samples as a WAV file on fs.
func WriteWAV(t *testing.T, fs afero.Fs, path string, rate, bitDepth, channels int, data []int) {
	t.Helper()
	require.NoError(t, fs.MkdirAll(filepath.Dir(path), 0o755))
	f, err := fs.Create(path)
	require.NoError(t, err)
	enc := wav.NewEncoder(f, rate, bitDepth, channels, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{SampleRate: rate, NumChannels: channels},
		SourceBitDepth: bitDepth,
	}))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())
}

// Tones returns seconds of summed sine tones as 16-bit PCM, each at amplitude amp.
func Tones(rate int, seconds, amp float64, freqs ...float64) []int {
	n := int(float64(rate) * seconds)
	out := make([]int, n)
	for i := range out {
		ts := float64(i) / float64(rate)
		var v float64
		for _, f := range freqs {
			v += amp * math.Sin(2*math.Pi*f*ts)
		}
		out[i] = int(max(-1, min(1, v)) * math.MaxInt16)
	}
	return out
}
