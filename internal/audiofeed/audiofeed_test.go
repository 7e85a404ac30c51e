package audiofeed

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tphakala/motionsync-go/internal/errors"
	"github.com/tphakala/motionsync-go/internal/observability/metrics"
	"github.com/tphakala/motionsync-go/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestDecoderMono16(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	testutil.WriteWAV(t, fs, "/mono.wav", 16000, 16, 1, []int{0, 16384, -16384, 32767, -32768})

	d, err := Open(fs, "/mono.wav")
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	assert.Equal(t, Format{SampleRate: 16000, Channels: 1, BitDepth: 16}, d.Format())

	samples, err := d.ReadAll()
	require.NoError(t, err)
	require.Len(t, samples, 5)
	assert.InDelta(t, 0.0, samples[0], 1e-6)
	assert.InDelta(t, 0.5, samples[1], 1e-6)
	assert.InDelta(t, -0.5, samples[2], 1e-6)
	assert.InDelta(t, 1.0, samples[3], 1e-4)
	assert.InDelta(t, -1.0, samples[4], 1e-6)

	_, err = d.Read()
	assert.ErrorIs(t, err, io.EOF)
}

func TestDecoderStereoDownmix(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	testutil.WriteWAV(t, fs, "/stereo.wav", 48000, 16, 2, []int{16384, 0, -16384, -16384})

	d, err := Open(fs, "/stereo.wav")
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	samples, err := d.ReadAll()
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.InDelta(t, 0.25, samples[0], 1e-6)
	assert.InDelta(t, -0.5, samples[1], 1e-6)
}

func TestDecoderRejectsInput(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/bad.wav", []byte("definitely not a riff header"), 0o600))
	testutil.WriteWAV(t, fs, "/8bit.wav", 16000, 8, 1, []int{1, 2, 3})

	tests := []struct {
		name     string
		path     string
		category errors.ErrorCategory
	}{
		{"missing file", "/missing.wav", errors.CategoryFileIO},
		{"not a wav", "/bad.wav", errors.CategoryFileParsing},
		{"unsupported bit depth", "/8bit.wav", errors.CategoryValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d, err := Open(fs, tt.path)
			require.Error(t, err)
			assert.Nil(t, d)
			assert.True(t, errors.IsCategory(err, tt.category), "got %v", err)
		})
	}
}

func TestQueueRoundTrip(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, err := metrics.NewAudioFeedMetrics(reg)
	require.NoError(t, err)

	q, err := NewQueue(8, WithMetrics(m))
	require.NoError(t, err)
	assert.Equal(t, 8, q.Capacity())

	require.NoError(t, q.Write(t.Context(), []float32{0.1, -0.2, 0.3}))
	assert.Equal(t, 3, q.Len())

	dst := make([]float32, 2)
	n, err := q.Read(dst)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []float32{0.1, -0.2}, dst)

	n, err = q.Read(dst)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.InDelta(t, 0.3, dst[0], 1e-7)

	n, err = q.Read(dst)
	require.NoError(t, err, "empty open queue is not EOF")
	assert.Zero(t, n)

	q.CloseWrite()
	_, err = q.Read(dst)
	assert.ErrorIs(t, err, io.EOF)

	assert.InDelta(t, 3, promtestutil.ToFloat64(m.SamplesDecoded), 0)
	assert.InDelta(t, 3, promtestutil.ToFloat64(m.SamplesDrained), 0)
	assert.InDelta(t, 0, promtestutil.ToFloat64(m.BufferedBytes), 0)
}

func TestQueueRejectsBadInput(t *testing.T) {
	t.Parallel()

	_, err := NewQueue(0)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))

	q, err := NewQueue(4)
	require.NoError(t, err)
	q.CloseWrite()
	err = q.Write(t.Context(), []float32{1})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryState))
}

func TestQueueWriteBlocksUntilDrained(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, err := metrics.NewAudioFeedMetrics(reg)
	require.NoError(t, err)
	q, err := NewQueue(4, WithMetrics(m))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		done <- q.Write(t.Context(), []float32{1, 2, 3, 4, 5, 6})
	}()

	require.Eventually(t, func() bool { return q.Len() == 4 }, testutil.ShortTestTimeout, time.Millisecond)
	testutil.RequireBlocked(t, done, "write must wait for space")

	got := make([]float32, 0, 6)
	dst := make([]float32, 3)
	deadline := time.Now().Add(testutil.ShortTestTimeout)
	for len(got) < 6 && time.Now().Before(deadline) {
		n, err := q.Read(dst)
		require.NoError(t, err)
		got = append(got, dst[:n]...)
		if n == 0 {
			time.Sleep(time.Millisecond)
		}
	}

	require.NoError(t, testutil.WaitForError(t, done, testutil.ShortTestTimeout, "write did not finish"))
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, got)
	assert.Positive(t, promtestutil.ToFloat64(m.WriteStalls))
}

func TestQueueWriteHonorsContext(t *testing.T) {
	t.Parallel()

	q, err := NewQueue(2)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(t.Context(), 30*time.Millisecond)
	defer cancel()
	err = q.Write(ctx, []float32{1, 2, 3})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 2, q.Len())
}

func TestFeed(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	data := make([]int, DefaultChunkFrames+100)
	for i := range data {
		data[i] = (i % 200) * 100
	}
	testutil.WriteWAV(t, fs, "/feed.wav", 16000, 16, 1, data)

	d, err := Open(fs, "/feed.wav")
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	q, err := NewQueue(1024)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- Feed(t.Context(), d, q) }()

	total := 0
	dst := make([]float32, 300)
	for {
		n, err := q.Read(dst)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		if n > 0 {
			assert.InDelta(t, float32(data[total])/32768.0, dst[0], 1e-6)
		} else {
			time.Sleep(time.Millisecond)
		}
		total += n
	}
	require.NoError(t, testutil.WaitForError(t, done, testutil.DefaultTestTimeout, "feed did not finish"))
	assert.Equal(t, len(data), total)
}

func TestDecoderChunkFrames(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	testutil.WriteWAV(t, fs, "/chunks.wav", 16000, 24, 1, []int{1 << 22, 0, -(1 << 22), 0, 1 << 21})

	d, err := Open(fs, "/chunks.wav")
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	d.SetChunkFrames(2)
	d.SetChunkFrames(0)

	var sizes []int
	for {
		chunk, err := d.Read()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		sizes = append(sizes, len(chunk))
		if len(sizes) == 1 {
			assert.InDelta(t, 0.5, chunk[0], 1e-6)
		}
	}
	assert.Equal(t, []int{2, 2, 1}, sizes)
}
