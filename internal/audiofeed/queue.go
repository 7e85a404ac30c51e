package audiofeed

import (
	"context"
	"encoding/binary"
	"io"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/smallnest/ringbuffer"

	"github.com/tphakala/motionsync-go/internal/errors"
	"github.com/tphakala/motionsync-go/internal/logger"
	"github.com/tphakala/motionsync-go/internal/observability/metrics"
)

const (
	bytesPerSample = 4
	// writeRetryInterval bounds how long a blocked writer waits before checking for space again.
	writeRetryInterval = 10 * time.Millisecond
	// warningCapacityThreshold triggers a fill level warning.
	warningCapacityThreshold = 0.9
)

// Queue is a bounded FIFO of float32 samples stored little-endian in a ring buffer.
// One producer and one consumer may use it concurrently.
type Queue struct {
	mu      sync.Mutex
	rb      *ringbuffer.RingBuffer
	space   chan struct{}
	closed  atomic.Bool
	metrics *metrics.AudioFeedMetrics
	log     logger.Logger

	warnings int
}

// QueueOption configures a Queue.
type QueueOption func(*Queue)

// WithMetrics records decoded, drained and stalled counts.
func WithMetrics(m *metrics.AudioFeedMetrics) QueueOption {
	return func(q *Queue) { q.metrics = m }
}

// WithLogger sets the queue logger.
func WithLogger(l logger.Logger) QueueOption {
	return func(q *Queue) {
		if l != nil {
			q.log = l
		}
	}
}

// NewQueue creates a queue holding capacity samples.
func NewQueue(capacity int, opts ...QueueOption) (*Queue, error) {
	if capacity <= 0 {
		return nil, errors.Newf("queue capacity must be positive, got %d", capacity).
			Component(ComponentAudioFeed).
			Category(errors.CategoryValidation).
			Build()
	}
	q := &Queue{
		rb:    ringbuffer.New(capacity * bytesPerSample),
		space: make(chan struct{}, 1),
		log:   GetLogger(),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q, nil
}

// Capacity returns the queue size in samples.
func (q *Queue) Capacity() int {
	return q.rb.Capacity() / bytesPerSample
}

// Len returns the queued sample count.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.rb.Length() / bytesPerSample
}

// Write queues every sample, waiting for the consumer while the queue is full.
func (q *Queue) Write(ctx context.Context, samples []float32) error {
	if q.closed.Load() {
		return errors.Newf("write to closed queue").
			Component(ComponentAudioFeed).
			Category(errors.CategoryState).
			Build()
	}

	buf := make([]byte, len(samples)*bytesPerSample)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(buf[i*bytesPerSample:], math.Float32bits(s))
	}

	for len(buf) > 0 {
		q.mu.Lock()
		free := q.rb.Free() / bytesPerSample * bytesPerSample
		var written int
		var err error
		if free > 0 {
			written, err = q.rb.Write(buf[:min(free, len(buf))])
		}
		q.checkFillLocked()
		q.mu.Unlock()

		if err != nil && !errors.Is(err, ringbuffer.ErrIsFull) {
			return errors.New(err).
				Component(ComponentAudioFeed).
				Category(errors.CategoryBuffer).
				Build()
		}
		buf = buf[written:]
		if len(buf) == 0 {
			break
		}

		q.metrics.RecordStall()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-q.space:
		case <-time.After(writeRetryInterval):
		}
	}

	q.metrics.RecordDecoded(len(samples))
	return nil
}

func (q *Queue) checkFillLocked() {
	used := float64(q.rb.Length()) / float64(q.rb.Capacity())
	if used <= warningCapacityThreshold {
		return
	}
	q.warnings++
	if q.warnings%32 == 1 {
		q.log.Debug("sample queue nearly full",
			logger.Float64("fill_ratio", used),
			logger.Int("capacity_samples", q.rb.Capacity()/bytesPerSample))
	}
}

// Read moves up to len(dst) queued samples into dst and returns the count.
// It never blocks. After CloseWrite and once the queue is empty it returns io.EOF.
func (q *Queue) Read(dst []float32) (int, error) {
	closed := q.closed.Load()
	q.mu.Lock()
	avail := q.rb.Length() / bytesPerSample
	n := min(avail, len(dst))
	var buffered int
	if n > 0 {
		raw := make([]byte, n*bytesPerSample)
		if _, err := q.rb.Read(raw); err != nil {
			q.mu.Unlock()
			return 0, errors.New(err).
				Component(ComponentAudioFeed).
				Category(errors.CategoryBuffer).
				Build()
		}
		for i := range n {
			dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*bytesPerSample:]))
		}
	}
	buffered = q.rb.Length()
	q.mu.Unlock()

	if n > 0 {
		q.metrics.RecordDrained(n, buffered)
		select {
		case q.space <- struct{}{}:
		default:
		}
		return n, nil
	}
	if closed {
		return 0, io.EOF
	}
	return 0, nil
}

// CloseWrite marks the end of the stream. Queued samples can still be read.
func (q *Queue) CloseWrite() {
	q.closed.Store(true)
}

// Feed decodes d into q until the stream ends or ctx is done, then closes the queue
// for writing.
func Feed(ctx context.Context, d *Decoder, q *Queue) error {
	defer q.CloseWrite()
	total := 0
	for {
		chunk, err := d.Read()
		if err == io.EOF {
			q.log.Debug("decoder drained", logger.Int("samples", total))
			return nil
		}
		if err != nil {
			return err
		}
		if err := q.Write(ctx, chunk); err != nil {
			return err
		}
		total += len(chunk)
	}
}
