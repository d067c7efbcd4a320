package telemetry

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-orbitarm/internal/log"
)

// RecorderOptions tunes the asynchronous writer
type RecorderOptions struct {
	BufferSize    int           // Ticks queued before Record starts dropping
	BatchSize     int           // Ticks per transaction
	FlushInterval time.Duration // Max time a tick waits before being written
}

// DefaultRecorderOptions suits a 60 Hz loop: about one transaction per second
func DefaultRecorderOptions() RecorderOptions {
	return RecorderOptions{
		BufferSize:    1024,
		BatchSize:     60,
		FlushInterval: time.Second,
	}
}

// Recorder writes ticks to a Store without blocking the control loop
type Recorder struct {
	store *Store
	opts  RecorderOptions

	mu     sync.RWMutex
	ch     chan Tick
	closed bool
	done   chan struct{}

	written atomic.Uint64
	dropped atomic.Uint64
	errors  atomic.Uint64
}

// NewRecorder starts a background writer for store
func NewRecorder(store *Store, opts RecorderOptions) *Recorder {
	def := DefaultRecorderOptions()
	if opts.BufferSize <= 0 {
		opts.BufferSize = def.BufferSize
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = def.BatchSize
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = def.FlushInterval
	}

	r := &Recorder{
		store: store,
		opts:  opts,
		ch:    make(chan Tick, opts.BufferSize),
		done:  make(chan struct{}),
	}
	go r.run()
	return r
}

// Record queues a tick. It never blocks; when the buffer is full the tick
// is dropped and counted.
func (r *Recorder) Record(t Tick) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.dropped.Add(1)
		return
	}

	select {
	case r.ch <- t:
	default:
		r.dropped.Add(1)
	}
}

// Close flushes queued ticks and stops the writer
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.ch)
	r.mu.Unlock()

	<-r.done
	return nil
}

// Written returns how many ticks reached the database
func (r *Recorder) Written() uint64 { return r.written.Load() }

// Dropped returns how many ticks were discarded because the buffer was full
func (r *Recorder) Dropped() uint64 { return r.dropped.Load() }

func (r *Recorder) run() {
	defer close(r.done)

	ticker := time.NewTicker(r.opts.FlushInterval)
	defer ticker.Stop()

	batch := make([]Tick, 0, r.opts.BatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := r.store.Insert(ctx, batch...)
		cancel()
		if err != nil {
			// Log the first failure and then every 100th
			if n := r.errors.Add(1); n == 1 || n%100 == 0 {
				log.Warn("telemetry write failed", "error", err, "ticks", len(batch), "failures", n)
			}
		} else {
			r.written.Add(uint64(len(batch)))
		}
		batch = batch[:0]
	}

	for {
		select {
		case t, ok := <-r.ch:
			if !ok {
				flush()
				return
			}
			batch = append(batch, t)
			if len(batch) >= r.opts.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
