package render

import (
	"image"
	"sync"
	"sync/atomic"

	"github.com/teslashibe/go-orbitarm/internal/log"
	"github.com/teslashibe/go-orbitarm/pkg/arm"
)

// FrameSinkOptions configures a FrameSink
type FrameSinkOptions struct {
	Every int // Render one pose out of Every (1 = all)
	Width int // Thumbnail width, 0 keeps the canvas size
}

// DefaultFrameSinkOptions renders 15 frames per second at 60 FPS
func DefaultFrameSinkOptions() FrameSinkOptions {
	return FrameSinkOptions{Every: 4, Width: 400}
}

// FrameSink renders poses to WebP frames off the tick goroutine.
// When the encoder falls behind, older pending poses are replaced by newer
// ones.
type FrameSink struct {
	canvas  *Canvas
	opts    FrameSinkOptions
	publish func(frame []byte)

	count   atomic.Uint64
	pending chan arm.Pose
	done    chan struct{}

	mu     sync.RWMutex
	closed bool

	frames  atomic.Uint64
	skipped atomic.Uint64
}

// NewFrameSink starts a renderer that passes each encoded frame to publish
func NewFrameSink(canvas *Canvas, opts FrameSinkOptions, publish func(frame []byte)) *FrameSink {
	if opts.Every <= 0 {
		opts.Every = 1
	}
	s := &FrameSink{
		canvas:  canvas,
		opts:    opts,
		publish: publish,
		pending: make(chan arm.Pose, 1),
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

// RenderPose queues the pose if it is due. It never blocks.
func (s *FrameSink) RenderPose(pose arm.Pose) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}

	n := s.count.Add(1)
	if (n-1)%uint64(s.opts.Every) != 0 {
		return
	}

	select {
	case s.pending <- pose:
	default:
		// Replace the stale pose
		select {
		case <-s.pending:
			s.skipped.Add(1)
		default:
		}
		select {
		case s.pending <- pose:
		default:
			s.skipped.Add(1)
		}
	}
}

// Frames returns how many frames were published
func (s *FrameSink) Frames() uint64 { return s.frames.Load() }

// Skipped returns how many due poses were never rendered
func (s *FrameSink) Skipped() uint64 { return s.skipped.Load() }

// Close stops the renderer after the pending pose is drawn
func (s *FrameSink) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.pending)
	s.mu.Unlock()

	<-s.done
}

func (s *FrameSink) run() {
	defer close(s.done)

	img := image.NewRGBA(image.Rect(0, 0, s.canvas.Width, s.canvas.Height))
	for pose := range s.pending {
		s.canvas.DrawInto(img, pose, nil)

		frame, err := WebPBytes(Thumbnail(img, s.opts.Width))
		if err != nil {
			log.Warn("frame encode failed", "error", err)
			continue
		}
		s.frames.Add(1)
		if s.publish != nil {
			s.publish(frame)
		}
	}
}
