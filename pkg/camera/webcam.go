package camera

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"gocv.io/x/gocv"
)

var (
	// ErrClosed is returned when capturing from a closed webcam
	ErrClosed = errors.New("camera: closed")

	// ErrNoFrame is returned when the device delivers no frame
	ErrNoFrame = errors.New("camera: no frame")
)

// Webcam captures JPEG frames from a local OpenCV device
type Webcam struct {
	config Config
	cap    *gocv.VideoCapture
	frame  gocv.Mat

	mu     sync.Mutex
	closed bool
}

// Open opens the device and applies the requested resolution and rate
func Open(cfg Config) (*Webcam, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid camera config: %s", strings.Join(errs, "; "))
	}

	vc, err := gocv.OpenVideoCapture(cfg.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("open camera %d: %w", cfg.DeviceID, err)
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	vc.Set(gocv.VideoCaptureFPS, float64(cfg.Framerate))

	return &Webcam{
		config: cfg,
		cap:    vc,
		frame:  gocv.NewMat(),
	}, nil
}

// Config returns the requested settings
func (w *Webcam) Config() Config {
	return w.config
}

// CaptureJPEG reads one frame and encodes it as JPEG
func (w *Webcam) CaptureJPEG() ([]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil, ErrClosed
	}
	if ok := w.cap.Read(&w.frame); !ok || w.frame.Empty() {
		return nil, ErrNoFrame
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, w.frame, []int{gocv.IMWriteJpegQuality, w.config.Quality})
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	// The native buffer is freed on Close
	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}

// Close releases the device
func (w *Webcam) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	w.frame.Close()
	return w.cap.Close()
}
