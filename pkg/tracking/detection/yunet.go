package detection

import (
	"fmt"
	"image"
	"math"
	"os"
	"sync"

	"github.com/teslashibe/go-orbitarm/internal/log"
	"gocv.io/x/gocv"
)

// FaceDetectorYN output layout: box, five landmark pairs, score
const (
	faceCols     = 15
	faceNoseX    = 8
	faceNoseY    = 9
	faceScoreCol = 14
)

// YuNetDetector lets a face steer the arm. The pointer is the nose tip, not
// the box centre, so small head turns move the arm.
type YuNetDetector struct {
	detector gocv.FaceDetectorYN
	config   Config
	mu       sync.Mutex // Protects inference
}

// NewYuNet loads a FaceDetectorYN ONNX model
func NewYuNet(cfg Config) (*YuNetDetector, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, cfg.ModelPath)
	}

	detector := gocv.NewFaceDetectorYNWithParams(
		cfg.ModelPath,
		"",
		image.Pt(cfg.InputWidth, cfg.InputHeight), // replaced per frame
		float32(cfg.ConfidenceThresh),
		0.3,  // NMS threshold
		5000, // Top K
		int(gocv.NetBackendDefault),
		int(gocv.NetTargetCPU),
	)

	return &YuNetDetector{
		detector: detector,
		config:   cfg,
	}, nil
}

// Detect returns one candidate per face, centred on the nose tip
func (d *YuNetDetector) Detect(jpeg []byte) ([]Detection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	img, err := gocv.IMDecode(jpeg, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	defer img.Close()

	if img.Empty() {
		return nil, ErrEmptyImage
	}

	d.detector.SetInputSize(image.Pt(img.Cols(), img.Rows()))

	faces := gocv.NewMat()
	defer faces.Close()
	d.detector.Detect(img, &faces)

	rows := make([][faceCols]float32, faces.Rows())
	for r := range rows {
		for c := 0; c < faceCols; c++ {
			rows[r][c] = faces.GetFloatAt(r, c)
		}
	}

	dets := faceDetections(rows, float64(img.Cols()), float64(img.Rows()), d.config.MinFaceSize)
	if len(dets) > 1 {
		log.Debug("several faces in view", "count", len(dets))
	}
	return dets, nil
}

// faceDetections converts YuNet rows (pixels) into normalized candidates.
// Faces shorter than minFace of the frame height are dropped. The box keeps
// the face size for SelectBest but is moved so its centre is the nose tip;
// without a usable landmark the face box is kept as is.
func faceDetections(rows [][faceCols]float32, imgW, imgH, minFace float64) []Detection {
	dets := make([]Detection, 0, len(rows))
	for _, row := range rows {
		w := float64(row[2]) / imgW
		h := float64(row[3]) / imgH
		if w <= 0 || h <= 0 || h < minFace {
			continue
		}

		det := Detection{
			X:          float64(row[0]) / imgW,
			Y:          float64(row[1]) / imgH,
			W:          w,
			H:          h,
			Confidence: float64(row[faceScoreCol]),
		}

		nx := float64(row[faceNoseX]) / imgW
		ny := float64(row[faceNoseY]) / imgH
		if inUnit(nx) && inUnit(ny) {
			det.X = nx - w/2
			det.Y = ny - h/2
		}
		dets = append(dets, det)
	}
	return dets
}

func inUnit(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}

// Close releases the detector resources
func (d *YuNetDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.detector.Close()
	return nil
}
