package detection

import (
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"
)

// ObjectConfig holds YOLOv8 configuration for object pointers
type ObjectConfig struct {
	ModelPath        string
	ConfidenceThresh float32
	NMSThresh        float32
	InputWidth       int
	InputHeight      int
	Classes          []string // COCO classes accepted as the pointer
}

// DefaultObjectConfig tracks handheld objects with YOLOv8n
func DefaultObjectConfig() ObjectConfig {
	return ObjectConfig{
		ModelPath:        "models/yolov8n.onnx",
		ConfidenceThresh: 0.5,
		NMSThresh:        0.45,
		InputWidth:       640,
		InputHeight:      640,
		Classes:          []string{"sports ball", "cell phone", "remote", "toothbrush"},
	}
}

// ObjectDetector uses YOLOv8 and keeps only the configured pointer classes
type ObjectDetector struct {
	net       gocv.Net
	config    ObjectConfig
	accept    map[int]bool
	inputSize image.Point
	mu        sync.Mutex
}

// NewObject creates an object-pointer detector
func NewObject(cfg ObjectConfig) (*ObjectDetector, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, cfg.ModelPath)
	}

	accept := make(map[int]bool, len(cfg.Classes))
	for _, name := range cfg.Classes {
		id := classID(name)
		if id < 0 {
			return nil, fmt.Errorf("unknown COCO class %q", name)
		}
		accept[id] = true
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load YOLO model from %s", cfg.ModelPath)
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	return &ObjectDetector{
		net:       net,
		config:    cfg,
		accept:    accept,
		inputSize: image.Pt(cfg.InputWidth, cfg.InputHeight),
	}, nil
}

// Detect finds pointer objects in the JPEG image
func (d *ObjectDetector) Detect(jpeg []byte) ([]Detection, error) {
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

	blob := gocv.BlobFromImage(img, 1.0/255.0, d.inputSize, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	defer output.Close()

	return d.parse(output, float32(img.Cols()), float32(img.Rows())), nil
}

// parse reads a [1, 84, N] YOLOv8 tensor: 4 box values then 80 class scores
func (d *ObjectDetector) parse(output gocv.Mat, imgW, imgH float32) []Detection {
	var (
		boxes       []image.Rectangle
		confidences []float32
	)

	n := output.Cols()
	fields := output.Rows()

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil
	}

	sx := imgW / float32(d.config.InputWidth)
	sy := imgH / float32(d.config.InputHeight)

	for i := 0; i < n; i++ {
		best := float32(0)
		bestClass := -1
		for c := 4; c < fields; c++ {
			if s := data[c*n+i]; s > best {
				best = s
				bestClass = c - 4
			}
		}
		if best < d.config.ConfidenceThresh || !d.accept[bestClass] {
			continue
		}

		cx, cy := data[i], data[n+i]
		w, h := data[2*n+i], data[3*n+i]

		boxes = append(boxes, image.Rect(
			int((cx-w/2)*sx), int((cy-h/2)*sy),
			int((cx+w/2)*sx), int((cy+h/2)*sy),
		))
		confidences = append(confidences, best)
	}

	if len(boxes) == 0 {
		return nil
	}

	var detections []Detection
	for _, idx := range gocv.NMSBoxes(boxes, confidences, d.config.ConfidenceThresh, d.config.NMSThresh) {
		box := boxes[idx]
		detections = append(detections, Detection{
			X:          float64(box.Min.X) / float64(imgW),
			Y:          float64(box.Min.Y) / float64(imgH),
			W:          float64(box.Dx()) / float64(imgW),
			H:          float64(box.Dy()) / float64(imgH),
			Confidence: float64(confidences[idx]),
		})
	}
	return detections
}

// Close releases the detector resources
func (d *ObjectDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}

func classID(name string) int {
	for i, c := range cocoClasses {
		if c == name {
			return i
		}
	}
	return -1
}

// cocoClasses are the 80 COCO class names in model output order
var cocoClasses = []string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck", "boat",
	"traffic light", "fire hydrant", "stop sign", "parking meter", "bench", "bird", "cat",
	"dog", "horse", "sheep", "cow", "elephant", "bear", "zebra", "giraffe", "backpack",
	"umbrella", "handbag", "tie", "suitcase", "frisbee", "skis", "snowboard", "sports ball",
	"kite", "baseball bat", "baseball glove", "skateboard", "surfboard", "tennis racket",
	"bottle", "wine glass", "cup", "fork", "knife", "spoon", "bowl", "banana", "apple",
	"sandwich", "orange", "broccoli", "carrot", "hot dog", "pizza", "donut", "cake", "chair",
	"couch", "potted plant", "bed", "dining table", "toilet", "tv", "laptop", "mouse",
	"remote", "keyboard", "cell phone", "microwave", "oven", "toaster", "sink", "refrigerator",
	"book", "clock", "vase", "scissors", "teddy bear", "hair drier", "toothbrush",
}
