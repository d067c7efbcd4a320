package detection

import (
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// MarkerConfig describes the colour of the pointer marker in OpenCV HSV
// (H 0-180, S and V 0-255)
type MarkerConfig struct {
	Lower   [3]float64
	Upper   [3]float64
	MinArea float64 // Smallest blob in pixels that counts as the marker
	Blur    int     // Gaussian kernel size, 0 disables
}

// DefaultMarkerConfig tracks a saturated green fingertip marker
func DefaultMarkerConfig() MarkerConfig {
	return MarkerConfig{
		Lower:   [3]float64{40, 80, 80},
		Upper:   [3]float64{80, 255, 255},
		MinArea: 40,
		Blur:    5,
	}
}

// MarkerDetector finds coloured blobs by HSV thresholding
type MarkerDetector struct {
	config MarkerConfig
	lower  gocv.Scalar
	upper  gocv.Scalar
	mu     sync.Mutex
}

// NewMarker creates a colour-marker detector
func NewMarker(cfg MarkerConfig) *MarkerDetector {
	return &MarkerDetector{
		config: cfg,
		lower:  gocv.NewScalar(cfg.Lower[0], cfg.Lower[1], cfg.Lower[2], 0),
		upper:  gocv.NewScalar(cfg.Upper[0], cfg.Upper[1], cfg.Upper[2], 0),
	}
}

// Detect returns one detection per marker-coloured blob. The box is the
// blob's bounding rectangle re-centred on its centroid; confidence is the
// fraction of the rectangle the blob fills.
func (d *MarkerDetector) Detect(jpeg []byte) ([]Detection, error) {
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

	imgW := float64(img.Cols())
	imgH := float64(img.Rows())

	if k := d.config.Blur; k > 1 {
		if k%2 == 0 {
			k++
		}
		gocv.GaussianBlur(img, &img, image.Pt(k, k), 0, 0, gocv.BorderDefault)
	}

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(img, &hsv, gocv.ColorBGRToHSV)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.InRangeWithScalar(hsv, d.lower, d.upper, &mask)

	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	var detections []Detection
	for i := 0; i < contours.Size(); i++ {
		c := contours.At(i)
		area := gocv.ContourArea(c)
		if area < d.config.MinArea {
			continue
		}

		rect := gocv.BoundingRect(c)
		roi := mask.Region(rect)
		m := gocv.Moments(roi, true)
		roi.Close()
		if m["m00"] == 0 {
			continue
		}

		cx := float64(rect.Min.X) + m["m10"]/m["m00"]
		cy := float64(rect.Min.Y) + m["m01"]/m["m00"]
		w := float64(rect.Dx())
		h := float64(rect.Dy())

		fill := area / (w * h)
		if fill > 1 {
			fill = 1
		}

		detections = append(detections, Detection{
			X:          (cx - w/2) / imgW,
			Y:          (cy - h/2) / imgH,
			W:          w / imgW,
			H:          h / imgH,
			Confidence: fill,
		})
	}

	return detections, nil
}

// Close releases the detector resources
func (d *MarkerDetector) Close() error {
	return nil
}
