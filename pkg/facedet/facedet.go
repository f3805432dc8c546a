// Package facedet provides the face-detection capability consumed by the
// crop engine. Detection is optional: a disabled detector is a valid
// implementation and reporting no face is never an error.
package facedet

import (
	"fmt"
	"image"
	"os"

	pigo "github.com/esimov/pigo/core"

	"github.com/stickergen/stickergen/pkg/types"
)

// Detector locates the most prominent face in a photo.
type Detector interface {
	// Detect returns the face bounding box and true, or false when no
	// face was found. Absence of a face is not an error.
	Detect(img image.Image) (types.BoundingBox, bool)
}

// Config holds detection parameters for the pigo cascade.
type Config struct {
	CascadePath  string  `json:"cascade_path"`
	MinSize      int     `json:"min_size"`
	MaxSize      int     `json:"max_size"`
	ShiftFactor  float64 `json:"shift_factor"`
	ScaleFactor  float64 `json:"scale_factor"`
	IoUThreshold float64 `json:"iou_threshold"`
	QualityFloor float32 `json:"quality_floor"`
}

// DefaultConfig returns detection defaults tuned for portrait photos.
func DefaultConfig() Config {
	return Config{
		MinSize:      20,
		MaxSize:      2000,
		ShiftFactor:  0.1,
		ScaleFactor:  1.1,
		IoUThreshold: 0.2,
		QualityFloor: 5.0,
	}
}

// pigoDetector runs the pigo pixel-intensity cascade.
type pigoDetector struct {
	classifier *pigo.Pigo
	config     Config
}

// New loads the cascade file and returns a ready detector.
func New(config Config) (Detector, error) {
	cascade, err := os.ReadFile(config.CascadePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read cascade file: %w", err)
	}
	classifier, err := pigo.NewPigo().Unpack(cascade)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack cascade: %w", err)
	}
	return &pigoDetector{classifier: classifier, config: config}, nil
}

// Disabled returns a detector that never reports a face. Selected at
// pipeline construction when face detection is switched off.
func Disabled() Detector {
	return nopDetector{}
}

type nopDetector struct{}

func (nopDetector) Detect(image.Image) (types.BoundingBox, bool) {
	return types.BoundingBox{}, false
}

func (d *pigoDetector) Detect(img image.Image) (types.BoundingBox, bool) {
	bounds := img.Bounds()
	cols, rows := bounds.Dx(), bounds.Dy()
	if cols == 0 || rows == 0 {
		return types.BoundingBox{}, false
	}

	params := pigo.CascadeParams{
		MinSize:     d.config.MinSize,
		MaxSize:     d.config.MaxSize,
		ShiftFactor: d.config.ShiftFactor,
		ScaleFactor: d.config.ScaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: grayscale(img),
			Rows:   rows,
			Cols:   cols,
			Dim:    cols,
		},
	}

	dets := d.classifier.RunCascade(params, 0.0)
	dets = d.classifier.ClusterDetections(dets, d.config.IoUThreshold)

	best, found := d.pickLargest(dets)
	if !found {
		return types.BoundingBox{}, false
	}

	// Pigo reports center row/col plus scale (radius); convert to a
	// box clamped to the image bounds.
	box := types.BoundingBox{
		X:      best.Col - best.Scale/2,
		Y:      best.Row - best.Scale/2,
		Width:  best.Scale,
		Height: best.Scale,
	}
	if box.X < 0 {
		box.Width += box.X
		box.X = 0
	}
	if box.Y < 0 {
		box.Height += box.Y
		box.Y = 0
	}
	if box.X+box.Width > cols {
		box.Width = cols - box.X
	}
	if box.Y+box.Height > rows {
		box.Height = rows - box.Y
	}
	if box.Empty() {
		return types.BoundingBox{}, false
	}
	return box, true
}

// pickLargest keeps the biggest detection above the quality floor; with
// several faces in frame the largest one is the likely subject.
func (d *pigoDetector) pickLargest(dets []pigo.Detection) (pigo.Detection, bool) {
	var best pigo.Detection
	found := false
	for _, det := range dets {
		if det.Q < d.config.QualityFloor {
			continue
		}
		if !found || det.Scale > best.Scale {
			best = det
			found = true
		}
	}
	return best, found
}

// grayscale flattens the image into the row-major luminance buffer pigo
// expects.
func grayscale(img image.Image) []uint8 {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	gray := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			gray[y*w+x] = uint8((r*299 + g*587 + b*114) / 1000 >> 8)
		}
	}
	return gray
}
