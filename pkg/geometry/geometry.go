// Package geometry computes the per-photo crop rectangle. A detected
// face guides the crop; without one the engine falls back to the largest
// centered rectangle at the target aspect ratio.
package geometry

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"

	"github.com/stickergen/stickergen/pkg/types"
)

// Engine derives crop rectangles from optional face boxes.
type Engine struct {
	config Config
}

// Config holds crop heuristics.
type Config struct {
	// MarginRatio expands the face box symmetrically by this fraction
	// of its size, so the crop keeps hair and shoulders rather than the
	// bare detection rectangle.
	MarginRatio float64 `json:"margin_ratio"`
}

// DefaultConfig returns the crop defaults.
func DefaultConfig() Config {
	return Config{MarginRatio: 0.2}
}

// New creates an Engine with default configuration.
func New() *Engine {
	return &Engine{config: DefaultConfig()}
}

// NewWithConfig creates an Engine with custom configuration.
func NewWithConfig(config Config) *Engine {
	return &Engine{config: config}
}

// CropRect returns a rectangle fully inside a width×height image that
// matches targetRatio (width/height). When face is non-nil the rectangle
// contains the margin-expanded face box; the box is only ever grown
// toward the ratio, never shrunk. An image smaller than one pixel in
// either dimension is a fatal per-photo error.
func (e *Engine) CropRect(width, height int, face *types.BoundingBox, targetRatio float64) (image.Rectangle, error) {
	if width < 1 || height < 1 {
		return image.Rectangle{}, fmt.Errorf("degenerate image dimensions %dx%d", width, height)
	}
	if targetRatio <= 0 {
		return image.Rectangle{}, fmt.Errorf("invalid target aspect ratio %f", targetRatio)
	}

	if face == nil || face.Empty() {
		return e.centeredRect(width, height, targetRatio), nil
	}
	if err := face.Validate(width, height); err != nil {
		return image.Rectangle{}, fmt.Errorf("face box rejected: %w", err)
	}

	expanded := e.expand(*face, width, height)
	rect := e.growToRatio(expanded, width, height, targetRatio)
	if rect.Dx() < 1 || rect.Dy() < 1 {
		return image.Rectangle{}, fmt.Errorf("crop degenerated to empty rectangle")
	}
	return rect, nil
}

// Crop applies CropRect to the image and returns the cropped buffer.
func (e *Engine) Crop(img image.Image, face *types.BoundingBox, targetRatio float64) (*image.NRGBA, error) {
	bounds := img.Bounds()
	rect, err := e.CropRect(bounds.Dx(), bounds.Dy(), face, targetRatio)
	if err != nil {
		return nil, err
	}
	return imaging.Crop(img, rect.Add(bounds.Min)), nil
}

// expand pads the face box by MarginRatio on every side and clamps the
// result to the image.
func (e *Engine) expand(face types.BoundingBox, width, height int) image.Rectangle {
	marginX := int(float64(face.Width) * e.config.MarginRatio)
	marginY := int(float64(face.Height) * e.config.MarginRatio)

	x0 := face.X - marginX
	y0 := face.Y - marginY
	x1 := face.X + face.Width + marginX
	y1 := face.Y + face.Height + marginY

	return image.Rect(x0, y0, x1, y1).Intersect(image.Rect(0, 0, width, height))
}

// growToRatio widens or heightens the rectangle from its center until it
// reaches targetRatio. The shorter dimension grows; the detected region
// is never cut. When the image cannot supply the required growth the
// window shifts toward the interior, and as a last resort clamps to the
// full image extent in that dimension.
func (e *Engine) growToRatio(rect image.Rectangle, width, height int, targetRatio float64) image.Rectangle {
	w, h := rect.Dx(), rect.Dy()
	current := float64(w) / float64(h)

	switch {
	case current < targetRatio:
		// Too narrow: grow width.
		need := int(math.Round(float64(h) * targetRatio))
		if need > width {
			need = width
		}
		x0 := rect.Min.X - (need-w)/2
		x0 = clampInt(x0, 0, width-need)
		return image.Rect(x0, rect.Min.Y, x0+need, rect.Max.Y)
	case current > targetRatio:
		// Too wide: grow height.
		need := int(math.Round(float64(w) / targetRatio))
		if need > height {
			need = height
		}
		y0 := rect.Min.Y - (need-h)/2
		y0 = clampInt(y0, 0, height-need)
		return image.Rect(rect.Min.X, y0, rect.Max.X, y0+need)
	default:
		return rect
	}
}

// centeredRect returns the largest centered rectangle at targetRatio.
func (e *Engine) centeredRect(width, height int, targetRatio float64) image.Rectangle {
	current := float64(width) / float64(height)

	var w, h int
	if current > targetRatio {
		h = height
		w = int(math.Round(float64(height) * targetRatio))
	} else {
		w = width
		h = int(math.Round(float64(width) / targetRatio))
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	x0 := (width - w) / 2
	y0 := (height - h) / 2
	return image.Rect(x0, y0, x0+w, y0+h)
}

func clampInt(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
