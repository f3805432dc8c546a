package geometry

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/stickergen/stickergen/pkg/types"
)

// createTestImage creates a simple test image
func createTestImage(width, height int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{uint8(x % 256), uint8(y % 256), 128, 255})
		}
	}
	return img
}

// ratioWithinOnePixel checks the rectangle's width against the width a
// perfect ratio would give, allowing integer rounding.
func ratioWithinOnePixel(t *testing.T, rect image.Rectangle, ratio float64) {
	t.Helper()
	ideal := float64(rect.Dy()) * ratio
	if math.Abs(float64(rect.Dx())-ideal) > 1.0 {
		t.Errorf("rectangle %v deviates from ratio %.4f by more than one pixel (ideal width %.2f)",
			rect, ratio, ideal)
	}
}

func TestNew(t *testing.T) {
	engine := New()
	if engine == nil {
		t.Fatal("New() returned nil")
	}
	if engine.config.MarginRatio != 0.2 {
		t.Errorf("expected default margin ratio 0.2, got %f", engine.config.MarginRatio)
	}
}

func TestCropRectWithoutFace(t *testing.T) {
	engine := New()
	ratio := 370.0 / 320.0

	rect, err := engine.CropRect(800, 600, nil, ratio)
	if err != nil {
		t.Fatalf("CropRect failed: %v", err)
	}

	full := image.Rect(0, 0, 800, 600)
	if !rect.In(full) {
		t.Errorf("rectangle %v not contained in image bounds", rect)
	}
	ratioWithinOnePixel(t, rect, ratio)

	// Without a face the crop is centered.
	cx := rect.Min.X + rect.Dx()/2
	cy := rect.Min.Y + rect.Dy()/2
	if abs(cx-400) > 1 || abs(cy-300) > 1 {
		t.Errorf("expected centered crop, got center (%d,%d)", cx, cy)
	}
}

func TestCropRectTallImage(t *testing.T) {
	engine := New()
	ratio := 370.0 / 320.0

	rect, err := engine.CropRect(300, 900, nil, ratio)
	if err != nil {
		t.Fatalf("CropRect failed: %v", err)
	}
	if rect.Dx() != 300 {
		t.Errorf("expected full width 300 for a tall image, got %d", rect.Dx())
	}
	ratioWithinOnePixel(t, rect, ratio)
}

func TestCropRectContainsFace(t *testing.T) {
	engine := New()
	face := &types.BoundingBox{X: 100, Y: 80, Width: 120, Height: 140}

	rect, err := engine.CropRect(800, 600, face, 1.0)
	if err != nil {
		t.Fatalf("CropRect failed: %v", err)
	}

	faceRect := image.Rect(face.X, face.Y, face.X+face.Width, face.Y+face.Height)
	if !faceRect.In(rect) {
		t.Errorf("crop %v does not contain face %v", rect, faceRect)
	}
	if !rect.In(image.Rect(0, 0, 800, 600)) {
		t.Errorf("crop %v escapes image bounds", rect)
	}
	ratioWithinOnePixel(t, rect, 1.0)
}

func TestCropRectFaceNearEdge(t *testing.T) {
	engine := New()
	// Face touching the top-left corner: margin must clamp, not fail.
	face := &types.BoundingBox{X: 0, Y: 0, Width: 90, Height: 110}

	rect, err := engine.CropRect(640, 480, face, 370.0/320.0)
	if err != nil {
		t.Fatalf("CropRect failed: %v", err)
	}
	faceRect := image.Rect(0, 0, 90, 110)
	if !faceRect.In(rect) {
		t.Errorf("crop %v lost the face %v at the image edge", rect, faceRect)
	}
	if !rect.In(image.Rect(0, 0, 640, 480)) {
		t.Errorf("crop %v escapes image bounds", rect)
	}
}

func TestCropRectNeverShrinksFace(t *testing.T) {
	engine := NewWithConfig(Config{MarginRatio: 0})
	// A face wider than the target ratio forces height growth, never a
	// width cut.
	face := &types.BoundingBox{X: 50, Y: 200, Width: 400, Height: 100}

	rect, err := engine.CropRect(500, 500, face, 1.0)
	if err != nil {
		t.Fatalf("CropRect failed: %v", err)
	}
	if rect.Dx() < 400 {
		t.Errorf("crop width %d shrank below the face width 400", rect.Dx())
	}
	faceRect := image.Rect(50, 200, 450, 300)
	if !faceRect.In(rect) {
		t.Errorf("crop %v does not contain face %v", rect, faceRect)
	}
}

func TestCropRectDegenerateImage(t *testing.T) {
	engine := New()
	if _, err := engine.CropRect(0, 100, nil, 1.0); err == nil {
		t.Error("expected error for zero-width image")
	}
	if _, err := engine.CropRect(100, 0, nil, 1.0); err == nil {
		t.Error("expected error for zero-height image")
	}
	if _, err := engine.CropRect(100, 100, nil, -1.0); err == nil {
		t.Error("expected error for negative ratio")
	}
}

func TestCropRectRejectsInvalidFace(t *testing.T) {
	engine := New()
	face := &types.BoundingBox{X: 700, Y: 500, Width: 300, Height: 300}
	if _, err := engine.CropRect(800, 600, face, 1.0); err == nil {
		t.Error("expected error for face box outside the image")
	}
}

func TestCropAppliesRectangle(t *testing.T) {
	engine := New()
	img := createTestImage(640, 480)

	cropped, err := engine.Crop(img, nil, 1.0)
	if err != nil {
		t.Fatalf("Crop failed: %v", err)
	}
	if cropped.Bounds().Dx() != 480 || cropped.Bounds().Dy() != 480 {
		t.Errorf("expected 480x480 square crop, got %dx%d",
			cropped.Bounds().Dx(), cropped.Bounds().Dy())
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
