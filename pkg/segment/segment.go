// Package segment provides the foreground-segmentation capability used
// by the mask engine. A provider returns a per-pixel foreground
// probability map with the same spatial size as its input.
//
// Two implementations exist: a color-model heuristic that separates the
// subject from a background estimated along the image frame, and a
// full-opacity provider selected when segmentation is disabled. The
// choice is made once at pipeline construction, never per call.
package segment

import (
	"fmt"
	"image"
	"image/color"
	"math"
)

// Provider computes a foreground probability map for an image.
type Provider interface {
	// Segment returns a grayscale map the same size as img where 255
	// means certainly foreground and 0 certainly background.
	Segment(img image.Image) (*image.Gray, error)
}

// Config holds parameters for the heuristic segmenter.
type Config struct {
	// FrameRatio is the thickness of the border band sampled for the
	// background color model, relative to the shorter image side.
	FrameRatio float64 `json:"frame_ratio"`
	// DistanceScale maps color distance to probability; lower values
	// saturate faster toward foreground.
	DistanceScale float64 `json:"distance_scale"`
	// ContrastWeight blends local edge strength into the probability,
	// favoring textured subjects over flat backgrounds.
	ContrastWeight float64 `json:"contrast_weight"`
}

// DefaultConfig returns the heuristic defaults.
func DefaultConfig() Config {
	return Config{
		FrameRatio:     0.04,
		DistanceScale:  90.0,
		ContrastWeight: 0.15,
	}
}

// HeuristicSegmenter estimates foreground probability from the color
// distance to a background model sampled along the image frame.
type HeuristicSegmenter struct {
	config Config
}

// New creates a HeuristicSegmenter with default configuration.
func New() *HeuristicSegmenter {
	return &HeuristicSegmenter{config: DefaultConfig()}
}

// NewWithConfig creates a HeuristicSegmenter with custom configuration.
func NewWithConfig(config Config) *HeuristicSegmenter {
	return &HeuristicSegmenter{config: config}
}

// Disabled returns a provider that reports the whole image as
// foreground, so the subject is the entire crop.
func Disabled() Provider {
	return fullOpacity{}
}

type fullOpacity struct{}

func (fullOpacity) Segment(img image.Image) (*image.Gray, error) {
	bounds := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for i := range out.Pix {
		out.Pix[i] = 255
	}
	return out, nil
}

// Segment implements Provider.
func (s *HeuristicSegmenter) Segment(img image.Image) (*image.Gray, error) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("cannot segment empty image")
	}

	bgR, bgG, bgB := s.backgroundColor(img)
	out := image.NewGray(image.Rect(0, 0, w, h))

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b := at8(img, bounds.Min.X+x, bounds.Min.Y+y)

			dr := float64(r) - bgR
			dg := float64(g) - bgG
			db := float64(b) - bgB
			dist := math.Sqrt(dr*dr + dg*dg + db*db)

			p := dist / s.config.DistanceScale
			if s.config.ContrastWeight > 0 {
				p += s.config.ContrastWeight * s.edgeStrength(img, bounds.Min.X+x, bounds.Min.Y+y)
			}
			if p > 1 {
				p = 1
			}
			out.SetGray(x, y, color.Gray{Y: uint8(p*255 + 0.5)})
		}
	}
	return out, nil
}

// backgroundColor averages the pixels in a thin frame along the image
// edges. Photos for stickers overwhelmingly keep the subject away from
// the frame, so the frame approximates the background.
func (s *HeuristicSegmenter) backgroundColor(img image.Image) (float64, float64, float64) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	frame := int(float64(min(w, h)) * s.config.FrameRatio)
	if frame < 1 {
		frame = 1
	}

	var sumR, sumG, sumB float64
	count := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x >= frame && x < w-frame && y >= frame && y < h-frame {
				continue
			}
			r, g, b := at8(img, bounds.Min.X+x, bounds.Min.Y+y)
			sumR += float64(r)
			sumG += float64(g)
			sumB += float64(b)
			count++
		}
	}
	if count == 0 {
		return 0, 0, 0
	}
	return sumR / float64(count), sumG / float64(count), sumB / float64(count)
}

// edgeStrength measures local color variation against the 8 neighbors,
// normalized to [0,1].
func (s *HeuristicSegmenter) edgeStrength(img image.Image, x, y int) float64 {
	bounds := img.Bounds()
	r1, g1, b1 := at8(img, x, y)

	var total float64
	count := 0
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			nx, ny := x+dx, y+dy
			if nx < bounds.Min.X || nx >= bounds.Max.X || ny < bounds.Min.Y || ny >= bounds.Max.Y {
				continue
			}
			r2, g2, b2 := at8(img, nx, ny)
			dr := float64(r1) - float64(r2)
			dg := float64(g1) - float64(g2)
			db := float64(b1) - float64(b2)
			total += math.Sqrt(dr*dr + dg*dg + db*db)
			count++
		}
	}
	if count == 0 {
		return 0
	}
	// 441.67 is the RGB-space diagonal, the maximum pairwise distance.
	return total / (float64(count) * 441.67)
}

func at8(img image.Image, x, y int) (uint8, uint8, uint8) {
	r, g, b, _ := img.At(x, y).RGBA()
	return uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)
}
