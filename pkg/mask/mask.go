// Package mask turns a segmentation probability map into a clean alpha
// mask: threshold, keep the largest connected component, close small
// holes and soften the boundary.
package mask

import (
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/stickergen/stickergen/pkg/segment"
	"github.com/stickergen/stickergen/pkg/types"
)

// ErrNoSubject is returned when segmentation found no foreground at all.
// Callers fall back to a full-opacity mask instead of emitting a blank
// sticker.
var ErrNoSubject = errors.New("no foreground subject segmented")

// Engine wraps a segmentation provider and refines its output.
type Engine struct {
	provider segment.Provider
	config   Config
}

// Config holds mask refinement parameters.
type Config struct {
	// Threshold is the probability cutoff; 128 corresponds to 0.5.
	Threshold uint8 `json:"threshold"`
	// CloseRadius is the structuring-element radius of the
	// morphological close that fills pinholes.
	CloseRadius int `json:"close_radius"`
	// BlurSigma softens the binary boundary into an anti-aliased edge.
	BlurSigma float64 `json:"blur_sigma"`
}

// DefaultConfig returns the refinement defaults.
func DefaultConfig() Config {
	return Config{
		Threshold:   128,
		CloseRadius: 2,
		BlurSigma:   1.5,
	}
}

// New creates an Engine with default configuration.
func New(provider segment.Provider) *Engine {
	return NewWithConfig(provider, DefaultConfig())
}

// NewWithConfig creates an Engine with custom configuration.
func NewWithConfig(provider segment.Provider, config Config) *Engine {
	return &Engine{provider: provider, config: config}
}

// Refine produces the foreground alpha mask for a cropped image. The
// output always has the input's dimensions. Exactly one connected
// component survives; an empty foreground yields ErrNoSubject.
func (e *Engine) Refine(img image.Image) (*image.Gray, error) {
	prob, err := e.provider.Segment(img)
	if err != nil {
		return nil, fmt.Errorf("segmentation failed: %w", err)
	}
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if prob.Bounds().Dx() != w || prob.Bounds().Dy() != h {
		return nil, fmt.Errorf("probability map size %dx%d does not match image %dx%d",
			prob.Bounds().Dx(), prob.Bounds().Dy(), w, h)
	}

	bin := e.threshold(prob)
	largest, area := LargestComponent(bin)
	if area == 0 {
		return nil, ErrNoSubject
	}

	closed := Close(largest, e.config.CloseRadius)
	return blurGray(closed, e.config.BlurSigma), nil
}

// SubjectBox locates the bounding box of the dominant foreground
// component. It guides cropping when no face is available; any
// segmentation problem just means no guidance, never an error.
func (e *Engine) SubjectBox(img image.Image) (types.BoundingBox, bool) {
	prob, err := e.provider.Segment(img)
	if err != nil {
		return types.BoundingBox{}, false
	}
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if prob.Bounds().Dx() != w || prob.Bounds().Dy() != h {
		return types.BoundingBox{}, false
	}

	largest, area := LargestComponent(e.threshold(prob))
	if area == 0 {
		return types.BoundingBox{}, false
	}

	minX, minY, maxX, maxY := w, h, -1, -1
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if largest.Pix[y*w+x] == 0 {
				continue
			}
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}

	box := types.BoundingBox{X: minX, Y: minY, Width: maxX + 1 - minX, Height: maxY + 1 - minY}
	// A component spanning most of the frame carries no guidance.
	if box.Area()*5 >= w*h*4 {
		return types.BoundingBox{}, false
	}
	return box, true
}

// FullOpacity returns an all-opaque mask, the fallback when segmentation
// is unavailable or found nothing.
func FullOpacity(width, height int) *image.Gray {
	m := image.NewGray(image.Rect(0, 0, width, height))
	for i := range m.Pix {
		m.Pix[i] = 255
	}
	return m
}

func (e *Engine) threshold(prob *image.Gray) *image.Gray {
	out := image.NewGray(prob.Bounds())
	for i, p := range prob.Pix {
		if p >= e.config.Threshold {
			out.Pix[i] = 255
		}
	}
	return out
}

// LargestComponent keeps only the connected component (8-connectivity)
// with the largest pixel area and returns it with its area. Labeling
// runs as a union-find pass over a flat pixel arena; no recursion, so
// mask size never threatens the stack.
func LargestComponent(bin *image.Gray) (*image.Gray, int) {
	w, h := bin.Bounds().Dx(), bin.Bounds().Dy()
	n := w * h

	parent := make([]int32, n)
	for i := range parent {
		parent[i] = -1 // -1 marks background
	}

	var find func(i int32) int32
	find = func(i int32) int32 {
		for parent[i] != i {
			parent[i] = parent[parent[i]] // path halving
			i = parent[i]
		}
		return i
	}
	union := func(a, b int32) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[rb] = ra
		}
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := int32(y*w + x)
			if bin.Pix[i] == 0 {
				continue
			}
			parent[i] = i
			// Merge with already-visited neighbors: left and the
			// three pixels in the row above.
			if x > 0 && parent[i-1] >= 0 {
				union(i, i-1)
			}
			if y > 0 {
				up := i - int32(w)
				if parent[up] >= 0 {
					union(i, up)
				}
				if x > 0 && parent[up-1] >= 0 {
					union(i, up-1)
				}
				if x < w-1 && parent[up+1] >= 0 {
					union(i, up+1)
				}
			}
		}
	}

	areas := make(map[int32]int)
	var bestRoot int32 = -1
	best := 0
	for i := 0; i < n; i++ {
		if parent[i] < 0 {
			continue
		}
		root := find(int32(i))
		areas[root]++
		if areas[root] > best {
			best = areas[root]
			bestRoot = root
		}
	}

	out := image.NewGray(bin.Bounds())
	if bestRoot < 0 {
		return out, 0
	}
	for i := 0; i < n; i++ {
		if parent[i] >= 0 && find(int32(i)) == bestRoot {
			out.Pix[i] = 255
		}
	}
	return out, best
}

// Dilate grows the foreground by a disk of the given radius.
func Dilate(bin *image.Gray, radius int) *image.Gray {
	if radius <= 0 {
		return cloneGray(bin)
	}
	w, h := bin.Bounds().Dx(), bin.Bounds().Dy()
	out := image.NewGray(bin.Bounds())
	disk := diskOffsets(radius)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if bin.Pix[y*w+x] == 0 {
				continue
			}
			for _, d := range disk {
				nx, ny := x+d[0], y+d[1]
				if nx >= 0 && nx < w && ny >= 0 && ny < h {
					out.Pix[ny*w+nx] = 255
				}
			}
		}
	}
	return out
}

// Erode shrinks the foreground by a disk of the given radius.
func Erode(bin *image.Gray, radius int) *image.Gray {
	if radius <= 0 {
		return cloneGray(bin)
	}
	inv := invertGray(bin)
	return invertGray(Dilate(inv, radius))
}

// Close fills holes smaller than the radius: dilate then erode.
func Close(bin *image.Gray, radius int) *image.Gray {
	return Erode(Dilate(bin, radius), radius)
}

// diskOffsets lists the integer offsets inside a disk of the radius.
func diskOffsets(radius int) [][2]int {
	var offs [][2]int
	r2 := radius * radius
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy <= r2 {
				offs = append(offs, [2]int{dx, dy})
			}
		}
	}
	return offs
}

// blurGray applies a Gaussian blur to the mask alone; the image channels
// are untouched by mask refinement.
func blurGray(m *image.Gray, sigma float64) *image.Gray {
	if sigma <= 0 {
		return cloneGray(m)
	}
	blurred := imaging.Blur(m, sigma)
	out := image.NewGray(m.Bounds())
	for i := range out.Pix {
		out.Pix[i] = blurred.Pix[i*4] // channels are equal on a gray source
	}
	return out
}

func cloneGray(m *image.Gray) *image.Gray {
	out := image.NewGray(m.Bounds())
	copy(out.Pix, m.Pix)
	return out
}

func invertGray(m *image.Gray) *image.Gray {
	out := image.NewGray(m.Bounds())
	for i, p := range m.Pix {
		out.Pix[i] = 255 - p
	}
	return out
}
