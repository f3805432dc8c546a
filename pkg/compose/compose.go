// Package compose assembles the sticker cutout: white border ring around
// the masked subject, an optional soft drop shadow beneath, and a trim
// to the minimal canvas.
package compose

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"

	"github.com/stickergen/stickergen/pkg/mask"
)

// Compositor layers shadow, border and subject back to front.
type Compositor struct {
	config Config
}

// Config holds compositing parameters.
type Config struct {
	// BorderWidth is the white outline thickness in pixels.
	BorderWidth int `json:"border_width"`
	// ShadowEnabled toggles the drop shadow.
	ShadowEnabled bool `json:"shadow_enabled"`
	// ShadowOffsetX/Y shift the shadow silhouette.
	ShadowOffsetX int `json:"shadow_offset_x"`
	ShadowOffsetY int `json:"shadow_offset_y"`
	// ShadowOpacity is the peak shadow alpha (90 ≈ 35%).
	ShadowOpacity uint8 `json:"shadow_opacity"`
	// ShadowSigma is the Gaussian blur applied to the shadow.
	ShadowSigma float64 `json:"shadow_sigma"`
	// Padding is the uniform transparent margin kept around the trim.
	Padding int `json:"padding"`
}

// DefaultConfig returns the compositing defaults.
func DefaultConfig() Config {
	return Config{
		BorderWidth:   8,
		ShadowEnabled: true,
		ShadowOffsetX: 4,
		ShadowOffsetY: 4,
		ShadowOpacity: 90,
		ShadowSigma:   3,
		Padding:       4,
	}
}

// New creates a Compositor with default configuration.
func New() *Compositor {
	return &Compositor{config: DefaultConfig()}
}

// NewWithConfig creates a Compositor with custom configuration.
func NewWithConfig(config Config) *Compositor {
	return &Compositor{config: config}
}

const shadowGray = 40 // dark gray shadow tint

// Compose builds the transparent sticker cutout from a cropped image and
// its refined alpha mask. The result is trimmed to the outer mask's
// bounding box plus a uniform padding wide enough to hold the shadow, so
// alpha is zero strictly outside the border+shadow extent.
func (c *Compositor) Compose(img image.Image, alpha *image.Gray) (*image.NRGBA, error) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if alpha.Bounds().Dx() != w || alpha.Bounds().Dy() != h {
		return nil, fmt.Errorf("mask size %dx%d does not match image %dx%d",
			alpha.Bounds().Dx(), alpha.Bounds().Dy(), w, h)
	}

	// Work on an enlarged canvas so the ring and shadow never clip at
	// the crop edge.
	margin := c.BorderWidth() + c.shadowExtent() + c.config.Padding
	cw, ch := w+2*margin, h+2*margin

	inner := image.NewGray(image.Rect(0, 0, cw, ch))
	solid := image.NewGray(image.Rect(0, 0, cw, ch))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			a := alpha.Pix[y*w+x]
			inner.Pix[(y+margin)*cw+x+margin] = a
			if a >= 128 {
				solid.Pix[(y+margin)*cw+x+margin] = 255
			}
		}
	}

	outer := mask.Dilate(solid, c.config.BorderWidth)

	var shadow *image.Gray
	if c.config.ShadowEnabled {
		shadow = c.shadowMask(outer)
	}

	out := image.NewNRGBA(image.Rect(0, 0, cw, ch))
	for y := 0; y < ch; y++ {
		for x := 0; x < cw; x++ {
			i := y*cw + x
			if shadow != nil && shadow.Pix[i] > 0 {
				a := uint8(uint16(shadow.Pix[i]) * uint16(c.config.ShadowOpacity) / 255)
				overPixel(out, i, shadowGray, shadowGray, shadowGray, a)
			}
			if outer.Pix[i] > 0 {
				overPixel(out, i, 255, 255, 255, outer.Pix[i])
			}
			if a := inner.Pix[i]; a > 0 {
				r, g, b := srcAt(img, bounds.Min.X+x-margin, bounds.Min.Y+y-margin)
				overPixel(out, i, r, g, b, a)
			}
		}
	}

	return imaging.Crop(out, c.trimRect(outer, cw, ch)), nil
}

// BorderWidth reports the configured outline thickness.
func (c *Compositor) BorderWidth() int {
	return c.config.BorderWidth
}

// shadowExtent is how far the shadow can reach beyond the outer mask.
func (c *Compositor) shadowExtent() int {
	if !c.config.ShadowEnabled {
		return 0
	}
	off := c.config.ShadowOffsetX
	if c.config.ShadowOffsetY > off {
		off = c.config.ShadowOffsetY
	}
	return off + int(math.Ceil(3*c.config.ShadowSigma))
}

// shadowMask offsets the outer silhouette and blurs it. The subject and
// ring are painted over it, so it only shows outside the silhouette.
func (c *Compositor) shadowMask(outer *image.Gray) *image.Gray {
	cw, ch := outer.Bounds().Dx(), outer.Bounds().Dy()
	shifted := image.NewGray(outer.Bounds())
	dx, dy := c.config.ShadowOffsetX, c.config.ShadowOffsetY
	for y := 0; y < ch; y++ {
		sy := y - dy
		if sy < 0 || sy >= ch {
			continue
		}
		for x := 0; x < cw; x++ {
			sx := x - dx
			if sx < 0 || sx >= cw {
				continue
			}
			shifted.Pix[y*cw+x] = outer.Pix[sy*cw+sx]
		}
	}
	if c.config.ShadowSigma <= 0 {
		return shifted
	}
	blurred := imaging.Blur(shifted, c.config.ShadowSigma)
	out := image.NewGray(outer.Bounds())
	for i := range out.Pix {
		out.Pix[i] = blurred.Pix[i*4]
	}
	return out
}

// trimRect is the outer mask's tight bounding box expanded by the
// uniform padding plus the shadow extent, clamped to the canvas.
func (c *Compositor) trimRect(outer *image.Gray, cw, ch int) image.Rectangle {
	minX, minY, maxX, maxY := cw, ch, -1, -1
	for y := 0; y < ch; y++ {
		for x := 0; x < cw; x++ {
			if outer.Pix[y*cw+x] > 0 {
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
	}
	if maxX < 0 {
		// Empty outer mask: keep the whole canvas.
		return image.Rect(0, 0, cw, ch)
	}
	pad := c.config.Padding + c.shadowExtent()
	return image.Rect(minX-pad, minY-pad, maxX+1+pad, maxY+1+pad).
		Intersect(image.Rect(0, 0, cw, ch))
}

// overPixel source-over composites a non-premultiplied color onto the
// canvas pixel at index i.
func overPixel(dst *image.NRGBA, i int, r, g, b, a uint8) {
	p := i * 4
	if a == 255 {
		dst.Pix[p+0] = r
		dst.Pix[p+1] = g
		dst.Pix[p+2] = b
		dst.Pix[p+3] = 255
		return
	}
	sa := uint32(a)
	da := uint32(dst.Pix[p+3])
	outA := sa + da*(255-sa)/255
	if outA == 0 {
		dst.Pix[p+0], dst.Pix[p+1], dst.Pix[p+2], dst.Pix[p+3] = 0, 0, 0, 0
		return
	}
	blend := func(s, d uint8) uint8 {
		return uint8((uint32(s)*sa*255 + uint32(d)*da*(255-sa)) / (outA * 255))
	}
	dst.Pix[p+0] = blend(r, dst.Pix[p+0])
	dst.Pix[p+1] = blend(g, dst.Pix[p+1])
	dst.Pix[p+2] = blend(b, dst.Pix[p+2])
	dst.Pix[p+3] = uint8(outA)
}

func srcAt(img image.Image, x, y int) (uint8, uint8, uint8) {
	r, g, b, _ := img.At(x, y).RGBA()
	return uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)
}
