// Package text renders captions onto a sticker: up to two centered
// lines, stroked for contrast, over a semi-opaque background. The
// background is either a full-width band along the bottom or a speech
// bubble with a tail pointing up at the subject. The font size shrinks
// until the widest line fits, down to a configured floor; characters
// are never dropped.
package text

import (
	"fmt"
	"image"
	"image/color"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	"github.com/stickergen/stickergen/pkg/types"
)

// Caption background styles.
const (
	// StyleBand draws a full-width band along the bottom edge.
	StyleBand = "band"
	// StyleBubble draws a centered speech bubble with an upward tail.
	StyleBubble = "bubble"
)

// tailHeight is the speech bubble tail height in pixels.
const tailHeight = 10

// Renderer draws caption text onto composited stickers.
type Renderer struct {
	config Config
	font   *sfnt.Font
}

// Config holds caption layout and style parameters.
type Config struct {
	// FontPath points at a TTF/OTF file; when empty or unreadable the
	// built-in Go Regular face is used instead of failing the photo.
	FontPath string `json:"font_path"`
	// FontSize is the starting size; MinFontSize is the shrink floor.
	FontSize    int `json:"font_size"`
	MinFontSize int `json:"min_font_size"`
	// OutlineWidth is the text stroke thickness in pixels.
	OutlineWidth int `json:"outline_width"`
	// BandPadding is the inner padding of the background band.
	BandPadding int `json:"band_padding"`
	// CornerRadius rounds the background band corners.
	CornerRadius int `json:"corner_radius"`
	// Style selects the caption background: StyleBand or StyleBubble.
	// Empty means StyleBand.
	Style string `json:"style"`

	TextColor       color.NRGBA `json:"-"`
	OutlineColor    color.NRGBA `json:"-"`
	BackgroundColor color.NRGBA `json:"-"`
}

// DefaultConfig returns the caption defaults.
func DefaultConfig() Config {
	return Config{
		FontSize:        24,
		MinFontSize:     14,
		OutlineWidth:    2,
		BandPadding:     10,
		CornerRadius:    12,
		Style:           StyleBand,
		TextColor:       color.NRGBA{255, 255, 255, 255},
		OutlineColor:    color.NRGBA{0, 0, 0, 255},
		BackgroundColor: color.NRGBA{100, 100, 100, 200},
	}
}

// New creates a Renderer with the default configuration and font.
func New() *Renderer {
	r, _ := NewWithConfig(DefaultConfig())
	return r
}

// NewWithConfig creates a Renderer, resolving the configured font file
// and falling back to the built-in face when it is missing or invalid.
// The error only reports why the fallback was taken; the renderer is
// always usable.
func NewWithConfig(config Config) (*Renderer, error) {
	var fontErr error
	var fnt *sfnt.Font

	if config.FontPath != "" {
		data, err := os.ReadFile(config.FontPath)
		if err == nil {
			fnt, err = opentype.Parse(data)
		}
		if err != nil {
			fontErr = fmt.Errorf("font %s unusable, using built-in face: %w", config.FontPath, err)
			fnt = nil
		}
	}
	if fnt == nil {
		builtin, err := opentype.Parse(goregular.TTF)
		if err != nil {
			return nil, fmt.Errorf("failed to parse built-in font: %w", err)
		}
		fnt = builtin
	}
	return &Renderer{config: config, font: fnt}, fontErr
}

// Render draws the caption onto the image in the configured style and
// returns a new buffer. An empty spec skips the stage entirely.
func (r *Renderer) Render(img *image.NRGBA, spec types.TextSpec) (*image.NRGBA, error) {
	if spec.Empty() {
		return img, nil
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	face, metrics, err := r.fitFace(spec.Lines, w)
	if err != nil {
		return nil, err
	}
	defer face.Close()

	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	copy(out.Pix, img.Pix)

	switch r.config.Style {
	case StyleBand, "":
		r.renderBand(out, spec.Lines, face, metrics)
	case StyleBubble:
		r.renderBubble(out, spec.Lines, face, metrics)
	default:
		return nil, fmt.Errorf("unknown caption style %q", r.config.Style)
	}
	return out, nil
}

// renderBand fills a full-width rounded band along the bottom edge and
// centers the lines inside it.
func (r *Renderer) renderBand(out *image.NRGBA, lines []string, face font.Face, metrics font.Metrics) {
	w, h := out.Bounds().Dx(), out.Bounds().Dy()
	lineHeight := metrics.Height.Ceil()
	ascent := metrics.Ascent.Ceil()
	bandHeight := len(lines)*lineHeight + 2*r.config.BandPadding
	bandTop := h - bandHeight
	if bandTop < 0 {
		bandTop = 0
	}

	r.fillRoundedRect(out, image.Rect(0, bandTop, w, h), r.config.CornerRadius, r.config.BackgroundColor)

	for i, line := range lines {
		lineWidth := font.MeasureString(face, line).Ceil()
		x := (w - lineWidth) / 2
		baseline := bandTop + r.config.BandPadding + i*lineHeight + ascent
		r.drawStroked(out, face, line, x, baseline)
	}
}

// renderBubble fills a centered speech bubble sized to the text, with a
// tail rising from its top toward the subject.
func (r *Renderer) renderBubble(out *image.NRGBA, lines []string, face font.Face, metrics font.Metrics) {
	w, h := out.Bounds().Dx(), out.Bounds().Dy()
	lineHeight := metrics.Height.Ceil()
	ascent := metrics.Ascent.Ceil()

	widest := 0
	for _, line := range lines {
		if lw := font.MeasureString(face, line).Ceil(); lw > widest {
			widest = lw
		}
	}
	bubbleWidth := widest + 2*r.config.BandPadding
	if bubbleWidth > w {
		bubbleWidth = w
	}
	bubbleHeight := len(lines)*lineHeight + 2*r.config.BandPadding

	bottom := h - 2
	top := bottom - bubbleHeight
	if top < tailHeight {
		top = tailHeight
	}
	left := (w - bubbleWidth) / 2
	bubble := image.Rect(left, top, left+bubbleWidth, bottom)

	r.fillTail(out, bubble)
	r.fillRoundedRect(out, bubble, r.config.CornerRadius, r.config.BackgroundColor)

	for i, line := range lines {
		lineWidth := font.MeasureString(face, line).Ceil()
		x := bubble.Min.X + (bubble.Dx()-lineWidth)/2
		baseline := bubble.Min.Y + r.config.BandPadding + i*lineHeight + ascent
		r.drawStroked(out, face, line, x, baseline)
	}
}

// fillTail draws the triangular tail above the bubble, apex up, anchored
// a third of the way along the bubble's top edge.
func (r *Renderer) fillTail(dst *image.NRGBA, bubble image.Rectangle) {
	cx := bubble.Min.X + bubble.Dx()/3
	apex := bubble.Min.Y - tailHeight
	bounds := dst.Bounds()
	for j := 0; j < tailHeight; j++ {
		y := apex + j
		if y < bounds.Min.Y || y >= bounds.Max.Y {
			continue
		}
		half := j // widens by one pixel per row toward the bubble
		for x := cx - half; x <= cx+half; x++ {
			if x < bounds.Min.X || x >= bounds.Max.X {
				continue
			}
			blendPixel(dst, x, y, r.config.BackgroundColor)
		}
	}
}

// fitFace shrinks the font size until the widest line fits the canvas
// width (minus band padding), stopping at the floor. The floor face is
// returned even if it still overflows slightly.
func (r *Renderer) fitFace(lines []string, canvasWidth int) (font.Face, font.Metrics, error) {
	available := canvasWidth - 2*r.config.BandPadding
	size := r.config.FontSize
	for {
		face, err := opentype.NewFace(r.font, &opentype.FaceOptions{
			Size:    float64(size),
			DPI:     72,
			Hinting: font.HintingFull,
		})
		if err != nil {
			return nil, font.Metrics{}, fmt.Errorf("failed to create font face at size %d: %w", size, err)
		}
		widest := 0
		for _, line := range lines {
			if lw := font.MeasureString(face, line).Ceil(); lw > widest {
				widest = lw
			}
		}
		if widest <= available || size <= r.config.MinFontSize {
			return face, face.Metrics(), nil
		}
		face.Close()
		size -= 2
		if size < r.config.MinFontSize {
			size = r.config.MinFontSize
		}
	}
}

// drawStroked draws the outline first (offsets within a diamond of the
// stroke width) and the fill on top.
func (r *Renderer) drawStroked(dst *image.NRGBA, face font.Face, line string, x, baseline int) {
	ow := r.config.OutlineWidth
	outline := image.NewUniform(r.config.OutlineColor)
	for dy := -ow; dy <= ow; dy++ {
		for dx := -ow; dx <= ow; dx++ {
			if abs(dx)+abs(dy) > ow || (dx == 0 && dy == 0) {
				continue
			}
			d := font.Drawer{
				Dst:  dst,
				Src:  outline,
				Face: face,
				Dot:  fixed.P(x+dx, baseline+dy),
			}
			d.DrawString(line)
		}
	}
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(r.config.TextColor),
		Face: face,
		Dot:  fixed.P(x, baseline),
	}
	d.DrawString(line)
}

// fillRoundedRect source-over fills a rounded rectangle.
func (r *Renderer) fillRoundedRect(dst *image.NRGBA, rect image.Rectangle, radius int, c color.NRGBA) {
	if radius*2 > rect.Dx() {
		radius = rect.Dx() / 2
	}
	if radius*2 > rect.Dy() {
		radius = rect.Dy() / 2
	}
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			if !insideRounded(x, y, rect, radius) {
				continue
			}
			blendPixel(dst, x, y, c)
		}
	}
}

// insideRounded tests corner cutouts against the quarter-circle radius.
func insideRounded(x, y int, rect image.Rectangle, radius int) bool {
	cx, cy := 0, 0
	switch {
	case x < rect.Min.X+radius && y < rect.Min.Y+radius:
		cx, cy = rect.Min.X+radius, rect.Min.Y+radius
	case x >= rect.Max.X-radius && y < rect.Min.Y+radius:
		cx, cy = rect.Max.X-radius-1, rect.Min.Y+radius
	case x < rect.Min.X+radius && y >= rect.Max.Y-radius:
		cx, cy = rect.Min.X+radius, rect.Max.Y-radius-1
	case x >= rect.Max.X-radius && y >= rect.Max.Y-radius:
		cx, cy = rect.Max.X-radius-1, rect.Max.Y-radius-1
	default:
		return true
	}
	dx, dy := x-cx, y-cy
	return dx*dx+dy*dy <= radius*radius
}

func blendPixel(dst *image.NRGBA, x, y int, c color.NRGBA) {
	i := dst.PixOffset(x, y)
	sa := uint32(c.A)
	da := uint32(dst.Pix[i+3])
	outA := sa + da*(255-sa)/255
	if outA == 0 {
		return
	}
	blend := func(s, d uint8) uint8 {
		return uint8((uint32(s)*sa*255 + uint32(d)*da*(255-sa)) / (outA * 255))
	}
	dst.Pix[i+0] = blend(c.R, dst.Pix[i+0])
	dst.Pix[i+1] = blend(c.G, dst.Pix[i+1])
	dst.Pix[i+2] = blend(c.B, dst.Pix[i+2])
	dst.Pix[i+3] = uint8(outA)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
