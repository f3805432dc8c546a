package text

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stickergen/stickergen/pkg/types"
)

func transparentCanvas(w, h int) *image.NRGBA {
	return image.NewNRGBA(image.Rect(0, 0, w, h))
}

func TestNewWithConfigFontFallback(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FontPath = "/nonexistent/font.ttf"

	r, err := NewWithConfig(cfg)
	require.NotNil(t, r, "renderer must be usable despite a bad font path")
	assert.Error(t, err, "the fallback reason should be reported")
	assert.NotNil(t, r.font)
}

func TestNewWithConfigDefaultFont(t *testing.T) {
	r, err := NewWithConfig(DefaultConfig())
	require.NoError(t, err, "no font path configured means no fallback to report")
	require.NotNil(t, r)
	assert.NotNil(t, r.font)
}

func TestRenderEmptySpecIsNoop(t *testing.T) {
	r := New()
	img := transparentCanvas(200, 150)

	out, err := r.Render(img, types.TextSpec{})
	require.NoError(t, err)
	assert.Same(t, img, out, "empty captions skip the stage entirely")
}

func TestRenderRejectsTooManyLines(t *testing.T) {
	r := New()
	img := transparentCanvas(200, 150)

	_, err := r.Render(img, types.TextSpec{Lines: []string{"a", "b", "c"}})
	assert.Error(t, err, "three lines must be rejected, not truncated")
}

func TestRenderBandIsOpaque(t *testing.T) {
	r := New()
	img := transparentCanvas(300, 200)

	out, err := r.Render(img, types.TextSpec{Lines: []string{"Hello"}})
	require.NoError(t, err)
	require.NotSame(t, img, out)

	// The band background guarantees non-transparent pixels at the
	// bottom center even for glyphs the face cannot draw.
	assert.Greater(t, int(out.NRGBAAt(150, 198).A), 0, "band bottom center must not be transparent")

	// Pixels above the band stay untouched.
	assert.Equal(t, uint8(0), out.NRGBAAt(150, 5).A, "area above the band must stay transparent")
}

func TestRenderBandForNonLatinCaption(t *testing.T) {
	r := New()
	img := transparentCanvas(300, 200)

	out, err := r.Render(img, types.TextSpec{Lines: []string{"こんにちは"}})
	require.NoError(t, err)

	// Even when the face lacks glyphs for the caption, the background
	// band forms a contiguous non-transparent strip along the bottom.
	bottom := 198
	for x := 20; x < 280; x++ {
		require.Greater(t, int(out.NRGBAAt(x, bottom).A), 0,
			"band gap at x=%d", x)
	}
	assert.Equal(t, uint8(0), out.NRGBAAt(150, 5).A)
}

func TestRenderTwoLines(t *testing.T) {
	r := New()
	img := transparentCanvas(300, 200)

	one, err := r.Render(img, types.TextSpec{Lines: []string{"Hi"}})
	require.NoError(t, err)
	two, err := r.Render(img, types.TextSpec{Lines: []string{"Hi", "there"}})
	require.NoError(t, err)

	bandTop := func(out *image.NRGBA) int {
		for y := 0; y < 200; y++ {
			if out.NRGBAAt(150, y).A > 0 {
				return y
			}
		}
		return 200
	}
	assert.Less(t, bandTop(two), bandTop(one), "a second line must grow the band upward")
}

func TestDefaultStyleIsBand(t *testing.T) {
	assert.Equal(t, StyleBand, DefaultConfig().Style)
}

func TestRenderBubbleStyle(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Style = StyleBubble
	r, err := NewWithConfig(cfg)
	require.NoError(t, err)

	out, err := r.Render(transparentCanvas(300, 200), types.TextSpec{Lines: []string{"Hi"}})
	require.NoError(t, err)

	// The bubble is centered and sized to the text, so it covers the
	// bottom center but leaves the edges transparent.
	assert.Greater(t, int(out.NRGBAAt(150, 190).A), 0, "bubble must cover the bottom center")
	assert.Equal(t, uint8(0), out.NRGBAAt(2, 190).A, "left edge must stay transparent")
	assert.Equal(t, uint8(0), out.NRGBAAt(297, 190).A, "right edge must stay transparent")

	// The tail rises above the bubble body.
	bubbleTop := 200
	for y := 0; y < 200; y++ {
		if out.NRGBAAt(150, y).A > 0 {
			bubbleTop = y
			break
		}
	}
	require.Less(t, bubbleTop, 200)
	tailRow := bubbleTop - 4
	found := false
	for x := 0; x < 300; x++ {
		if out.NRGBAAt(x, tailRow).A > 0 {
			found = true
			break
		}
	}
	assert.True(t, found, "expected tail pixels above the bubble body")
}

func TestRenderRejectsUnknownStyle(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Style = "oval"
	r, err := NewWithConfig(cfg)
	require.NoError(t, err)

	_, err = r.Render(transparentCanvas(200, 150), types.TextSpec{Lines: []string{"Hi"}})
	assert.Error(t, err)
}

func TestFitFaceShrinksLongLines(t *testing.T) {
	r := New()
	lines := []string{"an unreasonably long caption line that cannot fit"}

	wide, _, err := r.fitFace(lines, 2000)
	require.NoError(t, err)
	defer wide.Close()
	narrow, narrowMetrics, err := r.fitFace(lines, 120)
	require.NoError(t, err)
	defer narrow.Close()

	wideMetrics := wide.Metrics()
	assert.Less(t, narrowMetrics.Height.Ceil(), wideMetrics.Height.Ceil(),
		"the narrow canvas must force a smaller face")
}

func TestFitFaceStopsAtFloor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FontSize = 20
	cfg.MinFontSize = 16
	r, err := NewWithConfig(cfg)
	require.NoError(t, err)

	// Nothing fits in 10 pixels; the floor face is still returned.
	face, _, err := r.fitFace([]string{"overflow"}, 10)
	require.NoError(t, err)
	defer face.Close()

	floor, _, err := r.fitFace([]string{"x"}, 10)
	require.NoError(t, err)
	defer floor.Close()
}

func TestRenderOverflowingCaptionSucceeds(t *testing.T) {
	r := New()
	img := transparentCanvas(80, 120)

	out, err := r.Render(img, types.TextSpec{Lines: []string{"completely overflowing text"}})
	require.NoError(t, err, "overflow at the floor size renders anyway, characters are never dropped")
	assert.NotNil(t, out)
}
