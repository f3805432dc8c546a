// Package export produces the three fixed-size sticker variants from the
// final composited image: the bounded Sticker plus the exact-canvas Main
// and Tab thumbnails.
package export

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// Stage scales and frames the export variants.
type Stage struct {
	config Config
}

// Config holds the target box dimensions.
type Config struct {
	// StickerMaxWidth/Height bound the sticker; its canvas equals the
	// scaled content, never padded and never upscaled.
	StickerMaxWidth  int `json:"sticker_max_width"`
	StickerMaxHeight int `json:"sticker_max_height"`
	// Main and Tab are exact canvas sizes with the content centered.
	MainWidth  int `json:"main_width"`
	MainHeight int `json:"main_height"`
	TabWidth   int `json:"tab_width"`
	TabHeight  int `json:"tab_height"`
}

// DefaultConfig returns the marketplace dimensions.
func DefaultConfig() Config {
	return Config{
		StickerMaxWidth:  370,
		StickerMaxHeight: 320,
		MainWidth:        240,
		MainHeight:       240,
		TabWidth:         96,
		TabHeight:        74,
	}
}

// Validate checks the configured dimensions.
func (c Config) Validate() error {
	for _, d := range []struct {
		name  string
		value int
	}{
		{"sticker_max_width", c.StickerMaxWidth},
		{"sticker_max_height", c.StickerMaxHeight},
		{"main_width", c.MainWidth},
		{"main_height", c.MainHeight},
		{"tab_width", c.TabWidth},
		{"tab_height", c.TabHeight},
	} {
		if d.value < 1 {
			return fmt.Errorf("%s must be positive, got %d", d.name, d.value)
		}
	}
	return nil
}

// StickerSet is the per-photo export result.
type StickerSet struct {
	Sticker *image.NRGBA
	Main    *image.NRGBA
	Tab     *image.NRGBA
}

// New creates a Stage with default configuration.
func New() *Stage {
	return &Stage{config: DefaultConfig()}
}

// NewWithConfig creates a Stage with custom configuration.
func NewWithConfig(config Config) *Stage {
	return &Stage{config: config}
}

// Export renders the three variants. Scaling always preserves aspect
// ratio, uses Lanczos resampling and never upscales.
func (s *Stage) Export(img image.Image) (StickerSet, error) {
	bounds := img.Bounds()
	if bounds.Dx() < 1 || bounds.Dy() < 1 {
		return StickerSet{}, fmt.Errorf("cannot export empty image")
	}
	return StickerSet{
		Sticker: fitDown(img, s.config.StickerMaxWidth, s.config.StickerMaxHeight),
		Main:    s.framed(img, s.config.MainWidth, s.config.MainHeight),
		Tab:     s.framed(img, s.config.TabWidth, s.config.TabHeight),
	}, nil
}

// FitSticker scales an image down into the sticker box without any
// canvas padding. The pipeline captions at this scale so text size does
// not depend on the source photo's resolution.
func (s *Stage) FitSticker(img image.Image) *image.NRGBA {
	return fitDown(img, s.config.StickerMaxWidth, s.config.StickerMaxHeight)
}

// framed scales the content into the box and centers it on a fully
// transparent canvas of the exact target dimensions.
func (s *Stage) framed(img image.Image, width, height int) *image.NRGBA {
	fitted := fitDown(img, width, height)
	canvas := imaging.New(width, height, color.NRGBA{})
	return imaging.PasteCenter(canvas, fitted)
}

// fitDown scales the image to fit inside the box, down only. imaging.Fit
// already refuses to upscale; the size check keeps that contract
// explicit.
func fitDown(img image.Image, width, height int) *image.NRGBA {
	bounds := img.Bounds()
	if bounds.Dx() <= width && bounds.Dy() <= height {
		return imaging.Clone(img)
	}
	return imaging.Fit(img, width, height, imaging.Lanczos)
}
