// Package imgio loads and saves photos for the sticker pipeline.
//
// Decoding supports JPEG, PNG, GIF, BMP and WebP. Images are normalized
// on load: the EXIF orientation tag is applied so that every downstream
// stage sees upright pixels, and the result is always RGBA.
package imgio

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Loader reads source photos from disk.
type Loader struct {
	config Config
}

// Config holds loader configuration.
type Config struct {
	SupportedExtensions []string `json:"supported_extensions"`
	MinImageSize        int      `json:"min_image_size"`
}

// DefaultConfig returns the loader defaults.
func DefaultConfig() Config {
	return Config{
		SupportedExtensions: []string{"jpg", "jpeg", "png", "gif", "bmp", "webp"},
		MinImageSize:        1,
	}
}

// New creates a Loader with default configuration.
func New() *Loader {
	return &Loader{config: DefaultConfig()}
}

// NewWithConfig creates a Loader with custom configuration.
func NewWithConfig(config Config) *Loader {
	return &Loader{config: config}
}

// Load reads, decodes and orientation-normalizes an image file. The
// returned image is a fresh NRGBA buffer owned by the caller.
func (l *Loader) Load(path string) (*image.NRGBA, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image file: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		// chai2010/webp handles lossless and alpha variants the
		// registered decoder occasionally rejects.
		if img, err = webp.Decode(bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("failed to decode image %s: %w", filepath.Base(path), err)
		}
	}

	oriented := applyOrientation(img, readOrientation(data))

	if oriented.Bounds().Dx() < l.config.MinImageSize || oriented.Bounds().Dy() < l.config.MinImageSize {
		return nil, fmt.Errorf("image too small: %dx%d (minimum %d)",
			oriented.Bounds().Dx(), oriented.Bounds().Dy(), l.config.MinImageSize)
	}

	return oriented, nil
}

// IsSupported reports whether the file has a supported image extension.
func (l *Loader) IsSupported(path string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, s := range l.config.SupportedExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

// SavePNG writes an image as PNG, creating parent directories as needed.
func SavePNG(img image.Image, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("failed to encode PNG %s: %w", filepath.Base(path), err)
	}
	return nil
}

// SaveWebP writes an image as WebP (lossless, to preserve alpha exactly).
func SaveWebP(img image.Image, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()
	return webp.Encode(f, img, &webp.Options{Lossless: true})
}

// readOrientation extracts the EXIF orientation value, defaulting to 1
// (upright) when the tag or the EXIF block is absent.
func readOrientation(data []byte) int {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	o, err := tag.Int(0)
	if err != nil || o < 1 || o > 8 {
		return 1
	}
	return o
}

// applyOrientation maps the eight EXIF orientation values onto imaging
// transforms. Rotations are expressed counter-clockwise, so EXIF 6
// (camera rotated 90° CW) undoes with Rotate270.
func applyOrientation(img image.Image, orientation int) *image.NRGBA {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	default:
		return imaging.Clone(img)
	}
}
