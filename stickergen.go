// Package stickergen turns photos into chat sticker sets.
//
// Each photo goes through a fixed sequence of stages: load (with EXIF
// orientation applied), face-guided crop to the sticker aspect ratio,
// subject mask refinement, white border and drop shadow compositing,
// caption rendering, and export to the three marketplace sizes.
//
// Basic usage:
//
//	package main
//
//	import (
//		"log"
//
//		"github.com/stickergen/stickergen"
//	)
//
//	func main() {
//		gen, err := stickergen.New()
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		report, err := gen.GenerateFromCSV("mapping.csv", "photos")
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		log.Printf("%d stickers generated, %d photos failed",
//			report.SuccessCount(), report.FailedCount())
//	}
//
// The package consists of these main components:
//
// 1. Geometry (pkg/geometry): face-guided crop window selection
// 2. Mask (pkg/mask, pkg/segment): subject cutout refinement
// 3. Compose (pkg/compose): white border ring and drop shadow
// 4. Text (pkg/text): caption band rendering with shrink-to-fit
// 5. Export (pkg/export): sticker, main and tab size variants
// 6. Pipeline (pkg/pipeline): per-photo orchestration and reporting
//
// A failed photo never aborts the batch; the report carries one entry
// per input with the stage and reason of any failure, and successful
// stickers are numbered densely so the output set has no gaps.
package stickergen

import (
	"image"

	"github.com/stickergen/stickergen/pkg/export"
	"github.com/stickergen/stickergen/pkg/mapping"
	"github.com/stickergen/stickergen/pkg/pipeline"
	"github.com/stickergen/stickergen/pkg/types"
)

// Version of the sticker generator library
const Version = "1.0.0"

// Generator provides a high-level interface over the sticker pipeline.
type Generator struct {
	pipeline *pipeline.Pipeline
	config   pipeline.Config
}

// New creates a Generator with default configuration
func New() (*Generator, error) {
	return NewWithConfig(pipeline.DefaultConfig())
}

// NewWithConfig creates a Generator with custom configuration
func NewWithConfig(config pipeline.Config) (*Generator, error) {
	p, err := pipeline.New(config)
	if err != nil {
		return nil, err
	}
	return &Generator{pipeline: p, config: config}, nil
}

// GenerateFromCSV loads the caption mapping, resolves photos against
// photosDir and runs the whole batch.
func (g *Generator) GenerateFromCSV(csvPath, photosDir string) (*types.ResultReport, error) {
	entries, err := mapping.Load(csvPath, photosDir, mapping.DefaultExtPriority)
	if err != nil {
		return nil, err
	}
	return g.pipeline.Run(entries)
}

// Generate runs the batch over already-resolved entries.
func (g *Generator) Generate(entries []mapping.Entry) (*types.ResultReport, error) {
	return g.pipeline.Run(entries)
}

// GenerateOne processes a single photo file with a caption and returns
// the three sticker variants without writing anything to disk.
func (g *Generator) GenerateOne(path string, caption types.TextSpec) (export.StickerSet, error) {
	set, _, err := g.pipeline.ProcessPhoto(path, caption)
	return set, err
}

// OutputDir reports where GenerateFromCSV and Generate write results.
func (g *Generator) OutputDir() string {
	return g.pipeline.OutputDir()
}

// StickerBounds reports the configured maximum sticker dimensions.
func (g *Generator) StickerBounds() image.Point {
	return image.Pt(g.config.Export.StickerMaxWidth, g.config.Export.StickerMaxHeight)
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
