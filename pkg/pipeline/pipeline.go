// Package pipeline sequences the sticker stages per photo: load, crop,
// mask, composite, caption, export. Photos are processed one at a time;
// a failure is terminal for its photo only and never aborts the batch.
package pipeline

import (
	"errors"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"

	"github.com/stickergen/stickergen/pkg/compose"
	"github.com/stickergen/stickergen/pkg/export"
	"github.com/stickergen/stickergen/pkg/facedet"
	"github.com/stickergen/stickergen/pkg/geometry"
	"github.com/stickergen/stickergen/pkg/imgio"
	"github.com/stickergen/stickergen/pkg/mapping"
	"github.com/stickergen/stickergen/pkg/mask"
	"github.com/stickergen/stickergen/pkg/segment"
	"github.com/stickergen/stickergen/pkg/text"
	"github.com/stickergen/stickergen/pkg/types"
)

// Stage names the per-photo state machine steps; a failure records the
// stage it happened in.
type Stage string

const (
	StageLoad      Stage = "load"
	StageCrop      Stage = "crop"
	StageMask      Stage = "mask"
	StageComposite Stage = "composite"
	StageText      Stage = "text"
	StageExport    Stage = "export"
	StageRecord    Stage = "record"
)

// MaxStickers is the marketplace submission cap. Batches beyond it are
// rejected before any photo is processed.
const MaxStickers = 40

// Config assembles the per-stage configurations plus the feature
// toggles. It is immutable once the pipeline is constructed and passed
// explicitly to every stage.
type Config struct {
	OutputDir       string `json:"output_dir"`
	DetectFace      bool   `json:"detect_face"`
	UseSegmentation bool   `json:"use_segmentation"`

	Loader  imgio.Config    `json:"loader"`
	Face    facedet.Config  `json:"face"`
	Segment segment.Config  `json:"segment"`
	Crop    geometry.Config `json:"crop"`
	Mask    mask.Config     `json:"mask"`
	Compose compose.Config  `json:"compose"`
	Text    text.Config     `json:"text"`
	Export  export.Config   `json:"export"`
}

// DefaultConfig returns a full default configuration.
func DefaultConfig() Config {
	return Config{
		OutputDir:       "out",
		DetectFace:      false,
		UseSegmentation: true,
		Loader:          imgio.DefaultConfig(),
		Face:            facedet.DefaultConfig(),
		Segment:         segment.DefaultConfig(),
		Crop:            geometry.DefaultConfig(),
		Mask:            mask.DefaultConfig(),
		Compose:         compose.DefaultConfig(),
		Text:            text.DefaultConfig(),
		Export:          export.DefaultConfig(),
	}
}

// Pipeline runs the sticker stages. Capabilities (face detector,
// segmentation provider, font) are selected once at construction; the
// per-photo path never branches on availability.
type Pipeline struct {
	config     Config
	loader     *imgio.Loader
	detector   facedet.Detector
	maskEngine *mask.Engine
	cropEngine *geometry.Engine
	compositor *compose.Compositor
	renderer   *text.Renderer
	exporter   *export.Stage
}

// New builds a pipeline from the configuration. An unusable face
// cascade or font file degrades to the documented fallback rather than
// failing construction; invalid dimensions fail immediately.
func New(config Config) (*Pipeline, error) {
	if err := config.Export.Validate(); err != nil {
		return nil, fmt.Errorf("invalid export configuration: %w", err)
	}
	if config.Compose.BorderWidth < 0 {
		return nil, fmt.Errorf("border width must be non-negative, got %d", config.Compose.BorderWidth)
	}

	detector := facedet.Disabled()
	if config.DetectFace {
		d, err := facedet.New(config.Face)
		if err != nil {
			log.Printf("face detection unavailable (%v), continuing with centered crops", err)
		} else {
			detector = d
		}
	}

	var provider segment.Provider = segment.Disabled()
	if config.UseSegmentation {
		provider = segment.NewWithConfig(config.Segment)
	}

	renderer, err := text.NewWithConfig(config.Text)
	if err != nil {
		if renderer == nil {
			return nil, err
		}
		// Usable renderer on the built-in face; the error only carries
		// the fallback reason.
		log.Printf("caption font fallback: %v", err)
	}

	return &Pipeline{
		config:     config,
		loader:     imgio.NewWithConfig(config.Loader),
		detector:   detector,
		maskEngine: mask.NewWithConfig(provider, config.Mask),
		cropEngine: geometry.NewWithConfig(config.Crop),
		compositor: compose.NewWithConfig(config.Compose),
		renderer:   renderer,
		exporter:   export.NewWithConfig(config.Export),
	}, nil
}

// Preflight validates batch-level constraints before any photo work:
// the sticker cap and every caption. Violations surface to the caller
// here, never as per-photo failures.
func (p *Pipeline) Preflight(entries []mapping.Entry) error {
	if len(entries) == 0 {
		return fmt.Errorf("no photos to process")
	}
	if len(entries) > MaxStickers {
		return fmt.Errorf("%d photos exceed the submission cap of %d stickers", len(entries), MaxStickers)
	}
	for _, e := range entries {
		if err := e.Caption.Validate(); err != nil {
			return fmt.Errorf("photo %s: %w", e.Filename, err)
		}
	}
	return nil
}

// Run processes every entry in order and returns the report. The report
// always holds one entry per photo, even when all of them failed.
// Successful photos get a dense 2-digit sequence; failures consume no
// number.
func (p *Pipeline) Run(entries []mapping.Entry) (*types.ResultReport, error) {
	if err := p.Preflight(entries); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(p.config.OutputDir, "stickers"), 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directories: %w", err)
	}

	report := &types.ResultReport{}
	seq := 0
	for i, entry := range entries {
		log.Printf("[%d/%d] processing %s", i+1, len(entries), entry.Filename)

		if entry.Path == "" {
			// The mapping row never resolved to a photo file. Skip it so
			// the rest of the batch keeps its dense numbering.
			log.Printf("  skipped: no matching photo file")
			report.Append(types.PhotoResult{
				Filename: entry.Filename,
				Status:   types.StatusSkipped,
				Reason:   "no matching photo file found",
			})
			continue
		}

		set, stage, err := p.processOne(entry)
		if err != nil {
			log.Printf("  failed at %s: %v", stage, err)
			report.Append(types.PhotoResult{
				Filename: entry.Filename,
				Status:   types.StatusFailed,
				Stage:    string(stage),
				Reason:   err.Error(),
			})
			continue
		}

		seq++
		number := fmt.Sprintf("%02d", seq)
		paths, err := p.save(set, number)
		if err != nil {
			seq-- // the failed photo keeps the sequence dense
			log.Printf("  failed at %s: %v", StageRecord, err)
			report.Append(types.PhotoResult{
				Filename: entry.Filename,
				Status:   types.StatusFailed,
				Stage:    string(StageRecord),
				Reason:   err.Error(),
			})
			continue
		}

		report.Append(types.PhotoResult{
			Filename: entry.Filename,
			Status:   types.StatusSuccess,
			Sequence: number,
			Paths:    paths,
		})
		log.Printf("  saved %s", paths.Sticker)
	}
	return report, nil
}

// ProcessPhoto runs the per-photo stages for a single file without
// touching the output directory.
func (p *Pipeline) ProcessPhoto(path string, caption types.TextSpec) (export.StickerSet, Stage, error) {
	return p.processOne(mapping.Entry{
		Filename: filepath.Base(path),
		Path:     path,
		Caption:  caption,
	})
}

// processOne walks a single photo through the state machine and returns
// the stage a failure happened in.
func (p *Pipeline) processOne(entry mapping.Entry) (export.StickerSet, Stage, error) {
	if entry.Path == "" {
		return export.StickerSet{}, StageLoad, fmt.Errorf("file not found for %q", entry.Filename)
	}

	src, err := p.loader.Load(entry.Path)
	if err != nil {
		return export.StickerSet{}, StageLoad, err
	}

	targetRatio := float64(p.config.Export.StickerMaxWidth) / float64(p.config.Export.StickerMaxHeight)
	var guide *types.BoundingBox
	if box, found := p.detector.Detect(src); found {
		guide = &box
	} else if p.config.UseSegmentation {
		// No face: let the dominant foreground component guide the crop.
		if box, found := p.maskEngine.SubjectBox(src); found {
			guide = &box
		}
	}
	cropped, err := p.cropEngine.Crop(src, guide, targetRatio)
	src = nil // release the full-resolution buffer
	if err != nil {
		return export.StickerSet{}, StageCrop, err
	}

	alpha, err := p.maskEngine.Refine(cropped)
	if errors.Is(err, mask.ErrNoSubject) {
		// Nothing segmented: fall back to the whole crop rather than
		// emitting a blank sticker.
		alpha = mask.FullOpacity(cropped.Bounds().Dx(), cropped.Bounds().Dy())
	} else if err != nil {
		return export.StickerSet{}, StageMask, err
	}

	composited, err := p.compositor.Compose(cropped, alpha)
	cropped, alpha = nil, nil
	if err != nil {
		return export.StickerSet{}, StageComposite, err
	}

	// Scale into the sticker box before captioning, so band and glyph
	// size are the same regardless of the source resolution.
	scaled := p.exporter.FitSticker(composited)
	composited = nil

	captioned, err := p.renderer.Render(scaled, entry.Caption)
	if err != nil {
		return export.StickerSet{}, StageText, err
	}

	set, err := p.exporter.Export(captioned)
	if err != nil {
		return export.StickerSet{}, StageExport, err
	}
	return set, "", nil
}

// save writes the three variants with the marketplace layout.
func (p *Pipeline) save(set export.StickerSet, number string) (types.StickerPaths, error) {
	paths := types.StickerPaths{
		Sticker: filepath.Join(p.config.OutputDir, "stickers", number+".png"),
		Main:    filepath.Join(p.config.OutputDir, "main_"+number+".png"),
		Tab:     filepath.Join(p.config.OutputDir, "tab_"+number+".png"),
	}
	for _, item := range []struct {
		img  image.Image
		path string
	}{
		{set.Sticker, paths.Sticker},
		{set.Main, paths.Main},
		{set.Tab, paths.Tab},
	} {
		if err := imgio.SavePNG(item.img, item.path); err != nil {
			return types.StickerPaths{}, err
		}
	}
	return paths, nil
}

// OutputDir reports where results are written.
func (p *Pipeline) OutputDir() string {
	return p.config.OutputDir
}
