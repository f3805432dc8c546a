package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/stickergen/stickergen/internal/config"
	"github.com/stickergen/stickergen/internal/utils"
	"github.com/stickergen/stickergen/pkg/archive"
	"github.com/stickergen/stickergen/pkg/mapping"
	"github.com/stickergen/stickergen/pkg/pipeline"
	"github.com/stickergen/stickergen/pkg/types"
)

func main() {
	var configPath string
	var photosDir, mappingFile, outDir string
	var fontPath, cascadePath string
	var stickerWidth, stickerHeight, border, fontSize int
	var noSegmentation, noFace, noShadow, noZip bool

	flag.StringVar(&configPath, "config", "", "JSON configuration file (flags override it)")
	flag.StringVar(&photosDir, "photos", "", "directory containing input photos")
	flag.StringVar(&mappingFile, "mapping", "", "CSV file mapping filenames to caption text")
	flag.StringVar(&outDir, "out", "", "output directory")
	flag.StringVar(&fontPath, "font", "", "TTF/OTF caption font (built-in face when empty)")
	flag.StringVar(&cascadePath, "cascade", "", "face detection cascade file")
	flag.IntVar(&stickerWidth, "sticker-width", 0, "sticker max width in pixels")
	flag.IntVar(&stickerHeight, "sticker-height", 0, "sticker max height in pixels")
	flag.IntVar(&border, "border", -1, "white border width in pixels")
	flag.IntVar(&fontSize, "font-size", 0, "starting caption font size")
	flag.BoolVar(&noSegmentation, "no-segmentation", false, "keep the full crop instead of cutting out the subject")
	flag.BoolVar(&noFace, "no-face", false, "disable face-guided cropping")
	flag.BoolVar(&noShadow, "no-shadow", false, "disable the drop shadow")
	flag.BoolVar(&noZip, "no-zip", false, "skip writing upload.zip")
	flag.Parse()

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.LoadFromFile(configPath)
		if err != nil {
			log.Fatal(err)
		}
		cfg = loaded
	}

	if photosDir != "" {
		cfg.PhotosDir = photosDir
	}
	if mappingFile != "" {
		cfg.MappingFile = mappingFile
	}
	if outDir != "" {
		cfg.Pipeline.OutputDir = outDir
	}
	if fontPath != "" {
		cfg.Pipeline.Text.FontPath = fontPath
	}
	if cascadePath != "" {
		cfg.Pipeline.Face.CascadePath = cascadePath
		cfg.Pipeline.DetectFace = true
	}
	if stickerWidth > 0 {
		cfg.Pipeline.Export.StickerMaxWidth = stickerWidth
	}
	if stickerHeight > 0 {
		cfg.Pipeline.Export.StickerMaxHeight = stickerHeight
	}
	if border >= 0 {
		cfg.Pipeline.Compose.BorderWidth = border
	}
	if fontSize > 0 {
		cfg.Pipeline.Text.FontSize = fontSize
	}
	if noSegmentation {
		cfg.Pipeline.UseSegmentation = false
	}
	if noFace {
		cfg.Pipeline.DetectFace = false
	}
	if noShadow {
		cfg.Pipeline.Compose.ShadowEnabled = false
	}
	if noZip {
		cfg.ZipOutput = false
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	if !utils.DirExists(cfg.PhotosDir) {
		log.Fatalf("photos directory %s does not exist", cfg.PhotosDir)
	}

	entries, err := mapping.Load(cfg.MappingFile, cfg.PhotosDir, cfg.ExtPriority)
	if err != nil {
		log.Fatal(err)
	}

	p, err := pipeline.New(cfg.Pipeline)
	if err != nil {
		log.Fatal(err)
	}

	report, err := p.Run(entries)
	if err != nil {
		log.Fatal(err)
	}

	resultsPath := filepath.Join(p.OutputDir(), "results.json")
	if err := utils.WriteJSON(resultsPath, report); err != nil {
		log.Fatal(err)
	}
	log.Printf("wrote %s", resultsPath)

	if cfg.ZipOutput && report.SuccessCount() > 0 {
		zipPath := filepath.Join(p.OutputDir(), "upload.zip")
		if err := archive.WriteUploadZip(zipPath, report); err != nil {
			log.Fatal(err)
		}
		log.Printf("wrote %s", zipPath)
	}

	log.Printf("done: %d ok, %d failed of %d photos",
		report.SuccessCount(), report.FailedCount(), len(report.Entries))
	for _, e := range report.Entries {
		switch e.Status {
		case types.StatusFailed:
			log.Printf("  %s failed at %s: %s", e.Filename, e.Stage, e.Reason)
		case types.StatusSkipped:
			log.Printf("  %s skipped: %s", e.Filename, e.Reason)
		}
	}
	if report.FailedCount() > 0 {
		os.Exit(1)
	}
}
