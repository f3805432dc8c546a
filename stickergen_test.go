package stickergen

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stickergen/stickergen/pkg/imgio"
	"github.com/stickergen/stickergen/pkg/pipeline"
	"github.com/stickergen/stickergen/pkg/types"
)

func writeTestPhoto(t *testing.T, path string) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 200, 160))
	for y := 0; y < 160; y++ {
		for x := 0; x < 200; x++ {
			if x > 60 && x < 140 && y > 40 && y < 120 {
				img.SetNRGBA(x, y, color.NRGBA{60, 60, 180, 255})
			} else {
				img.SetNRGBA(x, y, color.NRGBA{240, 240, 240, 255})
			}
		}
	}
	if err := imgio.SavePNG(img, path); err != nil {
		t.Fatal(err)
	}
}

func TestNew(t *testing.T) {
	gen, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if gen == nil {
		t.Fatal("New returned nil")
	}
	if pt := gen.StickerBounds(); pt.X != 370 || pt.Y != 320 {
		t.Errorf("sticker bounds %v, want (370,320)", pt)
	}
}

func TestGenerateOne(t *testing.T) {
	photo := filepath.Join(t.TempDir(), "photo.png")
	writeTestPhoto(t, photo)

	gen, err := New()
	if err != nil {
		t.Fatal(err)
	}

	set, err := gen.GenerateOne(photo, types.TextSpec{Lines: []string{"Hey"}})
	if err != nil {
		t.Fatalf("GenerateOne failed: %v", err)
	}
	if set.Sticker.Bounds().Dx() > 370 || set.Sticker.Bounds().Dy() > 320 {
		t.Errorf("sticker %dx%d exceeds bounds",
			set.Sticker.Bounds().Dx(), set.Sticker.Bounds().Dy())
	}
	if set.Main.Bounds().Dx() != 240 || set.Main.Bounds().Dy() != 240 {
		t.Errorf("main %dx%d, want 240x240", set.Main.Bounds().Dx(), set.Main.Bounds().Dy())
	}
	if set.Tab.Bounds().Dx() != 96 || set.Tab.Bounds().Dy() != 74 {
		t.Errorf("tab %dx%d, want 96x74", set.Tab.Bounds().Dx(), set.Tab.Bounds().Dy())
	}
}

func TestGenerateFromCSV(t *testing.T) {
	photos := t.TempDir()
	writeTestPhoto(t, filepath.Join(photos, "one.png"))
	writeTestPhoto(t, filepath.Join(photos, "two.png"))

	csvPath := filepath.Join(t.TempDir(), "mapping.csv")
	if err := os.WriteFile(csvPath, []byte("filename,text\none,Hello\ntwo,\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := pipeline.DefaultConfig()
	cfg.OutputDir = t.TempDir()
	gen, err := NewWithConfig(cfg)
	if err != nil {
		t.Fatal(err)
	}

	report, err := gen.GenerateFromCSV(csvPath, photos)
	if err != nil {
		t.Fatalf("GenerateFromCSV failed: %v", err)
	}
	if report.SuccessCount() != 2 {
		t.Errorf("success count %d, want 2", report.SuccessCount())
	}
	if _, err := os.Stat(filepath.Join(gen.OutputDir(), "stickers", "01.png")); err != nil {
		t.Errorf("first sticker missing: %v", err)
	}
}

func TestGenerateOneDeterministic(t *testing.T) {
	photo := filepath.Join(t.TempDir(), "photo.png")
	writeTestPhoto(t, photo)

	gen, err := New()
	if err != nil {
		t.Fatal(err)
	}

	caption := types.TextSpec{Lines: []string{"Same", "twice"}}
	first, err := gen.GenerateOne(photo, caption)
	if err != nil {
		t.Fatal(err)
	}
	second, err := gen.GenerateOne(photo, caption)
	if err != nil {
		t.Fatal(err)
	}

	if first.Sticker.Bounds() != second.Sticker.Bounds() {
		t.Fatalf("sticker bounds differ: %v vs %v", first.Sticker.Bounds(), second.Sticker.Bounds())
	}
	for i := range first.Sticker.Pix {
		if first.Sticker.Pix[i] != second.Sticker.Pix[i] {
			t.Fatalf("sticker pixels differ at byte %d", i)
		}
	}
}

func TestGetVersion(t *testing.T) {
	if GetVersion() != Version {
		t.Error("GetVersion does not return Version")
	}
}
