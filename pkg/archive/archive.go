// Package archive bundles a finished batch into the upload.zip layout
// expected by the sticker marketplace: stickers/NN.png for every
// successful photo plus main.png and tab.png taken from the first one.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"

	"github.com/stickergen/stickergen/pkg/types"
)

// WriteUploadZip writes the archive to zipPath from a batch report.
// Failed entries are skipped; at least one success is required.
func WriteUploadZip(zipPath string, report *types.ResultReport) error {
	successes := make([]types.PhotoResult, 0, len(report.Entries))
	for _, e := range report.Entries {
		if e.Status == types.StatusSuccess {
			successes = append(successes, e)
		}
	}
	if len(successes) == 0 {
		return fmt.Errorf("no successful stickers to archive")
	}

	f, err := os.Create(zipPath)
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, e := range successes {
		if err := addFile(zw, "stickers/"+e.Sequence+".png", e.Paths.Sticker); err != nil {
			zw.Close()
			return err
		}
	}
	first := successes[0]
	if err := addFile(zw, "main.png", first.Paths.Main); err != nil {
		zw.Close()
		return err
	}
	if err := addFile(zw, "tab.png", first.Paths.Tab); err != nil {
		zw.Close()
		return err
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive: %w", err)
	}
	return nil
}

func addFile(zw *zip.Writer, name, path string) error {
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s for archiving: %w", path, err)
	}
	defer src.Close()

	dst, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("failed to add %s to archive: %w", name, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to write %s into archive: %w", name, err)
	}
	return nil
}
