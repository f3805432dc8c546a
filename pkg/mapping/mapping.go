// Package mapping loads the filename→caption CSV that drives a batch.
// Filenames resolve against the photos directory with an extension
// priority, so "photo1" in the CSV finds photo1.jpg on disk.
package mapping

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/stickergen/stickergen/pkg/types"
)

// Entry is one row of the mapping file with its resolved photo path.
type Entry struct {
	// Filename is the name as written in the CSV.
	Filename string
	// Path is the resolved file on disk, empty when nothing matched.
	Path string
	// Caption holds the validated caption lines.
	Caption types.TextSpec
}

// DefaultExtPriority is the resolution order for extension-less names.
var DefaultExtPriority = []string{"jpg", "jpeg", "png", "webp"}

// Load reads the CSV and resolves each row against photosDir. The file
// must have a header with a "filename" column; a "text" column is
// optional. Captions over two lines are a validation error here, before
// any photo is processed.
func Load(csvPath, photosDir string, extPriority []string) ([]Entry, error) {
	f, err := os.Open(csvPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open mapping file: %w", err)
	}
	defer f.Close()

	if len(extPriority) == 0 {
		extPriority = DefaultExtPriority
	}

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping header: %w", err)
	}
	nameCol, textCol := -1, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "filename":
			nameCol = i
		case "text":
			textCol = i
		}
	}
	if nameCol < 0 {
		return nil, fmt.Errorf("mapping file must have a 'filename' column")
	}

	var entries []Entry
	row := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			return nil, fmt.Errorf("mapping row %d: %w", row, err)
		}
		if nameCol >= len(record) {
			continue
		}
		filename := strings.TrimSpace(record[nameCol])
		if filename == "" {
			continue
		}

		raw := ""
		if textCol >= 0 && textCol < len(record) {
			raw = record[textCol]
		}
		caption, err := ParseCaption(raw)
		if err != nil {
			return nil, fmt.Errorf("mapping row %d (%s): %w", row, filename, err)
		}

		entries = append(entries, Entry{
			Filename: filename,
			Path:     resolve(filename, photosDir, extPriority),
			Caption:  caption,
		})
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("no valid entries in %s", csvPath)
	}
	return entries, nil
}

// ParseCaption splits raw caption text into trimmed lines. Both real
// newlines (quoted CSV fields) and the literal two-character sequence
// \n are accepted as line breaks.
func ParseCaption(raw string) (types.TextSpec, error) {
	raw = strings.ReplaceAll(raw, `\n`, "\n")
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	spec := types.TextSpec{Lines: lines}
	if err := spec.Validate(); err != nil {
		return types.TextSpec{}, err
	}
	return spec, nil
}

// resolve finds the photo for a CSV filename: exact match first, then
// the base name against the extension priority, then any file sharing
// the base name.
func resolve(filename, photosDir string, extPriority []string) string {
	exact := filepath.Join(photosDir, filename)
	if fileExists(exact) {
		return exact
	}

	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	for _, ext := range extPriority {
		candidate := filepath.Join(photosDir, base+"."+strings.TrimPrefix(ext, "."))
		if fileExists(candidate) {
			return candidate
		}
	}

	dirEntries, err := os.ReadDir(photosDir)
	if err != nil {
		return ""
	}
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		name := de.Name()
		if strings.TrimSuffix(name, filepath.Ext(name)) == base {
			return filepath.Join(photosDir, name)
		}
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
