package mapping

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadResolvesExtensions(t *testing.T) {
	photos := t.TempDir()
	writeFile(t, photos, "photo1.jpg", "x")
	writeFile(t, photos, "photo2.png", "x")

	csvPath := writeFile(t, t.TempDir(), "mapping.csv",
		"filename,text\nphoto1,Hello\nphoto2.png,World\n")

	entries, err := Load(csvPath, photos, nil)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, filepath.Join(photos, "photo1.jpg"), entries[0].Path,
		"extension-less names resolve through the priority list")
	assert.Equal(t, []string{"Hello"}, entries[0].Caption.Lines)
	assert.Equal(t, filepath.Join(photos, "photo2.png"), entries[1].Path)
}

func TestLoadExtensionPriority(t *testing.T) {
	photos := t.TempDir()
	writeFile(t, photos, "pic.png", "x")
	writeFile(t, photos, "pic.jpg", "x")

	csvPath := writeFile(t, t.TempDir(), "mapping.csv", "filename,text\npic,\n")

	entries, err := Load(csvPath, photos, []string{"png", "jpg"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(photos, "pic.png"), entries[0].Path,
		"the first matching extension in the priority wins")
}

func TestLoadUnresolvedKeepsEntry(t *testing.T) {
	photos := t.TempDir()
	csvPath := writeFile(t, t.TempDir(), "mapping.csv", "filename,text\nmissing,Hi\n")

	entries, err := Load(csvPath, photos, nil)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Empty(t, entries[0].Path, "unresolved photos keep their entry so the report can mark them failed")
}

func TestLoadLiteralNewline(t *testing.T) {
	photos := t.TempDir()
	writeFile(t, photos, "a.jpg", "x")
	csvPath := writeFile(t, t.TempDir(), "mapping.csv",
		`filename,text`+"\n"+`a,first\nsecond`+"\n")

	entries, err := Load(csvPath, photos, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, entries[0].Caption.Lines)
}

func TestLoadRejectsThreeLines(t *testing.T) {
	photos := t.TempDir()
	writeFile(t, photos, "a.jpg", "x")
	csvPath := writeFile(t, t.TempDir(), "mapping.csv",
		`filename,text`+"\n"+`a,one\ntwo\nthree`+"\n")

	_, err := Load(csvPath, photos, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maximum is 2")
}

func TestLoadRequiresFilenameColumn(t *testing.T) {
	csvPath := writeFile(t, t.TempDir(), "mapping.csv", "name,text\na,b\n")

	_, err := Load(csvPath, t.TempDir(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "filename")
}

func TestLoadSkipsBlankRows(t *testing.T) {
	photos := t.TempDir()
	writeFile(t, photos, "a.jpg", "x")
	csvPath := writeFile(t, t.TempDir(), "mapping.csv",
		"filename,text\n,skipped\na,kept\n")

	entries, err := Load(csvPath, photos, nil)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a", entries[0].Filename)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.csv"), t.TempDir(), nil)
	assert.Error(t, err)
}

func TestParseCaption(t *testing.T) {
	spec, err := ParseCaption("  hello  \n  world ")
	require.NoError(t, err)
	assert.Equal(t, []string{"hello", "world"}, spec.Lines)

	spec, err = ParseCaption("")
	require.NoError(t, err)
	assert.True(t, spec.Empty())

	spec, err = ParseCaption("\n\nonly\n\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"only"}, spec.Lines)
}
