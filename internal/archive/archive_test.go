package archive_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/faktur-sorter/internal/archive"
	"github.com/joseph-ayodele/faktur-sorter/internal/common"
)

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestUnpack(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "file.zip")
	writeZip(t, zipPath, map[string]string{
		"a.pdf":        "A",
		"nested/b.pdf": "B",
	})

	dest := filepath.Join(dir, "extracted")
	require.NoError(t, archive.Unpack(zipPath, dest, archive.Limits{}))

	got, err := os.ReadFile(filepath.Join(dest, "a.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "A", string(got))
	assert.FileExists(t, filepath.Join(dest, "nested", "b.pdf"))
}

func TestUnpack_CorruptArchive(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "file.zip")
	writeFile(t, zipPath, "definitely not a zip")

	err := archive.Unpack(zipPath, filepath.Join(dir, "out"), archive.Limits{})
	require.Error(t, err)

	var extErr *archive.ExtractionError
	assert.True(t, errors.As(err, &extErr))
	assert.True(t, errors.Is(err, common.ErrExtraction))
	assert.Equal(t, common.CodeExtraction, common.CodeOf(err))
}

func TestUnpack_RejectsEscapingEntries(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "file.zip")
	writeZip(t, zipPath, map[string]string{"../evil.pdf": "x"})

	err := archive.Unpack(zipPath, filepath.Join(dir, "out"), archive.Limits{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrExtraction))
	assert.NoFileExists(t, filepath.Join(dir, "evil.pdf"))
}

func TestPack_OnlySubdirectories(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "0111", "PT A.pdf"), "a")
	writeFile(t, filepath.Join(dir, "0222", "PT B.pdf"), "b")
	writeFile(t, filepath.Join(dir, "report.xlsx"), "loose")

	out, err := archive.Pack(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "file.zip"), out)

	names, err := archive.Entries(out)
	require.NoError(t, err)
	assert.Equal(t, []string{"0111/", "0111/PT A.pdf", "0222/", "0222/PT B.pdf"}, names)
}

func TestPack_Idempotent(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "0111", "x.pdf"), "x")

	first, err := archive.Pack(dir)
	require.NoError(t, err)
	firstNames, err := archive.Entries(first)
	require.NoError(t, err)

	second, err := archive.Pack(dir)
	require.NoError(t, err)
	secondNames, err := archive.Entries(second)
	require.NoError(t, err)

	assert.Equal(t, firstNames, secondNames)
}

func TestPack_EmptyDirectory(t *testing.T) {
	dir := t.TempDir()

	out, err := archive.Pack(dir)
	require.NoError(t, err)
	names, err := archive.Entries(out)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestPack_MissingDirectory(t *testing.T) {
	_, err := archive.Pack(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)

	var packErr *archive.PackingError
	assert.True(t, errors.As(err, &packErr))
	assert.True(t, errors.Is(err, common.ErrPacking))
}

func TestUnpack_EnforcesLimits(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "file.zip")
	writeZip(t, zipPath, map[string]string{
		"a.pdf": strings.Repeat("a", 600),
		"b.pdf": strings.Repeat("b", 600),
	})

	tests := map[string]archive.Limits{
		"bytes":   {MaxBytes: 1000},
		"entries": {MaxEntries: 1},
	}
	for name, lim := range tests {
		t.Run(name, func(t *testing.T) {
			err := archive.Unpack(zipPath, filepath.Join(dir, name), lim)
			require.Error(t, err)

			var extractErr *archive.ExtractionError
			assert.True(t, errors.As(err, &extractErr))
			assert.True(t, errors.Is(err, common.ErrExtraction))
			assert.True(t, errors.Is(err, archive.ErrTooLarge))
		})
	}

	require.NoError(t, archive.Unpack(zipPath, filepath.Join(dir, "exact"), archive.Limits{MaxBytes: 1200, MaxEntries: 2}))
}

func TestListDocuments(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.PDF"), "")
	writeFile(t, filepath.Join(dir, "a.pdf"), "")
	writeFile(t, filepath.Join(dir, "notes.txt"), "")
	writeFile(t, filepath.Join(dir, "sub", "c.pdf"), "")
	writeFile(t, filepath.Join(dir, "._a.pdf"), "")
	writeFile(t, filepath.Join(dir, ".hidden.pdf"), "")

	docs, err := archive.ListDocuments(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.pdf"), filepath.Join(dir, "b.PDF")}, docs)
}

func TestSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	writeFile(t, path, "12345")

	n, err := archive.Size(path)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
}
