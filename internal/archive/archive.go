// Package archive moves documents in and out of zip containers.
package archive

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/joseph-ayodele/faktur-sorter/constants"
)

// ErrTooLarge marks an archive that expands past its Limits.
var ErrTooLarge = errors.New("archive exceeds extraction limits")

// Limits bounds what Unpack may write. Zero fields mean unlimited.
type Limits struct {
	MaxBytes   int64
	MaxEntries int
}

// Unpack extracts every entry of archivePath below destDir, creating it.
// A corrupt archive, an entry resolving outside destDir, or an archive
// expanding past lim is an *ExtractionError.
func Unpack(archivePath, destDir string, lim Limits) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		if r != nil {
			_ = r.Close()
		}
		return &ExtractionError{Path: archivePath, Err: err}
	}
	defer func() { _ = r.Close() }()

	if lim.MaxEntries > 0 && len(r.File) > lim.MaxEntries {
		return &ExtractionError{Path: archivePath, Err: fmt.Errorf("%w: %d entries, limit %d", ErrTooLarge, len(r.File), lim.MaxEntries)}
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return &ExtractionError{Path: archivePath, Err: err}
	}
	root, err := filepath.Abs(destDir)
	if err != nil {
		return &ExtractionError{Path: archivePath, Err: err}
	}

	budget := lim.MaxBytes
	for _, f := range r.File {
		target, err := entryTarget(root, f.Name)
		if err != nil {
			return &ExtractionError{Path: archivePath, Err: err}
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return &ExtractionError{Path: archivePath, Err: err}
			}
			continue
		}
		n, err := writeEntry(f, target, budget, lim.MaxBytes > 0)
		if err != nil {
			return &ExtractionError{Path: archivePath, Err: fmt.Errorf("entry %q: %w", f.Name, err)}
		}
		budget -= n
	}
	return nil
}

func entryTarget(root, name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("entry %q escapes destination", name)
	}
	target := filepath.Join(root, clean)
	if target != root && !strings.HasPrefix(target, root+string(filepath.Separator)) {
		return "", fmt.Errorf("entry %q escapes destination", name)
	}
	return target, nil
}

// writeEntry copies one entry to target. When limited, at most budget bytes
// are accepted regardless of the size the entry header declares.
func writeEntry(f *zip.File, target string, budget int64, limited bool) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, err
	}
	rc, err := f.Open()
	if err != nil {
		return 0, err
	}
	defer func() { _ = rc.Close() }()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, err
	}
	var n int64
	if limited {
		n, err = io.CopyN(out, rc, budget+1)
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if err == nil && n > budget {
			err = ErrTooLarge
		}
	} else {
		n, err = io.Copy(out, rc)
	}
	if err != nil {
		_ = out.Close()
		_ = os.Remove(target)
		return n, err
	}
	return n, out.Close()
}

// Pack writes sourceDir/file.zip holding every immediate subdirectory of
// sourceDir, recursively, as top-level entries. Loose files in sourceDir are
// left out. Packing the same tree twice yields the same entries.
func Pack(sourceDir string) (string, error) {
	dest := filepath.Join(sourceDir, constants.ArchiveName)

	entries, err := os.ReadDir(sourceDir)
	if err != nil {
		return "", &PackingError{Path: dest, Err: err}
	}

	tmp, err := os.CreateTemp(sourceDir, ".pack-*.zip")
	if err != nil {
		return "", &PackingError{Path: dest, Err: err}
	}
	tmpName := tmp.Name()
	fail := func(err error) (string, error) {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", &PackingError{Path: dest, Err: err}
	}

	zw := zip.NewWriter(tmp)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if err := addTree(zw, sourceDir, e.Name()); err != nil {
			return fail(err)
		}
	}
	if err := zw.Close(); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", &PackingError{Path: dest, Err: err}
	}
	if err := os.Rename(tmpName, dest); err != nil {
		_ = os.Remove(tmpName)
		return "", &PackingError{Path: dest, Err: err}
	}
	return dest, nil
}

// addTree walks base/rel in lexical order and adds it under rel.
func addTree(zw *zip.Writer, base, rel string) error {
	return filepath.WalkDir(filepath.Join(base, rel), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name, err := filepath.Rel(base, path)
		if err != nil {
			return err
		}
		name = filepath.ToSlash(name)

		info, err := d.Info()
		if err != nil {
			return err
		}
		hdr, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		hdr.Name = name
		if d.IsDir() {
			hdr.Name += "/"
			_, err := zw.CreateHeader(hdr)
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		hdr.Method = zip.Deflate

		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		_, err = io.Copy(w, f)
		return err
	})
}

// ListDocuments returns the .pdf files directly inside dir, sorted by name.
// Extension matching ignores case; hidden files are skipped.
func ListDocuments(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list documents: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || constants.IsHiddenName(e.Name()) || !constants.IsDocumentExt(filepath.Ext(e.Name())) {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

// Size returns the size in bytes of the file at path.
func Size(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Entries lists the entry names of a zip archive in stored order.
func Entries(archivePath string) ([]string, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()
	names := make([]string, 0, len(r.File))
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	return names, nil
}
