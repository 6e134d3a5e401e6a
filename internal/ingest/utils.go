package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/faktur-sorter/constants"
)

// ArchiveExt is the only extension the inbox picks up.
const ArchiveExt = "zip"

// AllowedExt reports whether ext (with or without dot) is in exts.
func AllowedExt(ext string, exts map[string]struct{}) bool {
	_, ok := exts[constants.NormalizeExt(ext)]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	return constants.IsHiddenName(filepath.Base(path))
}

// ProcessedName is the outbox file name for an inbox archive: "march.zip"
// becomes "march-processed.zip".
func ProcessedName(inboxPath string) string {
	base := filepath.Base(inboxPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return stem + "-processed." + ArchiveExt
}
