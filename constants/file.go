package constants

import "strings"

// DocumentExt is the only document extension the pipeline picks up.
const DocumentExt = "pdf"

// ArchiveName is the fixed file name of both the uploaded and the produced archive.
const ArchiveName = "file.zip"

// ReportName is the job report workbook written next to the output archive.
const ReportName = "report.xlsx"

// DownloadName is the file name offered to clients when they fetch the result.
const DownloadName = "processed_files.zip"

// AllowedArchiveMIMETypes holds the upload content types accepted as zip archives.
var AllowedArchiveMIMETypes = map[string]struct{}{
	"application/zip":              {},
	"application/x-zip-compressed": {},
	"application/x-zip":            {},
	"application/octet-stream":     {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsHiddenName reports whether a base file name is hidden, which covers
// dotfiles and the "._" resource forks macOS adds to zips.
func IsHiddenName(name string) bool {
	return strings.HasPrefix(name, ".")
}

// IsDocumentExt reports whether ext (with or without dot) is a document extension.
func IsDocumentExt(ext string) bool {
	return NormalizeExt(ext) == DocumentExt
}
