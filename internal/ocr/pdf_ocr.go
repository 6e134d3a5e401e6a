package ocr

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// pageBreak separates OCR'd pages the same way pdftotext does.
const pageBreak = "\n\f\n"

var errNoPages = errors.New("no pages rendered")

// pdfToText reads the text layer with poppler's pdftotext, which terminates
// every page with a form feed.
func (e *Extractor) pdfToText(ctx context.Context, path string) (string, int, []string, error) {
	out, _, err := e.runner.Run(ctx, e.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return "", 0, nil, err
	}
	text := string(out)
	pages := strings.Count(text, "\f")
	if pages == 0 && strings.TrimSpace(text) != "" {
		pages = 1
	}
	return text, pages, nil, nil
}

// pdfToOCR rasterizes the document and runs tesseract page by page. A page
// that fails OCR is skipped with a warning; the rest still count.
func (e *Extractor) pdfToOCR(ctx context.Context, path string) (string, int, []string, error) {
	tmp, err := os.MkdirTemp("", "faktur-ocr-*")
	if err != nil {
		return "", 0, nil, err
	}
	defer func() {
		if err := os.RemoveAll(tmp); err != nil {
			e.logger.Warn("failed to remove ocr scratch dir", "path", tmp, "error", err)
		}
	}()

	images, err := e.rasterize(ctx, path, filepath.Join(tmp, "page"))
	if err != nil {
		return "", 0, nil, err
	}

	var (
		texts []string
		warns []string
	)
	for _, img := range images {
		if err := ctx.Err(); err != nil {
			return "", 0, warns, err
		}
		txt, w, err := e.tesseractOCR(ctx, img)
		warns = append(warns, w...)
		if err != nil {
			warns = append(warns, filepath.Base(img)+": "+err.Error())
			continue
		}
		texts = append(texts, txt)
	}
	return strings.Join(texts, pageBreak), len(images), warns, nil
}

// rasterize renders PNGs named <prefix>-N.png and returns them in page order,
// capped at MaxPages.
func (e *Extractor) rasterize(ctx context.Context, path, prefix string) ([]string, error) {
	args := []string{"-r", strconv.Itoa(e.cfg.DPI), "-png"}
	if e.cfg.MaxPages > 0 {
		args = append(args, "-l", strconv.Itoa(e.cfg.MaxPages))
	}
	if _, _, err := e.runner.Run(ctx, e.cfg.Pdftoppm, append(args, path, prefix)...); err != nil {
		return nil, err
	}

	images, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, errNoPages
	}
	// pdftoppm zero-pads page numbers to a fixed width, so lexical order is page order
	sort.Strings(images)
	if e.cfg.MaxPages > 0 && len(images) > e.cfg.MaxPages {
		images = images[:e.cfg.MaxPages]
	}
	return images, nil
}
