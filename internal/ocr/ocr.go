package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/joseph-ayodele/faktur-sorter/constants"
)

// Text backends.
const (
	BackendNative    = "native"
	BackendPdftotext = "pdftotext"
)

// Extraction methods reported in ExtractionResult.Method.
const (
	MethodNative    = "pdf-native"
	MethodPdftotext = "pdf-text"
	MethodOCR       = "pdf-ocr"
)

type Config struct {
	Backend           string // "native" (default) | "pdftotext"
	EnableOCRFallback bool   // rasterize and OCR when the text layer is empty

	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "ind"
	TessdataDir   string
	DPI           int // rasterization DPI for scanned PDFs, default 300
	MaxPages      int // 0 = no limit

	PSM int // e.g., 6 is good for uniform block of text
	OEM int // 1 = LSTM; leave 0 to use default
	// EnableTSVConfidence runs a second tesseract pass for word confidences.
	EnableTSVConfidence bool
}

type ExtractionResult struct {
	Text       string
	Pages      int
	Method     string
	Language   string
	Duration   time.Duration
	Warnings   []string
	Confidence float32
}

type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Backend == "" {
		cfg.Backend = BackendNative
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "ind"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	return &Extractor{cfg: cfg, runner: execRunner{logger: logger}, logger: logger}
}

// WithRunner swaps the command runner, mainly for tests.
func (e *Extractor) WithRunner(r Runner) *Extractor {
	e.runner = r
	return e
}

// Extract reads the text of one PDF with the configured backend, falling
// back to OCR for image-only documents when enabled.
func (e *Extractor) Extract(ctx context.Context, path string) (ExtractionResult, error) {
	start := time.Now()
	ext := constants.NormalizeExt(filepath.Ext(path))
	if !constants.IsDocumentExt(ext) {
		e.logger.Error("unsupported text extraction extension", "extension", ext, "path", path)
		return ExtractionResult{}, fmt.Errorf("unsupported extension: %q", ext)
	}
	e.logger.Debug("starting text extraction", "path", path, "backend", e.cfg.Backend)

	res, err := e.extractPDF(ctx, path)
	res.Duration = time.Since(start)
	if err != nil {
		return res, err
	}
	if res.Pages == 0 {
		if n, err := api.PageCountFile(path); err == nil {
			res.Pages = n
		} else {
			res.Warnings = append(res.Warnings, "page count: "+err.Error())
		}
	}
	e.logger.Debug("text extraction done",
		"path", path,
		"method", res.Method,
		"pages", res.Pages,
		"chars", len(res.Text),
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

func (e *Extractor) extractPDF(ctx context.Context, path string) (ExtractionResult, error) {
	var (
		text  string
		pages int
		warns []string
		err   error
		res   = ExtractionResult{Language: e.cfg.TesseractLang}
	)
	switch e.cfg.Backend {
	case BackendPdftotext:
		res.Method = MethodPdftotext
		text, pages, warns, err = e.pdfToText(ctx, path)
	case BackendNative:
		res.Method = MethodNative
		text, pages, err = nativeText(path)
	default:
		return res, fmt.Errorf("unknown text backend %q", e.cfg.Backend)
	}
	res.Warnings = append(res.Warnings, warns...)
	if err != nil {
		return res, fmt.Errorf("%s: %w", res.Method, err)
	}
	res.Text = Normalize(text)
	res.Pages = pages

	if strings.TrimSpace(res.Text) != "" || !e.cfg.EnableOCRFallback {
		return res, nil
	}

	e.logger.Info("empty text layer, falling back to ocr", "path", path)
	text, pages, warns, err = e.pdfToOCR(ctx, path)
	res.Warnings = append(res.Warnings, warns...)
	if err != nil {
		return res, fmt.Errorf("%s: %w", MethodOCR, err)
	}
	res.Method = MethodOCR
	res.Text = Normalize(text)
	res.Pages = pages
	res.Confidence = heuristicConfidence(res.Text)
	return res, nil
}
