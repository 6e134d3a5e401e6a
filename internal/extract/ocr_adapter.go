package extract

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/faktur-sorter/internal/ocr"
)

// OCRAdapter exposes an ocr.Extractor as the TextExtractor stage.
type OCRAdapter struct {
	e      *ocr.Extractor
	logger *slog.Logger
}

func NewOCRAdapter(e *ocr.Extractor, logger *slog.Logger) *OCRAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &OCRAdapter{e: e, logger: logger}
}

// Extract reads the text of path. OCR output scoring below
// ocr.LowConfidenceThreshold carries a warning, since its identifiers are
// likely misread and the document may land in the wrong group.
func (a *OCRAdapter) Extract(ctx context.Context, path string) (TextExtractionResult, error) {
	r, err := a.e.Extract(ctx, path)
	res := TextExtractionResult(r)
	if err != nil {
		return res, err
	}
	if res.Method == ocr.MethodOCR && res.Confidence < ocr.LowConfidenceThreshold {
		res.Warnings = append(res.Warnings, fmt.Sprintf("low ocr confidence %.2f", res.Confidence))
	}
	a.logger.Debug("document text read", "path", path, "method", res.Method, "pages", res.Pages, "confidence", res.Confidence)
	return res, nil
}
