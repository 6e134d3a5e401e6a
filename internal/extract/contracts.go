package extract

import (
	"context"
	"time"

	"github.com/joseph-ayodele/faktur-sorter/internal/entity"
)

// TextExtractor reads the text layer (or OCR text) of one document.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (TextExtractionResult, error)
}

// TextExtractionResult mirrors ocr.ExtractionResult field for field.
type TextExtractionResult struct {
	Text       string
	Pages      int
	Method     string
	Language   string
	Duration   time.Duration
	Warnings   []string
	Confidence float32
}

// FieldExtractor turns document text into metadata. Implementations never fail;
// unmatched fields carry their sentinel.
type FieldExtractor interface {
	Fields(text string) entity.DocumentMetadata
	LegacyFields(text string) entity.LegacyMetadata
}
