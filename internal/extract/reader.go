package extract

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/faktur-sorter/internal/entity"
	"github.com/joseph-ayodele/faktur-sorter/internal/metadata"
)

// RulesFieldExtractor applies the e-Faktur label patterns.
type RulesFieldExtractor struct{}

func (RulesFieldExtractor) Fields(text string) entity.DocumentMetadata {
	return metadata.Extract(text)
}

func (RulesFieldExtractor) LegacyFields(text string) entity.LegacyMetadata {
	return metadata.ExtractLegacy(text)
}

// DocumentReader chains both stages for one document.
type DocumentReader struct {
	text   TextExtractor
	fields FieldExtractor
	logger *slog.Logger
}

func NewDocumentReader(text TextExtractor, fields FieldExtractor, logger *slog.Logger) *DocumentReader {
	if logger == nil {
		logger = slog.Default()
	}
	if fields == nil {
		fields = RulesFieldExtractor{}
	}
	return &DocumentReader{text: text, fields: fields, logger: logger}
}

// Metadata reads the full record of the document at path. An error means the
// text could not be read at all; missing fields are not errors.
func (r *DocumentReader) Metadata(ctx context.Context, path string) (entity.DocumentMetadata, error) {
	res, err := r.read(ctx, path)
	if err != nil {
		return entity.EmptyMetadata(), err
	}
	return r.fields.Fields(res.Text), nil
}

// Legacy reads only the merge grouping key.
func (r *DocumentReader) Legacy(ctx context.Context, path string) (entity.LegacyMetadata, error) {
	res, err := r.read(ctx, path)
	if err != nil {
		return entity.LegacyMetadata{}, err
	}
	return r.fields.LegacyFields(res.Text), nil
}

func (r *DocumentReader) read(ctx context.Context, path string) (TextExtractionResult, error) {
	res, err := r.text.Extract(ctx, path)
	if err != nil {
		return res, fmt.Errorf("extract text: %w", err)
	}
	for _, w := range res.Warnings {
		if w != "" {
			r.logger.Warn("text extraction warning", "path", path, "warning", w)
		}
	}
	return res, nil
}
