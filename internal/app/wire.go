// Package app turns the loaded configuration into the components the
// binaries share.
package app

import (
	"io"
	"log/slog"

	"github.com/joseph-ayodele/faktur-sorter/internal/common"
	"github.com/joseph-ayodele/faktur-sorter/internal/extract"
	"github.com/joseph-ayodele/faktur-sorter/internal/ocr"
	"github.com/joseph-ayodele/faktur-sorter/internal/pipeline"
	"github.com/joseph-ayodele/faktur-sorter/internal/repository"
	"github.com/joseph-ayodele/faktur-sorter/internal/retention"
)

// NewLogger returns a JSON or text slog logger at the configured level.
func NewLogger(cfg *common.Config, w io.Writer, json bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if json {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func OCRConfig(cfg *common.Config) ocr.Config {
	return ocr.Config{
		Backend:           cfg.Text.Backend,
		EnableOCRFallback: cfg.Text.OCRFallback,
		Pdftotext:         cfg.Text.Pdftotext,
		Pdftoppm:          cfg.Text.Pdftoppm,
		Tesseract:         cfg.Text.Tesseract,
		TesseractLang:     cfg.Text.TesseractLang,
		PSM:               6,
	}
}

// NewReader builds the text extractor plus rule-based field extraction.
func NewReader(cfg *common.Config, logger *slog.Logger) *extract.DocumentReader {
	extractor := ocr.NewExtractor(OCRConfig(cfg), logger)
	return extract.NewDocumentReader(extract.NewOCRAdapter(extractor, logger), extract.RulesFieldExtractor{}, logger)
}

func PipelineConfig(cfg *common.Config) pipeline.Config {
	pc := pipeline.DefaultConfig()
	pc.WarmupDelay = cfg.Pipeline.WarmupDelay
	pc.SmallArchiveBytes = cfg.Pipeline.SmallArchiveBytes
	pc.UnitDelay = cfg.Pipeline.UnitDelay
	pc.LogDedupWindow = cfg.Pipeline.LogDedupWindow
	pc.MaxExtractBytes = cfg.Pipeline.MaxExtractMB << 20
	pc.MaxArchiveEntries = cfg.Pipeline.MaxArchiveEntries
	return pc
}

func RepositoryConfig(cfg *common.Config) repository.Config {
	return repository.Config{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.DSN,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		DialTimeout:     cfg.Database.DialTimeout,
	}
}

func RetentionConfig(cfg *common.Config) retention.Config {
	return retention.Config{
		UploadRoot:    cfg.Storage.UploadPath,
		DownloadRoot:  cfg.Storage.DownloadPath,
		SweepInterval: cfg.Retention.SweepInterval,
		MaxAge:        cfg.Retention.MaxAge,
		DeletionDelay: cfg.Retention.DeletionDelay,
	}
}
