package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"github.com/joseph-ayodele/faktur-sorter/internal/app"
	"github.com/joseph-ayodele/faktur-sorter/internal/common"
	"github.com/joseph-ayodele/faktur-sorter/internal/extract"
	"github.com/joseph-ayodele/faktur-sorter/internal/metadata"
	"github.com/joseph-ayodele/faktur-sorter/internal/ocr"
)

func main() {
	cfg, err := common.LoadConfig()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(2)
	}
	logger := app.NewLogger(cfg, os.Stderr, true)
	slog.SetDefault(logger)

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "extracttext <file.pdf>")
		os.Exit(2)
	}
	path := os.Args[1]

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	textExtractor := extract.NewOCRAdapter(ocr.NewExtractor(app.OCRConfig(cfg), logger), logger)

	start := time.Now()
	res, err := textExtractor.Extract(ctx, path)
	dur := time.Since(start)
	if err != nil {
		logger.Error("text extraction failed", "path", path, "error", err, "duration_ms", dur.Milliseconds())
		os.Exit(1)
	}

	logger.Info("text extraction OK",
		"method", res.Method,
		"pages", res.Pages,
		"bytes", len(res.Text),
		"confidence", res.Confidence,
		"duration_ms", dur.Milliseconds(),
	)

	out := struct {
		Text     string `json:"text"`
		Metadata any    `json:"metadata"`
		Legacy   any    `json:"legacy"`
	}{
		Text:     res.Text,
		Metadata: metadata.Extract(res.Text),
		Legacy:   metadata.ExtractLegacy(res.Text),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		logger.Error("write output", "error", err)
		os.Exit(1)
	}
}
