// Package merge concatenates grouped documents into one file per
// (tax id, partner).
package merge

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/joseph-ayodele/faktur-sorter/constants"
	"github.com/joseph-ayodele/faktur-sorter/internal/grouping"
	"github.com/joseph-ayodele/faktur-sorter/internal/rename"
)

// Output describes the file produced for one group.
type Output struct {
	Path    string
	Sources []string
	Merged  bool // false when a single document was relocated as is
}

type Engine struct {
	conf   *model.Configuration
	logger *slog.Logger
}

func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Engine{conf: conf, logger: logger}
}

// OutputPath is <outRoot>/<taxId>/<partnerName>.pdf for g.
func OutputPath(g grouping.Group, outRoot string) string {
	return filepath.Join(outRoot, rename.Sanitize(g.TaxID), rename.Sanitize(g.PartnerName)+"."+constants.DocumentExt)
}

// Process writes the group's output. Several documents are concatenated in
// group order; a single document is moved unmodified. A failed merge leaves
// no partial output behind.
func (e *Engine) Process(ctx context.Context, g grouping.Group, outRoot string) (Output, error) {
	if err := ctx.Err(); err != nil {
		return Output{}, err
	}
	if len(g.Documents) == 0 {
		return Output{}, fmt.Errorf("group %s/%s has no documents", g.TaxID, g.PartnerName)
	}

	dest := OutputPath(g, outRoot)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return Output{}, fmt.Errorf("create output dir: %w", err)
	}
	out := Output{Path: dest, Sources: g.Documents}

	if len(g.Documents) == 1 {
		if err := relocate(g.Documents[0], dest); err != nil {
			return Output{}, fmt.Errorf("relocate %s: %w", g.Documents[0], err)
		}
		e.logger.Debug("relocated single document", "path", dest)
		return out, nil
	}

	start := time.Now()
	if err := api.MergeCreateFile(g.Documents, dest, false, e.conf); err != nil {
		_ = os.Remove(dest)
		return Output{}, fmt.Errorf("merge %d documents into %s: %w", len(g.Documents), dest, err)
	}
	out.Merged = true
	e.logger.Debug("merged group",
		"path", dest,
		"documents", len(g.Documents),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// PageCount returns the number of pages in the document at path.
func PageCount(path string) (int, error) {
	return api.PageCountFile(path)
}

// relocate renames src to dest, falling back to copy and remove when the two
// live on different devices.
func relocate(src, dest string) error {
	if err := os.Rename(src, dest); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dest)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dest)
		return err
	}
	return os.Remove(src)
}
