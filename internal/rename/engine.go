package rename

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/faktur-sorter/internal/entity"
)

// maxSuffix bounds the collision search.
const maxSuffix = 100000

// UniquePath returns path when nothing exists there, otherwise the first of
// stem_1.ext, stem_2.ext, ... that does not exist.
func UniquePath(path string) (string, error) {
	for i := 0; i < maxSuffix; i++ {
		candidate := withSuffix(path, i)
		_, err := os.Stat(candidate)
		if errors.Is(err, fs.ErrNotExist) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("no free name for %s", path)
}

func withSuffix(path string, i int) string {
	if i == 0 {
		return path
	}
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_" + strconv.Itoa(i) + ext
}

// Engine copies documents into <outRoot>/<taxId>/ under rendered names.
type Engine struct {
	logger *slog.Logger
}

func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger}
}

// Place copies src to its rendered name and returns the final path. The
// destination is created exclusively, so a concurrent writer racing for the
// same name moves on to the next suffix instead of overwriting.
func (e *Engine) Place(ctx context.Context, src string, meta entity.DocumentMetadata, s entity.Settings, outRoot string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dir := filepath.Join(outRoot, Sanitize(meta.TaxID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	base := filepath.Join(dir, Render(meta, s))

	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("open source: %w", err)
	}
	defer func() { _ = in.Close() }()

	for i := 0; i < maxSuffix; i++ {
		target := withSuffix(base, i)
		out, err := os.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create %s: %w", target, err)
		}
		if _, err := io.Copy(out, in); err != nil {
			_ = out.Close()
			_ = os.Remove(target)
			return "", fmt.Errorf("copy to %s: %w", target, err)
		}
		if err := out.Close(); err != nil {
			_ = os.Remove(target)
			return "", fmt.Errorf("close %s: %w", target, err)
		}
		if i > 0 {
			e.logger.Debug("name collision resolved", "path", target, "suffix", i)
		}
		return target, nil
	}
	return "", fmt.Errorf("no free name for %s", base)
}
