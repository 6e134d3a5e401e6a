package ingest

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

type WatchConfig struct {
	Roots       []string            // directories to watch (not recursive)
	AllowedExts map[string]struct{} // lowercase, without '.'; defaults to zip
	InitialScan bool                // if true, emit files already present
	Debounce    time.Duration       // coalesce rapid create/write bursts per file
	Logger      *slog.Logger
}

// StartWatcher emits the path of every allowed, non-hidden file created or
// written under the roots, once its events have been quiet for Debounce.
// Both channels close when ctx ends.
func StartWatcher(ctx context.Context, cfg WatchConfig) (<-chan string, <-chan error, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Roots) == 0 {
		logger.Error("watcher start failed: no roots provided")
		return nil, nil, errors.New("no roots provided")
	}
	if cfg.AllowedExts == nil {
		cfg.AllowedExts = map[string]struct{}{ArchiveExt: {}}
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("failed to create fsnotify watcher", "error", err)
		return nil, nil, err
	}

	var initial []string
	for _, root := range cfg.Roots {
		if err := w.Add(root); err != nil {
			logger.Error("failed to add root directory", "root", root, "error", err)
			_ = w.Close()
			return nil, nil, err
		}
		if !cfg.InitialScan {
			continue
		}
		entries, err := os.ReadDir(root)
		if err != nil {
			_ = w.Close()
			return nil, nil, err
		}
		for _, e := range entries {
			p := filepath.Join(root, e.Name())
			if !e.IsDir() && accept(p, cfg.AllowedExts) {
				initial = append(initial, p)
			}
		}
	}

	evCh := make(chan string, 256)
	errCh := make(chan error, 1)

	go func() {
		defer close(evCh)
		defer close(errCh)
		defer func() {
			if err := w.Close(); err != nil {
				logger.Warn("failed to close watcher", "error", err)
			}
		}()

		emit := func(p string) bool {
			select {
			case evCh <- p:
				return true
			case <-ctx.Done():
				return false
			}
		}
		for _, p := range initial {
			if !emit(p) {
				return
			}
		}

		// path -> last event time; flushed from this goroutine only
		pending := map[string]time.Time{}
		tick := time.NewTicker(tickInterval(cfg.Debounce))
		defer tick.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if !accept(e.Name, cfg.AllowedExts) || e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
					continue
				}
				if cfg.Debounce <= 0 {
					if !emit(e.Name) {
						return
					}
					continue
				}
				pending[e.Name] = time.Now()
			case now := <-tick.C:
				for p, last := range pending {
					if now.Sub(last) < cfg.Debounce {
						continue
					}
					delete(pending, p)
					if !emit(p) {
						return
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Error("watcher error", "error", err)
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	return evCh, errCh, nil
}

func accept(path string, exts map[string]struct{}) bool {
	return !IsHidden(path) && AllowedExt(filepath.Ext(path), exts)
}

func tickInterval(debounce time.Duration) time.Duration {
	if debounce <= 0 {
		return time.Hour
	}
	if d := debounce / 4; d >= 10*time.Millisecond {
		return d
	}
	return 10 * time.Millisecond
}
