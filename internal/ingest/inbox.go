// Package ingest turns archives dropped into a hot folder into jobs and
// delivers their results to an outbox folder.
package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/faktur-sorter/internal/entity"
	"github.com/joseph-ayodele/faktur-sorter/internal/pipeline"
)

// Submitter accepts archives as jobs. *jobs.Service satisfies it.
type Submitter interface {
	SubmitFile(ctx context.Context, path string, settings entity.Settings) (*entity.Job, error)
	Downloaded(id uuid.UUID)
}

type InboxConfig struct {
	Dir      string
	Outbox   string
	Settings entity.Settings
	Debounce time.Duration
}

// Stats counts what the inbox did since it started.
type Stats struct {
	Seen      uint32
	Submitted uint32
	Delivered uint32
	Failed    uint32
}

type Inbox struct {
	cfg    InboxConfig
	sub    Submitter
	logger *slog.Logger

	mu      sync.Mutex
	pending map[uuid.UUID]string // job -> inbox file name
	// completions that arrived while their submission was still returning
	early      map[uuid.UUID]completion
	submitting int
	stats      Stats
}

type completion struct {
	job *entity.Job
	res pipeline.Result
	err error
}

func NewInbox(cfg InboxConfig, sub Submitter, logger *slog.Logger) *Inbox {
	if logger == nil {
		logger = slog.Default()
	}
	return &Inbox{
		cfg:     cfg,
		sub:     sub,
		logger:  logger,
		pending: make(map[uuid.UUID]string),
		early:   make(map[uuid.UUID]completion),
	}
}

// Run watches the inbox until ctx ends. Archives already present are
// submitted first.
func (in *Inbox) Run(ctx context.Context) error {
	for _, dir := range []string{in.cfg.Dir, in.cfg.Outbox} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("prepare %s: %w", dir, err)
		}
	}
	events, errs, err := StartWatcher(ctx, WatchConfig{
		Roots:       []string{in.cfg.Dir},
		InitialScan: true,
		Debounce:    in.cfg.Debounce,
		Logger:      in.logger,
	})
	if err != nil {
		return err
	}
	in.logger.Info("inbox watching", "dir", in.cfg.Dir, "outbox", in.cfg.Outbox, "mode", string(in.cfg.Settings.Mode))

	for {
		select {
		case path, ok := <-events:
			if !ok {
				return ctx.Err()
			}
			in.handle(ctx, path)
		case err, ok := <-errs:
			if ok {
				in.logger.Warn("inbox watcher error", "error", err)
			}
		}
	}
}

// handle submits one archive and removes it from the inbox.
func (in *Inbox) handle(ctx context.Context, path string) {
	in.count(func(s *Stats) { s.Seen++ })
	if _, err := os.Stat(path); err != nil {
		// renamed away or already consumed
		return
	}
	in.mu.Lock()
	in.submitting++
	in.mu.Unlock()

	job, err := in.sub.SubmitFile(ctx, path, in.cfg.Settings)

	in.mu.Lock()
	in.submitting--
	var done *completion
	if err == nil {
		in.stats.Submitted++
		if c, ok := in.early[job.ID]; ok {
			done = &c
		} else {
			in.pending[job.ID] = filepath.Base(path)
		}
	}
	if in.submitting == 0 {
		clear(in.early)
	}
	in.mu.Unlock()

	if err != nil {
		in.count(func(s *Stats) { s.Failed++ })
		in.logger.Error("inbox submit failed", "path", path, "error", err)
		return
	}
	if err := os.Remove(path); err != nil {
		in.logger.Warn("inbox file not removed", "path", path, "error", err)
	}
	in.logger.Info("inbox archive submitted", "path", path, "job_id", job.ID.String())
	if done != nil {
		in.deliver(filepath.Base(path), *done)
	}
}

// Complete delivers a finished inbox job to the outbox. It is registered
// as a job completion hook and ignores jobs the inbox did not submit.
func (in *Inbox) Complete(job *entity.Job, res pipeline.Result, runErr error) {
	in.mu.Lock()
	name, ok := in.pending[job.ID]
	delete(in.pending, job.ID)
	if !ok && in.submitting > 0 {
		in.early[job.ID] = completion{job: job, res: res, err: runErr}
	}
	in.mu.Unlock()
	if ok {
		in.deliver(name, completion{job: job, res: res, err: runErr})
	}
}

func (in *Inbox) deliver(name string, c completion) {
	logger := in.logger.With("job_id", c.job.ID.String(), "source", name)
	if c.err != nil {
		in.count(func(s *Stats) { s.Failed++ })
		logger.Error("inbox job failed", "error", c.err)
		return
	}
	dst := filepath.Join(in.cfg.Outbox, ProcessedName(name))
	if err := copyAtomic(c.res.ArchivePath, dst); err != nil {
		in.count(func(s *Stats) { s.Failed++ })
		logger.Error("outbox delivery failed", "dst", dst, "error", err)
		return
	}
	in.count(func(s *Stats) { s.Delivered++ })
	logger.Info("outbox delivered", "dst", dst, "outputs", c.res.Outputs, "failures", c.res.Failures)
	in.sub.Downloaded(c.job.ID)
}

func (in *Inbox) Stats() Stats {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.stats
}

func (in *Inbox) count(fn func(*Stats)) {
	in.mu.Lock()
	defer in.mu.Unlock()
	fn(&in.stats)
}

// copyAtomic copies src to a hidden temp file next to dst, then renames it.
func copyAtomic(src, dst string) error {
	r, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".deliver-*")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), dst)
}
