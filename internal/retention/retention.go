// Package retention removes per-job storage after download and sweeps
// abandoned jobs.
package retention

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/faktur-sorter/internal/common"
)

type Config struct {
	UploadRoot    string
	DownloadRoot  string
	SweepInterval time.Duration
	MaxAge        time.Duration
	DeletionDelay time.Duration
}

// Manager owns the deletion timers of all jobs. All methods are safe for
// concurrent use and removing an absent path is never an error.
type Manager struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	timers   map[string]*time.Timer
	onRemove []func(jobID string)
	stopped  bool
}

func NewManager(cfg Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{cfg: cfg, logger: logger, timers: make(map[string]*time.Timer)}
}

// OnRemove registers fn to run after a job's storage is removed.
func (m *Manager) OnRemove(fn func(jobID string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onRemove = append(m.onRemove, fn)
}

func validJobID(jobID string) error {
	if _, err := uuid.Parse(jobID); err != nil {
		return common.NewAppError(common.CodeInvalidInput, fmt.Sprintf("invalid job id %q", jobID), common.ErrInvalidInput)
	}
	return nil
}

// ScheduleDeletion removes the job's storage after DeletionDelay. Scheduling
// a job again restarts its timer.
func (m *Manager) ScheduleDeletion(jobID string) error {
	if err := validJobID(jobID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return errors.New("retention manager stopped")
	}
	if t, ok := m.timers[jobID]; ok {
		t.Stop()
	}
	m.timers[jobID] = time.AfterFunc(m.cfg.DeletionDelay, func() {
		m.mu.Lock()
		delete(m.timers, jobID)
		m.mu.Unlock()
		if err := m.DeleteJob(jobID); err != nil {
			m.logger.Error("scheduled deletion failed", "job_id", jobID, "error", err)
		}
	})
	m.logger.Info("deletion scheduled", "job_id", jobID, "delay", m.cfg.DeletionDelay.String())
	return nil
}

// Cancel drops a pending deletion; it reports whether one existed.
func (m *Manager) Cancel(jobID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.timers[jobID]
	if ok {
		t.Stop()
		delete(m.timers, jobID)
	}
	return ok
}

// Pending returns the number of scheduled deletions.
func (m *Manager) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

// DeleteJob removes both storage subtrees of the job now.
func (m *Manager) DeleteJob(jobID string) error {
	if err := validJobID(jobID); err != nil {
		return err
	}
	var errs []error
	for _, root := range m.roots() {
		path := filepath.Join(root, jobID)
		if err := os.RemoveAll(path); err != nil {
			errs = append(errs, err)
			continue
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	m.logger.Info("job storage removed", "job_id", jobID)
	m.notify(jobID)
	return nil
}

// Sweep removes every job subtree under either root whose modification time
// is more than MaxAge before now. It returns the removed directory names.
func (m *Manager) Sweep(now time.Time) ([]string, error) {
	var removed []string
	var errs []error
	seen := map[string]bool{}

	for _, root := range m.roots() {
		entries, err := os.ReadDir(root)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			info, err := e.Info()
			if err != nil {
				if !errors.Is(err, fs.ErrNotExist) {
					errs = append(errs, err)
				}
				continue
			}
			if now.Sub(info.ModTime()) <= m.cfg.MaxAge {
				continue
			}
			path := filepath.Join(root, e.Name())
			if err := os.RemoveAll(path); err != nil {
				errs = append(errs, err)
				continue
			}
			m.logger.Info("expired job storage removed", "path", path, "age", now.Sub(info.ModTime()).Round(time.Second).String())
			if !seen[e.Name()] {
				seen[e.Name()] = true
				removed = append(removed, e.Name())
			}
		}
	}
	for _, name := range removed {
		if validJobID(name) == nil {
			m.Cancel(name)
			m.notify(name)
		}
	}
	return removed, errors.Join(errs...)
}

// Run sweeps once, then every SweepInterval until ctx is done.
func (m *Manager) Run(ctx context.Context) error {
	interval := m.cfg.SweepInterval
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	m.logger.Info("retention sweeper started", "interval", interval.String(), "max_age", m.cfg.MaxAge.String())

	if _, err := m.Sweep(time.Now()); err != nil {
		m.logger.Warn("sweep failed", "error", err)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.Stop()
			return nil
		case now := <-ticker.C:
			if _, err := m.Sweep(now); err != nil {
				m.logger.Warn("sweep failed", "error", err)
			}
		}
	}
}

// Stop cancels every pending deletion.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
	for id, t := range m.timers {
		t.Stop()
		delete(m.timers, id)
	}
}

func (m *Manager) roots() []string {
	var out []string
	for _, r := range []string{m.cfg.UploadRoot, m.cfg.DownloadRoot} {
		if r != "" {
			out = append(out, r)
		}
	}
	return out
}

func (m *Manager) notify(jobID string) {
	m.mu.Lock()
	hooks := make([]func(string), len(m.onRemove))
	copy(hooks, m.onRemove)
	m.mu.Unlock()
	for _, fn := range hooks {
		fn(jobID)
	}
}
