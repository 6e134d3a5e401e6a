// Package jobs owns the job lifecycle: intake, queued processing, progress
// fan-out, download bookkeeping and cleanup.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/faktur-sorter/internal/async"
	"github.com/joseph-ayodele/faktur-sorter/internal/common"
	"github.com/joseph-ayodele/faktur-sorter/internal/entity"
	"github.com/joseph-ayodele/faktur-sorter/internal/pipeline"
	"github.com/joseph-ayodele/faktur-sorter/internal/progress"
	"github.com/joseph-ayodele/faktur-sorter/internal/repository"
	"github.com/joseph-ayodele/faktur-sorter/internal/retention"
)

// Runner executes one job. *pipeline.Pipeline satisfies it.
type Runner interface {
	Run(ctx context.Context, job *entity.Job, rep progress.Reporter) (pipeline.Result, error)
}

// Scheduler removes job storage later. *retention.Manager satisfies it.
type Scheduler interface {
	ScheduleDeletion(jobID string) error
}

// CompletionFunc runs after a job reaches a terminal status.
type CompletionFunc func(job *entity.Job, res pipeline.Result, err error)

type Config struct {
	UploadRoot   string
	DownloadRoot string
}

type Service struct {
	cfg       Config
	repo      repository.JobRepository
	runner    Runner
	hub       *progress.Hub
	redis     *progress.RedisPublisher
	retention Scheduler
	logger    *slog.Logger

	mu    sync.RWMutex
	queue async.Queue
	hooks []CompletionFunc
}

type Option func(*Service)

// WithRedis also publishes progress to Redis.
func WithRedis(p *progress.RedisPublisher) Option { return func(s *Service) { s.redis = p } }

// WithRetention schedules storage removal after download.
func WithRetention(r Scheduler) Option { return func(s *Service) { s.retention = r } }

func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.logger = l } }

func NewService(cfg Config, repo repository.JobRepository, runner Runner, hub *progress.Hub, opts ...Option) *Service {
	s := &Service{cfg: cfg, repo: repo, runner: runner, hub: hub}
	for _, o := range opts {
		o(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.hub == nil {
		s.hub = progress.NewHub(s.logger)
	}
	return s
}

// Attach sets the queue Submit enqueues onto. The queue's handler is
// normally the service itself.
func (s *Service) Attach(q async.Queue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = q
}

// OnComplete registers fn to run after every job finishes.
func (s *Service) OnComplete(fn CompletionFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, fn)
}

// Submit stores archive as a new job and queues it.
func (s *Service) Submit(ctx context.Context, archive io.Reader, settings entity.Settings) (*entity.Job, error) {
	s.mu.RLock()
	q := s.queue
	s.mu.RUnlock()
	if q == nil {
		return nil, errors.New("job queue not attached")
	}

	job := entity.NewJob(s.cfg.UploadRoot, s.cfg.DownloadRoot, settings)
	logger := s.logger.With("job_id", job.ID.String())

	if err := s.store(job, archive); err != nil {
		logger.Error("store upload failed", "error", err)
		s.discard(job)
		return nil, err
	}
	if err := s.repo.Create(ctx, job); err != nil {
		s.discard(job)
		return nil, common.WrapError(err, "persist job")
	}

	if err := q.Enqueue(ctx, async.Job{JobID: job.ID, SubmittedAt: time.Now()}); err != nil {
		logger.Error("enqueue failed", "error", err)
		_ = s.repo.Delete(context.WithoutCancel(ctx), job.ID)
		s.hub.Forget(job.ID.String())
		s.discard(job)
		return nil, common.WrapError(err, "enqueue job")
	}
	logger.Info("job submitted", "mode", string(job.Mode))
	return job, nil
}

// SubmitFile submits the archive at path.
func (s *Service) SubmitFile(ctx context.Context, path string, settings entity.Settings) (*entity.Job, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return s.Submit(ctx, f, settings)
}

func (s *Service) store(job *entity.Job, archive io.Reader) error {
	if err := os.MkdirAll(job.InputDir, 0o755); err != nil {
		return err
	}
	if err := os.MkdirAll(job.OutputDir, 0o755); err != nil {
		return err
	}
	f, err := os.Create(job.ArchivePath())
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, archive); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (s *Service) discard(job *entity.Job) {
	_ = os.RemoveAll(job.InputDir)
	_ = os.RemoveAll(job.OutputDir)
}

// Process runs a queued job. It is the queue's handler.
func (s *Service) Process(ctx context.Context, id uuid.UUID) error {
	job, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	key := id.String()
	logger := s.logger.With("job_id", key)

	rep := progress.Multi{s.hub.Reporter(key), progress.NewSlogReporter(logger)}
	if s.redis != nil {
		rep = append(rep, s.redis.Reporter(key))
	}

	res, runErr := s.runner.Run(ctx, job, rep)
	s.hub.Close(key)

	s.mu.RLock()
	hooks := append([]CompletionFunc(nil), s.hooks...)
	s.mu.RUnlock()
	for _, fn := range hooks {
		fn(job, res, runErr)
	}
	return runErr
}

var _ async.Handler = (*Service)(nil)

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, limit int) ([]*entity.Job, error) {
	return s.repo.List(ctx, limit)
}

// Events subscribes to the job's progress stream, replaying history first.
func (s *Service) Events(id uuid.UUID) (<-chan progress.Event, func()) {
	return s.hub.Subscribe(id.String())
}

// Downloaded records that the job's result was fetched and schedules the
// job's storage for removal.
func (s *Service) Downloaded(id uuid.UUID) {
	if s.retention == nil {
		return
	}
	if err := s.retention.ScheduleDeletion(id.String()); err != nil {
		s.logger.Warn("schedule deletion failed", "job_id", id.String(), "error", err)
	}
}

// Forget drops the bookkeeping of a job whose storage is gone. It is meant
// for retention.Manager.OnRemove.
func (s *Service) Forget(jobID string) {
	s.hub.Forget(jobID)
	id, err := uuid.Parse(jobID)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Warn("delete job record failed", "job_id", jobID, "error", err)
	}
}

// Wire connects retention removals to the service.
func (s *Service) Wire(m *retention.Manager) {
	m.OnRemove(s.Forget)
}

// ErrNotReady is returned when a job's output is requested before it completed.
var ErrNotReady = common.NewAppError(common.CodeNotFound, "job output not ready", common.ErrNotFound)

// ResultPath returns the output archive of a completed job.
func (s *Service) ResultPath(ctx context.Context, id uuid.UUID) (string, error) {
	job, err := s.repo.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return existing(job, job.ResultPath, job.DefaultResultPath())
}

// ReportPath returns the report workbook of a completed job.
func (s *Service) ReportPath(ctx context.Context, id uuid.UUID) (string, error) {
	job, err := s.repo.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return existing(job, job.ReportPath, "")
}

func existing(job *entity.Job, path, fallback string) (string, error) {
	if path == "" {
		path = fallback
	}
	if path == "" {
		return "", ErrNotReady
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: %s", ErrNotReady, job.ID)
	}
	return path, nil
}
