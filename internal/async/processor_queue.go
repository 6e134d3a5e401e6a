package async

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultWorkers   = 2
	defaultQueueSize = 64
	defaultTimeout   = 15 * time.Minute
)

// ProcessorQueue hands jobs to a fixed pool of workers over a bounded
// channel. Each job runs under its own timeout, derived from a base context
// that Shutdown cancels when draining takes too long.
type ProcessorQueue struct {
	handler Handler
	logger  *slog.Logger
	workers int
	timeout time.Duration
	jobs    chan Job

	wg     sync.WaitGroup
	base   context.Context
	cancel context.CancelFunc

	// senders hold the read side while sending, so the channel is never
	// closed under them
	mu     sync.RWMutex
	closed bool

	inFlight  atomic.Int64
	processed atomic.Int64
	failed    atomic.Int64
}

// Stats is a point-in-time view of the queue.
type Stats struct {
	Queued    int   `json:"queued"`
	InFlight  int64 `json:"in_flight"`
	Processed int64 `json:"processed"`
	Failed    int64 `json:"failed"`
}

type Option func(*ProcessorQueue)

func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.jobs = make(chan Job, n)
		}
	}
}

// WithProcessTimeout caps how long one job may run.
func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// NewProcessorQueue starts the workers immediately.
func NewProcessorQueue(h Handler, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		handler: h,
		logger:  logger.With("component", "queue"),
		workers: defaultWorkers,
		timeout: defaultTimeout,
		jobs:    make(chan Job, defaultQueueSize),
	}
	for _, o := range opts {
		o(q)
	}
	q.base, q.cancel = context.WithCancel(context.Background())
	q.wg.Add(q.workers)
	for id := 1; id <= q.workers; id++ {
		go q.worker(id)
	}
	q.logger.Info("queue started", "workers", q.workers, "capacity", cap(q.jobs), "timeout", q.timeout)
	return q
}

func (q *ProcessorQueue) worker(id int) {
	defer q.wg.Done()
	for job := range q.jobs {
		q.process(id, job)
	}
	q.logger.Debug("worker stopped", "worker_id", id)
}

func (q *ProcessorQueue) process(workerID int, job Job) {
	q.inFlight.Add(1)
	defer q.inFlight.Add(-1)

	log := q.logger.With("worker_id", workerID, "job_id", job.JobID)
	if job.TraceID != "" {
		log = log.With("trace_id", job.TraceID)
	}
	ctx, cancel := context.WithTimeout(q.base, q.timeout)
	defer cancel()

	start := time.Now()
	err := q.safeProcess(ctx, job)
	attrs := []any{
		"waited_ms", start.Sub(job.SubmittedAt).Milliseconds(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	}
	if err != nil {
		q.failed.Add(1)
		log.Error("job failed", append(attrs, "error", err)...)
		return
	}
	q.processed.Add(1)
	log.Info("job processed", attrs...)
}

// safeProcess reports a handler panic as an error.
func (q *ProcessorQueue) safeProcess(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return q.handler.Process(ctx, job.JobID)
}

// Enqueue waits for a free slot while the queue is full, until ctx is done.
func (q *ProcessorQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}

	select {
	case q.jobs <- job:
		q.logger.Debug("job queued", "job_id", job.JobID, "depth", len(q.jobs))
		return nil
	default:
	}
	q.logger.Warn("queue full, waiting for a worker", "job_id", job.JobID, "capacity", cap(q.jobs))
	select {
	case q.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *ProcessorQueue) Stats() Stats {
	return Stats{
		Queued:    len(q.jobs),
		InFlight:  q.inFlight.Load(),
		Processed: q.processed.Load(),
		Failed:    q.failed.Load(),
	}
}

// Shutdown stops intake and waits for queued jobs to drain. When ctx ends
// first, running jobs see their context cancelled.
func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		q.logger.Info("queue drained", "processed", q.processed.Load(), "failed", q.failed.Load())
	case <-ctx.Done():
		q.logger.Warn("queue shutdown timed out, cancelling running jobs", "in_flight", q.inFlight.Load())
	}
	q.cancel()
}
