package async

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrQueueClosed is returned by Enqueue once Shutdown has started.
var ErrQueueClosed = errors.New("queue is shutting down")

// Job is the smallest useful unit of queued work.
type Job struct {
	JobID       uuid.UUID
	SubmittedAt time.Time
	TraceID     string
}

// Handler runs one queued job to completion.
type Handler interface {
	Process(ctx context.Context, jobID uuid.UUID) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, jobID uuid.UUID) error

func (f HandlerFunc) Process(ctx context.Context, jobID uuid.UUID) error { return f(ctx, jobID) }

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
