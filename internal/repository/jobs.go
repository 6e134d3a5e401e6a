package repository

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/faktur-sorter/internal/common"
	"github.com/joseph-ayodele/faktur-sorter/internal/entity"
)

// JobRepository stores job bookkeeping. Implementations are safe for
// concurrent use and return copies, never shared pointers.
type JobRepository interface {
	Create(ctx context.Context, job *entity.Job) error
	Get(ctx context.Context, id uuid.UUID) (*entity.Job, error)
	// UpdateStatus persists the job's status, counters, paths and error.
	UpdateStatus(ctx context.Context, job *entity.Job) error
	// List returns the most recent jobs first.
	List(ctx context.Context, limit int) ([]*entity.Job, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Ping(ctx context.Context) error
	Close() error
}

type memoryJobRepo struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]entity.Job
}

// NewMemoryJobRepository keeps jobs in process memory only.
func NewMemoryJobRepository() JobRepository {
	return &memoryJobRepo{jobs: make(map[uuid.UUID]entity.Job)}
}

func clone(j entity.Job) *entity.Job {
	out := j
	out.Settings.ComponentOrder = append(out.Settings.ComponentOrder[:0:0], j.Settings.ComponentOrder...)
	if j.FinishedAt != nil {
		t := *j.FinishedAt
		out.FinishedAt = &t
	}
	return &out
}

func (r *memoryJobRepo) Create(_ context.Context, job *entity.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[job.ID]; ok {
		return common.NewAppError(common.CodeInvalidInput, "job already exists: "+job.ID.String(), common.ErrInvalidInput)
	}
	r.jobs[job.ID] = *clone(*job)
	return nil
}

func (r *memoryJobRepo) Get(_ context.Context, id uuid.UUID) (*entity.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, notFound(id)
	}
	return clone(j), nil
}

func (r *memoryJobRepo) UpdateStatus(_ context.Context, job *entity.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[job.ID]; !ok {
		return notFound(job.ID)
	}
	r.jobs[job.ID] = *clone(*job)
	return nil
}

func (r *memoryJobRepo) List(_ context.Context, limit int) ([]*entity.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*entity.Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		out = append(out, clone(j))
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.After(out[k].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryJobRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, id)
	return nil
}

func (r *memoryJobRepo) Ping(context.Context) error { return nil }

func (r *memoryJobRepo) Close() error { return nil }

func notFound(id uuid.UUID) error {
	return common.NewAppError(common.CodeNotFound, "job not found: "+id.String(), common.ErrNotFound)
}

// dbError tags a store failure so callers can tell it from a missing job.
func dbError(op string, err error) error {
	return common.NewAppError(common.CodeDatabase, op, errors.Join(common.ErrDatabase, err))
}
