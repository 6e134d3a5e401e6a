package jobs_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/faktur-sorter/constants"
	"github.com/joseph-ayodele/faktur-sorter/internal/async"
	"github.com/joseph-ayodele/faktur-sorter/internal/common"
	"github.com/joseph-ayodele/faktur-sorter/internal/entity"
	"github.com/joseph-ayodele/faktur-sorter/internal/pipeline"
	"github.com/joseph-ayodele/faktur-sorter/internal/progress"
	"github.com/joseph-ayodele/faktur-sorter/internal/repository"
	"github.com/joseph-ayodele/faktur-sorter/internal/retention"
	"github.com/joseph-ayodele/faktur-sorter/internal/services/jobs"
)

// fakeRunner writes a result archive and reports a couple of events.
type fakeRunner struct {
	fail error
}

func (f fakeRunner) Run(_ context.Context, job *entity.Job, rep progress.Reporter) (pipeline.Result, error) {
	rep.Log("Starting file processing...")
	rep.Progress(0)
	if f.fail != nil {
		job.Status = constants.JobStatusFailed
		return pipeline.Result{}, f.fail
	}
	path := job.DefaultResultPath()
	if err := os.WriteFile(path, []byte("zip"), 0o644); err != nil {
		return pipeline.Result{}, err
	}
	job.Status = constants.JobStatusCompleted
	job.ResultPath = path
	rep.Progress(100)
	return pipeline.Result{ArchivePath: path}, nil
}

type fixture struct {
	svc  *jobs.Service
	repo repository.JobRepository
	cfg  jobs.Config
	done chan *entity.Job
}

func newFixture(t *testing.T, runner jobs.Runner, opts ...jobs.Option) *fixture {
	t.Helper()
	root := t.TempDir()
	cfg := jobs.Config{UploadRoot: filepath.Join(root, "up"), DownloadRoot: filepath.Join(root, "down")}
	repo := repository.NewMemoryJobRepository()
	svc := jobs.NewService(cfg, repo, runner, progress.NewHub(nil), opts...)

	q := async.NewProcessorQueue(svc, nil, async.WithWorkers(2))
	t.Cleanup(func() { q.Shutdown(context.Background()) })
	svc.Attach(q)

	done := make(chan *entity.Job, 8)
	svc.OnComplete(func(job *entity.Job, _ pipeline.Result, _ error) { done <- job })
	return &fixture{svc: svc, repo: repo, cfg: cfg, done: done}
}

func (f *fixture) wait(t *testing.T) *entity.Job {
	t.Helper()
	select {
	case job := <-f.done:
		return job
	case <-time.After(5 * time.Second):
		t.Fatal("job never completed")
		return nil
	}
}

func TestSubmit_StoresAndProcesses(t *testing.T) {
	f := newFixture(t, fakeRunner{})
	job, err := f.svc.Submit(context.Background(), bytes.NewReader([]byte("PK")), entity.DefaultSettings())
	require.NoError(t, err)

	stored, err := os.ReadFile(filepath.Join(f.cfg.UploadRoot, job.ID.String(), constants.ArchiveName))
	require.NoError(t, err)
	assert.Equal(t, "PK", string(stored))

	finished := f.wait(t)
	assert.Equal(t, job.ID, finished.ID)
	assert.Equal(t, constants.JobStatusCompleted, finished.Status)

	path, err := f.svc.ResultPath(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.DefaultResultPath(), path)

	_, err = f.svc.ReportPath(context.Background(), job.ID)
	assert.ErrorIs(t, err, jobs.ErrNotReady)
}

func TestEvents_ReplayAfterCompletion(t *testing.T) {
	f := newFixture(t, fakeRunner{})
	job, err := f.svc.Submit(context.Background(), bytes.NewReader(nil), entity.DefaultSettings())
	require.NoError(t, err)
	f.wait(t)

	ch, cancel := f.svc.Events(job.ID)
	defer cancel()
	var events []progress.Event
	for ev := range ch {
		events = append(events, ev)
	}
	require.Len(t, events, 3)
	assert.Equal(t, "Starting file processing...", events[0].Message)
	assert.Equal(t, 100, events[2].Percent)
}

func TestProcess_FailureReachesHooks(t *testing.T) {
	boom := errors.New("corrupt archive")
	f := newFixture(t, fakeRunner{fail: boom})

	var mu sync.Mutex
	var seen error
	f.svc.OnComplete(func(_ *entity.Job, _ pipeline.Result, err error) {
		mu.Lock()
		seen = err
		mu.Unlock()
	})

	job, err := f.svc.Submit(context.Background(), bytes.NewReader(nil), entity.DefaultSettings())
	require.NoError(t, err)
	f.wait(t)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return errors.Is(seen, boom)
	}, time.Second, 5*time.Millisecond)

	_, err = f.svc.ResultPath(context.Background(), job.ID)
	assert.Equal(t, common.CodeNotFound, common.CodeOf(err))
}

func TestSubmit_WithoutQueue(t *testing.T) {
	svc := jobs.NewService(jobs.Config{UploadRoot: t.TempDir(), DownloadRoot: t.TempDir()},
		repository.NewMemoryJobRepository(), fakeRunner{}, nil)
	_, err := svc.Submit(context.Background(), bytes.NewReader(nil), entity.DefaultSettings())
	assert.Error(t, err)
}

func TestSubmit_ClosedQueueCleansUp(t *testing.T) {
	root := t.TempDir()
	cfg := jobs.Config{UploadRoot: filepath.Join(root, "up"), DownloadRoot: filepath.Join(root, "down")}
	repo := repository.NewMemoryJobRepository()
	svc := jobs.NewService(cfg, repo, fakeRunner{}, nil)
	q := async.NewProcessorQueue(svc, nil)
	q.Shutdown(context.Background())
	svc.Attach(q)

	_, err := svc.Submit(context.Background(), bytes.NewReader(nil), entity.DefaultSettings())
	require.ErrorIs(t, err, async.ErrQueueClosed)

	list, err := repo.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, list)
	entries, _ := os.ReadDir(cfg.UploadRoot)
	assert.Empty(t, entries)
}

func TestDownloaded_SchedulesDeletionAndForgets(t *testing.T) {
	root := t.TempDir()
	up, down := filepath.Join(root, "up"), filepath.Join(root, "down")
	mgr := retention.NewManager(retention.Config{UploadRoot: up, DownloadRoot: down, DeletionDelay: 10 * time.Millisecond}, nil)
	defer mgr.Stop()

	repo := repository.NewMemoryJobRepository()
	svc := jobs.NewService(jobs.Config{UploadRoot: up, DownloadRoot: down}, repo, fakeRunner{}, nil, jobs.WithRetention(mgr))
	q := async.NewProcessorQueue(svc, nil)
	defer q.Shutdown(context.Background())
	svc.Attach(q)
	svc.Wire(mgr)
	done := make(chan struct{}, 1)
	svc.OnComplete(func(*entity.Job, pipeline.Result, error) { done <- struct{}{} })

	job, err := svc.Submit(context.Background(), bytes.NewReader(nil), entity.DefaultSettings())
	require.NoError(t, err)
	<-done

	svc.Downloaded(job.ID)
	assert.Eventually(t, func() bool {
		_, err := repo.Get(context.Background(), job.ID)
		return errors.Is(err, common.ErrNotFound)
	}, 2*time.Second, 10*time.Millisecond)
	assert.NoDirExists(t, filepath.Join(up, job.ID.String()))
	assert.NoDirExists(t, filepath.Join(down, job.ID.String()))
}

func TestGet_Unknown(t *testing.T) {
	f := newFixture(t, fakeRunner{})
	_, err := f.svc.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, common.ErrNotFound)
}
