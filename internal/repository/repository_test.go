package repository_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/joseph-ayodele/faktur-sorter/constants"
	"github.com/joseph-ayodele/faktur-sorter/internal/common"
	"github.com/joseph-ayodele/faktur-sorter/internal/entity"
	"github.com/joseph-ayodele/faktur-sorter/internal/repository"
)

func newJob(t *testing.T, created time.Time) *entity.Job {
	t.Helper()
	s := entity.DefaultSettings()
	s.Separator = "_"
	job := entity.NewJob("/up", "/down", s)
	job.CreatedAt = created.UTC().Truncate(time.Microsecond)
	job.UpdatedAt = job.CreatedAt
	return job
}

func exerciseRepository(t *testing.T, repo repository.JobRepository) {
	ctx := context.Background()
	require.NoError(t, repo.Ping(ctx))

	base := time.Now().Add(-time.Hour)
	older := newJob(t, base)
	newer := newJob(t, base.Add(time.Minute))
	require.NoError(t, repo.Create(ctx, older))
	require.NoError(t, repo.Create(ctx, newer))

	got, err := repo.Get(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, older.ID, got.ID)
	assert.Equal(t, constants.JobStatusPending, got.Status)
	assert.Equal(t, "_", got.Settings.Separator)
	assert.Equal(t, older.Settings.ComponentOrder, got.Settings.ComponentOrder)
	assert.Equal(t, "/up/"+older.ID.String(), got.InputDir)
	assert.True(t, older.CreatedAt.Equal(got.CreatedAt))
	assert.Nil(t, got.FinishedAt)

	finished := time.Now().UTC().Truncate(time.Microsecond)
	got.Status = constants.JobStatusCompleted
	got.Documents, got.Outputs, got.Failures = 4, 2, 1
	got.ResultPath = "/down/x/file.zip"
	got.UpdatedAt = finished
	got.FinishedAt = &finished
	require.NoError(t, repo.UpdateStatus(ctx, got))

	again, err := repo.Get(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusCompleted, again.Status)
	assert.Equal(t, 4, again.Documents)
	assert.Equal(t, 2, again.Outputs)
	assert.Equal(t, 1, again.Failures)
	assert.Equal(t, "/down/x/file.zip", again.ResultPath)
	require.NotNil(t, again.FinishedAt)
	assert.True(t, finished.Equal(*again.FinishedAt))

	list, err := repo.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)

	list, err = repo.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, repo.Delete(ctx, older.ID))
	_, err = repo.Get(ctx, older.ID)
	require.Error(t, err)
	assert.Equal(t, common.CodeNotFound, common.CodeOf(err))

	missing := newJob(t, time.Now())
	err = repo.UpdateStatus(ctx, missing)
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = repo.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestMemoryRepository(t *testing.T) {
	repo, err := repository.Open(context.Background(), repository.Config{Driver: repository.DriverMemory}, nil)
	require.NoError(t, err)
	defer repo.Close()
	exerciseRepository(t, repo)
}

func TestMemoryRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryJobRepository()
	job := newJob(t, time.Now())
	require.NoError(t, repo.Create(ctx, job))

	job.Status = constants.JobStatusFailed
	got, err := repo.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusPending, got.Status)

	got.Settings.ComponentOrder[0] = constants.ComponentInvoice
	again, err := repo.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.ComponentPartner, again.Settings.ComponentOrder[0])

	assert.Error(t, repo.Create(ctx, job))
}

func TestSQLiteRepository(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "jobs.db")
	repo, err := repository.Open(context.Background(), repository.Config{Driver: repository.DriverSQLite, DSN: dsn}, nil)
	require.NoError(t, err)
	defer repo.Close()
	exerciseRepository(t, repo)
}

func TestSQLiteRepository_MigrationsIdempotent(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "jobs.db")
	cfg := repository.Config{Driver: repository.DriverSQLite, DSN: dsn}

	first, err := repository.Open(ctx, cfg, nil)
	require.NoError(t, err)
	job := newJob(t, time.Now())
	require.NoError(t, first.Create(ctx, job))
	require.NoError(t, first.Close())

	second, err := repository.Open(ctx, cfg, nil)
	require.NoError(t, err)
	defer second.Close()
	got, err := second.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
}

func TestSQLiteRepository_ClosedStoreIsDatabaseError(t *testing.T) {
	ctx := context.Background()
	repo, err := repository.Open(ctx, repository.Config{Driver: repository.DriverSQLite, DSN: filepath.Join(t.TempDir(), "jobs.db")}, nil)
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	_, err = repo.Get(ctx, uuid.New())
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrDatabase)
	assert.NotErrorIs(t, err, common.ErrNotFound)
	assert.Equal(t, common.CodeDatabase, common.CodeOf(err))
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := repository.Open(context.Background(), repository.Config{Driver: "oracle"}, nil)
	assert.Error(t, err)
}

func TestHealthCheck(t *testing.T) {
	repo := repository.NewMemoryJobRepository()
	assert.NoError(t, repository.HealthCheck(context.Background(), repo, time.Second, nil))
}

func TestPostgresRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("faktur_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	defer func() { _ = pgContainer.Terminate(ctx) }()

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	repo, err := repository.Open(ctx, repository.Config{
		Driver:      repository.DriverPostgres,
		DSN:         dsn,
		MaxConns:    4,
		DialTimeout: 10 * time.Second,
	}, nil)
	require.NoError(t, err)
	defer repo.Close()
	exerciseRepository(t, repo)
}
