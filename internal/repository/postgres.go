package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joseph-ayodele/faktur-sorter/constants"
	"github.com/joseph-ayodele/faktur-sorter/internal/entity"
)

type postgresJobRepo struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewPostgresJobRepository(pool *pgxpool.Pool, log *slog.Logger) JobRepository {
	if log == nil {
		log = slog.Default()
	}
	return &postgresJobRepo{pool: pool, log: log}
}

func (r *postgresJobRepo) Create(ctx context.Context, job *entity.Job) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO jobs (`+jobColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		job.ID, string(job.Mode), job.Settings, string(job.Status),
		job.InputDir, job.OutputDir, job.ResultPath, job.ReportPath,
		job.Documents, job.Outputs, job.Failures, job.Error,
		job.CreatedAt, job.UpdatedAt, job.FinishedAt)
	if err != nil {
		r.log.Error("job insert failed", "job_id", job.ID, "error", err)
		return dbError("insert job", err)
	}
	r.log.Debug("job stored", "job_id", job.ID, "status", job.Status)
	return nil
}

func (r *postgresJobRepo) Get(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
	job, err := scanPostgresJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, dbError("get job", err)
	}
	return job, nil
}

func (r *postgresJobRepo) UpdateStatus(ctx context.Context, job *entity.Job) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE jobs SET status = $1, result_path = $2, report_path = $3, documents = $4, outputs = $5,
			failures = $6, error = $7, updated_at = $8, finished_at = $9 WHERE id = $10`,
		string(job.Status), job.ResultPath, job.ReportPath, job.Documents, job.Outputs,
		job.Failures, job.Error, job.UpdatedAt, job.FinishedAt, job.ID)
	if err != nil {
		r.log.Error("job status update failed", "job_id", job.ID, "status", job.Status, "error", err)
		return dbError("update job", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound(job.ID)
	}
	return nil
}

func (r *postgresJobRepo) List(ctx context.Context, limit int) ([]*entity.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, dbError("list jobs", err)
	}
	defer rows.Close()

	var out []*entity.Job
	for rows.Next() {
		job, err := scanPostgresJob(rows)
		if err != nil {
			return nil, dbError("scan job", err)
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

func (r *postgresJobRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, id); err != nil {
		return dbError("delete job", err)
	}
	return nil
}

func (r *postgresJobRepo) Ping(ctx context.Context) error { return r.pool.Ping(ctx) }

func (r *postgresJobRepo) Close() error {
	r.pool.Close()
	return nil
}

func scanPostgresJob(row pgx.Row) (*entity.Job, error) {
	var (
		job          entity.Job
		mode, status string
		finishedAt   *time.Time
	)
	if err := row.Scan(&job.ID, &mode, &job.Settings, &status, &job.InputDir, &job.OutputDir,
		&job.ResultPath, &job.ReportPath, &job.Documents, &job.Outputs, &job.Failures, &job.Error,
		&job.CreatedAt, &job.UpdatedAt, &finishedAt); err != nil {
		return nil, err
	}
	job.Mode = constants.Mode(mode)
	job.Status = constants.JobStatus(status)
	job.FinishedAt = finishedAt
	return &job, nil
}
