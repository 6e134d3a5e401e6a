package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/faktur-sorter/constants"
	"github.com/joseph-ayodele/faktur-sorter/internal/entity"
)

const jobColumns = `id, mode, settings, status, input_dir, output_dir, result_path, report_path,
	documents, outputs, failures, error, created_at, updated_at, finished_at`

// sqliteJobRepo stores jobs through database/sql on modernc.org/sqlite.
// Timestamps are RFC 3339 text.
type sqliteJobRepo struct {
	db  *sql.DB
	log *slog.Logger
}

func NewSQLiteJobRepository(db *sql.DB, log *slog.Logger) JobRepository {
	if log == nil {
		log = slog.Default()
	}
	return &sqliteJobRepo{db: db, log: log}
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func (r *sqliteJobRepo) Create(ctx context.Context, job *entity.Job) error {
	settings, err := json.Marshal(job.Settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO jobs (`+jobColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID.String(), string(job.Mode), string(settings), string(job.Status),
		job.InputDir, job.OutputDir, job.ResultPath, job.ReportPath,
		job.Documents, job.Outputs, job.Failures, job.Error,
		formatTime(job.CreatedAt), formatTime(job.UpdatedAt), nullableTime(job.FinishedAt))
	if err != nil {
		r.log.Error("job insert failed", "job_id", job.ID, "error", err)
		return dbError("insert job", err)
	}
	r.log.Debug("job stored", "job_id", job.ID, "status", job.Status)
	return nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func (r *sqliteJobRepo) Get(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id.String())
	job, err := scanSQLiteJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, dbError("get job", err)
	}
	return job, nil
}

func (r *sqliteJobRepo) UpdateStatus(ctx context.Context, job *entity.Job) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, result_path = ?, report_path = ?, documents = ?, outputs = ?,
			failures = ?, error = ?, updated_at = ?, finished_at = ? WHERE id = ?`,
		string(job.Status), job.ResultPath, job.ReportPath, job.Documents, job.Outputs,
		job.Failures, job.Error, formatTime(job.UpdatedAt), nullableTime(job.FinishedAt), job.ID.String())
	if err != nil {
		r.log.Error("job status update failed", "job_id", job.ID, "status", job.Status, "error", err)
		return dbError("update job", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound(job.ID)
	}
	return nil
}

func (r *sqliteJobRepo) List(ctx context.Context, limit int) ([]*entity.Job, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+jobColumns+` FROM jobs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, dbError("list jobs", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*entity.Job
	for rows.Next() {
		job, err := scanSQLiteJob(rows)
		if err != nil {
			return nil, dbError("scan job", err)
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

func (r *sqliteJobRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id.String()); err != nil {
		return dbError("delete job", err)
	}
	return nil
}

func (r *sqliteJobRepo) Ping(ctx context.Context) error { return r.db.PingContext(ctx) }

func (r *sqliteJobRepo) Close() error { return r.db.Close() }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteJob(row rowScanner) (*entity.Job, error) {
	var (
		job                        entity.Job
		id, mode, settings, status string
		createdAt, updatedAt       string
		finishedAt                 sql.NullString
	)
	if err := row.Scan(&id, &mode, &settings, &status, &job.InputDir, &job.OutputDir,
		&job.ResultPath, &job.ReportPath, &job.Documents, &job.Outputs, &job.Failures, &job.Error,
		&createdAt, &updatedAt, &finishedAt); err != nil {
		return nil, err
	}
	var err error
	if job.ID, err = uuid.Parse(id); err != nil {
		return nil, err
	}
	job.Mode = constants.Mode(mode)
	job.Status = constants.JobStatus(status)
	if err := json.Unmarshal([]byte(settings), &job.Settings); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	if job.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, err
	}
	if job.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, err
	}
	if finishedAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, finishedAt.String)
		if err != nil {
			return nil, err
		}
		job.FinishedAt = &t
	}
	return &job, nil
}
