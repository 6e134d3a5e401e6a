package entity

import (
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/faktur-sorter/constants"
)

// Job is one end-to-end request to reorganize a batch of documents.
// It exclusively owns InputDir and OutputDir for its lifetime.
type Job struct {
	ID         uuid.UUID           `json:"id"`
	Mode       constants.Mode      `json:"mode"`
	Settings   Settings            `json:"settings"`
	Status     constants.JobStatus `json:"status"`
	InputDir   string              `json:"-"`
	OutputDir  string              `json:"-"`
	ResultPath string              `json:"-"`
	ReportPath string              `json:"-"`
	Documents  int                 `json:"documents"`
	Outputs    int                 `json:"outputs"`
	Failures   int                 `json:"failures"`
	Error      string              `json:"error,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
	FinishedAt *time.Time          `json:"finished_at,omitempty"`
}

// NewJob allocates a pending job whose storage lives under the two roots.
func NewJob(uploadRoot, downloadRoot string, settings Settings) *Job {
	id := uuid.New()
	now := time.Now().UTC()
	return &Job{
		ID:        id,
		Mode:      settings.Mode,
		Settings:  settings,
		Status:    constants.JobStatusPending,
		InputDir:  filepath.Join(uploadRoot, id.String()),
		OutputDir: filepath.Join(downloadRoot, id.String()),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ArchivePath is where the uploaded archive is stored.
func (j *Job) ArchivePath() string {
	return filepath.Join(j.InputDir, constants.ArchiveName)
}

// ExtractDir is where the uploaded archive is unpacked.
func (j *Job) ExtractDir() string {
	return filepath.Join(j.InputDir, "extracted")
}

// DefaultResultPath is the well-known output archive location for the job.
func (j *Job) DefaultResultPath() string {
	return filepath.Join(j.OutputDir, constants.ArchiveName)
}
