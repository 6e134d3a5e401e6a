package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/faktur-sorter/constants"
	"github.com/joseph-ayodele/faktur-sorter/internal/async"
	"github.com/joseph-ayodele/faktur-sorter/internal/common"
	"github.com/joseph-ayodele/faktur-sorter/internal/entity"
	"github.com/joseph-ayodele/faktur-sorter/internal/progress"
	"github.com/joseph-ayodele/faktur-sorter/internal/settings"
)

// JobService is what the HTTP layer needs from the job lifecycle.
// *jobs.Service satisfies it.
type JobService interface {
	Submit(ctx context.Context, archive io.Reader, s entity.Settings) (*entity.Job, error)
	Get(ctx context.Context, id uuid.UUID) (*entity.Job, error)
	Events(id uuid.UUID) (<-chan progress.Event, func())
	ResultPath(ctx context.Context, id uuid.UUID) (string, error)
	ReportPath(ctx context.Context, id uuid.UUID) (string, error)
	Downloaded(id uuid.UUID)
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	jobs      JobService
	logger    *slog.Logger
	maxUpload int64
	heartbeat time.Duration
	health    func(ctx context.Context) error
	queue     QueueStats
}

// QueueStats is the part of the worker queue /health reports on.
type QueueStats interface {
	Stats() async.Stats
}

type healthResponse struct {
	Status string       `json:"status"`
	Queue  *async.Stats `json:"queue,omitempty"`
}

type uploadResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	UUID        string `json:"uuid"`
	Status      string `json:"status"`
	StatusURL   string `json:"status_url"`
	EventsURL   string `json:"events_url"`
	DownloadURL string `json:"download_url"`
	ReportURL   string `json:"report_url"`
}

type jobResponse struct {
	*entity.Job
	DownloadURL string `json:"download_url,omitempty"`
	ReportURL   string `json:"report_url,omitempty"`
}

// Upload accepts a multipart "file" zip plus an optional "settings" JSON
// field and queues a job.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			writeError(w, r, http.StatusRequestEntityTooLarge, CodeFileTooLarge,
				fmt.Sprintf("File too large. Maximum %d MB.", h.maxUpload>>20))
			return
		}
		writeError(w, r, http.StatusBadRequest, CodeNoFile, "No file uploaded")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, CodeNoFile, "No file uploaded")
		return
	}
	defer func() { _ = file.Close() }()

	if !isZipUpload(header.Filename, header.Header.Get("Content-Type")) {
		writeError(w, r, http.StatusBadRequest, CodeInvalidFileType, "Only ZIP files are allowed")
		return
	}

	s, err := settings.Parse([]byte(r.FormValue("settings")))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, CodeInvalidSettings, err.Error())
		return
	}

	job, err := h.jobs.Submit(r.Context(), file, s)
	if err != nil {
		h.logger.Error("upload submit failed", "error", err, "request_id", requestID(r))
		writeError(w, r, http.StatusInternalServerError, CodeProcessingError, "File processing failed")
		return
	}
	id := job.ID.String()
	h.logger.Info("upload accepted", "job_id", id, "mode", string(job.Mode), "bytes", header.Size)
	writeJSON(w, http.StatusAccepted, uploadResponse{
		Success:     true,
		Message:     "File accepted for processing",
		UUID:        id,
		Status:      string(job.Status),
		StatusURL:   "/api/jobs/" + id,
		EventsURL:   "/api/jobs/" + id + "/events",
		DownloadURL: "/download/" + id + "/" + constants.ArchiveName,
		ReportURL:   "/api/download/" + id + "/" + constants.ReportName,
	})
}

func isZipUpload(filename, contentType string) bool {
	if !strings.EqualFold(filepath.Ext(filename), ".zip") {
		return false
	}
	if contentType == "" {
		return true
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	_, ok := constants.AllowedArchiveMIMETypes[mt]
	return ok
}

func (h *Handler) jobID(w http.ResponseWriter, r *http.Request, code string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, http.StatusNotFound, code, "Job not found")
		return uuid.Nil, false
	}
	return id, true
}

// Job returns the job's bookkeeping record.
func (h *Handler) Job(w http.ResponseWriter, r *http.Request) {
	id, ok := h.jobID(w, r, CodeJobNotFound)
	if !ok {
		return
	}
	job, err := h.jobs.Get(r.Context(), id)
	if err != nil {
		h.notFoundOrInternal(w, r, err, CodeJobNotFound)
		return
	}
	resp := jobResponse{Job: job}
	if job.Status == constants.JobStatusCompleted {
		resp.DownloadURL = "/api/download/" + id.String() + "/" + constants.ArchiveName
		if job.ReportPath != "" {
			resp.ReportURL = "/api/download/" + id.String() + "/" + constants.ReportName
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// DownloadArchive serves the result archive as processed_files.zip and
// schedules the job's storage for removal once it was sent.
func (h *Handler) DownloadArchive(w http.ResponseWriter, r *http.Request) {
	id, ok := h.jobID(w, r, CodeFileNotFound)
	if !ok {
		return
	}
	path, err := h.jobs.ResultPath(r.Context(), id)
	if err != nil {
		h.notFoundOrInternal(w, r, err, CodeFileNotFound)
		return
	}
	if h.serveFile(w, r, path, constants.DownloadName, "application/zip") {
		h.logger.Info("archive downloaded", "job_id", id.String())
		h.jobs.Downloaded(id)
	}
}

func (h *Handler) DownloadReport(w http.ResponseWriter, r *http.Request) {
	id, ok := h.jobID(w, r, CodeFileNotFound)
	if !ok {
		return
	}
	path, err := h.jobs.ReportPath(r.Context(), id)
	if err != nil {
		h.notFoundOrInternal(w, r, err, CodeFileNotFound)
		return
	}
	h.serveFile(w, r, path, constants.ReportName, xlsxContentType)
}

// serveFile reports whether the full body was sent.
func (h *Handler) serveFile(w http.ResponseWriter, r *http.Request, path, name, contentType string) bool {
	f, err := os.Open(path)
	if err != nil {
		writeError(w, r, http.StatusNotFound, CodeFileNotFound, "File not found")
		return false
	}
	defer func() { _ = f.Close() }()
	info, err := f.Stat()
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, CodeInternalError, "Download failed")
		return false
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	http.ServeContent(rec, r, name, info.ModTime(), f)
	return r.Method == http.MethodGet && rec.status == http.StatusOK && r.Context().Err() == nil
}

func (h *Handler) notFoundOrInternal(w http.ResponseWriter, r *http.Request, err error, code string) {
	if errors.Is(err, common.ErrNotFound) {
		msg := "File not found"
		if code == CodeJobNotFound {
			msg = "Job not found"
		}
		writeError(w, r, http.StatusNotFound, code, msg)
		return
	}
	h.logger.Error("request failed", "error", err, "request_id", requestID(r))
	writeError(w, r, http.StatusInternalServerError, CodeInternalError, "Internal server error")
}

// Health reports 200 when the job store answers.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if h.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.health(ctx); err != nil {
			h.logger.Warn("health check failed", "error", err)
			status, code = "degraded", http.StatusServiceUnavailable
		}
	}
	resp := healthResponse{Status: status}
	if h.queue != nil {
		st := h.queue.Stats()
		resp.Queue = &st
	}
	writeJSON(w, code, resp)
}
