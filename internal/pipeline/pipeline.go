// Package pipeline runs one job end to end: unpack, read every document,
// merge or rename, pack.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/faktur-sorter/constants"
	"github.com/joseph-ayodele/faktur-sorter/internal/archive"
	"github.com/joseph-ayodele/faktur-sorter/internal/entity"
	"github.com/joseph-ayodele/faktur-sorter/internal/merge"
	"github.com/joseph-ayodele/faktur-sorter/internal/progress"
	"github.com/joseph-ayodele/faktur-sorter/internal/rename"
)

// Progress checkpoints outside the per-unit range.
const (
	PercentBeforePacking = 98
	PercentDone          = 100
)

type Config struct {
	// WarmupDelay is slept before unpacking archives smaller than SmallArchiveBytes.
	WarmupDelay       time.Duration
	SmallArchiveBytes int64
	// UnitDelay is slept between processed units.
	UnitDelay time.Duration
	// ProcessingCeiling is the percent reached when the last unit finishes.
	ProcessingCeiling int
	// LogDedupWindow suppresses a repeated log line inside the window.
	LogDedupWindow time.Duration
	// MaxExtractBytes and MaxArchiveEntries bound an unpacked upload; zero
	// disables the bound.
	MaxExtractBytes   int64
	MaxArchiveEntries int
}

func DefaultConfig() Config {
	return Config{
		SmallArchiveBytes: 5 << 20,
		ProcessingCeiling: 95,
		LogDedupWindow:    2 * time.Second,
		MaxExtractBytes:   1 << 30,
		MaxArchiveEntries: 10000,
	}
}

// DocumentReader reads the metadata of one document.
type DocumentReader interface {
	Metadata(ctx context.Context, path string) (entity.DocumentMetadata, error)
	Legacy(ctx context.Context, path string) (entity.LegacyMetadata, error)
}

// StatusRecorder persists job state transitions.
type StatusRecorder interface {
	UpdateStatus(ctx context.Context, job *entity.Job) error
}

// ReportWriter writes the per-document job report.
type ReportWriter interface {
	Write(path string, job *entity.Job, records []entity.DocumentRecord) error
}

// Result is what a completed job produced.
type Result struct {
	ArchivePath string
	ReportPath  string
	Documents   int
	Outputs     int
	Failures    int
	Records     []entity.DocumentRecord
}

type Pipeline struct {
	cfg     Config
	reader  DocumentReader
	merger  *merge.Engine
	renamer *rename.Engine
	status  StatusRecorder
	report  ReportWriter
	logger  *slog.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

type Option func(*Pipeline)

func WithLogger(l *slog.Logger) Option { return func(p *Pipeline) { p.logger = l } }

func WithStatusRecorder(s StatusRecorder) Option { return func(p *Pipeline) { p.status = s } }

func WithReportWriter(r ReportWriter) Option { return func(p *Pipeline) { p.report = r } }

// WithSleep replaces the delay function, mainly for tests.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(p *Pipeline) { p.sleep = fn }
}

func New(cfg Config, reader DocumentReader, opts ...Option) *Pipeline {
	if cfg.ProcessingCeiling <= 0 || cfg.ProcessingCeiling > PercentBeforePacking {
		cfg.ProcessingCeiling = 95
	}
	p := &Pipeline{cfg: cfg, reader: reader, sleep: sleepCtx}
	for _, o := range opts {
		o(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	p.merger = merge.NewEngine(p.logger)
	p.renamer = rename.NewEngine(p.logger)
	return p
}

// Run drives job through pending -> extracting -> processing -> packing ->
// completed. Archive-level failures move the job to failed and are returned;
// the job's storage is left in place. A document that cannot be read or
// written is logged, counted and skipped.
func (p *Pipeline) Run(ctx context.Context, job *entity.Job, rep progress.Reporter) (Result, error) {
	if rep == nil {
		rep = progress.Discard
	}
	tr := progress.NewTracker(rep, p.cfg.LogDedupWindow)
	logger := p.logger.With("job_id", job.ID.String(), "mode", string(job.Settings.Mode))
	start := time.Now()

	tr.Log("Starting file processing...")
	tr.Log("Mode: " + job.Settings.Mode.Label())
	tr.Progress(0)

	res, err := p.run(ctx, job, tr, logger)
	if err != nil {
		logger.Error("job failed", "status", string(job.Status), "error", err, "duration_ms", time.Since(start).Milliseconds())
		tr.Log("Processing failed: " + err.Error())
		job.Error = err.Error()
		p.transition(ctx, job, constants.JobStatusFailed, logger)
		return res, err
	}

	job.ResultPath = res.ArchivePath
	job.ReportPath = res.ReportPath
	job.Documents, job.Outputs, job.Failures = res.Documents, res.Outputs, res.Failures
	p.transition(ctx, job, constants.JobStatusCompleted, logger)

	tr.Log("Processing completed!")
	tr.Progress(PercentDone)
	logger.Info("job completed",
		"documents", res.Documents,
		"outputs", res.Outputs,
		"failures", res.Failures,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, job *entity.Job, tr *progress.Tracker, logger *slog.Logger) (Result, error) {
	var res Result

	p.transition(ctx, job, constants.JobStatusExtracting, logger)
	docs, err := p.extractStage(ctx, job, tr)
	if err != nil {
		return res, err
	}
	res.Documents = len(docs)
	tr.Log(fmt.Sprintf("Found %d PDF files", len(docs)))

	// an empty archive goes straight from extracting to packing
	if len(docs) == 0 {
		tr.Progress(PercentDone)
	} else {
		p.transition(ctx, job, constants.JobStatusProcessing, logger)
		switch job.Settings.Mode {
		case constants.ModeRename:
			res.Records, err = p.renameStage(ctx, job, docs, tr, logger)
		case constants.ModeMerge:
			res.Records, err = p.mergeStage(ctx, job, docs, tr, logger)
		default:
			err = fmt.Errorf("unknown mode %q", job.Settings.Mode)
		}
		if err != nil {
			return res, err
		}
	}
	for _, r := range res.Records {
		if r.Failed() {
			res.Failures++
		}
	}
	res.Outputs = countOutputs(res.Records)

	p.transition(ctx, job, constants.JobStatusPacking, logger)
	tr.Log("Creating final archive...")
	tr.Progress(PercentBeforePacking)
	res.ArchivePath, err = archive.Pack(job.OutputDir)
	if err != nil {
		return res, err
	}
	if p.report != nil {
		reportPath := filepath.Join(job.OutputDir, constants.ReportName)
		if err := p.report.Write(reportPath, job, res.Records); err != nil {
			logger.Warn("job report not written", "path", reportPath, "error", err)
		} else {
			res.ReportPath = reportPath
		}
	}
	return res, nil
}

// extractStage unpacks the job archive and lists its documents.
func (p *Pipeline) extractStage(ctx context.Context, job *entity.Job, tr *progress.Tracker) ([]string, error) {
	size, err := archive.Size(job.ArchivePath())
	if err != nil {
		return nil, &archive.ExtractionError{Path: job.ArchivePath(), Err: err}
	}
	if size < p.cfg.SmallArchiveBytes && p.cfg.WarmupDelay > 0 {
		tr.Log("Small file detected, waiting before processing...")
		if err := p.sleep(ctx, p.cfg.WarmupDelay); err != nil {
			return nil, err
		}
	}
	lim := archive.Limits{MaxBytes: p.cfg.MaxExtractBytes, MaxEntries: p.cfg.MaxArchiveEntries}
	if err := archive.Unpack(job.ArchivePath(), job.ExtractDir(), lim); err != nil {
		return nil, err
	}
	docs, err := archive.ListDocuments(job.ExtractDir())
	if err != nil {
		return nil, &archive.ExtractionError{Path: job.ExtractDir(), Err: err}
	}
	return docs, nil
}

// unitDone reports progress after done of total units and waits UnitDelay.
func (p *Pipeline) unitDone(ctx context.Context, tr *progress.Tracker, done, total int) error {
	tr.Progress(done * p.cfg.ProcessingCeiling / total)
	if p.cfg.UnitDelay > 0 && done < total {
		return p.sleep(ctx, p.cfg.UnitDelay)
	}
	return nil
}

func (p *Pipeline) transition(ctx context.Context, job *entity.Job, to constants.JobStatus, logger *slog.Logger) {
	job.Status = to
	job.UpdatedAt = time.Now().UTC()
	if to.Terminal() {
		t := job.UpdatedAt
		job.FinishedAt = &t
	}
	logger.Debug("job status", "status", string(to))
	if p.status == nil {
		return
	}
	// persist even when the job context is already cancelled
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := p.status.UpdateStatus(sctx, job); err != nil {
		logger.Warn("persist job status failed", "status", string(to), "error", err)
	}
}

func countOutputs(records []entity.DocumentRecord) int {
	seen := map[string]struct{}{}
	for _, r := range records {
		if r.Output != "" {
			seen[r.Output] = struct{}{}
		}
	}
	return len(seen)
}

func relOutput(outRoot, path string) string {
	rel, err := filepath.Rel(outRoot, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// IsFatal reports whether err ends a job rather than a single document.
func IsFatal(err error) bool {
	var ext *archive.ExtractionError
	var pack *archive.PackingError
	return errors.As(err, &ext) || errors.As(err, &pack) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
