package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joseph-ayodele/faktur-sorter/constants"
	"github.com/joseph-ayodele/faktur-sorter/internal/app"
	"github.com/joseph-ayodele/faktur-sorter/internal/common"
	"github.com/joseph-ayodele/faktur-sorter/internal/entity"
	"github.com/joseph-ayodele/faktur-sorter/internal/export"
	"github.com/joseph-ayodele/faktur-sorter/internal/pipeline"
	"github.com/joseph-ayodele/faktur-sorter/internal/progress"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		in     = flag.String("in", "", "input zip archive (required)")
		out    = flag.String("out", "", "output zip path (optional, defaults to <in>-processed.zip)")
		mode   = flag.String("mode", "merge", "merge | rename")
		order  = flag.String("order", "", "comma separated rename components, e.g. partner,date,invoice")
		sep    = flag.String("sep", entity.DefaultSeparator, "separator between rename components")
		slash  = flag.String("slash", entity.DefaultSlashReplacement, "replacement for '/' in references")
		work   = flag.String("work", "", "working directory (optional, defaults to a temp dir)")
		report = flag.Bool("report", true, "write <out>.xlsx with one row per document")
	)
	flag.Parse()

	if *in == "" {
		printError("Error: --in is required\n")
		os.Exit(1)
	}
	m, err := constants.ParseMode(*mode)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	if *out == "" {
		*out = strings.TrimSuffix(*in, filepath.Ext(*in)) + "-processed.zip"
	}

	cfg, err := common.LoadConfig()
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	logger := app.NewLogger(cfg, os.Stderr, false)
	slog.SetDefault(logger)

	s := entity.DefaultSettings()
	s.Mode = m
	s.Separator = *sep
	s.SlashReplacement = *slash
	if *order != "" {
		s.ComponentOrder = nil
		for _, c := range strings.Split(*order, ",") {
			s.ComponentOrder = append(s.ComponentOrder, constants.Component(strings.TrimSpace(c)))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, reportOut, err := run(ctx, cfg, logger, s, *in, *out, *work, *report)
	if err != nil {
		logger.Error("batch processing failed", "in", *in, "error", err)
		stop()
		os.Exit(1)
	}

	fmt.Printf("Batch processing complete!\n")
	fmt.Printf("- Mode: %s\n", m.Label())
	fmt.Printf("- Documents: %d\n", res.Documents)
	fmt.Printf("- Outputs: %d\n", res.Outputs)
	fmt.Printf("- Failures: %d\n", res.Failures)
	fmt.Printf("- Output: %s\n", *out)
	if reportOut != "" {
		fmt.Printf("- Report: %s\n", reportOut)
	}
}

// run processes in synchronously inside a scratch job and copies the results
// next to out. It returns the report path, or "" when none was written.
func run(ctx context.Context, cfg *common.Config, logger *slog.Logger, s entity.Settings, in, out, work string, report bool) (pipeline.Result, string, error) {
	root := work
	if root == "" {
		tmp, err := os.MkdirTemp("", "faktur-batch-*")
		if err != nil {
			return pipeline.Result{}, "", err
		}
		defer func() { _ = os.RemoveAll(tmp) }()
		root = tmp
	}

	job := entity.NewJob(filepath.Join(root, "upload"), filepath.Join(root, "download"), s)
	if err := stage(job, in); err != nil {
		return pipeline.Result{}, "", fmt.Errorf("stage input: %w", err)
	}

	opts := []pipeline.Option{pipeline.WithLogger(logger)}
	if report {
		opts = append(opts, pipeline.WithReportWriter(export.NewReportWriter(logger)))
	}
	p := pipeline.New(app.PipelineConfig(cfg), app.NewReader(cfg, logger), opts...)

	res, err := p.Run(ctx, job, progress.NewSlogReporter(logger))
	if err != nil {
		return res, "", err
	}
	if err := copyFile(res.ArchivePath, out); err != nil {
		return res, "", fmt.Errorf("write output archive: %w", err)
	}
	if res.ReportPath == "" {
		return res, "", nil
	}
	reportOut := strings.TrimSuffix(out, filepath.Ext(out)) + ".xlsx"
	if err := copyFile(res.ReportPath, reportOut); err != nil {
		logger.Warn("failed to write report", "out", reportOut, "error", err)
		return res, "", nil
	}
	return res, reportOut, nil
}

func stage(job *entity.Job, src string) error {
	if err := os.MkdirAll(job.InputDir, 0o755); err != nil {
		return err
	}
	if err := os.MkdirAll(job.OutputDir, 0o755); err != nil {
		return err
	}
	return copyFile(src, job.ArchivePath())
}

func copyFile(src, dst string) error {
	r, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()
	w, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}
