package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"
)

// stderrTail bounds how much tool output ends up in errors and logs.
const stderrTail = 4 << 10

// Runner lets us stub external commands in tests.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// ToolError reports a failed poppler or tesseract invocation.
type ToolError struct {
	Tool     string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ToolError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s exited %d: %s", e.Tool, e.ExitCode, e.Stderr)
	}
	return fmt.Sprintf("%s: %v", e.Tool, e.Err)
}

func (e *ToolError) Unwrap() error { return e.Err }

func newToolError(tool string, stderr []byte, err error) *ToolError {
	te := &ToolError{Tool: tool, ExitCode: -1, Stderr: tail(stderr), Err: err}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		te.ExitCode = exitErr.ExitCode()
	}
	return te
}

type execRunner struct {
	logger *slog.Logger
}

func (r execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	attrs := []any{"cmd", name, "args", args, "duration_ms", time.Since(start).Milliseconds()}
	if err != nil {
		r.logger.Warn("tool failed", append(attrs, "error", err, "stderr", tail(stderr.Bytes()))...)
		return stdout.Bytes(), stderr.Bytes(), newToolError(name, stderr.Bytes(), err)
	}
	r.logger.Debug("tool ok", append(attrs, "stdout_bytes", stdout.Len())...)
	return stdout.Bytes(), stderr.Bytes(), nil
}

func tail(b []byte) string {
	b = bytes.TrimSpace(b)
	if len(b) <= stderrTail {
		return string(b)
	}
	return "..." + string(b[len(b)-stderrTail:])
}
