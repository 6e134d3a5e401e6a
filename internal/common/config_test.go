package common_test

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/faktur-sorter/internal/common"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")

	cfg, err := common.LoadConfig()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ":5001", cfg.Server.HTTPAddr)
	assert.Equal(t, "uploads/upload", cfg.Storage.UploadPath)
	assert.Equal(t, "uploads/download", cfg.Storage.DownloadPath)
	assert.Equal(t, 10*time.Minute, cfg.Retention.SweepInterval)
	assert.Equal(t, time.Hour, cfg.Retention.MaxAge)
	assert.Equal(t, time.Minute, cfg.Retention.DeletionDelay)
	assert.Zero(t, cfg.Pipeline.WarmupDelay)
	assert.Equal(t, int64(5<<20), cfg.Pipeline.SmallArchiveBytes)
	assert.Equal(t, int64(1024), cfg.Pipeline.MaxExtractMB)
	assert.Equal(t, 10000, cfg.Pipeline.MaxArchiveEntries)
	assert.Equal(t, "memory", cfg.Database.Driver)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("MAX_AGE", "2h")
	t.Setenv("WARMUP_DELAY", "5s")
	t.Setenv("WORKERS", "8")
	t.Setenv("OCR_FALLBACK", "true")
	t.Setenv("MAX_EXTRACT_MB", "64")
	t.Setenv("MAX_ARCHIVE_ENTRIES", "50")

	cfg, err := common.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 2*time.Hour, cfg.Retention.MaxAge)
	assert.Equal(t, 5*time.Second, cfg.Pipeline.WarmupDelay)
	assert.Equal(t, 8, cfg.Pipeline.Workers)
	assert.True(t, cfg.Text.OCRFallback)
	assert.Equal(t, int64(64), cfg.Pipeline.MaxExtractMB)
	assert.Equal(t, 50, cfg.Pipeline.MaxArchiveEntries)
}

func TestLoadConfig_InvalidEnvKeepsDefault(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("MAX_AGE", "not-a-duration")

	cfg, err := common.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, time.Hour, cfg.Retention.MaxAge)
}

func TestLoadConfig_YAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
storage:
  upload_path: /data/in
  download_path: /data/out
retention:
  max_age: 3h
pipeline:
  unit_delay: 200ms
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("DOWNLOAD_PATH", "/override/out")

	cfg, err := common.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "/data/in", cfg.Storage.UploadPath)
	assert.Equal(t, "/override/out", cfg.Storage.DownloadPath)
	assert.Equal(t, 3*time.Hour, cfg.Retention.MaxAge)
	assert.Equal(t, 200*time.Millisecond, cfg.Pipeline.UnitDelay)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "nope.yaml"))

	_, err := common.LoadConfig()
	require.Error(t, err)
	assert.Equal(t, common.CodeConfig, common.CodeOf(err))
}

func TestValidate_Failures(t *testing.T) {
	cfg := common.DefaultConfig()
	cfg.Database.Driver = "postgres"
	cfg.Text.Backend = "magic"
	cfg.Pipeline.WarmupDelay = -time.Second

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrValidation))
	assert.Contains(t, err.Error(), "DB_URL")
	assert.Contains(t, err.Error(), "TEXT_BACKEND")
	assert.Contains(t, err.Error(), "WARMUP_DELAY")
}

func TestSlogLevel(t *testing.T) {
	cfg := common.DefaultConfig()
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
	cfg.LogLevel = "DEBUG"
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	cfg.LogLevel = "warning"
	assert.Equal(t, slog.LevelWarn, cfg.SlogLevel())
}

func TestValidator_CollectsEveryProblem(t *testing.T) {
	v := common.NewValidator().
		Field("A", "", common.Required).
		Field("B", -time.Second, common.Positive, common.NonNegative).
		Field("C", 0, common.NonNegative).
		Field("D", "zip", common.OneOf("merge", "rename"))

	probs := v.Problems()
	require.Len(t, probs, 4)
	assert.Equal(t, "A", probs[0].Field)
	assert.Equal(t, "must be positive", probs[1].Message)
	assert.Equal(t, "must not be negative", probs[2].Message)
	assert.Equal(t, "must be one of merge, rename", probs[3].Message)

	err := v.Err(common.CodeConfig)
	require.Error(t, err)
	assert.Equal(t, common.CodeConfig, common.CodeOf(err))
	assert.ErrorIs(t, err, common.ErrValidation)
}
