package app_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/joseph-ayodele/faktur-sorter/internal/app"
	"github.com/joseph-ayodele/faktur-sorter/internal/common"
)

func TestConfigMapping(t *testing.T) {
	cfg := common.DefaultConfig()
	cfg.Pipeline.WarmupDelay = 3 * time.Second
	cfg.Text.Backend = "pdftotext"
	cfg.Database.Driver = "sqlite"
	cfg.Database.DSN = "/tmp/jobs.db"

	pc := app.PipelineConfig(cfg)
	assert.Equal(t, 3*time.Second, pc.WarmupDelay)
	assert.Equal(t, int64(5<<20), pc.SmallArchiveBytes)
	assert.Equal(t, 95, pc.ProcessingCeiling)
	assert.Equal(t, int64(1<<30), pc.MaxExtractBytes)
	assert.Equal(t, 10000, pc.MaxArchiveEntries)

	assert.Equal(t, "pdftotext", app.OCRConfig(cfg).Backend)
	assert.Equal(t, "ind", app.OCRConfig(cfg).TesseractLang)

	rc := app.RepositoryConfig(cfg)
	assert.Equal(t, "sqlite", rc.Driver)
	assert.Equal(t, "/tmp/jobs.db", rc.DSN)

	ret := app.RetentionConfig(cfg)
	assert.Equal(t, "uploads/upload", ret.UploadRoot)
	assert.Equal(t, time.Minute, ret.DeletionDelay)
}

func TestNewLogger(t *testing.T) {
	cfg := common.DefaultConfig()
	var buf bytes.Buffer
	app.NewLogger(cfg, &buf, true).Info("hello", "k", 1)
	assert.Contains(t, buf.String(), `"msg":"hello"`)

	buf.Reset()
	app.NewLogger(cfg, &buf, false).Debug("hidden")
	assert.Empty(t, buf.String())
}
