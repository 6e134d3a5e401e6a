package common

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Retention RetentionConfig `yaml:"retention"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Text      TextConfig      `yaml:"text"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Inbox     InboxConfig     `yaml:"inbox"`
	LogLevel  string          `yaml:"log_level"`
}

// ServerConfig holds transport-related configuration
type ServerConfig struct {
	HTTPAddr       string  `yaml:"http_addr"`
	GRPCAddr       string  `yaml:"grpc_addr"`
	MaxUploadMB    int64   `yaml:"max_upload_mb"`
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`
}

// StorageConfig holds the per-job storage roots
type StorageConfig struct {
	UploadPath   string `yaml:"upload_path"`
	DownloadPath string `yaml:"download_path"`
}

// RetentionConfig holds cleanup knobs
type RetentionConfig struct {
	SweepInterval time.Duration `yaml:"sweep_interval"`
	MaxAge        time.Duration `yaml:"max_age"`
	DeletionDelay time.Duration `yaml:"deletion_delay"`
}

// PipelineConfig holds job processing knobs
type PipelineConfig struct {
	WarmupDelay       time.Duration `yaml:"warmup_delay"`
	SmallArchiveBytes int64         `yaml:"small_archive_bytes"`
	UnitDelay         time.Duration `yaml:"unit_delay"`
	Workers           int           `yaml:"workers"`
	QueueSize         int           `yaml:"queue_size"`
	JobTimeout        time.Duration `yaml:"job_timeout"`
	LogDedupWindow    time.Duration `yaml:"log_dedup_window"`
	MaxExtractMB      int64         `yaml:"max_extract_mb"`
	MaxArchiveEntries int           `yaml:"max_archive_entries"`
}

// TextConfig holds text-extraction configuration
type TextConfig struct {
	Backend       string `yaml:"backend"`
	OCRFallback   bool   `yaml:"ocr_fallback"`
	TesseractLang string `yaml:"tesseract_lang"`
	Pdftotext     string `yaml:"pdftotext_bin"`
	Pdftoppm      string `yaml:"pdftoppm_bin"`
	Tesseract     string `yaml:"tesseract_bin"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver          string        `yaml:"driver"`
	DSN             string        `yaml:"dsn"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
	DialTimeout     time.Duration `yaml:"dial_timeout"`
}

// RedisConfig enables progress publishing when URL is set
type RedisConfig struct {
	URL string `yaml:"url"`
}

// InboxConfig enables the hot-folder ingest when Dir is set
type InboxConfig struct {
	Dir      string        `yaml:"dir"`
	Outbox   string        `yaml:"outbox"`
	Mode     string        `yaml:"mode"`
	Debounce time.Duration `yaml:"debounce"`
}

// DefaultConfig returns the built-in defaults, matching the historical deployment
// except for the warm-up and per-unit delays, which default to zero.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPAddr:       ":5001",
			GRPCAddr:       ":8081",
			MaxUploadMB:    200,
			RateLimitRPS:   5,
			RateLimitBurst: 10,
		},
		Storage: StorageConfig{
			UploadPath:   "uploads/upload",
			DownloadPath: "uploads/download",
		},
		Retention: RetentionConfig{
			SweepInterval: 10 * time.Minute,
			MaxAge:        time.Hour,
			DeletionDelay: time.Minute,
		},
		Pipeline: PipelineConfig{
			SmallArchiveBytes: 5 << 20,
			Workers:           2,
			QueueSize:         64,
			JobTimeout:        15 * time.Minute,
			LogDedupWindow:    2 * time.Second,
			MaxExtractMB:      1024,
			MaxArchiveEntries: 10000,
		},
		Text: TextConfig{
			Backend:       "native",
			TesseractLang: "ind",
		},
		Database: DatabaseConfig{
			Driver:          "memory",
			MaxConns:        10,
			MinConns:        1,
			MaxConnLifetime: 30 * time.Minute,
			MaxConnIdleTime: 5 * time.Minute,
			DialTimeout:     3 * time.Second,
		},
		Inbox: InboxConfig{
			Mode:     "merge",
			Debounce: 500 * time.Millisecond,
		},
		LogLevel: "info",
	}
}

// LoadConfig loads defaults, then the optional YAML file named by CONFIG_FILE,
// then environment variable overrides.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, NewAppError(CodeConfig, fmt.Sprintf("read %s", path), err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, NewAppError(CodeConfig, fmt.Sprintf("parse %s", path), err)
		}
	}

	cfg.Server.HTTPAddr = getEnv("HTTP_ADDR", cfg.Server.HTTPAddr)
	cfg.Server.GRPCAddr = getEnv("GRPC_ADDR", cfg.Server.GRPCAddr)
	cfg.Server.MaxUploadMB = getEnvAsInt64("MAX_UPLOAD_MB", cfg.Server.MaxUploadMB)
	cfg.Server.RateLimitRPS = getEnvAsFloat64("RATE_LIMIT_RPS", cfg.Server.RateLimitRPS)
	cfg.Server.RateLimitBurst = getEnvAsInt("RATE_LIMIT_BURST", cfg.Server.RateLimitBurst)

	cfg.Storage.UploadPath = getEnv("UPLOAD_PATH", cfg.Storage.UploadPath)
	cfg.Storage.DownloadPath = getEnv("DOWNLOAD_PATH", cfg.Storage.DownloadPath)

	cfg.Retention.SweepInterval = getEnvAsDuration("CLEANUP_INTERVAL", cfg.Retention.SweepInterval)
	cfg.Retention.MaxAge = getEnvAsDuration("MAX_AGE", cfg.Retention.MaxAge)
	cfg.Retention.DeletionDelay = getEnvAsDuration("DELETION_DELAY", cfg.Retention.DeletionDelay)

	cfg.Pipeline.WarmupDelay = getEnvAsDuration("WARMUP_DELAY", cfg.Pipeline.WarmupDelay)
	cfg.Pipeline.SmallArchiveBytes = getEnvAsInt64("SMALL_ARCHIVE_BYTES", cfg.Pipeline.SmallArchiveBytes)
	cfg.Pipeline.UnitDelay = getEnvAsDuration("UNIT_DELAY", cfg.Pipeline.UnitDelay)
	cfg.Pipeline.Workers = getEnvAsInt("WORKERS", cfg.Pipeline.Workers)
	cfg.Pipeline.QueueSize = getEnvAsInt("QUEUE_SIZE", cfg.Pipeline.QueueSize)
	cfg.Pipeline.JobTimeout = getEnvAsDuration("JOB_TIMEOUT", cfg.Pipeline.JobTimeout)
	cfg.Pipeline.LogDedupWindow = getEnvAsDuration("LOG_DEDUP_WINDOW", cfg.Pipeline.LogDedupWindow)
	cfg.Pipeline.MaxExtractMB = getEnvAsInt64("MAX_EXTRACT_MB", cfg.Pipeline.MaxExtractMB)
	cfg.Pipeline.MaxArchiveEntries = getEnvAsInt("MAX_ARCHIVE_ENTRIES", cfg.Pipeline.MaxArchiveEntries)

	cfg.Text.Backend = getEnv("TEXT_BACKEND", cfg.Text.Backend)
	cfg.Text.OCRFallback = getEnvAsBool("OCR_FALLBACK", cfg.Text.OCRFallback)
	cfg.Text.TesseractLang = getEnv("TESSERACT_LANG", cfg.Text.TesseractLang)
	cfg.Text.Pdftotext = getEnv("PDFTOTEXT_BIN", cfg.Text.Pdftotext)
	cfg.Text.Pdftoppm = getEnv("PDFTOPPM_BIN", cfg.Text.Pdftoppm)
	cfg.Text.Tesseract = getEnv("TESSERACT_BIN", cfg.Text.Tesseract)

	cfg.Database.Driver = getEnv("DB_DRIVER", cfg.Database.Driver)
	cfg.Database.DSN = getEnv("DB_URL", cfg.Database.DSN)
	cfg.Database.MaxConns = getEnvAsInt32("DB_MAX_CONNS", cfg.Database.MaxConns)
	cfg.Database.MinConns = getEnvAsInt32("DB_MIN_CONNS", cfg.Database.MinConns)
	cfg.Database.MaxConnLifetime = getEnvAsDuration("DB_MAX_CONN_LIFETIME", cfg.Database.MaxConnLifetime)
	cfg.Database.MaxConnIdleTime = getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", cfg.Database.MaxConnIdleTime)
	cfg.Database.DialTimeout = getEnvAsDuration("DB_DIAL_TIMEOUT", cfg.Database.DialTimeout)

	cfg.Redis.URL = getEnv("REDIS_URL", cfg.Redis.URL)

	cfg.Inbox.Dir = getEnv("INBOX_DIR", cfg.Inbox.Dir)
	cfg.Inbox.Outbox = getEnv("OUTBOX_DIR", cfg.Inbox.Outbox)
	cfg.Inbox.Mode = getEnv("INBOX_MODE", cfg.Inbox.Mode)
	cfg.Inbox.Debounce = getEnvAsDuration("INBOX_DEBOUNCE", cfg.Inbox.Debounce)

	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	return cfg, nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator()
	v.Field("UPLOAD_PATH", c.Storage.UploadPath, Required)
	v.Field("DOWNLOAD_PATH", c.Storage.DownloadPath, Required)
	v.Field("HTTP_ADDR", c.Server.HTTPAddr, Required)
	v.Field("MAX_UPLOAD_MB", c.Server.MaxUploadMB, Positive)
	v.Field("CLEANUP_INTERVAL", c.Retention.SweepInterval, Positive)
	v.Field("MAX_AGE", c.Retention.MaxAge, Positive)
	v.Field("DELETION_DELAY", c.Retention.DeletionDelay, NonNegative)
	v.Field("WARMUP_DELAY", c.Pipeline.WarmupDelay, NonNegative)
	v.Field("UNIT_DELAY", c.Pipeline.UnitDelay, NonNegative)
	v.Field("WORKERS", c.Pipeline.Workers, Positive)
	v.Field("MAX_EXTRACT_MB", c.Pipeline.MaxExtractMB, NonNegative)
	v.Field("MAX_ARCHIVE_ENTRIES", c.Pipeline.MaxArchiveEntries, NonNegative)
	v.Field("TEXT_BACKEND", c.Text.Backend, OneOf("native", "pdftotext"))
	v.Field("DB_DRIVER", c.Database.Driver, OneOf("memory", "sqlite", "postgres"))
	v.Field("INBOX_MODE", c.Inbox.Mode, OneOf("merge", "rename"))
	if c.Database.Driver != "memory" {
		v.Field("DB_URL", c.Database.DSN, Required)
	}
	if c.Inbox.Dir != "" {
		v.Field("OUTBOX_DIR", c.Inbox.Outbox, Required)
	}
	return v.Err(CodeConfig)
}

// SlogLevel maps LogLevel onto a slog.Level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
