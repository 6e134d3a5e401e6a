package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Supported job store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Driver           string
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// Open connects to the configured job store and brings its schema up to date.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (JobRepository, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Driver {
	case "", DriverMemory:
		logger.Info("using in-memory job store")
		return NewMemoryJobRepository(), nil
	case DriverSQLite:
		return openSQLite(ctx, cfg, logger)
	case DriverPostgres:
		return openPostgres(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

func openSQLite(ctx context.Context, cfg Config, logger *slog.Logger) (JobRepository, error) {
	logger.Info("opening sqlite database", "dsn", cfg.DSN)
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		logger.Error("failed to open sqlite database", "error", err)
		return nil, err
	}
	// single writer
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := RunMigrations(db, DriverSQLite); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Info("sqlite database ready")
	return NewSQLiteJobRepository(db, logger), nil
}

// openPostgres creates a pgx pool and migrates through a database/sql view of it.
func openPostgres(ctx context.Context, cfg Config, logger *slog.Logger) (JobRepository, error) {
	logger.Info("connecting to database", "driver", DriverPostgres)
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}

	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	pc.MinConns = cfg.MinConns
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "faktur-sorter"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = fmt.Sprint(cfg.StatementTimeout.Milliseconds())
	}

	dialCtx := ctx
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}
	if err := pool.Ping(dialCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	// db borrows connections from pool; the repository owns pool.
	db := stdlib.OpenDBFromPool(pool)
	if err := RunMigrations(db, DriverPostgres); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("successfully connected to database")
	return NewPostgresJobRepository(pool, logger), nil
}

// HealthCheck pings the store with an optional timeout.
func HealthCheck(ctx context.Context, repo JobRepository, timeout time.Duration, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("pinging database")
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := repo.Ping(ctx); err != nil {
		logger.Error("database ping failed", "error", err)
		return err
	}
	logger.Debug("database ping successful")
	return nil
}
