package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Config struct {
	MaxUploadBytes int64
	RateLimitRPS   float64
	RateLimitBurst int
	// Heartbeat is the keep-alive comment interval on event streams.
	Heartbeat time.Duration
}

// Dependencies holds everything the router wires into handlers.
type Dependencies struct {
	Jobs   JobService
	Health func(ctx context.Context) error
	// Queue is optional; when set /health includes its counters.
	Queue   QueueStats
	Limiter *RateLimiter
	Logger  *slog.Logger
}

// NewRouter builds the chi router. The upload and download routes are also
// mounted without the /api prefix for older clients.
func NewRouter(cfg Config, deps Dependencies) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 200 << 20
	}
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = 15 * time.Second
	}
	limiter := deps.Limiter
	if limiter == nil {
		limiter = NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
	h := &Handler{
		jobs:      deps.Jobs,
		logger:    logger,
		maxUpload: cfg.MaxUploadBytes,
		heartbeat: cfg.Heartbeat,
		health:    deps.Health,
		queue:     deps.Queue,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(Logger(logger))
	r.Use(Recovery(logger))

	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.With(limiter.Limit).Post("/upload", h.Upload)
		r.Get("/jobs/{id}", h.Job)
		r.Get("/jobs/{id}/events", h.Events)
		r.Get("/download/{id}/file.zip", h.DownloadArchive)
		r.Get("/download/{id}/report.xlsx", h.DownloadReport)
	})

	// legacy paths
	r.With(limiter.Limit).Post("/upload", h.Upload)
	r.Get("/download/{id}/file.zip", h.DownloadArchive)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, CodeFileNotFound, "Not found")
	})
	return r
}
