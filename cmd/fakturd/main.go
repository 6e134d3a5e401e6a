package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/joseph-ayodele/faktur-sorter/constants"
	"github.com/joseph-ayodele/faktur-sorter/internal/app"
	"github.com/joseph-ayodele/faktur-sorter/internal/async"
	"github.com/joseph-ayodele/faktur-sorter/internal/common"
	"github.com/joseph-ayodele/faktur-sorter/internal/export"
	"github.com/joseph-ayodele/faktur-sorter/internal/ingest"
	"github.com/joseph-ayodele/faktur-sorter/internal/pipeline"
	"github.com/joseph-ayodele/faktur-sorter/internal/progress"
	repo "github.com/joseph-ayodele/faktur-sorter/internal/repository"
	"github.com/joseph-ayodele/faktur-sorter/internal/retention"
	"github.com/joseph-ayodele/faktur-sorter/internal/server"
	"github.com/joseph-ayodele/faktur-sorter/internal/services/jobs"
	"github.com/joseph-ayodele/faktur-sorter/internal/settings"
)

func main() {
	cfg, err := common.LoadConfig()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(2)
	}
	logger := app.NewLogger(cfg, os.Stdout, true)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("fakturd stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("fakturd stopped")
}

func run(ctx context.Context, cfg *common.Config, logger *slog.Logger) error {
	store, err := repo.Open(ctx, app.RepositoryConfig(cfg), logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close job store", "error", err)
		}
	}()
	if err := repo.HealthCheck(ctx, store, 5*time.Second, logger); err != nil {
		return err
	}

	var opts []jobs.Option
	if cfg.Redis.URL != "" {
		publisher, err := progress.NewRedisPublisher(cfg.Redis.URL, logger)
		if err != nil {
			return err
		}
		defer func() { _ = publisher.Close() }()
		if err := publisher.Ping(ctx); err != nil {
			logger.Warn("redis unreachable, progress stays in-process", "error", err)
		} else {
			opts = append(opts, jobs.WithRedis(publisher))
		}
	}

	cleaner := retention.NewManager(app.RetentionConfig(cfg), logger)
	opts = append(opts, jobs.WithRetention(cleaner), jobs.WithLogger(logger))

	runner := pipeline.New(app.PipelineConfig(cfg), app.NewReader(cfg, logger),
		pipeline.WithLogger(logger),
		pipeline.WithStatusRecorder(store),
		pipeline.WithReportWriter(export.NewReportWriter(logger)),
	)
	svc := jobs.NewService(jobs.Config{
		UploadRoot:   cfg.Storage.UploadPath,
		DownloadRoot: cfg.Storage.DownloadPath,
	}, store, runner, progress.NewHub(logger), opts...)
	svc.Wire(cleaner)

	queue := async.NewProcessorQueue(svc, logger,
		async.WithWorkers(cfg.Pipeline.Workers),
		async.WithQueueSize(cfg.Pipeline.QueueSize),
		async.WithProcessTimeout(cfg.Pipeline.JobTimeout),
	)
	svc.Attach(queue)

	limiter := server.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)
	httpServer := &http.Server{
		Addr: cfg.Server.HTTPAddr,
		Handler: server.NewRouter(server.Config{
			MaxUploadBytes: cfg.Server.MaxUploadMB << 20,
			RateLimitRPS:   cfg.Server.RateLimitRPS,
			RateLimitBurst: cfg.Server.RateLimitBurst,
		}, server.Dependencies{
			Jobs:    svc,
			Health:  store.Ping,
			Queue:   queue,
			Limiter: limiter,
			Logger:  logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	grpcServer, healthServer := server.NewGRPCServer(svc, logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http listening", "addr", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
		if err != nil {
			return err
		}
		logger.Info("grpc listening", "addr", cfg.Server.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		server.WatchHealth(gctx, healthServer, store.Ping, 10*time.Second, logger)
		return nil
	})

	g.Go(func() error { return ignoreCanceled(cleaner.Run(gctx)) })

	g.Go(func() error {
		t := time.NewTicker(time.Minute)
		defer t.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-t.C:
				limiter.Prune(3 * time.Minute)
			}
		}
	})

	if cfg.Inbox.Dir != "" {
		mode, err := constants.ParseMode(cfg.Inbox.Mode)
		if err != nil {
			return err
		}
		inbox := ingest.NewInbox(ingest.InboxConfig{
			Dir:      cfg.Inbox.Dir,
			Outbox:   cfg.Inbox.Outbox,
			Settings: settings.ForMode(mode),
			Debounce: cfg.Inbox.Debounce,
		}, svc, logger)
		svc.OnComplete(inbox.Complete)
		g.Go(func() error { return ignoreCanceled(inbox.Run(gctx)) })
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := httpServer.Shutdown(shutdownCtx)
		grpcServer.GracefulStop()
		queue.Shutdown(shutdownCtx)
		cleaner.Stop()
		return err
	})

	return g.Wait()
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
