package server

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// HealthServiceName is the service name reported alongside the overall status.
const HealthServiceName = "faktur.Sorter"

// NewGRPCServer returns a gRPC server carrying the standard health service,
// reflection and, when jobs is set, the job status lookup. Both health
// statuses start as NOT_SERVING.
func NewGRPCServer(jobs JobGetter, logger *slog.Logger) (*grpc.Server, *health.Server) {
	if logger == nil {
		logger = slog.Default()
	}
	srv := grpc.NewServer(grpc.UnaryInterceptor(unaryLogger(logger)))
	if jobs != nil {
		RegisterJobsServer(srv, NewJobsServer(jobs, logger))
	}
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(HealthServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	// Reflection for grpcurl
	reflection.Register(srv)
	return srv, hs
}

// SetServing flips both health statuses.
func SetServing(hs *health.Server, serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	hs.SetServingStatus("", status)
	hs.SetServingStatus(HealthServiceName, status)
}

// WatchHealth polls check every interval and mirrors the result into hs
// until ctx ends.
func WatchHealth(ctx context.Context, hs *health.Server, check func(context.Context) error, interval time.Duration, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	poll := func() {
		pctx, cancel := context.WithTimeout(ctx, interval)
		defer cancel()
		err := check(pctx)
		if err != nil && ctx.Err() == nil {
			logger.Warn("health check failed", "error", err)
		}
		SetServing(hs, err == nil)
	}
	poll()
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			hs.Shutdown()
			return
		case <-t.C:
			poll()
		}
	}
}

func unaryLogger(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logger.Debug("grpc request", "method", info.FullMethod, "duration_ms", time.Since(start).Milliseconds(), "error", err)
		return resp, err
	}
}
