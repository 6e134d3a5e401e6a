package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/joseph-ayodele/faktur-sorter/internal/common"
	"github.com/joseph-ayodele/faktur-sorter/internal/entity"
)

const (
	// JobsServiceName is the gRPC service answering job status lookups.
	JobsServiceName = "faktur.v1.Jobs"
	// GetJobMethod takes the job id as a StringValue and returns a Struct
	// with the same fields as GET /api/jobs/{id}.
	GetJobMethod = "/" + JobsServiceName + "/GetJob"
)

// JobGetter is the slice of the job service the gRPC listener needs.
type JobGetter interface {
	Get(ctx context.Context, id uuid.UUID) (*entity.Job, error)
}

// JobsServer is the handler type behind JobsServiceName.
type JobsServer interface {
	GetJob(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
}

type jobsServer struct {
	jobs   JobGetter
	logger *slog.Logger
}

// NewJobsServer answers GetJob from jobs.
func NewJobsServer(jobs JobGetter, logger *slog.Logger) JobsServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &jobsServer{jobs: jobs, logger: logger}
}

func (s *jobsServer) GetJob(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	id, err := uuid.Parse(req.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "malformed job id")
	}
	job, err := s.jobs.Get(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, status.Error(codes.NotFound, "job not found")
		}
		s.logger.Error("grpc job lookup failed", "job_id", id, "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}
	out, err := structpb.NewStruct(jobFields(job))
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func jobFields(job *entity.Job) map[string]any {
	fields := map[string]any{
		"id":         job.ID.String(),
		"mode":       string(job.Mode),
		"status":     string(job.Status),
		"documents":  job.Documents,
		"outputs":    job.Outputs,
		"failures":   job.Failures,
		"created_at": job.CreatedAt.Format(time.RFC3339),
		"updated_at": job.UpdatedAt.Format(time.RFC3339),
	}
	if job.Error != "" {
		fields["error"] = job.Error
	}
	if job.FinishedAt != nil {
		fields["finished_at"] = job.FinishedAt.Format(time.RFC3339)
	}
	return fields
}

// RegisterJobsServer attaches srv to s. The messages are protobuf well-known
// types, so the service needs no generated stubs.
func RegisterJobsServer(s grpc.ServiceRegistrar, srv JobsServer) {
	s.RegisterService(&jobsServiceDesc, srv)
}

var jobsServiceDesc = grpc.ServiceDesc{
	ServiceName: JobsServiceName,
	HandlerType: (*JobsServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetJob", Handler: getJobHandler},
	},
	Streams: []grpc.StreamDesc{},
}

func getJobHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(JobsServer).GetJob(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetJobMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(JobsServer).GetJob(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}
