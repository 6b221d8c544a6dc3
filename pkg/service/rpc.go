package service

import (
	"context"
	"errors"
	"fmt"

	"tilesink/pkg/meta"
	"tilesink/pkg/rpc"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// maxListLimit 限制一次返回的任务数量
const maxListLimit = 1000

// SinkRPC 把 ExportService 暴露为 gRPC SinkService
type SinkRPC struct {
	rpc.UnimplementedSinkServiceServer
	svc *ExportService
}

func NewSinkRPC(svc *ExportService) *SinkRPC {
	return &SinkRPC{svc: svc}
}

// validateRequest 检查请求是否结构完整
// 语义上的校验 (dtype、维度、通道、路径) 由 Format 负责，并作为 Outcome 返回
func validateRequest(req *rpc.SinkRequest) error {
	if req.Path == "" {
		return errors.New("path: value is required")
	}
	if !req.DType.IsValid() {
		return fmt.Errorf("dtype: unknown value %q", req.DType)
	}
	shape := req.Interval.Shape()
	if shape.X < 0 || shape.Y < 0 || shape.Z < 0 || shape.C < 0 {
		return fmt.Errorf("interval: stop must not precede start: %s", req.Interval)
	}
	t := req.TileShape
	if t.X < 0 || t.Y < 0 || t.Z < 0 || t.C < 0 {
		return fmt.Errorf("tile_shape: negative extent: %s", t)
	}
	if req.UnsetOverlap && req.Overlap != nil {
		return errors.New("overlap: cannot both set and unset")
	}
	return nil
}

func toExportRequest(req *rpc.SinkRequest) ExportRequest {
	return ExportRequest{
		Interval:  req.Interval,
		TileShape: req.TileShape,
		DType:     req.DType,
		Path:      req.Path.Clean(),
		Overrides: Overrides{
			ImageFormat:  req.ImageFormat,
			Overlap:      req.Overlap,
			UnsetOverlap: req.UnsetOverlap,
			Zip:          req.Zip,
		},
	}
}

// Plan 总是在响应体里返回 Outcome，只有请求本身有问题时才返回错误
func (s *SinkRPC) Plan(ctx context.Context, req *rpc.SinkRequest) (*rpc.PlanResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	plan, err := s.svc.Plan(ctx, toExportRequest(req))
	if err != nil {
		return nil, planError(err)
	}
	return &rpc.PlanResponse{
		Outcome:          rpc.EncodeOutcome(plan.Outcome, plan.Descriptor, plan.Fingerprint),
		DefaultExtension: plan.DefaultExtension,
	}, nil
}

// Create 在 sink 没有构建成功时返回对应的状态码
func (s *SinkRPC) Create(ctx context.Context, req *rpc.SinkRequest) (*rpc.CreateResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	result, err := s.svc.Create(ctx, toExportRequest(req))
	if errors.Is(err, ErrNotBuilt) {
		return nil, rpc.OutcomeStatus(result.Outcome)
	}
	if err != nil {
		return nil, planError(err)
	}

	s.svc.app.Logger.Info("[Server] pyramid created", "job", result.JobID, "path", req.Path, "reused", result.Reused)
	return &rpc.CreateResponse{
		Outcome: rpc.EncodeOutcome(result.Outcome, result.Descriptor, result.Fingerprint),
		JobID:   result.JobID,
		Levels:  result.Levels,
		Reused:  result.Reused,
	}, nil
}

func (s *SinkRPC) ListJobs(ctx context.Context, req *rpc.ListJobsRequest) (*rpc.ListJobsResponse, error) {
	st, err := meta.ParseJobStatus(req.Status)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if req.Limit < 0 || req.Limit > maxListLimit {
		return nil, status.Errorf(codes.InvalidArgument, "limit: must be within [0, %d]", maxListLimit)
	}

	jobs, err := s.svc.Jobs(ctx, st, req.Limit)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to list jobs: %v", err)
	}

	resp := &rpc.ListJobsResponse{Jobs: make([]rpc.Job, 0, len(jobs))}
	for _, j := range jobs {
		resp.Jobs = append(resp.Jobs, JobMessage(j))
	}
	return resp, nil
}

// JobMessage 把数据库记录转换为线上形式
func JobMessage(j meta.ExportJob) rpc.Job {
	msg := rpc.Job{
		ID:          j.ID,
		Fingerprint: j.Fingerprint,
		Format:      j.Format,
		StorageURL:  j.StorageURL,
		TargetPath:  j.TargetPath,
		NumLevels:   j.NumLevels,
		Status:      string(j.Status),
		Error:       j.Error,
		CreatedAt:   j.CreatedAt.Unix(),
	}
	if j.FinishedAt != nil {
		msg.FinishedAt = j.FinishedAt.Unix()
	}
	return msg
}

// planError 区分用户可修正的选项错误和内部错误
func planError(err error) error {
	var bad *badOverrideError
	if errors.As(err, &bad) {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	return status.Errorf(codes.Internal, "%v", err)
}
