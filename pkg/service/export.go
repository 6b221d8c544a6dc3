package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"tilesink/pkg/app"
	"tilesink/pkg/dzi"
	"tilesink/pkg/meta"
	"tilesink/pkg/sink"
	"tilesink/pkg/types"

	"gorm.io/datatypes"
)

// ErrNotBuilt 表示 Create 时 sink 没有构建成功 (Incomplete 或 Failed)
var ErrNotBuilt = errors.New("sink was not built")

// Overrides 是单次请求对配置选项的覆盖，零值表示沿用配置
type Overrides struct {
	ImageFormat  string `cbor:"image_format,omitempty" json:"image_format,omitempty"`
	Overlap      *int   `cbor:"overlap,omitempty" json:"overlap,omitempty"`
	UnsetOverlap bool   `cbor:"unset_overlap,omitempty" json:"unset_overlap,omitempty"`
	Zip          *bool  `cbor:"zip,omitempty" json:"zip,omitempty"`
}

// badOverrideError 表示请求中的选项覆盖不合法
type badOverrideError struct {
	err error
}

func (e *badOverrideError) Error() string { return "invalid override: " + e.err.Error() }
func (e *badOverrideError) Unwrap() error { return e.err }

// ExportRequest 描述要导出的数组和目标路径
type ExportRequest struct {
	Interval  types.Interval `cbor:"interval" json:"interval"`
	TileShape types.Shape    `cbor:"tile_shape" json:"tile_shape"`
	DType     types.DType    `cbor:"dtype" json:"dtype"`
	Path      types.Path     `cbor:"path" json:"path"`
	Overrides Overrides      `cbor:"overrides" json:"overrides"`
}

// PlanResult 是一次构建尝试的结果
type PlanResult struct {
	Outcome          sink.Outcome
	DefaultExtension string
	// Descriptor 仅在 Outcome 为 Built 时有效
	Descriptor  *sink.Descriptor
	Fingerprint string
	// Options 是本次构建使用的选项快照
	Options *sink.DziOptions
}

// CreateResult 是创建金字塔骨架之后的结果
type CreateResult struct {
	PlanResult
	JobID  string
	Levels int
	// Reused 为 true 表示命中了同一指纹的已有任务，本次没有写入
	Reused bool
}

// ExportService 编排 sink 构建、金字塔创建和任务记录
type ExportService struct {
	app *app.App
}

func NewExportService(application *app.App) *ExportService {
	return &ExportService{app: application}
}

// controllerFor 基于 App 的格式选项快照和请求覆盖创建一个独立的 Controller
// 请求之间互不影响
func (s *ExportService) controllerFor(o Overrides) (*sink.Controller, error) {
	ctrl := sink.NewController(s.app.Format)
	base, ok := s.app.Format.(*sink.DziFormat)
	if !ok {
		return ctrl, nil
	}

	format := sink.NewDziFormatWithOptions(base.Options())
	if o.ImageFormat != "" {
		if err := format.SetImageFormat(dzi.ImageFormat(o.ImageFormat)); err != nil {
			return nil, &badOverrideError{err: err}
		}
	}
	if o.Overlap != nil {
		format.SetOverlap(*o.Overlap)
	}
	if o.UnsetOverlap {
		format.UnsetOverlap()
	}
	if o.Zip != nil {
		format.SetZip(*o.Zip)
	}
	if err := ctrl.Select(format); err != nil {
		return nil, err
	}
	return ctrl, nil
}

// Plan 只做校验和构建，不产生任何 I/O
func (s *ExportService) Plan(ctx context.Context, req ExportRequest) (*PlanResult, error) {
	ctrl, err := s.controllerFor(req.Overrides)
	if err != nil {
		return nil, err
	}

	outcome, err := ctrl.BuildSink(sink.Request{
		Interval:  req.Interval,
		TileShape: req.TileShape,
		DType:     req.DType,
		Target:    sink.Target{Filesystem: s.app.Storage, Path: req.Path},
	})
	if err != nil {
		return nil, err
	}

	result := &PlanResult{Outcome: outcome, DefaultExtension: ctrl.DefaultExtension()}
	if d, ok := ctrl.Active().(*sink.DziFormat); ok {
		opts := d.Options()
		result.Options = &opts
	}
	if built, ok := outcome.(sink.Built); ok {
		if level, ok := built.Sink.(*sink.DziLevelSink); ok {
			d := sink.Describe(level)
			fp, _, err := sink.Fingerprint(d)
			if err != nil {
				return nil, err
			}
			result.Descriptor = &d
			result.Fingerprint = fp
		}
	}
	s.app.Logger.Debug("planned sink", "path", req.Path, "outcome", fmt.Sprintf("%T", outcome))
	return result, nil
}

// Create 构建 sink，写入描述文件和所有层目录，并记录一个导出任务
// sink 没有构建成功时返回 ErrNotBuilt，同时带回 PlanResult 供调用者展示原因
func (s *ExportService) Create(ctx context.Context, req ExportRequest) (*CreateResult, error) {
	plan, err := s.Plan(ctx, req)
	if err != nil {
		return nil, err
	}
	built, ok := plan.Outcome.(sink.Built)
	if !ok {
		return &CreateResult{PlanResult: *plan}, ErrNotBuilt
	}
	top, ok := built.Sink.(*sink.DziLevelSink)
	if !ok {
		return nil, fmt.Errorf("unsupported sink type %T", built.Sink)
	}

	// 1. 同一指纹的任务已完成且产物还在，或者正在运行，直接复用
	existing, err := s.reusableJob(ctx, plan)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		s.app.Logger.Info("reusing export job", "job", existing.ID, "status", existing.Status, "fingerprint", plan.Fingerprint)
		return &CreateResult{PlanResult: *plan, JobID: existing.ID, Levels: existing.NumLevels, Reused: true}, nil
	}

	// 2. 记录任务
	encoded, err := sink.EncodeDescriptor(*plan.Descriptor)
	if err != nil {
		return nil, err
	}
	options, err := json.Marshal(plan.Options)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal options: %w", err)
	}
	job := &meta.ExportJob{
		Fingerprint: plan.Fingerprint,
		Format:      s.app.Format.Name(),
		StorageURL:  plan.Descriptor.StorageURL,
		TargetPath:  string(req.Path),
		NumLevels:   top.Image.NumLevels(),
		Status:      meta.StatusRunning,
		Descriptor:  encoded,
		Options:     datatypes.JSON(options),
	}
	if err := s.app.Repository.CreateJob(ctx, job); err != nil {
		return nil, err
	}

	// 3. 创建金字塔骨架并落盘
	levels, buildErr := sink.CreatePyramid(ctx, top)
	if buildErr == nil {
		buildErr = sink.Commit(ctx, top)
	}

	// 4. 结束任务
	if err := s.app.Repository.FinishJob(ctx, job.ID, buildErr); err != nil {
		return nil, err
	}
	if buildErr != nil {
		return nil, buildErr
	}

	s.app.Logger.Info("pyramid created", "job", job.ID, "levels", len(levels), "target", top.Filesystem.URL(top.XMLPath))
	return &CreateResult{PlanResult: *plan, JobID: job.ID, Levels: len(levels)}, nil
}

// reusableJob 查找同一指纹最近的任务
// failed 和 pending 的任务不复用；completed 的任务只有在产物仍存在时才复用
func (s *ExportService) reusableJob(ctx context.Context, plan *PlanResult) (*meta.ExportJob, error) {
	job, err := s.app.Repository.FindByFingerprint(ctx, plan.Fingerprint)
	if errors.Is(err, meta.ErrJobNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	switch job.Status {
	case meta.StatusRunning:
		return job, nil
	case meta.StatusCompleted:
		target := plan.Descriptor.XMLPath
		if plan.Descriptor.Archive != "" {
			target = plan.Descriptor.Archive
		}
		ok, err := s.app.Storage.Exists(ctx, target)
		if err != nil {
			return nil, fmt.Errorf("failed to check %s: %w", target, err)
		}
		if ok {
			return job, nil
		}
	}
	return nil, nil
}

// Jobs 列出导出任务
func (s *ExportService) Jobs(ctx context.Context, status meta.JobStatus, limit int) ([]meta.ExportJob, error) {
	return s.app.Repository.ListJobs(ctx, status, limit)
}

// Job 按 ID 查找任务
func (s *ExportService) Job(ctx context.Context, id string) (*meta.ExportJob, error) {
	return s.app.Repository.GetJob(ctx, id)
}
