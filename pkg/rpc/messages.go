package rpc

import (
	"fmt"

	"tilesink/pkg/sink"
	"tilesink/pkg/types"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// SinkRequest 对应一次构建请求
type SinkRequest struct {
	Interval     types.Interval `cbor:"interval"`
	TileShape    types.Shape    `cbor:"tile_shape"`
	DType        types.DType    `cbor:"dtype"`
	Path         types.Path     `cbor:"path"`
	ImageFormat  string         `cbor:"image_format,omitempty"`
	Overlap      *int           `cbor:"overlap,omitempty"`
	UnsetOverlap bool           `cbor:"unset_overlap,omitempty"`
	Zip          *bool          `cbor:"zip,omitempty"`
}

type OutcomeKind string

const (
	KindIncomplete OutcomeKind = "incomplete"
	KindFailed     OutcomeKind = "failed"
	KindBuilt      OutcomeKind = "built"
)

// ValidationError 是 sink.ValidationError 的线上形式
type ValidationError struct {
	Kind    string      `cbor:"kind"`
	Message string      `cbor:"message"`
	DType   types.DType `cbor:"dtype,omitempty"`
	Depth   int         `cbor:"depth,omitempty"`
	Count   int         `cbor:"count,omitempty"`
	Path    types.Path  `cbor:"path,omitempty"`
}

// Outcome 是 sink.Outcome 的线上形式
type Outcome struct {
	Kind        OutcomeKind      `cbor:"kind"`
	Reason      string           `cbor:"reason,omitempty"`
	Error       *ValidationError `cbor:"error,omitempty"`
	Descriptor  *sink.Descriptor `cbor:"descriptor,omitempty"`
	Fingerprint string           `cbor:"fingerprint,omitempty"`
}

type PlanResponse struct {
	Outcome          Outcome `cbor:"outcome"`
	DefaultExtension string  `cbor:"default_extension"`
}

type CreateResponse struct {
	Outcome Outcome `cbor:"outcome"`
	JobID   string  `cbor:"job_id"`
	Levels  int     `cbor:"levels"`
	Reused  bool    `cbor:"reused,omitempty"`
}

type ListJobsRequest struct {
	Status string `cbor:"status,omitempty"`
	Limit  int    `cbor:"limit,omitempty"`
}

type Job struct {
	ID          string `cbor:"id"`
	Fingerprint string `cbor:"fingerprint"`
	Format      string `cbor:"format"`
	StorageURL  string `cbor:"storage_url"`
	TargetPath  string `cbor:"target_path"`
	NumLevels   int    `cbor:"num_levels"`
	Status      string `cbor:"status"`
	Error       string `cbor:"error,omitempty"`
	CreatedAt   int64  `cbor:"created_at"`
	FinishedAt  int64  `cbor:"finished_at,omitempty"`
}

type ListJobsResponse struct {
	Jobs []Job `cbor:"jobs"`
}

// EncodeValidationError 把封闭的错误集合转换为线上形式
func EncodeValidationError(err sink.ValidationError) *ValidationError {
	out := &ValidationError{Message: err.Error()}
	switch e := err.(type) {
	case sink.UnsupportedDataType:
		out.Kind, out.DType = "unsupported_data_type", e.DType
	case sink.UnsupportedDimensions:
		out.Kind, out.Depth = "unsupported_dimensions", e.Depth
	case sink.UnsupportedChannelCount:
		out.Kind, out.Count = "unsupported_channel_count", e.Count
	case sink.UnsupportedTileChannelCount:
		out.Kind, out.Count = "unsupported_tile_channel_count", e.Count
	case sink.UnsupportedArchivePath:
		out.Kind, out.Path = "unsupported_archive_path", e.Path
	case sink.UnsupportedPlainPath:
		out.Kind, out.Path = "unsupported_plain_path", e.Path
	}
	return out
}

// Decode 还原为 sink.ValidationError
func (v *ValidationError) Decode() (sink.ValidationError, error) {
	switch v.Kind {
	case "unsupported_data_type":
		return sink.UnsupportedDataType{DType: v.DType}, nil
	case "unsupported_dimensions":
		return sink.UnsupportedDimensions{Depth: v.Depth}, nil
	case "unsupported_channel_count":
		return sink.UnsupportedChannelCount{Count: v.Count}, nil
	case "unsupported_tile_channel_count":
		return sink.UnsupportedTileChannelCount{Count: v.Count}, nil
	case "unsupported_archive_path":
		return sink.UnsupportedArchivePath{Path: v.Path}, nil
	case "unsupported_plain_path":
		return sink.UnsupportedPlainPath{Path: v.Path}, nil
	default:
		return nil, fmt.Errorf("unknown validation error kind %q", v.Kind)
	}
}

// EncodeOutcome 转换构建结果；descriptor 只在 Built 时使用
func EncodeOutcome(o sink.Outcome, d *sink.Descriptor, fingerprint string) Outcome {
	switch o := o.(type) {
	case sink.Incomplete:
		return Outcome{Kind: KindIncomplete, Reason: o.Reason}
	case sink.Failed:
		return Outcome{Kind: KindFailed, Error: EncodeValidationError(o.Err)}
	default:
		return Outcome{Kind: KindBuilt, Descriptor: d, Fingerprint: fingerprint}
	}
}

// OutcomeStatus 把未成功的结果映射为 gRPC 状态
// Incomplete -> FailedPrecondition, Failed -> InvalidArgument, Built -> nil
func OutcomeStatus(o sink.Outcome) error {
	switch o := o.(type) {
	case sink.Incomplete:
		return status.Error(codes.FailedPrecondition, o.Reason)
	case sink.Failed:
		return status.Error(codes.InvalidArgument, o.Err.Error())
	default:
		return nil
	}
}
