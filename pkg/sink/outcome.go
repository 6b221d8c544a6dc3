package sink

import (
	"tilesink/pkg/storage"
	"tilesink/pkg/types"
)

// Outcome 是一次构建尝试的结果，只有三种：Incomplete / Failed / Built
type Outcome interface {
	isOutcome()
}

// Incomplete 表示用户还没有填完必需的选项，不是错误
type Incomplete struct {
	Reason string
}

// Failed 携带一个校验错误
type Failed struct {
	Err ValidationError
}

// Built 携带构建好的 sink
type Built struct {
	Sink Sink
}

func (Incomplete) isOutcome() {}
func (Failed) isOutcome()     {}
func (Built) isOutcome()      {}

// Sink 是已经完全确定、可以直接写入的导出目标
type Sink interface {
	// Storage 返回实际写入的文件系统 (可能是归档视图)
	Storage() storage.Filesystem
	// Path 返回 sink 在 Storage 中的位置
	Path() types.Path
	Shape() types.Shape
	TileShape() types.Shape
	DType() types.DType
}

// Request 是构建 sink 所需的全部输入
type Request struct {
	Interval  types.Interval
	TileShape types.Shape
	DType     types.DType
	Target    Target
}

// Target 是用户选择的输出位置
type Target struct {
	Filesystem storage.Filesystem
	Path       types.Path
}
