package sink

import (
	"errors"
	"fmt"

	"tilesink/pkg/types"
)

var ErrUnknownFormat = errors.New("unknown export format")

// ValidationError 是封闭的校验错误集合
// 未导出的标记方法保证只有本包能定义新的变体，调用方可以对类型做穷举 switch
type ValidationError interface {
	error
	validationError()
}

// UnsupportedDataType 元素类型不被格式支持
type UnsupportedDataType struct {
	DType types.DType `cbor:"dtype" json:"dtype"`
}

// UnsupportedDimensions 格式只支持二维数据
type UnsupportedDimensions struct {
	Depth int `cbor:"depth" json:"depth"`
}

// UnsupportedChannelCount 通道数只能是 1 或 3
type UnsupportedChannelCount struct {
	Count int `cbor:"count" json:"count"`
}

// UnsupportedTileChannelCount tile 的通道数必须与数组一致
type UnsupportedTileChannelCount struct {
	Count int `cbor:"count" json:"count"`
}

// UnsupportedArchivePath 归档模式下路径必须以 .dzip 结尾且不是根路径
type UnsupportedArchivePath struct {
	Path types.Path `cbor:"path" json:"path"`
}

// UnsupportedPlainPath 普通模式下路径必须以 .dzi 或 .xml 结尾且不是根路径
type UnsupportedPlainPath struct {
	Path types.Path `cbor:"path" json:"path"`
}

func (UnsupportedDataType) validationError()         {}
func (UnsupportedDimensions) validationError()       {}
func (UnsupportedChannelCount) validationError()     {}
func (UnsupportedTileChannelCount) validationError() {}
func (UnsupportedArchivePath) validationError()      {}
func (UnsupportedPlainPath) validationError()        {}

func (e UnsupportedDataType) Error() string {
	return fmt.Sprintf("unsupported data type: %s (only uint8 is supported)", e.DType)
}

func (e UnsupportedDimensions) Error() string {
	return fmt.Sprintf("unsupported number of dimensions: depth is %d, but only 2D data is supported", e.Depth)
}

func (e UnsupportedChannelCount) Error() string {
	return fmt.Sprintf("unsupported number of channels: %d (must be 1 or 3)", e.Count)
}

func (e UnsupportedTileChannelCount) Error() string {
	return fmt.Sprintf("unsupported number of channels per tile: %d (must match the array)", e.Count)
}

func (e UnsupportedArchivePath) Error() string {
	return fmt.Sprintf("unsupported archive path: %q (must end in %s)", e.Path, ArchiveExtension)
}

func (e UnsupportedPlainPath) Error() string {
	return fmt.Sprintf("unsupported path: %q (must end in .dzi or .xml)", e.Path)
}
