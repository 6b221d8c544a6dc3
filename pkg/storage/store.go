package storage

import (
	"context"
	"errors"

	"tilesink/pkg/types"
)

var (
	ErrNotFound = errors.New("file not found")
	ErrReadOnly = errors.New("filesystem is read-only")
)

// Filesystem defines the interface for a storage backend that sinks write into.
// Implementations can be local disk, an object storage bucket, or an archive
// view layered over another Filesystem.
type Filesystem interface {
	// CreateFile 创建 (或覆盖) 一个文件，必要时自动创建父目录
	CreateFile(ctx context.Context, path types.Path, contents []byte) error

	// CreateDirectory 创建目录 (幂等)
	// 对象存储没有真正的目录，实现可以什么都不做
	CreateDirectory(ctx context.Context, path types.Path) error

	// ReadFile 读取整个文件；不存在时返回 ErrNotFound
	ReadFile(ctx context.Context, path types.Path) ([]byte, error)

	// Exists 检查路径是否存在
	Exists(ctx context.Context, path types.Path) (bool, error)

	// URL 返回路径的可读地址，仅用于展示和记录
	URL(path types.Path) string
}
