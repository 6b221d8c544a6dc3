package disk

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"tilesink/pkg/storage"
	"tilesink/pkg/types"
)

// Adapter 实现了 storage.Filesystem 接口
// 所有路径都被解释为相对于 rootPath 的路径 ("/" 就是 rootPath 本身)
type Adapter struct {
	rootPath string // 比如: /home/user/exports
}

// NewAdapter 创建一个新的磁盘存储适配器
func NewAdapter(root string) (*Adapter, error) {
	// 确保根目录存在
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create root storage dir: %w", err)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root storage dir: %w", err)
	}
	return &Adapter{rootPath: abs}, nil
}

// Root 返回物理根目录
func (s *Adapter) Root() string {
	return s.rootPath
}

// layout 返回路径对应的物理路径
// 拒绝 ".." 逃逸出根目录
func (s *Adapter) layout(p types.Path) (string, error) {
	rel := p.Rel()
	if rel == "." {
		return s.rootPath, nil
	}
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("path %q escapes storage root", p)
	}
	return filepath.Join(s.rootPath, filepath.FromSlash(rel)), nil
}

func (s *Adapter) CreateFile(ctx context.Context, p types.Path, contents []byte) error {
	targetPath, err := s.layout(p)
	if err != nil {
		return err
	}

	// 1. 准备目录
	dir := filepath.Dir(targetPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	// 2. 原子写入 (Atomic Write)
	// 技巧：先写到一个临时文件，然后 Rename。
	// 这样保证要么文件不存在，要么文件是完整的。
	tempFile, err := os.CreateTemp(dir, ".*.tmp")
	if err != nil {
		return err
	}
	// 确保临时文件会被清理（如果成功 Rename 了，这个删除会失效，或者无害）
	defer os.Remove(tempFile.Name())

	if _, err := tempFile.Write(contents); err != nil {
		tempFile.Close()
		return err
	}
	tempFile.Close() // 必须先关闭才能 Rename

	// 3. 移动到最终位置 (覆盖)
	if err := os.Rename(tempFile.Name(), targetPath); err != nil {
		return err
	}
	return nil
}

func (s *Adapter) CreateDirectory(ctx context.Context, p types.Path) error {
	targetPath, err := s.layout(p)
	if err != nil {
		return err
	}
	return os.MkdirAll(targetPath, 0755)
}

func (s *Adapter) ReadFile(ctx context.Context, p types.Path) ([]byte, error) {
	targetPath, err := s.layout(p)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(targetPath)
	if os.IsNotExist(err) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *Adapter) Exists(ctx context.Context, p types.Path) (bool, error) {
	targetPath, err := s.layout(p)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(targetPath)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (s *Adapter) URL(p types.Path) string {
	targetPath, err := s.layout(p)
	if err != nil {
		return "file://" + s.rootPath
	}
	return "file://" + filepath.ToSlash(targetPath)
}
