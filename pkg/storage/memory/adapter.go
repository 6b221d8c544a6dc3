package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"tilesink/pkg/storage"
	"tilesink/pkg/types"
)

// Adapter 是纯内存的 storage.Filesystem 实现
// 用于 dry-run 和测试，进程退出即丢失
type Adapter struct {
	mu    sync.RWMutex
	files map[string][]byte
	dirs  map[string]struct{}
}

func NewAdapter() *Adapter {
	return &Adapter{
		files: make(map[string][]byte),
		dirs:  make(map[string]struct{}),
	}
}

func key(p types.Path) string {
	return p.Rel()
}

func (a *Adapter) CreateFile(ctx context.Context, p types.Path, contents []byte) error {
	buf := make([]byte, len(contents))
	copy(buf, contents)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.files[key(p)] = buf
	return nil
}

func (a *Adapter) CreateDirectory(ctx context.Context, p types.Path) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.dirs[key(p)] = struct{}{}
	return nil
}

func (a *Adapter) ReadFile(ctx context.Context, p types.Path) ([]byte, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	data, ok := a.files[key(p)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (a *Adapter) Exists(ctx context.Context, p types.Path) (bool, error) {
	k := key(p)
	if k == "." || k == "" {
		return true, nil
	}

	a.mu.RLock()
	defer a.mu.RUnlock()
	if _, ok := a.files[k]; ok {
		return true, nil
	}
	if _, ok := a.dirs[k]; ok {
		return true, nil
	}
	for name := range a.files {
		if strings.HasPrefix(name, k+"/") {
			return true, nil
		}
	}
	return false, nil
}

func (a *Adapter) URL(p types.Path) string {
	return "memory:///" + key(p)
}

// Files 返回所有文件路径 (排序后)，便于断言
func (a *Adapter) Files() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]string, 0, len(a.files))
	for name := range a.files {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Dirs 返回所有显式创建过的目录 (排序后)
func (a *Adapter) Dirs() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]string, 0, len(a.dirs))
	for name := range a.dirs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
