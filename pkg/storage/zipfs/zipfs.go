// Package zipfs provides an archive-backed storage.Filesystem view over a
// single zip file stored in another Filesystem.
//
// Construction performs no I/O. The archive is read lazily on the first read,
// and writes are buffered in memory until Close materialises the archive on
// the parent filesystem.
package zipfs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"tilesink/pkg/storage"
	"tilesink/pkg/types"

	"github.com/klauspost/compress/zip"
)

// FS 是 zip 归档上的文件系统视图
type FS struct {
	parent  storage.Filesystem
	zipPath types.Path

	mu      sync.Mutex
	pending map[string][]byte   // 尚未落盘的文件
	dirs    map[string]struct{} // 尚未落盘的目录 (以 "/" 结尾)
	archive *zip.Reader         // 已存在的归档，懒加载
	loaded  bool
}

// New 创建 zip 视图，不做任何 I/O
func New(parent storage.Filesystem, zipPath types.Path) *FS {
	return &FS{parent: parent, zipPath: zipPath}
}

// Parent 返回承载归档文件的文件系统
func (f *FS) Parent() storage.Filesystem { return f.parent }

// ZipPath 返回归档文件在 Parent 中的路径
func (f *FS) ZipPath() types.Path { return f.zipPath }

func entryName(p types.Path) string {
	return p.Rel()
}

func (f *FS) CreateFile(ctx context.Context, p types.Path, contents []byte) error {
	name := entryName(p)
	if name == "." || name == "" {
		return fmt.Errorf("zipfs: cannot create file at archive root")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pending == nil {
		f.pending = make(map[string][]byte)
	}
	buf := make([]byte, len(contents))
	copy(buf, contents)
	f.pending[name] = buf
	return nil
}

func (f *FS) CreateDirectory(ctx context.Context, p types.Path) error {
	name := entryName(p)
	if name == "." || name == "" {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dirs == nil {
		f.dirs = make(map[string]struct{})
	}
	f.dirs[name+"/"] = struct{}{}
	return nil
}

// load 读取已有的归档 (调用者需持有锁)
// 归档不存在不算错误，视为空归档
func (f *FS) load(ctx context.Context) error {
	if f.loaded {
		return nil
	}
	data, err := f.parent.ReadFile(ctx, f.zipPath)
	if errors.Is(err, storage.ErrNotFound) {
		f.loaded = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("zipfs: failed to read archive %s: %w", f.zipPath, err)
	}
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("zipfs: corrupted archive %s: %w", f.zipPath, err)
	}
	f.archive = r
	f.loaded = true
	return nil
}

func (f *FS) ReadFile(ctx context.Context, p types.Path) ([]byte, error) {
	name := entryName(p)

	f.mu.Lock()
	defer f.mu.Unlock()

	if data, ok := f.pending[name]; ok {
		out := make([]byte, len(data))
		copy(out, data)
		return out, nil
	}
	if err := f.load(ctx); err != nil {
		return nil, err
	}
	if f.archive == nil {
		return nil, storage.ErrNotFound
	}
	for _, entry := range f.archive.File {
		if entry.Name != name {
			continue
		}
		rc, err := entry.Open()
		if err != nil {
			return nil, fmt.Errorf("zipfs: failed to open %s: %w", name, err)
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, storage.ErrNotFound
}

func (f *FS) Exists(ctx context.Context, p types.Path) (bool, error) {
	name := entryName(p)
	if name == "." || name == "" {
		return true, nil
	}
	dirPrefix := name + "/"

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.pending[name]; ok {
		return true, nil
	}
	if _, ok := f.dirs[dirPrefix]; ok {
		return true, nil
	}
	for pendingName := range f.pending {
		if strings.HasPrefix(pendingName, dirPrefix) {
			return true, nil
		}
	}
	if err := f.load(ctx); err != nil {
		return false, err
	}
	if f.archive == nil {
		return false, nil
	}
	for _, entry := range f.archive.File {
		if entry.Name == name || strings.HasPrefix(entry.Name, dirPrefix) {
			return true, nil
		}
	}
	return false, nil
}

// List 返回归档中所有文件 (包括尚未落盘的)，按路径排序
func (f *FS) List(ctx context.Context) ([]types.Path, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.load(ctx); err != nil {
		return nil, err
	}
	names := make(map[string]struct{}, len(f.pending))
	if f.archive != nil {
		for _, entry := range f.archive.File {
			if !strings.HasSuffix(entry.Name, "/") {
				names[entry.Name] = struct{}{}
			}
		}
	}
	for name := range f.pending {
		names[name] = struct{}{}
	}
	out := make([]types.Path, 0, len(names))
	for _, name := range sortedKeys(names) {
		out = append(out, types.Path("/"+name))
	}
	return out, nil
}

func (f *FS) URL(p types.Path) string {
	return f.parent.URL(f.zipPath) + "/" + entryName(p)
}

// Close 把缓冲的写入和已有归档合并，写回父文件系统
// 同名文件以新写入的为准；条目按名字排序，保证输出可复现
func (f *FS) Close(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.pending) == 0 && len(f.dirs) == 0 {
		return nil
	}
	if err := f.load(ctx); err != nil {
		return err
	}

	// 1. 收集所有条目
	files := make(map[string][]byte, len(f.pending))
	dirs := make(map[string]struct{}, len(f.dirs))
	if f.archive != nil {
		for _, entry := range f.archive.File {
			if strings.HasSuffix(entry.Name, "/") {
				dirs[entry.Name] = struct{}{}
				continue
			}
			rc, err := entry.Open()
			if err != nil {
				return fmt.Errorf("zipfs: failed to open %s: %w", entry.Name, err)
			}
			data, err := io.ReadAll(rc)
			rc.Close()
			if err != nil {
				return fmt.Errorf("zipfs: failed to read %s: %w", entry.Name, err)
			}
			files[entry.Name] = data
		}
	}
	for name := range f.dirs {
		dirs[name] = struct{}{}
	}
	for name, data := range f.pending {
		files[name] = data
	}

	// 2. 写归档
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range sortedKeys(dirs) {
		if _, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Store}); err != nil {
			return fmt.Errorf("zipfs: failed to add directory %s: %w", name, err)
		}
	}
	for _, name := range sortedKeys(files) {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: methodFor(name)})
		if err != nil {
			return fmt.Errorf("zipfs: failed to add %s: %w", name, err)
		}
		if _, err := w.Write(files[name]); err != nil {
			return fmt.Errorf("zipfs: failed to write %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("zipfs: failed to finalize archive: %w", err)
	}

	// 3. 落盘
	data := buf.Bytes()
	if err := f.parent.CreateFile(ctx, f.zipPath, data); err != nil {
		return fmt.Errorf("zipfs: failed to store archive %s: %w", f.zipPath, err)
	}

	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("zipfs: failed to reopen archive: %w", err)
	}
	f.archive = r
	f.pending = nil
	f.dirs = nil
	return nil
}

// methodFor 已压缩的图片格式直接存储，其余用 Deflate
func methodFor(name string) uint16 {
	switch strings.ToLower(types.Path(name).Suffix()) {
	case ".png", ".jpg", ".jpeg":
		return zip.Store
	default:
		return zip.Deflate
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
