package zipfs

import (
	"bytes"
	"context"
	"testing"

	"tilesink/pkg/storage"
	"tilesink/pkg/storage/memory"
	"tilesink/pkg/types"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingFS 统计父文件系统被访问的次数，用来验证 New 不做 I/O
type countingFS struct {
	storage.Filesystem
	reads  int
	writes int
}

func (c *countingFS) ReadFile(ctx context.Context, p types.Path) ([]byte, error) {
	c.reads++
	return c.Filesystem.ReadFile(ctx, p)
}

func (c *countingFS) CreateFile(ctx context.Context, p types.Path, data []byte) error {
	c.writes++
	return c.Filesystem.CreateFile(ctx, p, data)
}

func TestNew_NoIO(t *testing.T) {
	parent := &countingFS{Filesystem: memory.NewAdapter()}
	fs := New(parent, "/out/foo.dzip")

	assert.Equal(t, types.Path("/out/foo.dzip"), fs.ZipPath())
	assert.Same(t, parent, fs.Parent())
	assert.Zero(t, parent.reads)
	assert.Zero(t, parent.writes)
}

func TestFS_WriteCloseRead(t *testing.T) {
	ctx := context.Background()
	parent := memory.NewAdapter()
	fs := New(parent, "/out/foo.dzip")

	// 1. 写入 (只在内存中)
	require.NoError(t, fs.CreateFile(ctx, "/foo.dzi", []byte("<Image/>")))
	require.NoError(t, fs.CreateDirectory(ctx, "/foo_files/0"))
	require.NoError(t, fs.CreateFile(ctx, "/foo_files/0/0_0.png", []byte("png-bytes")))

	exists, err := parent.Exists(ctx, "/out/foo.dzip")
	require.NoError(t, err)
	assert.False(t, exists, "archive should not exist before Close")

	// 未落盘前也能读到
	data, err := fs.ReadFile(ctx, "foo.dzi")
	require.NoError(t, err)
	assert.Equal(t, []byte("<Image/>"), data)

	// 2. 落盘
	require.NoError(t, fs.Close(ctx))

	raw, err := parent.ReadFile(ctx, "/out/foo.dzip")
	require.NoError(t, err)
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	require.NoError(t, err)

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"foo_files/0/", "foo.dzi", "foo_files/0/0_0.png"}, names)

	// 3. 新视图从父文件系统读取
	reopened := New(parent, "/out/foo.dzip")
	data, err = reopened.ReadFile(ctx, "/foo_files/0/0_0.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), data)

	_, err = reopened.ReadFile(ctx, "/missing.png")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	for _, p := range []types.Path{"/foo.dzi", "/foo_files", "/foo_files/0", "/"} {
		ok, err := reopened.Exists(ctx, p)
		require.NoError(t, err)
		assert.True(t, ok, "%s should exist", p)
	}
	ok, err := reopened.Exists(ctx, "/bar.dzi")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFS_CloseMergesExistingArchive(t *testing.T) {
	ctx := context.Background()
	parent := memory.NewAdapter()

	first := New(parent, "a.dzip")
	require.NoError(t, first.CreateFile(ctx, "/a.txt", []byte("A")))
	require.NoError(t, first.CreateFile(ctx, "/b.txt", []byte("B")))
	require.NoError(t, first.Close(ctx))

	second := New(parent, "a.dzip")
	require.NoError(t, second.CreateFile(ctx, "/b.txt", []byte("B2")))
	require.NoError(t, second.Close(ctx))

	third := New(parent, "a.dzip")
	a, err := third.ReadFile(ctx, "/a.txt")
	require.NoError(t, err)
	b, err := third.ReadFile(ctx, "/b.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("A"), a)
	assert.Equal(t, []byte("B2"), b, "newer write wins")
}

func TestFS_CloseWithoutWritesIsNoop(t *testing.T) {
	parent := &countingFS{Filesystem: memory.NewAdapter()}
	fs := New(parent, "a.dzip")
	require.NoError(t, fs.Close(context.Background()))
	assert.Zero(t, parent.writes)
}

func TestFS_CorruptedArchive(t *testing.T) {
	ctx := context.Background()
	parent := memory.NewAdapter()
	require.NoError(t, parent.CreateFile(ctx, "bad.dzip", []byte("not a zip")))

	fs := New(parent, "bad.dzip")
	_, err := fs.ReadFile(ctx, "/foo.dzi")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "corrupted archive")
}

func TestFS_RejectsRootFile(t *testing.T) {
	fs := New(memory.NewAdapter(), "a.dzip")
	assert.Error(t, fs.CreateFile(context.Background(), types.RootPath, []byte("x")))
}

func TestFS_URL(t *testing.T) {
	fs := New(memory.NewAdapter(), "/out/a.dzip")
	assert.Equal(t, "memory:///out/a.dzip/foo.dzi", fs.URL("/foo.dzi"))
}

func TestFS_List(t *testing.T) {
	ctx := context.Background()
	parent := memory.NewAdapter()

	first := New(parent, "a.dzip")
	require.NoError(t, first.CreateFile(ctx, "/b.dzi", []byte("B")))
	require.NoError(t, first.CreateDirectory(ctx, "/b_files/0"))
	require.NoError(t, first.Close(ctx))

	second := New(parent, "a.dzip")
	require.NoError(t, second.CreateFile(ctx, "/a.dzi", []byte("A")))
	list, err := second.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []types.Path{"/a.dzi", "/b.dzi"}, list)
}
