package memory

import (
	"context"
	"testing"

	"tilesink/pkg/storage"
	"tilesink/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdapter_FilesAndDirs(t *testing.T) {
	ctx := context.Background()
	a := NewAdapter()
	var _ storage.Filesystem = a

	data := []byte("hello")
	require.NoError(t, a.CreateFile(ctx, "/out/a.dzi", data))
	data[0] = 'X' // 调用者修改不影响已存内容
	require.NoError(t, a.CreateDirectory(ctx, "/out/a_files/0"))

	got, err := a.ReadFile(ctx, "out/a.dzi")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))

	_, err = a.ReadFile(ctx, "/missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	for _, p := range []types.Path{"/", "/out", "/out/a.dzi", "/out/a_files/0"} {
		ok, err := a.Exists(ctx, p)
		require.NoError(t, err)
		assert.True(t, ok, "%s should exist", p)
	}
	ok, err := a.Exists(ctx, "/out/b.dzi")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, []string{"out/a.dzi"}, a.Files())
	assert.Equal(t, []string{"out/a_files/0"}, a.Dirs())
	assert.Equal(t, "memory:///out/a.dzi", a.URL("/out/a.dzi"))
}
