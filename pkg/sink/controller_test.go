package sink

import (
	"errors"
	"testing"

	"tilesink/pkg/storage/memory"
	"tilesink/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubFormat 原样返回预设的结果，并记录收到的请求
type stubFormat struct {
	ext     string
	outcome Outcome
	err     error
	got     []Request
}

func (f *stubFormat) Name() string             { return "stub" }
func (f *stubFormat) DefaultExtension() string { return f.ext }
func (f *stubFormat) BuildSink(req Request) (Outcome, error) {
	f.got = append(f.got, req)
	return f.outcome, f.err
}

func grayRequest(path types.Path) Request {
	return Request{
		Interval:  types.Shape{X: 64, Y: 64, Z: 1, C: 1}.ToInterval(),
		TileShape: types.Shape{X: 16, Y: 16, Z: 1, C: 1},
		DType:     types.Uint8,
		Target:    Target{Filesystem: memory.NewAdapter(), Path: path},
	}
}

func TestController_Select(t *testing.T) {
	plain := NewDziFormat()
	zipped := NewDziFormat()
	zipped.SetZip(true)

	ctrl := NewController(plain)
	assert.Same(t, plain, ctrl.Active())
	assert.Equal(t, ".dzi", ctrl.DefaultExtension())

	require.NoError(t, ctrl.Select(zipped))
	assert.Same(t, zipped, ctrl.Active())
	assert.Equal(t, ".dzip", ctrl.DefaultExtension())

	// 构建走的是当前选中的格式
	outcome, err := ctrl.BuildSink(grayRequest("/a.dzi"))
	require.NoError(t, err)
	assert.Equal(t, Failed{Err: UnsupportedArchivePath{Path: "/a.dzi"}}, outcome)

	outcome, err = ctrl.BuildSink(grayRequest("/a.dzip"))
	require.NoError(t, err)
	assert.IsType(t, Built{}, outcome)
}

func TestController_Forwarding(t *testing.T) {
	sentinel := errors.New("boom")
	tests := []struct {
		name    string
		outcome Outcome
		err     error
	}{
		{"incomplete", Incomplete{Reason: "waiting"}, nil},
		{"failed", Failed{Err: UnsupportedDimensions{Depth: 7}}, nil},
		{"built", Built{Sink: &DziLevelSink{XMLPath: "/x.dzi"}}, nil},
		{"error", nil, sentinel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubFormat{ext: ".stub", outcome: tt.outcome, err: tt.err}
			ctrl := NewController(NewDziFormat())
			require.NoError(t, ctrl.Select(stub))

			req := grayRequest("/whatever.bin")
			outcome, err := ctrl.BuildSink(req)
			assert.Equal(t, tt.outcome, outcome)
			assert.Equal(t, tt.err, err)
			assert.Equal(t, []Request{req}, stub.got, "request is passed through unchanged")
			assert.Equal(t, ".stub", ctrl.DefaultExtension())
		})
	}
}

func TestController_NilFormat(t *testing.T) {
	ctrl := NewController(nil)
	assert.Nil(t, ctrl.Active())
	assert.Empty(t, ctrl.DefaultExtension())

	outcome, err := ctrl.BuildSink(grayRequest("/a.dzi"))
	assert.Nil(t, outcome)
	assert.ErrorIs(t, err, ErrNoFormat)

	f := NewDziFormat()
	require.NoError(t, ctrl.Select(f))
	assert.ErrorIs(t, ctrl.Select(nil), ErrNoFormat)
	assert.Same(t, f, ctrl.Active(), "rejected selection keeps the current format")
}
