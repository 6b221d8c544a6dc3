package service

import (
	"context"
	"net"
	"testing"

	"tilesink/pkg/client"
	"tilesink/pkg/logging"
	"tilesink/pkg/meta"
	"tilesink/pkg/rpc"
	"tilesink/pkg/server"
	"tilesink/pkg/sink"
	"tilesink/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

// startRPC 在内存连接上启动完整的 gRPC 服务端，返回客户端
func startRPC(t *testing.T) (rpc.SinkServiceClient, *ExportService) {
	t.Helper()
	a, _ := setupTestApp(t)
	svc := NewExportService(a)

	lis := bufconn.Listen(1024 * 1024)
	srv := server.New(logging.Slog(a.Logger))
	rpc.RegisterSinkServiceServer(srv, NewSinkRPC(svc))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	c, err := client.NewSinkClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c.Sink, svc
}

func sinkRequest(path string) *rpc.SinkRequest {
	return &rpc.SinkRequest{
		Interval:  types.Shape{X: 1000, Y: 500, Z: 1, C: 3}.ToInterval(),
		TileShape: types.Shape{X: 256, Y: 256, Z: 1, C: 3},
		DType:     types.Uint8,
		Path:      types.Path(path),
	}
}

func TestSinkRPC_Plan(t *testing.T) {
	c, _ := startRPC(t)
	ctx := context.Background()

	t.Run("built", func(t *testing.T) {
		resp, err := c.Plan(ctx, sinkRequest("/out/a.dzi"))
		require.NoError(t, err)
		assert.Equal(t, rpc.KindBuilt, resp.Outcome.Kind)
		assert.Equal(t, ".dzi", resp.DefaultExtension)
		require.NotNil(t, resp.Outcome.Descriptor)
		assert.Equal(t, 10, resp.Outcome.Descriptor.LevelIndex)
		assert.Len(t, resp.Outcome.Fingerprint, 64)
	})

	t.Run("failed carries the variant", func(t *testing.T) {
		req := sinkRequest("/out/a.dzi")
		req.Interval.Stop.C = 2
		req.TileShape.C = 2
		resp, err := c.Plan(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, rpc.KindFailed, resp.Outcome.Kind)
		require.NotNil(t, resp.Outcome.Error)
		verr, err := resp.Outcome.Error.Decode()
		require.NoError(t, err)
		assert.Equal(t, sink.UnsupportedChannelCount{Count: 2}, verr)
	})

	t.Run("incomplete", func(t *testing.T) {
		req := sinkRequest("/out/a.dzi")
		req.UnsetOverlap = true
		resp, err := c.Plan(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, rpc.KindIncomplete, resp.Outcome.Kind)
		assert.NotEmpty(t, resp.Outcome.Reason)
	})

	t.Run("malformed request", func(t *testing.T) {
		req := sinkRequest("")
		_, err := c.Plan(ctx, req)
		assert.Equal(t, codes.InvalidArgument, status.Code(err))

		req = sinkRequest("/out/a.dzi")
		req.DType = "complex64"
		_, err = c.Plan(ctx, req)
		assert.Equal(t, codes.InvalidArgument, status.Code(err))

		req = sinkRequest("/out/a.dzi")
		req.ImageFormat = "gif"
		_, err = c.Plan(ctx, req)
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	})
}

func TestSinkRPC_Create(t *testing.T) {
	c, svc := startRPC(t)
	ctx := context.Background()

	resp, err := c.Create(ctx, sinkRequest("/out/a.dzi"))
	require.NoError(t, err)
	assert.Equal(t, 11, resp.Levels)
	assert.NotEmpty(t, resp.JobID)

	job, err := svc.Job(ctx, resp.JobID)
	require.NoError(t, err)
	assert.Equal(t, meta.StatusCompleted, job.Status)

	again, err := c.Create(ctx, sinkRequest("/out/a.dzi"))
	require.NoError(t, err)
	assert.True(t, again.Reused)
	assert.Equal(t, resp.JobID, again.JobID)
	assert.False(t, resp.Reused)

	t.Run("incomplete maps to FailedPrecondition", func(t *testing.T) {
		req := sinkRequest("/out/b.dzi")
		req.UnsetOverlap = true
		_, err := c.Create(ctx, req)
		assert.Equal(t, codes.FailedPrecondition, status.Code(err))
	})

	t.Run("failed maps to InvalidArgument", func(t *testing.T) {
		zip := true
		req := sinkRequest("/out/b.dzi")
		req.Zip = &zip
		_, err := c.Create(ctx, req)
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
		assert.Contains(t, status.Convert(err).Message(), "/out/b.dzi")
	})
}

func TestSinkRPC_ListJobs(t *testing.T) {
	c, _ := startRPC(t)
	ctx := context.Background()

	for _, p := range []string{"/a.dzi", "/b.dzi"} {
		_, err := c.Create(ctx, sinkRequest(p))
		require.NoError(t, err)
	}

	resp, err := c.ListJobs(ctx, &rpc.ListJobsRequest{Status: "completed"})
	require.NoError(t, err)
	require.Len(t, resp.Jobs, 2)
	for _, j := range resp.Jobs {
		assert.Equal(t, "completed", j.Status)
		assert.NotZero(t, j.FinishedAt)
		assert.Equal(t, 11, j.NumLevels)
	}

	_, err = c.ListJobs(ctx, &rpc.ListJobsRequest{Status: "done"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = c.ListJobs(ctx, &rpc.ListJobsRequest{Limit: -1})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}
