package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"tilesink/pkg/dzi"
	"tilesink/pkg/meta"
	"tilesink/pkg/sink"
	"tilesink/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportService_Plan_Built(t *testing.T) {
	a, mem := setupTestApp(t)
	svc := NewExportService(a)

	plan, err := svc.Plan(context.Background(), rgbRequest("/out/a.dzi"))
	require.NoError(t, err)

	require.IsType(t, sink.Built{}, plan.Outcome)
	assert.Equal(t, ".dzi", plan.DefaultExtension)
	require.NotNil(t, plan.Descriptor)
	assert.Equal(t, types.Path("/out/a_files/10"), plan.Descriptor.LevelPath)
	assert.Equal(t, types.Shape{X: 1000, Y: 500, Z: 1, C: 3}, plan.Descriptor.Shape)
	assert.Equal(t, types.Shape{X: 256, Y: 256, Z: 1, C: 3}, plan.Descriptor.TileShape)
	assert.Len(t, plan.Fingerprint, 64)

	require.NotNil(t, plan.Options)
	assert.Equal(t, dzi.FormatPNG, plan.Options.ImageFormat)

	// Plan 不产生任何 I/O
	assert.Empty(t, mem.Files())
	assert.Empty(t, mem.Dirs())
}

func TestExportService_Plan_Overrides(t *testing.T) {
	a, _ := setupTestApp(t)
	svc := NewExportService(a)
	ctx := context.Background()

	t.Run("zip", func(t *testing.T) {
		req := rgbRequest("/out/a.dzip")
		req.Overrides.Zip = boolPtr(true)
		plan, err := svc.Plan(ctx, req)
		require.NoError(t, err)
		require.IsType(t, sink.Built{}, plan.Outcome)
		assert.Equal(t, ".dzip", plan.DefaultExtension)
		assert.Equal(t, types.Path("/out/a.dzip"), plan.Descriptor.Archive)
		assert.Equal(t, types.Path("/out/a.dzi"), plan.Descriptor.XMLPath)

		// 覆盖只影响本次请求
		assert.Equal(t, ".dzi", a.Format.DefaultExtension())
	})

	t.Run("unset overlap", func(t *testing.T) {
		req := rgbRequest("/out/a.dzi")
		req.Overrides.UnsetOverlap = true
		plan, err := svc.Plan(ctx, req)
		require.NoError(t, err)
		assert.IsType(t, sink.Incomplete{}, plan.Outcome)
		assert.Nil(t, plan.Descriptor)
	})

	t.Run("image format", func(t *testing.T) {
		req := rgbRequest("/out/a.dzi")
		req.Overrides.ImageFormat = "JPEG"
		req.Overrides.Overlap = intPtr(2)
		plan, err := svc.Plan(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, dzi.FormatJPEG, plan.Descriptor.Image.Format)
		// 元数据中的 overlap 始终为 0
		assert.Equal(t, 0, plan.Descriptor.Image.Overlap)
		assert.Equal(t, 2, *plan.Options.Overlap)
	})

	t.Run("bad image format", func(t *testing.T) {
		req := rgbRequest("/out/a.dzi")
		req.Overrides.ImageFormat = "gif"
		_, err := svc.Plan(ctx, req)
		var bad *badOverrideError
		assert.True(t, errors.As(err, &bad))
	})
}

func TestExportService_Plan_Failed(t *testing.T) {
	a, _ := setupTestApp(t)
	svc := NewExportService(a)

	req := rgbRequest("/out/a.png")
	plan, err := svc.Plan(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, sink.Failed{Err: sink.UnsupportedPlainPath{Path: "/out/a.png"}}, plan.Outcome)
	assert.Empty(t, plan.Fingerprint)
}

func TestExportService_Create(t *testing.T) {
	a, mem := setupTestApp(t)
	svc := NewExportService(a)
	ctx := context.Background()

	result, err := svc.Create(ctx, rgbRequest("/out/a.dzi"))
	require.NoError(t, err)
	assert.Equal(t, 11, result.Levels)
	assert.NotEmpty(t, result.JobID)

	assert.Equal(t, []string{"out/a.dzi"}, mem.Files())
	assert.Len(t, mem.Dirs(), 11)

	img, err := dzi.Load(ctx, mem, "/out/a.dzi")
	require.NoError(t, err)
	assert.Equal(t, 1000, img.Width)
	assert.Equal(t, 256, img.TileSize)

	// 任务记录
	job, err := svc.Job(ctx, result.JobID)
	require.NoError(t, err)
	assert.Equal(t, meta.StatusCompleted, job.Status)
	assert.Equal(t, result.Fingerprint, job.Fingerprint)
	assert.Equal(t, "/out/a.dzi", job.TargetPath)
	assert.Equal(t, 11, job.NumLevels)
	assert.NotNil(t, job.FinishedAt)

	d, err := sink.DecodeDescriptor(job.Descriptor)
	require.NoError(t, err)
	assert.Equal(t, *result.Descriptor, d)

	var opts sink.DziOptions
	require.NoError(t, json.Unmarshal(job.Options, &opts))
	assert.Equal(t, dzi.FormatPNG, opts.ImageFormat)
	assert.False(t, opts.Zip)
}

func TestExportService_Create_Archive(t *testing.T) {
	a, mem := setupTestApp(t)
	svc := NewExportService(a)

	req := rgbRequest("/out/a.dzip")
	req.Overrides.Zip = boolPtr(true)
	result, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 11, result.Levels)

	// 归档模式只在父存储上写一个文件
	assert.Equal(t, []string{"out/a.dzip"}, mem.Files())
	assert.Empty(t, mem.Dirs())
}

func TestExportService_Create_NotBuilt(t *testing.T) {
	a, mem := setupTestApp(t)
	svc := NewExportService(a)
	ctx := context.Background()

	req := rgbRequest("/out/a.dzi")
	req.DType = types.Float32
	result, err := svc.Create(ctx, req)
	require.ErrorIs(t, err, ErrNotBuilt)
	require.NotNil(t, result)
	assert.Equal(t, sink.Failed{Err: sink.UnsupportedDataType{DType: types.Float32}}, result.Outcome)

	assert.Empty(t, mem.Files())
	jobs, err := svc.Jobs(ctx, "", 0)
	require.NoError(t, err)
	assert.Empty(t, jobs, "no job is recorded for a sink that was never built")
}

func TestExportService_Create_Dedup(t *testing.T) {
	a, mem := setupTestApp(t)
	svc := NewExportService(a)
	ctx := context.Background()

	first, err := svc.Create(ctx, rgbRequest("/out/x.dzi"))
	require.NoError(t, err)
	assert.False(t, first.Reused)

	second, err := svc.Create(ctx, rgbRequest("/out/x.dzi"))
	require.NoError(t, err)
	assert.True(t, second.Reused)
	assert.Equal(t, first.Fingerprint, second.Fingerprint)
	assert.Equal(t, first.JobID, second.JobID)
	assert.Equal(t, 11, second.Levels)

	jobs, err := svc.Jobs(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
	assert.Equal(t, []string{"out/x.dzi"}, mem.Files())
}

func TestExportService_Create_DedupByStatus(t *testing.T) {
	tests := []struct {
		name        string
		status      meta.JobStatus
		writeOutput bool
		wantReused  bool
	}{
		{"running_reused", meta.StatusRunning, false, true},
		{"completed_with_output_reused", meta.StatusCompleted, true, true},
		{"completed_without_output_rebuilt", meta.StatusCompleted, false, false},
		{"failed_rebuilt", meta.StatusFailed, true, false},
		{"pending_rebuilt", meta.StatusPending, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, mem := setupTestApp(t)
			svc := NewExportService(a)
			ctx := context.Background()

			plan, err := svc.Plan(ctx, rgbRequest("/out/y.dzi"))
			require.NoError(t, err)
			prior := &meta.ExportJob{
				Fingerprint: plan.Fingerprint,
				Format:      "dzi",
				StorageURL:  plan.Descriptor.StorageURL,
				TargetPath:  "/out/y.dzi",
				NumLevels:   11,
				Status:      tt.status,
			}
			require.NoError(t, a.Repository.CreateJob(ctx, prior))
			if tt.writeOutput {
				require.NoError(t, mem.CreateFile(ctx, "/out/y.dzi", []byte("<Image/>")))
			}

			result, err := svc.Create(ctx, rgbRequest("/out/y.dzi"))
			require.NoError(t, err)
			assert.Equal(t, tt.wantReused, result.Reused)

			jobs, err := svc.Jobs(ctx, "", 0)
			require.NoError(t, err)
			if tt.wantReused {
				assert.Equal(t, prior.ID, result.JobID)
				assert.Len(t, jobs, 1)
			} else {
				assert.NotEqual(t, prior.ID, result.JobID)
				assert.Len(t, jobs, 2)
			}
		})
	}
}

func TestExportService_Jobs(t *testing.T) {
	a, _ := setupTestApp(t)
	svc := NewExportService(a)
	ctx := context.Background()

	for _, p := range []types.Path{"/a.dzi", "/b.dzi", "/c.xml"} {
		_, err := svc.Create(ctx, rgbRequest(p))
		require.NoError(t, err)
	}

	jobs, err := svc.Jobs(ctx, meta.StatusCompleted, 0)
	require.NoError(t, err)
	assert.Len(t, jobs, 3)

	jobs, err = svc.Jobs(ctx, "", 2)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)

	jobs, err = svc.Jobs(ctx, meta.StatusFailed, 0)
	require.NoError(t, err)
	assert.Empty(t, jobs)

	_, err = svc.Job(ctx, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, meta.ErrJobNotFound)
}
