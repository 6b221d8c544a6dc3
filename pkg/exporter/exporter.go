package exporter

import (
	"context"
	"fmt"
	"io"
	"strings"

	"tilesink/pkg/dzi"
	"tilesink/pkg/rpc"
	"tilesink/pkg/service"
	"tilesink/pkg/sink"
	"tilesink/pkg/storage"
	"tilesink/pkg/storage/zipfs"
	"tilesink/pkg/types"

	"google.golang.org/grpc"
)

// Backend 是 CLI 发起导出的统一入口，本地模式和远程模式行为一致
type Backend interface {
	Plan(ctx context.Context, req *rpc.SinkRequest) (*rpc.PlanResponse, error)
	Create(ctx context.Context, req *rpc.SinkRequest) (*rpc.CreateResponse, error)
	ListJobs(ctx context.Context, req *rpc.ListJobsRequest) (*rpc.ListJobsResponse, error)
}

// NewLocal 直接调用进程内的 ExportService
// 走与服务端相同的 handler，所以错误码也一致
func NewLocal(svc *service.ExportService) Backend {
	return service.NewSinkRPC(svc)
}

// NewRemote 通过 gRPC 客户端调用服务端
func NewRemote(c rpc.SinkServiceClient) Backend {
	return &remote{c: c}
}

type remote struct {
	c rpc.SinkServiceClient
}

func (r *remote) Plan(ctx context.Context, req *rpc.SinkRequest) (*rpc.PlanResponse, error) {
	return r.c.Plan(ctx, req, grpc.WaitForReady(true))
}

func (r *remote) Create(ctx context.Context, req *rpc.SinkRequest) (*rpc.CreateResponse, error) {
	return r.c.Create(ctx, req, grpc.WaitForReady(true))
}

func (r *remote) ListJobs(ctx context.Context, req *rpc.ListJobsRequest) (*rpc.ListJobsResponse, error) {
	return r.c.ListJobs(ctx, req, grpc.WaitForReady(true))
}

// Exporter 读取存储中已有的金字塔
type Exporter struct {
	fs storage.Filesystem
}

func NewExporter(fs storage.Filesystem) *Exporter {
	return &Exporter{fs: fs}
}

// Open 加载描述文件；.dzip 会在归档内查找同名的 .dzi
func (e *Exporter) Open(ctx context.Context, p types.Path) (dzi.Image, types.Path, error) {
	fs, xmlPath := e.fs, p
	if strings.EqualFold(p.Suffix(), sink.ArchiveExtension) {
		fs = zipfs.New(e.fs, p)
		xmlPath = p.WithSuffix(sink.PlainExtension)
	} else if dzi.IsLevelPath(p) {
		// 层目录：先找 .dzi 再找 .xml
		xml, plain := dzi.XMLPathsFromLevelPath(p)
		ok, err := fs.Exists(ctx, plain)
		if err != nil {
			return dzi.Image{}, "", err
		}
		xmlPath = plain
		if !ok {
			xmlPath = xml
		}
	} else if !dzi.HasXMLSuffix(p) {
		return dzi.Image{}, "", fmt.Errorf("not a pyramid: %s", p)
	}

	img, err := dzi.Load(ctx, fs, xmlPath)
	if err != nil {
		return dzi.Image{}, "", err
	}
	return img, xmlPath, nil
}

// Inspect 打印金字塔的描述和每一层的尺寸
func (e *Exporter) Inspect(ctx context.Context, p types.Path, w io.Writer) error {
	img, xmlPath, err := e.Open(ctx, p)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Path:      %s\n", xmlPath)
	if xmlPath != p && strings.EqualFold(p.Suffix(), sink.ArchiveExtension) {
		fmt.Fprintf(w, "Archive:   %s\n", p)
	}
	PrintImage(w, img)
	return nil
}
