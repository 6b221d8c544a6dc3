package commands

import (
	"context"
	"fmt"

	"tilesink/pkg/app"
	"tilesink/pkg/exporter"
	"tilesink/pkg/logging"
	"tilesink/pkg/rpc"
	"tilesink/pkg/types"

	"github.com/spf13/cobra"
)

// exportFlags 是 plan / create 共用的参数
type exportFlags struct {
	width    int
	height   int
	depth    int
	channels int

	tileWidth    int
	tileHeight   int
	tileDepth    int
	tileChannels int

	dtype       string
	imageFormat string
	overlap     int
	noOverlap   bool
	zip         bool
}

func (f *exportFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.IntVar(&f.width, "width", 0, "array width (x)")
	fl.IntVar(&f.height, "height", 0, "array height (y)")
	fl.IntVar(&f.depth, "depth", 1, "array depth (z)")
	fl.IntVar(&f.channels, "channels", 3, "number of channels (c)")
	fl.IntVar(&f.tileWidth, "tile-width", 256, "tile width")
	fl.IntVar(&f.tileHeight, "tile-height", 256, "tile height")
	fl.IntVar(&f.tileDepth, "tile-depth", 1, "tile depth")
	fl.IntVar(&f.tileChannels, "tile-channels", 3, "channels per tile")
	fl.StringVar(&f.dtype, "dtype", "uint8", "element data type")
	fl.StringVar(&f.imageFormat, "image-format", "", "tile image format: png, jpeg or jpg (default from config)")
	fl.IntVar(&f.overlap, "overlap", 0, "tile overlap (default from config)")
	fl.BoolVar(&f.noOverlap, "no-overlap", false, "leave overlap unset")
	fl.BoolVar(&f.zip, "zip", false, "write a single .dzip archive (default from config)")
	_ = cmd.MarkFlagRequired("width")
	_ = cmd.MarkFlagRequired("height")
}

// request 把参数组装成请求；只有用户显式给出的选项才会覆盖配置
func (f *exportFlags) request(cmd *cobra.Command, arg string) (*rpc.SinkRequest, error) {
	dtype, err := types.ParseDType(f.dtype)
	if err != nil {
		return nil, err
	}
	req := &rpc.SinkRequest{
		Interval:    types.Shape{X: f.width, Y: f.height, Z: f.depth, C: f.channels}.ToInterval(),
		TileShape:   types.Shape{X: f.tileWidth, Y: f.tileHeight, Z: f.tileDepth, C: f.tileChannels},
		DType:       dtype,
		Path:        types.RootPath.Join(arg),
		ImageFormat: f.imageFormat,
	}
	if cmd.Flags().Changed("overlap") {
		overlap := f.overlap
		req.Overlap = &overlap
	}
	req.UnsetOverlap = f.noOverlap
	if cmd.Flags().Changed("zip") {
		zip := f.zip
		req.Zip = &zip
	}
	return req, nil
}

// resolvePath 没有后缀时，用格式给出的默认扩展名补全
func resolvePath(ctx context.Context, b exporter.Backend, req *rpc.SinkRequest) error {
	if req.Path.Suffix() != "" {
		return nil
	}
	resp, err := b.Plan(ctx, req)
	if err != nil {
		return err
	}
	req.Path = types.Path(string(req.Path) + resp.DefaultExtension)
	return nil
}

// withTimeout 给命令加上默认超时；直接调用 RunE 时 cmd 可能没有 context
func withTimeout(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, app.Timeout)
}

// runExport 是 plan / create 的公共流程
func runExport(cmd *cobra.Command, f *exportFlags, arg string, create bool) error {
	req, err := f.request(cmd, arg)
	if err != nil {
		return err
	}
	backend, closeFn, err := newBackend()
	if err != nil {
		return err
	}
	defer closeFn()

	ctx, cancel := withTimeout(cmd)
	defer cancel()

	if err := resolvePath(ctx, backend, req); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !create {
		resp, err := backend.Plan(ctx, req)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Target:    %s\n", req.Path)
		exporter.PrintOutcome(out, resp.Outcome)
		if resp.Outcome.Kind != rpc.KindBuilt {
			return fmt.Errorf("sink for %s cannot be built", req.Path)
		}
		return nil
	}

	progress := logging.NewProgress(logging.FromContext(ctx))
	resp, err := backend.Create(ctx, req)
	if err != nil {
		return err
	}
	exporter.PrintOutcome(out, resp.Outcome)
	if resp.Reused {
		fmt.Fprintf(out, "\n♻️  Already exported: %d levels (job %s)\n", resp.Levels, resp.JobID)
		return nil
	}
	progress.Done("pyramid created")
	fmt.Fprintf(out, "\n🎉 Created %d level directories (job %s)\n", resp.Levels, resp.JobID)
	return nil
}
