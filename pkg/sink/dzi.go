package sink

import (
	"strings"
	"sync"

	"tilesink/pkg/dzi"
	"tilesink/pkg/storage"
	"tilesink/pkg/storage/zipfs"
	"tilesink/pkg/types"
)

const (
	PlainExtension   = ".dzi"
	ArchiveExtension = ".dzip"
)

// DziOptions 是 DZI 格式的用户可调选项
type DziOptions struct {
	ImageFormat dzi.ImageFormat `json:"image_format"`
	// Overlap 为 nil 表示用户还没有填写
	// 目前构建时总是使用 0，这里只作为"是否就绪"的判断
	Overlap *int `json:"overlap"`
	Zip     bool `json:"zip"`
}

func DefaultDziOptions() DziOptions {
	zero := 0
	return DziOptions{ImageFormat: dzi.FormatPNG, Overlap: &zero}
}

func (o DziOptions) clone() DziOptions {
	if o.Overlap != nil {
		v := *o.Overlap
		o.Overlap = &v
	}
	return o
}

// DziFormat 实现 Deep Zoom Image 导出
type DziFormat struct {
	mu   sync.Mutex
	opts DziOptions
}

func NewDziFormat() *DziFormat {
	return &DziFormat{opts: DefaultDziOptions()}
}

// NewDziFormatWithOptions 用给定选项创建 (会复制一份)
func NewDziFormatWithOptions(opts DziOptions) *DziFormat {
	return &DziFormat{opts: opts.clone()}
}

func (f *DziFormat) Name() string { return "dzi" }

// Options 返回当前选项的快照
func (f *DziFormat) Options() DziOptions {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opts.clone()
}

func (f *DziFormat) SetImageFormat(format dzi.ImageFormat) error {
	parsed, err := dzi.ParseImageFormat(string(format))
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opts.ImageFormat = parsed
	return nil
}

func (f *DziFormat) SetOverlap(overlap int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opts.Overlap = &overlap
}

// UnsetOverlap 清空 overlap，之后的构建会返回 Incomplete
func (f *DziFormat) UnsetOverlap() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opts.Overlap = nil
}

func (f *DziFormat) SetZip(zip bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opts.Zip = zip
}

func (f *DziFormat) DefaultExtension() string {
	if f.Options().Zip {
		return ArchiveExtension
	}
	return PlainExtension
}

// BuildSink 按固定顺序校验，遇到第一个失败立即返回
// 顺序决定了报告哪个错误，不能随意调整
func (f *DziFormat) BuildSink(req Request) (Outcome, error) {
	opts := f.Options()

	// 1. overlap 未填写
	if opts.Overlap == nil {
		return Incomplete{Reason: "overlap is not set"}, nil
	}

	// 2. 只支持 uint8
	if req.DType != types.Uint8 {
		return Failed{Err: UnsupportedDataType{DType: req.DType}}, nil
	}

	// 3. 只支持二维
	shape := req.Interval.Shape()
	if shape.Z > 1 {
		return Failed{Err: UnsupportedDimensions{Depth: shape.Z}}, nil
	}
	if req.TileShape.Z > 1 {
		return Failed{Err: UnsupportedDimensions{Depth: req.TileShape.Z}}, nil
	}

	// 4. 路径
	path := req.Target.Path
	var (
		fs      storage.Filesystem
		xmlPath types.Path
	)
	if opts.Zip {
		if !strings.EqualFold(path.Suffix(), ArchiveExtension) || path.IsRoot() {
			return Failed{Err: UnsupportedArchivePath{Path: path}}, nil
		}
		fs = zipfs.New(req.Target.Filesystem, path)
		xmlPath = path.WithSuffix(PlainExtension)
	} else {
		if !dzi.HasXMLSuffix(path) || path.IsRoot() {
			return Failed{Err: UnsupportedPlainPath{Path: path}}, nil
		}
		fs = req.Target.Filesystem
		xmlPath = path
	}

	// 5. 通道数
	if shape.C != 1 && shape.C != 3 {
		return Failed{Err: UnsupportedChannelCount{Count: shape.C}}, nil
	}

	// 6. tile 通道数
	if req.TileShape.C != shape.C {
		return Failed{Err: UnsupportedTileChannelCount{Count: req.TileShape.C}}, nil
	}

	image, err := dzi.NewImage(
		opts.ImageFormat,
		0,
		shape.X,
		shape.Y,
		max(req.TileShape.X, req.TileShape.Y),
	)
	if err != nil {
		return nil, err
	}

	level, err := NewDziLevelSink(fs, xmlPath, image, shape.C, image.MaxLevelIndex())
	if err != nil {
		return nil, err
	}
	return Built{Sink: level}, nil
}
