package sink

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"tilesink/pkg/dzi"
	"tilesink/pkg/storage"
	"tilesink/pkg/types"

	"golang.org/x/sync/errgroup"
)

// DziLevelSink 是 DZI 金字塔中某一层的写入目标
type DziLevelSink struct {
	Filesystem  storage.Filesystem
	XMLPath     types.Path
	Image       dzi.Image
	NumChannels int
	LevelIndex  int
}

// NewDziLevelSink 校验层号和通道数后创建 sink
func NewDziLevelSink(fs storage.Filesystem, xmlPath types.Path, img dzi.Image, numChannels, levelIndex int) (*DziLevelSink, error) {
	s := &DziLevelSink{
		Filesystem:  fs,
		XMLPath:     xmlPath,
		Image:       img,
		NumChannels: numChannels,
		LevelIndex:  levelIndex,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate 检查手工构造的 sink 是否描述了一个真实存在的层
func (s *DziLevelSink) Validate() error {
	if s.NumChannels != 1 && s.NumChannels != 3 {
		return UnsupportedChannelCount{Count: s.NumChannels}
	}
	_, err := s.LevelShape()
	return err
}

func (s *DziLevelSink) Storage() storage.Filesystem { return s.Filesystem }

// Path 返回层目录: <parent>/<stem>_files/<level>
func (s *DziLevelSink) Path() types.Path {
	return dzi.MakeLevelPath(s.XMLPath, s.LevelIndex)
}

// LevelShape 返回本层的尺寸，层号越界时返回 LevelNotFoundError
func (s *DziLevelSink) LevelShape() (types.Shape, error) {
	return s.Image.LevelShape(s.NumChannels, s.LevelIndex)
}

// Shape 在层号越界时返回零值，需要区分时用 LevelShape 或 Validate
func (s *DziLevelSink) Shape() types.Shape {
	shape, err := s.LevelShape()
	if err != nil {
		return types.Shape{}
	}
	return shape
}

func (s *DziLevelSink) TileShape() types.Shape {
	return s.Image.TileShape(s.NumChannels)
}

func (s *DziLevelSink) DType() types.DType { return types.Uint8 }

// URL 返回层目录的可读地址
func (s *DziLevelSink) URL() string {
	return s.Filesystem.URL(s.Path())
}

// AtLevel 返回同一金字塔中另一层的 sink
func (s *DziLevelSink) AtLevel(levelIndex int) (*DziLevelSink, error) {
	if levelIndex < 0 || levelIndex >= s.Image.NumLevels() {
		return nil, &dzi.LevelNotFoundError{Level: levelIndex}
	}
	out := *s
	out.LevelIndex = levelIndex
	return &out, nil
}

// CreatePyramid 写入 XML 描述文件并创建所有层目录
// 返回的切片按层号排列，下标即层号
func CreatePyramid(ctx context.Context, s *DziLevelSink) ([]*DziLevelSink, error) {
	if !dzi.HasXMLSuffix(s.XMLPath) {
		return nil, fmt.Errorf("bad dzi path %s: must end in .dzi or .xml", s.XMLPath)
	}

	// 1. 描述文件
	doc, err := s.Image.EncodeXML()
	if err != nil {
		return nil, err
	}
	if err := s.Filesystem.CreateFile(ctx, s.XMLPath, doc); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", s.Filesystem.URL(s.XMLPath), err)
	}

	// 2. 并发创建层目录
	levels := make([]*DziLevelSink, s.Image.NumLevels())
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i := range levels {
		level, err := s.AtLevel(i)
		if err != nil {
			return nil, err
		}
		levels[i] = level
		g.Go(func() error {
			if err := level.Filesystem.CreateDirectory(gctx, level.Path()); err != nil {
				return fmt.Errorf("failed to create level %d: %w", level.LevelIndex, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return levels, nil
}

// Commit 对于需要落盘的存储 (如 zip 归档) 执行最终写入
// 普通文件系统直接返回
func Commit(ctx context.Context, s Sink) error {
	if c, ok := s.Storage().(interface{ Close(context.Context) error }); ok {
		return c.Close(ctx)
	}
	return nil
}

// Tile 是一块按 y/x/c 顺序排列的 uint8 像素数据
type Tile struct {
	Interval types.Interval
	Data     []byte
}

// LevelWriter 把 tile 编码成图片写入层目录
type LevelWriter struct {
	sink *DziLevelSink
}

func NewLevelWriter(s *DziLevelSink) *LevelWriter {
	return &LevelWriter{sink: s}
}

func (w *LevelWriter) Sink() *DziLevelSink { return w.sink }

func (w *LevelWriter) Write(ctx context.Context, tile Tile) error {
	s := w.sink
	if err := s.Validate(); err != nil {
		return fmt.Errorf("bad sink %s: %w", s.XMLPath, err)
	}
	full := s.Shape().ToInterval()
	if !tile.Interval.IsTile(s.TileShape(), full) {
		return fmt.Errorf("bad tile: %s", tile.Interval)
	}
	shape := tile.Interval.Shape()
	if shape.C != s.NumChannels {
		return fmt.Errorf("bad tile: expected %d channels, got %d", s.NumChannels, shape.C)
	}
	if want := shape.X * shape.Y * shape.C; len(tile.Data) != want {
		return fmt.Errorf("bad tile: expected %d bytes, got %d", want, len(tile.Data))
	}

	encoded, err := encodeTile(s.Image.Format, shape, tile.Data)
	if err != nil {
		return err
	}
	path := s.Image.TilePath(s.Path(), tile.Interval)
	if err := s.Filesystem.CreateFile(ctx, path, encoded); err != nil {
		return fmt.Errorf("failed to write tile %s: %w", s.Filesystem.URL(path), err)
	}
	return nil
}

func encodeTile(format dzi.ImageFormat, shape types.Shape, data []byte) ([]byte, error) {
	rect := image.Rect(0, 0, shape.X, shape.Y)
	var img image.Image
	switch shape.C {
	case 1:
		gray := image.NewGray(rect)
		copy(gray.Pix, data)
		img = gray
	case 3:
		rgb := image.NewNRGBA(rect)
		for i := 0; i < shape.X*shape.Y; i++ {
			rgb.Pix[i*4+0] = data[i*3+0]
			rgb.Pix[i*4+1] = data[i*3+1]
			rgb.Pix[i*4+2] = data[i*3+2]
			rgb.Pix[i*4+3] = 0xff
		}
		img = rgb
	default:
		return nil, UnsupportedChannelCount{Count: shape.C}
	}

	var buf bytes.Buffer
	switch format {
	case dzi.FormatPNG:
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("failed to encode png: %w", err)
		}
	case dzi.FormatJPEG, dzi.FormatJPG:
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpeg.DefaultQuality}); err != nil {
			return nil, fmt.Errorf("failed to encode jpeg: %w", err)
		}
	default:
		return nil, fmt.Errorf("bad image format: %q", format)
	}
	return buf.Bytes(), nil
}
