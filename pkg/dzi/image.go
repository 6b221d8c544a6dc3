// Package dzi describes Deep Zoom Image pyramids: the Image metadata element,
// its resolution levels and the on-storage layout of levels and tiles.
//
// Levels are counted from the 1x1 pixel level as level 0. Every level lives in
// its own directory under "<stem>_files/" next to the XML descriptor, and each
// tile is stored as "<column>_<row>.<format>".
package dzi

import (
	"fmt"
	"math/bits"
	"strconv"
	"strings"

	"tilesink/pkg/types"
)

// Namespace 是 DZI XML 的命名空间
const Namespace = "http://schemas.microsoft.com/deepzoom/2008"

// XMLSuffixes 是描述文件允许的扩展名
var XMLSuffixes = []string{".xml", ".dzi"}

// ImageFormat 是 tile 的编码格式
type ImageFormat string

const (
	FormatPNG  ImageFormat = "png"
	FormatJPEG ImageFormat = "jpeg"
	FormatJPG  ImageFormat = "jpg"
)

// ParseImageFormat 大小写不敏感
func ParseImageFormat(raw string) (ImageFormat, error) {
	switch f := ImageFormat(strings.ToLower(strings.TrimSpace(raw))); f {
	case FormatPNG, FormatJPEG, FormatJPG:
		return f, nil
	default:
		return "", fmt.Errorf("bad image format: %q", raw)
	}
}

// Rect 是某一层的像素尺寸
type Rect struct {
	Width  int `cbor:"width" json:"width"`
	Height int `cbor:"height" json:"height"`
}

// Image 对应 DZI 的 <Image> 元素
type Image struct {
	Format   ImageFormat `cbor:"format" json:"format"`
	Overlap  int         `cbor:"overlap" json:"overlap"`
	TileSize int         `cbor:"tile_size" json:"tile_size"`
	Width    int         `cbor:"width" json:"width"`
	Height   int         `cbor:"height" json:"height"`
}

// NewImage 校验参数并构造 Image
func NewImage(format ImageFormat, overlap, width, height, tileSize int) (Image, error) {
	if _, err := ParseImageFormat(string(format)); err != nil {
		return Image{}, err
	}
	if overlap < 0 {
		return Image{}, fmt.Errorf("dzi: overlap must not be negative, got %d", overlap)
	}
	if width <= 0 || height <= 0 {
		return Image{}, fmt.Errorf("dzi: image size must be positive, got %dx%d", width, height)
	}
	if tileSize <= 0 {
		return Image{}, fmt.Errorf("dzi: tile size must be positive, got %d", tileSize)
	}
	return Image{
		Format:   ImageFormat(strings.ToLower(string(format))),
		Overlap:  overlap,
		TileSize: tileSize,
		Width:    width,
		Height:   height,
	}, nil
}

// MaxLevelIndex = ceil(log2(max(width, height)))
func (img Image) MaxLevelIndex() int {
	longest := max(img.Width, img.Height)
	if longest <= 1 {
		return 0
	}
	return bits.Len(uint(longest - 1))
}

func (img Image) NumLevels() int {
	return img.MaxLevelIndex() + 1
}

// Levels 从最小的一层 (level 0) 到原始分辨率
// 每往下一层宽高减半，向上取整
func (img Image) Levels() []Rect {
	n := img.NumLevels()
	out := make([]Rect, n)
	w, h := img.Width, img.Height
	for i := n - 1; i >= 0; i-- {
		out[i] = Rect{Width: w, Height: h}
		w = (w + 1) / 2
		h = (h + 1) / 2
	}
	return out
}

// LevelShape 返回某一层的数组形状
func (img Image) LevelShape(numChannels, levelIndex int) (types.Shape, error) {
	levels := img.Levels()
	if levelIndex < 0 || levelIndex >= len(levels) {
		return types.Shape{}, &LevelNotFoundError{Level: levelIndex}
	}
	r := levels[levelIndex]
	return types.Shape{X: r.Width, Y: r.Height, Z: 1, C: numChannels}, nil
}

func (img Image) TileShape(numChannels int) types.Shape {
	return types.Shape{X: img.TileSize, Y: img.TileSize, Z: 1, C: numChannels}
}

// TilePath 返回 tile 在层目录下的文件路径
func (img Image) TilePath(levelPath types.Path, tile types.Interval) types.Path {
	column := tile.Start.X / img.TileSize
	row := tile.Start.Y / img.TileSize
	return levelPath.Join(fmt.Sprintf("%d_%d.%s", column, row, strings.ToLower(string(img.Format))))
}

// MakeLevelPath: <parent>/<stem>_files/<level>
func MakeLevelPath(xmlPath types.Path, levelIndex int) types.Path {
	return xmlPath.Parent().Join(xmlPath.Stem()+"_files", strconv.Itoa(levelIndex))
}

// LevelIndexFromPath 解析层目录名中的层号
func LevelIndexFromPath(levelPath types.Path) (int, error) {
	idx, err := strconv.Atoi(levelPath.Name())
	if err != nil {
		return 0, fmt.Errorf("could not get level index from path %s", levelPath)
	}
	return idx, nil
}

func IsLevelPath(p types.Path) bool {
	if _, err := LevelIndexFromPath(p); err != nil {
		return false
	}
	return strings.HasSuffix(p.Parent().Name(), "_files")
}

// XMLPathsFromLevelPath 从层目录推回两个可能的描述文件路径 (.xml, .dzi)
func XMLPathsFromLevelPath(levelPath types.Path) (types.Path, types.Path) {
	filesDir := levelPath.Parent()
	stem := strings.TrimSuffix(filesDir.Name(), "_files")
	base := filesDir.Parent()
	return base.Join(stem + ".xml"), base.Join(stem + ".dzi")
}

// HasXMLSuffix 判断路径是否是合法的描述文件名
func HasXMLSuffix(p types.Path) bool {
	suffix := strings.ToLower(p.Suffix())
	for _, s := range XMLSuffixes {
		if suffix == s {
			return true
		}
	}
	return false
}
