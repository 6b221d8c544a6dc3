package dzi

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"strconv"

	"tilesink/pkg/storage"
	"tilesink/pkg/types"
)

// ErrParse 是所有描述文件解析错误的根
var ErrParse = errors.New("dzi parsing error")

type MissingAttributeError struct{ Name string }

func (e *MissingAttributeError) Error() string { return "missing attribute " + e.Name }
func (e *MissingAttributeError) Unwrap() error { return ErrParse }

type MissingChildError struct{ Name string }

func (e *MissingChildError) Error() string { return fmt.Sprintf("missing child '%s'", e.Name) }
func (e *MissingChildError) Unwrap() error { return ErrParse }

type BadAttributeError struct {
	Name string
	Raw  string
}

func (e *BadAttributeError) Error() string {
	return fmt.Sprintf("bad value for %s: '%s'", e.Name, e.Raw)
}
func (e *BadAttributeError) Unwrap() error { return ErrParse }

type LevelNotFoundError struct{ Level int }

func (e *LevelNotFoundError) Error() string {
	return fmt.Sprintf("dzi zoom level does not exist: %d", e.Level)
}
func (e *LevelNotFoundError) Unwrap() error { return ErrParse }

// 编码用的 XML 结构
type xmlSize struct {
	Width  int `xml:"Width,attr"`
	Height int `xml:"Height,attr"`
}

type xmlImage struct {
	XMLName  xml.Name `xml:"Image"`
	Xmlns    string   `xml:"xmlns,attr"`
	TileSize int      `xml:"TileSize,attr"`
	Overlap  int      `xml:"Overlap,attr"`
	Format   string   `xml:"Format,attr"`
	Size     xmlSize  `xml:"Size"`
}

// 解析用的结构，属性用指针区分"缺失"和"非法"
type rawSize struct {
	Width  *string `xml:"Width,attr"`
	Height *string `xml:"Height,attr"`
}

type rawImage struct {
	XMLName  xml.Name
	TileSize *string  `xml:"TileSize,attr"`
	Overlap  *string  `xml:"Overlap,attr"`
	Format   *string  `xml:"Format,attr"`
	Size     *rawSize `xml:"Size"`
}

// EncodeXML 生成 .dzi 描述文件的内容
func (img Image) EncodeXML() ([]byte, error) {
	doc := xmlImage{
		Xmlns:    Namespace,
		TileSize: img.TileSize,
		Overlap:  img.Overlap,
		Format:   string(img.Format),
		Size:     xmlSize{Width: img.Width, Height: img.Height},
	}
	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("dzi: failed to encode image element: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="utf-8"?>` + "\n")
	buf.Write(body)
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func intAttr(name string, raw *string) (int, error) {
	if raw == nil {
		return 0, &MissingAttributeError{Name: name}
	}
	v, err := strconv.Atoi(*raw)
	if err != nil {
		return 0, &BadAttributeError{Name: name, Raw: *raw}
	}
	return v, nil
}

// ParseImage 解析 <Image> 元素
func ParseImage(data []byte) (Image, error) {
	var raw rawImage
	if err := xml.Unmarshal(data, &raw); err != nil {
		return Image{}, fmt.Errorf("%w: could not parse data as XML: %v", ErrParse, err)
	}
	if raw.XMLName.Local != "Image" {
		return Image{}, fmt.Errorf("%w: unexpected root element %q", ErrParse, raw.XMLName.Local)
	}

	// 1. Format
	if raw.Format == nil || *raw.Format == "" {
		return Image{}, &MissingAttributeError{Name: "Format"}
	}
	format, err := ParseImageFormat(*raw.Format)
	if err != nil {
		return Image{}, &BadAttributeError{Name: "Format", Raw: *raw.Format}
	}

	// 2. Overlap / TileSize
	overlap, err := intAttr("Overlap", raw.Overlap)
	if err != nil {
		return Image{}, err
	}
	if overlap < 0 {
		return Image{}, &BadAttributeError{Name: "Overlap", Raw: *raw.Overlap}
	}
	tileSize, err := intAttr("TileSize", raw.TileSize)
	if err != nil {
		return Image{}, err
	}

	// 3. Size
	if raw.Size == nil {
		return Image{}, &MissingChildError{Name: "Size"}
	}
	width, err := intAttr("Width", raw.Size.Width)
	if err != nil {
		return Image{}, err
	}
	height, err := intAttr("Height", raw.Size.Height)
	if err != nil {
		return Image{}, err
	}

	img, err := NewImage(format, overlap, width, height, tileSize)
	if err != nil {
		return Image{}, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return img, nil
}

// Load 从文件系统读取并解析描述文件
func Load(ctx context.Context, fs storage.Filesystem, p types.Path) (Image, error) {
	data, err := fs.ReadFile(ctx, p)
	if err != nil {
		return Image{}, err
	}
	img, err := ParseImage(data)
	if err != nil {
		return Image{}, fmt.Errorf("%s: %w", fs.URL(p), err)
	}
	return img, nil
}
