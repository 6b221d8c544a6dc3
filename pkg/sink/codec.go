package sink

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"tilesink/pkg/dzi"
	"tilesink/pkg/storage/zipfs"
	"tilesink/pkg/types"

	"github.com/fxamacker/cbor/v2"
)

// 规范化 CBOR 编码选项
var encOptions = cbor.EncOptions{
	// 1. Map Key 排序，相同的描述得到相同的字节
	Sort: cbor.SortCanonical,
	// 2. 禁止不定长编码
	IndefLength: cbor.IndefLengthForbidden,
	// 3. 禁止自动生成时间 Tag
	TimeTag: cbor.EncTagNone,
}

var em, _ = encOptions.EncMode()

var decOptions = cbor.DecOptions{
	// 限制容器大小和嵌套深度，防止恶意输入耗尽内存
	MaxArrayElements: 10000,
	MaxMapPairs:      10000,
	MaxNestedLevels:  32,

	IndefLength: cbor.IndefLengthForbidden,
	DupMapKey:   cbor.DupMapKeyEnforcedAPF,
}

var dm, _ = decOptions.DecMode()

// Descriptor 是 sink 的可序列化描述，用于记录导出任务和 RPC 传输
type Descriptor struct {
	Format      string      `cbor:"format" json:"format"`
	StorageURL  string      `cbor:"storage_url" json:"storage_url"`
	Archive     types.Path  `cbor:"archive,omitempty" json:"archive,omitempty"`
	XMLPath     types.Path  `cbor:"xml_path" json:"xml_path"`
	Image       dzi.Image   `cbor:"image" json:"image"`
	NumChannels int         `cbor:"num_channels" json:"num_channels"`
	LevelIndex  int         `cbor:"level_index" json:"level_index"`
	LevelPath   types.Path  `cbor:"level_path" json:"level_path"`
	Shape       types.Shape `cbor:"shape" json:"shape"`
	TileShape   types.Shape `cbor:"tile_shape" json:"tile_shape"`
}

// Describe 生成 sink 的描述
func Describe(s *DziLevelSink) Descriptor {
	d := Descriptor{
		Format:      "dzi",
		StorageURL:  s.Filesystem.URL(types.RootPath),
		XMLPath:     s.XMLPath,
		Image:       s.Image,
		NumChannels: s.NumChannels,
		LevelIndex:  s.LevelIndex,
		LevelPath:   s.Path(),
		Shape:       s.Shape(),
		TileShape:   s.TileShape(),
	}
	if z, ok := s.Filesystem.(*zipfs.FS); ok {
		d.StorageURL = z.Parent().URL(types.RootPath)
		d.Archive = z.ZipPath()
	}
	return d
}

func EncodeDescriptor(d Descriptor) ([]byte, error) {
	data, err := em.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal descriptor: %w", err)
	}
	return data, nil
}

func DecodeDescriptor(data []byte) (Descriptor, error) {
	var d Descriptor
	if err := dm.Unmarshal(data, &d); err != nil {
		return Descriptor{}, fmt.Errorf("failed to unmarshal descriptor: %w", err)
	}
	return d, nil
}

// Fingerprint 是规范化编码的 SHA-256，相同的导出目标得到相同的指纹
func Fingerprint(d Descriptor) (string, []byte, error) {
	data, err := EncodeDescriptor(d)
	if err != nil {
		return "", nil, err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), data, nil
}
