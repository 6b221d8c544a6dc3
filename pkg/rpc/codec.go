// Package rpc declares the SinkService gRPC surface. Messages are plain Go
// structs carried with a CBOR codec instead of protobuf.
package rpc

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"google.golang.org/grpc/encoding"
)

// CodecName 是 gRPC content-subtype: application/grpc+cbor
const CodecName = "cbor"

var encMode, _ = cbor.EncOptions{
	Sort:        cbor.SortCanonical,
	IndefLength: cbor.IndefLengthForbidden,
	TimeTag:     cbor.EncTagNone,
}.EncMode()

var decMode, _ = cbor.DecOptions{
	// 限制容器大小和嵌套深度，防止恶意请求耗尽内存
	MaxArrayElements: 100000,
	MaxMapPairs:      10000,
	MaxNestedLevels:  32,
	IndefLength:      cbor.IndefLengthForbidden,
	DupMapKey:        cbor.DupMapKeyEnforcedAPF,
}.DecMode()

// Codec 实现 encoding.Codec
type Codec struct{}

func (Codec) Name() string { return CodecName }

func (Codec) Marshal(v any) ([]byte, error) {
	data, err := encMode.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("cbor codec: marshal %T: %w", v, err)
	}
	return data, nil
}

func (Codec) Unmarshal(data []byte, v any) error {
	if err := decMode.Unmarshal(data, v); err != nil {
		return fmt.Errorf("cbor codec: unmarshal %T: %w", v, err)
	}
	return nil
}

func init() {
	encoding.RegisterCodec(Codec{})
}
