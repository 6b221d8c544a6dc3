// pkg/types/common.go
package types

import (
	"fmt"
	"strings"
)

// DType 代表像素数组的元素类型
// 这是一个封闭的枚举集合，不接受任意字符串
type DType string

const (
	Uint8   DType = "uint8"
	Uint16  DType = "uint16"
	Uint32  DType = "uint32"
	Uint64  DType = "uint64"
	Int8    DType = "int8"
	Int16   DType = "int16"
	Int32   DType = "int32"
	Int64   DType = "int64"
	Float32 DType = "float32"
	Float64 DType = "float64"
)

var allDTypes = []DType{
	Uint8, Uint16, Uint32, Uint64,
	Int8, Int16, Int32, Int64,
	Float32, Float64,
}

// AllDTypes 返回所有支持的元素类型 (副本，调用者可以随意修改)
func AllDTypes() []DType {
	out := make([]DType, len(allDTypes))
	copy(out, allDTypes)
	return out
}

func (d DType) String() string { return string(d) }

// IsValid 检查是否属于枚举集合
func (d DType) IsValid() bool {
	for _, known := range allDTypes {
		if d == known {
			return true
		}
	}
	return false
}

// ParseDType 从用户输入解析 (大小写不敏感)
func ParseDType(raw string) (DType, error) {
	d := DType(strings.ToLower(strings.TrimSpace(raw)))
	if !d.IsValid() {
		return "", fmt.Errorf("unknown dtype %q", raw)
	}
	return d, nil
}
