package sink

import (
	"fmt"
	"sort"
)

// Format 是一种导出格式的能力
type Format interface {
	Name() string
	// DefaultExtension 只是给保存对话框的提示
	DefaultExtension() string
	// BuildSink 必须是纯函数：不做 I/O，相同输入得到相同结果
	BuildSink(req Request) (Outcome, error)
}

// Formats 是格式名到构造函数的注册表
var Formats = map[string]func() Format{
	"dzi": func() Format { return NewDziFormat() },
}

// NewFormat 按名字创建格式 (带默认选项)
func NewFormat(name string) (Format, error) {
	factory, ok := Formats[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
	return factory(), nil
}

// FormatNames 返回所有已注册的格式名 (排序后)
func FormatNames() []string {
	names := make([]string, 0, len(Formats))
	for name := range Formats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
