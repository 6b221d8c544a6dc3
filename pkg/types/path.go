package types

import (
	"path"
	"strings"
)

// Path 是存储内的 POSIX 路径 (不依赖操作系统分隔符)
type Path string

// RootPath 是根路径哨兵，不能作为叶子文件目标
const RootPath Path = "/"

func (p Path) String() string { return string(p) }

// Clean 返回规范化的路径
func (p Path) Clean() Path {
	if p == "" {
		return "."
	}
	return Path(path.Clean(string(p)))
}

// IsRoot 判断是否为根路径
func (p Path) IsRoot() bool {
	return p.Clean() == RootPath
}

// Name 返回最后一个路径分量
func (p Path) Name() string {
	c := p.Clean()
	if c == RootPath || c == "." {
		return ""
	}
	return path.Base(string(c))
}

// Suffix 返回扩展名 (包含点)
// 规则与 POSIX 纯路径一致：".bashrc" 这种以点开头且没有其他点的名字没有扩展名
func (p Path) Suffix() string {
	name := p.Name()
	i := strings.LastIndex(name, ".")
	if i <= 0 || i == len(name)-1 {
		return ""
	}
	return name[i:]
}

// Stem 返回去掉扩展名的文件名
func (p Path) Stem() string {
	name := p.Name()
	return strings.TrimSuffix(name, p.Suffix())
}

// Parent 返回父目录
func (p Path) Parent() Path {
	c := p.Clean()
	if c == RootPath || c == "." {
		return c
	}
	return Path(path.Dir(string(c)))
}

// Join 拼接子路径
func (p Path) Join(elem ...string) Path {
	parts := append([]string{string(p)}, elem...)
	return Path(path.Join(parts...))
}

// WithSuffix 替换扩展名，没有扩展名时直接追加
func (p Path) WithSuffix(suffix string) Path {
	name := p.Name()
	if name == "" {
		return p
	}
	return p.Parent().Join(p.Stem() + suffix)
}

// Rel 返回去掉开头 "/" 的相对形式，用于 zip 条目名和对象存储的 key
func (p Path) Rel() string {
	return strings.TrimPrefix(string(p.Clean()), "/")
}
