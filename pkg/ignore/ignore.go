package ignore

import (
	"os"
	"path/filepath"

	gitignore "github.com/sabhiram/go-gitignore"
)

// FileName 是用户自定义忽略规则的文件名
const FileName = ".tilesinkignore"

// Matcher 判断扫描导出目录时哪些路径应该跳过
type Matcher struct {
	ignorer *gitignore.GitIgnore
}

// NewMatcher 初始化忽略匹配器
// rootPath: 导出根目录（用于查找 .tilesinkignore 文件）
func NewMatcher(rootPath string) (*Matcher, error) {
	// 1. 默认规则，总是生效
	defaultRules := []string{
		// --- 元数据目录 ---
		".tilesink", // 任务数据库和本地配置
		".git",

		// --- 安全与配置 ---
		"config.yaml", // 可能包含 S3 Secret Key
		".env",

		// --- 写入中途的临时文件 ---
		"*.tmp",

		// --- 常见垃圾文件 ---
		".DS_Store", // macOS
		"Thumbs.db", // Windows
	}

	var ignorer *gitignore.GitIgnore
	var err error

	// 2. 用户的 .tilesinkignore 和默认规则合并编译
	ignoreFilePath := filepath.Join(rootPath, FileName)
	if _, errStat := os.Stat(ignoreFilePath); errStat == nil {
		ignorer, err = gitignore.CompileIgnoreFileAndLines(ignoreFilePath, defaultRules...)
	} else {
		ignorer = gitignore.CompileIgnoreLines(defaultRules...)
	}
	if err != nil {
		return nil, err
	}

	return &Matcher{ignorer: ignorer}, nil
}

// Matches 检查相对于根目录的路径 (例如 "slides/a.dzi") 是否应该忽略
func (m *Matcher) Matches(path string) bool {
	if m.ignorer == nil {
		return false
	}
	return m.ignorer.MatchesPath(path)
}
