// Package catalog finds existing Deep Zoom pyramids under a local export root.
package catalog

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"tilesink/pkg/dzi"
	"tilesink/pkg/ignore"
	"tilesink/pkg/logging"
	"tilesink/pkg/storage"
	"tilesink/pkg/storage/disk"
	"tilesink/pkg/storage/zipfs"
	"tilesink/pkg/types"
)

// Entry 是找到的一个金字塔
type Entry struct {
	// Path 是描述文件或 .dzip 归档相对于根目录的路径
	Path types.Path
	// XMLPath 在归档中时是归档内的描述文件路径，否则等于 Path
	XMLPath types.Path
	Archive bool
	Image   dzi.Image
	// Err 非空表示文件看起来像金字塔，但无法解析
	Err error
}

// SupportsPath 判断路径是否可能是金字塔 (描述文件、归档或层目录)
func SupportsPath(p types.Path) bool {
	if dzi.IsLevelPath(p) {
		return true
	}
	switch strings.ToLower(p.Suffix()) {
	case ".xml", ".dzi", ".dzip":
		return true
	}
	return false
}

// Scan 遍历 adapter 的根目录，返回所有金字塔 (按路径排序)
// 层目录 (*_files) 不会深入遍历
func Scan(ctx context.Context, adapter *disk.Adapter) ([]Entry, error) {
	logger := logging.FromContext(ctx)
	root := adapter.Root()

	matcher, err := ignore.NewMatcher(root)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == "." {
			return err
		}
		rel = filepath.ToSlash(rel)

		if matcher.Matches(rel) {
			logger.Debug("ignored", "path", rel)
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if strings.HasSuffix(d.Name(), "_files") {
				return filepath.SkipDir
			}
			return nil
		}

		p := types.Path("/" + rel)
		switch strings.ToLower(p.Suffix()) {
		case ".dzip":
			found, err := loadArchive(ctx, adapter, p)
			if err != nil {
				entries = append(entries, Entry{Path: p, Archive: true, Err: err})
				return nil
			}
			entries = append(entries, found...)
		case ".xml", ".dzi":
			img, err := dzi.Load(ctx, adapter, p)
			if errors.Is(err, dzi.ErrParse) && strings.EqualFold(p.Suffix(), ".xml") {
				// 普通的 XML 文件，不是金字塔
				return nil
			}
			entries = append(entries, Entry{Path: p, XMLPath: p, Image: img, Err: err})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Path != entries[j].Path {
			return entries[i].Path < entries[j].Path
		}
		return entries[i].XMLPath < entries[j].XMLPath
	})
	return entries, nil
}

// loadArchive 打开 .dzip，返回其中所有能解析的描述文件
func loadArchive(ctx context.Context, parent storage.Filesystem, p types.Path) ([]Entry, error) {
	archive := zipfs.New(parent, p)
	files, err := archive.List(ctx)
	if err != nil {
		return nil, err
	}

	var out []Entry
	for _, f := range files {
		if !dzi.HasXMLSuffix(f) {
			continue
		}
		img, err := dzi.Load(ctx, archive, f)
		if err != nil {
			continue
		}
		out = append(out, Entry{Path: p, XMLPath: f, Archive: true, Image: img})
	}
	if len(out) == 0 {
		return nil, errors.New("archive contains no dzi descriptor")
	}
	return out, nil
}
