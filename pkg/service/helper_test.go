package service

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"tilesink/pkg/app"
	"tilesink/pkg/logging"
	"tilesink/pkg/meta"
	"tilesink/pkg/sink"
	"tilesink/pkg/storage/memory"
	"tilesink/pkg/types"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestApp 是所有 Service 测试共享的基础设施初始化逻辑
// 存储使用内存文件系统，任务库使用内存 SQLite
func setupTestApp(t *testing.T) (*app.App, *memory.Adapter) {
	t.Helper()
	mem := memory.NewAdapter()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	metaDB := meta.NewWithConn(db)
	require.NoError(t, metaDB.AutoMigrate(&meta.ExportJob{}))
	t.Cleanup(func() { _ = metaDB.Close() })

	return &app.App{
		Storage:    mem,
		Format:     sink.NewDziFormat(),
		DB:         metaDB,
		Repository: meta.NewRepository(metaDB),
		Logger:     logging.New(io.Discard, log.DebugLevel),
	}, mem
}

// rgbRequest 返回一个合法的 3 通道 uint8 请求
func rgbRequest(path types.Path) ExportRequest {
	return ExportRequest{
		Interval:  types.Shape{X: 1000, Y: 500, Z: 1, C: 3}.ToInterval(),
		TileShape: types.Shape{X: 256, Y: 256, Z: 1, C: 3},
		DType:     types.Uint8,
		Path:      path,
	}
}

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }
