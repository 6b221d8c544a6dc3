// pkg/app/app.go
package app

import (
	"context"
	"fmt"
	"time"

	"tilesink/pkg/dzi"
	"tilesink/pkg/meta"
	"tilesink/pkg/sink"
	"tilesink/pkg/storage"
	"tilesink/pkg/storage/cache"
	"tilesink/pkg/storage/disk"
	"tilesink/pkg/storage/memory"
	"tilesink/pkg/storage/s3"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"
)

// App 是整个应用程序的依赖容器 (Dependency Container)
type App struct {
	// Storage 是导出目标所在的文件系统
	Storage storage.Filesystem
	// Disk 仅在本地存储时非空，用于扫描已有的金字塔
	Disk *disk.Adapter

	// Format 是按配置初始化的导出格式，每次请求会基于它的选项快照构建
	Format sink.Format

	DB         *meta.DB
	Repository *meta.Repository

	Logger *log.Logger

	closers []func() error
}

// NewApp 按 Viper 配置组装各个组件，但不知道具体的 CLI 命令
func NewApp(ctx context.Context, logger *log.Logger) (*App, error) {
	if logger == nil {
		logger = log.Default()
	}
	a := &App{Logger: logger}

	// 1. 存储层
	store, err := initStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to init storage: %w", err)
	}
	if d, ok := store.(*disk.Adapter); ok {
		a.Disk = d
	}

	// 2. 可选的 Redis 存在性缓存
	if url := viper.GetString("cache.redis_url"); url != "" {
		cached, err := cache.NewCachedFS(store, cache.Config{
			RedisURL: url,
			TTL:      viper.GetDuration("cache.ttl"),
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to init cache: %w", err)
		}
		a.closers = append(a.closers, cached.Close)
		store = cached
	}
	a.Storage = store

	// 3. 导出格式
	format, err := initFormat()
	if err != nil {
		return nil, err
	}
	a.Format = format

	// 4. 任务记录
	db, err := meta.NewDB(ctx, dbConfig())
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to init job database: %w", err)
	}
	a.DB = db
	a.Repository = meta.NewRepository(db)
	a.closers = append(a.closers, db.Close)

	logger.Debug("app initialized",
		"storage", store.URL("/"),
		"format", format.Name(),
		"database", viper.GetString("database.driver"),
	)
	return a, nil
}

// initStore 根据 storage.type 选择存储后端
func initStore(ctx context.Context) (storage.Filesystem, error) {
	switch t := viper.GetString("storage.type"); t {
	case "", "disk":
		path := viper.GetString("storage.path")
		if path == "" {
			return nil, fmt.Errorf("storage path not set")
		}
		d, err := disk.NewAdapter(path)
		if err != nil {
			return nil, err
		}
		return d, nil
	case "s3":
		a, err := s3.NewAdapter(ctx, s3.Config{
			Endpoint:        viper.GetString("s3.endpoint"),
			Region:          viper.GetString("s3.region"),
			Bucket:          viper.GetString("s3.bucket"),
			Prefix:          viper.GetString("s3.prefix"),
			AccessKeyID:     viper.GetString("s3.access_key"),
			SecretAccessKey: viper.GetString("s3.secret_key"),
		})
		if err != nil {
			return nil, err
		}
		return a, nil
	case "memory":
		return memory.NewAdapter(), nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", t)
	}
}

// initFormat 从注册表创建格式，并把 dzi.* 配置写入选项
func initFormat() (sink.Format, error) {
	format, err := sink.NewFormat(viper.GetString("export.format"))
	if err != nil {
		return nil, err
	}
	if d, ok := format.(*sink.DziFormat); ok {
		if err := d.SetImageFormat(dzi.ImageFormat(viper.GetString("dzi.image_format"))); err != nil {
			return nil, fmt.Errorf("invalid dzi.image_format: %w", err)
		}
		d.SetOverlap(viper.GetInt("dzi.overlap"))
		d.SetZip(viper.GetBool("dzi.zip"))
	}
	return format, nil
}

func dbConfig() meta.Config {
	return meta.Config{
		Driver:   viper.GetString("database.driver"),
		Path:     viper.GetString("database.path"),
		Host:     viper.GetString("database.host"),
		Port:     viper.GetInt("database.port"),
		User:     viper.GetString("database.user"),
		Password: viper.GetString("database.password"),
		DBName:   viper.GetString("database.dbname"),
		SSLMode:  viper.GetString("database.sslmode"),
		Verbose:  viper.GetBool("verbose"),
	}
}

// Close 按初始化的逆序释放资源
func (a *App) Close() error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	return firstErr
}

// Timeout 是单次操作的默认超时
const Timeout = 5 * time.Minute
