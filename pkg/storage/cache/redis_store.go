package cache

import (
	"context"
	"fmt"
	"time"

	"tilesink/pkg/storage"
	"tilesink/pkg/types"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
)

// CachedFS 是一个装饰器，它为底层的 storage.Filesystem 添加 Redis 存在性缓存
// 只缓存"存在"这一事实，不缓存文件内容 (tile 数量巨大，Redis 内存宝贵)
type CachedFS struct {
	backend storage.Filesystem // 被装饰的底层存储 (如 S3)
	client  *redis.Client
	ttl     time.Duration
	logger  *log.Logger
}

type Config struct {
	RedisURL string        // 标准连接字符串: redis://<user>:<password>@<host>:<port>/<db>
	TTL      time.Duration // 过期时间
}

// NewCachedFS 解析 URL 并做 fail-fast 连接检查
func NewCachedFS(backend storage.Filesystem, cfg Config, logger *log.Logger) (*CachedFS, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	if logger == nil {
		logger = log.Default()
	}
	return &CachedFS{
		backend: backend,
		client:  client,
		ttl:     cfg.TTL,
		logger:  logger,
	}, nil
}

// cacheKey 生成 Redis Key，用后端 URL 做命名空间，防止不同存储冲突
func (s *CachedFS) cacheKey(p types.Path) string {
	return "tilesink:exists:" + s.backend.URL(p)
}

// Exists 优先查 Redis
func (s *CachedFS) Exists(ctx context.Context, p types.Path) (bool, error) {
	key := s.cacheKey(p)

	val, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		// 缓存故障降级：Redis 挂了就直接查后端
		s.logger.Warn("redis unavailable, falling back to backend", "err", err)
	} else if val > 0 {
		return true, nil
	}

	found, err := s.backend.Exists(ctx, p)
	if err != nil {
		return false, err
	}

	// 缓存回填 (只回填"存在"，"不存在"随时可能变化)
	if found {
		go func() {
			fillCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			s.client.Set(fillCtx, key, "1", s.ttl)
		}()
	}
	return found, nil
}

// CreateFile 写穿到后端，成功后记入缓存
func (s *CachedFS) CreateFile(ctx context.Context, p types.Path, contents []byte) error {
	if err := s.backend.CreateFile(ctx, p, contents); err != nil {
		return err
	}
	// 这里的 Set 错误可以忽略，不影响主流程
	s.client.Set(ctx, s.cacheKey(p), "1", s.ttl)
	return nil
}

func (s *CachedFS) CreateDirectory(ctx context.Context, p types.Path) error {
	if err := s.backend.CreateDirectory(ctx, p); err != nil {
		return err
	}
	s.client.Set(ctx, s.cacheKey(p), "1", s.ttl)
	return nil
}

// ReadFile 透传
func (s *CachedFS) ReadFile(ctx context.Context, p types.Path) ([]byte, error) {
	return s.backend.ReadFile(ctx, p)
}

// URL 透传
func (s *CachedFS) URL(p types.Path) string {
	return s.backend.URL(p)
}

// Close 关闭 Redis 连接
func (s *CachedFS) Close() error {
	return s.client.Close()
}
