package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"

	"tilesink/pkg/storage"
	"tilesink/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Adapter 实现了 storage.Filesystem 接口
// 把一个桶 (以及桶内的前缀) 当作文件系统的根
type Adapter struct {
	client   *s3.Client
	bucket   string
	prefix   string
	endpoint string
}

// Config 用于初始化 Adapter
type Config struct {
	Endpoint        string
	Region          string
	Bucket          string
	Prefix          string // 桶内的根前缀，例如 "exports/"
	AccessKeyID     string
	SecretAccessKey string
}

// NewAdapter 初始化 S3 客户端 (适配 AWS SDK v2 最新规范)
func NewAdapter(ctx context.Context, cfg Config) (*Adapter, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	// 1. 加载基础配置 (仅包含 Region 和 Credentials)
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.SecretAccessKey, "",
		)))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	// 2. 创建 S3 客户端时，注入特定于 S3 的配置
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// 如果指定了 Endpoint (比如 MinIO 的 localhost:9000)，则覆盖默认值
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		// MinIO 必须强制使用 Path Style
		o.UsePathStyle = true
	})

	return &Adapter{
		client:   client,
		bucket:   cfg.Bucket,
		prefix:   strings.Trim(cfg.Prefix, "/"),
		endpoint: cfg.Endpoint,
	}, nil
}

// EnsureBucket 确保桶存在，不存在则尝试创建
// 生产环境建议手动管理 Bucket，这里主要服务于本地 MinIO
func (s *Adapter) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		return nil
	}
	if _, err := s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)}); err != nil {
		return fmt.Errorf("failed to ensure bucket %s exists: %w", s.bucket, err)
	}
	return nil
}

// transformKey 将路径转换为 S3 Key
// Logic: "/foo_files/0/0_0.png" -> "<prefix>/foo_files/0/0_0.png"
func (s *Adapter) transformKey(p types.Path) string {
	rel := p.Rel()
	if rel == "." {
		rel = ""
	}
	if s.prefix == "" {
		return rel
	}
	return path.Join(s.prefix, rel)
}

// CreateFile 上传对象
func (s *Adapter) CreateFile(ctx context.Context, p types.Path, contents []byte) error {
	key := s.transformKey(p)
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(contents),
	}
	// 标记 Content-Type 有助于在浏览器中直接预览 tile
	if ct := mime.TypeByExtension(p.Suffix()); ct != "" {
		input.ContentType = aws.String(ct)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("s3 put failed: %w", err)
	}
	return nil
}

// CreateDirectory 对象存储没有目录的概念，直接成功
func (s *Adapter) CreateDirectory(ctx context.Context, p types.Path) error {
	return nil
}

// ReadFile 下载对象
func (s *Adapter) ReadFile(ctx context.Context, p types.Path) ([]byte, error) {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.transformKey(p)),
	})
	if err != nil {
		// 将 AWS 的 NoSuchKey 错误映射为我们自己的 ErrNotFound
		var noKey *s3types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("s3 get failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 read body failed: %w", err)
	}
	return data, nil
}

// Exists 检查对象是否存在
// 没有同名对象时，再看看是否存在以它为前缀的对象 (即"目录")
func (s *Adapter) Exists(ctx context.Context, p types.Path) (bool, error) {
	key := s.transformKey(p)

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	if !isNotFound(err) {
		return false, err
	}

	dirPrefix := key
	if dirPrefix != "" {
		dirPrefix += "/"
	}
	resp, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(dirPrefix),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return false, fmt.Errorf("s3 list failed: %w", err)
	}
	return aws.ToInt32(resp.KeyCount) > 0, nil
}

func (s *Adapter) URL(p types.Path) string {
	return fmt.Sprintf("s3://%s/%s", s.bucket, s.transformKey(p))
}

func isNotFound(err error) bool {
	var notFound *s3types.NotFound
	var noKey *s3types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noKey) {
		return true
	}
	// 兼容性：某些 S3 实现可能返回 generic 404 error string
	return strings.Contains(err.Error(), "404")
}
