package client

import (
	"fmt"
	"time"

	"tilesink/pkg/rpc"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
)

// SinkClient 封装了与 tilesink 服务端的连接
type SinkClient struct {
	conn *grpc.ClientConn

	Sink rpc.SinkServiceClient
}

// NewSinkClient 创建并初始化客户端
// 不需要 context，它只负责创建对象，连接在第一次调用时建立
func NewSinkClient(addr string, extra ...grpc.DialOption) (*SinkClient, error) {
	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(
			grpc.CallContentSubtype(rpc.CodecName),
			grpc.MaxCallRecvMsgSize(16*1024*1024),
		),
		// 保持连接活跃
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                10 * time.Second,
			Timeout:             20 * time.Second,
			PermitWithoutStream: true,
		}),
	}
	opts = append(opts, extra...)

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		// 这里的 err 通常只是配置错误（如地址格式不对），网络不通不会在这里报错
		return nil, fmt.Errorf("failed to create grpc client for %s: %w", addr, err)
	}

	return &SinkClient{
		conn: conn,
		Sink: rpc.NewSinkServiceClient(conn),
	}, nil
}

// Close 关闭底层连接
func (c *SinkClient) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
