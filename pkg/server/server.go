// Package server 组装带拦截器的 gRPC 服务端
package server

import (
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"
)

// MaxMessageSize 单条消息的上限；请求只携带描述信息，不携带像素
const MaxMessageSize = 16 * 1024 * 1024

// New 创建 gRPC Server
// 拦截器顺序：Recovery 在最外层，保证 Logging 里的 panic 也能被捕获
func New(logger *slog.Logger, opts ...grpc.ServerOption) *grpc.Server {
	base := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			UnaryRecoveryInterceptor(logger),
			UnaryLoggingInterceptor(logger),
		),
		grpc.MaxRecvMsgSize(MaxMessageSize),
		grpc.MaxSendMsgSize(MaxMessageSize),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             5 * time.Second,
			PermitWithoutStream: true,
		}),
	}
	return grpc.NewServer(append(base, opts...)...)
}
