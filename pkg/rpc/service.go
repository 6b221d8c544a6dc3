package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	SinkService_Plan_FullMethodName     = "/tilesink.v1.SinkService/Plan"
	SinkService_Create_FullMethodName   = "/tilesink.v1.SinkService/Create"
	SinkService_ListJobs_FullMethodName = "/tilesink.v1.SinkService/ListJobs"
)

// SinkServiceServer 是服务端需要实现的接口
type SinkServiceServer interface {
	Plan(context.Context, *SinkRequest) (*PlanResponse, error)
	Create(context.Context, *SinkRequest) (*CreateResponse, error)
	ListJobs(context.Context, *ListJobsRequest) (*ListJobsResponse, error)
}

// UnimplementedSinkServiceServer 可以嵌入以保持向前兼容
type UnimplementedSinkServiceServer struct{}

func (UnimplementedSinkServiceServer) Plan(context.Context, *SinkRequest) (*PlanResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Plan not implemented")
}
func (UnimplementedSinkServiceServer) Create(context.Context, *SinkRequest) (*CreateResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Create not implemented")
}
func (UnimplementedSinkServiceServer) ListJobs(context.Context, *ListJobsRequest) (*ListJobsResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method ListJobs not implemented")
}

func RegisterSinkServiceServer(s grpc.ServiceRegistrar, srv SinkServiceServer) {
	s.RegisterService(&SinkService_ServiceDesc, srv)
}

func _SinkService_Plan_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(SinkRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SinkServiceServer).Plan(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: SinkService_Plan_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SinkServiceServer).Plan(ctx, req.(*SinkRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _SinkService_Create_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(SinkRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SinkServiceServer).Create(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: SinkService_Create_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SinkServiceServer).Create(ctx, req.(*SinkRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _SinkService_ListJobs_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ListJobsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SinkServiceServer).ListJobs(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: SinkService_ListJobs_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SinkServiceServer).ListJobs(ctx, req.(*ListJobsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// SinkService_ServiceDesc 手写的服务描述 (没有 .proto，消息走 CBOR)
var SinkService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "tilesink.v1.SinkService",
	HandlerType: (*SinkServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Plan", Handler: _SinkService_Plan_Handler},
		{MethodName: "Create", Handler: _SinkService_Create_Handler},
		{MethodName: "ListJobs", Handler: _SinkService_ListJobs_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "tilesink/v1/sink",
}

// SinkServiceClient 是客户端接口
type SinkServiceClient interface {
	Plan(ctx context.Context, in *SinkRequest, opts ...grpc.CallOption) (*PlanResponse, error)
	Create(ctx context.Context, in *SinkRequest, opts ...grpc.CallOption) (*CreateResponse, error)
	ListJobs(ctx context.Context, in *ListJobsRequest, opts ...grpc.CallOption) (*ListJobsResponse, error)
}

type sinkServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewSinkServiceClient(cc grpc.ClientConnInterface) SinkServiceClient {
	return &sinkServiceClient{cc: cc}
}

// withCodec 保证每次调用都使用 CBOR 编码
func withCodec(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
}

func (c *sinkServiceClient) Plan(ctx context.Context, in *SinkRequest, opts ...grpc.CallOption) (*PlanResponse, error) {
	out := new(PlanResponse)
	if err := c.cc.Invoke(ctx, SinkService_Plan_FullMethodName, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *sinkServiceClient) Create(ctx context.Context, in *SinkRequest, opts ...grpc.CallOption) (*CreateResponse, error) {
	out := new(CreateResponse)
	if err := c.cc.Invoke(ctx, SinkService_Create_FullMethodName, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *sinkServiceClient) ListJobs(ctx context.Context, in *ListJobsRequest, opts ...grpc.CallOption) (*ListJobsResponse, error) {
	out := new(ListJobsResponse)
	if err := c.cc.Invoke(ctx, SinkService_ListJobs_FullMethodName, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}
