package entryrpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	// ServiceName is the fully qualified gRPC service name.
	ServiceName = "benchboard.v1.EntryService"

	// AppendMethod is the full method name used in interceptors.
	AppendMethod = "/" + ServiceName + "/Append"
)

// EntryServiceServer is implemented by the server's receiver.
type EntryServiceServer interface {
	Append(context.Context, *AppendRequest) (*AppendResponse, error)
}

// UnimplementedEntryServiceServer can be embedded to satisfy the interface.
type UnimplementedEntryServiceServer struct{}

func (UnimplementedEntryServiceServer) Append(context.Context, *AppendRequest) (*AppendResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Append not implemented")
}

// ServiceDesc describes EntryService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*EntryServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Append", Handler: appendHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "benchboard/v1/entry.proto",
}

// RegisterEntryServiceServer registers srv on s.
func RegisterEntryServiceServer(s grpc.ServiceRegistrar, srv EntryServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func appendHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(AppendRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EntryServiceServer).Append(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: AppendMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(EntryServiceServer).Append(ctx, req.(*AppendRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// EntryServiceClient is the client side of EntryService.
type EntryServiceClient interface {
	Append(ctx context.Context, in *AppendRequest, opts ...grpc.CallOption) (*AppendResponse, error)
}

type entryServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewEntryServiceClient returns a client that sends JSON-encoded calls over cc.
func NewEntryServiceClient(cc grpc.ClientConnInterface) EntryServiceClient {
	return &entryServiceClient{cc: cc}
}

func (c *entryServiceClient) Append(ctx context.Context, in *AppendRequest, opts ...grpc.CallOption) (*AppendResponse, error) {
	out := new(AppendResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, AppendMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
