package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "blogauth.v1.Sessions"

const (
	ListSessionsFullMethod  = "/" + ServiceName + "/ListSessions"
	RevokeSessionFullMethod = "/" + ServiceName + "/RevokeSession"
	RevokeAllFullMethod     = "/" + ServiceName + "/RevokeAll"
)

// SessionsServer is the caller-scoped session admin API. Messages are
// protobuf well-known types, so no generated code is needed.
type SessionsServer interface {
	// ListSessions returns the caller's active sessions as a list of structs.
	ListSessions(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
	// RevokeSession ends the caller's session with the given family.
	RevokeSession(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error)
	// RevokeAll ends every session of the caller and returns the count.
	RevokeAll(context.Context, *emptypb.Empty) (*wrapperspb.Int64Value, error)
}

// SessionsServiceDesc describes SessionsServer for grpc.Server.RegisterService.
var SessionsServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SessionsServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListSessions", Handler: listSessionsHandler},
		{MethodName: "RevokeSession", Handler: revokeSessionHandler},
		{MethodName: "RevokeAll", Handler: revokeAllHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "blogauth/v1/sessions.proto",
}

func listSessionsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SessionsServer).ListSessions(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ListSessionsFullMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SessionsServer).ListSessions(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func revokeSessionHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SessionsServer).RevokeSession(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: RevokeSessionFullMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SessionsServer).RevokeSession(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func revokeAllHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SessionsServer).RevokeAll(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: RevokeAllFullMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SessionsServer).RevokeAll(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// SessionsClient calls a remote SessionsServer.
type SessionsClient struct {
	cc grpc.ClientConnInterface
}

func NewSessionsClient(cc grpc.ClientConnInterface) *SessionsClient {
	return &SessionsClient{cc: cc}
}

func (c *SessionsClient) ListSessions(ctx context.Context, opts ...grpc.CallOption) (*structpb.ListValue, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, ListSessionsFullMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *SessionsClient) RevokeSession(ctx context.Context, family string, opts ...grpc.CallOption) error {
	return c.cc.Invoke(ctx, RevokeSessionFullMethod, wrapperspb.String(family), &emptypb.Empty{}, opts...)
}

func (c *SessionsClient) RevokeAll(ctx context.Context, opts ...grpc.CallOption) (int64, error) {
	out := new(wrapperspb.Int64Value)
	if err := c.cc.Invoke(ctx, RevokeAllFullMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return 0, err
	}
	return out.GetValue(), nil
}
