package rpcserver

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully-qualified name grpc-go uses to route incoming
// requests to this ServiceDesc; there is no .proto file backing it, but
// grpc's wire routing only cares about this string matching between client
// and server.
const ServiceName = "tuai.TuaidService"

// RegisterServer attaches a Server's handlers to a *grpc.Server through a
// hand-written ServiceDesc, standing in for what protoc-gen-go-grpc would
// otherwise generate.
func RegisterServer(s *grpc.Server, srv *Server) {
	s.RegisterService(&serviceDesc, srv)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Status", Handler: statusHandler},
		{MethodName: "GetAgentSignatures", Handler: getAgentSignaturesHandler},
		{MethodName: "QueryProcesses", Handler: queryProcessesHandler},
		{MethodName: "QueryConnections", Handler: queryConnectionsHandler},
		{MethodName: "QueryFileOps", Handler: queryFileOpsHandler},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchProcesses",
			Handler:       watchProcessesHandler,
			ServerStreams: true,
		},
	},
	Metadata: "tuaid.proto",
}

func statusHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(StatusRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	s := srv.(*Server)
	if interceptor == nil {
		return s.Status(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ServiceName + "/Status"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return s.Status(ctx, req.(*StatusRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func getAgentSignaturesHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(GetAgentSignaturesRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	s := srv.(*Server)
	if interceptor == nil {
		return s.GetAgentSignatures(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ServiceName + "/GetAgentSignatures"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return s.GetAgentSignatures(ctx, req.(*GetAgentSignaturesRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func queryProcessesHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(QueryProcessesRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	s := srv.(*Server)
	if interceptor == nil {
		return s.QueryProcesses(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ServiceName + "/QueryProcesses"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return s.QueryProcesses(ctx, req.(*QueryProcessesRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func queryConnectionsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(QueryConnectionsRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	s := srv.(*Server)
	if interceptor == nil {
		return s.QueryConnections(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ServiceName + "/QueryConnections"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return s.QueryConnections(ctx, req.(*QueryConnectionsRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func queryFileOpsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(QueryFileOpsRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	s := srv.(*Server)
	if interceptor == nil {
		return s.QueryFileOps(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ServiceName + "/QueryFileOps"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return s.QueryFileOps(ctx, req.(*QueryFileOpsRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func watchProcessesHandler(srv interface{}, stream grpc.ServerStream) error {
	req := new(WatchProcessesRequest)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(*Server).watchProcesses(req, stream)
}
