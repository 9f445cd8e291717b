package security

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "security.v1.SecurityService"

// Full method names used by clients.
const (
	GetConfigMethod         = "/" + ServiceName + "/GetConfig"
	UpdateConfigMethod      = "/" + ServiceName + "/UpdateConfig"
	CheckMethod             = "/" + ServiceName + "/Check"
	GetAnnotatedImageMethod = "/" + ServiceName + "/GetAnnotatedImage"
	ArmMethod               = "/" + ServiceName + "/Arm"
	SilenceMethod           = "/" + ServiceName + "/Silence"
	DisarmMethod            = "/" + ServiceName + "/Disarm"
)

// SecurityServiceServer is the server API of security.v1.SecurityService.
type SecurityServiceServer interface {
	GetConfig(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	UpdateConfig(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Check(context.Context, *wrapperspb.BytesValue) (*emptypb.Empty, error)
	GetAnnotatedImage(context.Context, *emptypb.Empty) (*wrapperspb.BytesValue, error)
	Arm(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Silence(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Disarm(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// RegisterSecurityServiceServer registers the implementation on a gRPC server.
func RegisterSecurityServiceServer(registrar grpc.ServiceRegistrar, srv SecurityServiceServer) {
	registrar.RegisterService(&ServiceDesc, srv)
}

// ServiceDesc describes security.v1.SecurityService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SecurityServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetConfig",
			Handler:    unaryHandler(GetConfigMethod, SecurityServiceServer.GetConfig),
		},
		{
			MethodName: "UpdateConfig",
			Handler:    unaryHandler(UpdateConfigMethod, SecurityServiceServer.UpdateConfig),
		},
		{
			MethodName: "Check",
			Handler:    unaryHandler(CheckMethod, SecurityServiceServer.Check),
		},
		{
			MethodName: "GetAnnotatedImage",
			Handler:    unaryHandler(GetAnnotatedImageMethod, SecurityServiceServer.GetAnnotatedImage),
		},
		{
			MethodName: "Arm",
			Handler:    unaryHandler(ArmMethod, SecurityServiceServer.Arm),
		},
		{
			MethodName: "Silence",
			Handler:    unaryHandler(SilenceMethod, SecurityServiceServer.Silence),
		},
		{
			MethodName: "Disarm",
			Handler:    unaryHandler(DisarmMethod, SecurityServiceServer.Disarm),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "security/v1/security.proto",
}

// unaryHandler builds the decode-and-dispatch function generated code would contain.
func unaryHandler[Req, Resp any](
	fullMethod string,
	call func(SecurityServiceServer, context.Context, *Req) (Resp, error),
) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}

		if interceptor == nil {
			return call(srv.(SecurityServiceServer), ctx, in)
		}

		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}

		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(SecurityServiceServer), ctx, req.(*Req))
		}

		return interceptor(ctx, in, info, handler)
	}
}
