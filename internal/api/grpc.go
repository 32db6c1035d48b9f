package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "timeline.v1.TimelineService"

const (
	methodGetSeries  = "/" + ServiceName + "/GetSeries"
	methodDispatch   = "/" + ServiceName + "/Dispatch"
	methodGetFrame   = "/" + ServiceName + "/GetFrame"
	methodGetSummary = "/" + ServiceName + "/GetSummary"
)

// TimelineServer is the host surface a remote renderer drives. Messages are protobuf
// well-known types so no generated code is required on either side.
type TimelineServer interface {
	GetSeries(ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error)
	Dispatch(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	GetFrame(ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error)
	GetSummary(ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error)
}

// RegisterTimelineServer registers srv on s.
func RegisterTimelineServer(s grpc.ServiceRegistrar, srv TimelineServer) {
	s.RegisterService(&timelineServiceDesc, srv)
}

var timelineServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TimelineServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetSeries",
			Handler: unaryHandler(methodGetSeries, func(s TimelineServer, ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error) {
				return s.GetSeries(ctx, in)
			}),
		},
		{
			MethodName: "Dispatch",
			Handler: unaryHandler(methodDispatch, func(s TimelineServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return s.Dispatch(ctx, in)
			}),
		},
		{
			MethodName: "GetFrame",
			Handler: unaryHandler(methodGetFrame, func(s TimelineServer, ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error) {
				return s.GetFrame(ctx, in)
			}),
		},
		{
			MethodName: "GetSummary",
			Handler: unaryHandler(methodGetSummary, func(s TimelineServer, ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error) {
				return s.GetSummary(ctx, in)
			}),
		},
	},
	Streams: []grpc.StreamDesc{},
}

func unaryHandler[Req any](fullMethod string, call func(TimelineServer, context.Context, *Req) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(TimelineServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(TimelineServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// TimelineClient calls a remote TimelineServer.
type TimelineClient struct {
	cc grpc.ClientConnInterface
}

// NewTimelineClient wraps an established connection.
func NewTimelineClient(cc grpc.ClientConnInterface) *TimelineClient {
	return &TimelineClient{cc: cc}
}

// GetSeries fetches every visible series.
func (c *TimelineClient) GetSeries(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodGetSeries, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Dispatch sends one input and returns the resulting frame.
func (c *TimelineClient) Dispatch(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodDispatch, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// GetFrame returns the current frame without changing state.
func (c *TimelineClient) GetFrame(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodGetFrame, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// GetSummary returns the load summary.
func (c *TimelineClient) GetSummary(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodGetSummary, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
