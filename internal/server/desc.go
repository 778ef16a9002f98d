package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const MediaServiceName = "photomapper.v1.MediaService"

const (
	methodClassify    = "/" + MediaServiceName + "/Classify"
	methodNormalize   = "/" + MediaServiceName + "/Normalize"
	methodThumbnail   = "/" + MediaServiceName + "/Thumbnail"
	methodExportBatch = "/" + MediaServiceName + "/ExportBatch"
)

// Request metadata keys. File name and declared type travel beside the bytes.
const (
	MDFileName    = "x-file-name"
	MDContentType = "x-content-type"
	MDRequestID   = "x-request-id"
)

// MediaServiceServer uses well-known wrapper messages so no generated code is needed.
type MediaServiceServer interface {
	Classify(context.Context, *wrapperspb.BytesValue) (*structpb.Struct, error)
	Normalize(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
	Thumbnail(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
	ExportBatch(context.Context, *wrapperspb.StringValue) (*wrapperspb.BytesValue, error)
}

func RegisterMediaServiceServer(s grpc.ServiceRegistrar, srv MediaServiceServer) {
	s.RegisterService(&MediaServiceDesc, srv)
}

var MediaServiceDesc = grpc.ServiceDesc{
	ServiceName: MediaServiceName,
	HandlerType: (*MediaServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Classify", Handler: unary(methodClassify, MediaServiceServer.Classify)},
		{MethodName: "Normalize", Handler: unary(methodNormalize, MediaServiceServer.Normalize)},
		{MethodName: "Thumbnail", Handler: unary(methodThumbnail, MediaServiceServer.Thumbnail)},
		{MethodName: "ExportBatch", Handler: unary(methodExportBatch, MediaServiceServer.ExportBatch)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "photomapper/v1/media.proto",
}

func unary[Req any, Resp any](fullMethod string, call func(MediaServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(MediaServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(MediaServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// MediaServiceClient is the client side of MediaServiceDesc.
type MediaServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewMediaServiceClient(cc grpc.ClientConnInterface) *MediaServiceClient {
	return &MediaServiceClient{cc: cc}
}

func (c *MediaServiceClient) Classify(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodClassify, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *MediaServiceClient) Normalize(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, methodNormalize, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *MediaServiceClient) Thumbnail(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, methodThumbnail, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *MediaServiceClient) ExportBatch(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, methodExportBatch, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
