package handler

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ResignationServiceName は gRPC のサービス名です。
const ResignationServiceName = "resignation.v1.ResignationService"

// ResignationService のメソッド名
const (
	MethodSubmitResignation   = "SubmitResignation"
	MethodGetMyResignation    = "GetMyResignation"
	MethodListResignations    = "ListResignations"
	MethodApproveResignation  = "ApproveResignation"
	MethodRejectResignation   = "RejectResignation"
	MethodSubmitExitInterview = "SubmitExitInterview"
)

// ResignationServiceServer は ResignationService のサーバー側インターフェースです。
// リクエスト・レスポンスは google.protobuf.Struct で表現します。
type ResignationServiceServer interface {
	SubmitResignation(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetMyResignation(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListResignations(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ApproveResignation(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RejectResignation(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SubmitExitInterview(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type structMethod func(ResignationServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

// ResignationServiceDesc は ResignationService の grpc.ServiceDesc です。
var ResignationServiceDesc = grpc.ServiceDesc{
	ServiceName: ResignationServiceName,
	HandlerType: (*ResignationServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: MethodSubmitResignation, Handler: unaryHandler(MethodSubmitResignation, ResignationServiceServer.SubmitResignation)},
		{MethodName: MethodGetMyResignation, Handler: unaryHandler(MethodGetMyResignation, ResignationServiceServer.GetMyResignation)},
		{MethodName: MethodListResignations, Handler: unaryHandler(MethodListResignations, ResignationServiceServer.ListResignations)},
		{MethodName: MethodApproveResignation, Handler: unaryHandler(MethodApproveResignation, ResignationServiceServer.ApproveResignation)},
		{MethodName: MethodRejectResignation, Handler: unaryHandler(MethodRejectResignation, ResignationServiceServer.RejectResignation)},
		{MethodName: MethodSubmitExitInterview, Handler: unaryHandler(MethodSubmitExitInterview, ResignationServiceServer.SubmitExitInterview)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "resignation/v1/resignation.proto",
}

// RegisterResignationServiceServer は srv を s に登録します。
func RegisterResignationServiceServer(s grpc.ServiceRegistrar, srv ResignationServiceServer) {
	s.RegisterService(&ResignationServiceDesc, srv)
}

func fullMethod(method string) string {
	return "/" + ResignationServiceName + "/" + method
}

func unaryHandler(method string, call structMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ResignationServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod(method),
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ResignationServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ResignationServiceClient は ResignationService のクライアントです。
type ResignationServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewResignationServiceClient は ResignationServiceClient を生成します。
func NewResignationServiceClient(cc grpc.ClientConnInterface) *ResignationServiceClient {
	return &ResignationServiceClient{cc: cc}
}

// Call は method を呼び出します。
func (c *ResignationServiceClient) Call(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if in == nil {
		in = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
