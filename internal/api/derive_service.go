package api

import (
	"context"
	"fmt"
	"strings"
	"time"

	"libraryhub/internal/borrowing"
	"libraryhub/internal/domain"
	"libraryhub/internal/models"

	jsoniter "github.com/json-iterator/go"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	deriveServiceName = "libraryhub.borrowing.v1.BorrowingStatusService"
	DeriveFullMethod  = "/" + deriveServiceName + "/Derive"
)

// deriveRequest is a borrowing record plus an optional evaluation time.
type deriveRequest struct {
	models.BorrowingWire
	Now string `json:"now,omitempty"`
}

// deriveView evaluates req with the deriver, at req.Now when given.
func deriveView(d *borrowing.Deriver, req deriveRequest) (models.BorrowingView, error) {
	now := d.Now()
	if raw := strings.TrimSpace(req.Now); raw != "" {
		now = models.ParseTimestamp(raw)
		if now.IsZero() {
			return models.BorrowingView{}, fmt.Errorf("now %q is not a timestamp: %w", raw, domain.ErrInvalidRecord)
		}
	}
	return d.View(req.BorrowingWire, now), nil
}

// BorrowingStatusServer derives display status and fines for one record.
type BorrowingStatusServer interface {
	Derive(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

// DeriveService serves BorrowingStatusService over gRPC with Struct messages:
// the request uses the backend borrowing fields, the response is a borrowing view.
type DeriveService struct {
	deriver *borrowing.Deriver
}

func NewDeriveService(deriver *borrowing.Deriver) *DeriveService {
	if deriver == nil {
		deriver = borrowing.NewDeriver(borrowing.DefaultPolicy(), time.Now)
	}
	return &DeriveService{deriver: deriver}
}

func (s *DeriveService) Derive(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	raw, err := json.Marshal(in.AsMap())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "invalid request")
	}
	var req deriveRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid borrowing: %v", err)
	}

	view, err := deriveView(s.deriver, req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	out, err := toStruct(view)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	return out, nil
}

func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

// RegisterBorrowingStatusServer registers srv on s.
func RegisterBorrowingStatusServer(s grpc.ServiceRegistrar, srv BorrowingStatusServer) {
	s.RegisterService(&borrowingStatusServiceDesc, srv)
}

func deriveHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BorrowingStatusServer).Derive(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: DeriveFullMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BorrowingStatusServer).Derive(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

var borrowingStatusServiceDesc = grpc.ServiceDesc{
	ServiceName: deriveServiceName,
	HandlerType: (*BorrowingStatusServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Derive", Handler: deriveHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "libraryhub/borrowing/v1/borrowing.proto",
}
