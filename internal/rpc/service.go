package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/danielpatrickdp/recon-engine/internal/mathx"
	"github.com/danielpatrickdp/recon-engine/internal/replay"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region service-desc
// ServiceName is the fully qualified gRPC service.
const ServiceName = "recon.v1.Engine"

// Method names.
const (
	MethodRecommend = "Recommend"
	MethodRisk      = "Risk"
	MethodHeatmap   = "Heatmap"
	MethodAct       = "Act"
)

// EngineServer is the server side of recon.v1.Engine. Every message is a
// google.protobuf.Struct carrying the JSON form of the engine types.
type EngineServer interface {
	Recommend(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Risk(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Heatmap(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Act(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// EngineServiceDesc registers an EngineServer on a grpc.Server.
var EngineServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*EngineServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: MethodRecommend, Handler: unary(MethodRecommend, EngineServer.Recommend)},
		{MethodName: MethodRisk, Handler: unary(MethodRisk, EngineServer.Risk)},
		{MethodName: MethodHeatmap, Handler: unary(MethodHeatmap, EngineServer.Heatmap)},
		{MethodName: MethodAct, Handler: unary(MethodAct, EngineServer.Act)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "recon/v1/engine.proto",
}

// RegisterEngineServer attaches srv to s.
func RegisterEngineServer(s grpc.ServiceRegistrar, srv EngineServer) {
	s.RegisterService(&EngineServiceDesc, srv)
}

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

type structCall func(EngineServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(name string, call structCall) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(EngineServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(EngineServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// #endregion service-desc

// #region messages
// RecommendRequest asks for advice on the current belief.
type RecommendRequest struct {
	Budget *float64 `json:"budget,omitempty"` // defaults to the episode's remaining budget
}

// RiskRequest asks for Monte Carlo metrics of striking (X, Y).
type RiskRequest struct {
	X       int `json:"x"`
	Y       int `json:"y"`
	Samples int `json:"samples,omitempty"`
}

// HeatmapRequest names a layer. Sensor is read for the voi layer only.
type HeatmapRequest struct {
	Layer      string `json:"layer"`
	Normalized bool   `json:"normalized,omitempty"`
	Sensor     string `json:"sensor,omitempty"`
}

// ActRequest applies one action to the served episode.
type ActRequest = replay.Action

// #endregion messages

// #region convert
// toStruct encodes v through its JSON form.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return structpb.NewStruct(m)
}

// fromStruct decodes s into v through its JSON form. A nil struct leaves v
// untouched.
func fromStruct(s *structpb.Struct, v any) error {
	if s == nil {
		return nil
	}
	b, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("decode message: %w", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode message: %w", err)
	}
	return nil
}

// statusError maps engine errors onto gRPC codes.
func statusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, mathx.ErrInvalidParameter),
		errors.Is(err, mathx.ErrOutOfBounds),
		errors.Is(err, replay.ErrUnknownAction):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// #endregion convert
