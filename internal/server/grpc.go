package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/eriantys/eriantys-server-go/internal/config"
	"github.com/eriantys/eriantys-server-go/internal/game"
	"github.com/eriantys/eriantys-server-go/internal/game/rules"
	"github.com/eriantys/eriantys-server-go/internal/lobby"
)

// MatchStatusService is the full name of the admin status service.
const MatchStatusService = "eriantys.admin.v1.MatchStatus"

// MatchStatusServer reports running matches and open lobbies.
type MatchStatusServer interface {
	GetMatch(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
	ListMatches(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
}

// MatchStatusServiceDesc describes the admin status service for grpc.Server.
var MatchStatusServiceDesc = grpc.ServiceDesc{
	ServiceName: MatchStatusService,
	HandlerType: (*MatchStatusServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetMatch", Handler: getMatchHandler},
		{MethodName: "ListMatches", Handler: listMatchesHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "eriantys/admin/v1/match_status.proto",
}

func getMatchHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MatchStatusServer).GetMatch(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + MatchStatusService + "/GetMatch"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(MatchStatusServer).GetMatch(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func listMatchesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MatchStatusServer).ListMatches(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + MatchStatusService + "/ListMatches"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(MatchStatusServer).ListMatches(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// MatchStatusClient calls the admin status service.
type MatchStatusClient struct {
	cc grpc.ClientConnInterface
}

// NewMatchStatusClient creates a client on an open connection.
func NewMatchStatusClient(cc grpc.ClientConnInterface) *MatchStatusClient {
	return &MatchStatusClient{cc: cc}
}

// GetMatch returns the status and board of one match.
func (c *MatchStatusClient) GetMatch(ctx context.Context, matchID string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+MatchStatusService+"/GetMatch", wrapperspb.String(matchID), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// ListMatches returns every running match and open lobby.
func (c *MatchStatusClient) ListMatches(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+MatchStatusService+"/ListMatches", &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// matchStatusServer implements MatchStatusServer
type matchStatusServer struct {
	engine  *game.Engine
	lobbies *lobby.Manager
	logger  *zap.Logger
}

// NewMatchStatusServer creates the admin status service.
func NewMatchStatusServer(engine *game.Engine, lobbies *lobby.Manager, logger *zap.Logger) MatchStatusServer {
	return &matchStatusServer{engine: engine, lobbies: lobbies, logger: logger}
}

func (s *matchStatusServer) GetMatch(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	id := req.GetValue()
	if id == "" {
		return nil, status.Errorf(codes.InvalidArgument, "match id is required")
	}

	st, err := s.engine.Status(id)
	if err != nil {
		return nil, grpcError(err)
	}
	view, checksum, err := s.engine.View(id)
	if err != nil {
		return nil, grpcError(err)
	}
	players, err := s.engine.Players(id)
	if err != nil {
		return nil, grpcError(err)
	}

	return toStruct(map[string]any{
		"status":   st,
		"view":     view,
		"checksum": checksum,
		"players":  players,
	})
}

func (s *matchStatusServer) ListMatches(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return toStruct(map[string]any{
		"matches": s.engine.List(),
		"lobbies": s.lobbies.List(),
	})
}

// toStruct converts any JSON-encodable value into a protobuf Struct.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, status.Errorf(codes.Internal, "decode: %v", err)
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "convert: %v", err)
	}
	return out, nil
}

func grpcError(err error) error {
	switch rules.KindOf(err) {
	case rules.UnknownMatch:
		return status.Error(codes.NotFound, err.Error())
	case rules.InvalidSelection:
		return status.Error(codes.InvalidArgument, err.Error())
	case "":
		return status.Error(codes.Internal, err.Error())
	default:
		return status.Error(codes.FailedPrecondition, err.Error())
	}
}

// NewGRPCServer builds the admin gRPC server with the status and health
// services registered.
func NewGRPCServer(cfg *config.Config, engine *game.Engine, lobbies *lobby.Manager, logger *zap.Logger) *grpc.Server {
	opts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			RecoveryInterceptor(logger),
			LoggingInterceptor(logger),
			AdminInterceptor(cfg.Auth.AdminPasswordHash),
		),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    30 * time.Second,
			Timeout: 10 * time.Second,
		}),
	}
	if n := cfg.Server.GRPC.MaxConcurrentStreams; n > 0 {
		opts = append(opts, grpc.MaxConcurrentStreams(uint32(n)))
	}
	grpcServer := grpc.NewServer(opts...)

	grpcServer.RegisterService(&MatchStatusServiceDesc, NewMatchStatusServer(engine, lobbies, logger))

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(MatchStatusService, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	return grpcServer
}

// extractHostFromContext returns the peer host of a call.
func extractHostFromContext(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok && p.Addr != net.Addr(nil) {
		if host, _, err := net.SplitHostPort(p.Addr.String()); err == nil {
			return host
		}
		return p.Addr.String()
	}
	return "unknown"
}

func describeRequest(req any) string {
	if s, ok := req.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", req)
}
