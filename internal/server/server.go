package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/photomapper/internal/common"
)

// MaxMessageSize fits a full-resolution camera original.
const MaxMessageSize = 64 << 20

// NewGRPCServer registers the media service and the standard health service.
func NewGRPCServer(svc MediaServiceServer, logger *slog.Logger) (*grpc.Server, *health.Server) {
	if logger == nil {
		logger = slog.Default()
	}
	gs := grpc.NewServer(
		grpc.MaxRecvMsgSize(MaxMessageSize),
		grpc.MaxSendMsgSize(MaxMessageSize),
		grpc.ChainUnaryInterceptor(requestLogger(logger)),
	)
	RegisterMediaServiceServer(gs, svc)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus(MediaServiceName, healthpb.HealthCheckResponse_SERVING)
	return gs, hs
}

func requestLogger(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		reqID := ""
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if v := md.Get(MDRequestID); len(v) > 0 {
				reqID = v[0]
			}
		}
		if reqID == "" {
			reqID = uuid.NewString()
		}
		ctx = common.WithRequestID(ctx, reqID)
		if err := grpc.SetHeader(ctx, metadata.Pairs(MDRequestID, reqID)); err != nil {
			logger.Warn("failed to set request id header", "request_id", reqID, "error", err)
		}

		resp, err := handler(ctx, req)
		logger.Info("grpc request",
			"method", info.FullMethod,
			"request_id", reqID,
			"code", status.Code(err).String(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return resp, err
	}
}
