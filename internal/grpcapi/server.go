package grpcapi

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	channelzsvc "google.golang.org/grpc/channelz/service"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"medsys.org/internal/auth"
)

// ServiceName is the name reported to health checks.
const ServiceName = "medsys.v1.Medsys"

// Pinger reports whether dependencies can serve traffic.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	grpc   *grpc.Server
	health *health.Server
	pinger Pinger
	logger *slog.Logger
}

// NewServer builds a gRPC server with health, channelz and reflection
// registered and authorizer installed ahead of every handler.
func NewServer(logger *slog.Logger, authorizer *Authorizer, pinger Pinger, opts ...grpc.ServerOption) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	unary := []grpc.UnaryServerInterceptor{LoggingInterceptor(logger)}
	stream := []grpc.StreamServerInterceptor{StreamLoggingInterceptor(logger)}
	if authorizer != nil {
		unary = append(unary, authorizer.Unary)
		stream = append(stream, authorizer.Stream)
	}
	opts = append(opts, grpc.ChainUnaryInterceptor(unary...), grpc.ChainStreamInterceptor(stream...))

	s := &Server{
		grpc:   grpc.NewServer(opts...),
		health: health.NewServer(),
		pinger: pinger,
		logger: logger,
	}
	healthpb.RegisterHealthServer(s.grpc, s.health)
	channelzsvc.RegisterChannelzServiceToServer(s.grpc)
	reflection.Register(s.grpc)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	return s
}

// Service keys for the operator services registered by NewServer.
const (
	healthService     = "/grpc.health.v1.Health/"
	channelzService   = "/grpc.channelz.v1.Channelz/"
	reflectionService = "/grpc.reflection.v1.ServerReflection/"
	reflectionV1alpha = "/grpc.reflection.v1alpha.ServerReflection/"
)

// PublicMethods lists the RPCs reachable without a token: the whole health
// service, unary and streaming.
func PublicMethods() []string {
	return []string{healthService}
}

// DefaultPolicies keeps channelz and reflection to administrators.
func DefaultPolicies() map[string]auth.Policy {
	admin := auth.RequireAllRoles(auth.RoleAdmin)
	return map[string]auth.Policy{
		channelzService:   admin,
		reflectionService: admin,
		reflectionV1alpha: admin,
	}
}

func (s *Server) GRPC() *grpc.Server { return s.grpc }

// CheckReadiness pings the dependencies once and updates the health status.
func (s *Server) CheckReadiness(ctx context.Context) {
	st := healthpb.HealthCheckResponse_SERVING
	if s.pinger != nil {
		if err := s.pinger.Ping(ctx); err != nil {
			s.logger.WarnContext(ctx, "readiness check failed", "error", err)
			st = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}

// WatchReadiness re-runs CheckReadiness every interval until ctx ends.
func (s *Server) WatchReadiness(ctx context.Context, interval time.Duration) {
	s.CheckReadiness(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.CheckReadiness(ctx)
		}
	}
}

// Stop drains the server. Health flips to NOT_SERVING first.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
