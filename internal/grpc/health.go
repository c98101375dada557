package grpc

import (
	"context"
	"fmt"
	"net"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	grpc "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Pinger reports whether a dependency is reachable.
type Pinger func(ctx context.Context) error

// HealthServer serves grpc.health.v1 for orchestrators. The overall status
// follows the registered dependency checks.
type HealthServer struct {
	server *grpc.Server
	health *health.Server
	checks map[string]Pinger
}

func NewHealthServer(checks map[string]Pinger) *HealthServer {
	s := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	h := health.NewServer()
	healthpb.RegisterHealthServer(s, h)

	// Enable reflection for grpcurl/grpcui
	reflection.Register(s)

	return &HealthServer{server: s, health: h, checks: checks}
}

// Refresh runs every check and updates the serving status of each one and of the server.
func (h *HealthServer) Refresh(ctx context.Context) bool {
	healthy := true
	for name, ping := range h.checks {
		status := healthpb.HealthCheckResponse_SERVING
		if err := ping(ctx); err != nil {
			status = healthpb.HealthCheckResponse_NOT_SERVING
			healthy = false
		}
		h.health.SetServingStatus(name, status)
	}

	overall := healthpb.HealthCheckResponse_SERVING
	if !healthy {
		overall = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.health.SetServingStatus("", overall)
	return healthy
}

func (h *HealthServer) Serve(port string) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%s", port))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return h.server.Serve(lis)
}

func (h *HealthServer) ServeListener(lis net.Listener) error {
	return h.server.Serve(lis)
}

func (h *HealthServer) GracefulStop() {
	h.health.Shutdown()
	h.server.GracefulStop()
}
