package httpapi

import (
	"context"

	"google.golang.org/grpc/health/grpc_health_v1"
)

// GRPCServer exposes the readiness probe over the standard gRPC health
// protocol for sidecar and load-balancer checks.
type GRPCServer struct {
	grpc_health_v1.UnimplementedHealthServer

	readiness ReadyProbe
}

// NewGRPCServer creates the gRPC health service wrapper.
func NewGRPCServer(rp ReadyProbe) *GRPCServer {
	return &GRPCServer{readiness: rp}
}

// Check evaluates readiness for the health protocol.
func (s *GRPCServer) Check(ctx context.Context, _ *grpc_health_v1.HealthCheckRequest) (*grpc_health_v1.HealthCheckResponse, error) {
	status := grpc_health_v1.HealthCheckResponse_SERVING
	if err := s.readiness.Check(ctx); err != nil {
		status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
	}
	return &grpc_health_v1.HealthCheckResponse{Status: status}, nil
}

// Watch reports the current status once; streaming updates are not
// supported.
func (s *GRPCServer) Watch(req *grpc_health_v1.HealthCheckRequest, stream grpc_health_v1.Health_WatchServer) error {
	resp, err := s.Check(stream.Context(), req)
	if err != nil {
		return err
	}
	return stream.Send(resp)
}
