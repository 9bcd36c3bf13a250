// Package status exposes the search state through the standard gRPC health
// service. The collider service is SERVING while a search runs.
package status

import (
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Service is the health service name reported for the search.
const Service = "collider.Search"

type Server struct {
	grpc   *grpc.Server
	health *health.Server
	log    *zap.Logger
}

func New(log *zap.Logger) *Server {
	s := &Server{
		grpc:   grpc.NewServer(),
		health: health.NewServer(),
		log:    log,
	}
	healthpb.RegisterHealthServer(s.grpc, s.health)
	s.health.SetServingStatus(Service, healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// Serve blocks serving lis until Stop.
func (s *Server) Serve(lis net.Listener) error {
	s.log.Info("health service listening", zap.Stringer("addr", lis.Addr()))
	return s.grpc.Serve(lis)
}

// Started marks the search as running.
func (s *Server) Started() {
	s.health.SetServingStatus(Service, healthpb.HealthCheckResponse_SERVING)
}

// Finished marks the search as no longer running.
func (s *Server) Finished() {
	s.health.SetServingStatus(Service, healthpb.HealthCheckResponse_NOT_SERVING)
}

// Stop shuts the server down after in-flight calls complete.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
