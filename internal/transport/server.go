package transport

import (
	"errors"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Service is the health service name reported next to the overall ("") status.
const Service = "truckpos.PositionRouter"

type Server struct {
	grpc   *grpc.Server
	lis    net.Listener
	health *health.Server
}

func Listen(addr string) (*Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return newServer(lis), nil
}

func newServer(lis net.Listener) *Server {
	s := &Server{
		grpc:   grpc.NewServer(),
		lis:    lis,
		health: health.NewServer(),
	}
	healthpb.RegisterHealthServer(s.grpc, s.health)
	s.SetServing(false)
	return s
}

func (s *Server) Addr() string { return s.lis.Addr().String() }

// SetServing flips the reported status; the router is SERVING only while its
// consume loop runs.
func (s *Server) SetServing(ok bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(Service, st)
}

// Serve blocks until Stop; stopping before Serve is not an error.
func (s *Server) Serve() error {
	if err := s.grpc.Serve(s.lis); !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
	_ = s.lis.Close() // not owned by grpc until Serve runs
}
