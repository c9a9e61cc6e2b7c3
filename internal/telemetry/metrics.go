package telemetry

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics counts router outcomes. All counters are safe for concurrent use by
// the per-partition consume loops.
type Metrics struct {
	Consumed      prometheus.Counter
	Rejected      prometheus.Counter
	Passed        prometheus.Counter
	Forwarded     prometheus.Counter
	PublishErrors prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Consumed: f.NewCounter(prometheus.CounterOpts{
			Name: "truckpos_positions_consumed_total",
			Help: "Messages read from the position topic.",
		}),
		Rejected: f.NewCounter(prometheus.CounterOpts{
			Name: "truckpos_positions_rejected_total",
			Help: "Messages dropped because they do not match the position schema.",
		}),
		Passed: f.NewCounter(prometheus.CounterOpts{
			Name: "truckpos_positions_normal_total",
			Help: "Normal positions that were not forwarded.",
		}),
		Forwarded: f.NewCounter(prometheus.CounterOpts{
			Name: "truckpos_positions_forwarded_total",
			Help: "Dangerous driving positions published downstream.",
		}),
		PublishErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "truckpos_publish_errors_total",
			Help: "Failed publishes to the dangerous driving topic.",
		}),
	}
}

type Server struct {
	srv *http.Server
	lis net.Listener
}

// Listen binds addr and prepares a /metrics endpoint for g; call Serve to start.
func Listen(addr string, g prometheus.Gatherer) (*Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	return &Server{
		srv: &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		lis: lis,
	}, nil
}

func (s *Server) Addr() string { return s.lis.Addr().String() }

func (s *Server) Serve() error {
	if err := s.srv.Serve(s.lis); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	err := s.srv.Shutdown(ctx)
	_ = s.lis.Close()
	return err
}
