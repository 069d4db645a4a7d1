package server

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	middleware "github.com/autopeer-io/rover/internal/pkg/middleware/grpc"
	"github.com/autopeer-io/rover/pkg/log"
	"github.com/autopeer-io/rover/pkg/options"
)

type GrpcServer struct {
	server  *grpc.Server
	options *options.GrpcOptions
}

// NewGrpcServer serves the gRPC health protocol backed by h.
func NewGrpcServer(opts *options.GrpcOptions, h *health.Server) *GrpcServer {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(
		middleware.UnaryServerLogging,
		middleware.UnaryServerTimeout(opts.Timeout),
	))
	healthpb.RegisterHealthServer(srv, h)
	return &GrpcServer{server: srv, options: opts}
}

func (s *GrpcServer) Start(ctx context.Context) error {
	lis, err := net.Listen(s.options.Network, s.options.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, lis)
}

// Serve accepts connections on lis until ctx ends.
func (s *GrpcServer) Serve(ctx context.Context, lis net.Listener) error {
	log.Info("Starting gRPC Server", "addr", lis.Addr().String())

	go func() {
		<-ctx.Done()
		stopped := make(chan struct{})
		go func() {
			s.server.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-time.After(s.options.Timeout):
			s.server.Stop()
		}
	}()

	return s.server.Serve(lis)
}
