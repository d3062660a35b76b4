// Package server runs a job service on its gRPC and HTTP listeners and
// shuts both down together.
//
// The gateway and the worker are both served by this package: the same
// JobServiceServer is registered on a gRPC server (with the logging and
// error interceptors plus the standard health service) and exposed through
// an HTTP handler wrapped in the logging middleware.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/dreamware/jobgateway/internal/jobrpc"
)

// DefaultShutdownTimeout bounds graceful shutdown of both listeners.
const DefaultShutdownTimeout = 5 * time.Second

// Config holds the listen addresses. An empty address disables that
// listener.
type Config struct {
	GRPCAddr        string
	HTTPAddr        string
	ShutdownTimeout time.Duration
}

// Server owns one gRPC server and one HTTP server for a job service.
type Server struct {
	grpc    *grpc.Server
	http    *http.Server
	health  *health.Server
	log     *zap.Logger
	grpcLis net.Listener
	httpLis net.Listener
	cfg     Config
}

// New builds a server for svc. handler serves the HTTP side; it is usually
// jobrpc.NewHTTPHandler(svc), possibly with extra routes.
func New(cfg Config, svc jobrpc.JobServiceServer, handler http.Handler, log *zap.Logger) *Server {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}

	gs := grpc.NewServer(grpc.ChainUnaryInterceptor(
		jobrpc.UnaryLoggingInterceptor(log),
		jobrpc.UnaryErrorInterceptor(),
	))
	jobrpc.RegisterJobServiceServer(gs, svc)

	hs := health.NewServer()
	hs.SetServingStatus(jobrpc.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(gs, hs)

	return &Server{
		cfg:    cfg,
		log:    log,
		grpc:   gs,
		health: hs,
		http: &http.Server{
			Handler:           jobrpc.LoggingMiddleware(log, handler),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Listen opens the configured listeners. Run calls it when needed; calling
// it first lets callers learn the bound addresses (for ":0").
func (s *Server) Listen() error {
	if s.cfg.GRPCAddr != "" && s.grpcLis == nil {
		lis, err := net.Listen("tcp", s.cfg.GRPCAddr)
		if err != nil {
			return fmt.Errorf("listen grpc %s: %w", s.cfg.GRPCAddr, err)
		}
		s.grpcLis = lis
	}
	if s.cfg.HTTPAddr != "" && s.httpLis == nil {
		lis, err := net.Listen("tcp", s.cfg.HTTPAddr)
		if err != nil {
			if s.grpcLis != nil {
				_ = s.grpcLis.Close()
				s.grpcLis = nil
			}
			return fmt.Errorf("listen http %s: %w", s.cfg.HTTPAddr, err)
		}
		s.httpLis = lis
	}
	return nil
}

// GRPCAddr returns the bound gRPC address, or "" before Listen.
func (s *Server) GRPCAddr() string {
	if s.grpcLis == nil {
		return ""
	}
	return s.grpcLis.Addr().String()
}

// HTTPAddr returns the bound HTTP address, or "" before Listen.
func (s *Server) HTTPAddr() string {
	if s.httpLis == nil {
		return ""
	}
	return s.httpLis.Addr().String()
}

// Run serves until ctx is done or a listener fails, then shuts both servers
// down. It returns nil after a clean shutdown.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	if s.grpcLis != nil {
		g.Go(func() error {
			s.log.Info("grpc listening", zap.String("addr", s.GRPCAddr()))
			if err := s.grpc.Serve(s.grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return fmt.Errorf("serve grpc: %w", err)
			}
			return nil
		})
	}
	if s.httpLis != nil {
		g.Go(func() error {
			s.log.Info("http listening", zap.String("addr", s.HTTPAddr()))
			if err := s.http.Serve(s.httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve http: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		s.shutdown()
		return nil
	})
	return g.Wait()
}

// shutdown marks the service NOT_SERVING, then stops HTTP and gRPC,
// forcing the gRPC stop once the shutdown timeout passes.
func (s *Server) shutdown() {
	s.health.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.http.Shutdown(ctx); err != nil {
		s.log.Warn("http shutdown", zap.Error(err))
	}

	stopped := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-ctx.Done():
		s.log.Warn("grpc graceful stop timed out, forcing")
		s.grpc.Stop()
	}
	s.log.Info("server stopped")
}
