// Package grpc exposes the session controller as the
// authkeeper.v1.SessionService gRPC service alongside the standard health
// service.
package grpc

import (
	"context"
	"fmt"
	"net"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// SessionManager is the part of services.SessionService the handlers use.
type SessionManager interface {
	Login(ctx context.Context, identifier, password string) (*services.TokenPair, error)
	Refresh(ctx context.Context, rawRefresh string) (*services.TokenPair, error)
	Logout(ctx context.Context, p *auth.Principal) error
	Verify(ctx context.Context, token string) (*auth.Principal, error)
}

type GRPCServer struct {
	address  string
	sessions SessionManager
	logger   logging.Logger
}

func NewGRPCServer(address string, l logging.Logger, sessions SessionManager) *GRPCServer {
	return &GRPCServer{
		address:  address,
		sessions: sessions,
		logger:   l.With("module", "grpc_server"),
	}
}

// NewServer builds a *grpc.Server with the session and health services
// registered and the interceptors installed.
func (s *GRPCServer) NewServer() (*grpc.Server, *health.Server) {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.requestIDInterceptor, s.accessTokenInterceptor))
	RegisterSessionServiceServer(srv, s)

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	return srv, hs
}

func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.address, err)
	}
	return s.Serve(ctx, listen)
}

// Serve is Run on an existing listener.
func (s *GRPCServer) Serve(ctx context.Context, listen net.Listener) error {
	srv, hs := s.NewServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		hs.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())
	return srv.Serve(listen)
}
