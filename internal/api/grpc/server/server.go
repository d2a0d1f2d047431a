package server

import (
	"context"
	"fmt"

	"google.golang.org/grpc"

	"github.com/dtroode/appauth-server/internal/model"
)

// HealthReporter flips health checks to NOT_SERVING before shutdown.
type HealthReporter interface {
	Shutdown()
}

// GRPCServer wraps a gRPC server with address and lifecycle methods.
type GRPCServer struct {
	server *grpc.Server
	health HealthReporter
	addr   string
}

// NewGRPCServer creates a GRPCServer with given server and address. health may be nil.
func NewGRPCServer(server *grpc.Server, health HealthReporter, addr string) *GRPCServer {
	return &GRPCServer{server: server, health: health, addr: addr}
}

// Start starts serving on the configured address using the provided security layer.
func (s *GRPCServer) Start(securityLayer model.SecurityLayer) error {
	listener, err := securityLayer.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return s.server.Serve(listener)
}

// Stop marks the server unhealthy and drains in-flight calls. When ctx ends
// first, remaining calls are cancelled.
func (s *GRPCServer) Stop(ctx context.Context) error {
	if s.health != nil {
		s.health.Shutdown()
	}

	done := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.server.Stop()
		return ctx.Err()
	}
}

// Address returns the configured listen address.
func (s *GRPCServer) Address() string {
	return s.addr
}
