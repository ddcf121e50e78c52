package server

import (
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/GriffinCanCode/pushtalk/internal/trace"
)

// ServiceName is the health service entry for the capture pipeline.
const ServiceName = "pushtalk.Capture"

// GRPC serves the standard health service with reflection.
type GRPC struct {
	srv    *grpc.Server
	health *health.Server
}

// NewGRPC creates a gRPC server reporting NOT_SERVING until SetServing(true).
func NewGRPC() *GRPC {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(trace.UnaryServerInterceptor()),
		grpc.ChainStreamInterceptor(trace.StreamServerInterceptor()),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	g := &GRPC{srv: srv, health: hs}
	g.SetServing(false)
	return g
}

// SetServing updates both the overall and the pipeline health status.
func (g *GRPC) SetServing(ok bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		status = healthpb.HealthCheckResponse_SERVING
	}
	g.health.SetServingStatus("", status)
	g.health.SetServingStatus(ServiceName, status)
}

// Serve accepts connections on lis until Stop.
func (g *GRPC) Serve(lis net.Listener) error {
	return g.srv.Serve(lis)
}

// Stop marks the server NOT_SERVING and drains in-flight calls.
func (g *GRPC) Stop() {
	g.health.Shutdown()
	g.srv.GracefulStop()
}
