package grpcclient

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"

	apperrors "github.com/GriffinCanCode/pushtalk/internal/errors"
	"github.com/GriffinCanCode/pushtalk/internal/trace"
)

// Client wraps the health service of a pushtalk gRPC endpoint.
type Client struct {
	conn   *grpc.ClientConn
	Health healthpb.HealthClient
}

// New creates a client for addr. Extra dial options are appended after the
// defaults, so callers may override the transport.
func New(addr string, opts ...grpc.DialOption) (*Client, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:    DefaultKeepaliveTime,
			Timeout: DefaultKeepaliveTimeout,
		}),
		grpc.WithUnaryInterceptor(trace.UnaryClientInterceptor()),
	}
	conn, err := grpc.NewClient(addr, append(dialOpts, opts...)...)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.Unavailable, "dial %s", addr)
	}
	return &Client{conn: conn, Health: healthpb.NewHealthClient(conn)}, nil
}

// Close closes the gRPC connection
func (c *Client) Close() error {
	return c.conn.Close()
}

// Check reports whether service is SERVING. An empty service asks about the
// server as a whole.
func (c *Client) Check(ctx context.Context, service string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, HealthCheckTimeout)
	defer cancel()

	resp, err := c.Health.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return false, apperrors.Wrapf(err, apperrors.Unavailable, "health check %q", service)
	}
	return resp.GetStatus() == healthpb.HealthCheckResponse_SERVING, nil
}

// WaitServing polls until service reports SERVING or ctx is done.
func (c *Client) WaitServing(ctx context.Context, service string) error {
	ticker := time.NewTicker(DefaultHealthCheckInterval)
	defer ticker.Stop()

	for {
		if ok, _ := c.Check(ctx, service); ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return apperrors.Wrapf(ctx.Err(), apperrors.Timeout, "%q not serving", service)
		case <-ticker.C:
		}
	}
}
