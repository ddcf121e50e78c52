// Package grpcclient checks the health of a running pushtalk instance over gRPC
package grpcclient

import "time"

// Client configuration defaults
const (
	// Keepalive configuration
	DefaultKeepaliveTime    = 10 * time.Second
	DefaultKeepaliveTimeout = 3 * time.Second

	// Health check configuration
	DefaultHealthCheckInterval = 500 * time.Millisecond
	HealthCheckTimeout         = 2 * time.Second
)
