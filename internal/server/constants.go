// Package server provides the HTTP, WebSocket, and gRPC control surface
package server

import "time"

// Server configuration constants
const (
	// Per-connection WebSocket command rate limit
	RateLimitMessages = 10
	RateLimitWindow   = time.Second

	// History endpoint bounds
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100

	// Deadline for writing one event to a WebSocket client
	WriteTimeout = 5 * time.Second

	// Request body cap for JSON endpoints
	MaxBodyBytes = 1 << 16
)
