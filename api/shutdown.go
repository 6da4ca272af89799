// File: api/shutdown.go
// Package api defines the unified graceful shutdown contract.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// GracefulShutdown is implemented by components that release sockets,
// wake blocked workers and stop their goroutines on demand.
type GracefulShutdown interface {
	// Shutdown performs an orderly stop of all internal services
	// and releases their resources. Returns an error on failure.
	Shutdown() error
}
