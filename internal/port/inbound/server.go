// Package inbound defines the inbound port interfaces.
// Long-running serving adapters (the status server) implement these.
package inbound

import (
	"context"
)

// Server is the inbound port for serving surfaces.
type Server interface {
	// Start begins serving requests.
	// Blocks until context is cancelled or an error occurs.
	// Returns nil on graceful shutdown, error on failure.
	Start(ctx context.Context) error

	// Close gracefully shuts down the server and cleans up resources.
	Close() error
}
