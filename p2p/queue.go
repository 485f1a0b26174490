// Package p2p defines the replication queue nodes use to exchange plot batches.
package p2p

import (
	"context"
	"errors"
)

// ErrClosed is returned by a Queue after Close.
var ErrClosed = errors.New("p2p: queue closed")

//go:generate mockgen -typed -package=mocks -destination=./mocks/mocks.go -source=./queue.go

// Queue moves opaque payloads between this node and its peers.
//
// Queue methods are called from a single goroutine; implementations may run
// their own goroutines internally.
type Queue interface {
	// Bind starts listening for peers. A failure is fatal for the caller.
	Bind(address string, port uint16) error
	// Pump services pending network work for one loop tick, such as dialing
	// peers that are not connected yet. It must not block for long.
	Pump(ctx context.Context) error
	// Broadcast sends payload to every currently known peer, best effort.
	Broadcast(payload []byte) error
	// PopInbound returns the next received payload, if any.
	PopInbound() ([]byte, bool)
	// Close stops listening and drops all connections.
	Close() error
}
