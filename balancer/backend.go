// File: balancer/backend.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Backend is the in-memory record for one upstream server: identity and
// socket, capacity bookkeeping, and the poll set its worker drains.

package balancer

import (
	"fmt"
	"sync"

	"github.com/momentics/hioload-lb/config"
	"github.com/momentics/hioload-lb/poller"
)

// Status is the operating state of a backend.
type Status int32

const (
	StatusActive Status = iota
	StatusInactive
	StatusError
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusInactive:
		return "inactive"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Backend groups three independently locked blocks. The identity block is
// near-static after bootstrap; the capacity block changes on every dispatch
// and disconnect; the poll block is owned by the worker except during
// handover.
//
// Lock order: a goroutine that needs both the capacity and poll locks takes
// the capacity lock first. The details lock is always taken last and no
// other lock is acquired while it is held; the default forward hook reads
// the outbound descriptor under it while the worker holds the poll lock.
type Backend struct {
	// identity block
	detailsMu sync.Mutex
	name      string
	address   string
	port      int
	fd        int
	status    Status

	// capacity block
	connMu   sync.Mutex
	hasConns *sync.Cond
	numConns int
	maxConns int

	// poll block, parallel descriptor/client arrays sized to maxConns
	pollMu  sync.Mutex
	clients *poller.Set[*Client]
}

// newBackend builds an inactive record from a roster entry. The socket is
// dialled later, during bootstrap.
func newBackend(e config.ServerEntry, maxConns int) *Backend {
	b := &Backend{
		name:     e.Name,
		address:  e.Address,
		port:     e.Port,
		fd:       -1,
		status:   StatusInactive,
		maxConns: maxConns,
		clients:  poller.NewSet[*Client](maxConns),
	}
	b.hasConns = sync.NewCond(&b.connMu)
	return b
}

// Name returns the backend's short name.
func (b *Backend) Name() string { return b.name }

// Addr returns the dial target in host:port form.
func (b *Backend) Addr() string {
	return fmt.Sprintf("%s:%d", b.address, b.port)
}

// FD returns the outbound socket descriptor, or -1 before dial.
func (b *Backend) FD() int {
	b.detailsMu.Lock()
	defer b.detailsMu.Unlock()
	return b.fd
}

func (b *Backend) setConnected(fd int) {
	b.detailsMu.Lock()
	b.fd = fd
	b.status = StatusActive
	b.detailsMu.Unlock()
}

func (b *Backend) setError() {
	b.detailsMu.Lock()
	b.status = StatusError
	b.detailsMu.Unlock()
}

// Status returns the backend's operating state.
func (b *Backend) Status() Status {
	b.detailsMu.Lock()
	defer b.detailsMu.Unlock()
	return b.status
}

// NumConns returns the current assigned-client count.
func (b *Backend) NumConns() int {
	b.connMu.Lock()
	defer b.connMu.Unlock()
	return b.numConns
}

// MaxConns returns the configured connection limit.
func (b *Backend) MaxConns() int { return b.maxConns }

// Load returns the selection key: assigned count over the limit. The
// capacity lock is held only for the read.
func (b *Backend) Load() float64 {
	b.connMu.Lock()
	n := b.numConns
	b.connMu.Unlock()
	return float64(n) / float64(b.maxConns)
}
