// File: balancer/dispatch.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Dispatcher is the admission path: pick the least-loaded backend for a
// freshly accepted client, install the client into that backend's poll set
// under lock, and signal the backend's worker.

package balancer

import (
	"github.com/momentics/hioload-lb/api"
	"github.com/momentics/hioload-lb/control"
	"github.com/momentics/hioload-lb/transport"
)

// Dispatcher assigns accepted clients to backends.
type Dispatcher struct {
	roster  *Roster
	journal *control.EventJournal
}

// NewDispatcher builds a dispatcher over a bootstrapped roster.
func NewDispatcher(roster *Roster, journal *control.EventJournal) *Dispatcher {
	return &Dispatcher{roster: roster, journal: journal}
}

// Assign hands c over to the backend with the lowest load ratio. Ties break
// toward the lower roster slot. When every backend is at or above full load
// the client is rejected: its socket is closed and ErrNoBackendAvailable
// returned.
func (d *Dispatcher) Assign(c *Client) (*Backend, error) {
	best := d.selectBackend()
	if best == nil {
		d.reject(c, "no backend below full load")
		return nil, api.ErrNoBackendAvailable
	}

	// Lock order: capacity before poll, same as the worker.
	best.connMu.Lock()
	if best.numConns >= best.maxConns {
		// The load read above is unlocked against concurrent dispatchers,
		// so saturation is re-checked under the capacity lock.
		best.connMu.Unlock()
		d.reject(c, "backend "+best.Name()+" saturated")
		return nil, api.ErrBackendSaturated
	}
	best.pollMu.Lock()
	best.clients.Append(c.FD, c)
	best.numConns++
	best.hasConns.Signal()
	best.pollMu.Unlock()
	best.connMu.Unlock()

	d.journal.Post(control.Event{Kind: control.EventDispatched, Backend: best.Name(), ClientID: c.ID})
	return best, nil
}

// selectBackend scans the roster for the slot with the strictly lowest
// load. The initial best is full load, so any backend below capacity wins
// over an unselected state.
func (d *Dispatcher) selectBackend() *Backend {
	var best *Backend
	bestLoad := 1.0
	for _, b := range d.roster.Slots() {
		if b == nil {
			continue
		}
		if load := b.Load(); load < bestLoad {
			bestLoad = load
			best = b
		}
	}
	return best
}

func (d *Dispatcher) reject(c *Client, reason string) {
	_ = transport.Close(c.FD)
	d.journal.Post(control.Event{Kind: control.EventRejected, ClientID: c.ID, Detail: reason})
}
