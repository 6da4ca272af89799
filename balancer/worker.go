// File: balancer/worker.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Worker is the long-lived loop bound to one backend. It sleeps on the
// backend's condition while no clients are assigned, then polls the
// assigned set for readability and drains every ready socket. It does not
// accept, does not choose backends, and never touches another backend.

package balancer

import (
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/momentics/hioload-lb/control"
	"github.com/momentics/hioload-lb/pool"
	"github.com/momentics/hioload-lb/transport"
)

// Worker drains assigned clients of a single backend.
type Worker struct {
	backend *Backend
	bufs    *pool.BytePool
	timeout time.Duration
	forward ForwardFunc
	journal *control.EventJournal
	stop    *atomic.Bool
}

func newWorker(b *Backend, bufs *pool.BytePool, timeout time.Duration, forward ForwardFunc, journal *control.EventJournal, stop *atomic.Bool) *Worker {
	return &Worker{
		backend: b,
		bufs:    bufs,
		timeout: timeout,
		forward: forward,
		journal: journal,
		stop:    stop,
	}
}

// Run loops until the shutdown flag is raised. Each iteration: wait for
// work, snapshot the assigned count, poll that many descriptors, drain.
func (w *Worker) Run() {
	b := w.backend
	for {
		b.connMu.Lock()
		for b.numConns == 0 && !w.stop.Load() {
			b.hasConns.Wait()
		}
		n := b.numConns
		b.connMu.Unlock()
		if w.stop.Load() {
			return
		}

		b.pollMu.Lock()
		ready, err := b.clients.Poll(n, w.timeout)
		if err != nil {
			b.pollMu.Unlock()
			log.Warn().Str("backend", b.Name()).Err(err).Msg("poll failed")
			continue
		}
		if ready == 0 {
			b.pollMu.Unlock()
			continue
		}
		removed := w.drain(n)
		b.pollMu.Unlock()

		// The capacity decrement happens after the poll region so the
		// capacity-before-poll lock order holds on every path.
		if removed > 0 {
			b.connMu.Lock()
			b.numConns -= removed
			b.connMu.Unlock()
		}
	}
}

// drain reads every readable descriptor among the first n entries and
// returns how many clients disconnected. Called with the poll lock held.
// Iteration runs back to front so a swap-remove at i only disturbs indexes
// this pass has already visited.
func (w *Worker) drain(n int) int {
	b := w.backend
	if n > b.clients.Len() {
		n = b.clients.Len()
	}
	buf := w.bufs.GetBuffer()
	defer w.bufs.PutBuffer(buf)

	removed := 0
	for i := n - 1; i >= 0; i-- {
		c := b.clients.Owner(i)
		switch {
		case b.clients.Readable(i):
			count, err := transport.Read(c.FD, buf)
			switch {
			case err != nil:
				log.Warn().Str("backend", b.Name()).Int64("client", c.ID).Err(err).Msg("recv failed")
				// A descriptor that is both errored and flagged down is
				// dead; reap it so the next poll cannot spin on it.
				if b.clients.Dropped(i) {
					w.dropClient(i, c)
					removed++
				}
			case count == 0:
				// Peer closed; no further reads on this descriptor.
				w.dropClient(i, c)
				removed++
			default:
				log.Trace().Str("backend", b.Name()).Int64("client", c.ID).Int("bytes", count).Msg("payload drained")
				if ferr := w.forward(b, buf[:count]); ferr != nil {
					log.Warn().Str("backend", b.Name()).Int64("client", c.ID).Err(ferr).Msg("forward failed")
				}
			}
		case b.clients.Dropped(i):
			// Hung-up or invalid descriptor; reap it so poll cannot spin.
			w.dropClient(i, c)
			removed++
		}
	}
	return removed
}

// dropClient closes the socket and compacts both parallel arrays with a
// swap-remove. Called with the poll lock held.
func (w *Worker) dropClient(i int, c *Client) {
	_ = transport.Close(c.FD)
	w.backend.clients.RemoveAt(i)
	w.journal.Post(control.Event{
		Kind:     control.EventDisconnected,
		Backend:  w.backend.Name(),
		ClientID: c.ID,
	})
}
