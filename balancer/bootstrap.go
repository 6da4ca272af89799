// File: balancer/bootstrap.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Roster bootstrap: build one backend record per metadata entry, dial every
// populated slot, null the slots whose dial failed. Runs to completion
// before the acceptor or any worker exists, so later roster iteration sees
// a stable array.

package balancer

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/momentics/hioload-lb/config"
	"github.com/momentics/hioload-lb/control"
	"github.com/momentics/hioload-lb/transport"
)

// dialParallelism bounds concurrent bootstrap dials.
const dialParallelism = 4

// initServers populates a roster from up to MaxServers entries and dials
// each backend once with plain blocking TCP. Dial failure marks the record
// Error and clears its slot. Returns the roster and the connected count.
func initServers(entries []config.ServerEntry, maxConns int, journal *control.EventJournal) (*Roster, int) {
	roster := NewRoster()
	if len(entries) > MaxServers {
		entries = entries[:MaxServers]
	}
	for i, e := range entries {
		roster.Populate(i, newBackend(e, maxConns))
	}

	sem := semaphore.NewWeighted(dialParallelism)
	var wg sync.WaitGroup
	ctx := context.Background()
	for i := 0; i < len(entries); i++ {
		b := roster.Slot(i)
		if b == nil {
			continue
		}
		wg.Add(1)
		_ = sem.Acquire(ctx, 1)
		go func(slot int, b *Backend) {
			defer wg.Done()
			defer sem.Release(1)
			fd, err := transport.Dial(b.address, b.port)
			if err != nil {
				b.setError()
				roster.ClearSlot(slot)
				journal.Post(control.Event{Kind: control.EventBackendDown, Backend: b.Name(), Detail: err.Error()})
				return
			}
			b.setConnected(fd)
			log.Info().Str("backend", b.Name()).Str("addr", b.Addr()).Msg("backend connected")
		}(i, b)
	}
	wg.Wait()

	return roster, roster.ActiveCount()
}
