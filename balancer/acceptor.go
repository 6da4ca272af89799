// File: balancer/acceptor.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Acceptor owns the inbound listening socket. It loops on accept, mints a
// client record per connection and hands it to the dispatcher. Accept
// errors are logged and the loop continues; only the shutdown flag stops it.

package balancer

import (
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/momentics/hioload-lb/control"
	"github.com/momentics/hioload-lb/transport"
)

// Acceptor runs the accept loop over an already-listening descriptor.
type Acceptor struct {
	lfd        int
	dispatcher *Dispatcher
	journal    *control.EventJournal
	stop       *atomic.Bool
}

// NewAcceptor wires an acceptor over a listening descriptor.
func NewAcceptor(lfd int, d *Dispatcher, journal *control.EventJournal, stop *atomic.Bool) *Acceptor {
	return &Acceptor{lfd: lfd, dispatcher: d, journal: journal, stop: stop}
}

// Run accepts until the shutdown flag is raised. Closing the listening
// socket from Shutdown unblocks a pending accept.
func (a *Acceptor) Run() {
	for {
		fd, peer, err := transport.Accept(a.lfd)
		if a.stop.Load() {
			if err == nil {
				_ = transport.Close(fd)
			}
			return
		}
		if err != nil {
			log.Warn().Err(err).Msg("accept failed")
			continue
		}
		c := newClient(fd, peer)
		a.journal.Post(control.Event{Kind: control.EventAccepted, ClientID: c.ID, Detail: peer})
		// Rejections are journalled and the socket closed inside Assign.
		_, _ = a.dispatcher.Assign(c)
	}
}
