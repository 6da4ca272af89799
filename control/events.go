// control/events.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Event journal for the balancer control plane. The acceptor, dispatcher
// and workers post events; a single drain goroutine turns them into log
// lines and metric increments so the hot paths never block on logging.

package control

import (
	"sync"

	"github.com/eapache/queue"
	"github.com/rs/zerolog/log"
)

// EventKind classifies a balancer event.
type EventKind int

const (
	EventAccepted EventKind = iota
	EventDispatched
	EventRejected
	EventDisconnected
	EventBackendDown
)

// String returns the journal name of the event kind.
func (k EventKind) String() string {
	switch k {
	case EventAccepted:
		return "accepted"
	case EventDispatched:
		return "dispatched"
	case EventRejected:
		return "rejected"
	case EventDisconnected:
		return "disconnected"
	case EventBackendDown:
		return "backend_down"
	default:
		return "unknown"
	}
}

// Event is one journal entry.
type Event struct {
	Kind     EventKind
	Backend  string
	ClientID int64
	Detail   string
}

// EventJournal is a mutex-guarded FIFO of events with a condition the
// drain loop sleeps on while the queue is empty.
type EventJournal struct {
	mu      sync.Mutex
	nonEmpty *sync.Cond
	q       *queue.Queue
	metrics *MetricsRegistry
	closed  bool
	done    chan struct{}
}

// NewEventJournal creates a journal feeding the given metrics registry.
func NewEventJournal(metrics *MetricsRegistry) *EventJournal {
	j := &EventJournal{
		q:       queue.New(),
		metrics: metrics,
		done:    make(chan struct{}),
	}
	j.nonEmpty = sync.NewCond(&j.mu)
	return j
}

// Post appends an event and wakes the drain loop. Events posted after
// Close are dropped.
func (j *EventJournal) Post(ev Event) {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return
	}
	j.q.Add(ev)
	j.nonEmpty.Signal()
	j.mu.Unlock()
}

// Run drains events until Close is called and the queue is empty.
// It is meant to run on its own goroutine.
func (j *EventJournal) Run() {
	defer close(j.done)
	for {
		j.mu.Lock()
		for j.q.Length() == 0 && !j.closed {
			j.nonEmpty.Wait()
		}
		if j.q.Length() == 0 && j.closed {
			j.mu.Unlock()
			return
		}
		ev := j.q.Remove().(Event)
		j.mu.Unlock()
		j.emit(ev)
	}
}

// Close stops the drain loop once the queue empties and waits for it.
func (j *EventJournal) Close() {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		<-j.done
		return
	}
	j.closed = true
	j.nonEmpty.Broadcast()
	j.mu.Unlock()
	<-j.done
}

// emit converts one event into its log line and counter bump.
func (j *EventJournal) emit(ev Event) {
	switch ev.Kind {
	case EventAccepted:
		j.metrics.Inc(MetricAccepted)
		log.Debug().Int64("client", ev.ClientID).Str("peer", ev.Detail).Msg("client accepted")
	case EventDispatched:
		j.metrics.Inc(MetricDispatched)
		log.Debug().Int64("client", ev.ClientID).Str("backend", ev.Backend).Msg("client dispatched")
	case EventRejected:
		j.metrics.Inc(MetricRejected)
		log.Warn().Int64("client", ev.ClientID).Str("reason", ev.Detail).Msg("client rejected")
	case EventDisconnected:
		j.metrics.Inc(MetricDisconnected)
		log.Debug().Int64("client", ev.ClientID).Str("backend", ev.Backend).Msg("client disconnected")
	case EventBackendDown:
		j.metrics.Inc(MetricBackendsDown)
		log.Error().Str("backend", ev.Backend).Str("error", ev.Detail).Msg("backend removed")
	}
}
