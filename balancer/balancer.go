// File: balancer/balancer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Balancer is the facade tying together roster bootstrap, the acceptor,
// the dispatcher, per-backend workers and the control plane.

package balancer

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/momentics/hioload-lb/api"
	"github.com/momentics/hioload-lb/config"
	"github.com/momentics/hioload-lb/control"
	"github.com/momentics/hioload-lb/pool"
	"github.com/momentics/hioload-lb/transport"
)

// Config holds all balancer configuration parameters.
type Config struct {
	Port               int           // inbound TCP port
	Backlog            int           // listen backlog
	MaxConnsPerBackend int           // per-backend client limit
	PollTimeout        time.Duration // worker readiness-poll timeout
	ReadBufferSize     int           // per-read buffer size
	MetadataPath       string        // roster metadata file
	Forward            ForwardFunc   // outbound payload hook, nil = ForwardToBackend
}

// DefaultConfig returns the stock parameters.
func DefaultConfig() *Config {
	return &Config{
		Port:               1800,
		Backlog:            100,
		MaxConnsPerBackend: 1000,
		PollTimeout:        100 * time.Millisecond,
		ReadBufferSize:     1024,
		MetadataPath:       config.DefaultMetadataPath,
	}
}

// Balancer owns the roster, the listening socket and all worker goroutines.
type Balancer struct {
	cfg        *Config
	roster     *Roster
	dispatcher *Dispatcher
	journal    *control.EventJournal
	metrics    *control.MetricsRegistry
	store      *control.ConfigStore
	bufs       *pool.BytePool

	stop    atomic.Bool
	workers sync.WaitGroup

	mu   sync.Mutex
	lfd  int
	port int
}

// New creates a balancer. Bootstrap must run before Listen and Run.
func New(cfg *Config) *Balancer {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Forward == nil {
		cfg.Forward = ForwardToBackend
	}
	metrics := control.NewMetricsRegistry()
	store := control.NewConfigStore()
	store.SetConfig(map[string]any{
		"port":                  cfg.Port,
		"backlog":               cfg.Backlog,
		"max_conns_per_backend": cfg.MaxConnsPerBackend,
		"poll_timeout_ms":       cfg.PollTimeout.Milliseconds(),
		"read_buffer_size":      cfg.ReadBufferSize,
		"metadata_path":         cfg.MetadataPath,
	})
	lb := &Balancer{
		cfg:     cfg,
		journal: control.NewEventJournal(metrics),
		metrics: metrics,
		store:   store,
		bufs:    pool.NewBytePool(cfg.ReadBufferSize),
		lfd:     -1,
	}
	go lb.journal.Run()
	return lb
}

// Bootstrap initialises the roster from metadata entries, dials every
// backend and starts one worker per connected backend. Returns the number
// of connected backends; zero means the balancer must not start listening.
func (lb *Balancer) Bootstrap(entries []config.ServerEntry) int {
	roster, connected := initServers(entries, lb.cfg.MaxConnsPerBackend, lb.journal)
	lb.roster = roster
	lb.dispatcher = NewDispatcher(roster, lb.journal)
	lb.metrics.Set("backends_active", int64(connected))

	for _, b := range roster.Slots() {
		if b == nil {
			continue
		}
		w := newWorker(b, lb.bufs, lb.cfg.PollTimeout, lb.cfg.Forward, lb.journal, &lb.stop)
		lb.workers.Add(1)
		go func() {
			defer lb.workers.Done()
			w.Run()
		}()
	}
	return connected
}

// Listen opens the inbound socket. Separate from Run so callers can learn
// the bound port before accepting.
func (lb *Balancer) Listen() error {
	lfd, err := transport.Listen(lb.cfg.Port, lb.cfg.Backlog)
	if err != nil {
		return err
	}
	port, err := transport.LocalPort(lfd)
	if err != nil {
		_ = transport.Close(lfd)
		return err
	}
	lb.mu.Lock()
	lb.lfd = lfd
	lb.port = port
	lb.mu.Unlock()
	return nil
}

// Port reports the bound inbound port once Listen has succeeded.
func (lb *Balancer) Port() int {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return lb.port
}

// Run blocks in the accept loop until Shutdown.
func (lb *Balancer) Run() error {
	lb.mu.Lock()
	lfd := lb.lfd
	lb.mu.Unlock()
	if lfd < 0 {
		return api.ErrShuttingDown
	}
	acceptor := NewAcceptor(lfd, lb.dispatcher, lb.journal, &lb.stop)
	acceptor.Run()
	return nil
}

// Roster exposes the bootstrapped roster.
func (lb *Balancer) Roster() *Roster {
	return lb.roster
}

// Control exposes the runtime configuration and metrics surface.
func (lb *Balancer) Control() api.Control {
	return control.NewController(lb.store, lb.metrics)
}

var _ api.GracefulShutdown = (*Balancer)(nil)

// Shutdown raises the stop flag, unblocks the acceptor and all workers,
// waits for the workers to exit, then closes every remaining client and
// backend socket and drains the journal.
func (lb *Balancer) Shutdown() error {
	if !lb.stop.CompareAndSwap(false, true) {
		return nil
	}

	lb.mu.Lock()
	if lb.lfd >= 0 {
		_ = transport.Close(lb.lfd)
		lb.lfd = -1
	}
	lb.mu.Unlock()

	if lb.roster != nil {
		for _, b := range lb.roster.Slots() {
			if b == nil {
				continue
			}
			b.connMu.Lock()
			b.hasConns.Broadcast()
			b.connMu.Unlock()
		}
	}
	lb.workers.Wait()

	if lb.roster != nil {
		for _, b := range lb.roster.Slots() {
			if b == nil {
				continue
			}
			b.pollMu.Lock()
			for b.clients.Len() > 0 {
				i := b.clients.Len() - 1
				_ = transport.Close(b.clients.FD(i))
				b.clients.RemoveAt(i)
			}
			b.pollMu.Unlock()
			b.connMu.Lock()
			b.numConns = 0
			b.connMu.Unlock()
			if fd := b.FD(); fd >= 0 {
				_ = transport.Close(fd)
			}
		}
	}

	lb.journal.Close()
	return nil
}
