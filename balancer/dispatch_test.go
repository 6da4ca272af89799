//go:build unix

// File: balancer/dispatch_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package balancer

import (
	"errors"
	"sync"
	"testing"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-lb/api"
	"github.com/momentics/hioload-lb/config"
	"github.com/momentics/hioload-lb/control"
)

func newTestJournal(t *testing.T) *control.EventJournal {
	t.Helper()
	j := control.NewEventJournal(control.NewMetricsRegistry())
	go j.Run()
	t.Cleanup(j.Close)
	return j
}

func testBackend(name string, maxConns int) *Backend {
	return newBackend(config.ServerEntry{Name: name, Address: "127.0.0.1", Port: 2000}, maxConns)
}

// pairFDs returns a connected socket pair; both ends are closed on cleanup
// unless a test closed them first.
func pairFDs(t *testing.T) (int, int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		unix.Close(fds[0])
		unix.Close(fds[1])
	})
	return fds[0], fds[1]
}

func TestAssignPicksLeastLoaded(t *testing.T) {
	b0 := testBackend("SERVER_0", 1000)
	b1 := testBackend("SERVER_1", 1000)
	b0.numConns = 2
	b1.numConns = 1

	roster := NewRoster()
	roster.Populate(0, b0)
	roster.Populate(1, b1)
	d := NewDispatcher(roster, newTestJournal(t))

	fd, _ := pairFDs(t)
	got, err := d.Assign(newClient(fd, "test"))
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if got != b1 {
		t.Fatalf("Assign chose %s, want SERVER_1", got.Name())
	}
	if b1.NumConns() != 2 {
		t.Errorf("SERVER_1 numConns = %d, want 2", b1.NumConns())
	}
	if b0.NumConns() != 2 {
		t.Errorf("SERVER_0 numConns = %d, want unchanged 2", b0.NumConns())
	}
}

func TestAssignTieBreaksOnLowerSlot(t *testing.T) {
	b0 := testBackend("SERVER_0", 1000)
	b1 := testBackend("SERVER_1", 1000)
	roster := NewRoster()
	roster.Populate(0, b0)
	roster.Populate(1, b1)
	d := NewDispatcher(roster, newTestJournal(t))

	fd, _ := pairFDs(t)
	got, err := d.Assign(newClient(fd, "test"))
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if got != b0 {
		t.Errorf("equal loads dispatched to %s, want the lower slot SERVER_0", got.Name())
	}
}

func TestAssignSkipsEmptySlots(t *testing.T) {
	b := testBackend("SERVER_1", 1000)
	roster := NewRoster()
	roster.Populate(1, b) // slot 0 left empty, as after a dial failure
	d := NewDispatcher(roster, newTestJournal(t))

	fd, _ := pairFDs(t)
	got, err := d.Assign(newClient(fd, "test"))
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if got != b {
		t.Errorf("Assign chose %v", got)
	}
}

func TestAssignRejectsWhenAllFull(t *testing.T) {
	b := testBackend("SERVER_0", 4)
	b.numConns = 4 // load 1.0: not strictly below full
	roster := NewRoster()
	roster.Populate(0, b)
	d := NewDispatcher(roster, newTestJournal(t))

	fd, _ := pairFDs(t)
	c := newClient(fd, "test")
	if _, err := d.Assign(c); !errors.Is(err, api.ErrNoBackendAvailable) {
		t.Fatalf("Assign err = %v, want ErrNoBackendAvailable", err)
	}
	// The rejected client's socket must be closed.
	if _, err := unix.FcntlInt(uintptr(c.FD), unix.F_GETFD, 0); err == nil {
		t.Error("rejected client's descriptor still open")
	}
	if b.NumConns() != 4 {
		t.Errorf("numConns = %d, want unchanged 4", b.NumConns())
	}
}

func TestAssignInstallsParallelEntries(t *testing.T) {
	b := testBackend("SERVER_0", 8)
	roster := NewRoster()
	roster.Populate(0, b)
	d := NewDispatcher(roster, newTestJournal(t))

	var want []int
	for i := 0; i < 3; i++ {
		fd, _ := pairFDs(t)
		if _, err := d.Assign(newClient(fd, "test")); err != nil {
			t.Fatalf("Assign: %v", err)
		}
		want = append(want, fd)
	}

	if b.NumConns() != 3 || b.clients.Len() != 3 {
		t.Fatalf("numConns = %d, set len = %d, want 3/3", b.NumConns(), b.clients.Len())
	}
	for i, fd := range want {
		if b.clients.FD(i) != fd {
			t.Errorf("poll fd at %d = %d, want %d", i, b.clients.FD(i), fd)
		}
		if b.clients.Owner(i).FD != fd {
			t.Errorf("assigned client at %d holds fd %d, want %d", i, b.clients.Owner(i).FD, fd)
		}
	}
}

// Concurrent admissions must never overshoot the per-backend limit, and
// every client must end up either installed or rejected.
func TestAssignConcurrentHonorsCapacity(t *testing.T) {
	const limit = 4
	const attempts = 20
	b := testBackend("SERVER_0", limit)
	roster := NewRoster()
	roster.Populate(0, b)
	d := NewDispatcher(roster, newTestJournal(t))

	var wg sync.WaitGroup
	var mu sync.Mutex
	assigned, rejected := 0, 0
	for i := 0; i < attempts; i++ {
		fd, _ := pairFDs(t)
		wg.Add(1)
		go func(fd int) {
			defer wg.Done()
			_, err := d.Assign(newClient(fd, "test"))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				rejected++
			} else {
				assigned++
			}
		}(fd)
	}
	wg.Wait()

	if assigned+rejected != attempts {
		t.Errorf("assigned %d + rejected %d != %d", assigned, rejected, attempts)
	}
	if got := b.NumConns(); got > limit {
		t.Errorf("numConns = %d exceeds limit %d", got, limit)
	}
	if b.NumConns() != b.clients.Len() {
		t.Errorf("numConns %d != set len %d", b.NumConns(), b.clients.Len())
	}
	if assigned != limit {
		t.Errorf("assigned = %d, want exactly %d", assigned, limit)
	}
}
