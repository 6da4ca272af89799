//go:build !unix

// File: poller/poll_stub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Stub backend for platforms without poll(2).

package poller

import (
	"time"

	"github.com/momentics/hioload-lb/api"
)

type pollfd struct {
	Fd      int32
	Events  int16
	Revents int16
}

const (
	eventRead = int16(0x0001)
	eventErr  = int16(0x0008)
	eventHup  = int16(0x0010)
	eventNval = int16(0x0020)
)

func poll(fds []pollfd, timeout time.Duration) (int, error) {
	return 0, api.ErrNotSupported
}
