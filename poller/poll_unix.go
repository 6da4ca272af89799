//go:build unix

// File: poller/poll_unix.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// poll(2) backend for Unix-like systems via golang.org/x/sys/unix.

package poller

import (
	"time"

	"golang.org/x/sys/unix"
)

type pollfd = unix.PollFd

const (
	eventRead = int16(unix.POLLIN)
	eventErr  = int16(unix.POLLERR)
	eventHup  = int16(unix.POLLHUP)
	eventNval = int16(unix.POLLNVAL)
)

// poll blocks up to timeout on the given descriptor slice. EINTR is not an
// error; the caller re-enters its loop and polls again.
func poll(fds []unix.PollFd, timeout time.Duration) (int, error) {
	n, err := unix.Poll(fds, int(timeout.Milliseconds()))
	if err == unix.EINTR {
		return 0, nil
	}
	return n, err
}
