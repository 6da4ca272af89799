// File: balancer/forward.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package balancer

import "github.com/momentics/hioload-lb/transport"

// ForwardFunc is the outbound hook a worker invokes for every payload
// drained from a client: forward buf to this backend's outbound socket.
// The hook is swappable through Config for tracing and tests.
type ForwardFunc func(b *Backend, payload []byte) error

// ForwardToBackend is the default hook. It writes the payload to the
// backend's outbound socket in full.
func ForwardToBackend(b *Backend, payload []byte) error {
	_, err := transport.Write(b.FD(), payload)
	return err
}
