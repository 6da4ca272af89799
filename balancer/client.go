// File: balancer/client.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package balancer

import "sync/atomic"

var nextClientID atomic.Int64

// Client is one accepted downstream connection. A client belongs to exactly
// one backend's poll set from dispatch until disconnect.
type Client struct {
	ID   int64
	FD   int
	Addr string
}

// newClient mints a client record with a process-unique identifier.
func newClient(fd int, addr string) *Client {
	return &Client{
		ID:   nextClientID.Add(1),
		FD:   fd,
		Addr: addr,
	}
}
