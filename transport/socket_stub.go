//go:build !unix

// File: transport/socket_stub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Stub socket layer for platforms without raw poll(2)-compatible sockets.

package transport

import "github.com/momentics/hioload-lb/api"

func Listen(port, backlog int) (int, error)   { return -1, api.ErrNotSupported }
func LocalPort(fd int) (int, error)           { return 0, api.ErrNotSupported }
func Accept(lfd int) (int, string, error)     { return -1, "", api.ErrNotSupported }
func Dial(address string, port int) (int, error) { return -1, api.ErrNotSupported }
func Read(fd int, buf []byte) (int, error)    { return 0, api.ErrNotSupported }
func Write(fd int, buf []byte) (int, error)   { return 0, api.ErrNotSupported }
func Close(fd int) error                      { return api.ErrNotSupported }
