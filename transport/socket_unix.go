//go:build unix

// File: transport/socket_unix.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Raw TCP/IPv4 socket layer over golang.org/x/sys/unix. The balancer works
// on plain file descriptors end to end so that client sockets can be placed
// directly into a backend's poll set.

package transport

import (
	"fmt"
	"net/netip"

	"golang.org/x/sys/unix"
)

// Listen opens a blocking TCP/IPv4 listening socket bound to INADDR_ANY on
// the given port with the given backlog, and returns its descriptor.
// Port 0 binds an ephemeral port; see LocalPort.
func Listen(port, backlog int) (int, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, fmt.Errorf("socket create: %w", err)
	}
	_ = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	if err := unix.Bind(fd, &unix.SockaddrInet4{Port: port}); err != nil {
		_ = unix.Close(fd)
		return -1, fmt.Errorf("bind port %d: %w", port, err)
	}
	if err := unix.Listen(fd, backlog); err != nil {
		_ = unix.Close(fd)
		return -1, fmt.Errorf("listen: %w", err)
	}
	return fd, nil
}

// LocalPort reports the port a listening descriptor is bound to.
func LocalPort(fd int) (int, error) {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return 0, fmt.Errorf("getsockname: %w", err)
	}
	in4, ok := sa.(*unix.SockaddrInet4)
	if !ok {
		return 0, fmt.Errorf("getsockname: not an IPv4 socket")
	}
	return in4.Port, nil
}

// Accept blocks until an inbound connection arrives on lfd and returns the
// connected descriptor along with the peer address in host:port form.
// EINTR is retried.
func Accept(lfd int) (int, string, error) {
	for {
		fd, sa, err := unix.Accept(lfd)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return -1, "", fmt.Errorf("accept: %w", err)
		}
		return fd, formatSockaddr(sa), nil
	}
}

// Dial opens a blocking TCP connection to address:port, where address is an
// IPv4 literal in dotted-quad form, and returns the connected descriptor.
func Dial(address string, port int) (int, error) {
	ip, err := netip.ParseAddr(address)
	if err != nil || !ip.Is4() {
		return -1, fmt.Errorf("dial %s:%d: invalid IPv4 literal", address, port)
	}
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, fmt.Errorf("socket create: %w", err)
	}
	sa := &unix.SockaddrInet4{Port: port, Addr: ip.As4()}
	if err := unix.Connect(fd, sa); err != nil {
		_ = unix.Close(fd)
		return -1, fmt.Errorf("connect %s:%d: %w", address, port, err)
	}
	return fd, nil
}

// Read reads up to len(buf) bytes from fd. EINTR is retried. A return of
// zero bytes with nil error means the peer closed the connection.
func Read(fd int, buf []byte) (int, error) {
	for {
		n, err := unix.Read(fd, buf)
		if err == unix.EINTR {
			continue
		}
		return n, err
	}
}

// Write writes the whole buffer to fd, retrying on short writes and EINTR.
func Write(fd int, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := unix.Write(fd, buf[total:])
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// Close releases the descriptor. A socket is shut down first, so that a
// goroutine blocked in accept or read on it returns.
func Close(fd int) error {
	_ = unix.Shutdown(fd, unix.SHUT_RDWR)
	return unix.Close(fd)
}

func formatSockaddr(sa unix.Sockaddr) string {
	if in4, ok := sa.(*unix.SockaddrInet4); ok {
		return fmt.Sprintf("%s:%d", netip.AddrFrom4(in4.Addr), in4.Port)
	}
	return "unknown"
}
