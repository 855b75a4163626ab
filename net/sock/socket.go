// Package sock provides a thin, non-owning facade over OS socket
// descriptors: stream and datagram flavors, typed send/receive
// helpers, and the handful of socket options the acceptor/worker
// runtime depends on.
package sock

import (
	"errors"
	"time"

	"golang.org/x/sys/unix"

	"github.com/dodolib/dodo/net/addr"
)

// Type enumerates the socket type requested at creation.
type Type int

const (
	Stream Type = iota
	Datagram
	Raw
)

// ConnectResult enumerates the outcomes of a connect attempt.
type ConnectResult int

const (
	ConnectOK ConnectResult = iota
	ConnectWouldBlock
	ConnectAddrInUse
	ConnectRefused
	ConnectNetUnreachable
	ConnectTimedOut
	ConnectPermissionDenied
)

func (r ConnectResult) String() string {
	switch r {
	case ConnectOK:
		return "OK"
	case ConnectWouldBlock:
		return "WouldBlock"
	case ConnectAddrInUse:
		return "AddressInUse"
	case ConnectRefused:
		return "Refused"
	case ConnectNetUnreachable:
		return "NetUnreachable"
	case ConnectTimedOut:
		return "TimedOut"
	case ConnectPermissionDenied:
		return "PermissionDenied"
	default:
		return "Unknown"
	}
}

// ErrWouldBlock is returned by Accept on a non-blocking listener with
// no pending connection, and by send/receive helpers that hit
// EAGAIN/EWOULDBLOCK on a non-blocking socket.
var ErrWouldBlock = errors.New("sock: would block")

// ErrClosed names the condition of a socket already closed through
// this wrapper. The wrapper's own operations do not check for it: on
// a closed wrapper they reach the OS and return its error instead.
var ErrClosed = errors.New("sock: socket closed")

// Socket is a non-owning handle over an OS descriptor plus its
// configured parameters. Closing a Socket closes the underlying
// descriptor, but the wrapper itself never closes on garbage
// collection: two wrappers may reference the same descriptor, and
// ownership of when to close is entirely the caller's.
type Socket struct {
	fd       int
	family   int // unix.AF_INET or unix.AF_INET6
	typ      Type
	blocking bool
	closed   bool
}

// FD returns the underlying OS descriptor.
func (s *Socket) FD() int { return s.fd }

// Closed reports whether Close has already been called on this
// wrapper.
func (s *Socket) Closed() bool { return s.closed }

// Close closes the underlying descriptor. Safe to call more than
// once; subsequent calls are no-ops.
func (s *Socket) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return unix.Close(s.fd)
}

// SetBlocking toggles blocking mode on the descriptor.
func (s *Socket) SetBlocking(blocking bool) error {
	if err := unix.SetNonblock(s.fd, !blocking); err != nil {
		return err
	}
	s.blocking = blocking
	return nil
}

// Blocking reports the last blocking mode set through this wrapper.
func (s *Socket) Blocking() bool { return s.blocking }

// SetTTL sets the IP time-to-live / hop-limit on outgoing packets.
func (s *Socket) SetTTL(ttl int) error {
	if s.family == unix.AF_INET6 {
		return unix.SetsockoptInt(s.fd, unix.IPPROTO_IPV6, unix.IPV6_UNICAST_HOPS, ttl)
	}
	return unix.SetsockoptInt(s.fd, unix.IPPROTO_IP, unix.IP_TTL, ttl)
}

// SetSendBuffer sets SO_SNDBUF.
func (s *Socket) SetSendBuffer(n int) error {
	return unix.SetsockoptInt(s.fd, unix.SOL_SOCKET, unix.SO_SNDBUF, n)
}

// SetRecvBuffer sets SO_RCVBUF.
func (s *Socket) SetRecvBuffer(n int) error {
	return unix.SetsockoptInt(s.fd, unix.SOL_SOCKET, unix.SO_RCVBUF, n)
}

// SetSendTimeout sets SO_SNDTIMEO. A zero duration clears the
// timeout.
func (s *Socket) SetSendTimeout(d time.Duration) error {
	return unix.SetsockoptTimeval(s.fd, unix.SOL_SOCKET, unix.SO_SNDTIMEO, durationToTimeval(d))
}

// SetRecvTimeout sets SO_RCVTIMEO. A zero duration clears the
// timeout.
func (s *Socket) SetRecvTimeout(d time.Duration) error {
	return unix.SetsockoptTimeval(s.fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, durationToTimeval(d))
}

// SetReuseAddr sets SO_REUSEADDR.
func (s *Socket) SetReuseAddr(v bool) error {
	return unix.SetsockoptInt(s.fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, boolToInt(v))
}

// SetReusePort sets SO_REUSEPORT, where supported.
func (s *Socket) SetReusePort(v bool) error {
	return setReusePort(s.fd, v)
}

// LocalEndpoint returns the endpoint bound to this socket.
func (s *Socket) LocalEndpoint() (addr.Endpoint, error) {
	sa, err := unix.Getsockname(s.fd)
	if err != nil {
		return addr.Endpoint{}, err
	}
	return addr.FromSockaddr(sa)
}

// RemoteEndpoint returns the peer endpoint of a connected socket.
func (s *Socket) RemoteEndpoint() (addr.Endpoint, error) {
	sa, err := unix.Getpeername(s.fd)
	if err != nil {
		return addr.Endpoint{}, err
	}
	return addr.FromSockaddr(sa)
}

func durationToTimeval(d time.Duration) *unix.Timeval {
	sec := int64(d / time.Second)
	usec := int64((d % time.Second) / time.Microsecond)
	return &unix.Timeval{Sec: sec, Usec: usec}
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func familyFor(f addr.Family) int {
	if f == addr.IPv6 {
		return unix.AF_INET6
	}
	return unix.AF_INET
}

func connectErrToResult(err error) ConnectResult {
	switch {
	case err == nil:
		return ConnectOK
	case errors.Is(err, unix.EINPROGRESS), errors.Is(err, unix.EALREADY), errors.Is(err, unix.EAGAIN):
		return ConnectWouldBlock
	case errors.Is(err, unix.EADDRINUSE):
		return ConnectAddrInUse
	case errors.Is(err, unix.ECONNREFUSED):
		return ConnectRefused
	case errors.Is(err, unix.ENETUNREACH), errors.Is(err, unix.EHOSTUNREACH):
		return ConnectNetUnreachable
	case errors.Is(err, unix.ETIMEDOUT):
		return ConnectTimedOut
	case errors.Is(err, unix.EACCES), errors.Is(err, unix.EPERM):
		return ConnectPermissionDenied
	default:
		return ConnectRefused
	}
}
