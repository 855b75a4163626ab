package sock

import (
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/sys/unix"

	"github.com/dodolib/dodo/net/addr"
)

// StreamSocket is a TCP-flavored socket: connectable, listenable, and
// carrying the typed send/receive helpers the protocol layers build
// on.
type StreamSocket struct {
	Socket
}

// NewStream creates an unbound, unconnected stream socket for the
// given address family.
func NewStream(family addr.Family) (*StreamSocket, error) {
	fam := familyFor(family)
	fd, err := unix.Socket(fam, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return nil, err
	}
	return &StreamSocket{Socket{fd: fd, family: fam, typ: Stream, blocking: true}}, nil
}

// Listen binds to local and begins listening with the given accept
// backlog.
func (s *StreamSocket) Listen(local addr.Endpoint, backlog int) error {
	sa, err := local.Sockaddr()
	if err != nil {
		return err
	}
	if err := unix.Bind(s.fd, sa); err != nil {
		return fmt.Errorf("sock: bind %s: %w", local, err)
	}
	return unix.Listen(s.fd, backlog)
}

// Accept accepts a pending connection. On a non-blocking listener
// with nothing pending, it returns ErrWouldBlock instead of an OS
// error.
func (s *StreamSocket) Accept() (*StreamSocket, addr.Endpoint, error) {
	nfd, sa, err := unix.Accept(s.fd)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return nil, addr.Endpoint{}, ErrWouldBlock
		}
		return nil, addr.Endpoint{}, err
	}
	ep, err := addr.FromSockaddr(sa)
	if err != nil {
		unix.Close(nfd)
		return nil, addr.Endpoint{}, err
	}
	return &StreamSocket{Socket{fd: nfd, family: s.family, typ: Stream, blocking: true}}, ep, nil
}

// Connect attempts to establish a connection to remote. On a
// non-blocking socket, a connection in progress is reported as
// ConnectWouldBlock rather than an error.
func (s *StreamSocket) Connect(remote addr.Endpoint) ConnectResult {
	sa, err := remote.Sockaddr()
	if err != nil {
		return ConnectRefused
	}
	err = unix.Connect(s.fd, sa)
	return connectErrToResult(err)
}

// SetNoDelay toggles TCP_NODELAY.
func (s *StreamSocket) SetNoDelay(v bool) error {
	return unix.SetsockoptInt(s.fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, boolToInt(v))
}

// SetKeepAlive toggles SO_KEEPALIVE and, when enabling, the
// platform's idle-before-probe interval.
func (s *StreamSocket) SetKeepAlive(v bool, idleSeconds int) error {
	if err := unix.SetsockoptInt(s.fd, unix.SOL_SOCKET, unix.SO_KEEPALIVE, boolToInt(v)); err != nil {
		return err
	}
	if !v {
		return nil
	}
	return setKeepAliveIdle(s.fd, idleSeconds)
}

// Read implements io.Reader over the raw descriptor.
func (s *StreamSocket) Read(p []byte) (int, error) {
	n, err := unix.Read(s.fd, p)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return 0, ErrWouldBlock
		}
		return 0, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

// Write implements io.Writer over the raw descriptor, looping until
// all of p is written (blocking sockets only).
func (s *StreamSocket) Write(p []byte) (int, error) {
	total := 0
	for total < len(p) {
		n, err := unix.Write(s.fd, p[total:])
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return total, ErrWouldBlock
			}
			return total, err
		}
		total += n
	}
	return total, nil
}

// SendUint32 sends a big-endian uint32. Presumes blocking mode and
// loops internally until all four octets are transferred.
func (s *StreamSocket) SendUint32(v uint32) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	_, err := s.Write(b[:])
	return err
}

// RecvUint32 receives a big-endian uint32, looping until all four
// octets arrive.
func (s *StreamSocket) RecvUint32() (uint32, error) {
	var b [4]byte
	if err := readFull(s, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

// SendString sends s as a big-endian length-prefixed string.
func (s *StreamSocket) SendString(str string) error {
	if err := s.SendUint32(uint32(len(str))); err != nil {
		return err
	}
	_, err := s.Write([]byte(str))
	return err
}

// RecvString receives a big-endian length-prefixed string.
func (s *StreamSocket) RecvString() (string, error) {
	n, err := s.RecvUint32()
	if err != nil {
		return "", err
	}
	b := make([]byte, n)
	if err := readFull(s, b); err != nil {
		return "", err
	}
	return string(b), nil
}

// SendLine sends s followed by a newline.
func (s *StreamSocket) SendLine(str string) error {
	_, err := s.Write(append([]byte(str), '\n'))
	return err
}

// RecvLine receives octets up to (and consuming) a terminating
// newline, looping on the blocking socket until it arrives. The
// newline is not included in the result.
func (s *StreamSocket) RecvLine() (string, error) {
	var line []byte
	var b [1]byte
	for {
		if err := readFull(s, b[:]); err != nil {
			return "", err
		}
		if b[0] == '\n' {
			return string(line), nil
		}
		line = append(line, b[0])
	}
}

func readFull(r io.Reader, b []byte) error {
	_, err := io.ReadFull(r, b)
	return err
}
