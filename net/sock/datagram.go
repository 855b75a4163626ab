package sock

import (
	"golang.org/x/sys/unix"

	"github.com/dodolib/dodo/net/addr"
)

// DatagramSocket is a connectionless UDP or raw socket.
type DatagramSocket struct {
	Socket
}

// NewDatagram creates a UDP socket for the given address family.
func NewDatagram(family addr.Family) (*DatagramSocket, error) {
	fam := familyFor(family)
	fd, err := unix.Socket(fam, unix.SOCK_DGRAM, unix.IPPROTO_UDP)
	if err != nil {
		return nil, err
	}
	return &DatagramSocket{Socket{fd: fd, family: fam, typ: Datagram, blocking: true}}, nil
}

// NewRaw creates a raw socket for the given address family and IP
// protocol number (e.g. unix.IPPROTO_ICMP). Raw sockets require
// appropriate process privileges.
func NewRaw(family addr.Family, protocol int) (*DatagramSocket, error) {
	fam := familyFor(family)
	fd, err := unix.Socket(fam, unix.SOCK_RAW, protocol)
	if err != nil {
		return nil, err
	}
	return &DatagramSocket{Socket{fd: fd, family: fam, typ: Raw, blocking: true}}, nil
}

// Bind binds the socket to local.
func (s *DatagramSocket) Bind(local addr.Endpoint) error {
	sa, err := local.Sockaddr()
	if err != nil {
		return err
	}
	return unix.Bind(s.fd, sa)
}

// SendTo sends p to remote.
func (s *DatagramSocket) SendTo(remote addr.Endpoint, p []byte) (int, error) {
	sa, err := remote.Sockaddr()
	if err != nil {
		return 0, err
	}
	if err := unix.Sendto(s.fd, p, 0, sa); err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return 0, ErrWouldBlock
		}
		return 0, err
	}
	return len(p), nil
}

// RecvFrom receives into p, returning the byte count and the sender's
// endpoint.
func (s *DatagramSocket) RecvFrom(p []byte) (int, addr.Endpoint, error) {
	n, sa, err := unix.Recvfrom(s.fd, p, 0)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return 0, addr.Endpoint{}, ErrWouldBlock
		}
		return 0, addr.Endpoint{}, err
	}
	ep, err := addr.FromSockaddr(sa)
	if err != nil {
		return n, addr.Endpoint{}, err
	}
	return n, ep, nil
}
