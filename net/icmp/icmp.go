// Package icmp implements ICMP Echo request/reply framing (v4 and
// v6) over a raw socket, per the wire-protocol skeleton in the
// module's external-interfaces surface. It does not interpret any
// payload beyond the echo header; checksum computation is exposed so
// callers can validate or build arbitrary packets.
package icmp

import (
	"encoding/binary"
	"errors"
	"os"

	"golang.org/x/sys/unix"

	"github.com/dodolib/dodo/net/addr"
	"github.com/dodolib/dodo/net/sock"
)

// ErrShortPacket is returned by RecvEcho when a packet is too short
// to contain an ICMP echo header.
var ErrShortPacket = errors.New("icmp: short packet")

const (
	typeEchoRequestV4 = 8
	typeEchoReplyV4   = 0
	typeEchoRequestV6 = 128
	typeEchoReplyV6   = 129
)

// Session sends and receives ICMP echo packets over a raw socket. The
// identifier defaults to the low 16 bits of the process id; sequence
// is a wrapping 16-bit counter owned by the session.
type Session struct {
	sock       *sock.DatagramSocket
	family     addr.Family
	identifier uint16
	sequence   uint16
}

// NewSession opens a raw ICMP socket for the given address family.
func NewSession(family addr.Family) (*Session, error) {
	proto := unix.IPPROTO_ICMP
	if family == addr.IPv6 {
		proto = unix.IPPROTO_ICMPV6
	}
	raw, err := sock.NewRaw(family, proto)
	if err != nil {
		return nil, err
	}
	return &Session{
		sock:       raw,
		family:     family,
		identifier: uint16(os.Getpid() & 0xffff),
	}, nil
}

// Close closes the underlying raw socket.
func (s *Session) Close() error { return s.sock.Close() }

// SendEcho sends an echo request carrying payload to dst, returning
// the sequence number used.
func (s *Session) SendEcho(dst addr.Endpoint, payload []byte) (uint16, error) {
	seq := s.sequence
	s.sequence++

	pkt := buildEcho(s.family, s.identifier, seq, payload)
	if _, err := s.sock.SendTo(dst, pkt); err != nil {
		return seq, err
	}
	return seq, nil
}

// RecvEcho receives the next raw packet and parses it as an echo
// reply, returning the identifier, sequence, and payload it carried.
func (s *Session) RecvEcho(buf []byte) (identifier, sequence uint16, payload []byte, from addr.Endpoint, err error) {
	n, from, err := s.sock.RecvFrom(buf)
	if err != nil {
		return 0, 0, nil, addr.Endpoint{}, err
	}
	p := buf[:n]
	// IPv4 raw sockets hand back the IP header too; skip it using the
	// low 4 bits of the first octet (IHL, in 32-bit words).
	if s.family == addr.IPv4 && len(p) > 0 {
		ihl := int(p[0]&0x0f) * 4
		if ihl <= len(p) {
			p = p[ihl:]
		}
	}
	if len(p) < 8 {
		return 0, 0, nil, from, ErrShortPacket
	}
	identifier = binary.BigEndian.Uint16(p[4:6])
	sequence = binary.BigEndian.Uint16(p[6:8])
	payload = p[8:]
	return identifier, sequence, payload, from, nil
}

func buildEcho(family addr.Family, identifier, sequence uint16, payload []byte) []byte {
	pkt := make([]byte, 8+len(payload))
	typ := byte(typeEchoRequestV4)
	if family == addr.IPv6 {
		typ = typeEchoRequestV6
	}
	pkt[0] = typ
	pkt[1] = 0 // code
	binary.BigEndian.PutUint16(pkt[4:6], identifier)
	binary.BigEndian.PutUint16(pkt[6:8], sequence)
	copy(pkt[8:], payload)

	// IPv6 checksum is computed over a pseudo-header by the kernel;
	// only IPv4 needs it filled in here.
	if family == addr.IPv4 {
		binary.BigEndian.PutUint16(pkt[2:4], Checksum(pkt))
	}
	return pkt
}

// Checksum computes the RFC 1071 one's-complement checksum over p,
// treating the two octets at offset 2 (the checksum field itself) as
// zero while summing.
func Checksum(p []byte) uint16 {
	var sum uint32
	for i := 0; i+1 < len(p); i += 2 {
		if i == 2 { // skip the checksum field itself
			continue
		}
		sum += uint32(p[i])<<8 | uint32(p[i+1])
	}
	if len(p)%2 == 1 {
		sum += uint32(p[len(p)-1]) << 8
	}
	for sum>>16 != 0 {
		sum = (sum & 0xffff) + (sum >> 16)
	}
	return ^uint16(sum)
}
