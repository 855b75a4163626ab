// Package addr provides a family-agnostic network endpoint type used
// by the socket facade, independent of any particular resolver or
// transport implementation.
package addr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"

	"golang.org/x/sys/unix"
)

// Family identifies the address family carried by an Endpoint.
type Family int

const (
	// Invalid marks an Endpoint with no meaningful address.
	Invalid Family = iota
	IPv4
	IPv6
)

// ErrInvalidEndpoint is returned when parsing or conversion yields no
// usable address.
var ErrInvalidEndpoint = errors.New("addr: invalid endpoint")

// Endpoint is a family-tagged IPv4/IPv6 address plus a port. The port
// is meaningful only for stream or datagram protocols; raw sockets
// ignore it.
type Endpoint struct {
	family Family
	ip     netip.Addr
	port   uint16
}

// InvalidEndpoint returns the sentinel invalid endpoint.
func InvalidEndpoint() Endpoint { return Endpoint{family: Invalid} }

// Family reports the endpoint's address family.
func (e Endpoint) Family() Family { return e.family }

// IP returns the endpoint's address. The result is the zero value
// when Family is Invalid.
func (e Endpoint) IP() netip.Addr { return e.ip }

// Port returns the endpoint's port.
func (e Endpoint) Port() uint16 { return e.port }

// Equal reports byte-exact equality over the tagged address storage
// and port; two Invalid endpoints are equal.
func (e Endpoint) Equal(o Endpoint) bool {
	if e.family != o.family {
		return false
	}
	if e.family == Invalid {
		return true
	}
	return e.ip == o.ip && e.port == o.port
}

func (e Endpoint) String() string {
	if e.family == Invalid {
		return "<invalid>"
	}
	return net.JoinHostPort(e.ip.String(), fmt.Sprintf("%d", e.port))
}

// ParseEndpoint parses a literal IPv4 or IPv6 address, optionally
// followed by ":port", into an Endpoint.
func ParseEndpoint(s string) (Endpoint, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		// No port present; treat the whole string as a bare address.
		host, portStr = s, "0"
	}
	ip, err := netip.ParseAddr(host)
	if err != nil {
		return Endpoint{}, fmt.Errorf("%w: %v", ErrInvalidEndpoint, err)
	}
	var port uint64
	if portStr != "" {
		port, err = parseUint16(portStr)
		if err != nil {
			return Endpoint{}, fmt.Errorf("%w: bad port %q", ErrInvalidEndpoint, portStr)
		}
	}
	return fromNetipAddr(ip, uint16(port)), nil
}

func parseUint16(s string) (uint64, error) {
	var n uint64
	if s == "" {
		return 0, ErrInvalidEndpoint
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, ErrInvalidEndpoint
		}
		n = n*10 + uint64(c-'0')
		if n > 65535 {
			return 0, ErrInvalidEndpoint
		}
	}
	return n, nil
}

func fromNetipAddr(ip netip.Addr, port uint16) Endpoint {
	f := IPv4
	if ip.Is6() && !ip.Is4In6() {
		f = IPv6
	}
	return Endpoint{family: f, ip: ip.Unmap(), port: port}
}

// ResolveEndpoint looks up host via the standard library resolver and
// returns the first address of the requested network ("ip4", "ip6",
// or "ip" for either), combined with port. A full-featured resolver
// is explicitly out of scope for this module; this is the one
// DNS-lookup constructor the endpoint data model calls for.
func ResolveEndpoint(ctx context.Context, network, host string, port uint16) (Endpoint, error) {
	var r net.Resolver
	ips, err := r.LookupIP(ctx, network, host)
	if err != nil {
		return Endpoint{}, err
	}
	if len(ips) == 0 {
		return Endpoint{}, ErrInvalidEndpoint
	}
	addr, ok := netip.AddrFromSlice(ips[0])
	if !ok {
		return Endpoint{}, ErrInvalidEndpoint
	}
	return fromNetipAddr(addr, port), nil
}

// FromSockaddr converts a raw sockaddr, as returned by accept(2) or
// getsockname(2), into an Endpoint.
func FromSockaddr(sa unix.Sockaddr) (Endpoint, error) {
	switch s := sa.(type) {
	case *unix.SockaddrInet4:
		return Endpoint{family: IPv4, ip: netip.AddrFrom4(s.Addr), port: uint16(s.Port)}, nil
	case *unix.SockaddrInet6:
		return Endpoint{family: IPv6, ip: netip.AddrFrom16(s.Addr), port: uint16(s.Port)}, nil
	default:
		return Endpoint{}, ErrInvalidEndpoint
	}
}

// Sockaddr converts the endpoint to a raw sockaddr suitable for
// bind(2)/connect(2).
func (e Endpoint) Sockaddr() (unix.Sockaddr, error) {
	switch e.family {
	case IPv4:
		return &unix.SockaddrInet4{Port: int(e.port), Addr: e.ip.As4()}, nil
	case IPv6:
		return &unix.SockaddrInet6{Port: int(e.port), Addr: e.ip.As16()}, nil
	default:
		return nil, ErrInvalidEndpoint
	}
}
