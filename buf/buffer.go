// Package buf provides a growable octet buffer used throughout the
// protocol and storage layers: parsed HTTP/STOMP bodies, connection
// read windows, and storage-engine row payloads are all backed by a
// [Buffer].
package buf

import (
	"encoding/base64"
	"errors"
)

// chunk is the granularity Reserve grows capacity by.
const chunk = 64

// ErrInvalidContent is returned by AsString when the buffer holds an
// embedded zero octet other than as its final byte.
var ErrInvalidContent = errors.New("buf: invalid content for string conversion")

// Buffer is an owned, growable sequence of octets. The zero value is
// an empty, ready-to-use buffer.
type Buffer struct {
	b []byte
}

// New returns an empty buffer with capacity for at least n octets.
func New(n int) *Buffer {
	b := new(Buffer)
	b.Reserve(n)
	return b
}

// FromBytes returns a buffer that owns a copy of p.
func FromBytes(p []byte) *Buffer {
	b := new(Buffer)
	b.Append(p)
	return b
}

// Len returns the number of octets currently held.
func (b *Buffer) Len() int { return len(b.b) }

// Cap returns the current backing capacity.
func (b *Buffer) Cap() int { return cap(b.b) }

// Bytes returns the buffer's contents. The slice aliases the buffer's
// backing array and is invalidated by the next mutating call.
func (b *Buffer) Bytes() []byte { return b.b }

// Reserve grows capacity to at least n octets, rounded up to a
// multiple of the internal chunk size. It never shrinks capacity.
func (b *Buffer) Reserve(n int) {
	if cap(b.b) >= n {
		return
	}
	want := ((n + chunk - 1) / chunk) * chunk
	grown := make([]byte, len(b.b), want)
	copy(grown, b.b)
	b.b = grown
}

// AppendByte appends a single octet.
func (b *Buffer) AppendByte(c byte) {
	b.Reserve(len(b.b) + 1)
	b.b = append(b.b, c)
}

// Append appends the contents of p.
func (b *Buffer) Append(p []byte) {
	b.Reserve(len(b.b) + len(p))
	b.b = append(b.b, p...)
}

// AppendBuffer appends at most n octets of other (all of it, if n < 0
// or n > other.Len()).
func (b *Buffer) AppendBuffer(other *Buffer, n int) {
	src := other.b
	if n >= 0 && n < len(src) {
		src = src[:n]
	}
	b.Append(src)
}

// Free releases the buffer's contents, returning it to empty.
func (b *Buffer) Free() {
	b.b = nil
}

// MatchResult classifies the relationship between two buffers'
// prefixes, as returned by Match.
type MatchResult int

const (
	// Mismatch: the compared prefixes differ.
	Mismatch MatchResult = iota
	// Contained: self is a prefix of other (self is the shorter one).
	Contained
	// Contains: other is a prefix of self (self is the longer one).
	Contains
	// Full: self and other are byte-identical over the compared range.
	Full
)

// Match scans at most min(len(self)-start, len(other)) octets
// starting at offset start in self, and classifies the common
// prefix. start must be in [0, b.Len()]; a start equal to b.Len() is
// a valid, trivially empty scan.
func (b *Buffer) Match(other *Buffer, start int) MatchResult {
	self := b.b[start:]
	o := other.b

	n := len(self)
	if len(o) < n {
		n = len(o)
	}

	for i := 0; i < n; i++ {
		if self[i] != o[i] {
			return Mismatch
		}
	}

	switch {
	case len(self) == len(o):
		return Full
	case len(self) < len(o):
		return Contained
	default:
		return Contains
	}
}

// EncodeBase64 returns the standard base64 encoding of the buffer's
// contents, with no line separators.
func (b *Buffer) EncodeBase64() string {
	return base64.StdEncoding.EncodeToString(b.b)
}

// DecodeBase64 replaces the buffer's contents with the decoding of s.
func (b *Buffer) DecodeBase64(s string) error {
	decoded, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return err
	}
	b.Free()
	b.Append(decoded)
	return nil
}

// AsString returns the buffer's contents as a string. It fails with
// ErrInvalidContent if the buffer contains an embedded zero octet
// anywhere other than as its final byte.
func (b *Buffer) AsString() (string, error) {
	for i, c := range b.b {
		if c == 0 && i != len(b.b)-1 {
			return "", ErrInvalidContent
		}
	}
	return string(b.b), nil
}

// Clone returns a new Buffer holding a copy of b's contents.
func (b *Buffer) Clone() *Buffer {
	return FromBytes(b.b)
}
