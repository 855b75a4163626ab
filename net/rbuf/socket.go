package rbuf

import (
	"errors"

	"github.com/dodolib/dodo/net/sock"
)

// socketReader adapts a *sock.StreamSocket to the refiller interface,
// translating sock.ErrWouldBlock to rbuf.ErrWouldBlock.
type socketReader struct {
	s *sock.StreamSocket
}

func (r socketReader) Read(p []byte) (int, error) {
	n, err := r.s.Read(p)
	if errors.Is(err, sock.ErrWouldBlock) {
		return n, ErrWouldBlock
	}
	return n, err
}

// NewSocketCursor returns a Cursor that refills from a blocking
// stream socket into an internal window of at least MinWindow bytes
// (DefaultWindow if windowSize is zero).
func NewSocketCursor(s *sock.StreamSocket, windowSize int) *Cursor {
	if windowSize == 0 {
		windowSize = DefaultWindow
	}
	return newCursor(socketReader{s}, windowSize)
}
