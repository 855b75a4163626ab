package acceptor

import (
	"github.com/dodolib/dodo/buf"
	"github.com/dodolib/dodo/net/sock"
)

// State is the set of reasons a work unit was published. A unit's
// state may combine Read and Shut when a
// single readiness event reports both data and hangup.
type State int

const (
	// New marks a freshly accepted connection awaiting its handshake.
	New State = 1 << iota
	// Read marks a connection with bytes ready to be pulled off the
	// socket.
	Read
	// Shut marks a connection that must run its shutdown hook and be
	// closed.
	Shut
)

// Has reports whether flag is set in s.
func (s State) Has(flag State) bool { return s&flag != 0 }

func (s State) String() string {
	str := ""
	if s.Has(New) {
		str += "New"
	}
	if s.Has(Read) {
		if str != "" {
			str += "|"
		}
		str += "Read"
	}
	if s.Has(Shut) {
		if str != "" {
			str += "|"
		}
		str += "Shut"
	}
	if str == "" {
		return "None"
	}
	return str
}

// WorkUnit is published by the acceptor and drained by a worker. Its
// Buffer is the connection's private byte buffer: the worker's
// read-buffer fill hook appends to it, and a fragment parser consumes
// it directly, with no further copy.
type WorkUnit struct {
	ID     ConnID
	Socket *sock.StreamSocket
	State  State
	Buffer *buf.Buffer

	// done is how a worker reports completion back to the acceptor,
	// carrying the (possibly Shut-amended) terminal state.
	done chan<- *WorkUnit
}

// Release reports unit complete with completionState, handing it back
// to the acceptor for re-arming or teardown.
func (u *WorkUnit) Release(completionState State) {
	u.State = completionState
	u.done <- u
}

// NewWorkUnit constructs a WorkUnit wired to report its completion on
// done. The acceptor's own event loop builds units this way
// internally; it is exported so a worker's hooks can be driven
// against synthetic units in tests without a live acceptor.
func NewWorkUnit(id ConnID, socket *sock.StreamSocket, state State, buffer *buf.Buffer, done chan<- *WorkUnit) *WorkUnit {
	return &WorkUnit{ID: id, Socket: socket, State: state, Buffer: buffer, done: done}
}

// ConnID identifies a connection for its lifetime; it is an opaque,
// sortable, roughly-time-ordered token (see idgen.go), never reused.
type ConnID string
