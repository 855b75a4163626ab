// Package worker implements the drain side of the acceptor/worker
// runtime: a goroutine that repeatedly waits for work units from the
// acceptor, runs the handshake/read/shutdown hooks the caller
// supplies, and releases each unit's completion state back.
package worker

import (
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"

	"github.com/dodolib/dodo/net/sock"
	"github.com/dodolib/dodo/server/acceptor"
)

// Hooks are the user-supplied callbacks a worker invokes while
// draining a work unit.
type Hooks interface {
	// Handshake runs once, when a unit's state contains New.
	Handshake(sock *sock.StreamSocket) error
	// FillReadBuffer appends newly arrived bytes from the socket into
	// the unit's buffer, when a unit's state contains Read.
	FillReadBuffer(unit *acceptor.WorkUnit) error
	// RequestResponse consumes the unit's buffer and writes a
	// response, when a unit's state contains Read.
	RequestResponse(unit *acceptor.WorkUnit) error
	// Shutdown runs once, when a unit's state contains Shut.
	Shutdown(sock *sock.StreamSocket) error
}

// Phase is the worker's observable state, sampled for logging and
// tests.
type Phase int

const (
	Wait Phase = iota
	Awoken
	Handshake
	HandshakeDone
	ReadSocket
	ReadSocketDone
	Shutdown
	ShutdownDone
	ReleaseWork
	ReleaseWorkDone
)

func (p Phase) String() string {
	switch p {
	case Wait:
		return "Wait"
	case Awoken:
		return "Awoken"
	case Handshake:
		return "Handshake"
	case HandshakeDone:
		return "HandshakeDone"
	case ReadSocket:
		return "ReadSocket"
	case ReadSocketDone:
		return "ReadSocketDone"
	case Shutdown:
		return "Shutdown"
	case ShutdownDone:
		return "ShutdownDone"
	case ReleaseWork:
		return "ReleaseWork"
	case ReleaseWorkDone:
		return "ReleaseWorkDone"
	default:
		return "Unknown"
	}
}

// idleSamplePeriod bounds how stale the acceptor's view of a worker's
// last-activity timestamp may be.
const idleSamplePeriod = 200 * time.Millisecond

// Spawn returns an acceptor.SpawnFunc bound to hooks, suitable for
// passing to acceptor.New.
func Spawn(hooks Hooks) acceptor.SpawnFunc {
	return func(jobs <-chan *acceptor.WorkUnit, idle *atomic.Int64, stop <-chan struct{}, stopped *atomic.Bool) {
		defer stopped.Store(true)
		run(jobs, hooks, idle, stop)
	}
}

func run(jobs <-chan *acceptor.WorkUnit, hooks Hooks, idle *atomic.Int64, stop <-chan struct{}) {
	phase := Wait
	markIdle(idle)
	ticker := time.NewTicker(idleSamplePeriod)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			// The last-activity stamp is not refreshed while waiting,
			// so an idle worker's stamp ages toward server-idle-ttl.
		case unit, ok := <-jobs:
			if !ok {
				return
			}
			phase = Awoken
			drain(unit, hooks, &phase)
			markIdle(idle)
			phase = Wait
		}
	}
}

func markIdle(idle *atomic.Int64) {
	idle.Store(time.Now().UnixNano())
}

// drain runs a single work unit through the handshake/read/shutdown
// hooks that apply to its state, then releases it. A hook failure is
// logged and folds Shut into the completion state rather than
// propagating; a panic from a hook is recovered for the same reason
// and likewise folds in Shut.
func drain(unit *acceptor.WorkUnit, hooks Hooks, phase *Phase) {
	completion := unit.State &^ (acceptor.New | acceptor.Read)

	defer func() {
		if r := recover(); r != nil {
			slog.Error("worker: hook panicked", "conn", unit.ID, "panic", r)
			completion |= acceptor.Shut
		}
		*phase = ReleaseWork
		unit.Release(completion)
		*phase = ReleaseWorkDone
	}()

	if unit.State.Has(acceptor.New) {
		*phase = Handshake
		if err := hooks.Handshake(unit.Socket); err != nil {
			slog.Warn("worker: handshake failed", "conn", unit.ID, "err", err)
			completion |= acceptor.Shut
		}
		*phase = HandshakeDone
	}

	if unit.State.Has(acceptor.Read) && !completion.Has(acceptor.Shut) {
		*phase = ReadSocket
		if err := hooks.FillReadBuffer(unit); err != nil && !isBenign(err) {
			slog.Warn("worker: read fill failed", "conn", unit.ID, "err", err)
			completion |= acceptor.Shut
		} else if err := hooks.RequestResponse(unit); err != nil && !isBenign(err) {
			slog.Warn("worker: request-response failed", "conn", unit.ID, "err", err)
			completion |= acceptor.Shut
		}
		*phase = ReadSocketDone
	}

	if unit.State.Has(acceptor.Shut) || completion.Has(acceptor.Shut) {
		*phase = Shutdown
		if err := hooks.Shutdown(unit.Socket); err != nil {
			slog.Warn("worker: shutdown hook failed", "conn", unit.ID, "err", err)
		}
		completion |= acceptor.Shut
		*phase = ShutdownDone
	}
}

// isBenign reports whether err is WouldBlock or ConnectionAborted,
// the two request-response outcomes that do not shut the connection.
func isBenign(err error) bool {
	return errors.Is(err, sock.ErrWouldBlock) || errors.Is(err, unix.ECONNABORTED)
}
