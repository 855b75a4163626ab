package worker

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dodolib/dodo/net/sock"
	"github.com/dodolib/dodo/server/acceptor"
)

type fakeHooks struct {
	handshakeErr error
	readErr      error
	respErr      error
	shutdownCh   chan struct{}
}

func (h *fakeHooks) Handshake(*sock.StreamSocket) error { return h.handshakeErr }
func (h *fakeHooks) FillReadBuffer(*acceptor.WorkUnit) error {
	return h.readErr
}
func (h *fakeHooks) RequestResponse(*acceptor.WorkUnit) error { return h.respErr }
func (h *fakeHooks) Shutdown(*sock.StreamSocket) error {
	if h.shutdownCh != nil {
		close(h.shutdownCh)
	}
	return nil
}

func TestDrainNewAndReadSucceeds(t *testing.T) {
	hooks := &fakeHooks{}
	done := make(chan *acceptor.WorkUnit, 1)
	unit := acceptor.NewWorkUnit("conn-1", &sock.StreamSocket{}, acceptor.New|acceptor.Read, nil, done)

	phase := Wait
	drain(unit, hooks, &phase)

	released := <-done
	if released.State.Has(acceptor.Shut) {
		t.Fatalf("expected a clean completion, got %v", released.State)
	}
	if phase != ReleaseWorkDone {
		t.Fatalf("got final phase %v, want ReleaseWorkDone", phase)
	}
}

func TestDrainShutdownInvokedOnHandshakeFailure(t *testing.T) {
	shutdownCh := make(chan struct{})
	hooks := &fakeHooks{handshakeErr: errors.New("boom"), shutdownCh: shutdownCh}

	done := make(chan *acceptor.WorkUnit, 1)
	unit := acceptor.NewWorkUnit("conn-2", &sock.StreamSocket{}, acceptor.New, nil, done)

	phase := Wait
	drain(unit, hooks, &phase)

	select {
	case <-shutdownCh:
	case <-time.After(time.Second):
		t.Fatal("shutdown hook was not invoked after handshake failure")
	}

	released := <-done
	if !released.State.Has(acceptor.Shut) {
		t.Fatalf("expected completion to include Shut, got %v", released.State)
	}
}

func TestRunExitsWhenJobsChannelCloses(t *testing.T) {
	jobs := make(chan *acceptor.WorkUnit)
	close(jobs)
	var idle atomic.Int64
	stop := make(chan struct{})
	run(jobs, &fakeHooks{}, &idle, stop)
	if idle.Load() == 0 {
		t.Fatalf("expected idle timestamp to be set")
	}
}

func TestPhaseStrings(t *testing.T) {
	if Wait.String() != "Wait" || ReleaseWorkDone.String() != "ReleaseWorkDone" {
		t.Fatalf("unexpected phase strings")
	}
}
