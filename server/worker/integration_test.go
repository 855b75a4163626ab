package worker

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dodolib/dodo/net/addr"
	"github.com/dodolib/dodo/net/rbuf"
	"github.com/dodolib/dodo/net/sock"
	"github.com/dodolib/dodo/proto/frame"
	dodohttp "github.com/dodolib/dodo/proto/http"
	"github.com/dodolib/dodo/server/acceptor"
)

// countingHooks serves a fixed HTTP response per request while
// counting hook invocations, so a test can assert the
// handshake → request-response → shutdown ordering contract across
// many concurrent connections.
type countingHooks struct {
	handshakes atomic.Int64
	responses  atomic.Int64
	shutdowns  atomic.Int64
	bytesRead  atomic.Int64
}

func (h *countingHooks) Handshake(*sock.StreamSocket) error {
	h.handshakes.Add(1)
	return nil
}

func (h *countingHooks) FillReadBuffer(unit *acceptor.WorkUnit) error {
	var window [4096]byte
	for {
		n, err := unit.Socket.Read(window[:])
		if n > 0 {
			unit.Buffer.Append(window[:n])
			h.bytesRead.Add(int64(n))
		}
		if err != nil {
			if errors.Is(err, sock.ErrWouldBlock) {
				return nil
			}
			return err
		}
	}
}

func (h *countingHooks) RequestResponse(unit *acceptor.WorkUnit) error {
	c := rbuf.NewStringCursor(string(unit.Buffer.Bytes()))
	req := dodohttp.NewRequest()
	res := req.Parse(c)
	switch res.Err {
	case frame.Ok:
	case frame.Incomplete:
		return sock.ErrWouldBlock
	default:
		return fmt.Errorf("parse: %s", res.Err)
	}
	unit.Buffer.Free()

	resp := dodohttp.NewResponse()
	resp.StatusCode = 200
	resp.Reason = "OK"
	resp.SetBody([]byte("ok\n"))
	if _, err := unit.Socket.Write([]byte(resp.Serialize())); err != nil {
		return err
	}
	h.responses.Add(1)
	return nil
}

func (h *countingHooks) Shutdown(*sock.StreamSocket) error {
	h.shutdowns.Add(1)
	return nil
}

func TestAcceptorWorkerEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("end-to-end networking test")
	}

	const clients = 16

	local, err := addr.ParseEndpoint("127.0.0.1:0")
	if err != nil {
		t.Fatalf("ParseEndpoint: %v", err)
	}

	opts := acceptor.DefaultOptions()
	opts.MinServers = 2
	opts.MaxServers = 4
	opts.MaxQueueDepth = 8
	opts.ListenerSleep = 10 * time.Millisecond

	hooks := &countingHooks{}
	a, err := acceptor.New(local, opts, Spawn(hooks), nil)
	if err != nil {
		t.Fatalf("acceptor.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		a.Run(ctx)
	}()

	bound, err := a.LocalEndpoint()
	if err != nil {
		t.Fatalf("LocalEndpoint: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn, err := net.Dial("tcp", bound.String())
			if err != nil {
				t.Errorf("dial: %v", err)
				return
			}
			defer conn.Close()
			conn.SetDeadline(time.Now().Add(5 * time.Second))
			if _, err := conn.Write([]byte("GET / HTTP/1.1\r\nHost: x\r\n\r\n")); err != nil {
				t.Errorf("write: %v", err)
				return
			}
			reply := make([]byte, 256)
			if _, err := conn.Read(reply); err != nil {
				t.Errorf("read: %v", err)
				return
			}
		}()
	}
	wg.Wait()

	// All client sockets are closed; wait for every shutdown hook.
	deadline := time.Now().Add(5 * time.Second)
	for hooks.shutdowns.Load() < clients && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	if got := hooks.handshakes.Load(); got != clients {
		t.Errorf("handshakes = %d, want %d", got, clients)
	}
	if got := hooks.responses.Load(); got != clients {
		t.Errorf("responses = %d, want %d", got, clients)
	}
	if got := hooks.shutdowns.Load(); got != clients {
		t.Errorf("shutdowns = %d, want %d", got, clients)
	}
	if got := a.WorkerCount(); got > opts.MaxServers {
		t.Errorf("worker count %d exceeds max-servers %d", got, opts.MaxServers)
	}
	wantBytes := int64(clients * len("GET / HTTP/1.1\r\nHost: x\r\n\r\n"))
	if got := hooks.bytesRead.Load(); got != wantBytes {
		t.Errorf("bytes seen by read hook = %d, want %d", got, wantBytes)
	}

	cancel()
	select {
	case <-runDone:
	case <-time.After(5 * time.Second):
		t.Fatal("acceptor did not stop after cancel")
	}
}
