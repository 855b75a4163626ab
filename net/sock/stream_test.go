package sock

import (
	"testing"

	"github.com/dodolib/dodo/net/addr"
)

// listenLoopback binds a fresh listener on an ephemeral loopback port
// and returns it with its bound endpoint.
func listenLoopback(t *testing.T) (*StreamSocket, addr.Endpoint) {
	t.Helper()
	l, err := NewStream(addr.IPv4)
	if err != nil {
		t.Fatalf("NewStream: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	local, err := addr.ParseEndpoint("127.0.0.1:0")
	if err != nil {
		t.Fatalf("ParseEndpoint: %v", err)
	}
	if err := l.Listen(local, 8); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	bound, err := l.LocalEndpoint()
	if err != nil {
		t.Fatalf("LocalEndpoint: %v", err)
	}
	return l, bound
}

func TestStreamConnectAcceptTypedHelpers(t *testing.T) {
	l, bound := listenLoopback(t)

	clientDone := make(chan error, 1)
	go func() {
		c, err := NewStream(addr.IPv4)
		if err != nil {
			clientDone <- err
			return
		}
		defer c.Close()
		if r := c.Connect(bound); r != ConnectOK {
			clientDone <- errFromResult(r)
			return
		}
		if err := c.SendUint32(0xDEADBEEF); err != nil {
			clientDone <- err
			return
		}
		if err := c.SendString("length-prefixed"); err != nil {
			clientDone <- err
			return
		}
		clientDone <- c.SendLine("newline-terminated")
	}()

	conn, _, err := l.Accept()
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	defer conn.Close()

	v, err := conn.RecvUint32()
	if err != nil {
		t.Fatalf("RecvUint32: %v", err)
	}
	if v != 0xDEADBEEF {
		t.Fatalf("RecvUint32 = %#x, want 0xDEADBEEF", v)
	}
	str, err := conn.RecvString()
	if err != nil {
		t.Fatalf("RecvString: %v", err)
	}
	if str != "length-prefixed" {
		t.Fatalf("RecvString = %q", str)
	}
	line, err := conn.RecvLine()
	if err != nil {
		t.Fatalf("RecvLine: %v", err)
	}
	if line != "newline-terminated" {
		t.Fatalf("RecvLine = %q", line)
	}

	if err := <-clientDone; err != nil {
		t.Fatalf("client: %v", err)
	}
}

func TestAcceptNonBlockingReportsWouldBlock(t *testing.T) {
	l, _ := listenLoopback(t)
	if err := l.SetBlocking(false); err != nil {
		t.Fatalf("SetBlocking: %v", err)
	}
	if _, _, err := l.Accept(); err != ErrWouldBlock {
		t.Fatalf("Accept on idle non-blocking listener = %v, want ErrWouldBlock", err)
	}
}

func TestConnectRefused(t *testing.T) {
	c, err := NewStream(addr.IPv4)
	if err != nil {
		t.Fatalf("NewStream: %v", err)
	}
	defer c.Close()
	// Port 1 on loopback is overwhelmingly likely to be closed.
	dst, _ := addr.ParseEndpoint("127.0.0.1:1")
	if r := c.Connect(dst); r != ConnectRefused {
		t.Fatalf("Connect = %v, want Refused", r)
	}
}

func errFromResult(r ConnectResult) error {
	return &connectError{r}
}

type connectError struct{ r ConnectResult }

func (e *connectError) Error() string { return "connect: " + e.r.String() }
