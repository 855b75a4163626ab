package stomp

import (
	"testing"

	"github.com/dodolib/dodo/net/rbuf"
	"github.com/dodolib/dodo/proto/frame"
)

func TestParseConnect(t *testing.T) {
	raw := "CONNECT\naccept-version:1.2\nhost:example.com\nlogin:guest\npasscode:guest\n\n\x00"
	c := rbuf.NewStringCursor(raw)
	f := &Frame{}
	if res := f.Parse(c); res.Err != frame.Ok {
		t.Fatalf("Parse: %v (%v)", res.Err, res.Sys)
	}
	if f.Command != Connect {
		t.Fatalf("got command %q", f.Command)
	}
	if f.Headers["host"] != "example.com" {
		t.Fatalf("got host %q", f.Headers["host"])
	}
	if len(f.Body) != 0 {
		t.Fatalf("expected empty body, got %q", f.Body)
	}
}

func TestParseUnknownCommand(t *testing.T) {
	c := rbuf.NewStringCursor("SUBSCRIBE\n\n\x00")
	f := &Frame{}
	if res := f.Parse(c); res.Err != frame.InvalidMethod {
		t.Fatalf("got %v, want InvalidMethod", res.Err)
	}
}

func TestParseMissingTerminatorIsIncomplete(t *testing.T) {
	c := rbuf.NewStringCursor("CONNECT\nhost:x\n\nbody-no-nul")
	f := &Frame{}
	if res := f.Parse(c); res.Err != frame.Incomplete {
		t.Fatalf("got %v, want Incomplete", res.Err)
	}
}

func TestAcceptBuildsConnected(t *testing.T) {
	connect := NewFrame(Connect)
	connect.Headers["accept-version"] = "1.2"
	reply := Accept(connect, "1.2", "0,0")
	if reply.Command != Connected {
		t.Fatalf("got command %q", reply.Command)
	}
	if reply.Headers["version"] != "1.2" {
		t.Fatalf("got version %q", reply.Headers["version"])
	}
}

func TestRecognizedHeader(t *testing.T) {
	cases := map[string]bool{
		"accept-version": true,
		"Host":           true,
		"receipt":        false,
	}
	for name, want := range cases {
		if got := RecognizedHeader(name); got != want {
			t.Fatalf("RecognizedHeader(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestParseConnectCRLFLines(t *testing.T) {
	raw := "CONNECT\r\naccept-version:1.2\r\n\r\n\x00"
	c := rbuf.NewStringCursor(raw)
	f := &Frame{}
	if res := f.Parse(c); res.Err != frame.Ok {
		t.Fatalf("Parse: %v (%v)", res.Err, res.Sys)
	}
	if f.Command != Connect {
		t.Fatalf("got command %q", f.Command)
	}
	if f.Headers["accept-version"] != "1.2" {
		t.Fatalf("got accept-version %q", f.Headers["accept-version"])
	}
}
