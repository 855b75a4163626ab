package http

import (
	"testing"

	"github.com/dodolib/dodo/net/rbuf"
	"github.com/dodolib/dodo/proto/frame"
)

func TestResponseParseBasic(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nhello"
	c := rbuf.NewStringCursor(raw)
	r := NewResponse()
	if res := r.Parse(c, true); res.Err != frame.Ok {
		t.Fatalf("Parse: %v (%v)", res.Err, res.Sys)
	}
	if r.StatusCode != 200 || r.Reason != "OK" {
		t.Fatalf("got %d %q", r.StatusCode, r.Reason)
	}
	if string(r.Body) != "hello" {
		t.Fatalf("got body %q", r.Body)
	}
}

func TestResponseParseNoBodyStatus(t *testing.T) {
	raw := "HTTP/1.1 204 No Content\r\n\r\n"
	c := rbuf.NewStringCursor(raw)
	r := NewResponse()
	if res := r.Parse(c, true); res.Err != frame.Ok {
		t.Fatalf("Parse: %v (%v)", res.Err, res.Sys)
	}
	if len(r.Body) != 0 {
		t.Fatalf("expected empty body for 204, got %d bytes", len(r.Body))
	}
}

func TestResponseSerializeRoundTrip(t *testing.T) {
	r := NewResponse()
	r.StatusCode = 404
	r.Reason = "Not Found"
	r.SetBody([]byte("missing"))

	wire := r.Serialize()
	c := rbuf.NewStringCursor(wire)
	r2 := NewResponse()
	if res := r2.Parse(c, true); res.Err != frame.Ok {
		t.Fatalf("round-trip Parse: %v (%v)", res.Err, res.Sys)
	}
	if r2.StatusCode != 404 || r2.Reason != "Not Found" {
		t.Fatalf("got %d %q", r2.StatusCode, r2.Reason)
	}
	if string(r2.Body) != "missing" {
		t.Fatalf("got body %q", r2.Body)
	}
}
