package http

import (
	"testing"

	"github.com/dodolib/dodo/net/rbuf"
	"github.com/dodolib/dodo/proto/frame"
)

func TestRequestParseMinimalGET(t *testing.T) {
	c := rbuf.NewStringCursor("GET /index.html HTTP/1.1\r\nHost: example.com\r\n\r\n")
	r := NewRequest()
	if res := r.Parse(c); res.Err != frame.Ok {
		t.Fatalf("Parse: %v (%v)", res.Err, res.Sys)
	}
	if r.Method != GET || r.Target != "/index.html" {
		t.Fatalf("got %s %s", r.Method, r.Target)
	}
	if r.VersionMajor != 1 || r.VersionMinor != 1 {
		t.Fatalf("got version %d.%d", r.VersionMajor, r.VersionMinor)
	}
	host, ok := r.Headers.Get("host")
	if !ok || host != "example.com" {
		t.Fatalf("got host=%q ok=%v", host, ok)
	}
	if len(r.Body) != 0 {
		t.Fatalf("expected empty body, got %d bytes", len(r.Body))
	}
}

func TestRequestParseMissingFinalCRLFIsIncomplete(t *testing.T) {
	c := rbuf.NewStringCursor("GET / HTTP/1.1\r\nHost: x\r\n")
	r := NewRequest()
	if res := r.Parse(c); res.Err != frame.Incomplete {
		t.Fatalf("got %v, want Incomplete", res.Err)
	}
}

func TestRequestParseChunkedBody(t *testing.T) {
	raw := "POST /upload HTTP/1.1\r\n" +
		"Host: x\r\n" +
		"Transfer-Encoding: chunked\r\n" +
		"\r\n" +
		"4\r\nWiki\r\n5\r\npedia\r\n0\r\n\r\n"
	c := rbuf.NewStringCursor(raw)
	r := NewRequest()
	if res := r.Parse(c); res.Err != frame.Ok {
		t.Fatalf("Parse: %v (%v)", res.Err, res.Sys)
	}
	if string(r.Body) != "Wikipedia" {
		t.Fatalf("got body %q", r.Body)
	}
}

func TestRequestParseChunkedTruncatedIsIncomplete(t *testing.T) {
	raw := "POST /upload HTTP/1.1\r\n" +
		"Host: x\r\n" +
		"Transfer-Encoding: chunked\r\n" +
		"\r\n" +
		"4\r\nWiki\r\n"
	c := rbuf.NewStringCursor(raw)
	r := NewRequest()
	if res := r.Parse(c); res.Err != frame.Incomplete {
		t.Fatalf("got %v, want Incomplete (need more data, not malformed yet)", res.Err)
	}
}

func TestRequestParseChunkedBadTerminatorIsInvalidLastChunk(t *testing.T) {
	// The zero-size chunk is present, but the final CRLF that must
	// close the body is a lone CR followed by garbage.
	raw := "POST /upload HTTP/1.1\r\n" +
		"Host: x\r\n" +
		"Transfer-Encoding: chunked\r\n" +
		"\r\n" +
		"4\r\nWiki\r\n0\r\n\rX"
	c := rbuf.NewStringCursor(raw)
	r := NewRequest()
	if res := r.Parse(c); res.Err != frame.InvalidLastChunk {
		t.Fatalf("got %v, want InvalidLastChunk", res.Err)
	}
}

func TestRequestParseHeaderFolding(t *testing.T) {
	raw := "GET / HTTP/1.1\r\n" +
		"X-Long: first\r\n continuation\r\n" +
		"\r\n"
	c := rbuf.NewStringCursor(raw)
	r := NewRequest()
	if res := r.Parse(c); res.Err != frame.Ok {
		t.Fatalf("Parse: %v (%v)", res.Err, res.Sys)
	}
	v, _ := r.Headers.Get("x-long")
	if v != "first continuation" {
		t.Fatalf("got %q", v)
	}
}

func TestRequestParseContentLengthMismatchIsInvalid(t *testing.T) {
	raw := "POST / HTTP/1.1\r\nHost: x\r\nContent-Length: 10\r\n\r\nabc"
	c := rbuf.NewStringCursor(raw)
	r := NewRequest()
	if res := r.Parse(c); res.Err != frame.InvalidContentLength {
		t.Fatalf("got %v, want InvalidContentLength (peer closed short of the declared length)", res.Err)
	}
}

func TestRequestParseBadContentLengthIsInvalid(t *testing.T) {
	raw := "POST / HTTP/1.1\r\nHost: x\r\nContent-Length: notanumber\r\n\r\n"
	c := rbuf.NewStringCursor(raw)
	r := NewRequest()
	if res := r.Parse(c); res.Err != frame.InvalidContentLength {
		t.Fatalf("got %v, want InvalidContentLength", res.Err)
	}
}

func TestRequestSerializeRoundTrip(t *testing.T) {
	r := NewRequest()
	r.Method = POST
	r.Target = "/submit"
	r.Headers.Set("host", "example.com")
	r.SetBody([]byte("payload"))

	wire := r.Serialize()
	c := rbuf.NewStringCursor(wire)
	r2 := NewRequest()
	if res := r2.Parse(c); res.Err != frame.Ok {
		t.Fatalf("round-trip Parse: %v (%v)", res.Err, res.Sys)
	}
	if r2.Method != POST || r2.Target != "/submit" {
		t.Fatalf("got %s %s", r2.Method, r2.Target)
	}
	if string(r2.Body) != "payload" {
		t.Fatalf("got body %q", r2.Body)
	}
}

func TestRequestParseUnknownMethod(t *testing.T) {
	c := rbuf.NewStringCursor("FROB / HTTP/1.1\r\n\r\n")
	r := NewRequest()
	if res := r.Parse(c); res.Err != frame.InvalidMethod {
		t.Fatalf("got %v, want InvalidMethod", res.Err)
	}
}

func TestRequestParseBodyOnBodilessMethod(t *testing.T) {
	raw := "GET / HTTP/1.1\r\nHost: x\r\n\r\nstray bytes"
	c := rbuf.NewStringCursor(raw)
	r := NewRequest()
	if res := r.Parse(c); res.Err != frame.UnexpectedBody {
		t.Fatalf("got %v, want UnexpectedBody", res.Err)
	}
}

func TestRequestParseDuplicateHeadersMerge(t *testing.T) {
	raw := "GET / HTTP/1.1\r\nAccept: a\r\naccept: b\r\n\r\n"
	c := rbuf.NewStringCursor(raw)
	r := NewRequest()
	if res := r.Parse(c); res.Err != frame.Ok {
		t.Fatalf("Parse: %v (%v)", res.Err, res.Sys)
	}
	v, _ := r.Headers.Get("accept")
	if v != "a,b" {
		t.Fatalf("got %q, want %q", v, "a,b")
	}
}

func TestRequestParseBadTransferEncoding(t *testing.T) {
	raw := "POST / HTTP/1.1\r\nTransfer-Encoding: gzip\r\n\r\n"
	c := rbuf.NewStringCursor(raw)
	r := NewRequest()
	if res := r.Parse(c); res.Err != frame.InvalidTransferEncoding {
		t.Fatalf("got %v, want InvalidTransferEncoding", res.Err)
	}
}
