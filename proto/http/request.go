// Package http implements HTTP/1.1 message framing: request and
// response line grammar, header folding and merge-on-repeat, and
// content-length/chunked body framing. It is a
// framing layer only — no routing, no caching, no compression.
package http

import (
	"fmt"
	"strings"

	"github.com/dodolib/dodo/net/rbuf"
	"github.com/dodolib/dodo/proto/frame"
)

// Method is an HTTP request method.
type Method string

const (
	GET     Method = "GET"
	HEAD    Method = "HEAD"
	POST    Method = "POST"
	PUT     Method = "PUT"
	PATCH   Method = "PATCH"
	DELETE  Method = "DELETE"
	CONNECT Method = "CONNECT"
	OPTIONS Method = "OPTIONS"
	TRACE   Method = "TRACE"
)

var knownMethods = map[string]Method{
	"GET": GET, "HEAD": HEAD, "POST": POST, "PUT": PUT, "PATCH": PATCH,
	"DELETE": DELETE, "CONNECT": CONNECT, "OPTIONS": OPTIONS, "TRACE": TRACE,
}

// permitsBody reports whether the method's request may carry a body.
func (m Method) permitsBody() bool {
	switch m {
	case POST, PUT, PATCH, OPTIONS:
		return true
	default:
		return false
	}
}

// Request is an HTTP request message.
type Request struct {
	Method        Method
	Target        string
	VersionMajor  int
	VersionMinor  int
	Headers       *Headers
	Body          []byte
}

// NewRequest returns an empty HTTP/1.1 request with an initialized
// header map.
func NewRequest() *Request {
	return &Request{VersionMajor: 1, VersionMinor: 1, Headers: NewHeaders()}
}

// Parse parses a request from c. A request cut short before its
// final CRLF yields Incomplete, not a hard error.
func (r *Request) Parse(c *rbuf.Cursor) frame.ParseResult {
	methodTok, res := frame.ParseToken(c)
	if res.Err != frame.Ok {
		if res.Err == frame.UnfinishedToken {
			return frame.ParseResult{Err: frame.InvalidMethod}
		}
		return res
	}
	method, ok := knownMethods[methodTok]
	if !ok {
		return frame.ParseResult{Err: frame.InvalidMethod}
	}
	r.Method = method

	if res := expectByte(c, ' '); res.Err != frame.Ok {
		return requestLineError(res)
	}

	target, res := parseTarget(c)
	if res.Err != frame.Ok {
		return requestLineError(res)
	}
	r.Target = target

	if res := expectByte(c, ' '); res.Err != frame.Ok {
		return requestLineError(res)
	}

	major, minor, res := parseHTTPVersion(c)
	if res.Err != frame.Ok {
		return res
	}
	r.VersionMajor, r.VersionMinor = major, minor

	if res := frame.ParseCRLF(c); res.Err != frame.Ok {
		return requestLineError(res)
	}

	if res := parseHeaderBlock(c, r.Headers); res.Err != frame.Ok {
		return res
	}

	body, res := parseBody(c, r.Headers, method.permitsBody())
	if res.Err != frame.Ok {
		return res
	}
	r.Body = body

	return frame.OkResult
}

// requestLineError maps a bare ExpectCRLF/generic grammar failure
// encountered while still on the request line to InvalidRequestLine,
// preserving Incomplete as-is.
func requestLineError(res frame.ParseResult) frame.ParseResult {
	if res.Err == frame.Incomplete {
		return res
	}
	return frame.ParseResult{Err: frame.InvalidRequestLine, Sys: res.Sys}
}

func parseTarget(c *rbuf.Cursor) (string, frame.ParseResult) {
	var sb strings.Builder
	for {
		b, err := c.Peek()
		if err != nil {
			return "", sysOrIncomplete(err)
		}
		if b == ' ' {
			break
		}
		sb.WriteByte(b)
		if err := c.Advance(); err != nil {
			return "", sysOrIncomplete(err)
		}
	}
	if sb.Len() == 0 {
		return "", frame.ParseResult{Err: frame.InvalidRequestLine}
	}
	return sb.String(), frame.OkResult
}

func expectByte(c *rbuf.Cursor, want byte) frame.ParseResult {
	b, err := c.Peek()
	if err != nil {
		return sysOrIncomplete(err)
	}
	if b != want {
		return frame.ParseResult{Err: frame.InvalidRequestLine}
	}
	if err := c.Advance(); err != nil {
		return sysOrIncomplete(err)
	}
	return frame.OkResult
}

func parseHTTPVersion(c *rbuf.Cursor) (int, int, frame.ParseResult) {
	const prefix = "HTTP/"
	for i := 0; i < len(prefix); i++ {
		if res := expectLiteralByte(c, prefix[i]); res.Err != frame.Ok {
			if res.Err == frame.Incomplete {
				return 0, 0, res
			}
			return 0, 0, frame.ParseResult{Err: frame.InvalidVersion}
		}
	}
	major, res := frame.ParseUint(c)
	if res.Err != frame.Ok {
		if res.Err == frame.Incomplete {
			return 0, 0, res
		}
		return 0, 0, frame.ParseResult{Err: frame.InvalidVersion}
	}
	if res := expectLiteralByte(c, '.'); res.Err != frame.Ok {
		if res.Err == frame.Incomplete {
			return 0, 0, res
		}
		return 0, 0, frame.ParseResult{Err: frame.InvalidVersion}
	}
	minor, res := frame.ParseUint(c)
	if res.Err != frame.Ok {
		if res.Err == frame.Incomplete {
			return 0, 0, res
		}
		return 0, 0, frame.ParseResult{Err: frame.InvalidVersion}
	}
	return int(major), int(minor), frame.OkResult
}

func expectLiteralByte(c *rbuf.Cursor, want byte) frame.ParseResult {
	b, err := c.Peek()
	if err != nil {
		return sysOrIncomplete(err)
	}
	if b != want {
		return frame.ParseResult{Err: frame.InvalidVersion}
	}
	if err := c.Advance(); err != nil {
		return sysOrIncomplete(err)
	}
	return frame.OkResult
}

// parseHeaderBlock parses "name: value" CRLF lines until a blank
// CRLF, merging repeated names with a comma per RFC 7230.
func parseHeaderBlock(c *rbuf.Cursor, h *Headers) frame.ParseResult {
	for {
		b, err := c.Peek()
		if err != nil {
			return sysOrIncomplete(err)
		}
		if b == '\r' {
			return frame.ParseCRLF(c)
		}

		name, res := frame.ParseToken(c)
		if res.Err != frame.Ok {
			if res.Err == frame.Incomplete {
				return res
			}
			return frame.ParseResult{Err: frame.ExpectingColon}
		}
		if res := expectLiteralByte(c, ':'); res.Err != frame.Ok {
			if res.Err == frame.Incomplete {
				return res
			}
			return frame.ParseResult{Err: frame.ExpectingColon}
		}
		if res := frame.EatSpace(c); res.Err != frame.Ok {
			return res
		}
		value, res := frame.ParseFieldValue(c)
		if res.Err != frame.Ok {
			if res.Err == frame.Incomplete {
				return res
			}
			return frame.ParseResult{Err: frame.InvalidFieldValue}
		}
		h.Add(name, value)
	}
}

// Serialize renders the request to wire form: request line, header
// lines in insertion order, a blank line, then the body.
func (r *Request) Serialize() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s HTTP/%d.%d\r\n", r.Method, r.Target, r.VersionMajor, r.VersionMinor)
	r.Headers.Each(func(name, value string) {
		fmt.Fprintf(&sb, "%s: %s\r\n", name, value)
	})
	sb.WriteString("\r\n")
	sb.Write(r.Body)
	return sb.String()
}

// SetBody replaces the request body and resets content-length to the
// literal byte length.
func (r *Request) SetBody(body []byte) {
	r.Body = body
	r.Headers.Set("content-length", fmt.Sprintf("%d", len(body)))
	r.Headers.Del("transfer-encoding")
}
