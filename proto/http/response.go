package http

import (
	"fmt"
	"strings"

	"github.com/dodolib/dodo/net/rbuf"
	"github.com/dodolib/dodo/proto/frame"
)

// Response is an HTTP response message. Reason is carried verbatim and
// is never validated against the status code: a caller that wants a
// canonical phrase should look one up itself.
type Response struct {
	VersionMajor int
	VersionMinor int
	StatusCode   int
	Reason       string
	Headers      *Headers
	Body         []byte
}

// NewResponse returns an empty HTTP/1.1 response with an initialized
// header map.
func NewResponse() *Response {
	return &Response{VersionMajor: 1, VersionMinor: 1, Headers: NewHeaders()}
}

// Parse parses a response from c. bodyAllowed reports whether the
// originating request's method permits a response body (false for
// e.g. HEAD), since that can only be known from context outside the
// status line itself.
func (r *Response) Parse(c *rbuf.Cursor, bodyAllowed bool) frame.ParseResult {
	major, minor, res := parseHTTPVersion(c)
	if res.Err != frame.Ok {
		return res
	}
	r.VersionMajor, r.VersionMinor = major, minor

	if res := expectByte(c, ' '); res.Err != frame.Ok {
		return statusLineError(res)
	}

	code, res := frame.ParseUint(c)
	if res.Err != frame.Ok {
		return statusLineError(res)
	}
	if code < 100 || code > 599 {
		return frame.ParseResult{Err: frame.InvalidRequestLine}
	}
	r.StatusCode = int(code)

	if res := expectByte(c, ' '); res.Err != frame.Ok {
		return statusLineError(res)
	}

	reason, res := parseReasonPhrase(c)
	if res.Err != frame.Ok {
		return statusLineError(res)
	}
	r.Reason = reason

	if res := frame.ParseCRLF(c); res.Err != frame.Ok {
		return statusLineError(res)
	}

	if res := parseHeaderBlock(c, r.Headers); res.Err != frame.Ok {
		return res
	}

	body, res := parseBody(c, r.Headers, bodyAllowed && !statusForbidsBody(r.StatusCode))
	if res.Err != frame.Ok {
		return res
	}
	r.Body = body

	return frame.OkResult
}

// statusForbidsBody reports whether the status code itself (1xx, 204,
// 304) forbids a body regardless of the request method.
func statusForbidsBody(code int) bool {
	if code >= 100 && code < 200 {
		return true
	}
	return code == 204 || code == 304
}

func statusLineError(res frame.ParseResult) frame.ParseResult {
	if res.Err == frame.Incomplete {
		return res
	}
	return frame.ParseResult{Err: frame.InvalidRequestLine, Sys: res.Sys}
}

// parseReasonPhrase consumes text up to CRLF, tolerating any octet
// that isn't itself CR — the reason phrase is not validated, only
// framed.
func parseReasonPhrase(c *rbuf.Cursor) (string, frame.ParseResult) {
	var sb strings.Builder
	for {
		b, err := c.Peek()
		if err != nil {
			return "", sysOrIncomplete(err)
		}
		if b == '\r' {
			break
		}
		sb.WriteByte(b)
		if err := c.Advance(); err != nil {
			return "", sysOrIncomplete(err)
		}
	}
	return sb.String(), frame.OkResult
}

// Serialize renders the response to wire form.
func (r *Response) Serialize() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "HTTP/%d.%d %d %s\r\n", r.VersionMajor, r.VersionMinor, r.StatusCode, r.Reason)
	r.Headers.Each(func(name, value string) {
		fmt.Fprintf(&sb, "%s: %s\r\n", name, value)
	})
	sb.WriteString("\r\n")
	sb.Write(r.Body)
	return sb.String()
}

// SetBody replaces the response body and resets content-length to
// the literal byte length.
func (r *Response) SetBody(body []byte) {
	r.Body = body
	r.Headers.Set("content-length", fmt.Sprintf("%d", len(body)))
	r.Headers.Del("transfer-encoding")
}
