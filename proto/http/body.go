package http

import (
	"errors"
	"io"
	"strconv"

	"github.com/dodolib/dodo/net/rbuf"
	"github.com/dodolib/dodo/proto/frame"
)

// parseBody implements the three-way body framing: an
// authoritative content-length, chunked transfer-encoding, or (for
// methods that forbid a body) an empty body where any trailing bytes
// are a protocol error.
func parseBody(c *rbuf.Cursor, h *Headers, bodyAllowed bool) ([]byte, frame.ParseResult) {
	if clStr, ok := h.Get("content-length"); ok {
		n, err := strconv.ParseUint(clStr, 10, 63)
		if err != nil {
			return nil, frame.ParseResult{Err: frame.InvalidContentLength}
		}
		return parseContentLengthBody(c, int64(n))
	}

	if te, ok := h.Get("transfer-encoding"); ok {
		if te != "chunked" {
			return nil, frame.ParseResult{Err: frame.InvalidTransferEncoding}
		}
		return parseChunkedBody(c)
	}

	if !bodyAllowed {
		// No framing header and the method forbids a body: succeed
		// with an empty body, but any bytes already waiting past the
		// header terminator are a protocol violation.
		if _, err := c.Peek(); err == nil {
			return nil, frame.ParseResult{Err: frame.UnexpectedBody}
		}
		return nil, frame.OkResult
	}

	return nil, frame.OkResult
}

func parseFixedBody(c *rbuf.Cursor, n int64) ([]byte, frame.ParseResult) {
	body := make([]byte, n)
	for i := int64(0); i < n; i++ {
		b, err := c.Peek()
		if err != nil {
			return nil, sysOrIncomplete(err)
		}
		body[i] = b
		if err := c.Advance(); err != nil {
			return nil, sysOrIncomplete(err)
		}
	}
	return body, frame.OkResult
}

// parseContentLengthBody is parseFixedBody specialized for the
// content-length framing path: a clean EOF before n octets have
// arrived means the peer closed having sent fewer octets than it
// declared, which is InvalidContentLength, not a request for more
// input. ErrWouldBlock (the connection is merely idle) still yields
// Incomplete.
func parseContentLengthBody(c *rbuf.Cursor, n int64) ([]byte, frame.ParseResult) {
	body := make([]byte, n)
	for i := int64(0); i < n; i++ {
		b, err := c.Peek()
		if err != nil {
			return nil, contentLengthBodyError(err)
		}
		body[i] = b
		if err := c.Advance(); err != nil {
			return nil, contentLengthBodyError(err)
		}
	}
	return body, frame.OkResult
}

func contentLengthBodyError(err error) frame.ParseResult {
	if errors.Is(err, rbuf.ErrWouldBlock) {
		return frame.IncompleteResult
	}
	if errors.Is(err, io.EOF) {
		return frame.ParseResult{Err: frame.InvalidContentLength}
	}
	return frame.ParseResult{Err: frame.Incomplete, Sys: err}
}

func parseChunkedBody(c *rbuf.Cursor) ([]byte, frame.ParseResult) {
	var body []byte
	for {
		size, res := frame.ParseChunkHex(c)
		if res.Err != frame.Ok {
			return nil, res
		}
		if size == 0 {
			// Zero-size chunk: consume an optional trailer (header
			// lines) then the final CRLF.
			for {
				b, err := c.Peek()
				if err != nil {
					return nil, sysOrIncomplete(err)
				}
				if b == '\r' {
					break
				}
				// Skip a trailer line.
				for {
					b, err := c.Peek()
					if err != nil {
						return nil, sysOrIncomplete(err)
					}
					if b == '\r' {
						break
					}
					if err := c.Advance(); err != nil {
						return nil, sysOrIncomplete(err)
					}
				}
				if res := frame.ParseCRLF(c); res.Err != frame.Ok {
					return nil, res
				}
			}
			if res := frame.ParseCRLF(c); res.Err != frame.Ok {
				if res.Err == frame.ExpectCRLF {
					return nil, frame.ParseResult{Err: frame.InvalidLastChunk}
				}
				return nil, res
			}
			return body, frame.OkResult
		}

		chunkData, res := parseFixedBody(c, int64(size))
		if res.Err != frame.Ok {
			return nil, res
		}
		body = append(body, chunkData...)

		if res := frame.ParseCRLF(c); res.Err != frame.Ok {
			return nil, res
		}
	}
}

func sysOrIncomplete(err error) frame.ParseResult {
	if errors.Is(err, io.EOF) || errors.Is(err, rbuf.ErrWouldBlock) {
		return frame.IncompleteResult
	}
	return frame.ParseResult{Err: frame.Incomplete, Sys: err}
}
