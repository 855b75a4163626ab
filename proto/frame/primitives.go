package frame

import (
	"errors"
	"io"
	"strings"

	"github.com/dodolib/dodo/net/rbuf"
)

// separator octets per RFC 7230's token grammar.
var isSeparator [256]bool

func init() {
	for _, c := range "()<>@,;:\\\"/[]?={} \t" {
		isSeparator[c] = true
	}
}

func isCTL(c byte) bool { return c < 0x20 || c == 0x7f }

// sysOrIncomplete turns a cursor error into the appropriate
// ParseResult: Incomplete for EOF/WouldBlock (a request for more
// input, not a failure), or a system-error result otherwise.
func sysOrIncomplete(err error) ParseResult {
	if err == nil {
		return OkResult
	}
	if errors.Is(err, io.EOF) || errors.Is(err, rbuf.ErrWouldBlock) {
		return IncompleteResult
	}
	return ParseResult{Err: Incomplete, Sys: err}
}

// EatSpace skips zero or more SP/HT octets. It cannot fail outright;
// it returns Incomplete only if the cursor runs dry mid-skip, which
// the caller should treat as "try again with more input" since no
// non-whitespace octet has been observed yet.
func EatSpace(c *rbuf.Cursor) ParseResult {
	for {
		b, err := c.Peek()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return OkResult // a clean end is not "more whitespace coming"
			}
			return sysOrIncomplete(err)
		}
		if b != ' ' && b != '\t' {
			return OkResult
		}
		if err := c.Advance(); err != nil {
			return sysOrIncomplete(err)
		}
	}
}

// ParseCRLF consumes exactly "\r\n", failing with ExpectCRLF if the
// next two octets are anything else.
func ParseCRLF(c *rbuf.Cursor) ParseResult {
	b, err := c.Peek()
	if err != nil {
		return sysOrIncomplete(err)
	}
	if b != '\r' {
		return ParseResult{Err: ExpectCRLF}
	}
	if err := c.Advance(); err != nil {
		return sysOrIncomplete(err)
	}
	b, err = c.Peek()
	if err != nil {
		return sysOrIncomplete(err)
	}
	if b != '\n' {
		return ParseResult{Err: ExpectCRLF}
	}
	if err := c.Advance(); err != nil {
		return sysOrIncomplete(err)
	}
	return OkResult
}

// EatCRLF consumes "\r\n" if present, and is a no-op success
// otherwise (the permissive form ParseCRLF's callers use when a
// trailing CRLF is optional).
func EatCRLF(c *rbuf.Cursor) ParseResult {
	b, err := c.Peek()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return OkResult
		}
		return sysOrIncomplete(err)
	}
	if b != '\r' {
		return OkResult
	}
	return ParseCRLF(c)
}

// ParseToken consumes a sequence of one or more non-separator,
// non-control octets (RFC 7230 token grammar), returning the token
// text. An empty token (the next octet is itself a separator or
// control) is UnfinishedToken.
func ParseToken(c *rbuf.Cursor) (string, ParseResult) {
	var sb strings.Builder
	for {
		b, err := c.Peek()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return "", sysOrIncomplete(err)
		}
		if isSeparator[b] || isCTL(b) {
			break
		}
		sb.WriteByte(b)
		if err := c.Advance(); err != nil {
			return "", sysOrIncomplete(err)
		}
	}
	if sb.Len() == 0 {
		return "", ParseResult{Err: UnfinishedToken}
	}
	return sb.String(), OkResult
}

// ParseFieldValue consumes header field-value text up to (but not
// including) the terminating CRLF, folding internal runs of SP/HT to
// a single SP and absorbing folded-line continuations (CRLF followed
// by SP or HT).
func ParseFieldValue(c *rbuf.Cursor) (string, ParseResult) {
	var sb strings.Builder
	lastWasSpace := false
	for {
		b, err := c.Peek()
		if err != nil {
			return "", sysOrIncomplete(err)
		}
		switch {
		case b == '\r':
			// Could be the terminating CRLF, or a folded continuation
			// if followed by CRLF SP/HT. Peek ahead by consuming
			// tentatively; only the cursor's own buffering makes this
			// safe to "look past" one token at a time.
			save := ParseCRLF(c)
			if save.Failed() {
				return "", save
			}
			if save.Err == Incomplete {
				return "", save
			}
			nb, err := c.Peek()
			if err != nil {
				if errors.Is(err, io.EOF) {
					return strings.TrimRight(sb.String(), " "), OkResult
				}
				return "", sysOrIncomplete(err)
			}
			if nb != ' ' && nb != '\t' {
				return strings.TrimRight(sb.String(), " "), OkResult
			}
			if !lastWasSpace {
				sb.WriteByte(' ')
				lastWasSpace = true
			}
			continue
		case b == ' ' || b == '\t':
			if !lastWasSpace {
				sb.WriteByte(' ')
				lastWasSpace = true
			}
			if err := c.Advance(); err != nil {
				return "", sysOrIncomplete(err)
			}
		default:
			sb.WriteByte(b)
			lastWasSpace = false
			if err := c.Advance(); err != nil {
				return "", sysOrIncomplete(err)
			}
		}
	}
}

// ParseChunkHex consumes a hexadecimal unsigned integer terminated by
// CRLF (ignoring any chunk-extension after a ';', which is consumed
// and discarded up to the CRLF).
func ParseChunkHex(c *rbuf.Cursor) (uint64, ParseResult) {
	var v uint64
	digits := 0
	for {
		b, err := c.Peek()
		if err != nil {
			return 0, sysOrIncomplete(err)
		}
		d, ok := hexDigit(b)
		if !ok {
			break
		}
		v = v*16 + uint64(d)
		digits++
		if err := c.Advance(); err != nil {
			return 0, sysOrIncomplete(err)
		}
	}
	if digits == 0 {
		return 0, ParseResult{Err: InvalidChunkHex}
	}
	// Skip a chunk-extension, if present, up to CRLF.
	for {
		b, err := c.Peek()
		if err != nil {
			return 0, sysOrIncomplete(err)
		}
		if b == '\r' {
			break
		}
		if err := c.Advance(); err != nil {
			return 0, sysOrIncomplete(err)
		}
	}
	if res := ParseCRLF(c); res.Failed() || res.Err == Incomplete {
		if res.Err == ExpectCRLF {
			return 0, ParseResult{Err: InvalidChunkHex}
		}
		return 0, res
	}
	return v, OkResult
}

func hexDigit(b byte) (int, bool) {
	switch {
	case b >= '0' && b <= '9':
		return int(b - '0'), true
	case b >= 'a' && b <= 'f':
		return int(b-'a') + 10, true
	case b >= 'A' && b <= 'F':
		return int(b-'A') + 10, true
	default:
		return 0, false
	}
}

// ParseUint consumes a decimal unsigned integer of one or more
// digits.
func ParseUint(c *rbuf.Cursor) (uint64, ParseResult) {
	var v uint64
	digits := 0
	for {
		b, err := c.Peek()
		if err != nil {
			if errors.Is(err, io.EOF) && digits > 0 {
				break
			}
			return 0, sysOrIncomplete(err)
		}
		if b < '0' || b > '9' {
			break
		}
		v = v*10 + uint64(b-'0')
		digits++
		if err := c.Advance(); err != nil {
			return 0, sysOrIncomplete(err)
		}
	}
	if digits == 0 {
		return 0, ParseResult{Err: ExpectingUInt}
	}
	return v, OkResult
}
