// Package stomp implements the CONNECT/CONNECTED slice of STOMP
// 1.2: a frame is a command line, newline-terminated headers, a
// blank line, and a body terminated by a NUL octet. It reports
// outcomes with the fragment parser framework's ParseResult
// (proto/frame), but scans lines with its own readLine, since STOMP
// lines end in LF rather than HTTP's CRLF.
package stomp

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dodolib/dodo/net/rbuf"
	"github.com/dodolib/dodo/proto/frame"
)

// Command is a recognized STOMP frame command. Only the handshake
// pair is implemented; Parse rejects anything else with
// frame.InvalidMethod.
type Command string

const (
	Connect   Command = "CONNECT"
	Connected Command = "CONNECTED"
)

// recognizedHeaders lists the header names this skeleton
// understands. Any other header is carried but not interpreted.
var recognizedHeaders = map[string]bool{
	"accept-version": true,
	"host":           true,
	"login":          true,
	"passcode":       true,
	"heart-beat":     true,
}

// Frame is a parsed STOMP frame.
type Frame struct {
	Command Command
	Headers map[string]string
	Body    []byte
}

// NewFrame returns an empty frame with an initialized header map.
func NewFrame(cmd Command) *Frame {
	return &Frame{Command: cmd, Headers: make(map[string]string)}
}

// Parse reads one frame from c: a command line, zero or more
// "name:value" lines each terminated by a single newline, a blank
// line, a body, and a terminating NUL octet.
func (f *Frame) Parse(c *rbuf.Cursor) frame.ParseResult {
	cmdLine, res := readLine(c)
	if res.Err != frame.Ok {
		return res
	}
	switch Command(cmdLine) {
	case Connect, Connected:
		f.Command = Command(cmdLine)
	default:
		return frame.ParseResult{Err: frame.InvalidMethod}
	}

	f.Headers = make(map[string]string)
	for {
		line, res := readLine(c)
		if res.Err != frame.Ok {
			return res
		}
		if line == "" {
			break
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return frame.ParseResult{Err: frame.ExpectingColon}
		}
		f.Headers[name] = value
	}

	var body []byte
	for {
		b, err := c.Peek()
		if err != nil {
			return sysOrIncomplete(err)
		}
		if b == 0 {
			if err := c.Advance(); err != nil {
				return sysOrIncomplete(err)
			}
			break
		}
		body = append(body, b)
		if err := c.Advance(); err != nil {
			return sysOrIncomplete(err)
		}
	}
	f.Body = body

	return frame.OkResult
}

// readLine reads octets up to (and consuming) a single terminating
// '\n', per STOMP 1.2's newline-terminated header lines (unlike
// HTTP's CRLF). STOMP 1.2 permits an optional CR before the LF, which
// is stripped.
func readLine(c *rbuf.Cursor) (string, frame.ParseResult) {
	var sb strings.Builder
	for {
		b, err := c.Peek()
		if err != nil {
			return "", sysOrIncomplete(err)
		}
		if b == '\n' {
			if err := c.Advance(); err != nil {
				return "", sysOrIncomplete(err)
			}
			return strings.TrimSuffix(sb.String(), "\r"), frame.OkResult
		}
		sb.WriteByte(b)
		if err := c.Advance(); err != nil {
			return "", sysOrIncomplete(err)
		}
	}
}

func sysOrIncomplete(err error) frame.ParseResult {
	if errors.Is(err, io.EOF) || errors.Is(err, rbuf.ErrWouldBlock) {
		return frame.IncompleteResult
	}
	return frame.ParseResult{Err: frame.Incomplete, Sys: err}
}

// RecognizedHeader reports whether name is one of the headers this
// skeleton interprets: accept-version, host, login, passcode,
// heart-beat.
func RecognizedHeader(name string) bool {
	return recognizedHeaders[strings.ToLower(name)]
}

// Serialize renders the frame to wire form.
func (f *Frame) Serialize() string {
	var sb strings.Builder
	sb.WriteString(string(f.Command))
	sb.WriteByte('\n')
	for name, value := range f.Headers {
		fmt.Fprintf(&sb, "%s:%s\n", name, value)
	}
	sb.WriteByte('\n')
	sb.Write(f.Body)
	sb.WriteByte(0)
	return sb.String()
}

// Accept builds a CONNECTED reply to a CONNECT frame, carrying the
// given version and, when non-empty, the server's own heart-beat
// terms. The CONNECT frame's headers are not read.
func Accept(connect *Frame, version, heartBeat string) *Frame {
	reply := NewFrame(Connected)
	reply.Headers["version"] = version
	if heartBeat != "" {
		reply.Headers["heart-beat"] = heartBeat
	}
	return reply
}
