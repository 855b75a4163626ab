// Package frame provides the state-machine parsing primitives shared
// by the HTTP and STOMP fragment parsers: CRLF and token handling,
// header folding, chunk-size hex, and the Fragment capability every
// parseable wire unit implements.
package frame

// ParseError enumerates the ways a Fragment's Parse can fail, plus
// the non-error Ok and Incomplete outcomes.
type ParseError int

const (
	// Ok means parsing succeeded.
	Ok ParseError = iota
	// Incomplete is not an error: it asks the caller for more input.
	// A WouldBlock from the cursor is surfaced as Incomplete at the
	// fragment level.
	Incomplete
	ExpectCRLF
	UnfinishedToken
	ExpectingColon
	InvalidFieldValue
	InvalidHeaderListEnd
	InvalidMethod
	InvalidVersion
	InvalidRequestLine
	InvalidContentLength
	UnexpectedBody
	InvalidTransferEncoding
	InvalidChunkHex
	InvalidLastChunk
	ExpectingUInt
)

func (e ParseError) String() string {
	switch e {
	case Ok:
		return "Ok"
	case Incomplete:
		return "Incomplete"
	case ExpectCRLF:
		return "ExpectCRLF"
	case UnfinishedToken:
		return "UnfinishedToken"
	case ExpectingColon:
		return "ExpectingColon"
	case InvalidFieldValue:
		return "InvalidFieldValue"
	case InvalidHeaderListEnd:
		return "InvalidHeaderListEnd"
	case InvalidMethod:
		return "InvalidMethod"
	case InvalidVersion:
		return "InvalidVersion"
	case InvalidRequestLine:
		return "InvalidRequestLine"
	case InvalidContentLength:
		return "InvalidContentLength"
	case UnexpectedBody:
		return "UnexpectedBody"
	case InvalidTransferEncoding:
		return "InvalidTransferEncoding"
	case InvalidChunkHex:
		return "InvalidChunkHex"
	case InvalidLastChunk:
		return "InvalidLastChunk"
	case ExpectingUInt:
		return "ExpectingUInt"
	default:
		return "Unknown"
	}
}

// ParseResult is what every Parse call returns: a parse-level
// classification plus whatever system error (I/O failure, not a
// protocol violation) accompanied it, if any.
type ParseResult struct {
	Err ParseError
	Sys error
}

// OkResult is the result of successful parsing.
var OkResult = ParseResult{Err: Ok}

// IncompleteResult requests more input; it is not an error.
var IncompleteResult = ParseResult{Err: Incomplete}

// Failed reports whether the result represents anything other than
// Ok or Incomplete.
func (r ParseResult) Failed() bool {
	return r.Err != Ok && r.Err != Incomplete
}
