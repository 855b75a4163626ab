package frame

import "github.com/dodolib/dodo/net/rbuf"

// Fragment is any syntactic unit that can incrementally parse itself
// from a cursor and serialize itself back to wire form. HTTP request/
// response lines, header blocks, and STOMP frames are all Fragments.
type Fragment interface {
	Parse(c *rbuf.Cursor) ParseResult
	Serialize() string
}
