package acceptor

import "github.com/rs/xid"

// newConnID mints a new connection identifier: a globally unique,
// roughly time-sortable token, cheap enough to generate per accept.
func newConnID() ConnID {
	return ConnID(xid.New().String())
}
