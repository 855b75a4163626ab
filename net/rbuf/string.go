package rbuf

import "strings"

// NewStringCursor returns a Cursor over an in-memory string, for use
// in tests. It never blocks and reports io.EOF once exhausted.
func NewStringCursor(s string) *Cursor {
	windowSize := len(s)
	if windowSize < MinWindow {
		windowSize = MinWindow
	}
	return newCursor(strings.NewReader(s), windowSize)
}
