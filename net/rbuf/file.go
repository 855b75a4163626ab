package rbuf

import "os"

// fileReader adapts an *os.File to the refiller interface.
type fileReader struct {
	f *os.File
}

func (r fileReader) Read(p []byte) (int, error) {
	return r.f.Read(p)
}

// NewFileCursor returns a Cursor that refills from f.
func NewFileCursor(f *os.File, windowSize int) *Cursor {
	if windowSize == 0 {
		windowSize = DefaultWindow
	}
	return newCursor(fileReader{f}, windowSize)
}
