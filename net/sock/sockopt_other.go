//go:build !linux && !darwin

package sock

import "errors"

// ErrUnsupportedPlatform is returned on platforms where this socket
// option has no known equivalent. The acceptor/worker runtime targets
// Linux (epoll) and Darwin (kqueue-compatible options); other unix
// variants fall back to this stub rather than silently no-opping.
var ErrUnsupportedPlatform = errors.New("sock: unsupported platform")

func setReusePort(fd int, v bool) error {
	return ErrUnsupportedPlatform
}

func setKeepAliveIdle(fd int, seconds int) error {
	return ErrUnsupportedPlatform
}
