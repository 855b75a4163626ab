//go:build darwin

package sock

import "golang.org/x/sys/unix"

// setReusePort sets SO_REUSEPORT on BSD-derived kernels.
func setReusePort(fd int, v bool) error {
	return unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, boolToInt(v))
}

// setKeepAliveIdle sets TCP_KEEPALIVE, the Darwin name for the same
// knob Linux calls TCP_KEEPIDLE.
func setKeepAliveIdle(fd int, seconds int) error {
	return unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_KEEPALIVE, seconds)
}
