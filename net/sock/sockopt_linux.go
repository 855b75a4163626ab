//go:build linux

package sock

import "golang.org/x/sys/unix"

// setReusePort sets SO_REUSEPORT, which on Linux lets multiple
// listeners share a port for load distribution across acceptor
// instances.
func setReusePort(fd int, v bool) error {
	return unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, boolToInt(v))
}

// setKeepAliveIdle sets TCP_KEEPIDLE, the Linux name for the
// idle-before-probing interval.
func setKeepAliveIdle(fd int, seconds int) error {
	return unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_KEEPIDLE, seconds)
}
