package acceptor

import (
	"time"

	"golang.org/x/sys/unix"
)

// epollPoller is the Linux readiness facility: an epoll instance in
// level-triggered, one-shot mode (EPOLLONESHOT), which gives the
// remove-before-publish protocol its exclusion without needing an
// explicit Remove call on the common path.
type epollPoller struct {
	fd int
}

func newPoller() (poller, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &epollPoller{fd: fd}, nil
}

func toEpollEvents(e event) uint32 {
	var v uint32
	if e&evRead != 0 {
		v |= unix.EPOLLIN
	}
	if e&evPri != 0 {
		v |= unix.EPOLLPRI
	}
	v |= unix.EPOLLRDHUP | unix.EPOLLONESHOT
	return v
}

func fromEpollEvents(v uint32) event {
	var e event
	if v&unix.EPOLLIN != 0 {
		e |= evRead
	}
	if v&unix.EPOLLPRI != 0 {
		e |= evPri
	}
	if v&unix.EPOLLRDHUP != 0 {
		e |= evRDHUP
	}
	if v&unix.EPOLLERR != 0 {
		e |= evErr
	}
	if v&unix.EPOLLHUP != 0 {
		e |= evHup
	}
	return e
}

func (p *epollPoller) Add(fd int, events event) error {
	ev := &unix.EpollEvent{Events: toEpollEvents(events), Fd: int32(fd)}
	err := unix.EpollCtl(p.fd, unix.EPOLL_CTL_ADD, fd, ev)
	if err == unix.EEXIST {
		err = unix.EpollCtl(p.fd, unix.EPOLL_CTL_MOD, fd, ev)
	}
	return err
}

func (p *epollPoller) Remove(fd int) error {
	err := unix.EpollCtl(p.fd, unix.EPOLL_CTL_DEL, fd, nil)
	if err == unix.ENOENT {
		return nil
	}
	return err
}

func (p *epollPoller) Wait(timeout time.Duration, batch int) ([]readyEvent, error) {
	events := make([]unix.EpollEvent, batch)
	n, err := unix.EpollWait(p.fd, events, int(timeout/time.Millisecond))
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, err
	}
	out := make([]readyEvent, n)
	for i := 0; i < n; i++ {
		out[i] = readyEvent{fd: int(events[i].Fd), events: fromEpollEvents(events[i].Events)}
	}
	return out, nil
}

func (p *epollPoller) Close() error {
	return unix.Close(p.fd)
}
