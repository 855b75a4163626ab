//go:build !linux

package acceptor

import (
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// pollPoller is the portable readiness facility for platforms without
// epoll: a poll(2) loop over a registered-descriptor set. Each
// descriptor is one-shot by convention — Wait drops a descriptor from
// the set the instant it reports ready, so the caller must Add it
// again to see it reported a second time, matching epollPoller's
// contract.
type pollPoller struct {
	mu      sync.Mutex
	regs    map[int]event
}

func newPoller() (poller, error) {
	return &pollPoller{regs: make(map[int]event)}, nil
}

func toPollEvents(e event) int16 {
	var v int16
	if e&evRead != 0 {
		v |= unix.POLLIN
	}
	if e&evPri != 0 {
		v |= unix.POLLPRI
	}
	return v
}

func fromPollEvents(v int16) event {
	var e event
	if v&unix.POLLIN != 0 {
		e |= evRead
	}
	if v&unix.POLLPRI != 0 {
		e |= evPri
	}
	if v&unix.POLLHUP != 0 {
		e |= evHup
	}
	if v&unix.POLLERR != 0 {
		e |= evErr
	}
	return e
}

func (p *pollPoller) Add(fd int, events event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.regs[fd] = events
	return nil
}

func (p *pollPoller) Remove(fd int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.regs, fd)
	return nil
}

func (p *pollPoller) Wait(timeout time.Duration, batch int) ([]readyEvent, error) {
	p.mu.Lock()
	fds := make([]unix.PollFd, 0, len(p.regs))
	for fd, ev := range p.regs {
		fds = append(fds, unix.PollFd{Fd: int32(fd), Events: toPollEvents(ev)})
	}
	p.mu.Unlock()

	if len(fds) == 0 {
		time.Sleep(timeout)
		return nil, nil
	}

	n, err := unix.Poll(fds, int(timeout/time.Millisecond))
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	var out []readyEvent
	for _, pf := range fds {
		if pf.Revents == 0 {
			continue
		}
		if len(out) >= batch {
			break
		}
		fd := int(pf.Fd)
		delete(p.regs, fd) // one-shot: must be re-Added to be seen again
		out = append(out, readyEvent{fd: fd, events: fromPollEvents(pf.Revents)})
	}
	return out, nil
}

func (p *pollPoller) Close() error {
	return nil
}
