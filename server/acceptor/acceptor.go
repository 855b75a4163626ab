// Package acceptor implements the single-threaded listener event
// loop: a non-blocking listening socket and a readiness set (epoll
// on Linux, poll(2) elsewhere), publishing work
// units to a pool of workers and re-arming or tearing down
// descriptors as those units complete. It owns no protocol knowledge;
// the worker pool and the user-supplied hooks decide what a unit
// means.
package acceptor

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dodolib/dodo/buf"
	"github.com/dodolib/dodo/net/addr"
	"github.com/dodolib/dodo/net/sock"
)

// SpawnFunc starts one worker: it drains jobs until stop is closed,
// then sets stopped and returns. idle is updated by the worker with
// the Unix-nanosecond timestamp of its last activity, sampled at
// least every 200ms, so the acceptor can judge server-idle-ttl
// without synchronizing on the worker directly.
type SpawnFunc func(jobs <-chan *WorkUnit, idle *atomic.Int64, stop <-chan struct{}, stopped *atomic.Bool)

type workerHandle struct {
	idle    atomic.Int64
	stop    chan struct{}
	stopped atomic.Bool
	started time.Time
}

// connRecord is the acceptor's private bookkeeping for one accepted
// socket; never touched outside the event-loop goroutine.
type connRecord struct {
	id     ConnID
	socket *sock.StreamSocket
	buffer *buf.Buffer
}

// Acceptor is the single-goroutine event loop. Create with New and
// run with Run; there is no other safe way to drive it. The loop
// exclusively owns every connection record, and workers only ever
// borrow one through the work queue.
type Acceptor struct {
	listener *sock.StreamSocket
	opts     Options
	poller   poller
	spawn    SpawnFunc
	stats    *stats

	jobs  chan *WorkUnit
	dones chan *WorkUnit

	conns map[int]*connRecord // by fd; owned solely by the Run goroutine

	workersMu sync.Mutex
	workers   []*workerHandle
}

// New creates an acceptor bound and listening at local. reg may be
// nil to skip Prometheus registration.
func New(local addr.Endpoint, opts Options, spawn SpawnFunc, reg prometheus.Registerer) (*Acceptor, error) {
	listener, err := sock.NewStream(local.Family())
	if err != nil {
		return nil, err
	}
	if err := listener.SetReuseAddr(true); err != nil {
		listener.Close()
		return nil, err
	}
	if err := listener.Listen(local, opts.ListenBacklog); err != nil {
		listener.Close()
		return nil, err
	}
	if err := listener.SetBlocking(false); err != nil {
		listener.Close()
		return nil, err
	}

	p, err := newPoller()
	if err != nil {
		listener.Close()
		return nil, err
	}
	if err := p.Add(listener.FD(), evRead); err != nil {
		p.Close()
		listener.Close()
		return nil, err
	}

	a := &Acceptor{
		listener: listener,
		opts:     opts,
		poller:   p,
		spawn:    spawn,
		stats:    newStats(reg),
		jobs:     make(chan *WorkUnit, max(opts.MaxQueueDepth, 1)),
		dones:    make(chan *WorkUnit, max(opts.MaxQueueDepth, 1)),
		conns:    make(map[int]*connRecord),
	}
	for i := 0; i < opts.MinServers; i++ {
		a.spawnWorker()
	}
	return a, nil
}

// LocalEndpoint returns the bound listening address.
func (a *Acceptor) LocalEndpoint() (addr.Endpoint, error) {
	return a.listener.LocalEndpoint()
}

// Run executes the event loop until ctx is cancelled or a fatal
// readiness-facility error occurs.
func (a *Acceptor) Run(ctx context.Context) error {
	defer a.shutdownAll()
	lastReap := time.Now()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		// Step 1: scale the worker pool to queue pressure.
		if len(a.jobs) > a.workerCount() && a.workerCount() < a.opts.MaxServers {
			a.spawnWorker()
		}
		a.stats.workersRunning.Set(float64(a.workerCount()))
		a.stats.queueDepth.Set(float64(len(a.jobs)))

		// Step 2: throttle while the queue is over its soft cap.
		throttles := 0
		for len(a.jobs) > a.opts.MaxQueueDepth && throttles < a.opts.CycleMaxThrottles {
			time.Sleep(a.opts.ThrottleSleep)
			throttles++
			a.stats.throttleSlices.Inc()
		}

		// Step 3: wait for readiness.
		events, err := a.poller.Wait(a.opts.ListenerSleep, max(a.opts.PollBatch, 1))
		if err != nil {
			return err
		}

		// Step 4: handle ready descriptors.
		for _, ev := range events {
			if ev.fd == a.listener.FD() {
				a.acceptReady()
				if err := a.poller.Add(a.listener.FD(), evRead); err != nil {
					slog.Error("acceptor: re-arm listener", "err", err)
				}
				continue
			}
			a.dispatchReady(ev)
		}

		a.drainDones()

		// Step 5: periodically reap idle supernumerary workers.
		if time.Since(lastReap) > 200*time.Millisecond {
			a.reapWorkers()
			lastReap = time.Now()
		}
	}
}

// acceptReady repeatedly accepts until the listener reports
// WouldBlock, so one readiness event drains the whole backlog.
func (a *Acceptor) acceptReady() {
	for {
		conn, _, err := a.listener.Accept()
		if err != nil {
			if err == sock.ErrWouldBlock {
				return
			}
			slog.Warn("acceptor: accept", "err", err)
			return
		}

		if len(a.conns) >= a.opts.MaxConnections {
			a.stats.rejected.Inc()
			conn.Close()
			continue
		}

		a.configureAccepted(conn)

		rec := &connRecord{id: newConnID(), socket: conn, buffer: buf.New(0)}
		a.conns[conn.FD()] = rec
		a.stats.liveConnections.Set(float64(len(a.conns)))
		a.stats.accepted.Inc()

		if err := a.poller.Add(conn.FD(), evRead); err != nil {
			slog.Error("acceptor: watch accepted socket", "err", err)
			delete(a.conns, conn.FD())
			conn.Close()
			continue
		}

		a.publish(rec, New)
	}
}

func (a *Acceptor) configureAccepted(conn *sock.StreamSocket) {
	if err := conn.SetBlocking(false); err != nil {
		slog.Warn("acceptor: set nonblocking", "err", err)
	}
	if a.opts.TCPKeepAlive {
		if err := conn.SetKeepAlive(true, 0); err != nil {
			slog.Warn("acceptor: set keepalive", "err", err)
		}
	}
	if a.opts.SendBuffer > 0 {
		conn.SetSendBuffer(a.opts.SendBuffer)
	}
	if a.opts.RecvBuffer > 0 {
		conn.SetRecvBuffer(a.opts.RecvBuffer)
	}
	if a.opts.SendTimeout > 0 {
		conn.SetSendTimeout(a.opts.SendTimeout)
	}
	if a.opts.RecvTimeout > 0 {
		conn.SetRecvTimeout(a.opts.RecvTimeout)
	}
}

// dispatchReady translates a connection readiness event into a work
// unit. The descriptor is removed from the readiness set first so a
// second worker can never be handed the same connection concurrently;
// it is only re-added once the worker releases the unit.
func (a *Acceptor) dispatchReady(ev readyEvent) {
	rec, ok := a.conns[ev.fd]
	if !ok {
		return // already torn down; a stale event
	}
	if err := a.poller.Remove(ev.fd); err != nil {
		slog.Error("acceptor: remove from readiness set", "err", err)
	}
	a.publish(rec, ev.events.toState())
}

// publish hands a unit to the worker pool. While the queue is full it
// keeps applying completions, so a stalled jobs channel can never
// deadlock against workers stalled on the dones channel.
func (a *Acceptor) publish(rec *connRecord, state State) {
	unit := NewWorkUnit(rec.id, rec.socket, state, rec.buffer, a.dones)
	for {
		select {
		case a.jobs <- unit:
			return
		case done := <-a.dones:
			a.release(done)
		}
	}
}

// drainDones applies every completion a worker has already released,
// without blocking: re-arming the descriptor in one-shot read mode,
// or tearing the connection down if the completion carries Shut.
func (a *Acceptor) drainDones() {
	for {
		select {
		case unit := <-a.dones:
			a.release(unit)
		default:
			return
		}
	}
}

func (a *Acceptor) release(unit *WorkUnit) {
	rec, ok := a.conns[unit.Socket.FD()]
	if !ok {
		return
	}
	if unit.State.Has(Shut) {
		delete(a.conns, unit.Socket.FD())
		a.stats.liveConnections.Set(float64(len(a.conns)))
		unit.Socket.Close()
		return
	}
	if err := a.poller.Add(rec.socket.FD(), evRead); err != nil {
		slog.Error("acceptor: re-arm socket", "err", err)
	}
}

func (a *Acceptor) spawnWorker() {
	h := &workerHandle{stop: make(chan struct{}), started: time.Now()}
	a.workersMu.Lock()
	a.workers = append(a.workers, h)
	a.workersMu.Unlock()
	go a.spawn(a.jobs, &h.idle, h.stop, &h.stopped)
}

func (a *Acceptor) workerCount() int {
	a.workersMu.Lock()
	defer a.workersMu.Unlock()
	return len(a.workers)
}

// WorkerCount reports the current worker pool size; it never exceeds
// Options.MaxServers.
func (a *Acceptor) WorkerCount() int { return a.workerCount() }

// reapWorkers drops workers that have reported themselves stopped,
// and asks supernumerary idle workers (beyond min-servers) to stop
// once they've sat idle past server-idle-ttl.
func (a *Acceptor) reapWorkers() {
	a.workersMu.Lock()
	defer a.workersMu.Unlock()

	live := a.workers[:0]
	for _, h := range a.workers {
		if h.stopped.Load() {
			a.stats.workersReaped.Inc()
			continue
		}
		live = append(live, h)
	}
	a.workers = live

	if len(a.workers) <= a.opts.MinServers {
		return
	}
	now := time.Now().UnixNano()
	excess := len(a.workers) - a.opts.MinServers
	for _, h := range a.workers {
		if excess <= 0 {
			break
		}
		last := h.idle.Load()
		if last != 0 && time.Duration(now-last) >= a.opts.ServerIdleTTL {
			select {
			case <-h.stop:
				// already signalled
			default:
				close(h.stop)
				excess--
			}
		}
	}
}

// shutdownAll is the listener-stop sequence: drain the remaining
// queue with a bounded wait, request every worker to stop,
// join them, then close and destroy every live connection.
func (a *Acceptor) shutdownAll() {
	deadline := time.Now().Add(2 * time.Second)
	for len(a.jobs) > 0 && time.Now().Before(deadline) {
		a.drainDones()
		time.Sleep(time.Millisecond)
	}
	a.drainDones()

	a.workersMu.Lock()
	workers := append([]*workerHandle(nil), a.workers...)
	a.workers = nil
	a.workersMu.Unlock()
	for _, h := range workers {
		select {
		case <-h.stop:
		default:
			close(h.stop)
		}
	}
	for _, h := range workers {
		for !h.stopped.Load() && time.Now().Before(deadline) {
			time.Sleep(time.Millisecond)
		}
	}

	a.poller.Close()
	for fd, rec := range a.conns {
		rec.socket.Close()
		delete(a.conns, fd)
	}
	a.listener.Close()
}
