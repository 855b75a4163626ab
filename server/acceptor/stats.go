package acceptor

import "github.com/prometheus/client_golang/prometheus"

// stats are the acceptor's Prometheus instruments. They are created
// against the caller-supplied registerer so multiple acceptors (or a
// process with other collectors) don't collide on metric names.
type stats struct {
	accepted         prometheus.Counter
	rejected         prometheus.Counter
	liveConnections  prometheus.Gauge
	workersRunning   prometheus.Gauge
	queueDepth       prometheus.Gauge
	throttleSlices   prometheus.Counter
	workersReaped    prometheus.Counter
}

func newStats(reg prometheus.Registerer) *stats {
	s := &stats{
		accepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dodo_acceptor_accepted_total",
			Help: "Total sockets accepted.",
		}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dodo_acceptor_rejected_total",
			Help: "Total accepts rejected for exceeding max-connections.",
		}),
		liveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dodo_acceptor_live_connections",
			Help: "Currently open accepted connections.",
		}),
		workersRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dodo_acceptor_workers_running",
			Help: "Currently running worker goroutines.",
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dodo_acceptor_queue_depth",
			Help: "Pending work units not yet drained by a worker.",
		}),
		throttleSlices: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dodo_acceptor_throttle_slices_total",
			Help: "Total throttle sleep slices taken while overloaded.",
		}),
		workersReaped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dodo_acceptor_workers_reaped_total",
			Help: "Total supernumerary workers reaped for exceeding server-idle-ttl.",
		}),
	}
	if reg != nil {
		reg.MustRegister(s.accepted, s.rejected, s.liveConnections,
			s.workersRunning, s.queueDepth, s.throttleSlices, s.workersReaped)
	}
	return s
}
