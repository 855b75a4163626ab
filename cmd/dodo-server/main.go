// Command dodo-server is a minimal demonstration of the acceptor and
// worker packages: it answers every request on the listening port
// with a plain-text greeting, and exposes the acceptor's Prometheus
// counters on a separate metrics address.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dodolib/dodo/net/addr"
	"github.com/dodolib/dodo/net/rbuf"
	"github.com/dodolib/dodo/net/sock"
	"github.com/dodolib/dodo/proto/frame"
	dodohttp "github.com/dodolib/dodo/proto/http"
	"github.com/dodolib/dodo/server/acceptor"
	"github.com/dodolib/dodo/server/worker"
)

func main() {
	listenAddress := flag.String("listen-address", "0.0.0.0", "address to listen on")
	listenPort := flag.Int("listen-port", 8080, "port to listen on")
	metricsAddress := flag.String("metrics-address", "127.0.0.1:9100", "address for the Prometheus /metrics endpoint")
	flag.Parse()

	local, err := addr.ParseEndpoint(fmt.Sprintf("%s:%d", *listenAddress, *listenPort))
	if err != nil {
		slog.Error("dodo: parse listen address", "err", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	opts := acceptor.DefaultOptions()

	a, err := acceptor.New(local, opts, worker.Spawn(httpHooks{}), reg)
	if err != nil {
		slog.Error("dodo: create acceptor", "err", err)
		os.Exit(1)
	}

	go serveMetrics(*metricsAddress, reg)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	bound, _ := a.LocalEndpoint()
	slog.Info("dodo: listening", "addr", bound)
	if err := a.Run(ctx); err != nil && ctx.Err() == nil {
		slog.Error("dodo: acceptor run", "err", err)
		os.Exit(1)
	}
}

func serveMetrics(address string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	slog.Info("dodo: metrics listening", "addr", address)
	if err := http.ListenAndServe(address, mux); err != nil {
		slog.Error("dodo: metrics server", "err", err)
	}
}

// httpHooks answers every request with a fixed greeting. It parses
// directly off the socket on each ReadSocket wakeup rather than
// threading state through the work unit's buffer, which is adequate
// for request bodies that arrive within a single readiness event; a
// server handling slow clients or pipelining would keep parser state
// across wakeups instead.
type httpHooks struct{}

func (httpHooks) Handshake(*sock.StreamSocket) error { return nil }

func (httpHooks) FillReadBuffer(*acceptor.WorkUnit) error { return nil }

func (httpHooks) RequestResponse(unit *acceptor.WorkUnit) error {
	c := rbuf.NewSocketCursor(unit.Socket, 0)
	req := dodohttp.NewRequest()
	res := req.Parse(c)
	switch res.Err {
	case frame.Ok:
	case frame.Incomplete:
		return sock.ErrWouldBlock
	default:
		return fmt.Errorf("dodo: parse request: %s", res.Err)
	}

	resp := dodohttp.NewResponse()
	resp.StatusCode = 200
	resp.Reason = "OK"
	resp.Headers.Set("content-type", "text/plain; charset=utf-8")
	resp.SetBody([]byte(fmt.Sprintf("hello, %s %s\n", req.Method, req.Target)))

	_, err := unit.Socket.Write([]byte(resp.Serialize()))
	return err
}

func (httpHooks) Shutdown(s *sock.StreamSocket) error { return s.Close() }
