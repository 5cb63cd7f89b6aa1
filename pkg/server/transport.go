package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"

	"github.com/gorilla/websocket"
)

// Routes is what the server core hands the transport: the request
// pipeline entry points. The transport owns parsing and connection
// management; the core owns everything that happens between these calls.
type Routes interface {
	// Call runs the full request pipeline and writes the response.
	Call(w http.ResponseWriter, r *http.Request)

	// OnHeaders runs the header hooks. A true second return means the
	// pipeline short-circuits with the returned response.
	OnHeaders(r *http.Request) (any, bool)

	// OnWSOpen receives a freshly upgraded WebSocket connection.
	OnWSOpen(conn *websocket.Conn, r *http.Request)
}

// Transport is the network collaborator boundary. It always listens on
// background goroutines; what differs between run modes is where pipeline
// work executes. Inline mode (daemonized) runs jobs directly on transport
// goroutines. Queued mode (blocking) parks jobs until the run loop's
// Service call drains them, so one goroutine performs all dispatch.
type Transport interface {
	// Start begins listening on addr and routing to routes.
	Start(addr string, routes Routes) error

	// Shutdown gracefully stops the transport.
	Shutdown(ctx context.Context) error

	// Service runs all currently queued jobs and returns the count.
	Service() int

	// SetInline switches between inline and queued job execution.
	SetInline(inline bool)

	// Do executes fn inline or queues it for the next Service call,
	// waiting for completion. ctx bounds the wait.
	Do(ctx context.Context, fn func())
}

type job struct {
	run  func()
	done chan struct{}
}

// httpTransport is the default Transport: a net/http server plus a gorilla
// WebSocket upgrader. The root handler defaults to the pipeline entry and
// can be replaced to mount the pipeline inside an external router.
type httpTransport struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader
	srv      *http.Server
	routes   Routes
	handler  http.Handler
	jobs     chan job
	inline   atomic.Bool
}

func newHTTPTransport(cfg *Config, logger *slog.Logger) *httpTransport {
	checkOrigin := cfg.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool { return true }
	}
	return &httpTransport{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin:     checkOrigin,
		},
		jobs: make(chan job, 256),
	}
}

// Pipeline returns the pipeline entry point as an http.Handler, suitable
// for mounting in Chi, Gorilla, stdlib mux, etc.
func (t *httpTransport) Pipeline() http.Handler {
	return http.HandlerFunc(t.servePipeline)
}

// SetHandler replaces the root handler served by the transport. Requests
// reach the pipeline only where the new handler routes to Pipeline().
func (t *httpTransport) SetHandler(h http.Handler) {
	t.handler = h
}

// Start listens synchronously so bind errors surface to the caller, then
// serves on a background goroutine.
func (t *httpTransport) Start(addr string, routes Routes) error {
	t.routes = routes

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", addr, err)
	}
	t.srv = &http.Server{Addr: addr, Handler: t}

	go func() {
		t.logger.Info("transport listening", "address", addr)
		if err := t.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			t.logger.Error("transport serve error", "error", err)
		}
	}()
	return nil
}

// Shutdown stops the listener and drains in-flight requests.
func (t *httpTransport) Shutdown(ctx context.Context) error {
	if t.srv == nil {
		return nil
	}
	return t.srv.Shutdown(ctx)
}

// Service drains the job queue. In blocking mode this is the only place
// pipeline work runs, so handlers never race each other.
func (t *httpTransport) Service() int {
	n := 0
	for {
		select {
		case j := <-t.jobs:
			j.run()
			close(j.done)
			n++
		default:
			return n
		}
	}
}

// SetInline switches job execution mode.
func (t *httpTransport) SetInline(inline bool) {
	t.inline.Store(inline)
}

// Do runs fn inline or parks it for the next Service pass.
func (t *httpTransport) Do(ctx context.Context, fn func()) {
	if t.inline.Load() {
		fn()
		return
	}
	j := job{run: fn, done: make(chan struct{})}
	select {
	case t.jobs <- j:
	case <-ctx.Done():
		return
	}
	select {
	case <-j.done:
	case <-ctx.Done():
	}
}

// ServeHTTP serves the root handler, which defaults to the pipeline.
func (t *httpTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if t.handler != nil {
		t.handler.ServeHTTP(w, r)
		return
	}
	t.servePipeline(w, r)
}

// servePipeline routes one request: WebSocket upgrades go straight to the
// socket pipeline; everything else runs header hooks and then the request
// pipeline, inline or queued depending on the run mode.
func (t *httpTransport) servePipeline(w http.ResponseWriter, r *http.Request) {
	if websocket.IsWebSocketUpgrade(r) {
		conn, err := t.upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.logger.Error("websocket upgrade failed", "error", err)
			return
		}
		t.routes.OnWSOpen(conn, r)
		return
	}

	t.Do(r.Context(), func() {
		if resp, ok := t.routes.OnHeaders(r); ok {
			writeResponse(w, resp)
			return
		}
		t.routes.Call(w, r)
	})
}

// writeResponse writes whatever a handler produced, raw. No content-type
// or status inference happens here: byte slices and strings go out as-is,
// nil becomes 204, anything else is printed with fmt.
func writeResponse(w http.ResponseWriter, resp any) {
	switch v := resp.(type) {
	case nil:
		w.WriteHeader(http.StatusNoContent)
	case []byte:
		w.Write(v)
	case string:
		fmt.Fprint(w, v)
	default:
		fmt.Fprint(w, v)
	}
}
