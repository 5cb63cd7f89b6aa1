// Package server implements the hearth server core: an embeddable
// HTTP/WebSocket server whose request and message handling is entirely
// driven by ordered handler stacks bound to named lifecycle events.
//
// The core performs no HTTP semantics of its own. It threads every inbound
// request and WebSocket message through the before/main/after event chain
// and returns whatever the handlers produce; routing, content negotiation
// and validation belong to the handlers or to layers mounted around it.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/hearth-dev/hearth/pkg/event"
	"github.com/hearth-dev/hearth/pkg/trigger"
)

// ClientIDFunc derives a stable client identity from a request. The same
// function correlates HTTP requests and WebSocket connections to one
// logical client.
type ClientIDFunc func(r *http.Request) string

// DefaultClientID identifies a client by its address and port pair.
func DefaultClientID(r *http.Request) string {
	return r.RemoteAddr
}

// Plugin is anything that can attach itself to a server, typically by
// registering handlers or seeding the data store.
type Plugin interface {
	OnAttach(s *Server, args event.Args) error
}

// Server owns the event registry, the data store, the WebSocket session
// registry and the run-loop state machine. One instance is self-contained;
// no process-wide state is shared between servers (metrics collectors
// excepted).
type Server struct {
	config  *Config
	logger  *slog.Logger
	events  *event.Registry
	data    *DataStore
	session *sessionRegistry
	metrics *metricsSet
	tracer  trace.Tracer

	transport Transport

	mu       sync.Mutex // guards the fields below
	clientID ClientIDFunc
	sources  []trigger.Source
	running  bool
	quitting bool
	daemon   bool
}

// New creates a Server. A nil config means DefaultConfig().
func New(config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "server")

	s := &Server{
		config:   config,
		logger:   logger,
		events:   event.NewRegistry(),
		data:     NewDataStore(),
		session:  newSessionRegistry(),
		metrics:  serverMetrics(),
		tracer:   otel.Tracer("hearth/server"),
		clientID: DefaultClientID,
	}
	s.transport = newHTTPTransport(config, logger.With("component", "transport"))
	return s
}

// SetTransport replaces the network collaborator. Only valid while idle.
func (s *Server) SetTransport(t Transport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		s.logger.Warn("transport change ignored while running")
		return
	}
	s.transport = t
}

// Handler returns the pipeline entry point for mounting in external
// routers (Chi, Gorilla, stdlib mux). Pair it with SetHandler to put a
// router in front of the pipeline on the server's own listener. Returns
// nil for transports that are not HTTP-backed.
func (s *Server) Handler() http.Handler {
	if t, ok := s.transport.(*httpTransport); ok {
		return t.Pipeline()
	}
	return nil
}

// SetHandler replaces the root handler on the default HTTP transport.
// Requests reach the event pipeline only where the handler routes to
// Handler(). No-op for non-HTTP transports.
func (s *Server) SetHandler(h http.Handler) {
	if t, ok := s.transport.(*httpTransport); ok {
		t.SetHandler(h)
	}
}

// Config returns the server configuration.
func (s *Server) Config() *Config { return s.config }

// Logger returns the server logger.
func (s *Server) Logger() *slog.Logger { return s.logger }

// Events returns the event registry.
func (s *Server) Events() *event.Registry { return s.events }

// On binds handler to the named event and returns its unique id. The
// optional position is 1-based; omitted, the handler is appended. An
// explicit position below 1 fails with event.ErrInvalidPosition.
func (s *Server) On(name string, handler event.Handler, pos ...int) (string, error) {
	if len(pos) == 0 {
		return s.events.On(name, handler, 0)
	}
	if pos[0] < 1 {
		return "", event.ErrInvalidPosition
	}
	return s.events.On(name, handler, pos[0])
}

// Off removes the handler with the given id. Unknown ids are a no-op.
func (s *Server) Off(id string) {
	s.events.Off(id)
}

// Trigger raises a user-defined event through the public API. Reserved
// lifecycle names are rejected with ErrProtectedEvent and nothing is
// dispatched.
func (s *Server) Trigger(name string, args event.Args) ([]event.Result, error) {
	if event.Protected(name) {
		s.logger.Warn("refusing to trigger protected event", "event", name)
		return nil, ErrProtectedEvent
	}
	return s.dispatch(context.Background(), name, args), nil
}

// TriggerDelayed is a reserved extension point for deferred evaluation.
func (s *Server) TriggerDelayed(d time.Duration, name string, args event.Args) error {
	return ErrNotImplemented
}

// TriggerAt is a reserved extension point for scheduled evaluation.
func (s *Server) TriggerAt(t time.Time, name string, args event.Args) error {
	return ErrNotImplemented
}

// Attach gives plugin a chance to register handlers and data, then returns
// the server for chaining. Attach errors are logged, not returned; a
// misbehaving plugin must not take the embedding down.
func (s *Server) Attach(plugin Plugin, args event.Args) *Server {
	if err := plugin.OnAttach(s, args); err != nil {
		s.logger.Error("plugin attach failed", "error", err)
	}
	return s
}

// SetData stores value in the server's data store.
func (s *Server) SetData(name string, value any) {
	s.data.Set(name, value)
}

// GetData returns the value stored under name, or nil.
func (s *Server) GetData(name string) any {
	return s.data.Get(name)
}

// DeleteData removes the value stored under name.
func (s *Server) DeleteData(name string) {
	s.data.Delete(name)
}

// DataKeys returns the stored keys in unspecified order.
func (s *Server) DataKeys() []string {
	return s.data.Keys()
}

// Data returns the underlying data store.
func (s *Server) Data() *DataStore { return s.data }

// SetClientIDConverter replaces the function deriving client identity from
// requests. A nil converter violates the contract: the call fails with
// ErrContractViolation and the previous converter stays active.
func (s *Server) SetClientIDConverter(fn ClientIDFunc) error {
	if fn == nil {
		s.logger.Warn("client id converter rejected: nil function")
		return ErrContractViolation
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clientID = fn
	return nil
}

// ClientID derives the client identity for a request using the configured
// converter.
func (s *Server) ClientID(r *http.Request) string {
	s.mu.Lock()
	fn := s.clientID
	s.mu.Unlock()
	return fn(r)
}

// AddTriggerSource registers an additional inbound event source polled
// once per blocking-loop cycle. The filesystem source for the configured
// trigger directory is installed automatically on ignition.
func (s *Server) AddTriggerSource(src trigger.Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources = append(s.sources, src)
}

// SessionCount returns the number of open WebSocket sessions.
func (s *Server) SessionCount() int {
	return s.session.count()
}

// SessionIDs returns the client ids with open WebSocket sessions.
func (s *Server) SessionIDs() []string {
	return s.session.ids()
}

// Send writes data to the client's open WebSocket connection. binary
// selects the frame type. Clients without a session return ErrNoSession.
func (s *Server) Send(clientID string, binary bool, data []byte) error {
	conn, ok := s.session.get(clientID)
	if !ok {
		return ErrNoSession
	}
	messageType := textMessage
	if binary {
		messageType = binaryMessage
	}
	return conn.WriteMessage(messageType, data)
}

// dispatch is the internal dispatch path. Unlike Trigger it applies no
// protected-name filtering; lifecycle events and externally injected
// trigger files arrive here directly. Handler failures are contained,
// logged, and counted.
func (s *Server) dispatch(ctx context.Context, name string, args event.Args) []event.Result {
	ctx, span := s.tracer.Start(ctx, "hearth.dispatch",
		trace.WithAttributes(attribute.String("event", name)))
	defer span.End()

	start := time.Now()
	results := s.events.Dispatch(ctx, name, args)
	s.metrics.eventsTotal.WithLabelValues(name).Inc()
	s.metrics.dispatchDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

	for _, res := range results {
		if res.Err == nil {
			continue
		}
		if pe, ok := res.Err.(*event.PanicError); ok {
			s.metrics.handlerPanics.WithLabelValues(name).Inc()
			s.logger.Error("handler panic",
				"event", name, "handler", res.ID, "panic", pe.Panic, "stack", string(pe.Stack))
			continue
		}
		s.metrics.handlerErrors.WithLabelValues(name).Inc()
		s.logger.Error("handler error", "event", name, "handler", res.ID, "error", res.Err)
	}
	return results
}

// pollTriggers drains every registered trigger source and dispatches each
// firing in arrival order. Runs once per blocking-loop cycle; daemonized
// mode never polls.
func (s *Server) pollTriggers(ctx context.Context) {
	s.mu.Lock()
	sources := make([]trigger.Source, len(s.sources))
	copy(sources, s.sources)
	s.mu.Unlock()

	for _, src := range sources {
		firings, err := src.Poll(ctx)
		if err != nil {
			s.logger.Warn("trigger poll failed", "error", err)
		}
		for _, f := range firings {
			s.metrics.triggersConsumed.WithLabelValues(f.Event).Inc()
			s.dispatch(ctx, f.Event, event.Args(f.Args))
		}
	}
}
