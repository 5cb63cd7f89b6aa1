// Package hearth provides the public API for the hearth framework: an
// embeddable HTTP/WebSocket server whose request and message handling is
// driven by ordered handler chains bound to named lifecycle events.
//
// This is the recommended import for most applications:
//
//	import "github.com/hearth-dev/hearth"
//
// Usage:
//
//	srv := hearth.New()
//	srv.On(hearth.EventRequest, func(ctx context.Context, args hearth.Args) (any, error) {
//		return "hello\n", nil
//	})
//	srv.Ignite(hearth.IgniteOptions{Block: true})
package hearth

import (
	"github.com/hearth-dev/hearth/pkg/event"
	"github.com/hearth-dev/hearth/pkg/server"
)

// Core types re-exported from the implementation packages.
type (
	// Server is the event-pipeline server.
	Server = server.Server

	// Config is the server configuration.
	Config = server.Config

	// IgniteOptions configures a server start.
	IgniteOptions = server.IgniteOptions

	// Args is the named-argument payload carried by every event.
	Args = event.Args

	// Handler is a callback bound to one event name.
	Handler = event.Handler

	// Result is one handler's outcome within a dispatch.
	Result = event.Result

	// Plugin can attach itself to a server on Attach.
	Plugin = server.Plugin

	// ClientIDFunc derives a client identity from a request.
	ClientIDFunc = server.ClientIDFunc
)

// Reserved lifecycle event names.
const (
	EventStart           = event.Start
	EventResume          = event.Resume
	EventEnd             = event.End
	EventCycleStart      = event.CycleStart
	EventCycleEnd        = event.CycleEnd
	EventHeader          = event.Header
	EventBeforeRequest   = event.BeforeRequest
	EventRequest         = event.Request
	EventAfterRequest    = event.AfterRequest
	EventBeforeMessage   = event.BeforeMessage
	EventMessage         = event.Message
	EventAfterMessage    = event.AfterMessage
	EventWebsocketClosed = event.WebsocketClosed
)

// New creates a server with the default configuration.
func New() *Server {
	return server.New(nil)
}

// NewWithConfig creates a server with the given configuration.
func NewWithConfig(cfg *Config) *Server {
	return server.New(cfg)
}

// DefaultConfig returns the framework default configuration: host 0.0.0.0,
// port 80, a 1ms refresh interval, and no trigger directory.
func DefaultConfig() *Config {
	return server.DefaultConfig()
}

// Merge folds argument patches left-to-right; later keys win.
func Merge(base Args, patches ...Args) Args {
	return event.Merge(base, patches...)
}

// Protected reports whether name is a reserved lifecycle event.
func Protected(name string) bool {
	return event.Protected(name)
}
