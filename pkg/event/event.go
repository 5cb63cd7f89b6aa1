// Package event implements the handler-dispatch engine at the heart of
// hearth: named events carrying string-keyed argument payloads, ordered
// per-event handler stacks with positional insertion, and a registry that
// maps event names to stacks and hands out globally unique handler ids.
package event

import "context"

// Args is the named-argument payload carried by every event.
type Args map[string]any

// Clone returns a shallow copy of the args. A nil receiver yields an
// empty, writable map.
func (a Args) Clone() Args {
	out := make(Args, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Merge folds patches onto base left-to-right: a key set by a later patch
// overrides the same key from an earlier patch or from base. Neither base
// nor the patches are mutated.
func Merge(base Args, patches ...Args) Args {
	out := base.Clone()
	for _, p := range patches {
		for k, v := range p {
			out[k] = v
		}
	}
	return out
}

// Handler is a callback bound to exactly one event name. It receives the
// event payload and may return a value: pre-hooks return an Args patch,
// main-event handlers return a response, and either may return nil.
type Handler func(ctx context.Context, args Args) (any, error)

// Result is one handler's outcome within a dispatch. Dispatch never
// interprets Value; callers choose their own folding policy.
type Result struct {
	// ID is the handler id the value came from.
	ID string

	// Value is whatever the handler returned. Nil when Err is set.
	Value any

	// Err is the handler's returned error, or a *PanicError when the
	// handler panicked.
	Err error
}

// Reserved lifecycle event names. These are dispatched internally by the
// server core and cannot be raised through the public trigger API.
const (
	Start           = "start"
	Resume          = "resume"
	End             = "end"
	CycleStart      = "cycle-start"
	CycleEnd        = "cycle-end"
	Header          = "header"
	BeforeRequest   = "before-request"
	Request         = "request"
	AfterRequest    = "after-request"
	BeforeMessage   = "before-message"
	Message         = "message"
	AfterMessage    = "after-message"
	WebsocketClosed = "websocket-closed"
)

var protectedNames = map[string]struct{}{
	Start:           {},
	Resume:          {},
	End:             {},
	CycleStart:      {},
	CycleEnd:        {},
	Header:          {},
	BeforeRequest:   {},
	Request:         {},
	AfterRequest:    {},
	BeforeMessage:   {},
	Message:         {},
	AfterMessage:    {},
	WebsocketClosed: {},
}

// Protected reports whether name is a reserved lifecycle event.
func Protected(name string) bool {
	_, ok := protectedNames[name]
	return ok
}

// ProtectedNames returns the reserved lifecycle event names.
func ProtectedNames() []string {
	out := make([]string, 0, len(protectedNames))
	for name := range protectedNames {
		out = append(out, name)
	}
	return out
}
