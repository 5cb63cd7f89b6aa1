package event

import (
	"context"
	"errors"
	"runtime/debug"
)

// ErrInvalidPosition is returned when a handler insert position is below 1.
var ErrInvalidPosition = errors.New("event: insert position must be >= 1")

// PanicError wraps a panic raised inside a handler during dispatch.
type PanicError struct {
	ID    string // handler id
	Event string // event being dispatched
	Panic any
	Stack []byte
}

// Error returns the error message.
func (e *PanicError) Error() string {
	return "event: handler " + e.ID + " panicked during " + e.Event
}

type entry struct {
	id      string
	handler Handler
}

// HandlerStack is the ordered collection of handlers bound to one event
// name. Positions are 1-based. The zero value is ready to use.
//
// A HandlerStack is not safe for concurrent use; the Registry that owns it
// provides the locking.
type HandlerStack struct {
	entries []entry
}

// Insert places h at 1-based position pos, shifting existing entries at
// that position and after it down by one. A position past the end appends.
// Positions below 1 fail with ErrInvalidPosition.
func (s *HandlerStack) Insert(h Handler, id string, pos int) error {
	if pos < 1 {
		return ErrInvalidPosition
	}
	if pos > len(s.entries) {
		s.entries = append(s.entries, entry{id: id, handler: h})
		return nil
	}
	i := pos - 1
	s.entries = append(s.entries, entry{})
	copy(s.entries[i+1:], s.entries[i:])
	s.entries[i] = entry{id: id, handler: h}
	return nil
}

// Append adds h at the end of the stack.
func (s *HandlerStack) Append(h Handler, id string) {
	s.entries = append(s.entries, entry{id: id, handler: h})
}

// Remove deletes the entry with the given id. Removing an absent id is a
// no-op; the return value reports whether anything was removed.
func (s *HandlerStack) Remove(id string) bool {
	for i, e := range s.entries {
		if e.id == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of handlers in the stack.
func (s *HandlerStack) Len() int {
	return len(s.entries)
}

// IDs returns the handler ids in stack order.
func (s *HandlerStack) IDs() []string {
	out := make([]string, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.id
	}
	return out
}

// Dispatch invokes every handler in stack order with args and returns each
// handler's outcome in the same order. A handler error or panic is
// contained in its Result; the remaining handlers still run.
func (s *HandlerStack) Dispatch(ctx context.Context, name string, args Args) []Result {
	return dispatchEntries(ctx, name, s.entries, args)
}

func dispatchEntries(ctx context.Context, name string, entries []entry, args Args) []Result {
	if args == nil {
		args = Args{}
	}
	results := make([]Result, 0, len(entries))
	for _, e := range entries {
		results = append(results, invoke(ctx, name, e, args))
	}
	return results
}

func invoke(ctx context.Context, name string, e entry, args Args) (res Result) {
	res.ID = e.id
	defer func() {
		if r := recover(); r != nil {
			res.Value = nil
			res.Err = &PanicError{ID: e.id, Event: name, Panic: r, Stack: debug.Stack()}
		}
	}()
	res.Value, res.Err = e.handler(ctx, args)
	return res
}
