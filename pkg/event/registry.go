package event

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Registry maps event names to their handler stacks. Stacks are created
// lazily on first registration. Handler ids are unique across all events,
// so an id alone is enough to remove a handler.
//
// Registry is safe for concurrent use. Handlers are invoked without the
// registry lock held, so a handler may register or remove handlers; such
// changes take effect on the next dispatch, not the one in flight.
type Registry struct {
	mu     sync.RWMutex
	stacks map[string]*HandlerStack
	owners map[string]string // handler id -> event name
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		stacks: make(map[string]*HandlerStack),
		owners: make(map[string]string),
	}
}

// On binds h to the named event and returns a fresh unique handler id.
// pos is the 1-based stack position; pos 0 appends. Negative positions
// fail with ErrInvalidPosition.
func (r *Registry) On(name string, h Handler, pos int) (string, error) {
	if pos < 0 {
		return "", ErrInvalidPosition
	}
	id := uuid.NewString()

	r.mu.Lock()
	defer r.mu.Unlock()

	stack, ok := r.stacks[name]
	if !ok {
		stack = &HandlerStack{}
		r.stacks[name] = stack
	}
	if pos == 0 {
		stack.Append(h, id)
	} else if err := stack.Insert(h, id, pos); err != nil {
		return "", err
	}
	r.owners[id] = name
	return id, nil
}

// Off removes the handler with the given id. An unknown id is a no-op.
func (r *Registry) Off(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name, ok := r.owners[id]
	if !ok {
		return
	}
	delete(r.owners, id)
	if stack, ok := r.stacks[name]; ok {
		stack.Remove(id)
	}
}

// Dispatch runs every handler bound to name, in stack order, and returns
// their outcomes. Dispatching an event with no handlers returns nil. The
// registry lock is not held while handlers run.
func (r *Registry) Dispatch(ctx context.Context, name string, args Args) []Result {
	r.mu.RLock()
	stack, ok := r.stacks[name]
	if !ok || len(stack.entries) == 0 {
		r.mu.RUnlock()
		return nil
	}
	snapshot := make([]entry, len(stack.entries))
	copy(snapshot, stack.entries)
	r.mu.RUnlock()

	return dispatchEntries(ctx, name, snapshot, args)
}

// Handles reports whether at least one handler is bound to name.
func (r *Registry) Handles(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stack, ok := r.stacks[name]
	return ok && stack.Len() > 0
}

// Len returns the number of handlers bound to name.
func (r *Registry) Len(name string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if stack, ok := r.stacks[name]; ok {
		return stack.Len()
	}
	return 0
}

// Events returns the names that currently have at least one handler.
func (r *Registry) Events() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.stacks))
	for name, stack := range r.stacks {
		if stack.Len() > 0 {
			out = append(out, name)
		}
	}
	return out
}
