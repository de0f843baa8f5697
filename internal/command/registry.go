package command

import (
	"context"
	"fmt"
	"sync"
)

// Handler holds the two sides of a command type: the optimistic local patch
// and the remote call.
//
// Apply is invoked by the enqueuing consumer before the network round-trip,
// never by the queue itself. Execute is invoked by the dispatcher. A failed
// Execute does not undo Apply; reconciliation happens on the next full
// refetch. That asymmetry is deliberate.
type Handler struct {
	// Apply patches local state for instant feedback. Must be cheap and
	// must not touch the network.
	Apply func(cmd Command) error

	// Execute performs the authenticated remote call. The context carries
	// whatever timeout the underlying client enforces; the queue adds none.
	Execute func(ctx context.Context, cmd Command) error
}

// Registry maps command types to their handlers.
// Every type a consumer can enqueue must be registered; dispatching an
// unregistered type fails like any other execution failure.
type Registry struct {
	mu       sync.RWMutex
	handlers map[Type]Handler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[Type]Handler),
	}
}

// Register installs the handler for a command type.
// Re-registering a type replaces the previous handler.
func (r *Registry) Register(t Type, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[t] = h
}

// ApplyOptimistic runs the local patch for cmd.
// Returns an error for unregistered types rather than panicking; the
// consumer decides whether to surface it.
func (r *Registry) ApplyOptimistic(cmd Command) error {
	h, ok := r.lookup(cmd.Type())
	if !ok || h.Apply == nil {
		return fmt.Errorf("no optimistic handler for %q", cmd.Type())
	}
	return h.Apply(cmd)
}

// Execute runs the remote call for cmd.
func (r *Registry) Execute(ctx context.Context, cmd Command) error {
	h, ok := r.lookup(cmd.Type())
	if !ok || h.Execute == nil {
		return fmt.Errorf("no execute handler for %q", cmd.Type())
	}
	return h.Execute(ctx, cmd)
}

// Types returns the registered command types, for diagnostics.
func (r *Registry) Types() []Type {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]Type, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	return types
}

func (r *Registry) lookup(t Type) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[t]
	return h, ok
}
