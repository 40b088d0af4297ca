package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/statelens/pkg/ports"
)

// Handler executes one opaque machine action.
type Handler func(ctx context.Context, req ports.ActionRequest) error

// Registry routes opaque actions to handlers by action type.
// It implements ports.ActionDispatcher.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	fallback Handler
}

// Option configures a Registry.
type Option func(*Registry)

// WithFallback handles every action type that has no registered handler.
func WithFallback(h Handler) Option {
	return func(r *Registry) {
		r.fallback = h
	}
}

// NewRegistry creates a new empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		handlers: make(map[string]Handler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a handler for an action type.
// If a handler with the same name exists, it is overwritten.
func (r *Registry) Register(actionType string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[actionType] = h
}

// Types lists the registered action types, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for k := range r.handlers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Dispatch looks up the handler for req.Action.Type and executes it.
// Without a handler or fallback it returns an error, which rejects the step.
func (r *Registry) Dispatch(ctx context.Context, req ports.ActionRequest) error {
	r.mu.RLock()
	h, ok := r.handlers[req.Action.Type]
	if !ok {
		h = r.fallback
	}
	r.mu.RUnlock()

	if h == nil {
		return fmt.Errorf("no handler for action: %s", req.Action.Type)
	}
	return h(ctx, req)
}
