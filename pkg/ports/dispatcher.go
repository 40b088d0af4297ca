package ports

import (
	"context"

	"github.com/aretw0/statelens/pkg/domain"
)

// ActionRequest describes an opaque action to be executed by the host.
type ActionRequest struct {
	Action domain.Action
	NodeID string // empty for transition actions
	Event  *domain.Event

	// Context is the context as computed up to this action. Read-only.
	Context map[string]any
}

// ActionDispatcher defines how side-effects are executed.
// The interpreter calls it only for committed steps, never for previews.
// Returning an error rejects the whole step.
type ActionDispatcher interface {
	Dispatch(ctx context.Context, req ActionRequest) error
}

// DispatcherFunc adapts a plain function to ActionDispatcher.
type DispatcherFunc func(ctx context.Context, req ActionRequest) error

// Dispatch calls f(ctx, req).
func (f DispatcherFunc) Dispatch(ctx context.Context, req ActionRequest) error {
	return f(ctx, req)
}
