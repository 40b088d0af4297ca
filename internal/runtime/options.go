package runtime

import (
	"log/slog"
	"time"

	"github.com/aretw0/statelens/pkg/domain"
	"github.com/aretw0/statelens/pkg/ports"
)

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithLogger sets a custom structured logger for the interpreter.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Interpreter) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(i *Interpreter) {
		i.hooks = hooks
	}
}

// WithActionDispatcher routes non built-in actions to the host on every committed step.
func WithActionDispatcher(d ports.ActionDispatcher) Option {
	return func(i *Interpreter) {
		i.dispatcher = d
	}
}

// WithInitialContext overrides keys of the machine's initial context.
func WithInitialContext(ctx map[string]any) Option {
	return func(i *Interpreter) {
		for k, v := range ctx {
			i.initialContext[k] = v
		}
	}
}

// WithClock replaces time.Now for lifecycle event timestamps.
func WithClock(now func() time.Time) Option {
	return func(i *Interpreter) {
		i.now = now
	}
}
