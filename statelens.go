package statelens

import (
	"context"
	"log/slog"

	"github.com/aretw0/statelens/internal/logging"
	"github.com/aretw0/statelens/pkg/domain"
	"github.com/aretw0/statelens/pkg/history"
	"github.com/aretw0/statelens/pkg/loader"
	"github.com/aretw0/statelens/pkg/observability"
	"github.com/aretw0/statelens/pkg/ports"
	"github.com/aretw0/statelens/pkg/session"
)

// Engine is the high-level entry point for the statelens library.
// It pairs the declarative loader with the options every session is created with.
type Engine struct {
	loaderOpts  []loader.Option
	sessionOpts []session.Option
	loader      *loader.Loader
	logger      *slog.Logger
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLogger sets a custom structured logger for the engine and its sessions.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.sessionOpts = append(e.sessionOpts, session.WithLogger(logger))
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.sessionOpts = append(e.sessionOpts, session.WithLifecycleHooks(hooks))
	}
}

// WithActionDispatcher routes opaque machine actions to the host.
func WithActionDispatcher(d ports.ActionDispatcher) Option {
	return func(e *Engine) {
		e.sessionOpts = append(e.sessionOpts, session.WithActionDispatcher(d))
	}
}

// WithHistoryPolicy selects how traversal history is recorded.
func WithHistoryPolicy(p history.Policy) Option {
	return func(e *Engine) {
		e.sessionOpts = append(e.sessionOpts, session.WithHistoryPolicy(p))
	}
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) {
		e.sessionOpts = append(e.sessionOpts, session.WithMetrics(m))
	}
}

// WithGuard registers a named guard for definitions.
func WithGuard(name string, g domain.Guard) Option {
	return func(e *Engine) {
		e.loaderOpts = append(e.loaderOpts, loader.WithGuard(name, g))
	}
}

// New creates an engine.
func New(opts ...Option) *Engine {
	e := &Engine{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	e.loader = loader.New(e.loaderOpts...)
	return e
}

// Loader returns the declarative loader shared by every session.
func (e *Engine) Loader() ports.MachineLoader {
	return e.loader
}

// Validate compiles definition without starting anything.
func (e *Engine) Validate(definition []byte) (*domain.Machine, error) {
	return e.loader.Load(definition)
}

// NewSession creates a session and, when definition is not empty, loads it.
func (e *Engine) NewSession(ctx context.Context, definition []byte, opts ...session.Option) (*session.Session, error) {
	all := append(append([]session.Option(nil), e.sessionOpts...), opts...)
	s := session.New(e.loader, all...)
	if len(definition) == 0 {
		return s, nil
	}
	if err := s.Load(ctx, definition); err != nil {
		return nil, err
	}
	e.logger.Debug("session ready", "session_id", s.ID(), "machine", s.Machine().ID())
	return s, nil
}

// NewManager creates a manager for many independent sessions.
func (e *Engine) NewManager() *session.Manager {
	return session.NewManager(e.loader, e.sessionOpts...)
}
