package session

import (
	"log/slog"

	"github.com/aretw0/statelens/internal/logging"
	"github.com/aretw0/statelens/pkg/domain"
	"github.com/aretw0/statelens/pkg/history"
	"github.com/aretw0/statelens/pkg/observability"
	"github.com/aretw0/statelens/pkg/ports"
)

type config struct {
	id         string
	logger     *slog.Logger
	hooks      domain.LifecycleHooks
	dispatcher ports.ActionDispatcher
	policy     history.Policy
	metrics    *observability.Metrics
}

func newConfig(opts []Option) config {
	cfg := config{
		logger: logging.NewNop(),
		policy: history.PolicyActive,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Option configures a Session (and, through a Manager, every session it creates).
type Option func(*config)

// WithID sets the session ID. By default a random UUID is used.
func WithID(id string) Option {
	return func(c *config) {
		c.id = id
	}
}

// WithLogger configures the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithLifecycleHooks registers interpreter hooks for every machine loaded in the session.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(c *config) {
		c.hooks = hooks
	}
}

// WithActionDispatcher routes opaque machine actions to the host.
func WithActionDispatcher(d ports.ActionDispatcher) Option {
	return func(c *config) {
		c.dispatcher = d
	}
}

// WithHistoryPolicy selects how traversal history is recorded.
func WithHistoryPolicy(p history.Policy) Option {
	return func(c *config) {
		c.policy = p
	}
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *config) {
		c.metrics = m
	}
}
