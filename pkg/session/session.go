package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aretw0/statelens/internal/runtime"
	"github.com/aretw0/statelens/pkg/domain"
	"github.com/aretw0/statelens/pkg/graph"
	"github.com/aretw0/statelens/pkg/history"
	"github.com/aretw0/statelens/pkg/observability"
	"github.com/aretw0/statelens/pkg/ports"
	"github.com/aretw0/statelens/pkg/selection"
	"github.com/google/uuid"
)

type subscriber struct {
	id int
	fn func(View)
}

// Session is the controller consumed by presentation layers.
// Every method is serialized by an internal mutex, so a preview never interleaves
// with a committed send. Subscribers run while that mutex is held and must not
// call back into the Session.
type Session struct {
	id     string
	loader ports.MachineLoader
	cfg    config

	mu           sync.Mutex
	definition   []byte
	machine      *domain.Machine
	interp       *runtime.Interpreter
	tracker      *history.Tracker
	selection    *selection.Controller
	graphs       graph.Cache
	previewEvent *domain.Event
	preview      *domain.Configuration
	subscribers  []subscriber
	nextSub      int
}

// New creates an empty session. Call Load to bind a machine.
func New(loader ports.MachineLoader, opts ...Option) *Session {
	cfg := newConfig(opts)
	if cfg.id == "" {
		cfg.id = uuid.NewString()
	}
	cfg.logger = cfg.logger.With("session_id", cfg.id)
	return &Session{id: cfg.id, loader: loader, cfg: cfg}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Machine returns the current machine, or nil.
func (s *Session) Machine() *domain.Machine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine
}

// Current returns the current configuration, or nil when no machine is loaded.
func (s *Session) Current() *domain.Configuration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.interp == nil {
		return nil
	}
	return s.interp.Current()
}

// Load replaces the session machine with the one described by definition.
// On failure nothing changes. On success the previous interpreter is stopped and the
// history, selection and preview are discarded, all in one step.
//
// The new machine is started before the old one is stopped, so that a failing entry
// action leaves the session untouched. A dispatcher therefore sees the new machine's
// entry actions before the old machine's exit actions.
func (s *Session) Load(ctx context.Context, definition []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.loader.Load(definition)
	if err != nil {
		s.count(func(m *observability.Metrics) { m.Loads.WithLabelValues(observability.ResultError).Inc() })
		if !errors.Is(err, domain.ErrDefinition) {
			err = &domain.DefinitionError{Err: err}
		}
		s.cfg.logger.Warn("load rejected", "error", err)
		return err
	}

	interp, tracker, err := s.spawn(ctx, m)
	if err != nil {
		s.count(func(m *observability.Metrics) { m.Loads.WithLabelValues(observability.ResultError).Inc() })
		return err
	}

	s.retire(ctx)
	s.definition = append([]byte(nil), definition...)
	s.machine = m
	s.interp = interp
	s.tracker = tracker
	s.selection = selection.New(m.Nodes(), selection.WithOnChange(func(_, _ *domain.Node) { s.publish() }))
	s.previewEvent = nil
	s.preview = nil
	s.graphs.Get(m)

	s.count(func(m *observability.Metrics) { m.Loads.WithLabelValues(observability.ResultOK).Inc() })
	s.cfg.logger.Info("machine loaded", "machine", m.ID(), "nodes", len(m.Nodes()))
	s.publish()
	return nil
}

// Reset stops the interpreter, clears the history and starts again on the same machine.
// The selection is kept; a pending preview is recomputed.
// As with Load, the fresh interpreter runs its entry actions before the old one
// runs its exit actions, and a failed start keeps the current run.
func (s *Session) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.machine == nil {
		return domain.ErrNoMachine
	}

	interp, tracker, err := s.spawn(ctx, s.machine)
	if err != nil {
		return err
	}
	s.retire(ctx)
	s.interp = interp
	s.tracker = tracker
	s.refreshPreview()

	s.count(func(m *observability.Metrics) { m.Resets.Inc() })
	s.cfg.logger.Debug("session reset")
	s.publish()
	return nil
}

// Send dispatches an event to the interpreter.
func (s *Session) Send(ctx context.Context, evt domain.Event) (*domain.Configuration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.interp == nil {
		return nil, domain.ErrNoMachine
	}

	cfg, err := s.interp.Send(ctx, evt)
	switch {
	case err != nil:
		s.count(func(m *observability.Metrics) { m.Events.WithLabelValues(observability.ResultRejected).Inc() })
		return nil, err
	case !cfg.Changed:
		s.count(func(m *observability.Metrics) { m.Events.WithLabelValues(observability.ResultIgnored).Inc() })
		return cfg, nil
	}

	s.count(func(m *observability.Metrics) { m.Events.WithLabelValues(observability.ResultChanged).Inc() })
	s.refreshPreview()
	s.publish()
	return cfg, nil
}

// SendRaw parses a loosely typed event object (see domain.ParseEvent) and sends it.
func (s *Session) SendRaw(ctx context.Context, payload []byte) (*domain.Configuration, error) {
	evt, err := domain.ParseEvent(payload)
	if err != nil {
		return nil, err
	}
	return s.Send(ctx, evt)
}

// Preview computes the configuration evt would lead to and keeps it as the pending preview.
// It returns nil when the event matches no transition.
func (s *Session) Preview(_ context.Context, evt domain.Event) (*domain.Configuration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.interp == nil {
		return nil, domain.ErrNoMachine
	}

	p, err := s.interp.Preview(evt)
	if err != nil {
		return nil, err
	}
	s.count(func(m *observability.Metrics) { m.Previews.Inc() })
	s.previewEvent = &evt
	s.preview = p
	s.publish()
	return p, nil
}

// CancelPreview drops the pending preview.
func (s *Session) CancelPreview() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.previewEvent == nil {
		return
	}
	s.previewEvent = nil
	s.preview = nil
	s.publish()
}

// SelectByPath selects a node by path. It reports whether a node matched.
func (s *Session) SelectByPath(path domain.Path) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selection == nil {
		return false, domain.ErrNoMachine
	}
	return s.selection.SelectByPath(path), nil
}

// Select selects n, which must belong to the current machine.
func (s *Session) Select(n *domain.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selection == nil {
		return domain.ErrNoMachine
	}
	if n != nil && s.machine.NodeByID(n.ID) != n {
		return fmt.Errorf("node %s does not belong to machine %s", n.ID, s.machine.ID())
	}
	s.selection.Select(n)
	return nil
}

// ClearSelection removes the selection.
func (s *Session) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selection != nil {
		s.selection.Clear()
	}
}

// Snapshot returns the current visualization state.
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return buildView(s)
}

// Subscribe registers fn to receive a View after every observable change.
func (s *Session) Subscribe(fn func(View)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSub++
	id := s.nextSub
	s.subscribers = append(s.subscribers, subscriber{id: id, fn: fn})
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subscribers {
			if sub.id == id {
				s.subscribers = append(s.subscribers[:i:i], s.subscribers[i+1:]...)
				return
			}
		}
	}
}

// Close stops the interpreter and drops every subscriber.
func (s *Session) Close(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retire(ctx)
	s.subscribers = nil
}

// spawn builds and starts an interpreter bound to m. Nothing in s is modified.
func (s *Session) spawn(ctx context.Context, m *domain.Machine) (*runtime.Interpreter, *history.Tracker, error) {
	hooks := s.cfg.hooks
	if s.cfg.metrics != nil {
		hooks = s.cfg.metrics.Hooks(hooks)
	}
	interp := runtime.New(m,
		runtime.WithLogger(s.cfg.logger),
		runtime.WithLifecycleHooks(hooks),
		runtime.WithActionDispatcher(s.cfg.dispatcher),
	)
	tracker := history.NewTracker(m, history.WithPolicy(s.cfg.policy))
	interp.Subscribe(tracker.OnTransition)

	if _, err := interp.Start(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to start machine %s: %w", m.ID(), err)
	}
	return interp, tracker, nil
}

// retire stops the current interpreter, if running.
func (s *Session) retire(ctx context.Context) {
	if s.interp == nil || s.interp.Status() != runtime.StatusRunning {
		return
	}
	if err := s.interp.Stop(ctx); err != nil {
		s.cfg.logger.Warn("exit actions failed while stopping", "error", err)
	}
}

func (s *Session) refreshPreview() {
	if s.previewEvent == nil {
		return
	}
	p, err := s.interp.Preview(*s.previewEvent)
	if err != nil {
		s.cfg.logger.Warn("preview refresh failed", "event", s.previewEvent.Type, "error", err)
		p = nil
	}
	s.preview = p
}

func (s *Session) publish() {
	if len(s.subscribers) == 0 {
		return
	}
	v := buildView(s)
	for _, sub := range append([]subscriber(nil), s.subscribers...) {
		sub.fn(v)
	}
}

func (s *Session) count(fn func(*observability.Metrics)) {
	if s.cfg.metrics != nil {
		fn(s.cfg.metrics)
	}
}
