package runtime

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aretw0/statelens/internal/logging"
	"github.com/aretw0/statelens/pkg/domain"
	"github.com/aretw0/statelens/pkg/ports"
)

// Status is the lifecycle phase of an Interpreter. It only moves forward.
type Status int

const (
	StatusIdle Status = iota
	StatusRunning
	StatusStopped
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRunning:
		return "running"
	case StatusStopped:
		return "stopped"
	}
	return "unknown"
}

// Observer receives every committed configuration, in commit order.
type Observer func(*domain.Configuration)

type observerEntry struct {
	id int
	fn Observer
}

// Interpreter executes a machine with synchronous run-to-completion semantics.
// It is not safe for concurrent use; callers serialize access (see pkg/session).
type Interpreter struct {
	machine        *domain.Machine
	logger         *slog.Logger
	hooks          domain.LifecycleHooks
	dispatcher     ports.ActionDispatcher
	initialContext map[string]any
	now            func() time.Time

	status    Status
	current   *domain.Configuration
	memory    memory
	observers []observerEntry
	nextID    int
}

// New creates an idle interpreter bound to m.
func New(m *domain.Machine, opts ...Option) *Interpreter {
	i := &Interpreter{
		machine:        m,
		logger:         logging.NewNop(),
		initialContext: m.InitialContext(),
		now:            time.Now,
		memory:         memory{},
	}
	for _, opt := range opts {
		opt(i)
	}
	i.logger = i.logger.With("machine", m.ID())
	return i
}

// Machine returns the model being interpreted.
func (i *Interpreter) Machine() *domain.Machine {
	return i.machine
}

// Status returns the current lifecycle phase.
func (i *Interpreter) Status() Status {
	return i.status
}

// Current returns the latest committed configuration, or nil before Start.
func (i *Interpreter) Current() *domain.Configuration {
	return i.current
}

// Subscribe registers an observer and returns a function that removes it.
func (i *Interpreter) Subscribe(fn Observer) (unsubscribe func()) {
	i.nextID++
	id := i.nextID
	i.observers = append(i.observers, observerEntry{id: id, fn: fn})
	return func() {
		for idx, o := range i.observers {
			if o.id == id {
				i.observers = append(i.observers[:idx:idx], i.observers[idx+1:]...)
				return
			}
		}
	}
}

// Start enters the initial configuration and notifies observers with it.
func (i *Interpreter) Start(ctx context.Context) (*domain.Configuration, error) {
	if i.status != StatusIdle {
		return nil, &domain.UsageError{Op: "start", Status: i.status.String()}
	}

	p := initialPlan(i.machine)
	initial, err := i.execute(ctx, p, nil, i.initialContext, nil, true)
	if err != nil {
		err = lifecycleStep(err, StartStep)
		i.logger.Warn("start rejected", "error", err)
		return nil, err
	}

	i.current = initial
	i.memory = p.memory
	i.status = StatusRunning
	i.logger.Debug("interpreter started", "value", initial.Value)

	for _, n := range p.entry {
		i.emitNode(ctx, domain.EventNodeEnter, n)
	}
	i.notify(initial)
	return initial, nil
}

// Send processes one event to completion.
// An event that enables no transition returns the current configuration with
// Changed set to false; observers are not notified.
func (i *Interpreter) Send(ctx context.Context, evt domain.Event) (*domain.Configuration, error) {
	if i.status != StatusRunning {
		return nil, &domain.UsageError{Op: "send", Status: i.status.String()}
	}
	if err := evt.Validate(); err != nil {
		return nil, err
	}
	if err := i.machine.ValidatePayload(evt); err != nil {
		return nil, err
	}

	p, err := i.resolve(evt)
	if err != nil {
		i.logger.Warn("event rejected", "event", evt.Type, "error", err)
		return nil, err
	}
	if p == nil {
		i.logger.Debug("event ignored", "event", evt.Type)
		return i.current.Unchanged(), nil
	}

	prev := i.current
	next, err := i.execute(ctx, p, prev, prev.Context, &evt, true)
	if err != nil {
		i.logger.Warn("event rejected", "event", evt.Type, "error", err)
		return nil, err
	}

	i.current = next
	i.memory = p.memory
	i.logger.Debug("transition committed", "event", evt.Type, "from", prev.Value, "to", next.Value)

	for _, n := range p.exit {
		i.emitNode(ctx, domain.EventNodeLeave, n)
	}
	for _, n := range p.entry {
		i.emitNode(ctx, domain.EventNodeEnter, n)
	}
	if i.hooks.OnTransition != nil {
		i.hooks.OnTransition(ctx, &domain.TransitionEvent{
			EventBase: i.base(domain.EventTransition),
			Event:     evt.Type,
			From:      prev.Value,
			To:        next.Value,
			Actions:   len(next.Actions),
		})
	}
	i.notify(next)
	return next, nil
}

// Stop exits every active node, deepest first, and moves to StatusStopped.
// The interpreter is stopped even if an exit action fails; the failures are returned.
func (i *Interpreter) Stop(ctx context.Context) error {
	if i.status != StatusRunning {
		return &domain.UsageError{Op: "stop", Status: i.status.String()}
	}

	active := i.current.ActiveNodes()
	var errs []error
	state := i.current.Context
	for idx := len(active) - 1; idx >= 0; idx-- {
		n := active[idx]
		for _, a := range n.Exit {
			next, err := i.perform(ctx, scheduled{action: a, nodeID: n.ID}, state, nil, true)
			if err != nil {
				errs = append(errs, lifecycleStep(err, StopStep))
				continue
			}
			state = next
		}
	}

	i.status = StatusStopped
	for idx := len(active) - 1; idx >= 0; idx-- {
		i.emitNode(ctx, domain.EventNodeLeave, active[idx])
	}
	i.logger.Debug("interpreter stopped")
	return errors.Join(errs...)
}

// resolve selects transitions and plans the step. A nil plan means no transition matched.
func (i *Interpreter) resolve(evt domain.Event) (*plan, error) {
	transitions, err := selectTransitions(i.current, evt, i.current.Context)
	if err != nil {
		return nil, err
	}
	if len(transitions) == 0 {
		return nil, nil
	}
	return planStep(i.current, transitions, i.memory), nil
}

// Event labels used in TransitionError for steps that no event triggered.
const (
	StartStep = "(start)"
	StopStep  = "(stop)"
)

// lifecycleStep names the step of an action failure raised outside Send.
func lifecycleStep(err error, step string) error {
	var te *domain.TransitionError
	if errors.As(err, &te) && te.Event == "" {
		te.Event = step
	}
	return err
}

// execute runs the scheduled actions of p against state and builds the resulting
// configuration. When commit is false, opaque actions are recorded but never dispatched.
func (i *Interpreter) execute(ctx context.Context, p *plan, prev *domain.Configuration, state map[string]any, evt *domain.Event, commit bool) (*domain.Configuration, error) {
	steps := p.schedule()
	executed := make([]domain.Action, 0, len(steps))
	for _, s := range steps {
		next, err := i.perform(ctx, s, state, evt, commit)
		if err != nil {
			return nil, err
		}
		state = next
		executed = append(executed, s.action)
	}
	cfg := domain.NewConfiguration(i.machine, p.active.sorted(), domain.CopyContext(state), executed, evt, prev)
	return cfg.WithTransitions(p.transitions), nil
}

func (i *Interpreter) perform(ctx context.Context, s scheduled, state map[string]any, evt *domain.Event, commit bool) (map[string]any, error) {
	fail := func(err error) error {
		name := ""
		if evt != nil {
			name = evt.Type
		}
		return &domain.TransitionError{Event: name, NodeID: s.nodeID, Stage: "action", Err: err}
	}

	if s.action.IsBuiltin() {
		if commit && s.action.Type == domain.ActionLog {
			i.logger.Info("machine log", "node", s.nodeID, "message", s.action.Params["message"])
		}
		next, err := applyBuiltin(s.action, state, evt)
		if err != nil {
			return nil, fail(err)
		}
		return next, nil
	}

	if commit && i.dispatcher != nil {
		err := i.dispatcher.Dispatch(ctx, ports.ActionRequest{
			Action:  s.action,
			NodeID:  s.nodeID,
			Event:   evt,
			Context: state,
		})
		if err != nil {
			return nil, fail(err)
		}
	}
	return state, nil
}

func (i *Interpreter) base(t domain.EventType) domain.EventBase {
	return domain.EventBase{Timestamp: i.now(), Type: t, MachineID: i.machine.ID()}
}

func (i *Interpreter) emitNode(ctx context.Context, t domain.EventType, n *domain.Node) {
	hook := i.hooks.OnNodeEnter
	if t == domain.EventNodeLeave {
		hook = i.hooks.OnNodeLeave
	}
	if hook == nil {
		return
	}
	hook(ctx, &domain.NodeEvent{
		EventBase: i.base(t),
		NodeID:    n.ID,
		Path:      n.Path.String(),
		NodeKind:  n.Kind,
	})
}

func (i *Interpreter) notify(cfg *domain.Configuration) {
	// Copy so that an observer may unsubscribe while being notified.
	observers := append([]observerEntry(nil), i.observers...)
	for _, o := range observers {
		o.fn(cfg)
	}
}
