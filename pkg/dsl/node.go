package dsl

import "github.com/aretw0/statelens/pkg/domain"

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	key      string
	id       string
	kind     domain.Kind
	initial  string
	history  domain.HistoryMode
	target   string
	entry    []domain.Action
	exit     []domain.Action
	events   []string
	on       map[string][]domain.Transition
	children []*NodeBuilder
	builder  *Builder
}

// State adds a child state. If the child already exists, it returns the existing builder.
func (n *NodeBuilder) State(key string) *NodeBuilder {
	for _, c := range n.children {
		if c.key == key {
			return c
		}
	}
	c := &NodeBuilder{key: key, builder: n.builder}
	n.children = append(n.children, c)
	return c
}

// ID overrides the generated node ID, making it addressable as "#id".
func (n *NodeBuilder) ID(id string) *NodeBuilder {
	n.id = id
	return n
}

// Parallel marks the node as parallel: all its children are active together.
func (n *NodeBuilder) Parallel() *NodeBuilder {
	n.kind = domain.KindParallel
	return n
}

// Initial sets the default child of a compound node.
func (n *NodeBuilder) Initial(key string) *NodeBuilder {
	n.initial = key
	return n
}

// History adds a history pseudo-state child. target is the default used before any record exists.
func (n *NodeBuilder) History(key string, mode domain.HistoryMode, target string) *NodeBuilder {
	h := n.State(key)
	h.kind = domain.KindHistory
	h.history = mode
	h.target = target
	return n
}

// On adds an unguarded transition.
func (n *NodeBuilder) On(event string, targets ...string) *NodeBuilder {
	return n.Transition(event, domain.Transition{Target: targets})
}

// When adds a guarded transition. name is the display form of the guard.
func (n *NodeBuilder) When(event, name string, guard domain.Guard, targets ...string) *NodeBuilder {
	return n.Transition(event, domain.Transition{Target: targets, GuardName: name, Guard: guard})
}

// Transition adds a fully specified transition.
func (n *NodeBuilder) Transition(event string, t domain.Transition) *NodeBuilder {
	if n.on == nil {
		n.on = make(map[string][]domain.Transition)
	}
	if _, ok := n.on[event]; !ok {
		n.events = append(n.events, event)
	}
	t.Event = event
	n.on[event] = append(n.on[event], t)
	return n
}

// Entry appends entry actions.
func (n *NodeBuilder) Entry(actions ...domain.Action) *NodeBuilder {
	n.entry = append(n.entry, actions...)
	return n
}

// Exit appends exit actions.
func (n *NodeBuilder) Exit(actions ...domain.Action) *NodeBuilder {
	n.exit = append(n.exit, actions...)
	return n
}

// Build returns a fresh copy of the underlying domain.Node tree.
// This is primarily used by the Builder, but exposed for advanced usage.
func (n *NodeBuilder) Build() *domain.Node {
	return n.build()
}

func (n *NodeBuilder) build() *domain.Node {
	node := &domain.Node{
		ID:      n.id,
		Key:     n.key,
		Kind:    n.kind,
		Initial: n.initial,
		History: n.history,
		Target:  n.target,
		Entry:   append([]domain.Action(nil), n.entry...),
		Exit:    append([]domain.Action(nil), n.exit...),
		Events:  append([]string(nil), n.events...),
	}
	if len(n.on) > 0 {
		node.On = make(map[string][]*domain.Transition, len(n.on))
		for event, ts := range n.on {
			for _, t := range ts {
				t.Target = append([]string(nil), t.Target...)
				t.Actions = append([]domain.Action(nil), t.Actions...)
				node.On[event] = append(node.On[event], &t)
			}
		}
	}
	for _, c := range n.children {
		node.Children = append(node.Children, c.build())
	}
	return node
}

// Assign is a shorthand for the built-in assign action.
func Assign(params map[string]any) domain.Action {
	return domain.Action{Type: domain.ActionAssign, Params: params}
}

// Increment is a shorthand for the built-in increment action.
func Increment(key string, delta any) domain.Action {
	return domain.Action{Type: domain.ActionIncrement, Params: map[string]any{key: delta}}
}

// Log is a shorthand for the built-in log action.
func Log(message string) domain.Action {
	return domain.Action{Type: domain.ActionLog, Params: map[string]any{"message": message}}
}

// Do is a shorthand for an opaque action handled by the host.
func Do(name string, params map[string]any) domain.Action {
	return domain.Action{Type: name, Params: params}
}
