package domain

import "sort"

// Configuration is the runtime snapshot produced by the interpreter.
// It is never mutated after construction; every step yields a new value.
type Configuration struct {
	// Value mirrors the active hierarchy: a child key (string) for a compound node
	// whose active child is atomic, otherwise a map of child key to child value.
	Value any `json:"value"`

	Context map[string]any `json:"context"`

	// Actions executed to reach this configuration, in execution order.
	Actions []Action `json:"actions"`

	// Event that produced the configuration. Nil for the initial one.
	Event *Event `json:"event,omitempty"`

	// Changed is false when the configuration is returned for an event that matched nothing.
	Changed bool `json:"changed"`

	machine     *Machine
	active      map[*Node]bool
	history     *Configuration
	transitions []*Transition
}

// NewConfiguration builds a configuration from a set of active nodes.
// prev becomes the History of the new configuration, detached from its own predecessor.
func NewConfiguration(m *Machine, active []*Node, ctx map[string]any, actions []Action, evt *Event, prev *Configuration) *Configuration {
	set := make(map[*Node]bool, len(active)+1)
	set[m.Root()] = true
	for _, n := range active {
		set[n] = true
	}
	c := &Configuration{
		Context: ctx,
		Actions: actions,
		Event:   evt,
		Changed: true,
		machine: m,
		active:  set,
	}
	if c.Context == nil {
		c.Context = map[string]any{}
	}
	if c.Actions == nil {
		c.Actions = []Action{}
	}
	c.Value = valueOf(m.Root(), set)
	if prev != nil {
		c.history = prev.detached()
	}
	return c
}

// History returns the configuration this one was computed from, or nil for the initial one.
// The returned value carries no further back-reference.
func (c *Configuration) History() *Configuration {
	return c.history
}

// Machine returns the model this configuration belongs to.
func (c *Configuration) Machine() *Machine {
	return c.machine
}

// Unchanged returns a copy of c flagged as not changed. It carries no transitions.
func (c *Configuration) Unchanged() *Configuration {
	cp := *c
	cp.Changed = false
	cp.transitions = nil
	return &cp
}

// WithTransitions returns a copy of c recording the transitions that produced it.
func (c *Configuration) WithTransitions(ts []*Transition) *Configuration {
	cp := *c
	cp.transitions = append([]*Transition(nil), ts...)
	return &cp
}

// Transitions returns the transitions selected for the step that produced c, in
// selection order. It is empty for the initial configuration.
func (c *Configuration) Transitions() []*Transition {
	return append([]*Transition(nil), c.transitions...)
}

// Matches reports whether every node along path is active. The empty path always matches.
func (c *Configuration) Matches(path Path) bool {
	if c == nil || c.machine == nil {
		return false
	}
	n := c.machine.Root()
	for _, key := range path {
		n = n.Child(key)
		if n == nil || !c.active[n] {
			return false
		}
	}
	return true
}

// MatchesString is Matches for a dotted path.
func (c *Configuration) MatchesString(path string) bool {
	return c.Matches(ParsePath(path))
}

// IsActive reports whether n is part of the configuration.
func (c *Configuration) IsActive(n *Node) bool {
	return c != nil && c.active[n]
}

// ActiveNodes returns the active nodes in document order, root included.
func (c *Configuration) ActiveNodes() []*Node {
	out := make([]*Node, 0, len(c.active))
	for n := range c.active {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].order < out[j].order })
	return out
}

// ActiveLeaves returns the active atomic nodes in document order.
func (c *Configuration) ActiveLeaves() []*Node {
	var out []*Node
	for _, n := range c.ActiveNodes() {
		if n.IsAtomic() {
			out = append(out, n)
		}
	}
	return out
}

func (c *Configuration) detached() *Configuration {
	cp := *c
	cp.history = nil
	return &cp
}

func valueOf(n *Node, active map[*Node]bool) any {
	if n.Kind == KindCompound {
		for _, child := range n.Regions() {
			if !active[child] {
				continue
			}
			if child.IsAtomic() {
				return child.Key
			}
			return map[string]any{child.Key: valueOf(child, active)}
		}
		return map[string]any{}
	}

	out := map[string]any{}
	for _, child := range n.Regions() {
		if !active[child] {
			continue
		}
		if child.IsAtomic() {
			out[child.Key] = map[string]any{}
		} else {
			out[child.Key] = valueOf(child, active)
		}
	}
	return out
}
