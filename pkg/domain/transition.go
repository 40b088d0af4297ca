package domain

// Guard decides whether a transition may fire for the given context and event.
// An error rejects the whole step.
type Guard func(ctx map[string]any, evt Event) (bool, error)

// Transition defines a rule to move the machine when Event is received.
type Transition struct {
	Event string `json:"event"`

	// Target holds the references as authored:
	//   "#id"    a node by ID
	//   ".child" a descendant of the source
	//   "a.b"    a sibling path of the source (falls back to the root)
	// An empty list makes the transition targetless (actions only).
	Target []string `json:"target,omitempty"`

	// GuardName is the display form of the guard ("count > 2", "isValid").
	GuardName string `json:"guard,omitempty"`
	Guard     Guard  `json:"-"`

	Actions []Action `json:"actions,omitempty"`

	// Internal keeps the source active when every target is one of its descendants.
	Internal bool `json:"internal,omitempty"`

	source  *Node
	targets []*Node
}

// Source returns the node declaring this transition.
func (t *Transition) Source() *Node {
	return t.source
}

// Targets returns the resolved target nodes in declaration order.
func (t *Transition) Targets() []*Node {
	return t.targets
}

// TargetPaths returns the paths of the resolved targets.
func (t *Transition) TargetPaths() []Path {
	out := make([]Path, len(t.targets))
	for i, n := range t.targets {
		out[i] = n.Path
	}
	return out
}

// IsTargetless reports whether the transition only runs actions.
func (t *Transition) IsTargetless() bool {
	return len(t.targets) == 0
}

// Enabled evaluates the guard. A transition without guard is always enabled.
func (t *Transition) Enabled(ctx map[string]any, evt Event) (bool, error) {
	if t.Guard == nil {
		return true, nil
	}
	return t.Guard(ctx, evt)
}
