package domain

// Kind defines how a node's children are activated.
type Kind string

const (
	// KindAtomic has no children.
	KindAtomic Kind = "atomic"
	// KindCompound has exactly one active child at a time.
	KindCompound Kind = "compound"
	// KindParallel has all of its child regions active simultaneously.
	KindParallel Kind = "parallel"
	// KindHistory is a pseudo-state that remembers the prior active child of its parent.
	KindHistory Kind = "history"
)

// HistoryMode selects how much of the parent configuration a history node restores.
type HistoryMode string

const (
	HistoryShallow HistoryMode = "shallow"
	HistoryDeep    HistoryMode = "deep"
)

// Node represents a state of the machine.
// Nodes are assembled by loaders (or the dsl package) and frozen by NewMachine,
// which fills Path, ID and the internal links. They must not be mutated afterwards.
type Node struct {
	// ID is globally unique. Defaults to "<machine>.<path>".
	ID string `json:"id"`

	// Key is the last path segment; unique among siblings.
	Key string `json:"key"`

	Path Path `json:"path"`
	Kind Kind `json:"kind"`

	// Initial is the key of the default child of a compound node.
	Initial string `json:"initial,omitempty"`

	Children []*Node `json:"children,omitempty"`

	// Events lists the event names of On in declaration order.
	Events []string                 `json:"events,omitempty"`
	On     map[string][]*Transition `json:"on,omitempty"`

	Entry []Action `json:"entry,omitempty"`
	Exit  []Action `json:"exit,omitempty"`

	// History and Target apply to history nodes only. Target is the default
	// reference entered when no history was recorded yet.
	History HistoryMode `json:"history,omitempty"`
	Target  string      `json:"target,omitempty"`

	parent  *Node
	order   int
	initial *Node
	target  *Node
}

// Parent returns the enclosing node, or nil for the root.
func (n *Node) Parent() *Node {
	return n.parent
}

// Order is the document (pre-order) index of the node within its machine.
func (n *Node) Order() int {
	return n.order
}

// Transitions returns the candidate transitions for an event, in declaration order.
func (n *Node) Transitions(event string) []*Transition {
	if n.On == nil {
		return nil
	}
	return n.On[event]
}

// Child returns the direct child with the given key.
func (n *Node) Child(key string) *Node {
	for _, c := range n.Children {
		if c.Key == key {
			return c
		}
	}
	return nil
}

// InitialChild returns the resolved default child of a compound node.
func (n *Node) InitialChild() *Node {
	return n.initial
}

// HistoryTarget returns the resolved default target of a history node, if any.
func (n *Node) HistoryTarget() *Node {
	return n.target
}

// IsAtomic reports whether the node is a leaf of the active configuration.
func (n *Node) IsAtomic() bool {
	return n.Kind == KindAtomic
}

// HistoryChildren returns the history pseudo-states declared under n.
func (n *Node) HistoryChildren() []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Kind == KindHistory {
			out = append(out, c)
		}
	}
	return out
}

// Regions returns the children that take part in the active configuration
// (every child except history pseudo-states).
func (n *Node) Regions() []*Node {
	out := make([]*Node, 0, len(n.Children))
	for _, c := range n.Children {
		if c.Kind != KindHistory {
			out = append(out, c)
		}
	}
	return out
}

// IsDescendantOf reports whether n is a proper descendant of ancestor.
func (n *Node) IsDescendantOf(ancestor *Node) bool {
	for p := n.parent; p != nil; p = p.parent {
		if p == ancestor {
			return true
		}
	}
	return false
}

// Ancestors returns the proper ancestors of n, nearest first.
func (n *Node) Ancestors() []*Node {
	var out []*Node
	for p := n.parent; p != nil; p = p.parent {
		out = append(out, p)
	}
	return out
}
