package domain

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/statelens/pkg/schema"
)

// Machine is the compiled, immutable model of a hierarchical state machine.
// It is safe to share read-only between the interpreter, graph builder and history tracker.
type Machine struct {
	id      string
	root    *Node
	context map[string]any
	nodes   []*Node
	byPath  map[string]*Node
	byID    map[string]*Node
	events  map[string]schema.Schema
}

// MachineOption configures a Machine at construction time.
type MachineOption func(*Machine)

// WithEventSchema declares the payload that events of the given type must carry.
func WithEventSchema(event string, s schema.Schema) MachineOption {
	return func(m *Machine) {
		m.events[event] = s
	}
}

// NewMachine freezes a node tree into a Machine.
// It assigns paths and IDs, infers kinds, resolves initial children and transition
// targets, and reports every structural problem as a single DefinitionError.
func NewMachine(id string, root *Node, initialContext map[string]any, opts ...MachineOption) (*Machine, error) {
	if root == nil {
		return nil, &DefinitionError{Issues: []string{"machine has no root node"}}
	}
	if id == "" {
		id = root.ID
	}
	if id == "" {
		id = "machine"
	}

	m := &Machine{
		id:      id,
		root:    root,
		context: CopyContext(initialContext),
		byPath:  make(map[string]*Node),
		byID:    make(map[string]*Node),
		events:  make(map[string]schema.Schema),
	}
	for _, opt := range opts {
		opt(m)
	}

	var issues []string
	m.index(root, nil, Path{}, &issues)
	if len(issues) == 0 {
		m.link(&issues)
	}
	if len(issues) > 0 {
		return nil, &DefinitionError{Issues: issues}
	}
	return m, nil
}

// ID returns the machine identifier.
func (m *Machine) ID() string {
	return m.id
}

// Root returns the root node.
func (m *Machine) Root() *Node {
	return m.root
}

// Nodes returns every node in document (pre-order) order. Callers must not modify it.
func (m *Machine) Nodes() []*Node {
	return m.nodes
}

// Node looks a node up by path.
func (m *Machine) Node(path Path) *Node {
	return m.byPath[path.String()]
}

// NodeByID looks a node up by ID.
func (m *Machine) NodeByID(id string) *Node {
	return m.byID[id]
}

// InitialContext returns a copy of the context the interpreter starts with.
func (m *Machine) InitialContext() map[string]any {
	return CopyContext(m.context)
}

// EventSchema returns the payload schema declared for an event type.
func (m *Machine) EventSchema(event string) (schema.Schema, bool) {
	s, ok := m.events[event]
	return s, ok
}

// ValidatePayload checks evt against its declared schema. Undeclared events pass.
func (m *Machine) ValidatePayload(evt Event) error {
	s, ok := m.events[evt.Type]
	if !ok {
		return nil
	}
	if err := s.Validate(evt.Data); err != nil {
		return &InvalidEventPayloadError{Reason: fmt.Sprintf("event %s", evt.Type), Err: err}
	}
	return nil
}

func (m *Machine) index(n *Node, parent *Node, path Path, issues *[]string) {
	n.parent = parent
	n.Path = path
	if parent == nil {
		if n.Key == "" {
			n.Key = m.id
		}
	} else {
		switch {
		case n.Key == "":
			*issues = append(*issues, fmt.Sprintf("node under %q has an empty key", parent.Path.String()))
		case strings.Contains(n.Key, PathSeparator) || strings.HasPrefix(n.Key, "#"):
			*issues = append(*issues, fmt.Sprintf("node key %q must not contain %q or start with '#'", n.Key, PathSeparator))
		}
	}
	if n.ID == "" {
		if len(path) == 0 {
			n.ID = m.id
		} else {
			n.ID = m.id + PathSeparator + path.String()
		}
	}

	if n.Kind == "" {
		if len(n.Children) > 0 {
			n.Kind = KindCompound
		} else {
			n.Kind = KindAtomic
		}
	}

	label := n.ID
	switch n.Kind {
	case KindAtomic:
		if len(n.Children) > 0 {
			*issues = append(*issues, fmt.Sprintf("atomic node %s cannot have children", label))
		}
	case KindCompound:
		if len(n.Regions()) == 0 {
			*issues = append(*issues, fmt.Sprintf("compound node %s needs at least one child", label))
		}
	case KindParallel:
		if len(n.Regions()) == 0 {
			*issues = append(*issues, fmt.Sprintf("parallel node %s needs at least one region", label))
		}
	case KindHistory:
		if parent == nil {
			*issues = append(*issues, "the root node cannot be a history node")
		}
		if len(n.Children) > 0 {
			*issues = append(*issues, fmt.Sprintf("history node %s cannot have children", label))
		}
		if n.History == "" {
			n.History = HistoryShallow
		}
		if n.History != HistoryShallow && n.History != HistoryDeep {
			*issues = append(*issues, fmt.Sprintf("history node %s has unknown mode %q", label, n.History))
		}
	default:
		*issues = append(*issues, fmt.Sprintf("node %s has unknown kind %q", label, n.Kind))
	}

	key := path.String()
	if _, dup := m.byPath[key]; dup && len(path) > 0 {
		*issues = append(*issues, fmt.Sprintf("duplicate node path %q", key))
	}
	if _, dup := m.byID[n.ID]; dup {
		*issues = append(*issues, fmt.Sprintf("duplicate node id %q", n.ID))
	}
	m.byPath[key] = n
	m.byID[n.ID] = n
	n.order = len(m.nodes)
	m.nodes = append(m.nodes, n)

	n.Events = normalizeEvents(n.Events, n.On)
	for _, event := range n.Events {
		for _, t := range n.On[event] {
			if t == nil {
				*issues = append(*issues, fmt.Sprintf("node %s: nil transition for event %q", label, event))
				continue
			}
			if t.Event == "" {
				t.Event = event
			}
			if t.Event != event {
				*issues = append(*issues, fmt.Sprintf("node %s: transition for %q is registered under %q", label, t.Event, event))
			}
			t.source = n
		}
	}

	for _, c := range n.Children {
		if c == nil {
			*issues = append(*issues, fmt.Sprintf("node %s has a nil child", label))
			continue
		}
		m.index(c, n, path.Child(c.Key), issues)
	}
}

func (m *Machine) link(issues *[]string) {
	for _, n := range m.nodes {
		if n.Kind == KindCompound {
			if n.Initial == "" {
				n.initial = n.Regions()[0]
			} else if c := n.Child(n.Initial); c != nil && c.Kind != KindHistory {
				n.initial = c
			} else {
				*issues = append(*issues, fmt.Sprintf("compound node %s: initial child %q not found", n.ID, n.Initial))
			}
		}

		if n.Kind == KindHistory && n.Target != "" {
			target := m.resolve(n.Target, n)
			if target == nil || !target.IsDescendantOf(n.parent) {
				*issues = append(*issues, fmt.Sprintf("history node %s: default target %q is not a descendant of %s", n.ID, n.Target, n.parent.ID))
			} else {
				n.target = target
			}
		}

		for _, event := range n.Events {
			for _, t := range n.On[event] {
				if t == nil {
					continue
				}
				t.targets = t.targets[:0]
				for _, ref := range t.Target {
					target := m.resolve(ref, n)
					if target == nil {
						*issues = append(*issues, fmt.Sprintf("node %s: event %q: target %q not found", n.ID, event, ref))
						continue
					}
					t.targets = append(t.targets, target)
				}
			}
		}
	}
}

// resolve turns an authored reference into a node, relative to from.
func (m *Machine) resolve(ref string, from *Node) *Node {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		return nil
	case strings.HasPrefix(ref, "#"):
		return m.byID[ref[1:]]
	case strings.HasPrefix(ref, PathSeparator):
		return m.byPath[append(append(Path{}, from.Path...), ParsePath(ref[1:])...).String()]
	}

	rel := ParsePath(ref)
	if from.parent != nil {
		if n := m.byPath[append(append(Path{}, from.parent.Path...), rel...).String()]; n != nil {
			return n
		}
	}
	return m.byPath[rel.String()]
}

// normalizeEvents keeps the declared order and appends any event of on that was
// not declared, sorted, so that ordering is always deterministic.
func normalizeEvents(declared []string, on map[string][]*Transition) []string {
	seen := make(map[string]bool, len(on))
	out := make([]string, 0, len(on))
	for _, e := range declared {
		if _, ok := on[e]; ok && !seen[e] {
			seen[e] = true
			out = append(out, e)
		}
	}
	var rest []string
	for e := range on {
		if !seen[e] {
			rest = append(rest, e)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// CopyContext returns a shallow copy of a context map. Nested values are shared.
func CopyContext(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
