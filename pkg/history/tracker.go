package history

import (
	"fmt"

	"github.com/aretw0/statelens/pkg/domain"
	"github.com/aretw0/statelens/pkg/graph"
)

// Policy decides which of the previously active nodes are recorded.
type Policy string

const (
	// PolicyActive records every node active before the event, ancestors included.
	PolicyActive Policy = "active"
	// PolicyLeaves records only the active atomic nodes.
	PolicyLeaves Policy = "leaves"
	// PolicySources records only the source nodes of the transitions that fired.
	// Handlers whose guard failed or that a descendant shadowed are not recorded,
	// so regions that did not take the event are left untouched.
	PolicySources Policy = "sources"
)

// ParsePolicy validates a policy name. An empty name selects PolicyActive.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyActive:
		return PolicyActive, nil
	case PolicyLeaves:
		return PolicyLeaves, nil
	case PolicySources:
		return PolicySources, nil
	}
	return "", fmt.Errorf("unknown history policy %q (want %q, %q or %q)", s, PolicyActive, PolicyLeaves, PolicySources)
}

// Record is a detached copy of the tracker state.
type Record struct {
	// Events maps node ID to the events recorded against it, in first-seen order.
	Events map[string][]string `json:"events"`
	// Traversed lists node IDs in the order they were first recorded.
	Traversed []string `json:"traversed"`
}

// Tracker accumulates history records across a session.
// It is not safe for concurrent use; the session serializes access.
type Tracker struct {
	machine   *domain.Machine
	policy    Policy
	events    map[*domain.Node][]string
	traversed []*domain.Node
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithPolicy selects the recording policy.
func WithPolicy(p Policy) Option {
	return func(t *Tracker) {
		if p != "" {
			t.policy = p
		}
	}
}

// NewTracker creates an empty tracker for m.
func NewTracker(m *domain.Machine, opts ...Option) *Tracker {
	t := &Tracker{
		machine: m,
		policy:  PolicyActive,
		events:  make(map[*domain.Node][]string),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Policy returns the recording policy.
func (t *Tracker) Policy() Policy {
	return t.policy
}

// OnTransition records cfg.Event against every node matched by cfg.History().
// Configurations without history or event (the initial one) are ignored.
func (t *Tracker) OnTransition(cfg *domain.Configuration) {
	prev := cfg.History()
	if prev == nil || cfg.Event == nil {
		return
	}
	event := cfg.Event.Type
	var fired map[*domain.Node]bool
	if t.policy == PolicySources {
		fired = make(map[*domain.Node]bool)
		for _, tr := range cfg.Transitions() {
			fired[tr.Source()] = true
		}
	}
	for _, n := range t.machine.Nodes() {
		switch {
		case t.policy == PolicyLeaves && !n.IsAtomic():
			continue
		case t.policy == PolicySources && !fired[n]:
			continue
		}
		if !prev.Matches(n.Path) {
			continue
		}
		recorded, seen := t.events[n]
		if !seen {
			t.traversed = append(t.traversed, n)
		}
		if !contains(recorded, event) {
			t.events[n] = append(recorded, event)
		}
	}
}

// Reset clears every record.
func (t *Tracker) Reset() {
	t.events = make(map[*domain.Node][]string)
	t.traversed = nil
}

// Events returns the events recorded against n.
func (t *Tracker) Events(n *domain.Node) []string {
	return append([]string(nil), t.events[n]...)
}

// Has reports whether event was recorded against n.
func (t *Tracker) Has(n *domain.Node, event string) bool {
	return contains(t.events[n], event)
}

// Traversed returns the recorded nodes in first-recorded order.
func (t *Tracker) Traversed() []*domain.Node {
	return append([]*domain.Node(nil), t.traversed...)
}

// IsEdgeTraversed reports whether the edge's source was recorded with the edge's event.
func (t *Tracker) IsEdgeTraversed(e graph.Edge) bool {
	return t.Has(e.Source, e.Event)
}

// Snapshot returns a deep copy of the tracker state keyed by node ID.
func (t *Tracker) Snapshot() Record {
	r := Record{
		Events:    make(map[string][]string, len(t.events)),
		Traversed: make([]string, 0, len(t.traversed)),
	}
	for n, events := range t.events {
		r.Events[n.ID] = append([]string(nil), events...)
	}
	for _, n := range t.traversed {
		r.Traversed = append(r.Traversed, n.ID)
	}
	return r
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
