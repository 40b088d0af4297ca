package runtime

import (
	"sort"

	"github.com/aretw0/statelens/pkg/domain"
)

// memory maps a history node to the nodes recorded when its parent was last exited.
type memory map[*domain.Node][]*domain.Node

func (m memory) clone() memory {
	out := make(memory, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// nodeSet is an active-node set with deterministic iteration helpers.
type nodeSet map[*domain.Node]bool

func (s nodeSet) sorted() []*domain.Node {
	out := make([]*domain.Node, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order() < out[j].Order() })
	return out
}

func (s nodeSet) hasDescendantOf(n *domain.Node) bool {
	for c := range s {
		if c.IsDescendantOf(n) {
			return true
		}
	}
	return false
}

// plan is the outcome of resolving an event against a configuration.
// Nothing in it has been applied yet; commit and preview share it.
type plan struct {
	transitions []*domain.Transition
	exit        []*domain.Node // deepest first
	entry       []*domain.Node // shallowest first
	active      nodeSet
	memory      memory
}

// selectTransitions picks, for every active leaf in document order, the first enabled
// transition found walking from the leaf up to the root.
// Duplicates are skipped and a transition whose exit set overlaps an earlier one is dropped.
func selectTransitions(cur *domain.Configuration, evt domain.Event, ctx map[string]any) ([]*domain.Transition, error) {
	var enabled []*domain.Transition
	seen := make(map[*domain.Transition]bool)

	for _, leaf := range cur.ActiveLeaves() {
	walk:
		for n := leaf; n != nil; n = n.Parent() {
			for _, t := range n.Transitions(evt.Type) {
				ok, err := t.Enabled(ctx, evt)
				if err != nil {
					return nil, &domain.TransitionError{Event: evt.Type, NodeID: n.ID, Stage: "guard", Err: err}
				}
				if !ok {
					continue
				}
				if !seen[t] {
					seen[t] = true
					enabled = append(enabled, t)
				}
				break walk
			}
		}
	}

	var (
		selected []*domain.Transition
		claimed  = make(nodeSet)
	)
	for _, t := range enabled {
		exits := exitSet(cur, t)
		conflict := false
		for n := range exits {
			if claimed[n] {
				conflict = true
				break
			}
		}
		if conflict {
			continue
		}
		for n := range exits {
			claimed[n] = true
		}
		selected = append(selected, t)
	}
	return selected, nil
}

// transitionDomain returns the node whose descendants are exited and re-entered by t.
// A targetless transition has no domain.
func transitionDomain(t *domain.Transition) *domain.Node {
	if t.IsTargetless() {
		return nil
	}
	src := t.Source()
	if t.Internal && src.Kind == domain.KindCompound {
		inside := true
		for _, target := range t.Targets() {
			if !target.IsDescendantOf(src) {
				inside = false
				break
			}
		}
		if inside {
			return src
		}
	}
	return lcca(src, t.Targets())
}

// lcca finds the least common compound ancestor of src and targets.
// The root is the fallback regardless of its kind.
func lcca(src *domain.Node, targets []*domain.Node) *domain.Node {
	var root *domain.Node
	for _, anc := range src.Ancestors() {
		root = anc
		if anc.Kind != domain.KindCompound && anc.Parent() != nil {
			continue
		}
		all := true
		for _, target := range targets {
			if !target.IsDescendantOf(anc) {
				all = false
				break
			}
		}
		if all {
			return anc
		}
	}
	if root == nil {
		return src
	}
	return root
}

func exitSet(cur *domain.Configuration, t *domain.Transition) nodeSet {
	out := make(nodeSet)
	d := transitionDomain(t)
	if d == nil {
		return out
	}
	for _, n := range cur.ActiveNodes() {
		if n.IsDescendantOf(d) {
			out[n] = true
		}
	}
	return out
}

// entryBuilder accumulates the nodes entered by a step.
type entryBuilder struct {
	enter  nodeSet
	memory memory
}

func (b *entryBuilder) addDescendants(n *domain.Node) {
	if n.Kind == domain.KindHistory {
		parent := n.Parent()
		if recorded, ok := b.memory[n]; ok && len(recorded) > 0 {
			for _, s := range recorded {
				b.addDescendants(s)
			}
			for _, s := range recorded {
				b.addAncestors(s, parent)
			}
			return
		}
		var defaults []*domain.Node
		switch {
		case n.HistoryTarget() != nil:
			defaults = []*domain.Node{n.HistoryTarget()}
		case parent.Kind == domain.KindCompound:
			defaults = []*domain.Node{parent.InitialChild()}
		default:
			defaults = parent.Regions()
		}
		for _, s := range defaults {
			b.addDescendants(s)
			b.addAncestors(s, parent)
		}
		return
	}

	b.enter[n] = true
	switch n.Kind {
	case domain.KindCompound:
		if !b.enter.hasDescendantOf(n) {
			b.addDescendants(n.InitialChild())
		}
	case domain.KindParallel:
		for _, region := range n.Regions() {
			if !b.enter[region] && !b.enter.hasDescendantOf(region) {
				b.addDescendants(region)
			}
		}
	}
}

// addAncestors enters the proper ancestors of n up to, but excluding, stop.
func (b *entryBuilder) addAncestors(n, stop *domain.Node) {
	for _, anc := range n.Ancestors() {
		if anc == stop {
			return
		}
		b.enter[anc] = true
		if anc.Kind == domain.KindParallel {
			for _, region := range anc.Regions() {
				if !b.enter[region] && !b.enter.hasDescendantOf(region) {
					b.addDescendants(region)
				}
			}
		}
	}
}

// planStep computes the exit and entry sets for the selected transitions.
func planStep(cur *domain.Configuration, transitions []*domain.Transition, mem memory) *plan {
	exits := make(nodeSet)
	for _, t := range transitions {
		for n := range exitSet(cur, t) {
			exits[n] = true
		}
	}

	nextMem, cloned := mem, false
	for n := range exits {
		hist := n.HistoryChildren()
		if len(hist) == 0 {
			continue
		}
		if !cloned {
			nextMem, cloned = mem.clone(), true
		}
		for _, h := range hist {
			nextMem[h] = recordHistory(cur, n, h.History)
		}
	}

	b := &entryBuilder{enter: make(nodeSet), memory: nextMem}
	for _, t := range transitions {
		if t.IsTargetless() {
			continue
		}
		d := transitionDomain(t)
		for _, target := range t.Targets() {
			b.addDescendants(target)
		}
		for _, target := range t.Targets() {
			b.addAncestors(target, d)
		}
	}

	active := make(nodeSet)
	for _, n := range cur.ActiveNodes() {
		if !exits[n] {
			active[n] = true
		}
	}
	for n := range b.enter {
		active[n] = true
	}

	exitOrder := exits.sorted()
	for i, j := 0, len(exitOrder)-1; i < j; i, j = i+1, j-1 {
		exitOrder[i], exitOrder[j] = exitOrder[j], exitOrder[i]
	}

	return &plan{
		transitions: transitions,
		exit:        exitOrder,
		entry:       b.enter.sorted(),
		active:      active,
		memory:      nextMem,
	}
}

// initialPlan enters the default configuration from nothing.
func initialPlan(m *domain.Machine) *plan {
	b := &entryBuilder{enter: make(nodeSet), memory: memory{}}
	b.addDescendants(m.Root())
	return &plan{
		entry:  b.enter.sorted(),
		active: b.enter,
		memory: b.memory,
	}
}

func recordHistory(cur *domain.Configuration, parent *domain.Node, mode domain.HistoryMode) []*domain.Node {
	var out []*domain.Node
	for _, n := range cur.ActiveNodes() {
		if !n.IsDescendantOf(parent) {
			continue
		}
		switch mode {
		case domain.HistoryDeep:
			if n.IsAtomic() {
				out = append(out, n)
			}
		default:
			if n.Parent() == parent {
				out = append(out, n)
			}
		}
	}
	return out
}
