package graph

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/aretw0/statelens/pkg/domain"
)

// Edge is one rendered arrow: a targeted transition from Source to one of its targets.
type Edge struct {
	Index      int
	Source     *domain.Node
	Event      string
	Target     *domain.Node
	Transition *domain.Transition
}

// Key uniquely identifies the edge within its graph.
func (e Edge) Key() string {
	return fmt.Sprintf("%s#%s#%s#%d", e.Source.ID, e.Event, e.Target.ID, e.Index)
}

func (e Edge) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Index  int    `json:"index"`
		Source string `json:"source"`
		Event  string `json:"event"`
		Target string `json:"target"`
		Guard  string `json:"guard,omitempty"`
	}{e.Index, e.Source.ID, e.Event, e.Target.ID, e.Transition.GuardName})
}

// InitialEdge points from a compound node to its default child, or from a parallel node to each region.
type InitialEdge struct {
	Index  int
	Parent *domain.Node
	Target *domain.Node
}

func (e InitialEdge) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Index  int    `json:"index"`
		Parent string `json:"parent"`
		Target string `json:"target"`
	}{e.Index, e.Parent.ID, e.Target.ID})
}

// Graph is the static edge set of a machine.
type Graph struct {
	Machine *domain.Machine `json:"-"`
	Edges   []Edge          `json:"edges"`
	Initial []InitialEdge   `json:"initial"`
}

// Build derives the graph. Edges are ordered by source node (document order),
// then event declaration, then transition declaration, then target order.
func Build(m *domain.Machine) *Graph {
	g := &Graph{Machine: m, Edges: []Edge{}, Initial: []InitialEdge{}}
	for _, n := range m.Nodes() {
		for _, event := range n.Events {
			for _, t := range n.Transitions(event) {
				for _, target := range t.Targets() {
					g.Edges = append(g.Edges, Edge{
						Index:      len(g.Edges),
						Source:     n,
						Event:      event,
						Target:     target,
						Transition: t,
					})
				}
			}
		}

		switch n.Kind {
		case domain.KindCompound:
			g.Initial = append(g.Initial, InitialEdge{Index: len(g.Initial), Parent: n, Target: n.InitialChild()})
		case domain.KindParallel:
			for _, region := range n.Regions() {
				g.Initial = append(g.Initial, InitialEdge{Index: len(g.Initial), Parent: n, Target: region})
			}
		}
	}
	return g
}

// From returns the edges leaving n, in graph order.
func (g *Graph) From(n *domain.Node) []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if e.Source == n {
			out = append(out, e)
		}
	}
	return out
}

// Cache memoizes Build for the most recent machine.
// It is recomputed lazily whenever a different machine is requested.
type Cache struct {
	mu      sync.Mutex
	machine *domain.Machine
	graph   *Graph
}

// Get returns the graph of m, building it if m changed since the last call.
func (c *Cache) Get(m *domain.Machine) *Graph {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.graph == nil || c.machine != m {
		c.machine = m
		c.graph = Build(m)
	}
	return c.graph
}

// Invalidate drops the cached graph.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.machine, c.graph = nil, nil
}
