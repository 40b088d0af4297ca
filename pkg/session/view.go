package session

import (
	"github.com/aretw0/statelens/pkg/domain"
	"github.com/aretw0/statelens/pkg/graph"
	"github.com/aretw0/statelens/pkg/history"
)

// View is the visualization state of a session at one point in time.
// It is what presentation layers render.
type View struct {
	SessionID  string `json:"session_id"`
	MachineID  string `json:"machine_id,omitempty"`
	Definition string `json:"definition,omitempty"`
	Status     string `json:"status"`

	Current      *domain.Configuration `json:"current,omitempty"`
	Preview      *domain.Configuration `json:"preview,omitempty"`
	PreviewEvent *domain.Event         `json:"preview_event,omitempty"`

	Graph   *graph.Graph      `json:"-"`
	Nodes   []NodeView        `json:"nodes"`
	Edges   []EdgeView        `json:"edges"`
	Initial []InitialEdgeView `json:"initial"`

	History         history.Record `json:"history"`
	Selected        string         `json:"selected,omitempty"`
	AvailableEvents []string       `json:"available_events"`
}

// NodeView carries the overlay flags of a node.
type NodeView struct {
	Node *domain.Node `json:"-"`

	ID        string      `json:"id"`
	Path      string      `json:"path"`
	Key       string      `json:"key"`
	Kind      domain.Kind `json:"kind"`
	Depth     int         `json:"depth"`
	Active    bool        `json:"active"`
	Preview   bool        `json:"preview"`
	Traversed bool        `json:"traversed"`
	Selected  bool        `json:"selected"`
}

// EdgeView carries the overlay flags of an edge.
type EdgeView struct {
	Edge graph.Edge `json:"-"`

	Key    string `json:"key"`
	Source string `json:"source"`
	Event  string `json:"event"`
	Target string `json:"target"`
	Guard  string `json:"guard,omitempty"`

	// Active: the source is part of the current configuration.
	Active bool `json:"active"`
	// Preview: the edge is the one the previewed event would take.
	Preview bool `json:"preview"`
	// Traversed: the source was recorded with the edge event.
	Traversed bool `json:"traversed"`
}

// InitialEdgeView carries the overlay flags of a default-entry edge.
type InitialEdgeView struct {
	Edge graph.InitialEdge `json:"-"`

	Parent  string `json:"parent"`
	Target  string `json:"target"`
	Active  bool   `json:"active"`
	Preview bool   `json:"preview"`
}

// Node returns the view of the node with the given ID.
func (v View) Node(id string) (NodeView, bool) {
	for _, n := range v.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return NodeView{}, false
}

func buildView(s *Session) View {
	v := View{
		SessionID:       s.id,
		Status:          "empty",
		Nodes:           []NodeView{},
		Edges:           []EdgeView{},
		Initial:         []InitialEdgeView{},
		History:         history.Record{Events: map[string][]string{}, Traversed: []string{}},
		AvailableEvents: []string{},
	}
	if s.machine == nil {
		return v
	}

	cur := s.interp.Current()
	prev := s.preview
	v.MachineID = s.machine.ID()
	v.Definition = string(s.definition)
	v.Status = s.interp.Status().String()
	v.Current = cur
	v.Preview = prev
	v.PreviewEvent = s.previewEvent
	v.History = s.tracker.Snapshot()
	if ev := s.interp.AvailableEvents(); ev != nil {
		v.AvailableEvents = ev
	}
	if sel := s.selection.Selected(); sel != nil {
		v.Selected = sel.ID
	}

	traversed := make(map[string]bool, len(v.History.Traversed))
	for _, id := range v.History.Traversed {
		traversed[id] = true
	}
	for _, n := range s.machine.Nodes() {
		v.Nodes = append(v.Nodes, NodeView{
			Node:      n,
			ID:        n.ID,
			Path:      n.Path.String(),
			Key:       n.Key,
			Kind:      n.Kind,
			Depth:     len(n.Path),
			Active:    cur.IsActive(n),
			Preview:   prev.IsActive(n),
			Traversed: traversed[n.ID],
			Selected:  s.selection.Selected() == n,
		})
	}

	g := s.graphs.Get(s.machine)
	v.Graph = g
	for _, e := range g.Edges {
		v.Edges = append(v.Edges, EdgeView{
			Edge:      e,
			Key:       e.Key(),
			Source:    e.Source.ID,
			Event:     e.Event,
			Target:    e.Target.ID,
			Guard:     e.Transition.GuardName,
			Active:    cur.Matches(e.Source.Path),
			Preview:   isEdgePreviewed(e, cur, prev, s.previewEvent),
			Traversed: s.tracker.IsEdgeTraversed(e),
		})
	}
	for _, e := range g.Initial {
		v.Initial = append(v.Initial, InitialEdgeView{
			Edge:    e,
			Parent:  e.Parent.ID,
			Target:  e.Target.ID,
			Active:  cur.Matches(e.Target.Path),
			Preview: prev != nil && (cur.Matches(e.Target.Path) || prev.Matches(e.Target.Path)),
		})
	}
	return v
}

// isEdgePreviewed: the edge carries the previewed event, its source is active now
// and its target is active in the preview.
func isEdgePreviewed(e graph.Edge, cur, prev *domain.Configuration, evt *domain.Event) bool {
	if prev == nil || evt == nil || e.Event != evt.Type {
		return false
	}
	return cur.Matches(e.Source.Path) && prev.Matches(e.Target.Path)
}
