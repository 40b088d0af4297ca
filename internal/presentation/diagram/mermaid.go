package diagram

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/statelens/pkg/domain"
	"github.com/aretw0/statelens/pkg/graph"
	"github.com/aretw0/statelens/pkg/session"
)

// Overlay contains dynamic state data to visualize on the diagram, keyed by node ID.
type Overlay struct {
	Active    map[string]bool
	Preview   map[string]bool
	Traversed map[string]bool
	Selected  string
}

// OverlayFromView extracts the overlay flags of a session snapshot.
func OverlayFromView(v session.View) *Overlay {
	o := &Overlay{
		Active:    make(map[string]bool),
		Preview:   make(map[string]bool),
		Traversed: make(map[string]bool),
		Selected:  v.Selected,
	}
	for _, n := range v.Nodes {
		o.Active[n.ID] = n.Active
		o.Preview[n.ID] = n.Preview
		o.Traversed[n.ID] = n.Traversed
	}
	return o
}

// GenerateMermaid produces a Mermaid stateDiagram-v2 for g.
// Compound and parallel nodes become composite states (regions separated by "--"),
// history nodes are drawn as H or H*, and guarded transitions show the guard in brackets.
// Overlay styles are applied if overlay is not nil.
func GenerateMermaid(g *graph.Graph, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("stateDiagram-v2\n")

	root := g.Machine.Root()
	initial := make(map[*domain.Node]*domain.Node)
	for _, e := range g.Initial {
		if e.Parent.Kind == domain.KindCompound {
			initial[e.Parent] = e.Target
		}
	}

	if root.Kind == domain.KindParallel {
		writeState(&sb, root, initial, 1)
	} else {
		writeChildren(&sb, root, initial, 1)
	}

	if len(g.Edges) > 0 {
		sb.WriteString("\n")
	}
	for _, e := range g.Edges {
		label := e.Event
		if e.Transition.GuardName != "" {
			label += fmt.Sprintf(" [%s]", e.Transition.GuardName)
		}
		fmt.Fprintf(&sb, "    %s --> %s : %s\n", sanitizeMermaidID(e.Source.ID), sanitizeMermaidID(e.Target.ID), escapeLabel(label))
	}

	if overlay != nil {
		writeOverlay(&sb, g.Machine, overlay)
	}
	return sb.String()
}

func writeChildren(sb *strings.Builder, n *domain.Node, initial map[*domain.Node]*domain.Node, depth int) {
	indent := strings.Repeat("    ", depth)
	if target, ok := initial[n]; ok {
		fmt.Fprintf(sb, "%s[*] --> %s\n", indent, sanitizeMermaidID(target.ID))
	}
	for i, c := range n.Children {
		if n.Kind == domain.KindParallel && i > 0 {
			fmt.Fprintf(sb, "%s--\n", indent)
		}
		writeState(sb, c, initial, depth)
	}
}

func writeState(sb *strings.Builder, n *domain.Node, initial map[*domain.Node]*domain.Node, depth int) {
	indent := strings.Repeat("    ", depth)
	id := sanitizeMermaidID(n.ID)

	switch n.Kind {
	case domain.KindHistory:
		label := "H"
		if n.History == domain.HistoryDeep {
			label = "H*"
		}
		fmt.Fprintf(sb, "%sstate \"%s\" as %s\n", indent, label, id)
	case domain.KindCompound, domain.KindParallel:
		fmt.Fprintf(sb, "%sstate \"%s\" as %s {\n", indent, escapeLabel(n.Key), id)
		writeChildren(sb, n, initial, depth+1)
		fmt.Fprintf(sb, "%s}\n", indent)
	default:
		fmt.Fprintf(sb, "%sstate \"%s\" as %s\n", indent, escapeLabel(n.Key), id)
	}
}

func writeOverlay(sb *strings.Builder, m *domain.Machine, overlay *Overlay) {
	sb.WriteString("\n    %% Overlay Styles\n")
	// Force black text (color:#000) for high contrast regardless of theme.
	sb.WriteString("    classDef traversed fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000\n")
	sb.WriteString("    classDef preview fill:#ede7f6,stroke:#7e57c2,stroke-dasharray:4 2,color:#000\n")
	sb.WriteString("    classDef active fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000\n")
	sb.WriteString("    classDef selected stroke:#d81b60,stroke-width:4px,color:#000\n")

	// Later classes win, so the strongest signal is applied last.
	classes := []struct {
		name  string
		match func(*domain.Node) bool
	}{
		{"traversed", func(n *domain.Node) bool { return overlay.Traversed[n.ID] }},
		{"preview", func(n *domain.Node) bool { return overlay.Preview[n.ID] && !overlay.Active[n.ID] }},
		{"active", func(n *domain.Node) bool { return overlay.Active[n.ID] }},
		{"selected", func(n *domain.Node) bool { return n.ID == overlay.Selected }},
	}
	for _, class := range classes {
		var ids []string
		for _, n := range m.Nodes() {
			if n == m.Root() && n.Kind != domain.KindParallel {
				continue
			}
			if class.match(n) {
				ids = append(ids, sanitizeMermaidID(n.ID))
			}
		}
		if len(ids) == 0 {
			continue
		}
		sort.Strings(ids)
		fmt.Fprintf(sb, "    class %s %s\n", strings.Join(ids, ","), class.name)
	}
}

func sanitizeMermaidID(id string) string {
	r := strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_", "#", "_", ":", "_")
	return r.Replace(id)
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}
