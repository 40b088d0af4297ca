package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/statelens/pkg/domain"
	"github.com/aretw0/statelens/pkg/session"
	"github.com/muesli/termenv"
)

// TreeOptions tunes RenderTree.
type TreeOptions struct {
	// HideRoot omits the machine header line and shifts every node one level up.
	HideRoot bool
	// Profile selects the colour profile. termenv.Ascii produces plain text.
	Profile termenv.Profile
}

// Node markers.
const (
	markActive    = "●"
	markPreview   = "◌"
	markTraversed = "✓"
	markIdle      = "○"
)

// RenderTree draws the node hierarchy of a snapshot with its overlay flags.
// Each node is followed by its outgoing edges.
func RenderTree(v session.View, opts TreeOptions) string {
	if v.MachineID == "" {
		return "(no machine loaded)\n"
	}
	p := opts.Profile

	edges := make(map[string][]session.EdgeView)
	for _, e := range v.Edges {
		edges[e.Source] = append(edges[e.Source], e)
	}

	var sb strings.Builder
	for _, n := range v.Nodes {
		depth := n.Depth
		if opts.HideRoot {
			if depth == 0 {
				continue
			}
			depth--
		}
		indent := strings.Repeat("  ", depth)

		cursor := " "
		if n.Selected {
			cursor = p.String(">").Foreground(p.Color("#d81b60")).Bold().String()
		}
		fmt.Fprintf(&sb, "%s%s%s %s%s\n", cursor, indent, nodeMarker(p, n), nodeLabel(p, n), kindSuffix(n))

		for _, e := range edges[n.ID] {
			fmt.Fprintf(&sb, " %s    %s\n", indent, edgeLine(p, e))
		}
	}
	return sb.String()
}

func nodeMarker(p termenv.Profile, n session.NodeView) string {
	switch {
	case n.Active:
		return p.String(markActive).Foreground(p.Color("#facc15")).String()
	case n.Preview:
		return p.String(markPreview).Foreground(p.Color("#a78bfa")).String()
	case n.Traversed:
		return p.String(markTraversed).Foreground(p.Color("#38bdf8")).String()
	}
	return p.String(markIdle).Faint().String()
}

func nodeLabel(p termenv.Profile, n session.NodeView) string {
	label := n.Key
	if n.Depth == 0 {
		label = n.ID
	}
	s := p.String(label)
	if n.Active {
		s = s.Bold()
	}
	if n.Selected {
		s = s.Underline()
	}
	return s.String()
}

func kindSuffix(n session.NodeView) string {
	switch n.Kind {
	case domain.KindParallel:
		return " [parallel]"
	case domain.KindHistory:
		return " [history]"
	}
	return ""
}

func edgeLine(p termenv.Profile, e session.EdgeView) string {
	target := e.Target
	if i := strings.LastIndex(target, domain.PathSeparator); i >= 0 {
		target = target[i+1:]
	}
	text := fmt.Sprintf("%s → %s", e.Event, target)
	if e.Guard != "" {
		text += fmt.Sprintf(" [%s]", e.Guard)
	}

	s := p.String(text)
	switch {
	case e.Preview:
		s = s.Foreground(p.Color("#a78bfa")).Bold()
		text = "~ "
	case e.Active:
		s = s.Foreground(p.Color("#facc15"))
		text = "→ "
	case e.Traversed:
		s = s.Foreground(p.Color("#38bdf8"))
		text = "✓ "
	default:
		s = s.Faint()
		text = "  "
	}
	return text + s.String()
}
