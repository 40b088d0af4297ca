package tui

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aretw0/statelens/pkg/domain"
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown using glamour.
// When plain is true the notty style is used, which keeps the output free of escape codes.
func NewRenderer(plain bool) func(string) (string, error) {
	style := glamour.WithAutoStyle()
	if plain {
		style = glamour.WithStandardStyle("notty")
	}
	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(100))
	if err != nil {
		return func(markdown string) (string, error) { return markdown, nil }
	}
	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}

// StateMarkdown describes a configuration: its value, context, executed actions and
// the event that produced it.
func StateMarkdown(cfg *domain.Configuration) string {
	if cfg == nil {
		return "_no machine loaded_\n"
	}

	var sb strings.Builder
	sb.WriteString("### State\n\n")
	writeJSON(&sb, "Value", cfg.Value)
	writeJSON(&sb, "Context", cfg.Context)

	if len(cfg.Actions) > 0 {
		sb.WriteString("**Actions**\n\n")
		for _, a := range cfg.Actions {
			fmt.Fprintf(&sb, "- `%s`\n", a)
		}
		sb.WriteString("\n")
	}
	if cfg.Event != nil {
		writeJSON(&sb, "Event", cfg.Event)
	}
	return sb.String()
}

func writeJSON(sb *strings.Builder, title string, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		data = []byte(fmt.Sprintf("%v", v))
	}
	fmt.Fprintf(sb, "**%s**\n\n```json\n%s\n```\n\n", title, data)
}
