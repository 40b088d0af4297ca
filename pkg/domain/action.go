package domain

import (
	"fmt"
	"sort"
	"strings"
)

// Built-in action types. They are interpreted purely by the runtime and shape
// the next context; every other type is opaque and handed to the host.
const (
	// ActionAssign sets context keys. Params: key -> value.
	// String values prefixed with "$event." or "$context." are copied from that source.
	ActionAssign = "assign"

	// ActionIncrement adds a numeric delta to context keys. Params: key -> delta.
	ActionIncrement = "increment"

	// ActionLog records a message. Params: "message".
	ActionLog = "log"
)

// Action is a descriptor of an effect executed on entry, exit or transition.
type Action struct {
	Type   string         `json:"type" yaml:"type"`
	Params map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
}

// IsBuiltin reports whether the runtime interprets the action itself.
func (a Action) IsBuiltin() bool {
	switch a.Type {
	case ActionAssign, ActionIncrement, ActionLog:
		return true
	}
	return false
}

func (a Action) String() string {
	if len(a.Params) == 0 {
		return a.Type
	}
	keys := make([]string, 0, len(a.Params))
	for k := range a.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, a.Params[k]))
	}
	return fmt.Sprintf("%s(%s)", a.Type, strings.Join(parts, ", "))
}
