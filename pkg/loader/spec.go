package loader

import (
	"gopkg.in/yaml.v3"
)

// stateSpec is the authored shape of a state. Nested states and transitions are kept as
// raw nodes so their document order survives decoding.
type stateSpec struct {
	ID      string    `yaml:"id" validate:"omitempty,excludesall=#"`
	Type    string    `yaml:"type" validate:"omitempty,oneof=atomic compound parallel history"`
	Initial string    `yaml:"initial" validate:"omitempty,excludesall=.#"`
	History string    `yaml:"history" validate:"omitempty,oneof=shallow deep"`
	Target  string    `yaml:"target"`
	States  yaml.Node `yaml:"states" validate:"-"`
	On      yaml.Node `yaml:"on" validate:"-"`
	Entry   any       `yaml:"entry"`
	Exit    any       `yaml:"exit"`
}

// headerSpec holds the top-level fields that are not part of the root state.
type headerSpec struct {
	Version string         `yaml:"version"`
	Context map[string]any               `yaml:"context"`
	Events  map[string]map[string]string `yaml:"events"`
}

// transitionSpec is the object form of a transition.
type transitionSpec struct {
	Target   []string `mapstructure:"target"`
	Guard    string   `mapstructure:"guard"`
	Cond     string   `mapstructure:"cond"`
	Actions  any      `mapstructure:"actions"`
	Internal bool     `mapstructure:"internal"`
}

// actionSpec is the object form of an action. Keys other than type and params are
// merged into the params.
type actionSpec struct {
	Type   string         `mapstructure:"type" validate:"required"`
	Params map[string]any `mapstructure:"params"`
	Rest   map[string]any `mapstructure:",remain"`
}

var (
	stateKeys   = keySet("id", "type", "initial", "history", "target", "states", "on", "entry", "exit")
	machineKeys = keySet("id", "type", "initial", "states", "on", "entry", "exit", "version", "context", "events")
)

func keySet(keys ...string) map[string]bool {
	out := make(map[string]bool, len(keys))
	for _, k := range keys {
		out[k] = true
	}
	return out
}
