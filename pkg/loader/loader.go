package loader

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/aretw0/statelens/pkg/domain"
	"github.com/aretw0/statelens/pkg/schema"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Loader compiles YAML/JSON definitions. It implements ports.MachineLoader.
type Loader struct {
	guards   map[string]domain.Guard
	validate *validator.Validate
}

// Option configures a Loader.
type Option func(*Loader)

// WithGuard registers a named guard. Transitions whose guard equals name use g
// instead of parsing the text as a condition.
func WithGuard(name string, g domain.Guard) Option {
	return func(l *Loader) {
		l.guards[name] = g
	}
}

// New creates a loader.
func New(opts ...Option) *Loader {
	l := &Loader{
		guards:   make(map[string]domain.Guard),
		validate: validator.New(),
	}
	// Report yaml field names in validation errors.
	l.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load parses definition and builds the machine. Every problem found is reported in a
// single *domain.DefinitionError.
func (l *Loader) Load(definition []byte) (*domain.Machine, error) {
	if len(bytes.TrimSpace(definition)) == 0 {
		return nil, &domain.DefinitionError{Issues: []string{"definition is empty"}}
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(definition, &doc); err != nil {
		return nil, &domain.DefinitionError{Err: fmt.Errorf("failed to parse definition: %w", err)}
	}
	root := &doc
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		root = doc.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return nil, &domain.DefinitionError{Issues: []string{"definition must be a mapping"}}
	}

	var header headerSpec
	if err := root.Decode(&header); err != nil {
		return nil, &domain.DefinitionError{Err: fmt.Errorf("failed to decode definition header: %w", err)}
	}

	c := &compiler{loader: l}
	node := c.state(root, "", true)
	opts := c.events(header.Events)
	if len(c.issues) > 0 {
		return nil, &domain.DefinitionError{Issues: c.issues}
	}

	id := node.ID
	node.ID = ""
	return domain.NewMachine(id, node, header.Context, opts...)
}

// events compiles the payload schemas declared under the top-level events key.
func (c *compiler) events(decl map[string]map[string]string) []domain.MachineOption {
	names := make([]string, 0, len(decl))
	for name := range decl {
		names = append(names, name)
	}
	sort.Strings(names)

	var opts []domain.MachineOption
	for _, name := range names {
		s, err := schema.Parse(decl[name])
		if err != nil {
			c.issues = append(c.issues, fmt.Sprintf("event %s: %v", name, err))
			continue
		}
		opts = append(opts, domain.WithEventSchema(name, s))
	}
	return opts
}

// compiler walks the document and collects issues instead of stopping at the first one.
type compiler struct {
	loader *Loader
	issues []string
}

func (c *compiler) addf(where, format string, args ...any) {
	c.issues = append(c.issues, fmt.Sprintf("state %s: ", where)+fmt.Sprintf(format, args...))
}

func (c *compiler) state(n *yaml.Node, where string, top bool) *domain.Node {
	label := where
	if top {
		label = "(root)"
	}
	node := &domain.Node{}

	if isNull(n) {
		return node
	}
	if n.Kind != yaml.MappingNode {
		c.addf(label, "expected a mapping, got %s", kindName(n))
		return node
	}

	allowed := stateKeys
	if top {
		allowed = machineKeys
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if key := n.Content[i].Value; !allowed[key] {
			c.addf(label, "unknown field %q (line %d)", key, n.Content[i].Line)
		}
	}

	var spec stateSpec
	if err := n.Decode(&spec); err != nil {
		c.addf(label, "%v", err)
		return node
	}
	c.check(label, spec)

	node.ID = spec.ID
	node.Kind = domain.Kind(spec.Type)
	if node.Kind == "" && spec.History != "" {
		node.Kind = domain.KindHistory
	}
	node.Initial = spec.Initial
	node.History = domain.HistoryMode(spec.History)
	node.Target = spec.Target
	node.Entry = c.actions(label+" entry", spec.Entry)
	node.Exit = c.actions(label+" exit", spec.Exit)

	if top && isNull(&spec.States) {
		c.addf(label, "a machine needs states")
	}
	if !isNull(&spec.States) {
		if spec.States.Kind != yaml.MappingNode {
			c.addf(label, "states must be a mapping, got %s", kindName(&spec.States))
		} else {
			for i := 0; i+1 < len(spec.States.Content); i += 2 {
				key := spec.States.Content[i].Value
				child := c.state(spec.States.Content[i+1], join(where, key), false)
				child.Key = key
				node.Children = append(node.Children, child)
			}
		}
	}

	if !isNull(&spec.On) {
		if spec.On.Kind != yaml.MappingNode {
			c.addf(label, "on must be a mapping, got %s", kindName(&spec.On))
		} else {
			node.On = make(map[string][]*domain.Transition)
			for i := 0; i+1 < len(spec.On.Content); i += 2 {
				event := spec.On.Content[i].Value
				if _, dup := node.On[event]; dup {
					c.addf(label, "event %q declared twice", event)
					continue
				}
				node.Events = append(node.Events, event)
				node.On[event] = c.transitions(label, event, spec.On.Content[i+1])
			}
		}
	}
	return node
}

func (c *compiler) check(label string, spec stateSpec) {
	err := c.loader.validate.Struct(spec)
	if err == nil {
		return
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		c.addf(label, "%v", err)
		return
	}
	for _, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		c.addf(label, "field %q with value %v fails rule %q", fe.Field(), fe.Value(), rule)
	}
}

// transitions accepts a target string, a transition object, or a list of either.
func (c *compiler) transitions(label, event string, n *yaml.Node) []*domain.Transition {
	where := fmt.Sprintf("%s event %q", label, event)
	switch n.Kind {
	case yaml.ScalarNode:
		return []*domain.Transition{c.shorthand(n)}
	case yaml.MappingNode:
		if t := c.transition(where, n); t != nil {
			return []*domain.Transition{t}
		}
		return nil
	case yaml.SequenceNode:
		var out []*domain.Transition
		for _, item := range n.Content {
			switch item.Kind {
			case yaml.ScalarNode:
				out = append(out, c.shorthand(item))
			case yaml.MappingNode:
				if t := c.transition(where, item); t != nil {
					out = append(out, t)
				}
			default:
				c.addf(where, "unexpected %s in transition list", kindName(item))
			}
		}
		return out
	}
	c.addf(where, "unexpected %s", kindName(n))
	return nil
}

// shorthand turns a scalar into a transition. Null or empty means targetless.
func (c *compiler) shorthand(n *yaml.Node) *domain.Transition {
	if isNull(n) || strings.TrimSpace(n.Value) == "" {
		return &domain.Transition{}
	}
	return &domain.Transition{Target: []string{n.Value}}
}

func (c *compiler) transition(where string, n *yaml.Node) *domain.Transition {
	var raw map[string]any
	if err := n.Decode(&raw); err != nil {
		c.addf(where, "%v", err)
		return nil
	}

	var spec transitionSpec
	if err := decode(raw, &spec, true); err != nil {
		c.addf(where, "%v", err)
		return nil
	}

	t := &domain.Transition{
		Internal: spec.Internal,
		Actions:  c.actions(where+" actions", spec.Actions),
	}
	for _, target := range spec.Target {
		if strings.TrimSpace(target) != "" {
			t.Target = append(t.Target, target)
		}
	}

	guard := spec.Guard
	if spec.Cond != "" {
		if guard != "" {
			c.addf(where, "guard and cond are mutually exclusive")
		}
		guard = spec.Cond
	}
	if guard != "" {
		t.GuardName, t.Guard = c.guard(where, guard)
	}
	return t
}

// guard resolves a registered name first, then falls back to a condition expression.
func (c *compiler) guard(where, text string) (string, domain.Guard) {
	text = strings.TrimSpace(text)
	if g, ok := c.loader.guards[text]; ok {
		return text, g
	}
	cond, err := ParseCondition(text)
	if err != nil {
		c.addf(where, "invalid guard: %v", err)
		return text, nil
	}
	return cond.String(), cond.Guard()
}

// actions accepts an action name, an action object, or a list of either.
func (c *compiler) actions(where string, raw any) []domain.Action {
	var items []any
	switch v := raw.(type) {
	case nil:
		return nil
	case []any:
		items = v
	default:
		items = []any{v}
	}

	var out []domain.Action
	for i, item := range items {
		switch v := item.(type) {
		case string:
			if v == "" {
				c.addf(where, "action %d has an empty type", i)
				continue
			}
			out = append(out, domain.Action{Type: v})
		case map[string]any:
			var spec actionSpec
			if err := decode(v, &spec, false); err != nil {
				c.addf(where, "action %d: %v", i, err)
				continue
			}
			if err := c.loader.validate.Struct(spec); err != nil {
				c.addf(where, "action %d has no type", i)
				continue
			}
			params := domain.CopyContext(spec.Params)
			for k, val := range spec.Rest {
				params[k] = val
			}
			if len(params) == 0 {
				params = nil
			}
			out = append(out, domain.Action{Type: spec.Type, Params: params})
		default:
			c.addf(where, "action %d: expected a name or an object, got %T", i, item)
		}
	}
	return out
}

func decode(input any, out any, strict bool) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      strict,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

func isNull(n *yaml.Node) bool {
	return n.Kind == 0 || (n.Kind == yaml.ScalarNode && n.Tag == "!!null")
}

func kindName(n *yaml.Node) string {
	switch n.Kind {
	case yaml.ScalarNode:
		return "a scalar"
	case yaml.SequenceNode:
		return "a list"
	case yaml.MappingNode:
		return "a mapping"
	case yaml.AliasNode:
		return "an alias"
	}
	return "nothing"
}

func join(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + domain.PathSeparator + key
}
