package runtime

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/statelens/pkg/domain"
)

const (
	eventRef   = "$event."
	contextRef = "$context."
)

// scheduled is an action bound to the node (or transition) that owns it.
type scheduled struct {
	action domain.Action
	nodeID string
}

// schedule lists the actions of a plan in execution order:
// exit actions deepest-first, then transition actions, then entry actions shallowest-first.
func (p *plan) schedule() []scheduled {
	var out []scheduled
	for _, n := range p.exit {
		for _, a := range n.Exit {
			out = append(out, scheduled{action: a, nodeID: n.ID})
		}
	}
	for _, t := range p.transitions {
		for _, a := range t.Actions {
			out = append(out, scheduled{action: a})
		}
	}
	for _, n := range p.entry {
		for _, a := range n.Entry {
			out = append(out, scheduled{action: a, nodeID: n.ID})
		}
	}
	return out
}

// applyBuiltin returns the context produced by a built-in action.
// ctx is never modified; a copy is made when the action writes.
func applyBuiltin(a domain.Action, ctx map[string]any, evt *domain.Event) (map[string]any, error) {
	switch a.Type {
	case domain.ActionAssign:
		next := domain.CopyContext(ctx)
		for _, key := range sortedKeys(a.Params) {
			next[key] = resolveValue(a.Params[key], ctx, evt)
		}
		return next, nil

	case domain.ActionIncrement:
		next := domain.CopyContext(ctx)
		for _, key := range sortedKeys(a.Params) {
			delta := resolveValue(a.Params[key], ctx, evt)
			sum, err := add(next[key], delta)
			if err != nil {
				return nil, fmt.Errorf("increment %q: %w", key, err)
			}
			next[key] = sum
		}
		return next, nil
	}
	return ctx, nil
}

// resolveValue dereferences "$event.<field>" and "$context.<key>" strings.
func resolveValue(v any, ctx map[string]any, evt *domain.Event) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	switch {
	case strings.HasPrefix(s, eventRef):
		if evt == nil {
			return nil
		}
		field := strings.TrimPrefix(s, eventRef)
		if field == "type" {
			return evt.Type
		}
		return evt.Field(field)
	case strings.HasPrefix(s, contextRef):
		return ctx[strings.TrimPrefix(s, contextRef)]
	}
	return v
}

// add sums two numbers. Integers stay integers; anything else becomes float64.
// A missing current value counts as zero.
func add(current, delta any) (any, error) {
	if current == nil {
		current = 0
	}
	ci, cInt := asInt(current)
	di, dInt := asInt(delta)
	if cInt && dInt {
		return ci + di, nil
	}
	cf, ok := asFloat(current)
	if !ok {
		return nil, fmt.Errorf("current value %v (%T) is not a number", current, current)
	}
	df, ok := asFloat(delta)
	if !ok {
		return nil, fmt.Errorf("delta %v (%T) is not a number", delta, delta)
	}
	return cf + df, nil
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint:
		return int(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return int(n), true
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	if i, ok := asInt(v); ok {
		return float64(i), true
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
