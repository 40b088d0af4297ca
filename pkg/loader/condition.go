package loader

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/aretw0/statelens/pkg/domain"
)

// Condition is a parsed guard expression. Supported forms:
//
//	ident
//	!ident
//	operand op operand   (op is one of == != > >= < <=)
//
// An identifier is "context.<key>", "event.<field>" or a bare context key; dots
// descend into nested maps. Literals are numbers, quoted strings, true, false and null.
type Condition struct {
	source string
	negate bool
	left   operand
	op     string
	right  operand
}

type operand struct {
	scope   string // "context", "event" or "" for literals
	path    []string
	literal any
}

var comparators = map[string]bool{"==": true, "!=": true, ">": true, ">=": true, "<": true, "<=": true}

// ParseCondition compiles a guard expression.
func ParseCondition(src string) (*Condition, error) {
	tokens, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	c := &Condition{source: strings.TrimSpace(src)}

	switch {
	case len(tokens) == 1:
		c.left, err = parseOperand(tokens[0])
	case len(tokens) == 2 && tokens[0] == "!":
		c.negate = true
		c.left, err = parseOperand(tokens[1])
	case len(tokens) == 3 && comparators[tokens[1]]:
		c.op = tokens[1]
		if c.left, err = parseOperand(tokens[0]); err == nil {
			c.right, err = parseOperand(tokens[2])
		}
	default:
		return nil, fmt.Errorf("unsupported condition %q", src)
	}
	if err != nil {
		return nil, fmt.Errorf("condition %q: %w", src, err)
	}
	return c, nil
}

// String returns the expression as authored.
func (c *Condition) String() string {
	return c.source
}

// Guard adapts the condition to a transition guard.
func (c *Condition) Guard() domain.Guard {
	return c.Eval
}

// Eval evaluates the condition against a context and an event.
func (c *Condition) Eval(ctx map[string]any, evt domain.Event) (bool, error) {
	left := c.left.value(ctx, evt)
	if c.op == "" {
		return truthy(left) != c.negate, nil
	}
	right := c.right.value(ctx, evt)

	switch c.op {
	case "==":
		return equal(left, right), nil
	case "!=":
		return !equal(left, right), nil
	}

	cmp, err := compare(left, right)
	if err != nil {
		return false, fmt.Errorf("%s: %w", c.source, err)
	}
	switch c.op {
	case ">":
		return cmp > 0, nil
	case ">=":
		return cmp >= 0, nil
	case "<":
		return cmp < 0, nil
	default:
		return cmp <= 0, nil
	}
}

func (o operand) value(ctx map[string]any, evt domain.Event) any {
	var v any
	switch o.scope {
	case "":
		return o.literal
	case "event":
		if o.path[0] == "type" && len(o.path) == 1 {
			return evt.Type
		}
		v = evt.Field(o.path[0])
	default:
		v = ctx[o.path[0]]
	}
	for _, key := range o.path[1:] {
		m, ok := v.(map[string]any)
		if !ok {
			return nil
		}
		v = m[key]
	}
	return v
}

func tokenize(src string) ([]string, error) {
	var tokens []string
	r := []rune(src)
	for i := 0; i < len(r); {
		switch ch := r[i]; {
		case unicode.IsSpace(ch):
			i++
		case ch == '"' || ch == '\'':
			j := i + 1
			for j < len(r) && r[j] != ch {
				if r[j] == '\\' {
					j++
				}
				j++
			}
			if j >= len(r) {
				return nil, fmt.Errorf("unterminated string in %q", src)
			}
			tokens = append(tokens, string(r[i:j+1]))
			i = j + 1
		case strings.ContainsRune("=!<>", ch):
			if i+1 < len(r) && r[i+1] == '=' {
				tokens = append(tokens, string(r[i:i+2]))
				i += 2
				continue
			}
			if ch == '=' {
				return nil, fmt.Errorf("use == for equality in %q", src)
			}
			tokens = append(tokens, string(ch))
			i++
		default:
			j := i
			for j < len(r) && !unicode.IsSpace(r[j]) && !strings.ContainsRune("=!<>\"'", r[j]) {
				j++
			}
			tokens = append(tokens, string(r[i:j]))
			i = j
		}
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("empty condition")
	}
	return tokens, nil
}

func parseOperand(tok string) (operand, error) {
	switch tok {
	case "true":
		return operand{literal: true}, nil
	case "false":
		return operand{literal: false}, nil
	case "null", "nil":
		return operand{}, nil
	}
	if q := tok[0]; q == '"' || q == '\'' {
		body := tok[1 : len(tok)-1]
		body = strings.ReplaceAll(body, `\`+string(q), string(q))
		return operand{literal: body}, nil
	}
	if n, err := strconv.ParseInt(tok, 10, 64); err == nil {
		return operand{literal: int(n)}, nil
	}
	if f, err := strconv.ParseFloat(tok, 64); err == nil {
		return operand{literal: f}, nil
	}

	parts := strings.Split(tok, ".")
	for _, p := range parts {
		if !isIdent(p) {
			return operand{}, fmt.Errorf("invalid identifier %q", tok)
		}
	}
	switch parts[0] {
	case "context", "event":
		if len(parts) == 1 {
			return operand{}, fmt.Errorf("%q needs a field", tok)
		}
		return operand{scope: parts[0], path: parts[1:]}, nil
	}
	return operand{scope: "context", path: parts}, nil
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, ch := range s {
		if ch == '_' || unicode.IsLetter(ch) || (i > 0 && unicode.IsDigit(ch)) {
			continue
		}
		return false
	}
	return true
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	}
	if f, ok := number(v); ok {
		return f != 0
	}
	return true
}

func equal(a, b any) bool {
	fa, okA := number(a)
	fb, okB := number(b)
	if okA && okB {
		return fa == fb
	}
	return reflect.DeepEqual(a, b)
}

func compare(a, b any) (int, error) {
	fa, okA := number(a)
	fb, okB := number(b)
	if okA && okB {
		switch {
		case fa < fb:
			return -1, nil
		case fa > fb:
			return 1, nil
		}
		return 0, nil
	}
	sa, okA := a.(string)
	sb, okB := b.(string)
	if okA && okB {
		return strings.Compare(sa, sb), nil
	}
	return 0, fmt.Errorf("cannot order %T and %T", a, b)
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
