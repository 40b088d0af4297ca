package schema

import (
	"fmt"
	"reflect"
	"strings"
)

// Type checks a single payload value.
type Type interface {
	// Name returns the type as written in a definition, e.g. "int" or "[string]".
	Name() string
	Validate(value any) error
}

type scalar struct {
	name  string
	check func(any) bool
}

func (t scalar) Name() string { return t.name }

func (t scalar) Validate(value any) error {
	if !t.check(value) {
		return fmt.Errorf("expected %s, got %T", t.name, value)
	}
	return nil
}

var (
	stringType = scalar{name: "string", check: func(v any) bool {
		_, ok := v.(string)
		return ok
	}}
	boolType = scalar{name: "bool", check: func(v any) bool {
		_, ok := v.(bool)
		return ok
	}}
	intType   = scalar{name: "int", check: isWhole}
	floatType = scalar{name: "float", check: isNumber}
	anyType   = scalar{name: "any", check: func(any) bool { return true }}
)

// String accepts strings.
func String() Type { return stringType }

// Int accepts integers and whole floats, which is what JSON decoding produces.
func Int() Type { return intType }

// Float accepts any number.
func Float() Type { return floatType }

// Bool accepts booleans.
func Bool() Type { return boolType }

// Any accepts every value, including nil.
func Any() Type { return anyType }

type sliceType struct {
	elem Type
}

// Slice accepts slices or arrays whose elements all match elem.
func Slice(elem Type) Type {
	return sliceType{elem: elem}
}

func (t sliceType) Name() string { return "[" + t.elem.Name() + "]" }

func (t sliceType) Validate(value any) error {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return fmt.Errorf("expected %s, got %T", t.Name(), value)
	}
	for i := 0; i < rv.Len(); i++ {
		if err := t.elem.Validate(rv.Index(i).Interface()); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	return nil
}

// Field is a typed payload entry.
type Field struct {
	Type     Type
	Optional bool
}

// Name returns the field type as written in a definition.
func (f Field) Name() string {
	if f.Optional {
		return f.Type.Name() + "?"
	}
	return f.Type.Name()
}

// Required wraps t as a mandatory field.
func Required(t Type) Field { return Field{Type: t} }

// Optional wraps t as a field that may be absent.
func Optional(t Type) Field { return Field{Type: t, Optional: true} }

// ParseType converts a type name such as "int" or "[string]" to a Type.
func ParseType(name string) (Type, error) {
	name = strings.TrimSpace(name)
	if len(name) > 2 && name[0] == '[' && name[len(name)-1] == ']' {
		elem, err := ParseType(name[1 : len(name)-1])
		if err != nil {
			return nil, err
		}
		return Slice(elem), nil
	}
	switch name {
	case "string":
		return String(), nil
	case "int":
		return Int(), nil
	case "float":
		return Float(), nil
	case "bool":
		return Bool(), nil
	case "any":
		return Any(), nil
	}
	return nil, fmt.Errorf("unsupported type %q", name)
}

// ParseField is ParseType with support for the optional "?" suffix.
func ParseField(name string) (Field, error) {
	name = strings.TrimSpace(name)
	optional := strings.HasSuffix(name, "?")
	t, err := ParseType(strings.TrimSuffix(name, "?"))
	if err != nil {
		return Field{}, err
	}
	return Field{Type: t, Optional: optional}, nil
}

// Parse builds a schema from a field-to-type-name map, as authored in a definition.
// Every bad field is reported.
func Parse(fields map[string]string) (Schema, error) {
	out := make(Schema, len(fields))
	var errs []error
	for _, key := range sortedKeys(fields) {
		f, err := ParseField(fields[key])
		if err != nil {
			errs = append(errs, &FieldError{Key: key, Reason: err.Error()})
			continue
		}
		out[key] = f
	}
	if len(errs) > 0 {
		return nil, &AggregateError{Errors: errs}
	}
	return out, nil
}

func isWhole(v any) bool {
	switch n := v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	case float64:
		return n == float64(int64(n))
	case float32:
		return n == float32(int64(n))
	}
	return false
}

func isNumber(v any) bool {
	switch v.(type) {
	case float32, float64:
		return true
	}
	return isWhole(v)
}
