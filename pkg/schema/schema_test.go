package schema_test

import (
	"testing"

	"github.com/aretw0/statelens/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseField(t *testing.T) {
	tests := []struct {
		in       string
		name     string
		optional bool
	}{
		{"string", "string", false},
		{"int?", "int", true},
		{" [float] ", "[float]", false},
		{"[[bool]]?", "[[bool]]", true},
		{"any", "any", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			f, err := schema.ParseField(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.name, f.Type.Name())
			assert.Equal(t, tt.optional, f.Optional)
		})
	}

	_, err := schema.ParseField("money")
	assert.ErrorContains(t, err, `unsupported type "money"`)
	_, err = schema.ParseField("[]")
	assert.Error(t, err)
}

func TestParse_ReportsEveryField(t *testing.T) {
	_, err := schema.Parse(map[string]string{"a": "nope", "b": "int", "c": "[x]"})
	require.Error(t, err)

	fields := schema.FieldErrors(err)
	require.Len(t, fields, 2)
	assert.Equal(t, "a", fields[0].Key)
	assert.Equal(t, "c", fields[1].Key)
}

func TestSchema_Validate(t *testing.T) {
	s, err := schema.Parse(map[string]string{
		"sku":   "string",
		"price": "float",
		"qty":   "int?",
		"tags":  "[string]?",
	})
	require.NoError(t, err)

	assert.NoError(t, s.Validate(map[string]any{"sku": "a-1", "price": 3}))
	assert.NoError(t, s.Validate(map[string]any{"sku": "a-1", "price": 2.5, "qty": float64(2), "tags": []any{"x"}, "extra": true}))

	err = s.Validate(map[string]any{"price": "free", "qty": 1.5, "tags": []any{"x", 2}})
	require.Error(t, err)
	fields := schema.FieldErrors(err)
	require.Len(t, fields, 4)
	assert.Equal(t, []string{"price", "qty", "sku", "tags"}, []string{fields[0].Key, fields[1].Key, fields[2].Key, fields[3].Key})
	assert.Equal(t, "required", fields[2].Reason)
	assert.Contains(t, fields[3].Reason, "element 1")
	assert.Contains(t, err.Error(), "4 fields invalid")
}

func TestSchema_Empty(t *testing.T) {
	assert.NoError(t, schema.Schema{}.Validate(nil))
	assert.NoError(t, schema.Schema{"x": schema.Optional(schema.Any())}.Validate(nil))
	assert.Error(t, schema.Schema{"x": schema.Required(schema.Any())}.Validate(nil))
}

func TestSchema_Names(t *testing.T) {
	s := schema.Schema{
		"n":    schema.Required(schema.Int()),
		"tags": schema.Optional(schema.Slice(schema.String())),
		"ok":   schema.Required(schema.Bool()),
	}
	assert.Equal(t, map[string]string{"n": "int", "tags": "[string]?", "ok": "bool"}, s.Names())
}
