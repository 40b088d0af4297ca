package loader_test

import (
	"testing"

	"github.com/aretw0/statelens/pkg/domain"
	"github.com/aretw0/statelens/pkg/loader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCondition_Eval(t *testing.T) {
	ctx := map[string]any{
		"count": 3,
		"ratio": 0.5,
		"name":  "ada",
		"ready": true,
		"empty": "",
		"user":  map[string]any{"role": "admin"},
	}
	evt := domain.Event{Type: "submit", Data: map[string]any{"amount": 10}}

	tests := []struct {
		expr string
		want bool
	}{
		{"ready", true},
		{"!ready", false},
		{"empty", false},
		{"!missing", true},
		{"count > 2", true},
		{"count >= 3", true},
		{"count < 3", false},
		{"context.count <= 3.0", true},
		{"count == 3", true},
		{"count != 3", false},
		{"ratio < 1", true},
		{"name == 'ada'", true},
		{`name != "bob"`, true},
		{"name < 'b'", true},
		{"user.role == 'admin'", true},
		{"event.amount > count", true},
		{"event.type == 'submit'", true},
		{"missing == null", true},
		{"ready == true", true},
		{"count>-1", true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			c, err := loader.ParseCondition(tt.expr)
			require.NoError(t, err)
			got, err := c.Eval(ctx, evt)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCondition_ParseErrors(t *testing.T) {
	for _, expr := range []string{
		"",
		"count = 3",
		"count >",
		"a b c d",
		"'unterminated",
		"context == 1",
		"9lives",
	} {
		t.Run(expr, func(t *testing.T) {
			_, err := loader.ParseCondition(expr)
			assert.Error(t, err)
		})
	}
}

func TestCondition_OrderingTypeMismatch(t *testing.T) {
	c, err := loader.ParseCondition("name > 1")
	require.NoError(t, err)
	_, err = c.Eval(map[string]any{"name": "ada"}, domain.NewEvent("x"))
	assert.Error(t, err)
}
