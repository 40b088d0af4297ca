package runtime_test

import (
	"context"
	"testing"

	"github.com/aretw0/statelens/pkg/domain"
	"github.com/aretw0/statelens/pkg/dsl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func send(t *testing.T, i interface {
	Send(context.Context, domain.Event) (*domain.Configuration, error)
}, events ...string) *domain.Configuration {
	t.Helper()
	var c *domain.Configuration
	for _, e := range events {
		var err error
		c, err = i.Send(context.Background(), domain.NewEvent(e))
		require.NoError(t, err)
	}
	return c
}

func TestInterpreter_ShallowHistory(t *testing.T) {
	b := dsl.New("player")
	b.State("off").On("POWER", "on.hist")
	on := b.State("on").On("POWER", "off").History("hist", domain.HistoryShallow, "")
	on.State("one").On("NEXT", "two")
	on.State("two")

	i := started(t, b.MustBuild())
	assert.Equal(t, "off", i.Current().Value)

	c := send(t, i, "POWER")
	assert.Equal(t, map[string]any{"on": "one"}, c.Value, "no record yet: parent's initial child")

	c = send(t, i, "NEXT", "POWER", "POWER")
	assert.Equal(t, map[string]any{"on": "two"}, c.Value)
}

func TestInterpreter_DeepHistory(t *testing.T) {
	build := func(mode domain.HistoryMode) *domain.Machine {
		b := dsl.New("player")
		b.State("off").On("POWER", "on.hist")
		on := b.State("on").On("POWER", "off").History("hist", mode, "")
		a := on.State("a")
		a.State("a1").On("NEXT", "a2")
		a.State("a2")
		on.State("b")
		return b.MustBuild()
	}

	deep := started(t, build(domain.HistoryDeep))
	c := send(t, deep, "POWER", "NEXT", "POWER", "POWER")
	assert.Equal(t, map[string]any{"on": map[string]any{"a": "a2"}}, c.Value)

	shallow := started(t, build(domain.HistoryShallow))
	c = send(t, shallow, "POWER", "NEXT", "POWER", "POWER")
	assert.Equal(t, map[string]any{"on": map[string]any{"a": "a1"}}, c.Value)
}

func TestInterpreter_HistoryDefaultTarget(t *testing.T) {
	b := dsl.New("m")
	b.State("off").On("POWER", "on.hist")
	on := b.State("on").History("hist", domain.HistoryShallow, "two")
	on.State("one")
	on.State("two")

	i := started(t, b.MustBuild())
	c := send(t, i, "POWER")
	assert.Equal(t, map[string]any{"on": "two"}, c.Value)
}

func TestInterpreter_InternalTransition(t *testing.T) {
	build := func(internal bool) *domain.Machine {
		b := dsl.New("m").Context("entered", 0)
		p := b.State("p").
			Entry(dsl.Increment("entered", 1)).
			Transition("RESET", domain.Transition{Target: []string{".c1"}, Internal: internal})
		p.State("c1").On("NEXT", "c2")
		p.State("c2")
		return b.MustBuild()
	}

	internal := started(t, build(true))
	c := send(t, internal, "NEXT", "RESET")
	assert.Equal(t, map[string]any{"p": "c1"}, c.Value)
	assert.Equal(t, 1, c.Context["entered"])

	external := started(t, build(false))
	c = send(t, external, "NEXT", "RESET")
	assert.Equal(t, map[string]any{"p": "c1"}, c.Value)
	assert.Equal(t, 2, c.Context["entered"])
}

func TestInterpreter_ChildTransitionWins(t *testing.T) {
	b := dsl.New("m")
	p := b.State("p").On("GO", "q")
	p.State("c1").On("GO", "c2")
	p.State("c2")
	b.State("q")

	i := started(t, b.MustBuild())
	c := send(t, i, "GO")
	assert.Equal(t, map[string]any{"p": "c2"}, c.Value)
	c = send(t, i, "GO")
	assert.Equal(t, "q", c.Value)
}
