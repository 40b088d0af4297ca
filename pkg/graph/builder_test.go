package graph_test

import (
	"encoding/json"
	"testing"

	"github.com/aretw0/statelens/pkg/domain"
	"github.com/aretw0/statelens/pkg/dsl"
	"github.com/aretw0/statelens/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func machine(t *testing.T) *domain.Machine {
	t.Helper()
	b := dsl.New("m")
	a := b.State("a").On("GO", "b", "c").On("BACK", "a")
	a.State("a1").On("NEXT", "a2")
	a.State("a2")
	b.State("b").On("GO", "a")
	par := b.State("c").Parallel()
	par.State("x")
	par.State("y")
	m, err := b.Build()
	require.NoError(t, err)
	return m
}

func keys(g *graph.Graph) []string {
	var out []string
	for _, e := range g.Edges {
		out = append(out, e.Key())
	}
	return out
}

func TestBuild_Order(t *testing.T) {
	g := graph.Build(machine(t))

	assert.Equal(t, []string{
		"m.a#GO#m.b#0",
		"m.a#GO#m.c#1",
		"m.a#BACK#m.a#2",
		"m.a.a1#NEXT#m.a.a2#3",
		"m.b#GO#m.a#4",
	}, keys(g))

	var initial []string
	for _, e := range g.Initial {
		initial = append(initial, e.Parent.ID+">"+e.Target.ID)
	}
	assert.Equal(t, []string{"m>m.a", "m.a>m.a.a1", "m.c>m.c.x", "m.c>m.c.y"}, initial)
}

func TestBuild_Deterministic(t *testing.T) {
	m := machine(t)
	g1 := graph.Build(m)
	g2 := graph.Build(m)
	assert.Equal(t, keys(g1), keys(g2))
	assert.Equal(t, g1.Initial, g2.Initial)
}

func TestBuild_SkipsTargetless(t *testing.T) {
	b := dsl.New("m")
	b.State("a").Transition("PING", domain.Transition{})
	m := b.MustBuild()

	g := graph.Build(m)
	assert.Empty(t, g.Edges)
	assert.Len(t, g.Initial, 1)
}

func TestGraph_From(t *testing.T) {
	m := machine(t)
	g := graph.Build(m)
	assert.Len(t, g.From(m.Node(domain.Path{"a"})), 3)
	assert.Empty(t, g.From(m.Node(domain.Path{"c", "x"})))
}

func TestCache(t *testing.T) {
	m1 := machine(t)
	m2 := machine(t)
	var c graph.Cache

	g1 := c.Get(m1)
	assert.Same(t, g1, c.Get(m1))

	g2 := c.Get(m2)
	assert.NotSame(t, g1, g2)
	assert.Same(t, m2, g2.Machine)

	c.Invalidate()
	assert.NotSame(t, g2, c.Get(m2))
}

func TestGraph_JSON(t *testing.T) {
	b := dsl.New("m")
	b.State("a").When("GO", "ready", func(map[string]any, domain.Event) (bool, error) { return true, nil }, "b")
	b.State("b")

	data, err := json.Marshal(graph.Build(b.MustBuild()))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"edges": [{"index":0,"source":"m.a","event":"GO","target":"m.b","guard":"ready"}],
		"initial": [{"index":0,"parent":"m","target":"m.a"}]
	}`, string(data))
}
