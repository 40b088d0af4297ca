package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func to(event string, targets ...string) *Transition {
	return &Transition{Event: event, Target: targets}
}

// lightMachine: root{ green, yellow, red{ walk, wait } } with history under red.
func lightMachine(t *testing.T) *Machine {
	t.Helper()
	root := &Node{
		Children: []*Node{
			{Key: "green", On: map[string][]*Transition{"TIMER": {to("", "yellow")}}},
			{Key: "yellow", On: map[string][]*Transition{"TIMER": {to("", "red")}}},
			{
				Key:     "red",
				Initial: "walk",
				Children: []*Node{
					{Key: "walk", On: map[string][]*Transition{"COUNTDOWN": {to("", "wait")}}},
					{Key: "wait"},
					{Key: "hist", Kind: KindHistory},
				},
				On: map[string][]*Transition{"TIMER": {to("", "green")}},
			},
		},
	}
	m, err := NewMachine("light", root, map[string]any{"count": 0})
	require.NoError(t, err)
	return m
}

func TestNewMachine_AssignsPathsAndIDs(t *testing.T) {
	m := lightMachine(t)

	assert.Equal(t, "light", m.ID())
	assert.Equal(t, "light", m.Root().ID)
	assert.Empty(t, m.Root().Path)

	wait := m.Node(Path{"red", "wait"})
	require.NotNil(t, wait)
	assert.Equal(t, "light.red.wait", wait.ID)
	assert.Equal(t, KindAtomic, wait.Kind)
	assert.Equal(t, m.Node(Path{"red"}), wait.Parent())
	assert.Same(t, wait, m.NodeByID("light.red.wait"))

	red := m.Node(Path{"red"})
	assert.Equal(t, KindCompound, red.Kind)
	assert.Equal(t, "walk", red.InitialChild().Key)
	assert.Equal(t, "green", m.Root().InitialChild().Key, "initial defaults to the first child")
	assert.Equal(t, HistoryShallow, red.Child("hist").History)
	assert.Len(t, red.Regions(), 2)
}

func TestNewMachine_DocumentOrder(t *testing.T) {
	m := lightMachine(t)

	var paths []string
	for i, n := range m.Nodes() {
		assert.Equal(t, i, n.Order())
		paths = append(paths, n.Path.String())
	}
	assert.Equal(t, []string{"", "green", "yellow", "red", "red.walk", "red.wait", "red.hist"}, paths)
}

func TestNewMachine_ResolvesTargets(t *testing.T) {
	root := &Node{
		Children: []*Node{
			{
				Key: "a",
				On: map[string][]*Transition{
					"SIBLING": {to("", "b")},
					"BYID":    {to("", "#deep")},
					"CHILD":   {to("", ".inner")},
					"ROOT":    {to("", "b.x")},
				},
				Children: []*Node{{Key: "inner"}},
			},
			{Key: "b", Children: []*Node{{Key: "x", ID: "deep"}}},
		},
	}
	m, err := NewMachine("m", root, nil)
	require.NoError(t, err)

	a := m.Node(Path{"a"})
	assert.Equal(t, []Path{{"b"}}, a.Transitions("SIBLING")[0].TargetPaths())
	assert.Equal(t, []Path{{"b", "x"}}, a.Transitions("BYID")[0].TargetPaths())
	assert.Equal(t, []Path{{"a", "inner"}}, a.Transitions("CHILD")[0].TargetPaths())
	assert.Equal(t, []Path{{"b", "x"}}, a.Transitions("ROOT")[0].TargetPaths())
	assert.Same(t, a, a.Transitions("ROOT")[0].Source())
	assert.Equal(t, []string{"BYID", "CHILD", "ROOT", "SIBLING"}, a.Events, "undeclared events are sorted")
}

func TestNewMachine_KeepsDeclaredEventOrder(t *testing.T) {
	root := &Node{Children: []*Node{
		{Key: "a", Events: []string{"Z", "A"}, On: map[string][]*Transition{"A": {to("", "b")}, "Z": {to("", "b")}}},
		{Key: "b"},
	}}
	m, err := NewMachine("m", root, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Z", "A"}, m.Node(Path{"a"}).Events)
}

func TestNewMachine_AggregatesIssues(t *testing.T) {
	root := &Node{
		Initial: "missing",
		Children: []*Node{
			{Key: "a", On: map[string][]*Transition{"GO": {to("", "nowhere")}}},
			{Key: "a"},
			{Key: "p", Kind: KindParallel},
			{Key: "h", Kind: KindHistory, Children: []*Node{{Key: "x"}}},
		},
	}
	_, err := NewMachine("bad", root, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDefinition))

	var defErr *DefinitionError
	require.True(t, errors.As(err, &defErr))
	assert.GreaterOrEqual(t, len(defErr.Issues), 3)
	assert.Contains(t, err.Error(), "duplicate node path \"a\"")
	assert.Contains(t, err.Error(), "parallel node bad.p needs at least one region")
	assert.Contains(t, err.Error(), "history node bad.h cannot have children")
}

func TestNewMachine_UnresolvedTarget(t *testing.T) {
	root := &Node{Children: []*Node{
		{Key: "a", On: map[string][]*Transition{"GO": {to("", "nowhere")}}},
	}}
	_, err := NewMachine("m", root, nil)
	require.Error(t, err)
	assert.Equal(t, `invalid machine definition: node m.a: event "GO": target "nowhere" not found`, err.Error())
}

func TestNewMachine_NilRoot(t *testing.T) {
	_, err := NewMachine("m", nil, nil)
	assert.ErrorIs(t, err, ErrDefinition)
}

func TestMachine_InitialContextIsCopied(t *testing.T) {
	m := lightMachine(t)
	ctx := m.InitialContext()
	ctx["count"] = 99
	assert.Equal(t, 0, m.InitialContext()["count"])
}
