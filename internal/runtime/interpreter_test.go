package runtime_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/statelens/internal/runtime"
	"github.com/aretw0/statelens/pkg/domain"
	"github.com/aretw0/statelens/pkg/dsl"
	"github.com/aretw0/statelens/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func abMachine(t *testing.T) *domain.Machine {
	t.Helper()
	b := dsl.New("ab")
	b.State("A").On("go", "B")
	b.State("B")
	m, err := b.Build()
	require.NoError(t, err)
	return m
}

func started(t *testing.T, m *domain.Machine, opts ...runtime.Option) *runtime.Interpreter {
	t.Helper()
	i := runtime.New(m, opts...)
	_, err := i.Start(context.Background())
	require.NoError(t, err)
	return i
}

// recorder collects dispatched action types.
type recorder struct {
	types []string
	fail  string
}

func (r *recorder) Dispatch(_ context.Context, req ports.ActionRequest) error {
	if req.Action.Type == r.fail {
		return errors.New("boom")
	}
	r.types = append(r.types, req.Action.Type)
	return nil
}

func TestInterpreter_StartSendScenario(t *testing.T) {
	ctx := context.Background()
	i := runtime.New(abMachine(t))

	var notified []*domain.Configuration
	i.Subscribe(func(c *domain.Configuration) { notified = append(notified, c) })

	initial, err := i.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, runtime.StatusRunning, i.Status())
	assert.Equal(t, "A", initial.Value)
	assert.Nil(t, initial.History())
	assert.Nil(t, initial.Event)
	assert.Empty(t, initial.Transitions())
	require.Len(t, notified, 1)

	next, err := i.Send(ctx, domain.NewEvent("go"))
	require.NoError(t, err)
	assert.True(t, next.Changed)
	assert.Equal(t, "B", next.Value)
	require.NotNil(t, next.History())
	assert.Equal(t, "A", next.History().Value)
	assert.Equal(t, "go", next.Event.Type)
	require.Len(t, next.Transitions(), 1)
	assert.Equal(t, "A", next.Transitions()[0].Source().Key)
	require.Len(t, notified, 2)

	again, err := i.Send(ctx, domain.NewEvent("go"))
	require.NoError(t, err)
	assert.False(t, again.Changed)
	assert.Equal(t, "B", again.Value)
	assert.Len(t, notified, 2, "a no-op must not notify")
	assert.Empty(t, again.Transitions())
	assert.Same(t, next, i.Current())
}

func TestInterpreter_ParallelRegions(t *testing.T) {
	b := dsl.New("par").Parallel()
	x := b.State("X")
	x.State("x1").On("NEXT_X", "x2").On("BOTH", "x2")
	x.State("x2")
	y := b.State("Y")
	y.State("y1").On("BOTH", "y2")
	y.State("y2")

	i := started(t, b.MustBuild())
	assert.Equal(t, map[string]any{"X": "x1", "Y": "y1"}, i.Current().Value)

	next, err := i.Send(context.Background(), domain.NewEvent("NEXT_X"))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"X": "x2", "Y": "y1"}, next.Value)
	assert.True(t, next.History().MatchesString("Y.y1"))

	i2 := started(t, b.MustBuild())
	both, err := i2.Send(context.Background(), domain.NewEvent("BOTH"))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"X": "x2", "Y": "y2"}, both.Value)
}

func TestInterpreter_ActionOrder(t *testing.T) {
	b := dsl.New("m")
	a := b.State("a").Exit(dsl.Do("exit-a", nil))
	a.State("a1").Exit(dsl.Do("exit-a1", nil)).
		Transition("GO", domain.Transition{Target: []string{"b.b1"}, Actions: []domain.Action{dsl.Do("go", nil)}})
	bb := b.State("b").Entry(dsl.Do("enter-b", nil))
	bb.State("b1").Entry(dsl.Do("enter-b1", nil))

	rec := &recorder{}
	var entered, left []string
	hooks := domain.LifecycleHooks{
		OnNodeEnter: func(_ context.Context, e *domain.NodeEvent) { entered = append(entered, e.Path) },
		OnNodeLeave: func(_ context.Context, e *domain.NodeEvent) { left = append(left, e.Path) },
	}
	i := started(t, b.MustBuild(), runtime.WithActionDispatcher(rec), runtime.WithLifecycleHooks(hooks))
	assert.Equal(t, []string{"", "a", "a.a1"}, entered)

	entered = nil
	next, err := i.Send(context.Background(), domain.NewEvent("GO"))
	require.NoError(t, err)

	want := []string{"exit-a1", "exit-a", "go", "enter-b", "enter-b1"}
	assert.Equal(t, want, rec.types)
	var got []string
	for _, a := range next.Actions {
		got = append(got, a.Type)
	}
	assert.Equal(t, want, got)
	assert.Equal(t, []string{"a.a1", "a"}, left)
	assert.Equal(t, []string{"b", "b.b1"}, entered)
	assert.Equal(t, map[string]any{"b": "b1"}, next.Value)
}

func TestInterpreter_GuardsAndContext(t *testing.T) {
	atLeastTwo := func(ctx map[string]any, _ domain.Event) (bool, error) {
		return ctx["count"].(int) >= 2, nil
	}
	b := dsl.New("counter").Context("count", 0)
	b.State("active").
		Transition("INC", domain.Transition{Actions: []domain.Action{dsl.Increment("count", 1)}}).
		Transition("SET", domain.Transition{Actions: []domain.Action{dsl.Assign(map[string]any{"count": "$event.value"})}}).
		When("CHECK", "count >= 2", atLeastTwo, "done")
	b.State("done")

	ctx := context.Background()
	i := started(t, b.MustBuild())

	c, err := i.Send(ctx, domain.NewEvent("CHECK"))
	require.NoError(t, err)
	assert.False(t, c.Changed)

	for range 2 {
		c, err = i.Send(ctx, domain.NewEvent("INC"))
		require.NoError(t, err)
		assert.True(t, c.Changed, "targetless transitions still commit")
		assert.Equal(t, "active", c.Value)
	}
	assert.Equal(t, 2, c.Context["count"])

	c, err = i.Send(ctx, domain.NewEvent("CHECK"))
	require.NoError(t, err)
	assert.Equal(t, "done", c.Value)
	assert.Equal(t, 2, c.Context["count"])
}

func TestInterpreter_AssignFromEvent(t *testing.T) {
	b := dsl.New("m").Context("name", "")
	b.State("idle").Transition("NAME", domain.Transition{Actions: []domain.Action{dsl.Assign(map[string]any{"name": "$event.value", "kind": "$event.type"})}})

	i := started(t, b.MustBuild())
	c, err := i.Send(context.Background(), domain.Event{Type: "NAME", Data: map[string]any{"value": "ada"}})
	require.NoError(t, err)
	assert.Equal(t, "ada", c.Context["name"])
	assert.Equal(t, "NAME", c.Context["kind"])
	assert.Equal(t, "", c.History().Context["name"], "previous context is never mutated")
}

func TestInterpreter_RejectedStepKeepsConfiguration(t *testing.T) {
	ctx := context.Background()

	t.Run("guard error", func(t *testing.T) {
		b := dsl.New("m")
		b.State("a").When("GO", "broken", func(map[string]any, domain.Event) (bool, error) {
			return false, errors.New("cannot evaluate")
		}, "b")
		b.State("b")
		i := started(t, b.MustBuild())
		before := i.Current()

		_, err := i.Send(ctx, domain.NewEvent("GO"))
		var terr *domain.TransitionError
		require.ErrorAs(t, err, &terr)
		assert.Equal(t, "guard", terr.Stage)
		assert.Same(t, before, i.Current())
	})

	t.Run("dispatcher error", func(t *testing.T) {
		b := dsl.New("m")
		b.State("a").Transition("GO", domain.Transition{Target: []string{"b"}, Actions: []domain.Action{dsl.Do("explode", nil)}})
		b.State("b")
		notified := 0
		i := started(t, b.MustBuild(), runtime.WithActionDispatcher(&recorder{fail: "explode"}))
		i.Subscribe(func(*domain.Configuration) { notified++ })

		_, err := i.Send(ctx, domain.NewEvent("GO"))
		var terr *domain.TransitionError
		require.ErrorAs(t, err, &terr)
		assert.Equal(t, "action", terr.Stage)
		assert.Equal(t, "a", i.Current().Value)
		assert.Zero(t, notified)
	})

	t.Run("increment on a string", func(t *testing.T) {
		b := dsl.New("m").Context("count", "x")
		b.State("a").Transition("INC", domain.Transition{Actions: []domain.Action{dsl.Increment("count", 1)}})
		i := started(t, b.MustBuild())

		_, err := i.Send(ctx, domain.NewEvent("INC"))
		require.Error(t, err)
		assert.Equal(t, "x", i.Current().Context["count"])
	})
}

func TestInterpreter_UsageErrors(t *testing.T) {
	ctx := context.Background()
	i := runtime.New(abMachine(t))

	_, err := i.Send(ctx, domain.NewEvent("go"))
	assert.ErrorIs(t, err, domain.ErrUsage)
	assert.ErrorIs(t, i.Stop(ctx), domain.ErrUsage)
	_, err = i.Preview(domain.NewEvent("go"))
	assert.ErrorIs(t, err, domain.ErrUsage)

	_, err = i.Start(ctx)
	require.NoError(t, err)
	_, err = i.Start(ctx)
	assert.ErrorIs(t, err, domain.ErrUsage)

	_, err = i.Send(ctx, domain.Event{})
	assert.ErrorIs(t, err, domain.ErrInvalidEvent)

	require.NoError(t, i.Stop(ctx))
	assert.Equal(t, runtime.StatusStopped, i.Status())

	before := i.Current()
	_, err = i.Send(ctx, domain.NewEvent("go"))
	assert.ErrorIs(t, err, domain.ErrUsage)
	assert.Same(t, before, i.Current())
	assert.ErrorIs(t, i.Stop(ctx), domain.ErrUsage)
}

func TestInterpreter_StopRunsExitActions(t *testing.T) {
	b := dsl.New("m")
	b.Root().Exit(dsl.Do("exit-root", nil))
	b.State("a").Exit(dsl.Do("exit-a", nil))
	rec := &recorder{}

	var left []string
	hooks := domain.LifecycleHooks{
		OnNodeLeave: func(_ context.Context, e *domain.NodeEvent) { left = append(left, e.NodeID) },
	}
	i := started(t, b.MustBuild(), runtime.WithActionDispatcher(rec), runtime.WithLifecycleHooks(hooks))

	require.NoError(t, i.Stop(context.Background()))
	assert.Equal(t, []string{"exit-a", "exit-root"}, rec.types)
	assert.Equal(t, []string{"m.a", "m"}, left)
}

func TestInterpreter_Unsubscribe(t *testing.T) {
	i := runtime.New(abMachine(t))
	calls := 0
	unsubscribe := i.Subscribe(func(*domain.Configuration) { calls++ })

	_, err := i.Start(context.Background())
	require.NoError(t, err)
	unsubscribe()
	_, err = i.Send(context.Background(), domain.NewEvent("go"))
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestInterpreter_InitialContextOverride(t *testing.T) {
	b := dsl.New("m").Context("a", 1).Context("b", 2)
	b.State("s")
	i := started(t, b.MustBuild(), runtime.WithInitialContext(map[string]any{"b": 3}))
	assert.Equal(t, map[string]any{"a": 1, "b": 3}, i.Current().Context)
}

func TestInterpreter_LifecycleFailuresNameTheStep(t *testing.T) {
	ctx := context.Background()
	b := dsl.New("alarm")
	b.State("armed").Entry(dsl.Do("siren", nil)).Exit(dsl.Do("disarm", nil))
	m := b.MustBuild()

	i := runtime.New(m, runtime.WithActionDispatcher(&recorder{fail: "siren"}))
	_, err := i.Start(ctx)
	var te *domain.TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, runtime.StartStep, te.Event)
	assert.Equal(t, "alarm.armed", te.NodeID)
	assert.Contains(t, err.Error(), `event "(start)" rejected`)
	assert.Equal(t, runtime.StatusIdle, i.Status())

	i = started(t, m, runtime.WithActionDispatcher(&recorder{fail: "disarm"}))
	err = i.Stop(ctx)
	require.ErrorAs(t, err, &te)
	assert.Equal(t, runtime.StopStep, te.Event)
	assert.Equal(t, runtime.StatusStopped, i.Status())
}
