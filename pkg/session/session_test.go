package session_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/statelens/pkg/domain"
	"github.com/aretw0/statelens/pkg/dsl"
	"github.com/aretw0/statelens/pkg/history"
	"github.com/aretw0/statelens/pkg/observability"
	"github.com/aretw0/statelens/pkg/ports"
	"github.com/aretw0/statelens/pkg/session"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixtures maps a definition name to the machine it loads.
func fixtures() ports.MachineLoader {
	return ports.LoaderFunc(func(def []byte) (*domain.Machine, error) {
		switch string(def) {
		case "ab":
			b := dsl.New("ab")
			b.State("A").On("go", "B")
			b.State("B").On("back", "A")
			return b.Build()
		case "parallel":
			b := dsl.New("p").Parallel()
			x := b.State("X")
			x.State("x1").On("e", "x2")
			x.State("x2")
			y := b.State("Y")
			y.State("y1")
			y.State("y2")
			return b.Build()
		case "counter":
			b := dsl.New("counter").Context("n", 0)
			b.State("idle").Transition("inc", domain.Transition{Actions: []domain.Action{dsl.Increment("n", 1)}})
			return b.Build()
		case "alarm":
			b := dsl.New("alarm")
			b.State("armed").Entry(dsl.Do("siren", nil))
			return b.Build()
		case "broken":
			return nil, &domain.DefinitionError{Issues: []string{"broken on purpose"}}
		}
		return nil, errors.New("unknown definition")
	})
}

func loaded(t *testing.T, def string, opts ...session.Option) *session.Session {
	t.Helper()
	s := session.New(fixtures(), opts...)
	require.NoError(t, s.Load(context.Background(), []byte(def)))
	return s
}

func TestSession_EmptyBeforeLoad(t *testing.T) {
	s := session.New(fixtures(), session.WithID("empty"))

	v := s.Snapshot()
	assert.Equal(t, "empty", v.SessionID)
	assert.Equal(t, "empty", v.Status)
	assert.Empty(t, v.Nodes)
	assert.Nil(t, s.Current())

	_, err := s.Send(context.Background(), domain.NewEvent("go"))
	assert.ErrorIs(t, err, domain.ErrNoMachine)
	_, err = s.SelectByPath(domain.Path{"A"})
	assert.ErrorIs(t, err, domain.ErrNoMachine)
	assert.ErrorIs(t, s.Reset(context.Background()), domain.ErrNoMachine)
}

func TestSession_SendScenario(t *testing.T) {
	ctx := context.Background()
	s := loaded(t, "ab")

	v := s.Snapshot()
	assert.Equal(t, "running", v.Status)
	assert.Equal(t, "ab", v.MachineID)
	assert.Equal(t, "A", v.Current.Value)
	assert.Equal(t, []string{"go"}, v.AvailableEvents)

	cfg, err := s.Send(ctx, domain.NewEvent("go"))
	require.NoError(t, err)
	assert.Equal(t, "B", cfg.Value)

	v = s.Snapshot()
	assert.Equal(t, []string{"go"}, v.History.Events["ab.A"])
	assert.Equal(t, []string{"ab", "ab.A"}, v.History.Traversed)

	a, ok := v.Node("ab.A")
	require.True(t, ok)
	assert.False(t, a.Active)
	assert.True(t, a.Traversed)

	require.Len(t, v.Edges, 2)
	assert.Equal(t, "ab.A#go#ab.B#0", v.Edges[0].Key)
	assert.True(t, v.Edges[0].Traversed)
	assert.False(t, v.Edges[0].Active)
	assert.True(t, v.Edges[1].Active, "B#back leaves the active node")
	assert.False(t, v.Edges[1].Traversed)

	// No transition: nothing recorded, nothing changes.
	again, err := s.Send(ctx, domain.NewEvent("go"))
	require.NoError(t, err)
	assert.False(t, again.Changed)
	assert.Equal(t, v.History, s.Snapshot().History)
}

func TestSession_SendRaw(t *testing.T) {
	ctx := context.Background()
	s := loaded(t, "ab")

	cfg, err := s.SendRaw(ctx, []byte(`{"type": "go"}`))
	require.NoError(t, err)
	assert.Equal(t, "B", cfg.Value)

	cfg, err = s.SendRaw(ctx, []byte("back"))
	require.NoError(t, err)
	assert.Equal(t, "A", cfg.Value)

	_, err = s.SendRaw(ctx, []byte(`{"data": 1}`))
	assert.ErrorIs(t, err, domain.ErrInvalidEvent)
	assert.Equal(t, "A", s.Current().Value)
}

func TestSession_ParallelScenario(t *testing.T) {
	s := loaded(t, "parallel", session.WithHistoryPolicy(history.PolicySources))
	assert.Equal(t, map[string]any{
		"X": "x1",
		"Y": "y1",
	}, s.Current().Value)

	cfg, err := s.Send(context.Background(), domain.NewEvent("e"))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"X": "x2", "Y": "y1"}, cfg.Value)

	v := s.Snapshot()
	assert.Equal(t, []string{"p.X.x1"}, v.History.Traversed)
	_, touched := v.History.Events["p.Y.y1"]
	assert.False(t, touched)
}

func TestSession_FailedLoadKeepsState(t *testing.T) {
	ctx := context.Background()
	s := loaded(t, "ab")
	_, err := s.Send(ctx, domain.NewEvent("go"))
	require.NoError(t, err)
	ok, err := s.SelectByPath(domain.Path{"B"})
	require.NoError(t, err)
	require.True(t, ok)
	before := s.Snapshot()

	err = s.Load(ctx, []byte("broken"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDefinition)

	err = s.Load(ctx, []byte("nope"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDefinition, "loader errors are reported as definition errors")

	after := s.Snapshot()
	assert.Equal(t, before.MachineID, after.MachineID)
	assert.Equal(t, before.Definition, after.Definition)
	assert.Same(t, before.Current, after.Current)
	assert.Equal(t, before.History, after.History)
	assert.Equal(t, "ab.B", after.Selected)
}

func TestSession_StartFailureKeepsState(t *testing.T) {
	ctx := context.Background()
	var dispatched []string
	dispatcher := ports.DispatcherFunc(func(_ context.Context, req ports.ActionRequest) error {
		if req.Action.Type == "siren" {
			return errors.New("no speaker")
		}
		dispatched = append(dispatched, req.Action.Type)
		return nil
	})
	s := loaded(t, "ab", session.WithActionDispatcher(dispatcher))
	_, err := s.Send(ctx, domain.NewEvent("go"))
	require.NoError(t, err)
	ok, err := s.SelectByPath(domain.Path{"B"})
	require.NoError(t, err)
	require.True(t, ok)
	before := s.Snapshot()

	err = s.Load(ctx, []byte("alarm"))
	var te *domain.TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "alarm.armed", te.NodeID)

	after := s.Snapshot()
	assert.Equal(t, before.Status, after.Status)
	assert.Equal(t, before.MachineID, after.MachineID)
	assert.Equal(t, before.Definition, after.Definition)
	assert.Same(t, before.Current, after.Current)
	assert.Equal(t, before.History, after.History)
	assert.Equal(t, "ab.B", after.Selected)
	assert.Empty(t, dispatched)

	cfg, err := s.Send(ctx, domain.NewEvent("back"))
	require.NoError(t, err)
	assert.Equal(t, "A", cfg.Value, "the previous interpreter is still running")
}

func TestSession_LoadReplacesEverything(t *testing.T) {
	ctx := context.Background()
	s := loaded(t, "ab")
	_, err := s.Send(ctx, domain.NewEvent("go"))
	require.NoError(t, err)
	_, err = s.SelectByPath(domain.Path{"B"})
	require.NoError(t, err)
	_, err = s.Preview(ctx, domain.NewEvent("back"))
	require.NoError(t, err)
	old := s.Machine()

	require.NoError(t, s.Load(ctx, []byte("parallel")))

	v := s.Snapshot()
	assert.NotSame(t, old, s.Machine())
	assert.Equal(t, "p", v.MachineID)
	assert.Equal(t, "parallel", v.Definition)
	assert.Empty(t, v.Selected)
	assert.Nil(t, v.Preview)
	assert.Nil(t, v.PreviewEvent)
	assert.Empty(t, v.History.Traversed)
}

func TestSession_PreviewIsPure(t *testing.T) {
	ctx := context.Background()
	s := loaded(t, "ab")
	before := s.Current()

	p, err := s.Preview(ctx, domain.NewEvent("go"))
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "B", p.Value)
	assert.Same(t, before, s.Current())

	v := s.Snapshot()
	assert.Empty(t, v.History.Traversed)
	b, _ := v.Node("ab.B")
	assert.True(t, b.Preview)
	assert.False(t, b.Active)
	assert.True(t, v.Edges[0].Preview)
	assert.False(t, v.Edges[1].Preview)

	// The pending preview follows the committed configuration.
	_, err = s.Send(ctx, domain.NewEvent("go"))
	require.NoError(t, err)
	v = s.Snapshot()
	require.NotNil(t, v.PreviewEvent)
	assert.Nil(t, v.Preview, "go has no transition from B")

	_, err = s.Send(ctx, domain.NewEvent("back"))
	require.NoError(t, err)
	v = s.Snapshot()
	require.NotNil(t, v.Preview)
	assert.Equal(t, "B", v.Preview.Value)

	s.CancelPreview()
	v = s.Snapshot()
	assert.Nil(t, v.Preview)
	assert.Nil(t, v.PreviewEvent)
	assert.False(t, v.Edges[0].Preview)
}

func TestSession_PreviewInitialEdges(t *testing.T) {
	s := loaded(t, "parallel")
	_, err := s.Preview(context.Background(), domain.NewEvent("e"))
	require.NoError(t, err)

	v := s.Snapshot()
	byTarget := map[string]bool{}
	for _, e := range v.Initial {
		byTarget[e.Target] = e.Preview
	}
	assert.True(t, byTarget["p.X"])
	assert.True(t, byTarget["p.X.x1"], "active now")
	assert.True(t, byTarget["p.Y.y1"])
	assert.False(t, byTarget["p.Y.y2"])
}

func TestSession_Selection(t *testing.T) {
	s := loaded(t, "ab")
	var views []session.View
	s.Subscribe(func(v session.View) { views = append(views, v) })

	ok, err := s.SelectByPath(domain.Path{"A"})
	require.NoError(t, err)
	assert.True(t, ok)
	require.Len(t, views, 1)
	assert.Equal(t, "ab.A", views[0].Selected)
	a, _ := views[0].Node("ab.A")
	assert.True(t, a.Selected)

	ok, err = s.SelectByPath(domain.Path{"A"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, views, 1, "selecting the same node again is a no-op")

	ok, err = s.SelectByPath(domain.Path{"missing"})
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = s.SelectByPath(domain.Path{})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "ab.A", s.Snapshot().Selected)

	require.NoError(t, s.Select(s.Machine().NodeByID("ab.B")))
	assert.Equal(t, "ab.B", s.Snapshot().Selected)

	other := dsl.New("other")
	other.State("B")
	assert.Error(t, s.Select(other.MustBuild().NodeByID("other.B")))

	s.ClearSelection()
	assert.Empty(t, s.Snapshot().Selected)
}

func TestSession_ResetKeepsSelection(t *testing.T) {
	ctx := context.Background()
	s := loaded(t, "ab")
	_, err := s.Send(ctx, domain.NewEvent("go"))
	require.NoError(t, err)
	_, err = s.SelectByPath(domain.Path{"B"})
	require.NoError(t, err)
	_, err = s.Preview(ctx, domain.NewEvent("go"))
	require.NoError(t, err)

	require.NoError(t, s.Reset(ctx))

	v := s.Snapshot()
	assert.Equal(t, "A", v.Current.Value)
	assert.Nil(t, v.Current.History())
	assert.Empty(t, v.History.Traversed)
	assert.Equal(t, "ab.B", v.Selected)
	require.NotNil(t, v.Preview, "pending preview is recomputed")
	assert.Equal(t, "B", v.Preview.Value)
}

func TestSession_SubscribeAndClose(t *testing.T) {
	ctx := context.Background()
	s := session.New(fixtures())

	var count int
	unsubscribe := s.Subscribe(func(session.View) { count++ })
	require.NoError(t, s.Load(ctx, []byte("ab")))
	assert.Equal(t, 1, count)

	_, err := s.Send(ctx, domain.NewEvent("go"))
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	_, err = s.Send(ctx, domain.NewEvent("go"))
	require.NoError(t, err)
	assert.Equal(t, 2, count, "no-op sends are not published")

	unsubscribe()
	_, err = s.Send(ctx, domain.NewEvent("back"))
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	s.Close(ctx)
	assert.Equal(t, "stopped", s.Snapshot().Status)
	_, err = s.Send(ctx, domain.NewEvent("go"))
	assert.ErrorIs(t, err, domain.ErrUsage)
}

func TestSession_Metrics(t *testing.T) {
	ctx := context.Background()
	m := observability.NewMetrics()
	s := loaded(t, "ab", session.WithMetrics(m))

	_, _ = s.Send(ctx, domain.NewEvent("go"))
	_, _ = s.Send(ctx, domain.NewEvent("go"))
	_, _ = s.Preview(ctx, domain.NewEvent("back"))
	_ = s.Load(ctx, []byte("broken"))
	require.NoError(t, s.Reset(ctx))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Events.WithLabelValues(observability.ResultChanged)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Events.WithLabelValues(observability.ResultIgnored)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Previews))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Loads.WithLabelValues(observability.ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Loads.WithLabelValues(observability.ResultError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Resets))
	// Initial entry twice (load and reset) plus one entry of B.
	assert.Equal(t, 2.0, testutil.ToFloat64(m.NodeVisits.WithLabelValues("ab.A")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NodeVisits.WithLabelValues("ab.B")))
}
