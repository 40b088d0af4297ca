package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/aretw0/statelens"
	"github.com/aretw0/statelens/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEngine_Policy(t *testing.T) {
	_, err := NewEngine(RunOptions{Policy: "everything"})
	assert.ErrorContains(t, err, "unknown history policy")

	engine, err := NewEngine(RunOptions{Policy: "sources", Debug: true})
	require.NoError(t, err)
	assert.NotNil(t, engine.Loader())
}

func TestEchoActions(t *testing.T) {
	ctx := context.Background()
	var out bytes.Buffer
	engine, err := NewEngine(RunOptions{}, statelens.WithActionDispatcher(echoActions(&out)))
	require.NoError(t, err)

	sess, err := engine.NewSession(ctx, []byte(`
id: bell
states:
  quiet:
    on:
      RING:
        target: loud
        actions: [ding]
  loud:
    entry:
      - type: flash
        params: { times: 2 }
`))
	require.NoError(t, err)

	_, err = sess.Send(ctx, domain.NewEvent("RING"))
	require.NoError(t, err)
	assert.Contains(t, out.String(), ">>> Action ding\n")
	assert.Contains(t, out.String(), "(bell.loud)")
}

func TestExecute_RequiresPath(t *testing.T) {
	assert.Error(t, Execute(RunOptions{}))
}
