package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aretw0/statelens/pkg/loader"
	"github.com/aretw0/statelens/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const door = `
id: door
states:
  closed:
    on:
      OPEN: opened
  opened:
    on:
      CLOSE: closed
`

func call(t *testing.T, h func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) (StepResponse, *mcp.CallToolResult) {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	res, err := h(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)

	var out StepResponse
	if !res.IsError {
		text, ok := res.Content[0].(mcp.TextContent)
		require.True(t, ok)
		require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	}
	return out, res
}

func TestServer_Tools(t *testing.T) {
	sess := session.New(loader.New())
	s := NewServer(sess)

	_, res := call(t, s.handleSend, map[string]any{"event": "OPEN"})
	assert.True(t, res.IsError, "no machine loaded yet")

	out, res := call(t, s.handleLoad, map[string]any{"definition": door})
	require.False(t, res.IsError)
	assert.Equal(t, "closed", out.Current.Value)
	assert.Equal(t, []string{"OPEN"}, out.AvailableEvents)

	out, _ = call(t, s.handlePreview, map[string]any{"event": "OPEN"})
	assert.Equal(t, "closed", out.Current.Value)
	require.NotNil(t, out.Preview)
	assert.Equal(t, "opened", out.Preview.Value)

	out, _ = call(t, s.handleSend, map[string]any{"event": "{type: OPEN}"})
	assert.Equal(t, "opened", out.Current.Value)
	assert.Equal(t, []string{"door", "door.closed"}, out.Traversed)

	out, _ = call(t, s.handleSelect, map[string]any{"path": "closed"})
	assert.Equal(t, "door.closed", out.Selected)

	_, res = call(t, s.handleSelect, map[string]any{"path": "missing"})
	assert.True(t, res.IsError)

	out, _ = call(t, s.handleSelect, map[string]any{})
	assert.Empty(t, out.Selected)
}

func TestServer_RejectsBadInput(t *testing.T) {
	sess := session.New(loader.New())
	s := NewServer(sess)

	_, res := call(t, s.handleLoad, map[string]any{"definition": "states: [unclosed"})
	assert.True(t, res.IsError)

	_, res = call(t, s.handleLoad, map[string]any{})
	assert.True(t, res.IsError)

	_, res = call(t, s.handleLoad, map[string]any{"definition": door})
	require.False(t, res.IsError)

	_, res = call(t, s.handleSend, map[string]any{"event": "bad\x00event"})
	assert.False(t, res.IsError, "control characters are stripped")

	_, res = call(t, s.handleSend, map[string]any{"event": "{type: 1}"})
	assert.True(t, res.IsError)
}

func TestServer_Diagram(t *testing.T) {
	sess := session.New(loader.New())
	s := NewServer(sess)

	_, err := s.diagram()
	assert.Error(t, err)

	require.NoError(t, sess.Load(context.Background(), []byte(door)))
	text, err := s.diagram()
	require.NoError(t, err)
	assert.Contains(t, text, "stateDiagram-v2")
	assert.Contains(t, text, "door_closed --> door_opened : OPEN")
}
