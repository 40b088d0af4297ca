package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/statelens/internal/logging"
	"github.com/aretw0/statelens/pkg/loader"
	"github.com/aretw0/statelens/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSource_Watch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "machine.yaml")
	require.NoError(t, os.WriteFile(path, []byte(traffic), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source := NewFileSource(path, nil)
	source.debounce = 10 * time.Millisecond
	changes, err := source.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte(traffic+"\n"), 0o644))

	select {
	case _, ok := <-changes:
		assert.True(t, ok)
	case <-time.After(3 * time.Second):
		t.Fatal("no change reported")
	}

	cancel()
	for range changes {
	}
}

func TestReload_KeepsPreviousMachine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "machine.yaml")
	require.NoError(t, os.WriteFile(path, []byte(traffic), 0o644))

	ctx := context.Background()
	sess := session.New(loader.New())
	source := NewFileSource(path, nil)
	assert.Equal(t, path, source.Name())
	var out bytes.Buffer

	require.True(t, reload(ctx, sess, source, &out, logging.NewNop()))
	assert.Contains(t, out.String(), "Machine 'traffic' loaded.")
	_, err := sess.SendRaw(ctx, []byte("NEXT"))
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("states: [broken"), 0o644))
	assert.False(t, reload(ctx, sess, source, &out, logging.NewNop()))
	assert.Contains(t, out.String(), "Reload failed")
	assert.Equal(t, "yellow", sess.Current().Value)

	require.NoError(t, os.Remove(path))
	assert.False(t, reload(ctx, sess, source, &out, logging.NewNop()))
}
