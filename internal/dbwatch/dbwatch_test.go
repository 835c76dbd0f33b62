package dbwatch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherSignalsOnWrite(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "okanban.db")
	require.NoError(t, os.WriteFile(dbPath, []byte("initial"), 0o600))

	w, err := New(dbPath)
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, os.WriteFile(dbPath, []byte("changed"), 0o600))

	select {
	case <-w.Changes():
	case <-time.After(2 * time.Second):
		t.Fatal("expected a change notification")
	}
}

func TestWatcherIgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "okanban.db")
	require.NoError(t, os.WriteFile(dbPath, []byte("initial"), 0o600))

	w, err := New(dbPath)
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("x"), 0o600))

	select {
	case <-w.Changes():
		t.Fatal("unrelated file write must not trigger a change notification")
	case <-time.After(debounce * 2):
	}
	assert.True(t, true)
}
