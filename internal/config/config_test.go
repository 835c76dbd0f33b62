package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadReturnsDefaultsWhenNoFileExists(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "opencode-kanban", cfg.TmuxSocket)
	assert.Equal(t, "opencode", cfg.AgentCommand)
	assert.Equal(t, 3, cfg.PollIntervalSeconds)
	assert.Equal(t, 20, cfg.MaxTasksBeforeScaling)
	assert.Equal(t, filepath.Join(dir, "worktrees"), cfg.WorktreesDir)
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	cfg := Default(dir)
	cfg.AgentCommand = "claude"
	cfg.PollIntervalSeconds = 5

	require.NoError(t, Save(dir, cfg))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "claude", loaded.AgentCommand)
	assert.Equal(t, 5, loaded.PollIntervalSeconds)
}

func TestLoadPartialConfigKeepsOtherDefaults(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Save(dir, Config{AgentCommand: "codex"}))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "codex", cfg.AgentCommand)
	assert.Equal(t, "opencode-kanban", cfg.TmuxSocket, "unset fields must keep defaults")
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(Path(dir), []byte("this is not [ valid toml"), 0o600))

	_, err := Load(dir)
	require.Error(t, err)
}
