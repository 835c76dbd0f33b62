package agentdriver

import (
	"fmt"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okanban/okanban/internal/muxdriver"
)

func requireTmux(t *testing.T) *muxdriver.Driver {
	t.Helper()
	if _, err := exec.LookPath("tmux"); err != nil {
		t.Skip("tmux binary not available")
	}
	socket := fmt.Sprintf("okanban-agent-test-%d", time.Now().UnixNano())
	mux := muxdriver.New(socket)
	t.Cleanup(func() {
		_ = exec.Command("tmux", "-L", socket, "kill-server").Run()
	})
	return mux
}

func TestLaunchSendsCommand(t *testing.T) {
	mux := requireTmux(t)
	dir := t.TempDir()
	require.NoError(t, mux.Create("ok-launch-test", dir, ""))

	d := New(mux, "echo agent-launched")
	require.NoError(t, d.Launch("ok-launch-test", dir))

	require.Eventually(t, func() bool {
		out, err := mux.CapturePane("ok-launch-test", 50)
		return err == nil && strings.Contains(out, "agent-launched")
	}, 3*time.Second, 100*time.Millisecond)
}

func TestLaunchIncludesCwdFlag(t *testing.T) {
	mux := requireTmux(t)
	dir := t.TempDir()
	require.NoError(t, mux.Create("ok-launch-cwd-test", dir, ""))

	d := New(mux, "echo")
	require.NoError(t, d.Launch("ok-launch-cwd-test", dir))

	require.Eventually(t, func() bool {
		out, err := mux.CapturePane("ok-launch-cwd-test", 50)
		return err == nil && strings.Contains(out, "--cwd") && strings.Contains(out, dir)
	}, 3*time.Second, 100*time.Millisecond)
}

func TestDetectAgentSessionIDFindsUUID(t *testing.T) {
	mux := requireTmux(t)
	dir := t.TempDir()
	require.NoError(t, mux.Create("ok-detect-test", dir, ""))

	id := uuid.New().String()
	require.NoError(t, mux.SendKeysAndEnter("ok-detect-test", fmt.Sprintf("echo session:%s", id)))

	d := New(mux, "opencode")
	var found string
	require.Eventually(t, func() bool {
		var err error
		found, err = d.DetectAgentSessionID("ok-detect-test")
		return err == nil && found != ""
	}, 3*time.Second, 100*time.Millisecond)
	assert.Equal(t, id, found)
}

func TestDetectAgentSessionIDReturnsEmptyWhenNotVisible(t *testing.T) {
	mux := requireTmux(t)
	dir := t.TempDir()
	require.NoError(t, mux.Create("ok-detect-empty-test", dir, ""))

	d := New(mux, "opencode")
	found, err := d.DetectAgentSessionID("ok-detect-empty-test")
	require.NoError(t, err)
	assert.Equal(t, "", found)
}
