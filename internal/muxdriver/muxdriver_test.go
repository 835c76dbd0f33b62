package muxdriver

import (
	"fmt"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireTmux(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("tmux"); err != nil {
		t.Skip("tmux binary not available")
	}
}

// testDriver returns a Driver on a private control socket so tests never
// touch the operator's real tmux sessions, and registers cleanup to kill
// the test socket's server.
func testDriver(t *testing.T) *Driver {
	t.Helper()
	requireTmux(t)
	socket := fmt.Sprintf("okanban-test-%d", time.Now().UnixNano())
	d := New(socket)
	t.Cleanup(func() {
		_ = exec.Command("tmux", "-L", socket, "kill-server").Run()
	})
	return d
}

func TestCreateAndExists(t *testing.T) {
	d := testDriver(t)
	dir := t.TempDir()

	require.NoError(t, d.Create("ok-test-session", dir, ""))
	assert.True(t, d.Exists("ok-test-session"))
	assert.False(t, d.Exists("ok-never-created"))
}

func TestKillIsIdempotent(t *testing.T) {
	d := testDriver(t)
	dir := t.TempDir()

	require.NoError(t, d.Create("ok-kill-test", dir, ""))
	require.NoError(t, d.Kill("ok-kill-test"))
	assert.False(t, d.Exists("ok-kill-test"))

	// Killing again must still succeed.
	assert.NoError(t, d.Kill("ok-kill-test"))
}

func TestCapturePaneReturnsContent(t *testing.T) {
	d := testDriver(t)
	dir := t.TempDir()

	require.NoError(t, d.Create("ok-capture-test", dir, ""))
	require.NoError(t, d.SendKeysAndEnter("ok-capture-test", "echo hello-okanban"))

	var out string
	require.Eventually(t, func() bool {
		var err error
		out, err = d.CapturePane("ok-capture-test", 50)
		return err == nil && len(out) > 0
	}, 3*time.Second, 100*time.Millisecond)
	assert.Contains(t, out, "hello-okanban")
}

func TestListSessionsIncludesCreated(t *testing.T) {
	d := testDriver(t)
	dir := t.TempDir()

	require.NoError(t, d.Create("ok-list-test", dir, ""))
	names, err := d.ListSessions()
	require.NoError(t, err)
	assert.Contains(t, names, "ok-list-test")
}

func TestPanePID(t *testing.T) {
	d := testDriver(t)
	dir := t.TempDir()

	require.NoError(t, d.Create("ok-pid-test", dir, ""))
	pid, err := d.PanePID("ok-pid-test")
	require.NoError(t, err)
	assert.Greater(t, pid, 0)
}

func TestInvalidNameIsRejected(t *testing.T) {
	d := testDriver(t)
	err := d.Create("not valid!", t.TempDir(), "")
	require.Error(t, err)
}

func TestListSessionsWithNoServerReturnsEmpty(t *testing.T) {
	requireTmux(t)
	d := New(fmt.Sprintf("okanban-test-empty-%d", time.Now().UnixNano()))
	names, err := d.ListSessions()
	require.NoError(t, err)
	assert.Empty(t, names)
}
