package statusprobe

import (
	"fmt"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okanban/okanban/internal/model"
	"github.com/okanban/okanban/internal/muxdriver"
)

func TestClassifyTextWaitingTakesPriority(t *testing.T) {
	raw := "Running a tool...\nesc to interrupt\nDo you want to proceed?\nYes, allow once\nYes, always allow"
	assert.Equal(t, model.StatusWaiting, ClassifyText(raw))
}

func TestClassifyTextRunning(t *testing.T) {
	raw := "some earlier output\nesc to interrupt"
	assert.Equal(t, model.StatusRunning, ClassifyText(raw))
}

func TestClassifyTextIdlePromptGlyph(t *testing.T) {
	raw := "agent finished the task\n> "
	assert.Equal(t, model.StatusIdle, ClassifyText(raw))
}

func TestClassifyTextIdlePromptPhrase(t *testing.T) {
	raw := "Ask anything\n> "
	assert.Equal(t, model.StatusIdle, ClassifyText(raw))
}

func TestClassifyTextUnknownWhenNoSentinelsPresent(t *testing.T) {
	raw := "just some ordinary scrollback text with no markers"
	assert.Equal(t, model.StatusUnknown, ClassifyText(raw))
}

func TestClassifyTextIgnoresHistoricalScrollback(t *testing.T) {
	// A sentinel far back in scrollback must not be matched once there
	// are 30+ non-empty lines after it: only the tail window is examined.
	var b strings.Builder
	b.WriteString("esc to interrupt // historical line\n")
	for i := 0; i < 40; i++ {
		b.WriteString("some log line\n")
	}
	assert.Equal(t, model.StatusUnknown, ClassifyText(b.String()))
}

func TestClassifyTextStripsANSIBeforeMatching(t *testing.T) {
	raw := "\x1b[2K\x1b[1Gesc to interrupt\x1b[0m"
	assert.Equal(t, model.StatusRunning, ClassifyText(raw))
}

func TestProbeClassifyReturnsDeadForMissingSession(t *testing.T) {
	if _, err := exec.LookPath("tmux"); err != nil {
		t.Skip("tmux binary not available")
	}
	socket := fmt.Sprintf("okanban-probe-test-%d", time.Now().UnixNano())
	mux := muxdriver.New(socket)
	t.Cleanup(func() { _ = exec.Command("tmux", "-L", socket, "kill-server").Run() })

	p := New(mux)
	assert.Equal(t, model.StatusDead, p.Classify("ok-never-existed"))
}

func TestProbeClassifyLiveSession(t *testing.T) {
	if _, err := exec.LookPath("tmux"); err != nil {
		t.Skip("tmux binary not available")
	}
	socket := fmt.Sprintf("okanban-probe-test-%d", time.Now().UnixNano())
	mux := muxdriver.New(socket)
	t.Cleanup(func() { _ = exec.Command("tmux", "-L", socket, "kill-server").Run() })

	dir := t.TempDir()
	require.NoError(t, mux.Create("ok-probe-test", dir, ""))
	require.NoError(t, mux.SendKeysAndEnter("ok-probe-test", "echo esc to interrupt"))

	p := New(mux)
	require.Eventually(t, func() bool {
		return p.Classify("ok-probe-test") == model.StatusRunning
	}, 3*time.Second, 100*time.Millisecond)
}
