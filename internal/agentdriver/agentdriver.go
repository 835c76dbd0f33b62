// Package agentdriver launches and resumes the coding-agent process
// inside a task's multiplexer session, and scrapes its session id back
// out of captured pane output.
package agentdriver

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/okanban/okanban/internal/ansi"
	"github.com/okanban/okanban/internal/logging"
	"github.com/okanban/okanban/internal/muxdriver"
)

var log = logging.ForComponent(logging.CompAgent)

// sessionIDPattern matches a canonical UUID, the agent's session
// identifier format. It is not anchored to any particular line: the
// first match anywhere in the captured text wins.
var sessionIDPattern = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)

// Driver drives the agent command through a MuxDriver-managed pane.
type Driver struct {
	mux     *muxdriver.Driver
	command string
}

// New returns a Driver that sends command (e.g. "opencode") into panes
// managed by mux.
func New(mux *muxdriver.Driver, command string) *Driver {
	return &Driver{mux: mux, command: command}
}

// Launch sends the agent command with a `--cwd <path>` argument into the
// session's first pane.
func (d *Driver) Launch(sessionName, cwd string) error {
	log.Info("launching agent", "session", sessionName, "command", d.command)
	cmd := fmt.Sprintf("%s --cwd %s", d.command, shellQuote(cwd))
	if err := d.mux.SendKeysAndEnter(sessionName, cmd); err != nil {
		return fmt.Errorf("agentdriver: launch %q: %w", sessionName, err)
	}
	return nil
}

// Resume sends the agent command with `--cwd <path> -s <agentSessionID>`,
// asking the agent to reattach to a prior conversation.
func (d *Driver) Resume(sessionName, cwd, agentSessionID string) error {
	log.Info("resuming agent", "session", sessionName, "agent_session_id", agentSessionID)
	cmd := fmt.Sprintf("%s --cwd %s -s %s", d.command, shellQuote(cwd), agentSessionID)
	if err := d.mux.SendKeysAndEnter(sessionName, cmd); err != nil {
		return fmt.Errorf("agentdriver: resume %q: %w", sessionName, err)
	}
	return nil
}

// shellQuote wraps path in single quotes for the pane's shell, escaping
// any literal single quote it contains.
func shellQuote(path string) string {
	return "'" + strings.ReplaceAll(path, "'", `'\''`) + "'"
}

// DetectAgentSessionID captures the pane, strips ANSI control sequences,
// and scans for a UUID-shaped session identifier. Returns ("", nil) if
// not yet visible — the caller may retry on a later probe tick.
func (d *Driver) DetectAgentSessionID(sessionName string) (string, error) {
	raw, err := d.mux.CapturePane(sessionName, 50)
	if err != nil {
		return "", fmt.Errorf("agentdriver: capture pane %q: %w", sessionName, err)
	}
	clean := ansi.Strip(raw)
	match := sessionIDPattern.FindString(clean)
	return match, nil
}
