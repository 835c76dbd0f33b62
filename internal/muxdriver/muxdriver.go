// Package muxdriver wraps tmux for session lifecycle and pane I/O. Every
// invocation pins an isolated control socket so the tool never collides
// with the user's default tmux sessions.
package muxdriver

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

// ErrCaptureTimeout is returned when capture-pane exceeds its deadline.
var ErrCaptureTimeout = errors.New("capture-pane timed out")

var validNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Driver issues tmux commands against one pinned control socket.
type Driver struct {
	socket string
	sf     singleflight.Group
}

// New returns a Driver pinned to the given control socket name (passed
// as `-L <socket>` on every invocation).
func New(socket string) *Driver {
	return &Driver{socket: socket}
}

func (d *Driver) cmd(args ...string) *exec.Cmd {
	full := append([]string{"-L", d.socket}, args...)
	return exec.Command("tmux", full...)
}

func (d *Driver) cmdContext(ctx context.Context, args ...string) *exec.Cmd {
	full := append([]string{"-L", d.socket}, args...)
	return exec.CommandContext(ctx, "tmux", full...)
}

// validateName re-validates the session name character set as a defense
// in depth; names are assumed to have already been sanitized by NameCodec.
func validateName(name string) error {
	if !validNamePattern.MatchString(name) {
		return fmt.Errorf("muxdriver: invalid session name %q", name)
	}
	return nil
}

// Exists reports whether a session by that name is running.
func (d *Driver) Exists(name string) bool {
	if validateName(name) != nil {
		return false
	}
	return d.cmd("has-session", "-t", name).Run() == nil
}

// Create starts a detached, single-pane session at cwd, optionally
// running initialCommand (sent via send-keys + Enter once the session
// is up, the same way AgentDriver sends subsequent commands).
func (d *Driver) Create(name, cwd, initialCommand string) error {
	if err := validateName(name); err != nil {
		return err
	}

	out, err := d.cmd("new-session", "-d", "-s", name, "-c", cwd).CombinedOutput()
	if err != nil {
		return fmt.Errorf("muxdriver: create session %q: %s: %w", name, strings.TrimSpace(string(out)), err)
	}

	if initialCommand != "" {
		if err := d.SendKeysAndEnter(name, initialCommand); err != nil {
			return fmt.Errorf("muxdriver: send initial command to %q: %w", name, err)
		}
	}
	return nil
}

// Kill terminates a session. Killing an already-dead session is
// tolerated as success, since Orchestrator compensations must be
// idempotent.
func (d *Driver) Kill(name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	if !d.Exists(name) {
		return nil
	}
	if err := d.cmd("kill-session", "-t", name).Run(); err != nil {
		return fmt.Errorf("muxdriver: kill session %q: %w", name, err)
	}
	return nil
}

// SwitchClient attaches the calling terminal to the named session.
func (d *Driver) SwitchClient(name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	if err := d.cmd("switch-client", "-t", name).Run(); err != nil {
		return fmt.Errorf("muxdriver: switch-client %q: %w", name, err)
	}
	return nil
}

// ListSessions returns the names of every session on the pinned socket.
// A socket with no tmux server behind it yields no sessions and no error.
func (d *Driver) ListSessions() ([]string, error) {
	out, err := d.cmd("list-sessions", "-F", "#{session_name}").Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			stderr := string(exitErr.Stderr)
			if strings.Contains(stderr, "no server running") || strings.Contains(stderr, "error connecting to") {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("muxdriver: list-sessions: %w", err)
	}
	trimmed := strings.TrimSpace(string(out))
	if trimmed == "" {
		return nil, nil
	}
	return strings.Split(trimmed, "\n"), nil
}

// CapturePane returns the last tailLines of the session's first pane,
// with line-wrapping joined (-J). Concurrent calls for the same session
// are deduplicated via singleflight.
func (d *Driver) CapturePane(name string, tailLines int) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}

	v, err, _ := d.sf.Do(name+":"+strconv.Itoa(tailLines), func() (any, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		args := []string{"capture-pane", "-t", name, "-p", "-J"}
		if tailLines > 0 {
			args = append(args, "-S", "-"+strconv.Itoa(tailLines))
		}

		out, err := d.cmdContext(ctx, args...).Output()
		if err != nil {
			if ctx.Err() == context.DeadlineExceeded {
				return "", ErrCaptureTimeout
			}
			return "", fmt.Errorf("muxdriver: capture-pane %q: %w", name, err)
		}
		return string(out), nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// PanePID returns the PID of the session's first pane process.
func (d *Driver) PanePID(name string) (int, error) {
	if err := validateName(name); err != nil {
		return 0, err
	}
	out, err := d.cmd("list-panes", "-t", name, "-F", "#{pane_pid}").Output()
	if err != nil {
		return 0, fmt.Errorf("muxdriver: pane_pid %q: %w", name, err)
	}
	line := strings.TrimSpace(strings.SplitN(string(out), "\n", 2)[0])
	pid, err := strconv.Atoi(line)
	if err != nil {
		return 0, fmt.Errorf("muxdriver: pane_pid %q: unexpected output %q", name, line)
	}
	return pid, nil
}

// SendKeys sends literal text to the session's active pane. The -l flag
// treats the string as literal text so it can never be interpreted as a
// tmux key name.
func (d *Driver) SendKeys(name, text string) error {
	if err := validateName(name); err != nil {
		return err
	}
	if err := d.cmd("send-keys", "-l", "-t", name, "--", text).Run(); err != nil {
		return fmt.Errorf("muxdriver: send-keys %q: %w", name, err)
	}
	return nil
}

// SendEnter sends a bare Enter keypress.
func (d *Driver) SendEnter(name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	if err := d.cmd("send-keys", "-t", name, "Enter").Run(); err != nil {
		return fmt.Errorf("muxdriver: send-enter %q: %w", name, err)
	}
	return nil
}

// SendKeysAndEnter sends text, then a short delay, then Enter. The delay
// matters because tmux 3.2+ wraps send-keys -l in bracketed-paste escape
// sequences; sending Enter immediately can be swallowed by a TUI's paste
// handler before the paste-end marker is processed.
func (d *Driver) SendKeysAndEnter(name, text string) error {
	if err := d.SendKeys(name, text); err != nil {
		return err
	}
	time.Sleep(100 * time.Millisecond)
	return d.SendEnter(name)
}
