// Package statusprobe classifies a task's live session status from its
// captured pane text. Classification is a pure function: it never
// touches the Store, and returns a value for the caller to persist.
package statusprobe

import (
	"strings"

	"github.com/okanban/okanban/internal/ansi"
	"github.com/okanban/okanban/internal/logging"
	"github.com/okanban/okanban/internal/model"
	"github.com/okanban/okanban/internal/muxdriver"
)

var log = logging.ForComponent(logging.CompStatus)

// CaptureLines is how many trailing pane lines are captured via
// MuxDriver before classification.
const CaptureLines = 50

// ClassifyLines is how many of the captured lines' non-empty tail are
// actually examined, to avoid matching historical scrollback of code or
// comments that happen to contain a sentinel substring.
const ClassifyLines = 30

// waitingSentinels are permission-prompt markers; their presence always
// takes priority over a busy/idle read.
var waitingSentinels = []string{
	"Yes, allow once",
	"Yes, allow always",
	"enter to select",
	"esc to cancel",
}

// runningSentinels indicate the agent is actively working.
var runningSentinels = []string{
	"esc to interrupt",
	"esc interrupt",
	"ctrl+c to interrupt",
	"thinking...",
	"generating...",
	"building tool call...",
	"waiting for tool response...",
}

// idleSentinels are input-prompt glyphs shown when the agent awaits a
// new instruction.
var idleSentinels = []string{
	"Ask anything",
	"press enter to send",
}

// idleLinePrefixes mark a trailing line as an empty input prompt, rather
// than matching the glyph anywhere in scrollback (too broad: ">" alone
// appears constantly in ordinary code/comments).
var idleLinePrefixes = []string{">", "› ", "$ "}

// Probe reads a task's live session and classifies it.
type Probe struct {
	mux *muxdriver.Driver
}

// New returns a Probe that captures panes through mux.
func New(mux *muxdriver.Driver) *Probe {
	return &Probe{mux: mux}
}

// Classify captures sessionName's pane and classifies its status. If
// the session does not exist, it returns model.StatusDead.
func (p *Probe) Classify(sessionName string) model.Status {
	if !p.mux.Exists(sessionName) {
		return model.StatusDead
	}

	raw, err := p.mux.CapturePane(sessionName, CaptureLines)
	if err != nil {
		log.Warn("capture failed during status probe", "session", sessionName, "error", err)
		return model.StatusUnknown
	}

	return ClassifyText(raw)
}

// ClassifyText strips ANSI sequences from raw, restricts to the tail
// non-empty lines (ClassifyLines), and classifies in priority order:
// waiting > running > idle > unknown. Exported so tests can exercise
// classification on fixture strings without a real tmux session.
func ClassifyText(raw string) model.Status {
	return ClassifyTextWithWindow(raw, ClassifyLines)
}

// ClassifyTextWithWindow is ClassifyText with an explicit tail-line
// window, letting callers (and tests) vary it away from the default.
func ClassifyTextWithWindow(raw string, classifyLines int) model.Status {
	clean := ansi.Strip(raw)
	tail := tailNonEmptyLines(clean, classifyLines)

	if containsAny(tail, waitingSentinels) {
		return model.StatusWaiting
	}
	if containsAny(tail, runningSentinels) {
		return model.StatusRunning
	}
	if containsAny(tail, idleSentinels) || lastLineLooksLikePrompt(tail) {
		return model.StatusIdle
	}
	return model.StatusUnknown
}

func lastLineLooksLikePrompt(tail string) bool {
	lines := strings.Split(tail, "\n")
	if len(lines) == 0 {
		return false
	}
	last := strings.TrimRight(lines[len(lines)-1], " \t")
	for _, prefix := range idleLinePrefixes {
		if strings.HasPrefix(strings.TrimLeft(last, " \t"), prefix) && len(strings.TrimSpace(last)) <= len(prefix)+40 {
			return true
		}
	}
	return false
}

func tailNonEmptyLines(content string, n int) string {
	lines := strings.Split(content, "\n")
	var nonEmpty []string
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			nonEmpty = append(nonEmpty, line)
		}
	}
	if len(nonEmpty) > n {
		nonEmpty = nonEmpty[len(nonEmpty)-n:]
	}
	return strings.Join(nonEmpty, "\n")
}

func containsAny(haystack string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}
