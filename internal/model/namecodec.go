package model

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

// sessionNamePrefix mirrors the teacher's SessionPrefix convention
// (agent-deck prefixes its own tmux sessions so they're recognizable on
// a shared socket). "ok-" stands for okanban.
const sessionNamePrefix = "ok-"

// maxSessionNameBytes is the truncation point before a content-hash
// suffix is appended to preserve uniqueness (spec.md §4.B step 4).
const maxSessionNameBytes = 200

var invalidSessionChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)
var runsOfDashes = regexp.MustCompile(`-+`)

// SessionName derives the deterministic, pre-disambiguation tmux session
// name for a (repo name, branch) pair. The Orchestrator appends a
// numeric "-2", "-3", ... suffix on collision (step 5 is its job, not
// this pure function's).
func SessionName(repoName, branch string) string {
	raw := sessionNamePrefix + repoName + "-" + branch
	sanitized := invalidSessionChars.ReplaceAllString(raw, "-")
	sanitized = runsOfDashes.ReplaceAllString(sanitized, "-")
	sanitized = strings.Trim(sanitized, "-")

	if len(sanitized) <= maxSessionNameBytes {
		return sanitized
	}

	// Truncation occurred: append a short content hash so two distinct
	// long names that truncate to the same prefix stay distinguishable.
	sum := sha1.Sum([]byte(raw))
	suffix := "-" + hex.EncodeToString(sum[:])[:8]
	cut := maxSessionNameBytes - len(suffix)
	if cut < 0 {
		cut = 0
	}
	truncated := sanitized[:cut]
	truncated = strings.TrimRight(truncated, "-")
	return truncated + suffix
}

// DisambiguateSessionName appends "-2", "-3", ... to base until taken
// returns false for the candidate. This implements spec.md §4.B step 5;
// the caller (Orchestrator, under a Store check) supplies taken.
func DisambiguateSessionName(base string, taken func(candidate string) bool) string {
	if !taken(base) {
		return base
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s-%d", base, n)
		if !taken(candidate) {
			return candidate
		}
	}
}

var nonSlugRun = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a category slug from a display name: lowercase,
// non-alphanumeric runs collapsed to a single hyphen, trimmed. Returns
// "" for input that has no alphanumeric characters at all — the caller
// must reject that as invalid.
func Slugify(name string) string {
	lower := strings.ToLower(name)
	slug := nonSlugRun.ReplaceAllString(lower, "-")
	return strings.Trim(slug, "-")
}

// DisambiguateSlug appends "-2", "-3", ... until taken returns false,
// mirroring DisambiguateSessionName but for the category-slug namespace
// (spec.md §4.B: "caller may retry with suffixed form").
func DisambiguateSlug(base string, taken func(candidate string) bool) string {
	return DisambiguateSessionName(base, taken)
}

// WorktreeDirName returns the filesystem-safe branch component used to
// build a worktree path: "feature/login" -> "feature-login". Distinct
// from SessionName because the two collision namespaces are independent
// (spec.md §9 design notes).
func WorktreeDirName(branch string) string {
	sanitized := strings.ReplaceAll(branch, "/", "-")
	sanitized = strings.ReplaceAll(sanitized, " ", "-")
	sanitized = runsOfDashes.ReplaceAllString(sanitized, "-")
	return strings.Trim(sanitized, "-")
}

// DisambiguatePath appends "-2", "-3", ... to a base path until exists
// returns false, implementing spec.md §4.G.1 step 4's filesystem
// collision rule.
func DisambiguatePath(base string, exists func(candidate string) bool) string {
	if !exists(base) {
		return base
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s-%d", base, n)
		if !exists(candidate) {
			return candidate
		}
	}
}
