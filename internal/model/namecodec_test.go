package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionNameSanitizesCharacterClass(t *testing.T) {
	name := SessionName("my repo!", "feature/login #1")
	assert.Regexp(t, `^[A-Za-z0-9_-]+$`, name)
	assert.True(t, strings.HasPrefix(name, "ok-"))
}

func TestSessionNameCollapsesRuns(t *testing.T) {
	name := SessionName("repo", "a///b   c")
	assert.NotContains(t, name, "--")
}

func TestSessionNameIdempotent(t *testing.T) {
	// Once a name already satisfies the character class, sanitizing it
	// again (as a hypothetical repo/branch pair made of the name itself)
	// is a no-op for the character-class pass.
	name := SessionName("repo", "branch")
	again := invalidSessionChars.ReplaceAllString(name, "-")
	again = runsOfDashes.ReplaceAllString(again, "-")
	again = strings.Trim(again, "-")
	assert.Equal(t, name, again)
}

func TestSessionNameTruncationAppendsHashSuffix(t *testing.T) {
	longBranch := strings.Repeat("a", 400)
	name := SessionName("repo", longBranch)
	require.LessOrEqual(t, len(name), maxSessionNameBytes)

	// A different long branch that collides on the truncated prefix must
	// still produce a different final name (spec.md §8.11).
	longBranch2 := strings.Repeat("a", 399) + "b"
	name2 := SessionName("repo", longBranch2)
	assert.NotEqual(t, name, name2)
}

func TestDisambiguateSessionName(t *testing.T) {
	taken := map[string]bool{"ok-repo-b": true, "ok-repo-b-2": true}
	got := DisambiguateSessionName("ok-repo-b", func(c string) bool { return taken[c] })
	assert.Equal(t, "ok-repo-b-3", got)
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "in-progress", Slugify("In Progress"))
	assert.Equal(t, "code-review", Slugify("  Code   Review!! "))
	assert.Equal(t, "", Slugify("!!!"))
}

func TestDisambiguateSlug(t *testing.T) {
	taken := map[string]bool{"todo": true}
	got := DisambiguateSlug("todo", func(c string) bool { return taken[c] })
	assert.Equal(t, "todo-2", got)
}

func TestWorktreeDirName(t *testing.T) {
	assert.Equal(t, "feature-login", WorktreeDirName("feature/login"))
}

func TestDisambiguatePath(t *testing.T) {
	exists := map[string]bool{"/w/repo/branch": true, "/w/repo/branch-2": true}
	got := DisambiguatePath("/w/repo/branch", func(c string) bool { return exists[c] })
	assert.Equal(t, "/w/repo/branch-3", got)
}
