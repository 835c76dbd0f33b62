// Package model defines the persisted entities of the kanban board:
// repos, categories, and tasks, plus the small set of enums that
// describe a task's runtime lifecycle.
package model

import "time"

// Status is the observed state of a task's agent session.
type Status string

const (
	StatusRunning     Status = "running"
	StatusWaiting     Status = "waiting"
	StatusIdle        Status = "idle"
	StatusDead        Status = "dead"
	StatusBroken      Status = "broken"
	StatusUnavailable Status = "unavailable"
	StatusUnknown     Status = "unknown"
)

// StatusSource records who last wrote a task's status.
type StatusSource string

const (
	SourceNone      StatusSource = "none"
	SourceProbe     StatusSource = "probe"
	SourceReconcile StatusSource = "reconcile"
	SourceUser      StatusSource = "user"
)

// Repo is a registered git repository that tasks branch off of.
type Repo struct {
	ID          string
	Path        string // absolute, unique
	Name        string // basename-derived display name
	DefaultBase string // nullable: detected branch, e.g. "main"
	RemoteURL   string // nullable
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Category is a kanban column.
type Category struct {
	ID        string
	Name      string // unique, user-editable, <=30 chars
	Slug      string // unique, script-stable
	Position  int    // dense 0-indexed ordering
	CreatedAt time.Time
}

// Task is a single kanban card bound to a branch, worktree, tmux
// session, and agent process.
type Task struct {
	ID       string
	Title    string
	RepoID   string
	Branch   string // unsanitized git ref
	CategoryID string
	Position   int // 0-indexed within category

	TmuxSessionName string // nullable, sanitized
	WorktreePath    string // nullable, absolute

	TmuxStatus       Status
	StatusSource     StatusSource
	StatusFetchedAt  time.Time
	StatusError      string
	OpencodeSessionID string // nullable, agent-side resume token
	SessionTodoJSON   string // opaque cached progress blob

	Archived bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// MaxCategoryNameLen is the hard cap on a category's display name (§8.10).
const MaxCategoryNameLen = 30

// SeedCategories are the categories created on a fresh database, in
// display order. Slugs are literal, lowercase, hyphenated tokens — this
// resolves spec.md §9's open question about "in-progress" vs "in progress":
// the hyphenated form is the canonical slug; the display name keeps the
// space ("In Progress").
var SeedCategories = []struct {
	Name string
	Slug string
}{
	{"Todo", "todo"},
	{"In Progress", "in-progress"},
	{"Done", "done"},
}

// DefaultCategorySlug is the fallback category for task creation when no
// selector is given (spec.md §4.G.1 step 2).
const DefaultCategorySlug = "todo"
