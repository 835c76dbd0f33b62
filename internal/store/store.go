// Package store implements the Store component of spec.md §4.A: the
// sole owner of row mutation for repos, categories, and tasks, backed
// by an embedded SQLite database opened in WAL mode.
package store

import (
	"database/sql"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/okanban/okanban/internal/logging"
	"github.com/okanban/okanban/internal/model"
)

var log = logging.ForComponent(logging.CompStore)

// Store wraps a SQLite-backed database of repos, categories, and tasks.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path, applying idempotent
// schema migrations and seeding default categories if the database is
// new. The parent directory is created if missing.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, newErr(KindIO, "Open", "mkdir", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, newErr(KindIO, "Open", "sql.Open", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, newErr(KindIO, "Open", pragma, err)
		}
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{db: db}
	if err := s.seedCategories(); err != nil {
		db.Close()
		return nil, err
	}

	log.Debug("opened store", "path", path)
	return s, nil
}

// Close checkpoints the WAL and closes the database.
func (s *Store) Close() error {
	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.db.Close()
}

// seedCategories inserts the default todo/in-progress/done categories if
// a category with that slug doesn't already exist (spec.md §3 Lifecycle).
func (s *Store) seedCategories() error {
	for i, seed := range model.SeedCategories {
		var count int
		if err := s.db.QueryRow(`SELECT COUNT(*) FROM categories WHERE slug = ?`, seed.Slug).Scan(&count); err != nil {
			return newErr(KindIO, "seedCategories", "count", err)
		}
		if count > 0 {
			continue
		}
		_, err := s.db.Exec(
			`INSERT INTO categories (id, name, slug, position, created_at) VALUES (?, ?, ?, ?, ?)`,
			uuid.NewString(), seed.Name, seed.Slug, i, time.Now().UTC().Unix(),
		)
		if err != nil {
			return newErr(KindIO, "seedCategories", "insert "+seed.Slug, err)
		}
	}
	return nil
}

// --- Repo ---

// CreateRepo inserts a new repo row.
func (s *Store) CreateRepo(r *model.Repo) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	r.CreatedAt, r.UpdatedAt = now, now

	_, err := s.db.Exec(
		`INSERT INTO repos (id, path, name, default_base, remote_url, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Path, r.Name, r.DefaultBase, r.RemoteURL, now.Unix(), now.Unix(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return newErr(KindConflict, "CreateRepo", "path already registered: "+r.Path, err)
		}
		return newErr(KindIO, "CreateRepo", "insert", err)
	}
	return nil
}

// GetRepoByPath returns the repo registered at path, or a NotFound error.
func (s *Store) GetRepoByPath(path string) (*model.Repo, error) {
	row := s.db.QueryRow(`SELECT id, path, name, default_base, remote_url, created_at, updated_at FROM repos WHERE path = ?`, path)
	return scanRepo(row)
}

// GetRepo returns the repo by id, or a NotFound error.
func (s *Store) GetRepo(id string) (*model.Repo, error) {
	row := s.db.QueryRow(`SELECT id, path, name, default_base, remote_url, created_at, updated_at FROM repos WHERE id = ?`, id)
	return scanRepo(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRepo(row rowScanner) (*model.Repo, error) {
	r := &model.Repo{}
	var createdUnix, updatedUnix int64
	err := row.Scan(&r.ID, &r.Path, &r.Name, &r.DefaultBase, &r.RemoteURL, &createdUnix, &updatedUnix)
	if err == sql.ErrNoRows {
		return nil, newErr(KindNotFound, "GetRepo", "no such repo", err)
	}
	if err != nil {
		return nil, newErr(KindIO, "GetRepo", "scan", err)
	}
	r.CreatedAt = time.Unix(createdUnix, 0).UTC()
	r.UpdatedAt = time.Unix(updatedUnix, 0).UTC()
	return r, nil
}

// ListRepos returns every registered repo.
func (s *Store) ListRepos() ([]*model.Repo, error) {
	rows, err := s.db.Query(`SELECT id, path, name, default_base, remote_url, created_at, updated_at FROM repos ORDER BY name`)
	if err != nil {
		return nil, newErr(KindIO, "ListRepos", "query", err)
	}
	defer rows.Close()

	var out []*model.Repo
	for rows.Next() {
		r, err := scanRepo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// --- Category ---

// CreateCategory inserts a new category at the end of the ordering.
func (s *Store) CreateCategory(c *model.Category) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if len(c.Name) > model.MaxCategoryNameLen {
		return newErr(KindInvariant, "CreateCategory", "name exceeds max length", nil)
	}
	c.CreatedAt = time.Now().UTC()

	tx, err := s.db.Begin()
	if err != nil {
		return newErr(KindIO, "CreateCategory", "begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	var maxPos sql.NullInt64
	if err := tx.QueryRow(`SELECT MAX(position) FROM categories`).Scan(&maxPos); err != nil {
		return newErr(KindIO, "CreateCategory", "max position", err)
	}
	c.Position = int(maxPos.Int64) + 1
	if !maxPos.Valid {
		c.Position = 0
	}

	_, err = tx.Exec(
		`INSERT INTO categories (id, name, slug, position, created_at) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Slug, c.Position, c.CreatedAt.Unix(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return newErr(KindConflict, "CreateCategory", "name or slug already exists", err)
		}
		return newErr(KindIO, "CreateCategory", "insert", err)
	}
	if err := tx.Commit(); err != nil {
		return newErr(KindIO, "CreateCategory", "commit", err)
	}
	return nil
}

// GetCategoryBySlug returns the category with the given slug.
func (s *Store) GetCategoryBySlug(slug string) (*model.Category, error) {
	row := s.db.QueryRow(`SELECT id, name, slug, position, created_at FROM categories WHERE slug = ?`, slug)
	return scanCategory(row)
}

// GetCategory returns the category by id.
func (s *Store) GetCategory(id string) (*model.Category, error) {
	row := s.db.QueryRow(`SELECT id, name, slug, position, created_at FROM categories WHERE id = ?`, id)
	return scanCategory(row)
}

// FirstCategoryByPosition returns the category at position 0 (spec.md
// §4.G.1 step 2's fallback after the "todo" slug).
func (s *Store) FirstCategoryByPosition() (*model.Category, error) {
	row := s.db.QueryRow(`SELECT id, name, slug, position, created_at FROM categories ORDER BY position ASC LIMIT 1`)
	return scanCategory(row)
}

func scanCategory(row rowScanner) (*model.Category, error) {
	c := &model.Category{}
	var createdUnix int64
	err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.Position, &createdUnix)
	if err == sql.ErrNoRows {
		return nil, newErr(KindNotFound, "GetCategory", "no such category", err)
	}
	if err != nil {
		return nil, newErr(KindIO, "GetCategory", "scan", err)
	}
	c.CreatedAt = time.Unix(createdUnix, 0).UTC()
	return c, nil
}

// ListCategories returns all categories ordered by position.
func (s *Store) ListCategories() ([]*model.Category, error) {
	rows, err := s.db.Query(`SELECT id, name, slug, position, created_at FROM categories ORDER BY position`)
	if err != nil {
		return nil, newErr(KindIO, "ListCategories", "query", err)
	}
	defer rows.Close()

	var out []*model.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateCategory renames a category and/or changes its slug. Either
// field may be passed empty to leave it unchanged.
func (s *Store) UpdateCategory(id, name, slug string) error {
	if name != "" && len(name) > model.MaxCategoryNameLen {
		return newErr(KindInvariant, "UpdateCategory", "name exceeds max length", nil)
	}

	cur, err := s.GetCategory(id)
	if err != nil {
		return err
	}
	if name == "" {
		name = cur.Name
	}
	if slug == "" {
		slug = cur.Slug
	}

	_, err = s.db.Exec(`UPDATE categories SET name = ?, slug = ? WHERE id = ?`, name, slug, id)
	if err != nil {
		if isUniqueViolation(err) {
			return newErr(KindConflict, "UpdateCategory", "name or slug already exists", err)
		}
		return newErr(KindIO, "UpdateCategory", "update", err)
	}
	return nil
}

// DeleteCategory removes a category. It is rejected if the category is
// non-empty, or if it is the last remaining category (spec.md §3
// invariant 3, §4.G.6).
func (s *Store) DeleteCategory(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return newErr(KindIO, "DeleteCategory", "begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	var total int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM categories`).Scan(&total); err != nil {
		return newErr(KindIO, "DeleteCategory", "count categories", err)
	}
	if total <= 1 {
		return newErr(KindInvariant, "DeleteCategory", "cannot delete the last category", nil)
	}

	var taskCount int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM tasks WHERE category_id = ?`, id).Scan(&taskCount); err != nil {
		return newErr(KindIO, "DeleteCategory", "count tasks", err)
	}
	if taskCount > 0 {
		return newErr(KindInvariant, "DeleteCategory", "category is not empty", nil)
	}

	res, err := tx.Exec(`DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return newErr(KindIO, "DeleteCategory", "delete", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return newErr(KindNotFound, "DeleteCategory", "no such category", nil)
	}

	if err := renumberCategoryPositions(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return newErr(KindIO, "DeleteCategory", "commit", err)
	}
	return nil
}

func renumberCategoryPositions(tx *sql.Tx) error {
	rows, err := tx.Query(`SELECT id FROM categories ORDER BY position`)
	if err != nil {
		return newErr(KindIO, "renumberCategoryPositions", "query", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return newErr(KindIO, "renumberCategoryPositions", "scan", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return newErr(KindIO, "renumberCategoryPositions", "rows", err)
	}

	for i, id := range ids {
		if _, err := tx.Exec(`UPDATE categories SET position = ? WHERE id = ?`, i, id); err != nil {
			return newErr(KindIO, "renumberCategoryPositions", "update", err)
		}
	}
	return nil
}

// --- Task ---

// CreateTask inserts a new task at the end of its category's ordering.
// It never leaves a partial row: repo_id/category_id are validated to
// resolve before insert (spec.md §3 invariant 3).
func (s *Store) CreateTask(t *model.Task) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	if t.TmuxStatus == "" {
		t.TmuxStatus = model.StatusUnknown
	}
	if t.StatusSource == "" {
		t.StatusSource = model.SourceNone
	}

	tx, err := s.db.Begin()
	if err != nil {
		return newErr(KindIO, "CreateTask", "begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := scanCategory(tx.QueryRow(`SELECT id, name, slug, position, created_at FROM categories WHERE id = ?`, t.CategoryID)); err != nil {
		return newErr(KindInvariant, "CreateTask", "category_id does not resolve", err)
	}
	if _, err := scanRepo(tx.QueryRow(`SELECT id, path, name, default_base, remote_url, created_at, updated_at FROM repos WHERE id = ?`, t.RepoID)); err != nil {
		return newErr(KindInvariant, "CreateTask", "repo_id does not resolve", err)
	}

	var maxPos sql.NullInt64
	if err := tx.QueryRow(`SELECT MAX(position) FROM tasks WHERE category_id = ?`, t.CategoryID).Scan(&maxPos); err != nil {
		return newErr(KindIO, "CreateTask", "max position", err)
	}
	t.Position = 0
	if maxPos.Valid {
		t.Position = int(maxPos.Int64) + 1
	}

	_, err = tx.Exec(`
		INSERT INTO tasks (
			id, title, repo_id, branch, category_id, position,
			tmux_session_name, worktree_path, tmux_status, status_source,
			status_fetched_at, status_error, opencode_session_id, session_todo_json,
			archived, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Title, t.RepoID, t.Branch, t.CategoryID, t.Position,
		t.TmuxSessionName, t.WorktreePath, string(t.TmuxStatus), string(t.StatusSource),
		t.StatusFetchedAt.Unix(), t.StatusError, t.OpencodeSessionID, t.SessionTodoJSON,
		boolToInt(t.Archived), now.Unix(), now.Unix(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return newErr(KindConflict, "CreateTask", "task already exists for (repo, branch)", err)
		}
		return newErr(KindIO, "CreateTask", "insert", err)
	}

	if err := tx.Commit(); err != nil {
		return newErr(KindIO, "CreateTask", "commit", err)
	}
	return nil
}

// DeleteTask hard-deletes a task row.
func (s *Store) DeleteTask(id string) error {
	res, err := s.db.Exec(`DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return newErr(KindIO, "DeleteTask", "delete", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return newErr(KindNotFound, "DeleteTask", "no such task", nil)
	}
	return nil
}

// GetTask returns a task by id.
func (s *Store) GetTask(id string) (*model.Task, error) {
	row := s.db.QueryRow(taskSelectSQL+` WHERE id = ?`, id)
	return scanTask(row)
}

// TaskExistsForBranch reports whether a task is already bound to the
// given (repo, branch), used to check the §3 UNIQUE(repo_id, branch)
// invariant before any side effect.
func (s *Store) TaskExistsForBranch(repoID, branch string) (bool, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM tasks WHERE repo_id = ? AND branch = ?`, repoID, branch).Scan(&count)
	if err != nil {
		return false, newErr(KindIO, "TaskExistsForBranch", "count", err)
	}
	return count > 0, nil
}

// SessionNameTaken reports whether name is already the
// tmux_session_name of some task, excluding excludeTaskID (used during
// re-spawn, where the task being refreshed already owns the name).
func (s *Store) SessionNameTaken(name, excludeTaskID string) (bool, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM tasks WHERE tmux_session_name = ? AND id != ?`,
		name, excludeTaskID,
	).Scan(&count)
	if err != nil {
		return false, newErr(KindIO, "SessionNameTaken", "count", err)
	}
	return count > 0, nil
}

const taskSelectSQL = `SELECT
	id, title, repo_id, branch, category_id, position,
	tmux_session_name, worktree_path, tmux_status, status_source,
	status_fetched_at, status_error, opencode_session_id, session_todo_json,
	archived, created_at, updated_at
	FROM tasks`

func scanTask(row rowScanner) (*model.Task, error) {
	t := &model.Task{}
	var tmuxStatus, statusSource string
	var statusFetchedUnix, createdUnix, updatedUnix int64
	var archivedInt int
	err := row.Scan(
		&t.ID, &t.Title, &t.RepoID, &t.Branch, &t.CategoryID, &t.Position,
		&t.TmuxSessionName, &t.WorktreePath, &tmuxStatus, &statusSource,
		&statusFetchedUnix, &t.StatusError, &t.OpencodeSessionID, &t.SessionTodoJSON,
		&archivedInt, &createdUnix, &updatedUnix,
	)
	if err == sql.ErrNoRows {
		return nil, newErr(KindNotFound, "GetTask", "no such task", err)
	}
	if err != nil {
		return nil, newErr(KindIO, "GetTask", "scan", err)
	}
	t.TmuxStatus = model.Status(tmuxStatus)
	t.StatusSource = model.StatusSource(statusSource)
	if statusFetchedUnix > 0 {
		t.StatusFetchedAt = time.Unix(statusFetchedUnix, 0).UTC()
	}
	t.Archived = archivedInt != 0
	t.CreatedAt = time.Unix(createdUnix, 0).UTC()
	t.UpdatedAt = time.Unix(updatedUnix, 0).UTC()
	return t, nil
}

// ListTasks returns every task, ordered by category then position.
func (s *Store) ListTasks() ([]*model.Task, error) {
	rows, err := s.db.Query(taskSelectSQL + ` ORDER BY category_id, position`)
	if err != nil {
		return nil, newErr(KindIO, "ListTasks", "query", err)
	}
	defer rows.Close()

	var out []*model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpdateTaskRuntime updates the fields the creation pipeline and
// re-spawn flow own: session name, worktree path, and agent session id.
func (s *Store) UpdateTaskRuntime(id, sessionName, worktreePath, agentSessionID string) error {
	_, err := s.db.Exec(
		`UPDATE tasks SET tmux_session_name = ?, worktree_path = ?, opencode_session_id = ?, updated_at = ? WHERE id = ?`,
		sessionName, worktreePath, agentSessionID, time.Now().UTC().Unix(), id,
	)
	if err != nil {
		return newErr(KindIO, "UpdateTaskRuntime", "update", err)
	}
	return nil
}

// UpdateSessionTodoJSON caches the agent's latest reported todo list
// against the task, for AttachTask to render as a summary checklist. It
// does not touch updated_at: it's cosmetic cache data, not a status or
// intent change.
func (s *Store) UpdateSessionTodoJSON(id, todoJSON string) error {
	_, err := s.db.Exec(`UPDATE tasks SET session_todo_json = ? WHERE id = ?`, todoJSON, id)
	if err != nil {
		return newErr(KindIO, "UpdateSessionTodoJSON", "update", err)
	}
	return nil
}

// UpdateTaskStatusIfNewer writes a status observation, but only if
// capturedAt is not older than the task's current updated_at — this is
// the mechanism behind spec.md §8 property 4: a probe sample captured
// before a later user-intent write must not clobber it. If status,
// source, and error are unchanged from the current row, updated_at is
// not bumped (coalescing no-op transitions, spec.md §4.G.5).
//
// Returns (written=false, nil) when the write was dropped as stale —
// this is not an error, just a race the caller should ignore.
func (s *Store) UpdateTaskStatusIfNewer(id string, status model.Status, source model.StatusSource, statusErr string, capturedAt time.Time) (bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return false, newErr(KindIO, "UpdateTaskStatusIfNewer", "begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	var updatedUnix int64
	var curStatus, curSource, curErr string
	err = tx.QueryRow(
		`SELECT updated_at, tmux_status, status_source, status_error FROM tasks WHERE id = ?`, id,
	).Scan(&updatedUnix, &curStatus, &curSource, &curErr)
	if err == sql.ErrNoRows {
		return false, newErr(KindNotFound, "UpdateTaskStatusIfNewer", "no such task", err)
	}
	if err != nil {
		return false, newErr(KindIO, "UpdateTaskStatusIfNewer", "select", err)
	}

	if capturedAt.Before(time.Unix(updatedUnix, 0).UTC()) {
		// A user intent (or a later probe) already moved updated_at past
		// this sample's capture time. Drop it.
		return false, nil
	}

	now := time.Now().UTC()
	fetchedAt := now.Unix()
	if curStatus == string(status) && curSource == string(source) && curErr == statusErr {
		// No-op transition: refresh status_fetched_at only, never bump
		// updated_at (spec.md §4.G.5 "writes are coalesced").
		if _, err := tx.Exec(`UPDATE tasks SET status_fetched_at = ? WHERE id = ?`, fetchedAt, id); err != nil {
			return false, newErr(KindIO, "UpdateTaskStatusIfNewer", "update fetched_at", err)
		}
		return true, tx.Commit()
	}

	_, err = tx.Exec(
		`UPDATE tasks SET tmux_status = ?, status_source = ?, status_error = ?, status_fetched_at = ?, updated_at = ? WHERE id = ?`,
		string(status), string(source), statusErr, fetchedAt, now.Unix(), id,
	)
	if err != nil {
		return false, newErr(KindIO, "UpdateTaskStatusIfNewer", "update", err)
	}
	return true, tx.Commit()
}

// UpdateTaskStatus unconditionally sets status (used by reconciliation
// and explicit user actions, which always win).
func (s *Store) UpdateTaskStatus(id string, status model.Status, source model.StatusSource, statusErr string) error {
	now := time.Now().UTC()
	_, err := s.db.Exec(
		`UPDATE tasks SET tmux_status = ?, status_source = ?, status_error = ?, status_fetched_at = ?, updated_at = ? WHERE id = ?`,
		string(status), string(source), statusErr, now.Unix(), now.Unix(), id,
	)
	if err != nil {
		return newErr(KindIO, "UpdateTaskStatus", "update", err)
	}
	return nil
}

// SetArchived sets the archived flag. Idempotent: re-archiving an
// already-archived task succeeds (spec.md §4.G.6, §8 property 8) and
// wasNoop reports whether the flag was already at the requested value.
func (s *Store) SetArchived(id string, archived bool) (wasNoop bool, err error) {
	tx, txErr := s.db.Begin()
	if txErr != nil {
		return false, newErr(KindIO, "SetArchived", "begin", txErr)
	}
	defer func() { _ = tx.Rollback() }()

	var current int
	if err := tx.QueryRow(`SELECT archived FROM tasks WHERE id = ?`, id).Scan(&current); err != nil {
		if err == sql.ErrNoRows {
			return false, newErr(KindNotFound, "SetArchived", "no such task", err)
		}
		return false, newErr(KindIO, "SetArchived", "select", err)
	}

	if (current != 0) == archived {
		return true, tx.Commit()
	}

	if _, err := tx.Exec(`UPDATE tasks SET archived = ?, updated_at = ? WHERE id = ?`, boolToInt(archived), time.Now().UTC().Unix(), id); err != nil {
		return false, newErr(KindIO, "SetArchived", "update", err)
	}
	return false, tx.Commit()
}

// ReorderWithinCategory applies an explicit ordering for every task in a
// category in a single transaction (spec.md §4.A, §4.G.6, §8 property 1).
func (s *Store) ReorderWithinCategory(categoryID string, orderedIDs []string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return newErr(KindIO, "ReorderWithinCategory", "begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, id := range orderedIDs {
		res, err := tx.Exec(`UPDATE tasks SET position = ?, updated_at = ? WHERE id = ? AND category_id = ?`,
			i, time.Now().UTC().Unix(), id, categoryID)
		if err != nil {
			return newErr(KindIO, "ReorderWithinCategory", "update", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return newErr(KindNotFound, "ReorderWithinCategory", "task not in category: "+id, nil)
		}
	}
	return tx.Commit()
}

// MoveTask moves a task to (categoryID, position), renumbering both the
// source and destination categories to a contiguous 0..n permutation in
// one transaction (spec.md §4.G.6, §8 property 1, Scenario 5).
func (s *Store) MoveTask(taskID, categoryID string, position int) error {
	tx, err := s.db.Begin()
	if err != nil {
		return newErr(KindIO, "MoveTask", "begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	var oldCategoryID string
	if err := tx.QueryRow(`SELECT category_id FROM tasks WHERE id = ?`, taskID).Scan(&oldCategoryID); err != nil {
		if err == sql.ErrNoRows {
			return newErr(KindNotFound, "MoveTask", "no such task", err)
		}
		return newErr(KindIO, "MoveTask", "select", err)
	}

	if _, err := scanCategory(tx.QueryRow(`SELECT id, name, slug, position, created_at FROM categories WHERE id = ?`, categoryID)); err != nil {
		return newErr(KindInvariant, "MoveTask", "destination category does not resolve", err)
	}

	now := time.Now().UTC().Unix()

	// Pull the task out of its old category's ordering list, and build
	// the new category's ordering list with the task inserted at position.
	oldIDs, err := orderedTaskIDs(tx, oldCategoryID, taskID)
	if err != nil {
		return err
	}

	var newIDs []string
	if oldCategoryID == categoryID {
		newIDs = oldIDs
	} else {
		newIDs, err = orderedTaskIDs(tx, categoryID, "")
		if err != nil {
			return err
		}
	}

	if position < 0 {
		position = 0
	}
	if position > len(newIDs) {
		position = len(newIDs)
	}
	newIDs = append(newIDs[:position], append([]string{taskID}, newIDs[position:]...)...)

	if _, err := tx.Exec(`UPDATE tasks SET category_id = ? WHERE id = ?`, categoryID, taskID); err != nil {
		return newErr(KindIO, "MoveTask", "set category", err)
	}

	if oldCategoryID != categoryID {
		if err := renumberTasks(tx, oldIDs, oldCategoryID, now); err != nil {
			return err
		}
	}
	if err := renumberTasks(tx, newIDs, categoryID, now); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return newErr(KindIO, "MoveTask", "commit", err)
	}
	return nil
}

// orderedTaskIDs returns task ids in categoryID ordered by position,
// with excludeID filtered out (used to remove the moving task from its
// old category's list before renumbering).
func orderedTaskIDs(tx *sql.Tx, categoryID, excludeID string) ([]string, error) {
	rows, err := tx.Query(`SELECT id FROM tasks WHERE category_id = ? ORDER BY position`, categoryID)
	if err != nil {
		return nil, newErr(KindIO, "orderedTaskIDs", "query", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, newErr(KindIO, "orderedTaskIDs", "scan", err)
		}
		if id != excludeID {
			ids = append(ids, id)
		}
	}
	return ids, rows.Err()
}

func renumberTasks(tx *sql.Tx, ids []string, categoryID string, nowUnix int64) error {
	for i, id := range ids {
		if _, err := tx.Exec(`UPDATE tasks SET position = ?, category_id = ?, updated_at = ? WHERE id = ?`,
			i, categoryID, nowUnix, id); err != nil {
			return newErr(KindIO, "renumberTasks", "update", err)
		}
	}
	return nil
}

// --- Snapshot ---

// Snapshot is the full board view the UI and CLI read (never write
// directly — spec.md §3 Ownership).
type Snapshot struct {
	Repos      []*model.Repo
	Categories []*model.Category
	Tasks      []*model.Task
}

// TasksByCategory groups the snapshot's tasks by category id, each
// sub-slice already ordered by position.
func (s *Snapshot) TasksByCategory() map[string][]*model.Task {
	out := make(map[string][]*model.Task)
	for _, t := range s.Tasks {
		out[t.CategoryID] = append(out[t.CategoryID], t)
	}
	for _, ts := range out {
		sort.Slice(ts, func(i, j int) bool { return ts[i].Position < ts[j].Position })
	}
	return out
}

// Snapshot reads the whole board under one transaction so observers
// never see a torn cross-table view (spec.md §4.A).
func (s *Store) Snapshot() (*Snapshot, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, newErr(KindIO, "Snapshot", "begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	repoRows, err := tx.Query(`SELECT id, path, name, default_base, remote_url, created_at, updated_at FROM repos ORDER BY name`)
	if err != nil {
		return nil, newErr(KindIO, "Snapshot", "query repos", err)
	}
	var repos []*model.Repo
	for repoRows.Next() {
		r, err := scanRepo(repoRows)
		if err != nil {
			repoRows.Close()
			return nil, err
		}
		repos = append(repos, r)
	}
	repoRows.Close()

	catRows, err := tx.Query(`SELECT id, name, slug, position, created_at FROM categories ORDER BY position`)
	if err != nil {
		return nil, newErr(KindIO, "Snapshot", "query categories", err)
	}
	var cats []*model.Category
	for catRows.Next() {
		c, err := scanCategory(catRows)
		if err != nil {
			catRows.Close()
			return nil, err
		}
		cats = append(cats, c)
	}
	catRows.Close()

	taskRows, err := tx.Query(taskSelectSQL + ` ORDER BY category_id, position`)
	if err != nil {
		return nil, newErr(KindIO, "Snapshot", "query tasks", err)
	}
	var tasks []*model.Task
	for taskRows.Next() {
		t, err := scanTask(taskRows)
		if err != nil {
			taskRows.Close()
			return nil, err
		}
		tasks = append(tasks, t)
	}
	taskRows.Close()

	if err := tx.Commit(); err != nil {
		return nil, newErr(KindIO, "Snapshot", "commit", err)
	}
	return &Snapshot{Repos: repos, Categories: cats, Tasks: tasks}, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique")
}

