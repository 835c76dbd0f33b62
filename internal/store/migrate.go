package store

import (
	"database/sql"
	"fmt"
)

// schemaVersion is bumped whenever a migration is appended. Migrate is
// idempotent: every step uses CREATE TABLE IF NOT EXISTS or a
// version-guarded ALTER, so re-running it on an already-migrated
// database is a no-op (spec.md §4.A).
const schemaVersion = 1

// migration is one numbered, idempotent step.
type migration struct {
	version int
	apply   func(tx *sql.Tx) error
}

var migrations = []migration{
	{version: 1, apply: migrateV1},
}

func migrateV1(tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS metadata (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS repos (
			id           TEXT PRIMARY KEY,
			path         TEXT NOT NULL UNIQUE,
			name         TEXT NOT NULL,
			default_base TEXT NOT NULL DEFAULT '',
			remote_url   TEXT NOT NULL DEFAULT '',
			created_at   INTEGER NOT NULL,
			updated_at   INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS categories (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL UNIQUE,
			slug       TEXT NOT NULL UNIQUE,
			position   INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id                  TEXT PRIMARY KEY,
			title               TEXT NOT NULL,
			repo_id             TEXT NOT NULL,
			branch              TEXT NOT NULL,
			category_id         TEXT NOT NULL,
			position            INTEGER NOT NULL,
			tmux_session_name   TEXT NOT NULL DEFAULT '',
			worktree_path       TEXT NOT NULL DEFAULT '',
			tmux_status         TEXT NOT NULL DEFAULT 'unknown',
			status_source       TEXT NOT NULL DEFAULT 'none',
			status_fetched_at   INTEGER NOT NULL DEFAULT 0,
			status_error        TEXT NOT NULL DEFAULT '',
			opencode_session_id TEXT NOT NULL DEFAULT '',
			session_todo_json   TEXT NOT NULL DEFAULT '',
			archived            INTEGER NOT NULL DEFAULT 0,
			created_at          INTEGER NOT NULL,
			updated_at          INTEGER NOT NULL,
			UNIQUE(repo_id, branch)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_category ON tasks(category_id, position)`,
	}
	for _, s := range stmts {
		if _, err := tx.Exec(s); err != nil {
			return fmt.Errorf("migrate v1: %w", err)
		}
	}
	return nil
}

// migrate runs every pending migration in order inside one transaction,
// then records the schema version. Seeding default categories happens
// separately in Open, after migrate, since it needs absence-by-slug
// checks rather than a blind insert.
func migrate(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return newErr(KindIO, "migrate", "begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	var current int
	row := tx.QueryRow(`SELECT value FROM metadata WHERE key = 'schema_version'`)
	if err := row.Scan(&current); err != nil {
		// metadata table may not exist yet on a brand new database; that's fine.
		current = 0
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := m.apply(tx); err != nil {
			return newErr(KindIO, "migrate", fmt.Sprintf("apply v%d", m.version), err)
		}
	}

	if _, err := tx.Exec(
		`INSERT OR REPLACE INTO metadata (key, value) VALUES ('schema_version', ?)`,
		fmt.Sprintf("%d", schemaVersion),
	); err != nil {
		return newErr(KindIO, "migrate", "set schema_version", err)
	}

	if err := tx.Commit(); err != nil {
		return newErr(KindIO, "migrate", "commit", err)
	}
	return nil
}
