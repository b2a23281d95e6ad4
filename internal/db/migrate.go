package db

import (
	"database/sql"
	"fmt"
	"strings"
)

// Migrate runs all schema migrations followed by the lookup seeds.
// Every statement is idempotent so Migrate can run on each start.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			// Tolerate "duplicate column name" errors from ALTER TABLE
			// since the migration system re-runs all statements.
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	for i, stmt := range seeds {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("seed %d: %w", i, err)
		}
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id        INTEGER PRIMARY KEY,
		login     TEXT NOT NULL UNIQUE,
		firstname TEXT NOT NULL DEFAULT '',
		lastname  TEXT NOT NULL DEFAULT '',
		admin     INTEGER NOT NULL DEFAULT 0
	)`,

	`CREATE TABLE IF NOT EXISTS projects (
		id         INTEGER PRIMARY KEY,
		identifier TEXT NOT NULL UNIQUE,
		name       TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS activities (
		id     INTEGER PRIMARY KEY,
		name   TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1
	)`,

	`CREATE TABLE IF NOT EXISTS issue_statuses (
		id        INTEGER PRIMARY KEY,
		name      TEXT NOT NULL,
		is_closed INTEGER NOT NULL DEFAULT 0
	)`,

	`CREATE TABLE IF NOT EXISTS issue_priorities (
		id   INTEGER PRIMARY KEY,
		name TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS issues (
		id             INTEGER PRIMARY KEY,
		project_id     INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		tracker        TEXT NOT NULL DEFAULT 'Task',
		subject        TEXT NOT NULL,
		description    TEXT,
		status_id      INTEGER NOT NULL REFERENCES issue_statuses(id),
		priority_id    INTEGER REFERENCES issue_priorities(id),
		done_ratio     INTEGER NOT NULL DEFAULT 0 CHECK(done_ratio BETWEEN 0 AND 100),
		author_id      INTEGER NOT NULL REFERENCES users(id),
		assigned_to_id INTEGER REFERENCES users(id),
		updated_at     TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS watchers (
		issue_id INTEGER NOT NULL REFERENCES issues(id) ON DELETE CASCADE,
		user_id  INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		PRIMARY KEY (issue_id, user_id)
	)`,

	`CREATE TABLE IF NOT EXISTS grants (
		user_id    INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		project_id INTEGER REFERENCES projects(id) ON DELETE CASCADE,
		permission TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS workflow_transitions (
		old_status_id INTEGER NOT NULL REFERENCES issue_statuses(id),
		new_status_id INTEGER NOT NULL REFERENCES issue_statuses(id),
		PRIMARY KEY (old_status_id, new_status_id)
	)`,

	`CREATE TABLE IF NOT EXISTS time_trackers (
		id                  TEXT PRIMARY KEY,
		user_id             INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		project_id          INTEGER REFERENCES projects(id) ON DELETE SET NULL,
		issue_id            INTEGER REFERENCES issues(id) ON DELETE SET NULL,
		activity_id         INTEGER REFERENCES activities(id) ON DELETE SET NULL,
		start               TEXT NOT NULL,
		comments            TEXT NOT NULL DEFAULT '',
		round               INTEGER NOT NULL DEFAULT 0,
		custom_field_values TEXT NOT NULL DEFAULT '{}',
		created_at          TEXT NOT NULL,
		updated_at          TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS time_logs (
		id         TEXT PRIMARY KEY,
		user_id    INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		start      TEXT NOT NULL,
		stop       TEXT NOT NULL,
		comments   TEXT NOT NULL DEFAULT '',
		round      INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS time_bookings (
		id                  TEXT PRIMARY KEY,
		time_log_id         TEXT NOT NULL UNIQUE REFERENCES time_logs(id) ON DELETE CASCADE,
		user_id             INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		project_id          INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		issue_id            INTEGER REFERENCES issues(id) ON DELETE SET NULL,
		activity_id         INTEGER REFERENCES activities(id),
		start               TEXT NOT NULL,
		stop                TEXT NOT NULL,
		comments            TEXT NOT NULL DEFAULT '',
		custom_field_values TEXT NOT NULL DEFAULT '{}',
		created_at          TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS journals (
		id         TEXT PRIMARY KEY,
		issue_id   INTEGER NOT NULL REFERENCES issues(id) ON DELETE CASCADE,
		user_id    INTEGER NOT NULL REFERENCES users(id),
		notes      TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS journal_details (
		journal_id TEXT NOT NULL REFERENCES journals(id) ON DELETE CASCADE,
		property   TEXT NOT NULL,
		prop_key   TEXT NOT NULL,
		old_value  TEXT,
		value      TEXT
	)`,

	// One running tracker per user.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_time_trackers_user ON time_trackers(user_id)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_grants_unique ON grants(user_id, COALESCE(project_id, 0), permission)`,
	`CREATE INDEX IF NOT EXISTS idx_issues_project ON issues(project_id)`,
	`CREATE INDEX IF NOT EXISTS idx_time_logs_user ON time_logs(user_id, start)`,
	`CREATE INDEX IF NOT EXISTS idx_time_bookings_project ON time_bookings(project_id)`,
	`CREATE INDEX IF NOT EXISTS idx_journals_issue ON journals(issue_id)`,
}

// seeds insert the default workflow vocabulary. Existing rows are kept.
var seeds = []string{
	`INSERT OR IGNORE INTO issue_statuses (id, name, is_closed) VALUES
		(1, 'New', 0),
		(2, 'In Progress', 0),
		(3, 'Resolved', 0),
		(4, 'Feedback', 0),
		(5, 'Closed', 1),
		(6, 'Rejected', 1),
		(7, 'Testing', 0)`,

	`INSERT OR IGNORE INTO issue_priorities (id, name) VALUES
		(1, 'Low'),
		(2, 'Normal'),
		(3, 'High'),
		(4, 'Urgent'),
		(5, 'Immediate')`,
}
