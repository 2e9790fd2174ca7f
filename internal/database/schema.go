package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Schema uses only types shared by Postgres and sqlite so tests can run the
// same DDL against an in-memory database.
const Schema = `
CREATE TABLE IF NOT EXISTS projects (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	remote_id TEXT,
	name TEXT NOT NULL,
	color TEXT NOT NULL DEFAULT '',
	sort_order BIGINT NOT NULL DEFAULT 0,
	archived BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_projects_user_remote
	ON projects (user_id, remote_id);

CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	remote_id TEXT,
	project_id TEXT,
	parent_id TEXT,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'pending',
	priority INTEGER NOT NULL DEFAULT 0,
	tags TEXT NOT NULL DEFAULT '[]',
	due_date TIMESTAMP,
	start_date TIMESTAMP,
	all_day BOOLEAN NOT NULL DEFAULT FALSE,
	recurrence TEXT,
	reminder TIMESTAMP,
	time_estimate BIGINT,
	urgency REAL NOT NULL DEFAULT 0,
	importance REAL NOT NULL DEFAULT 0,
	quadrant TEXT,
	manual_priority_override BOOLEAN NOT NULL DEFAULT FALSE,
	manual_quadrant_override BOOLEAN NOT NULL DEFAULT FALSE,
	remote_quadrant TEXT,
	sync_version BIGINT NOT NULL DEFAULT 0,
	last_synced_at TIMESTAMP,
	last_synced_state TEXT,
	last_modified_at TIMESTAMP NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_tasks_user_remote
	ON tasks (user_id, remote_id);
CREATE INDEX IF NOT EXISTS idx_tasks_user ON tasks (user_id);
CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks (project_id);

CREATE TABLE IF NOT EXISTS suggestions (
	id TEXT PRIMARY KEY,
	task_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	current_value TEXT NOT NULL DEFAULT '',
	suggested_value TEXT NOT NULL DEFAULT '',
	rationale TEXT NOT NULL DEFAULT '',
	confidence REAL NOT NULL DEFAULT 0,
	status TEXT NOT NULL DEFAULT 'pending',
	created_at TIMESTAMP NOT NULL,
	resolved_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_suggestions_task ON suggestions (task_id);
CREATE INDEX IF NOT EXISTS idx_suggestions_task_status
	ON suggestions (task_id, status);
`

// Migrate applies the schema.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
