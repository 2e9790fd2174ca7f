package models

import (
	"database/sql"
	"time"
)

// Project mirrors a grouping list from the remote service. Projects are
// created and updated only by pull-sync, never by local user action.
type Project struct {
	ID        string         `db:"id" json:"id"`
	UserID    string         `db:"user_id" json:"user_id"`
	RemoteID  sql.NullString `db:"remote_id" json:"remote_id,omitempty"`
	Name      string         `db:"name" json:"name"`
	Color     string         `db:"color" json:"color"`
	SortOrder int64          `db:"sort_order" json:"sort_order"`
	Archived  bool           `db:"archived" json:"archived"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}
