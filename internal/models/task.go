package models

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Task status constants
const (
	TaskStatusPending   = "pending"
	TaskStatusCompleted = "completed"
)

// Priority ordinals shared with the remote service. The scale is sparse on
// purpose: {0,1,3,5}, not a contiguous 0-3 range.
const (
	PriorityNone   = 0
	PriorityLow    = 1
	PriorityMedium = 3
	PriorityHigh   = 5
)

// ValidPriority reports whether p is one of the four shared ordinals.
func ValidPriority(p int) bool {
	switch p {
	case PriorityNone, PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Quadrant constants (Eisenhower classification buckets)
const (
	QuadrantQ1 = "Q1"
	QuadrantQ2 = "Q2"
	QuadrantQ3 = "Q3"
	QuadrantQ4 = "Q4"
)

// ParseQuadrant converts a string to a quadrant constant.
func ParseQuadrant(s string) (string, error) {
	switch s {
	case QuadrantQ1, QuadrantQ2, QuadrantQ3, QuadrantQ4:
		return s, nil
	default:
		return "", fmt.Errorf("unknown quadrant: %s", s)
	}
}

// TagList stores an ordered set of tags as a JSON column so the same schema
// runs on Postgres and on the sqlite used in tests.
type TagList []string

func (t TagList) Value() (driver.Value, error) {
	if t == nil {
		t = TagList{}
	}
	b, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("marshal tags: %w", err)
	}
	return string(b), nil
}

func (t *TagList) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*t = TagList{}
		return nil
	case []byte:
		return json.Unmarshal(v, t)
	case string:
		return json.Unmarshal([]byte(v), t)
	default:
		return fmt.Errorf("unsupported tags column type %T", src)
	}
}

type Task struct {
	ID          string         `db:"id" json:"id"`
	UserID      string         `db:"user_id" json:"user_id"`
	RemoteID    sql.NullString `db:"remote_id" json:"remote_id,omitempty"`
	ProjectID   sql.NullString `db:"project_id" json:"project_id,omitempty"`
	ParentID    sql.NullString `db:"parent_id" json:"parent_id,omitempty"`
	Title       string         `db:"title" json:"title"`
	Description string         `db:"description" json:"description"`
	Status      string         `db:"status" json:"status"`
	Priority    int            `db:"priority" json:"priority"`
	Tags        TagList        `db:"tags" json:"tags"`
	DueDate     sql.NullTime   `db:"due_date" json:"due_date,omitempty"`
	StartDate   sql.NullTime   `db:"start_date" json:"start_date,omitempty"`
	AllDay      bool           `db:"all_day" json:"all_day"`
	Recurrence  sql.NullString `db:"recurrence" json:"recurrence,omitempty"`
	Reminder    sql.NullTime   `db:"reminder" json:"reminder,omitempty"`
	// TimeEstimate is in minutes.
	TimeEstimate sql.NullInt64 `db:"time_estimate" json:"time_estimate,omitempty"`

	Urgency    float64        `db:"urgency" json:"urgency"`
	Importance float64        `db:"importance" json:"importance"`
	Quadrant   sql.NullString `db:"quadrant" json:"quadrant,omitempty"`

	ManualPriorityOverride bool `db:"manual_priority_override" json:"manual_priority_override"`
	ManualQuadrantOverride bool `db:"manual_quadrant_override" json:"manual_quadrant_override"`

	// RemoteQuadrant is the classification last seen on the remote record.
	// While the task is unreviewed locally (Quadrant unset), pushes echo it
	// back so the remote's own tag is never stripped.
	RemoteQuadrant sql.NullString `db:"remote_quadrant" json:"-"`

	SyncVersion     int64          `db:"sync_version" json:"sync_version"`
	LastSyncedAt    sql.NullTime   `db:"last_synced_at" json:"last_synced_at,omitempty"`
	LastSyncedState sql.NullString `db:"last_synced_state" json:"-"`
	LastModifiedAt  time.Time      `db:"last_modified_at" json:"last_modified_at"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Touch records one logical local mutation: the sync version moves exactly
// once and the modification instant is refreshed.
func (t *Task) Touch(now time.Time) {
	t.SyncVersion++
	t.LastModifiedAt = now
	t.UpdatedAt = now
}

// SyncState encodes every remotely-mirrored field as a stable string, keyed
// by canonical field name. Push-sync diffs the current state against the
// snapshot captured at the last confirmed sync.
func (t *Task) SyncState() map[string]string {
	state := map[string]string{
		"title":       t.Title,
		"description": t.Description,
		"status":      t.Status,
		"priority":    strconv.Itoa(t.Priority),
		"all_day":     strconv.FormatBool(t.AllDay),
	}

	tags, _ := json.Marshal(t.Tags)
	state["tags"] = string(tags)

	state["due_date"] = nullTimeString(t.DueDate)
	state["start_date"] = nullTimeString(t.StartDate)
	state["reminder"] = nullTimeString(t.Reminder)

	if t.Recurrence.Valid {
		state["recurrence"] = t.Recurrence.String
	} else {
		state["recurrence"] = ""
	}
	if t.TimeEstimate.Valid {
		state["time_estimate"] = strconv.FormatInt(t.TimeEstimate.Int64, 10)
	} else {
		state["time_estimate"] = ""
	}
	if t.Quadrant.Valid {
		state["quadrant"] = t.Quadrant.String
	} else {
		state["quadrant"] = ""
	}
	if t.ProjectID.Valid {
		state["project"] = t.ProjectID.String
	} else {
		state["project"] = ""
	}

	return state
}

// EncodeSyncState serializes SyncState for the last_synced_state column.
func (t *Task) EncodeSyncState() (string, error) {
	b, err := json.Marshal(t.SyncState())
	if err != nil {
		return "", fmt.Errorf("encode sync state: %w", err)
	}
	return string(b), nil
}

// DecodeSyncState parses the snapshot captured at the last confirmed sync.
// A missing snapshot decodes to nil, which diffs as "everything changed".
func (t *Task) DecodeSyncState() (map[string]string, error) {
	if !t.LastSyncedState.Valid || t.LastSyncedState.String == "" {
		return nil, nil
	}
	var state map[string]string
	if err := json.Unmarshal([]byte(t.LastSyncedState.String), &state); err != nil {
		return nil, fmt.Errorf("decode sync state: %w", err)
	}
	return state, nil
}

func nullTimeString(t sql.NullTime) string {
	if !t.Valid {
		return ""
	}
	return t.Time.UTC().Format(time.RFC3339Nano)
}
