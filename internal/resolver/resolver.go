// Package resolver decides, field by field, whether a local task keeps its
// value or takes the remote one during pull-sync. It is a pure function over
// its inputs: no clock, no store, no side effects.
package resolver

import (
	"database/sql"
	"time"

	"github.com/eisenflow/eisenflow/internal/models"
)

// Result is the outcome of one merge. Fields lists the canonical names taken
// from the remote side; Changed is false when the merge was a no-op, which
// lets the caller skip the write entirely.
type Result struct {
	Task    models.Task
	Changed bool
	Fields  []string
}

// Resolve merges one remote snapshot into the local task. localProjectID is
// the local mirror of the snapshot's remote project, empty when that project
// is not known locally.
//
// Fields pinned by a set override flag keep the local value unconditionally,
// with no timestamp comparison. Every other mutable field follows the
// timestamp rule: remote wins only when its modification instant is strictly
// newer than the local one. Ties favor local, and a remote timestamp that is
// absent or unparsable resolves to the zero instant, which is always older.
func Resolve(local models.Task, snap models.TaskSnapshot, localProjectID string) Result {
	merged := local
	merged.Tags = append(models.TagList(nil), local.Tags...)

	remoteAt, _ := models.ParseInstant(snap.ModifiedAt)
	if !remoteAt.After(local.LastModifiedAt) {
		return Result{Task: merged}
	}

	var fields []string
	take := func(name string) {
		fields = append(fields, name)
	}

	if snap.Title != local.Title {
		merged.Title = snap.Title
		take("title")
	}
	if snap.Description != local.Description {
		merged.Description = snap.Description
		take("description")
	}
	if snap.Status != local.Status {
		merged.Status = snap.Status
		take("status")
	}
	if !local.ManualPriorityOverride &&
		snap.Priority != local.Priority && models.ValidPriority(snap.Priority) {
		merged.Priority = snap.Priority
		take("priority")
	}
	// An empty remote quadrant means the remote record carries no
	// classification; it never clears a local assignment.
	if !local.ManualQuadrantOverride && snap.Quadrant != "" &&
		(!local.Quadrant.Valid || local.Quadrant.String != snap.Quadrant) {
		merged.Quadrant = sql.NullString{String: snap.Quadrant, Valid: true}
		take("quadrant")
	}
	// A remote project the local store does not mirror never clears the
	// local link.
	if localProjectID != "" &&
		(!local.ProjectID.Valid || local.ProjectID.String != localProjectID) {
		merged.ProjectID = sql.NullString{String: localProjectID, Valid: true}
		take("project")
	}
	if !equalTags(local.Tags, snap.Tags) {
		merged.Tags = append(models.TagList(nil), snap.Tags...)
		take("tags")
	}
	if !equalNullTime(local.DueDate, snap.DueDate) {
		merged.DueDate = toNullTime(snap.DueDate)
		take("due_date")
	}
	if !equalNullTime(local.StartDate, snap.StartDate) {
		merged.StartDate = toNullTime(snap.StartDate)
		take("start_date")
	}
	if snap.AllDay != local.AllDay {
		merged.AllDay = snap.AllDay
		take("all_day")
	}
	if !equalNullString(local.Recurrence, snap.Recurrence) {
		merged.Recurrence = toNullString(snap.Recurrence)
		take("recurrence")
	}
	if !equalNullTime(local.Reminder, snap.Reminder) {
		merged.Reminder = toNullTime(snap.Reminder)
		take("reminder")
	}
	if !equalNullInt(local.TimeEstimate, snap.TimeEstimate) {
		merged.TimeEstimate = toNullInt(snap.TimeEstimate)
		take("time_estimate")
	}

	return Result{Task: merged, Changed: len(fields) > 0, Fields: fields}
}

func equalTags(a models.TagList, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalNullTime(local sql.NullTime, remote *time.Time) bool {
	if !local.Valid {
		return remote == nil
	}
	return remote != nil && local.Time.Equal(*remote)
}

func equalNullString(local sql.NullString, remote string) bool {
	if !local.Valid {
		return remote == ""
	}
	return local.String == remote
}

func equalNullInt(local sql.NullInt64, remote int64) bool {
	if !local.Valid {
		return remote == 0
	}
	return local.Int64 == remote
}

func toNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func toNullInt(n int64) sql.NullInt64 {
	if n == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: n, Valid: true}
}
